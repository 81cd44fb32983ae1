package frame

import (
	"bufio"
	"encoding/binary"
	"strconv"
)

// byteOrder is used for integer frames. Integers travel as the raw 8 byte
// native-endian representation of the value, not as decimal text.
var byteOrder = binary.NativeEndian

var crlf = []byte("\r\n")

// Size returns the number of bytes Encode will produce for f
func (f Frame) Size() int {
	switch f.Type {
	case TypeArray:
		n := 1 + decimalLen(len(f.Items)) + 2
		for _, item := range f.Items {
			n += item.Size()
		}
		return n
	case TypeBulk:
		return 1 + decimalLen(len(f.Data)) + 2 + len(f.Data) + 2
	case TypeSimpleString, TypeSimpleError:
		return 1 + len(f.Data) + 2
	case TypeInteger:
		return integerFrameLength
	default:
		return 3
	}
}

// Encode returns the wire representation of f. Only frames that pass
// Validate are guaranteed to parse back to f.
func (f Frame) Encode() []byte {
	return f.AppendTo(make([]byte, 0, f.Size()))
}

// AppendTo appends the wire representation of f to dst and returns the extended buffer
func (f Frame) AppendTo(dst []byte) []byte {
	switch f.Type {
	case TypeArray:
		dst = append(dst, byte(TypeArray))
		dst = strconv.AppendInt(dst, int64(len(f.Items)), 10)
		dst = append(dst, crlf...)
		for _, item := range f.Items {
			dst = item.AppendTo(dst)
		}
	case TypeBulk:
		dst = append(dst, byte(TypeBulk))
		dst = strconv.AppendInt(dst, int64(len(f.Data)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, f.Data...)
		dst = append(dst, crlf...)
	case TypeSimpleString, TypeSimpleError:
		dst = append(dst, byte(f.Type))
		dst = append(dst, f.Data...)
		dst = append(dst, crlf...)
	case TypeInteger:
		dst = append(dst, byte(TypeInteger))
		dst = byteOrder.AppendUint64(dst, f.Int)
		dst = append(dst, crlf...)
	default:
		dst = append(dst, byte(TypeNull))
		dst = append(dst, crlf...)
	}
	return dst
}

// WriteBuffered writes the encoded frame to a buffered writer. The caller is
// responsible for flushing. Frames that do not pass Validate are rejected
// before anything is written.
func (f Frame) WriteBuffered(w *bufio.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return f.writeBuffered(w)
}

func (f Frame) writeBuffered(w *bufio.Writer) error {
	// small frames are encoded in place, large bulks are streamed
	if f.Type != TypeArray && f.Type != TypeBulk {
		var scratch [64]byte
		_, err := w.Write(f.AppendTo(scratch[:0]))
		return err
	}

	if err := w.WriteByte(byte(f.Type)); err != nil {
		return err
	}
	n := len(f.Data)
	if f.Type == TypeArray {
		n = len(f.Items)
	}
	if _, err := w.WriteString(strconv.Itoa(n)); err != nil {
		return err
	}
	if _, err := w.Write(crlf); err != nil {
		return err
	}

	if f.Type == TypeArray {
		for _, item := range f.Items {
			if err := item.writeBuffered(w); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := w.Write(f.Data); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}

func decimalLen(n int) int {
	l := 1
	for n >= 10 {
		n /= 10
		l++
	}
	return l
}
