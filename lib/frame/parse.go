package frame

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrIncomplete indicates that the buffer does not (yet) hold a complete frame.
	// The caller should read more bytes and retry.
	ErrIncomplete = errors.New("frame: incomplete")
	// ErrMalformed indicates that the buffer can never be parsed into a frame
	ErrMalformed = errors.New("frame: malformed")
)

// Limits applied while parsing untrusted input
const (
	MaxDepth      = 32                // max nesting of arrays
	MaxBulkLength = 512 * 1024 * 1024 // 512 MiB
	MaxArrayItems = 1 << 20
	MaxLineLength = 64 * 1024 // simple strings, errors and length lines, without CRLF
)

// integerFrameLength is the encoded size of an integer frame: ':' + 8 bytes + CRLF
const integerFrameLength = 1 + 8 + 2

// Parse parses exactly one frame from the start of buf and returns it together
// with the number of bytes it occupied.
//
// If buf holds only a prefix of a frame, ErrIncomplete is returned and nothing
// is consumed. Any other error wraps ErrMalformed.
func Parse(buf []byte) (Frame, int, error) {
	var d Decoder
	return d.Decode(buf)
}

// --------------------------------------------------------------------------
// Decoder
// --------------------------------------------------------------------------

// Decoder parses a frame that arrives in pieces.
//
// Between calls that return ErrIncomplete the decoder remembers the array
// elements it already completed and the minimum buffer length that can make
// progress, so bytes are not scanned again on every read. The buffer passed to
// the next call must start with the same bytes (it may only grow at the end).
// After a frame or a malformed error the decoder is reset and the next call
// starts at a new frame.
//
// The zero value is ready to use. A Decoder is not safe for concurrent use.
type Decoder struct {
	open []openArray // arrays still waiting for elements, innermost last
	pos  int         // bytes of the frame consumed so far
	need int         // buffer length required before the next attempt
}

type openArray struct {
	items []Frame
	count int
}

// Reset drops any partially decoded frame
func (d *Decoder) Reset() {
	d.open = d.open[:0]
	d.pos, d.need = 0, 0
}

// Decode continues decoding the frame at the start of buf. It has the same
// results as Parse.
func (d *Decoder) Decode(buf []byte) (Frame, int, error) {
	if len(buf) < d.need {
		return Frame{}, 0, ErrIncomplete
	}

	for {
		c := cursor{buf: buf, pos: d.pos}
		depth := len(d.open)

		var f Frame
		if c.pos < len(buf) && Type(buf[c.pos]) == TypeArray {
			if depth > MaxDepth {
				return d.fail(fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, MaxDepth), 0)
			}
			c.pos++
			count, err := c.length(MaxArrayItems)
			if err != nil {
				return d.fail(err, c.need)
			}
			d.pos = c.pos
			if count > 0 {
				d.open = append(d.open, openArray{items: make([]Frame, 0, min(count, 64)), count: count})
				continue
			}
			f = Frame{Type: TypeArray, Items: []Frame{}}
		} else {
			var err error
			if f, err = c.parseScalar(depth); err != nil {
				return d.fail(err, c.need)
			}
			d.pos = c.pos
		}

		// attach to the enclosing arrays, closing every one that is full
		for len(d.open) > 0 {
			top := &d.open[len(d.open)-1]
			top.items = append(top.items, f)
			if len(top.items) < top.count {
				break
			}
			f = Frame{Type: TypeArray, Items: top.items}
			d.open = d.open[:len(d.open)-1]
		}
		if len(d.open) == 0 {
			n := d.pos
			d.Reset()
			return f, n, nil
		}
	}
}

// fail resets the decoder on malformed input and records how many bytes the
// next attempt needs on incomplete input.
func (d *Decoder) fail(err error, need int) (Frame, int, error) {
	if !errors.Is(err, ErrIncomplete) {
		d.Reset()
		return Frame{}, 0, err
	}
	d.need = need
	return Frame{}, 0, ErrIncomplete
}

// --------------------------------------------------------------------------
// Cursor
// --------------------------------------------------------------------------

// cursor is a read position into a length delimited byte buffer. On
// ErrIncomplete, need holds the buffer length the failed read requires.
type cursor struct {
	buf  []byte
	pos  int
	need int
}

func (c *cursor) incomplete(need int) error {
	c.need = need
	return ErrIncomplete
}

// parseScalar parses any frame except an array
func (c *cursor) parseScalar(depth int) (Frame, error) {
	if depth > MaxDepth {
		return Frame{}, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, MaxDepth)
	}
	if c.pos >= len(c.buf) {
		return Frame{}, c.incomplete(c.pos + 1)
	}

	t := Type(c.buf[c.pos])
	c.pos++

	switch t {
	case TypeBulk:
		return c.parseBulk()
	case TypeSimpleString, TypeSimpleError:
		line, err := c.line()
		if err != nil {
			return Frame{}, err
		}
		data := make([]byte, len(line))
		copy(data, line)
		return Frame{Type: t, Data: data}, nil
	case TypeInteger:
		return c.parseInteger()
	case TypeNull:
		line, err := c.line()
		if err != nil {
			return Frame{}, err
		}
		if len(line) != 0 {
			return Frame{}, fmt.Errorf("%w: null frame with payload", ErrMalformed)
		}
		return Null(), nil
	default:
		return Frame{}, fmt.Errorf("%w: invalid type byte %q", ErrMalformed, byte(t))
	}
}

func (c *cursor) parseBulk() (Frame, error) {
	length, err := c.length(MaxBulkLength)
	if err != nil {
		return Frame{}, err
	}

	end := c.pos + length
	if end+2 > len(c.buf) {
		return Frame{}, c.incomplete(end + 2)
	}
	if c.buf[end] != '\r' || c.buf[end+1] != '\n' {
		return Frame{}, fmt.Errorf("%w: bulk payload does not match its declared length %d", ErrMalformed, length)
	}

	data := make([]byte, length)
	copy(data, c.buf[c.pos:end])
	c.pos = end + 2
	return Frame{Type: TypeBulk, Data: data}, nil
}

func (c *cursor) parseInteger() (Frame, error) {
	start := c.pos - 1
	if start+integerFrameLength > len(c.buf) {
		return Frame{}, c.incomplete(start + integerFrameLength)
	}
	end := c.pos + 8
	if c.buf[end] != '\r' || c.buf[end+1] != '\n' {
		return Frame{}, fmt.Errorf("%w: integer frame is not terminated after 8 bytes", ErrMalformed)
	}
	n := byteOrder.Uint64(c.buf[c.pos:end])
	c.pos = end + 2
	return Integer(n), nil
}

// line returns the bytes up to the next CRLF and advances past it
func (c *cursor) line() ([]byte, error) {
	idx := bytes.IndexByte(c.buf[c.pos:], '\n')
	if idx < 0 {
		if len(c.buf)-c.pos > MaxLineLength+1 {
			return nil, fmt.Errorf("%w: line longer than %d bytes", ErrMalformed, MaxLineLength)
		}
		return nil, c.incomplete(len(c.buf) + 1)
	}
	end := c.pos + idx
	if idx == 0 || c.buf[end-1] != '\r' {
		return nil, fmt.Errorf("%w: line not terminated by CRLF", ErrMalformed)
	}
	if idx-1 > MaxLineLength {
		return nil, fmt.Errorf("%w: line longer than %d bytes", ErrMalformed, MaxLineLength)
	}
	line := c.buf[c.pos : end-1]
	c.pos = end + 1
	return line, nil
}

// length reads a decimal, non negative length line bounded by limit
func (c *cursor) length(limit int) (int, error) {
	line, err := c.line()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(string(line))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid length %q", ErrMalformed, line)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative length %d", ErrMalformed, n)
	}
	if n > limit {
		return 0, fmt.Errorf("%w: length %d exceeds limit %d", ErrMalformed, n, limit)
	}
	return n, nil
}
