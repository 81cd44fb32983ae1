package frame

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Frame Types
// --------------------------------------------------------------------------

// Type is the leading byte that introduces a frame on the wire
type Type byte

const (
	TypeArray        Type = '*'
	TypeBulk         Type = '$'
	TypeSimpleString Type = '+'
	TypeSimpleError  Type = '-'
	TypeInteger      Type = ':'
	TypeNull         Type = '_'
)

func (t Type) String() string {
	switch t {
	case TypeArray:
		return "Array"
	case TypeBulk:
		return "Bulk"
	case TypeSimpleString:
		return "SimpleString"
	case TypeSimpleError:
		return "SimpleError"
	case TypeInteger:
		return "Integer"
	case TypeNull:
		return "Null"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Frame
// --------------------------------------------------------------------------

// Frame is one protocol value. Which fields are used depends on the type:
//
//   - Array: Items
//   - Bulk, SimpleString, SimpleError: Data
//   - Integer: Int
//   - Null: none
//
// Frames are treated as immutable once constructed. The constructors copy
// nothing, so callers must not modify slices they handed over.
type Frame struct {
	Type  Type
	Data  []byte
	Int   uint64
	Items []Frame
}

// Array creates an array frame from the given items
func Array(items ...Frame) Frame {
	if items == nil {
		items = []Frame{}
	}
	return Frame{Type: TypeArray, Items: items}
}

// Bulk creates a length prefixed binary string
func Bulk(data []byte) Frame {
	if data == nil {
		data = []byte{}
	}
	return Frame{Type: TypeBulk, Data: data}
}

// BulkString is a shorthand for Bulk([]byte(s))
func BulkString(s string) Frame {
	return Bulk([]byte(s))
}

// SimpleString creates a status frame. The text must not contain CR or LF and
// must not be longer than MaxLineLength, see IsSimpleSafe.
func SimpleString(s string) Frame {
	return Frame{Type: TypeSimpleString, Data: []byte(s)}
}

// SimpleBytes is like SimpleString but takes the raw bytes. Writing the frame
// fails if data is not IsSimpleSafe.
func SimpleBytes(data []byte) Frame {
	if data == nil {
		data = []byte{}
	}
	return Frame{Type: TypeSimpleString, Data: data}
}

// SimpleError creates an error frame. The text must not contain CR or LF.
func SimpleError(s string) Frame {
	return Frame{Type: TypeSimpleError, Data: []byte(s)}
}

// Errorf creates an error frame from a format string
func Errorf(format string, args ...interface{}) Frame {
	return SimpleError(fmt.Sprintf(format, args...))
}

// Integer creates an unsigned 64-bit integer frame
func Integer(n uint64) Frame {
	return Frame{Type: TypeInteger, Int: n}
}

// Null creates the null frame
func Null() Frame {
	return Frame{Type: TypeNull}
}

// Command builds a request frame (an array of bulk strings) from its arguments
func Command(args ...string) Frame {
	items := make([]Frame, len(args))
	for i, arg := range args {
		items[i] = BulkString(arg)
	}
	return Array(items...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// IsSimpleSafe reports whether data can be sent as SimpleString or
// SimpleError: it must fit on one line that the peer accepts.
func IsSimpleSafe(data []byte) bool {
	return len(data) <= MaxLineLength && !bytes.ContainsAny(data, "\r\n")
}

// Validate checks that f can be encoded and parsed back unchanged. Simple
// strings and errors must be IsSimpleSafe, arrays must respect the nesting
// and element limits.
func (f Frame) Validate() error {
	return f.validate(0)
}

func (f Frame) validate(depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, MaxDepth)
	}
	switch f.Type {
	case TypeArray:
		if len(f.Items) > MaxArrayItems {
			return fmt.Errorf("%w: %d array items exceed limit %d", ErrMalformed, len(f.Items), MaxArrayItems)
		}
		for _, item := range f.Items {
			if err := item.validate(depth + 1); err != nil {
				return err
			}
		}
	case TypeBulk:
		if len(f.Data) > MaxBulkLength {
			return fmt.Errorf("%w: bulk of %d bytes exceeds limit %d", ErrMalformed, len(f.Data), MaxBulkLength)
		}
	case TypeSimpleString, TypeSimpleError:
		if !IsSimpleSafe(f.Data) {
			return fmt.Errorf("%w: %s contains CR or LF or is too long", ErrMalformed, f.Type)
		}
	case TypeInteger, TypeNull:
	default:
		return fmt.Errorf("%w: invalid type byte %q", ErrMalformed, byte(f.Type))
	}
	return nil
}

// IsError reports whether the frame is a SimpleError
func (f Frame) IsError() bool {
	return f.Type == TypeSimpleError
}

// IsNull reports whether the frame is Null
func (f Frame) IsNull() bool {
	return f.Type == TypeNull
}

// Text returns the payload of a Bulk, SimpleString or SimpleError as string
func (f Frame) Text() string {
	return string(f.Data)
}

// Equal reports whether two frames have the same type and content
func (f Frame) Equal(other Frame) bool {
	if f.Type != other.Type {
		return false
	}
	switch f.Type {
	case TypeArray:
		if len(f.Items) != len(other.Items) {
			return false
		}
		for i := range f.Items {
			if !f.Items[i].Equal(other.Items[i]) {
				return false
			}
		}
		return true
	case TypeBulk, TypeSimpleString, TypeSimpleError:
		return bytes.Equal(f.Data, other.Data)
	case TypeInteger:
		return f.Int == other.Int
	default:
		return true
	}
}

// String renders the frame in a human readable form (used by the cli and in logs)
func (f Frame) String() string {
	switch f.Type {
	case TypeArray:
		parts := make([]string, len(f.Items))
		for i, item := range f.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TypeBulk:
		return strconv.Quote(string(f.Data))
	case TypeSimpleString:
		return string(f.Data)
	case TypeSimpleError:
		return "(error) " + string(f.Data)
	case TypeInteger:
		return "(integer) " + strconv.FormatUint(f.Int, 10)
	case TypeNull:
		return "(nil)"
	default:
		return fmt.Sprintf("(unknown type %q)", byte(f.Type))
	}
}
