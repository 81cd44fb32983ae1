// Package frame implements the wire protocol spoken by vivs. A frame is one
// protocol value: an array, a bulk string, a simple string, a simple error,
// an unsigned integer or null.
//
// The encoding is RESP-like and driven by a single leading type byte:
//
//	*<n>\r\n<n frames>          Array
//	$<len>\r\n<bytes>\r\n       Bulk
//	+<text>\r\n                 SimpleString
//	-<text>\r\n                 SimpleError
//	:<8 bytes>\r\n              Integer (raw native-endian uint64, not decimal text)
//	_\r\n                       Null
//
// Parse works on a length delimited buffer and distinguishes between input
// that is only incomplete (ErrIncomplete, read more and retry) and input that
// can never become a valid frame (ErrMalformed). Lengths, nesting and line
// sizes are bounded by MaxBulkLength, MaxArrayItems, MaxDepth and
// MaxLineLength. A Decoder does the same for a buffer that keeps growing,
// without scanning the bytes it already decoded again.
//
// Simple strings and errors can not carry CR or LF. Validate reports frames
// that would not parse back unchanged, WriteBuffered refuses to send them.
//
// Requests are always arrays of bulk strings, see Command.
package frame
