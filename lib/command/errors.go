package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/lib/store"
)

var (
	// ErrIncorrectArgumentCount is reported when a verb got too few or too many arguments
	ErrIncorrectArgumentCount = errors.New("wrong number of arguments")
	// ErrInvalidArgumentEncoding is reported when an argument is not valid UTF-8
	ErrInvalidArgumentEncoding = errors.New("invalid argument encoding")
	// ErrUnknownCommand is reported for verbs outside of the supported set
	ErrUnknownCommand = errors.New("unknown command")
	// ErrEmptyCommand is reported for requests without any element
	ErrEmptyCommand = errors.New("empty command")
	// ErrInvalidRequest is reported for requests that are not an array of bulk strings
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSyntax is reported for unsupported options
	ErrSyntax = errors.New("syntax error")
	// ErrNotInteger is reported if a numeric argument can not be parsed
	ErrNotInteger = errors.New("value is not an integer or out of range")
)

// ErrorFrame converts an error into the SimpleError frame sent to the client.
// Store errors are reported as generic internal errors.
func ErrorFrame(err error) frame.Frame {
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return frame.SimpleError("ERR internal error: " + sanitize(storeErr.Msg))
	}
	return frame.SimpleError("ERR " + sanitize(err.Error()))
}

// maxErrorText bounds the client supplied text echoed in error messages
const maxErrorText = 256

// sanitize removes characters that would break a simple string and shortens
// overly long text
func sanitize(s string) string {
	if len(s) > maxErrorText {
		s = strings.ToValidUTF8(s[:maxErrorText], "") + "..."
	}
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}

func argumentCountError(verb Verb) error {
	return fmt.Errorf("%w for '%s' command", ErrIncorrectArgumentCount, verb)
}

// --------------------------------------------------------------------------
// ASK redirects
// --------------------------------------------------------------------------

const askPrefix = "ASK "

// AskFrame creates the redirect sent for a key whose slot is owned by addr
func AskFrame(slot uint16, addr string) frame.Frame {
	return frame.SimpleError(askPrefix + strconv.FormatUint(uint64(slot), 10) + " " + addr)
}

// ParseAsk extracts slot and target address from an ASK redirect.
// ok is false if f is not a redirect.
func ParseAsk(f frame.Frame) (slot uint16, addr string, ok bool) {
	if !f.IsError() {
		return 0, "", false
	}
	text := f.Text()
	if !strings.HasPrefix(text, askPrefix) {
		return 0, "", false
	}
	parts := strings.Fields(text[len(askPrefix):])
	if len(parts) != 2 {
		return 0, "", false
	}
	n, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(n), parts[1], true
}
