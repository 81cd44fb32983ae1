package command

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vivskv/vivs/lib/frame"
)

// --------------------------------------------------------------------------
// Verbs
// --------------------------------------------------------------------------

// Verb identifies a command
type Verb string

const (
	VerbPing    Verb = "ping"
	VerbGet     Verb = "get"
	VerbSet     Verb = "set"
	VerbDelete  Verb = "delete"
	VerbTTL     Verb = "ttl"
	VerbAsking  Verb = "asking"
	VerbUnknown Verb = "unknown"
	VerbNone    Verb = "none"
	VerbInvalid Verb = "invalid" // request that could not be parsed
)

// Verbs lists every verb a request can select
var Verbs = []Verb{VerbPing, VerbGet, VerbSet, VerbDelete, VerbTTL, VerbAsking}

// ttlOption introduces the expiry of a SET: SET key value xs <seconds>
const ttlOption = "xs"

// --------------------------------------------------------------------------
// Command Variants
// --------------------------------------------------------------------------

// Command is one parsed request. The set of implementations is closed, they
// are all defined in this package. A command is created per request, executed
// once with Execute and then discarded.
//
// Missing or surplus arguments are not reported by Parse. They are recorded
// on the command and reported as ErrIncorrectArgumentCount by Execute.
type Command interface {
	// Verb returns the verb of the command
	Verb() Verb
	execute(ctx *Context) frame.Frame
}

// Ping answers with PONG or echoes its optional message
type Ping struct {
	Message    string
	HasMessage bool
	err        error
}

// Get reads a key
type Get struct {
	Key string
	err error
}

// Set writes a key, optionally with a TTL in seconds
type Set struct {
	Key    string
	Value  string
	TTL    uint64
	HasTTL bool
	err    error
}

// Delete removes a key
type Delete struct {
	Key string
	err error
}

// TTL returns the remaining time to live of a key
type TTL struct {
	Key string
	err error
}

// Asking allows the next command on the connection to ignore slot ownership
type Asking struct {
	err error
}

// Unknown is a verb outside of the supported set
type Unknown struct {
	Name string
}

// None is an empty request
type None struct{}

func (*Ping) Verb() Verb    { return VerbPing }
func (*Get) Verb() Verb     { return VerbGet }
func (*Set) Verb() Verb     { return VerbSet }
func (*Delete) Verb() Verb  { return VerbDelete }
func (*TTL) Verb() Verb     { return VerbTTL }
func (*Asking) Verb() Verb  { return VerbAsking }
func (*Unknown) Verb() Verb { return VerbUnknown }
func (*None) Verb() Verb    { return VerbNone }

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

// Parse interprets a request frame. The request must be an array of bulk
// strings, the first of which (case-insensitive) selects the verb. All
// elements must be valid UTF-8.
func Parse(req frame.Frame) (Command, error) {
	if req.Type != frame.TypeArray {
		return nil, fmt.Errorf("%w: expected an array, got %s", ErrInvalidRequest, req.Type)
	}
	if len(req.Items) == 0 {
		return &None{}, nil
	}

	args := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Type != frame.TypeBulk {
			return nil, fmt.Errorf("%w: element %d is %s, expected Bulk", ErrInvalidRequest, i, item.Type)
		}
		if !utf8.Valid(item.Data) {
			return nil, fmt.Errorf("%w: element %d is not valid UTF-8", ErrInvalidArgumentEncoding, i)
		}
		args[i] = string(item.Data)
	}

	verb := Verb(strings.ToLower(args[0]))
	args = args[1:]

	switch verb {
	case VerbPing:
		return parsePing(args), nil
	case VerbGet:
		c := &Get{}
		c.Key, c.err = singleKey(verb, args)
		return c, nil
	case VerbSet:
		return parseSet(args), nil
	case VerbDelete:
		c := &Delete{}
		c.Key, c.err = singleKey(verb, args)
		return c, nil
	case VerbTTL:
		c := &TTL{}
		c.Key, c.err = singleKey(verb, args)
		return c, nil
	case VerbAsking:
		c := &Asking{}
		if len(args) != 0 {
			c.err = argumentCountError(verb)
		}
		return c, nil
	default:
		return &Unknown{Name: string(verb)}, nil
	}
}

func singleKey(verb Verb, args []string) (string, error) {
	if len(args) != 1 {
		return "", argumentCountError(verb)
	}
	return args[0], nil
}

func parsePing(args []string) *Ping {
	c := &Ping{}
	switch len(args) {
	case 0:
	case 1:
		c.Message, c.HasMessage = args[0], true
	default:
		c.err = argumentCountError(VerbPing)
	}
	return c
}

// parseSet parses SET key value [xs seconds]
func parseSet(args []string) *Set {
	c := &Set{}
	if len(args) < 2 || len(args) > 4 {
		c.err = argumentCountError(VerbSet)
		return c
	}
	c.Key, c.Value = args[0], args[1]
	if len(args) == 2 {
		return c
	}

	if strings.ToLower(args[2]) != ttlOption {
		c.err = fmt.Errorf("%w: unsupported option '%s'", ErrSyntax, args[2])
		return c
	}
	if len(args) == 3 {
		c.err = argumentCountError(VerbSet)
		return c
	}

	ttl, err := strconv.ParseUint(args[3], 10, 64)
	if err != nil {
		c.err = ErrNotInteger
		return c
	}
	c.TTL, c.HasTTL = ttl, true
	return c
}
