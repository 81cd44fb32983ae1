package command

import (
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/vivskv/vivs/lib/cluster"
	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/lib/store"
)

var Logger = logger.GetLogger("command")

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// Session is the per-connection state commands can observe. Its only state is
// the one-shot asking flag set by ASKING and consumed by the next command.
type Session struct {
	asking atomic.Bool
}

// NewSession creates the state for a new connection
func NewSession() *Session {
	return &Session{}
}

// Asking reports whether the next command may ignore slot ownership
func (s *Session) Asking() bool {
	return s.asking.Load()
}

func (s *Session) setAsking() {
	s.asking.Store(true)
}

func (s *Session) consumeAsking() bool {
	return s.asking.Swap(false)
}

// --------------------------------------------------------------------------
// Execution Context
// --------------------------------------------------------------------------

// Context holds everything a command is executed against
type Context struct {
	// Store is the key-value state shared by all connections
	Store store.IStore
	// Slots is the cluster layout. nil means no cluster configuration.
	Slots *cluster.SlotTable
	// Session is the state of the connection the request came in on
	Session *Session
	// Peer is the remote address of the connection (used for logging)
	Peer string

	// asking is true while executing the command right after ASKING
	asking bool
}

// Execute runs cmd and returns the response frame. Errors are never returned,
// they are converted to SimpleError frames.
//
// Every command except ASKING consumes the session's asking flag.
func Execute(ctx *Context, cmd Command) frame.Frame {
	ctx.asking = false
	if ctx.Session != nil && cmd.Verb() != VerbAsking {
		ctx.asking = ctx.Session.consumeAsking()
	}
	return cmd.execute(ctx)
}

// Dispatch parses req and executes the resulting command
func Dispatch(ctx *Context, req frame.Frame) (Verb, frame.Frame) {
	cmd, err := Parse(req)
	if err != nil {
		// an unparseable request still counts as the next command
		if ctx.Session != nil {
			ctx.Session.consumeAsking()
		}
		return VerbInvalid, ErrorFrame(err)
	}
	return cmd.Verb(), Execute(ctx, cmd)
}

// --------------------------------------------------------------------------
// Command Execution
// --------------------------------------------------------------------------

func (c *Ping) execute(_ *Context) frame.Frame {
	if c.err != nil {
		return ErrorFrame(c.err)
	}
	if c.HasMessage {
		return textFrame(c.Message)
	}
	return frame.SimpleString("PONG")
}

func (c *Get) execute(ctx *Context) frame.Frame {
	if c.err != nil {
		return ErrorFrame(c.err)
	}

	// redirect if another node owns the key (unless the client sent ASKING)
	if !ctx.asking {
		if slot, owner, owned := ctx.Slots.Owns(c.Key); !owned {
			Logger.Debugf("redirecting GET %q from %s to %s (slot %d)", c.Key, ctx.Peer, owner, slot)
			return AskFrame(slot, owner)
		}
	}

	value, ok, err := ctx.Store.Get(c.Key)
	if err != nil {
		return ErrorFrame(err)
	}
	if !ok {
		return frame.Null()
	}
	return valueFrame(value)
}

func (c *Set) execute(ctx *Context) frame.Frame {
	if c.err != nil {
		return ErrorFrame(c.err)
	}

	var err error
	if c.HasTTL {
		err = ctx.Store.SetE(c.Key, []byte(c.Value), c.TTL)
	} else {
		err = ctx.Store.Set(c.Key, []byte(c.Value))
	}
	if err != nil {
		return ErrorFrame(err)
	}
	return frame.SimpleString("OK")
}

func (c *Delete) execute(ctx *Context) frame.Frame {
	if c.err != nil {
		return ErrorFrame(c.err)
	}
	deleted, err := ctx.Store.Delete(c.Key)
	if err != nil {
		return ErrorFrame(err)
	}
	if deleted {
		return frame.Integer(1)
	}
	return frame.Integer(0)
}

func (c *TTL) execute(ctx *Context) frame.Frame {
	if c.err != nil {
		return ErrorFrame(c.err)
	}
	remaining, err := ctx.Store.TTL(c.Key)
	if err != nil {
		return ErrorFrame(err)
	}
	return frame.Integer(remaining)
}

func (c *Asking) execute(ctx *Context) frame.Frame {
	if c.err != nil {
		return ErrorFrame(c.err)
	}
	if ctx.Session != nil {
		ctx.Session.setAsking()
	}
	return frame.SimpleString("OK")
}

func (c *Unknown) execute(_ *Context) frame.Frame {
	return frame.Errorf("ERR %s '%s'", ErrUnknownCommand, sanitize(c.Name))
}

func (c *None) execute(_ *Context) frame.Frame {
	return ErrorFrame(ErrEmptyCommand)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// valueFrame returns a stored value as simple string. Values that contain CR
// or LF, or are longer than a line may be, are sent as bulk instead.
func valueFrame(value []byte) frame.Frame {
	if !frame.IsSimpleSafe(value) {
		return frame.Bulk(value)
	}
	return frame.SimpleBytes(value)
}

func textFrame(s string) frame.Frame {
	return valueFrame([]byte(s))
}
