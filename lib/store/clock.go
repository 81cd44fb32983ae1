package store

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrClockBeforeEpoch is returned by SystemClock if the wall clock is set before 1970
var ErrClockBeforeEpoch = errors.New("system clock is before the unix epoch")

// Clock provides the current time in whole unix seconds.
// Stores never read the time directly so that expiry can be tested deterministically.
type Clock interface {
	Now() (unixSeconds uint64, err error)
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() (uint64, error) {
	now := time.Now().Unix()
	if now < 0 {
		return 0, ErrClockBeforeEpoch
	}
	return uint64(now), nil
}

// ManualClock is a clock that only moves when told to. It is safe for concurrent use.
type ManualClock struct {
	now atomic.Uint64
	err atomic.Pointer[error]
}

// NewManualClock creates a manual clock starting at the given unix second
func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

func (c *ManualClock) Now() (uint64, error) {
	if err := c.err.Load(); err != nil {
		return 0, *err
	}
	return c.now.Load(), nil
}

// Advance moves the clock forward by the given number of seconds
func (c *ManualClock) Advance(seconds uint64) {
	c.now.Add(seconds)
}

// Fail makes every following Now call return err (nil restores normal operation)
func (c *ManualClock) Fail(err error) {
	if err == nil {
		c.err.Store(nil)
		return
	}
	c.err.Store(&err)
}
