package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that creates a new store.
// This is used to run the same tests against every implementation.
type Factory func(clock Clock) IStore

// IStore is the interface for the key–value state shared by all connections.
// All write operations return only an error (nil on success),
// while read operations return the requested data along with an error (nil on success).
// Errors returned by implementations are of type *Error.
//
// Expiry is lazy: an expired key keeps occupying memory until a Get or TTL
// call observes it as expired and evicts it.
type IStore interface {
	// Set inserts or updates a key–value pair. Any expiry previously set for the key is removed.
	Set(key string, value []byte) (err error)
	// SetE inserts or updates a key–value pair that expires expireIn seconds from now.
	// expireIn=0 creates a key that is already expired.
	SetE(key string, value []byte, expireIn uint64) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a (not expired) value was found.
	// An expired key is evicted by this call.
	Get(key string) (value []byte, loaded bool, err error)
	// Delete removes a key and its expiry. The boolean return value indicates whether the key was present.
	Delete(key string) (deleted bool, err error)
	// TTL returns the remaining time to live of a key in whole seconds.
	// 0 is returned for keys without expiry, for absent keys and for expired keys (which are evicted).
	TTL(key string) (remaining uint64, err error)
	// GetInfo returns metadata about the store. The numbers include expired keys that were not evicted yet.
	GetInfo() (info Info, err error)
}

// Info holds metadata about a store
type Info struct {
	Keys        int `json:"keys"`
	KeysWithTTL int `json:"keys_with_ttl"`
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("store error (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error (e.g. the clock could not be read).
	RetCInvalidOperation                // 2: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
