// Package store provides the interface for the key-value state of a vivs node
// together with a unified error type and the clock capability used for expiry.
//
// The package focuses on:
//   - A unified interface (IStore) for key-value operations with lazy expiry
//   - An injectable Clock so that time based behavior can be tested deterministically
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining Set, SetE, Get, Delete and
//     TTL. Keys are strings, values are opaque byte slices. A key may carry an
//     absolute expiry instant (unix seconds). Expired keys are evicted lazily,
//     exactly when Get or TTL observes them; there is no background sweeper.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. Map operations themselves never fail, the only
//     error source in normal operation is the clock.
//
//   - Clock: SystemClock reads the wall clock, ManualClock is a test double that
//     only moves when advanced.
//
// Implementations:
//
//   - Local Store (lstore): two maps (values and expirations) guarded by a
//     readers-writer lock. Available in the "github.com/vivskv/vivs/lib/store/lstore" package.
//
// The testing package (github.com/vivskv/vivs/lib/store/testing) provides a
// conformance suite every IStore implementation should pass.
package store
