// Package lstore implements a local, in-memory, single-node key-value store based on the
// store.IStore interface. Data is stored entirely in memory and is not persisted
// between process restarts.
//
// Implementation Details:
//
//   - Two Maps: values maps a key to its bytes, expirations maps a key to its
//     absolute expiry instant in unix seconds. A key without an entry in
//     expirations never expires. Every key in expirations is also in values.
//
//   - Lazy Expiry: There is no background sweeper. Get and TTL compare the
//     expiry with the injected store.Clock (expired means expiry <= now) and evict
//     the key from both maps when they observe it as expired. Set without a TTL
//     removes any previous expiry, so the key becomes permanent again.
//
// Thread Safety:
//
//	All operations are thread-safe. A single sync.RWMutex guards both maps.
//	Get and TTL run under the read lock and only acquire the write lock, for a
//	short re-check and delete, when they actually observe an expired key.
//	Set and Delete always take the write lock. There is no multi-key atomicity.
//
// Usage Example:
//
//	s := lstore.NewLocalStore(store.SystemClock{})
//
//	// Store a value with a 5-minute expiration
//	err := s.SetE("session:123", sessionData, 300)
//
//	// Retrieve the value
//	value, exists, err := s.Get("session:123")
package lstore
