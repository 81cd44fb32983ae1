// Package testing provides a standardised test suite for implementations of
// the store.IStore interface.
//
// Every test gets a fresh store driven by a store.ManualClock, so expiry is
// tested without sleeping.
//
// Example usage:
//
//	func TestMyStore(t *testing.T) {
//		storetesting.RunStoreTests(t, "MyStore", func(clock store.Clock) store.IStore {
//			return NewMyStore(clock)
//		})
//	}
package testing
