package testing

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivskv/vivs/lib/store"
)

// startTime is the unix second every test clock starts at
const startTime = 1_700_000_000

// RunStoreTests runs a comprehensive test suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory store.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, newStore(factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, newStore(factory))
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, newStore(factory))
		})

		t.Run("ZeroTTL", func(t *testing.T) {
			testZeroTTL(t, newStore(factory))
		})

		t.Run("TTL", func(t *testing.T) {
			testTTL(t, newStore(factory))
		})

		t.Run("OverwriteResetsTTL", func(t *testing.T) {
			testOverwriteResetsTTL(t, newStore(factory))
		})

		t.Run("LazyEviction", func(t *testing.T) {
			testLazyEviction(t, newStore(factory))
		})

		t.Run("ClockFailure", func(t *testing.T) {
			testClockFailure(t, newStore(factory))
		})

		t.Run("ManyExpiringKeys", func(t *testing.T) {
			testManyExpiringKeys(t, newStore(factory))
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, newStore(factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

type testStore struct {
	store.IStore
	clock *store.ManualClock
}

func newStore(factory store.Factory) testStore {
	clock := store.NewManualClock(startTime)
	return testStore{IStore: factory(clock), clock: clock}
}

func requireValue(t *testing.T, s store.IStore, key string, expected string) {
	t.Helper()
	value, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok, "expected key %q to exist", key)
	assert.Equal(t, expected, string(value))
}

func requireAbsent(t *testing.T, s store.IStore, key string) {
	t.Helper()
	_, ok, err := s.Get(key)
	require.NoError(t, err)
	require.False(t, ok, "expected key %q to be absent", key)
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s testStore) {
	require.NoError(t, s.Set("test-key", []byte("test-value1")))
	requireValue(t, s, "test-key", "test-value1")

	require.NoError(t, s.Set("test-key", []byte("test-value2")))
	requireValue(t, s, "test-key", "test-value2")

	requireAbsent(t, s, "nonexistent-key")

	// Get must return a copy
	retrieved, _, _ := s.Get("test-key")
	retrieved[0] = 'X'
	requireValue(t, s, "test-key", "test-value2")

	// Set must copy the input
	input := []byte("mutable")
	require.NoError(t, s.Set("copy-key", input))
	input[0] = 'X'
	requireValue(t, s, "copy-key", "mutable")

	// empty values are values
	require.NoError(t, s.Set("empty", []byte{}))
	requireValue(t, s, "empty", "")
}

func testDelete(t *testing.T, s testStore) {
	deleted, err := s.Delete("missing")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, s.Set("key", []byte("value")))
	deleted, err = s.Delete("key")
	require.NoError(t, err)
	assert.True(t, deleted)
	requireAbsent(t, s, "key")

	// idempotent
	deleted, err = s.Delete("key")
	require.NoError(t, err)
	assert.False(t, deleted)

	// deleting a key with expiry removes the expiry as well
	require.NoError(t, s.SetE("ttl-key", []byte("value"), 100))
	deleted, err = s.Delete("ttl-key")
	require.NoError(t, err)
	assert.True(t, deleted)
	info, err := s.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, 0, info.KeysWithTTL)

	// deleting an expired but not yet evicted key must not fail
	require.NoError(t, s.SetE("expired", []byte("value"), 1))
	s.clock.Advance(5)
	deleted, err = s.Delete("expired")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func testKeyExpiry(t *testing.T, s testStore) {
	require.NoError(t, s.SetE("expiring-key", []byte("expiring-value"), 10))

	s.clock.Advance(9)
	requireValue(t, s, "expiring-key", "expiring-value")

	// expiry <= now means expired
	s.clock.Advance(1)
	requireAbsent(t, s, "expiring-key")

	require.NoError(t, s.Set("permanent", []byte("value")))
	s.clock.Advance(1_000_000)
	requireValue(t, s, "permanent", "value")
}

func testZeroTTL(t *testing.T, s testStore) {
	require.NoError(t, s.SetE("k", []byte("v"), 0))
	requireAbsent(t, s, "k")

	ttl, err := s.TTL("k")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ttl)
}

func testTTL(t *testing.T, s testStore) {
	ttl, err := s.TTL("missing")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ttl)

	require.NoError(t, s.Set("no-ttl", []byte("v")))
	ttl, err = s.TTL("no-ttl")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ttl)

	require.NoError(t, s.SetE("ttl", []byte("v"), 100))
	ttl, err = s.TTL("ttl")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), ttl)

	s.clock.Advance(40)
	ttl, err = s.TTL("ttl")
	require.NoError(t, err)
	assert.Equal(t, uint64(60), ttl)

	s.clock.Advance(60)
	ttl, err = s.TTL("ttl")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ttl)

	// TTL evicted the key
	info, err := s.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, 1, info.Keys)
	assert.Equal(t, 0, info.KeysWithTTL)
	requireAbsent(t, s, "ttl")
}

func testOverwriteResetsTTL(t *testing.T, s testStore) {
	require.NoError(t, s.SetE("k", []byte("v1"), 1000))
	require.NoError(t, s.Set("k", []byte("v2")))

	s.clock.Advance(2000)
	requireValue(t, s, "k", "v2")

	ttl, err := s.TTL("k")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ttl)

	// a fresh SetE replaces the previous expiry
	require.NoError(t, s.SetE("k", []byte("v3"), 10))
	require.NoError(t, s.SetE("k", []byte("v4"), 50))
	ttl, err = s.TTL("k")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), ttl)
}

func testLazyEviction(t *testing.T, s testStore) {
	require.NoError(t, s.SetE("a", []byte("v"), 1))
	require.NoError(t, s.SetE("b", []byte("v"), 1))
	s.clock.Advance(10)

	// expired keys still occupy memory until they are accessed
	info, err := s.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, 2, info.Keys)
	assert.Equal(t, 2, info.KeysWithTTL)

	requireAbsent(t, s, "a")

	info, err = s.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, 1, info.Keys)
	assert.Equal(t, 1, info.KeysWithTTL)
}

func testClockFailure(t *testing.T, s testStore) {
	require.NoError(t, s.Set("k", []byte("v")))

	s.clock.Fail(errors.New("clock broken"))

	_, _, err := s.Get("k")
	require.Error(t, err)
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCInternalError, storeErr.Code)

	_, err = s.TTL("k")
	require.Error(t, err)

	err = s.SetE("k", []byte("v2"), 10)
	require.Error(t, err)

	s.clock.Fail(nil)
	requireValue(t, s, "k", "v")
}

func testManyExpiringKeys(t *testing.T, s testStore) {
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("expire-key-%d", i)
		ttl := uint64(i%100) + 1
		require.NoError(t, s.SetE(key, []byte(key), ttl))
	}

	for offset := uint64(0); offset <= 100; offset += 10 {
		expired := 0
		for i := 0; i < numKeys; i++ {
			key := fmt.Sprintf("expire-key-%d", i)
			ttl := uint64(i%100) + 1
			_, ok, err := s.Get(key)
			require.NoError(t, err)
			if !ok {
				expired++
			}
			assert.Equal(t, ttl <= offset, !ok, "key %s at offset %d", key, offset)
		}
		assert.Equal(t, int(offset)*numKeys/100, expired)
		s.clock.Advance(10)
	}
}

func testConcurrency(t *testing.T, s testStore) {
	const (
		workers = 8
		rounds  = 500
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				key := fmt.Sprintf("key-%d", i%20)
				switch (w + i) % 5 {
				case 0:
					_ = s.Set(key, []byte("v"))
				case 1:
					_ = s.SetE(key, []byte("v"), uint64(i%3))
				case 2:
					_, _, _ = s.Get(key)
				case 3:
					_, _ = s.TTL(key)
				case 4:
					_, _ = s.Delete(key)
				}
				if i%50 == 0 {
					s.clock.Advance(1)
				}
			}
		}(w)
	}
	wg.Wait()

	info, err := s.GetInfo()
	require.NoError(t, err)
	assert.LessOrEqual(t, info.KeysWithTTL, info.Keys)
}
