package lstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivskv/vivs/lib/store"
	storetesting "github.com/vivskv/vivs/lib/store/testing"
)

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "LocalStore", func(clock store.Clock) store.IStore {
		return NewLocalStore(clock)
	})
}

func TestExpiryInvariant(t *testing.T) {
	clock := store.NewManualClock(100)
	s := NewLocalStore(clock).(*storeImpl)

	require.NoError(t, s.SetE("a", []byte("1"), 5))
	require.NoError(t, s.Set("b", []byte("2")))
	require.NoError(t, s.SetE("b", []byte("3"), 5))
	require.NoError(t, s.Set("a", []byte("4")))

	assert.Equal(t, map[string]uint64{"b": 105}, s.expirations)
	for key := range s.expirations {
		_, ok := s.values[key]
		assert.True(t, ok, "key %q has an expiry but no value", key)
	}
}

func TestSetEDoesNotOverflow(t *testing.T) {
	clock := store.NewManualClock(100)
	s := NewLocalStore(clock)

	require.NoError(t, s.SetE("k", []byte("v"), ^uint64(0)))
	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDefaultsToSystemClock(t *testing.T) {
	s := NewLocalStore(nil).(*storeImpl)
	assert.IsType(t, store.SystemClock{}, s.clock)
}

func BenchmarkGet(b *testing.B) {
	s := NewLocalStore(store.SystemClock{})
	_ = s.SetE("key", []byte("value"), 3600)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _, _ = s.Get("key")
		}
	})
}
