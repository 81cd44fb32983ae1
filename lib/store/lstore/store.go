package lstore

import (
	"math"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/vivskv/vivs/lib/store"
)

var Logger = logger.GetLogger("store")

type storeImpl struct {
	clock store.Clock

	mu          sync.RWMutex
	values      map[string][]byte
	expirations map[string]uint64 // absolute expiry in unix seconds
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only holds the keys of a single node.
// If clock is nil, the system clock is used.
func NewLocalStore(clock store.Clock) store.IStore {
	if clock == nil {
		clock = store.SystemClock{}
	}
	return &storeImpl{
		clock:       clock,
		values:      make(map[string][]byte),
		expirations: make(map[string]uint64),
	}
}

// now reads the clock and converts a failure into a store error
func (s *storeImpl) now() (uint64, error) {
	now, err := s.clock.Now()
	if err != nil {
		return 0, store.NewError(store.RetCInternalError, "failed to read clock: "+err.Error())
	}
	return now, nil
}

// evictExpired removes key from both maps if it is (still) expired at now.
// It takes the write lock itself and is only called after a reader observed
// an expired entry. If the key was rewritten in the meantime and is no longer
// expired, its current value is returned.
//
// Thread-safety: This method is thread-safe since it acquires the write lock.
func (s *storeImpl) evictExpired(key string, now uint64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	if !ok {
		return nil, false
	}
	expireAt, hasTTL := s.expirations[key]
	if hasTTL && expireAt <= now {
		delete(s.values, key)
		delete(s.expirations, key)
		Logger.Debugf("evicted expired key %q (expired at %d, now %d)", key, expireAt, now)
		return nil, false
	}
	return value, true
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.mu.Lock()
	s.values[key] = valueCopy
	delete(s.expirations, key)
	s.mu.Unlock()
	return nil
}

func (s *storeImpl) SetE(key string, value []byte, expireIn uint64) error {
	now, err := s.now()
	if err != nil {
		return err
	}

	// saturate instead of wrapping around
	expireAt := now + expireIn
	if expireAt < now {
		expireAt = math.MaxUint64
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.mu.Lock()
	s.values[key] = valueCopy
	s.expirations[key] = expireAt
	s.mu.Unlock()
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	now, err := s.now()
	if err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	value, ok := s.values[key]
	expireAt, hasTTL := s.expirations[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	// case expired -> escalate to the write lock for the lazy eviction
	if hasTTL && expireAt <= now {
		value, ok = s.evictExpired(key, now)
		if !ok {
			return nil, false, nil
		}
	}

	data := make([]byte, len(value))
	copy(data, value)
	return data, true, nil
}

func (s *storeImpl) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.values[key]
	delete(s.values, key)
	delete(s.expirations, key)
	return ok, nil
}

func (s *storeImpl) TTL(key string) (uint64, error) {
	now, err := s.now()
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	expireAt, hasTTL := s.expirations[key]
	s.mu.RUnlock()

	// no expiry and absent keys are not distinguished
	if !hasTTL {
		return 0, nil
	}

	if expireAt <= now {
		s.evictExpired(key, now)
		return 0, nil
	}
	return expireAt - now, nil
}

func (s *storeImpl) GetInfo() (store.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Info{
		Keys:        len(s.values),
		KeysWithTTL: len(s.expirations),
	}, nil
}
