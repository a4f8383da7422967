package otp

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps codes in process. It is used when Redis is unreachable,
// which limits sign-in to a single server instance.
type MemoryStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *MemoryStore) Put(_ context.Context, key string, e Entry, ttl time.Duration) error {
	m.cache.Set(key, e, ttl)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return Entry{}, ErrNoCode
	}
	return v.(Entry), nil
}

// IncrAttempts keeps the original expiry of the entry.
func (m *MemoryStore) IncrAttempts(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, exp, ok := m.cache.GetWithExpiration(key)
	if !ok {
		return 0, ErrNoCode
	}
	e := v.(Entry)
	e.Attempts++
	ttl := gocache.NoExpiration
	if !exp.IsZero() {
		if ttl = time.Until(exp); ttl <= 0 {
			m.cache.Delete(key)
			return e.Attempts, ErrNoCode
		}
	}
	m.cache.Set(key, e, ttl)
	return e.Attempts, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}
