package auth

import (
	"sync"
	"time"

	"github.com/oreanmos/copepod-go/internal/constants"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// TokenStore holds the credential pair of one client. Readers run concurrently;
// a writer excludes everyone. It performs no I/O.
type TokenStore struct {
	mutex sync.RWMutex
	pair  *copepod.TokenPair
	now   func() time.Time
}

// StoreOption configures a TokenStore.
type StoreOption func(*TokenStore)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *TokenStore) {
		s.now = now
	}
}

// NewTokenStore creates an empty token store.
func NewTokenStore(opts ...StoreOption) *TokenStore {
	store := &TokenStore{now: time.Now}
	for _, opt := range opts {
		opt(store)
	}

	return store
}

// NewTokenStoreWithPair creates a store seeded with pair.
func NewTokenStoreWithPair(pair copepod.TokenPair, opts ...StoreOption) *TokenStore {
	store := NewTokenStore(opts...)
	store.Set(pair)

	return store
}

// Set replaces the stored pair.
func (s *TokenStore) Set(pair copepod.TokenPair) {
	stored := clonePair(&pair)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pair = stored
}

// Get returns a copy of the stored pair, or nil when the store is empty.
func (s *TokenStore) Get() *copepod.TokenPair {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return clonePair(s.pair)
}

// Clear removes the stored pair.
func (s *TokenStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pair = nil
}

// IsExpired is true when the store is empty or the expiry has been reached.
// A pair without expiry never expires.
func (s *TokenStore) IsExpired() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.pair == nil {
		return true
	}

	if s.pair.ExpiresAt == nil {
		return false
	}

	return !s.now().Before(*s.pair.ExpiresAt)
}

// NeedsRefresh is true when the pair has an expiry and the current time is within
// constants.RefreshWindow of it (or past it).
func (s *TokenStore) NeedsRefresh() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.pair == nil || s.pair.ExpiresAt == nil {
		return false
	}

	return !s.now().Before(s.pair.ExpiresAt.Add(-constants.RefreshWindow))
}

func clonePair(pair *copepod.TokenPair) *copepod.TokenPair {
	if pair == nil {
		return nil
	}

	out := *pair
	if pair.ExpiresAt != nil {
		expiresAt := *pair.ExpiresAt
		out.ExpiresAt = &expiresAt
	}

	return &out
}
