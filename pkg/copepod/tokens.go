package copepod

import (
	"context"
	"time"
)

// TokenPair is the access/refresh credential held by a client.
// A nil ExpiresAt marks the pair as non-expiring: it is never refreshed on timing grounds.
type TokenPair struct {
	Token        string     `json:"token"                yaml:"token"`
	RefreshToken string     `json:"refresh_token"        yaml:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// CredentialStore exposes the credential pair owned by a client.
type CredentialStore interface {
	// Get returns a copy of the current pair, or nil when none is stored.
	Get() *TokenPair
	// Set replaces the stored pair.
	Set(pair TokenPair)
	// Clear removes the stored pair.
	Clear()
	// IsExpired is true when no pair is stored or its expiry has passed.
	IsExpired() bool
	// NeedsRefresh is true when the pair's expiry falls within the refresh window.
	NeedsRefresh() bool
}

// TokenPersister saves credential pairs outside the process so that a later client can
// resume a session. Implementations must be safe for concurrent use.
type TokenPersister interface {
	SaveTokens(ctx context.Context, pair TokenPair) error
	// LoadTokens returns nil, nil when nothing has been stored.
	LoadTokens(ctx context.Context) (*TokenPair, error)
	ClearTokens(ctx context.Context) error
}

// PersisterType represents the type of token persistence backend.
type PersisterType string

const (
	// PersisterTypeNone disables persistence.
	PersisterTypeNone PersisterType = "none"

	// PersisterTypeRedis stores the pair under a Redis key.
	PersisterTypeRedis PersisterType = "redis"

	// PersisterTypeNATS stores the pair in a NATS JetStream key-value bucket.
	PersisterTypeNATS PersisterType = "nats"
)

// PersisterConfig configures a token persistence backend.
type PersisterConfig struct {
	// Type is the backend type
	Type PersisterType `json:"type" yaml:"type"`

	// Redis backend configuration
	Redis *RedisPersisterConfig `json:"redis,omitempty" yaml:"redis,omitempty"`

	// NATS KV backend configuration
	NATS *NATSPersisterConfig `json:"nats,omitempty" yaml:"nats,omitempty"`
}

// RedisPersisterConfig configures the Redis persister.
type RedisPersisterConfig struct {
	Addr     string `json:"addr"               yaml:"addr"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty"       yaml:"db,omitempty"`
	// Key defaults to "copepod:tokens".
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}

// NATSPersisterConfig configures the NATS KV persister.
type NATSPersisterConfig struct {
	URL string `json:"url" yaml:"url"`
	// Bucket defaults to "copepod_tokens"; it is created when missing.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	// Key defaults to "tokens".
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}
