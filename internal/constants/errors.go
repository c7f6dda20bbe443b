package constants

import "errors"

// Token errors.
var (
	ErrInvalidJWTFormat  = errors.New("invalid JWT format")
	ErrNoExpirationClaim = errors.New("no expiration claim found")
)

// Configuration errors.
var (
	ErrNoAPIEndpointConfigured = errors.New("no API endpoint configured, use 'copepod config set api <url>'")
	ErrNotAuthenticated        = errors.New("not authenticated, use 'copepod login' first")
	ErrUnknownConfigKey        = errors.New("unknown configuration key")
)

// Persistence errors.
var (
	ErrRedisConfigRequired    = errors.New("redis configuration required for redis persister")
	ErrNATSConfigRequired     = errors.New("NATS configuration required for NATS persister")
	ErrUnsupportedPersistType = errors.New("unsupported persister type")
)
