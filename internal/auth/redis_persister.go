package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oreanmos/copepod-go/internal/constants"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// RedisPersister keeps the credential pair under a single Redis key, so several
// processes can share one session.
type RedisPersister struct {
	client redis.UniversalClient
	key    string
	owned  bool
}

// NewRedisPersister wraps an existing Redis client. The caller keeps ownership of it.
func NewRedisPersister(client redis.UniversalClient, key string) *RedisPersister {
	if key == "" {
		key = constants.DefaultRedisTokenKey
	}

	return &RedisPersister{client: client, key: key}
}

// NewRedisPersisterFromConfig dials Redis and verifies the connection.
func NewRedisPersisterFromConfig(ctx context.Context, config *copepod.RedisPersisterConfig) (*RedisPersister, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Username: config.Username,
		Password: config.Password,
		DB:       config.DB,
	})

	err := client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connecting to redis at %s: %w", config.Addr, err)
	}

	persister := NewRedisPersister(client, config.Key)
	persister.owned = true

	return persister, nil
}

// SaveTokens stores the pair without a TTL; the refresh token outlives the access token.
func (p *RedisPersister) SaveTokens(ctx context.Context, pair copepod.TokenPair) error {
	data, err := encodePair(pair)
	if err != nil {
		return err
	}

	err = p.client.Set(ctx, p.key, data, 0).Err()
	if err != nil {
		return fmt.Errorf("saving tokens to redis: %w", err)
	}

	return nil
}

// LoadTokens returns the stored pair, or nil when the key does not exist.
func (p *RedisPersister) LoadTokens(ctx context.Context) (*copepod.TokenPair, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading tokens from redis: %w", err)
	}

	return decodePair(data)
}

// ClearTokens deletes the key.
func (p *RedisPersister) ClearTokens(ctx context.Context) error {
	err := p.client.Del(ctx, p.key).Err()
	if err != nil {
		return fmt.Errorf("clearing tokens in redis: %w", err)
	}

	return nil
}

// Close releases the connection when the persister created it.
func (p *RedisPersister) Close() error {
	if !p.owned {
		return nil
	}

	return p.client.Close()
}
