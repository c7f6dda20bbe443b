package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oreanmos/copepod-go/internal/constants"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// NoopPersister discards every pair.
type NoopPersister struct{}

// NewNoopPersister creates a persister that stores nothing.
func NewNoopPersister() *NoopPersister {
	return &NoopPersister{}
}

// SaveTokens does nothing.
func (p *NoopPersister) SaveTokens(ctx context.Context, pair copepod.TokenPair) error {
	return nil
}

// LoadTokens always reports that nothing is stored.
func (p *NoopPersister) LoadTokens(ctx context.Context) (*copepod.TokenPair, error) {
	return nil, nil
}

// ClearTokens does nothing.
func (p *NoopPersister) ClearTokens(ctx context.Context) error {
	return nil
}

// NewPersisterFromConfig creates a persistence backend from configuration.
// A nil config yields a NoopPersister. Backends holding connections implement io.Closer.
func NewPersisterFromConfig(ctx context.Context, config *copepod.PersisterConfig) (copepod.TokenPersister, error) {
	if config == nil {
		return NewNoopPersister(), nil
	}

	switch config.Type {
	case copepod.PersisterTypeNone, "":
		return NewNoopPersister(), nil

	case copepod.PersisterTypeRedis:
		if config.Redis == nil {
			return nil, constants.ErrRedisConfigRequired
		}

		persister, err := NewRedisPersisterFromConfig(ctx, config.Redis)
		if err != nil {
			return nil, err
		}

		return persister, nil

	case copepod.PersisterTypeNATS:
		if config.NATS == nil {
			return nil, constants.ErrNATSConfigRequired
		}

		persister, err := ConnectNATSKVPersister(ctx, config.NATS)
		if err != nil {
			return nil, err
		}

		return persister, nil

	default:
		return nil, fmt.Errorf("%w: %s", constants.ErrUnsupportedPersistType, config.Type)
	}
}

func encodePair(pair copepod.TokenPair) ([]byte, error) {
	data, err := json.Marshal(pair)
	if err != nil {
		return nil, fmt.Errorf("encoding token pair: %w", err)
	}

	return data, nil
}

func decodePair(data []byte) (*copepod.TokenPair, error) {
	var pair copepod.TokenPair

	err := json.Unmarshal(data, &pair)
	if err != nil {
		return nil, fmt.Errorf("decoding token pair: %w", err)
	}

	return &pair, nil
}
