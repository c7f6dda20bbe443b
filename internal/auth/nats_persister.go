package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/oreanmos/copepod-go/internal/constants"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// KeyValue is the subset of jetstream.KeyValue used by NATSKVPersister.
type KeyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// NATSKVPersister keeps the credential pair in a JetStream key-value bucket.
type NATSKVPersister struct {
	kv   KeyValue
	key  string
	conn *nats.Conn
}

// NewNATSKVPersister wraps an existing bucket.
func NewNATSKVPersister(kv KeyValue, key string) *NATSKVPersister {
	if key == "" {
		key = constants.DefaultNATSTokenKey
	}

	return &NATSKVPersister{kv: kv, key: key}
}

// ConnectNATSKVPersister connects to NATS and creates the bucket when missing.
func ConnectNATSKVPersister(ctx context.Context, config *copepod.NATSPersisterConfig) (*NATSKVPersister, error) {
	url := config.URL
	if url == "" {
		url = nats.DefaultURL
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	conn, err := nats.Connect(url, nats.Name("copepod-token-persister"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Copepod credential pairs",
		History:     1,
	})
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening KV bucket %s: %w", bucket, err)
	}

	persister := NewNATSKVPersister(kv, config.Key)
	persister.conn = conn

	return persister, nil
}

// SaveTokens puts the pair under the configured key.
func (p *NATSKVPersister) SaveTokens(ctx context.Context, pair copepod.TokenPair) error {
	data, err := encodePair(pair)
	if err != nil {
		return err
	}

	_, err = p.kv.Put(ctx, p.key, data)
	if err != nil {
		return fmt.Errorf("saving tokens to NATS KV: %w", err)
	}

	return nil
}

// LoadTokens returns the stored pair, or nil when the key is missing or deleted.
func (p *NATSKVPersister) LoadTokens(ctx context.Context) (*copepod.TokenPair, error) {
	entry, err := p.kv.Get(ctx, p.key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading tokens from NATS KV: %w", err)
	}

	return decodePair(entry.Value())
}

// ClearTokens deletes the key.
func (p *NATSKVPersister) ClearTokens(ctx context.Context) error {
	err := p.kv.Delete(ctx, p.key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("clearing tokens in NATS KV: %w", err)
	}

	return nil
}

// Close drains the connection when the persister created it.
func (p *NATSKVPersister) Close() error {
	if p.conn == nil {
		return nil
	}

	return p.conn.Drain()
}
