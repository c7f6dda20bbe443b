package commands

import (
	"context"
	"sync"
	"time"

	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// ConfigPersister keeps the credential pair in the CLI config file, so a refresh
// made by one command is picked up by the next.
type ConfigPersister struct {
	path  string
	mutex sync.Mutex
}

// NewConfigPersister creates a persister writing to the config file at path.
func NewConfigPersister(path string) *ConfigPersister {
	return &ConfigPersister{path: path}
}

// SaveTokens stores the pair and the refresh time.
func (p *ConfigPersister) SaveTokens(ctx context.Context, pair copepod.TokenPair) error {
	return p.update(func(config *Config) {
		config.Token = pair.Token
		config.RefreshToken = pair.RefreshToken
		config.TokenExpiresAt = pair.ExpiresAt

		now := time.Now()
		config.LastRefreshed = &now
	})
}

// LoadTokens returns the stored pair, or nil when the file holds no token.
func (p *ConfigPersister) LoadTokens(ctx context.Context) (*copepod.TokenPair, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config, err := loadConfigFile(p.path)
	if err != nil {
		return nil, err
	}

	if config.Token == "" {
		return nil, nil
	}

	return &copepod.TokenPair{
		Token:        config.Token,
		RefreshToken: config.RefreshToken,
		ExpiresAt:    config.TokenExpiresAt,
	}, nil
}

// ClearTokens removes the pair and keeps every other setting.
func (p *ConfigPersister) ClearTokens(ctx context.Context) error {
	return p.update(func(config *Config) {
		config.Token = ""
		config.RefreshToken = ""
		config.TokenExpiresAt = nil
		config.LastRefreshed = nil
	})
}

func (p *ConfigPersister) update(apply func(*Config)) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config, err := loadConfigFile(p.path)
	if err != nil {
		return err
	}

	apply(config)

	return saveConfigFile(p.path, config)
}
