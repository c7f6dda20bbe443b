package commands_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oreanmos/copepod-go/cmd/copepod/commands"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

func readConfig(t *testing.T, path string) *commands.Config {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	config := &commands.Config{}
	require.NoError(t, yaml.Unmarshal(data, config))

	return config
}

func writeConfig(t *testing.T, path string, config *commands.Config) {
	t.Helper()

	data, err := yaml.Marshal(config)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestConfigPersister(t *testing.T) {
	t.Parallel()

	t.Run("missing file loads nothing", func(t *testing.T) {
		t.Parallel()

		persister := commands.NewConfigPersister(filepath.Join(t.TempDir(), "config.yml"))

		pair, err := persister.LoadTokens(context.Background())
		require.NoError(t, err)
		assert.Nil(t, pair)
	})

	t.Run("round trip keeps other settings", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "config.yml")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		writeConfig(t, path, &commands.Config{API: "https://api.example.com", Org: "o1"})

		persister := commands.NewConfigPersister(path)
		expiresAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

		err := persister.SaveTokens(context.Background(), copepod.TokenPair{
			Token:        "access",
			RefreshToken: "refresh",
			ExpiresAt:    &expiresAt,
		})
		require.NoError(t, err)

		pair, err := persister.LoadTokens(context.Background())
		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.Equal(t, "access", pair.Token)
		assert.Equal(t, "refresh", pair.RefreshToken)
		require.NotNil(t, pair.ExpiresAt)
		assert.True(t, pair.ExpiresAt.Equal(expiresAt))

		config := readConfig(t, path)
		assert.Equal(t, "https://api.example.com", config.API)
		assert.Equal(t, "o1", config.Org)
		assert.NotNil(t, config.LastRefreshed)
	})

	t.Run("clear removes only the pair", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yml")
		writeConfig(t, path, &commands.Config{Email: "ada@example.com", Token: "access", RefreshToken: "refresh"})

		persister := commands.NewConfigPersister(path)
		require.NoError(t, persister.ClearTokens(context.Background()))

		pair, err := persister.LoadTokens(context.Background())
		require.NoError(t, err)
		assert.Nil(t, pair)

		config := readConfig(t, path)
		assert.Equal(t, "ada@example.com", config.Email)
		assert.Empty(t, config.RefreshToken)
	})

	t.Run("corrupt file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0o600))

		_, err := commands.NewConfigPersister(path).LoadTokens(context.Background())
		require.Error(t, err)
	})
}
