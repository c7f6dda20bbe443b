package commands_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// useTempConfig points the CLI at a config file in a fresh directory and resets
// viper afterwards. Tests using it must not run in parallel.
func useTempConfig(t *testing.T, api string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")

	viper.Reset()
	viper.SetConfigFile(path)
	viper.Set("api", api)
	t.Cleanup(viper.Reset)

	return path
}
