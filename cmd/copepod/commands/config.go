package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oreanmos/copepod-go/internal/constants"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// Config represents the CLI configuration file.
type Config struct {
	API            string     `json:"api,omitempty"              yaml:"api,omitempty"`
	Email          string     `json:"email,omitempty"            yaml:"email,omitempty"`
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"    yaml:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"   yaml:"last_refreshed,omitempty"`

	// Default org and app used when --org and --app are not given.
	Org string `json:"org,omitempty" yaml:"org,omitempty"`
	App string `json:"app,omitempty" yaml:"app,omitempty"`

	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Persistence moves the credential pair out of this file into Redis or NATS.
	Persistence *copepod.PersisterConfig `json:"persistence,omitempty" yaml:"persistence,omitempty"`
}

// settableKeys maps `config set` keys to their fields.
var settableKeys = map[string]func(*Config) *string{
	"api":    func(c *Config) *string { return &c.API },
	"email":  func(c *Config) *string { return &c.Email },
	"org":    func(c *Config) *string { return &c.Org },
	"app":    func(c *Config) *string { return &c.App },
	"output": func(c *Config) *string { return &c.Output },
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the Copepod CLI configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			masked := *config
			if masked.Token != "" {
				masked.Token = Masked
			}

			if masked.RefreshToken != "" {
				masked.RefreshToken = Masked
			}

			return renderOutput(&masked, func() error {
				return renderConfigTable(&masked)
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set one of: api, email, org, app, output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfigKey(args[0], args[1])
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove one of: api, email, org, app, output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfigKey(args[0], "")
		},
	}
}

func updateConfigKey(key, value string) error {
	field, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return withConfig(func(config *Config) error {
		*field(config) = value

		return nil
	})
}

func renderConfigTable(config *Config) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	rows := map[string]string{
		"api":    config.API,
		"email":  config.Email,
		"org":    config.Org,
		"app":    config.App,
		"output": config.Output,
		"token":  config.Token,
	}

	if config.TokenExpiresAt != nil {
		rows["token_expires_at"] = config.TokenExpiresAt.Format(time.RFC3339)
	}

	if config.Persistence != nil {
		rows["persistence"] = string(config.Persistence.Type)
	}

	keys := make([]string, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		value := rows[key]
		if value == "" {
			value = NotAvailable
		}

		_ = table.Append(key, value)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// configFilePath returns the file viper loaded, or the default location.
func configFilePath() (string, error) {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".copepod", "config.yml"), nil
}

func loadConfig() (*Config, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	return loadConfigFile(path)
}

// withConfig loads the config file, applies update and writes it back.
func withConfig(update func(*Config) error) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	config, err := loadConfigFile(path)
	if err != nil {
		return err
	}

	err = update(config)
	if err != nil {
		return err
	}

	return saveConfigFile(path, config)
}

// loadConfigFile reads a YAML config. A missing file yields an empty config.
func loadConfigFile(path string) (*Config, error) {
	// #nosec G304 -- the path comes from the --config flag or the user's home directory
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

func saveConfigFile(path string, config *Config) error {
	err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
