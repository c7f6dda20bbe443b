package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oreanmos/copepod-go/internal/constants"
	"github.com/oreanmos/copepod-go/pkg/copepod"
	"github.com/oreanmos/copepod-go/pkg/copepodclient"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"
	Masked       = "***"

	// Output formats.
	OutputFormatJSON = constants.FormatJSON
	OutputFormatYAML = constants.FormatYAML

	// JSON formatting.
	defaultJSONIndent = 2

	dateTimeLayout = "2006-01-02 15:04"
)

// Common static errors used throughout the commands package.
var (
	ErrOrgRequired        = errors.New("organization is required (use --org or 'copepod config set org <id>')")
	ErrAppRequired        = errors.New("app is required (use --app or 'copepod config set app <id>')")
	ErrRecordDataRequired = errors.New("record data is required (use --data or --file)")
	ErrEmailRequired      = errors.New("email is required")
	ErrNotAnObject        = errors.New("record data must be a JSON or YAML object")
	ErrMemberRequired     = errors.New("either --user-id or --email is required")
	ErrNotAList           = errors.New("import data must be a JSON or YAML list of objects")
)

var logger = zerolog.Nop()

// SetLogger sets the logger used by commands and handed to clients.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// CreateClient builds a client from flags, environment and the config file. The
// stored pair is loaded and kept current through the config file, or through the
// configured persistence backend.
func CreateClient(ctx context.Context) (copepod.Client, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	config, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}

	clientConfig, err := buildClientConfig(config, path)
	if err != nil {
		return nil, err
	}

	client, err := copepodclient.New(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

func buildClientConfig(config *Config, path string) (*copepod.Config, error) {
	endpoint := firstNonEmpty(viper.GetString("api"), config.API)
	if endpoint == "" {
		return nil, constants.ErrNoAPIEndpointConfigured
	}

	clientConfig := &copepod.Config{
		APIEndpoint:   endpoint,
		ExpiryFromJWT: true,
		HTTPTimeout:   viper.GetDuration("timeout"),
		Debug:         viper.GetBool("verbose"),
		Logger:        copepod.NewZerologLogger(logger),
	}

	switch {
	case viper.GetString("access_token") != "":
		clientConfig.AccessToken = viper.GetString("access_token")
	case config.Persistence != nil:
		clientConfig.Persistence = config.Persistence
	default:
		clientConfig.Persister = NewConfigPersister(path)
	}

	return clientConfig, nil
}

// requireLogin fails early when the client holds no credential.
func requireLogin(client copepod.Client) error {
	if client.Credentials().Get() == nil {
		return constants.ErrNotAuthenticated
	}

	return nil
}

// resolveOrg returns --org or the configured default org.
func resolveOrg(cmd *cobra.Command) (string, error) {
	org, _ := cmd.Flags().GetString("org")
	if org != "" {
		return org, nil
	}

	config, err := loadConfig()
	if err != nil {
		return "", err
	}

	if config.Org == "" {
		return "", ErrOrgRequired
	}

	return config.Org, nil
}

// resolveOrgApp returns --org/--app or the configured defaults.
func resolveOrgApp(cmd *cobra.Command) (string, string, error) {
	org, err := resolveOrg(cmd)
	if err != nil {
		return "", "", err
	}

	app, _ := cmd.Flags().GetString("app")
	if app != "" {
		return org, app, nil
	}

	config, err := loadConfig()
	if err != nil {
		return "", "", err
	}

	if config.App == "" {
		return "", "", ErrAppRequired
	}

	return org, config.App, nil
}

func addOrgFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String("org", "", "organization ID (defaults to the configured org)")
}

func addOrgAppFlags(cmd *cobra.Command) {
	addOrgFlag(cmd)
	cmd.PersistentFlags().String("app", "", "app ID (defaults to the configured app)")
}

// renderOutput writes data as JSON or YAML, or calls table for the default format.
func renderOutput[T any](data T, table func() error) error {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		return StandardJSONRenderer(data)
	case OutputFormatYAML:
		return StandardYAMLRenderer(data)
	default:
		return table()
	}
}

// StandardJSONRenderer creates a standard JSON encoder.
func StandardJSONRenderer[T any](data T) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to JSON: %w", err)
	}

	return nil
}

// StandardYAMLRenderer creates a standard YAML encoder.
func StandardYAMLRenderer[T any](data T) error {
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(defaultJSONIndent)

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to YAML: %w", err)
	}

	return nil
}

// ParseRecordData decodes a record body from inline JSON or from a JSON or YAML file.
func ParseRecordData(data, file string) (map[string]interface{}, error) {
	var (
		raw    []byte
		isYAML bool
	)

	switch {
	case data != "":
		raw = []byte(data)
	case file != "":
		// #nosec G304 -- reading a file the user named is the point of --file
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		raw = content
		ext := strings.ToLower(filepath.Ext(file))
		isYAML = ext == ".yml" || ext == ".yaml"
	default:
		return nil, ErrRecordDataRequired
	}

	var (
		record map[string]interface{}
		err    error
	)

	if isYAML {
		err = yaml.Unmarshal(raw, &record)
	} else {
		err = json.Unmarshal(raw, &record)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAnObject, err)
	}

	if record == nil {
		return nil, ErrNotAnObject
	}

	return record, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}

	return t.Local().Format(dateTimeLayout)
}

func derefString(value *string) string {
	if value == nil || *value == "" {
		return NotAvailable
	}

	return *value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}

func newPropertyTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	return table
}

func renderTable(table *tablewriter.Table) error {
	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// runWithClient creates a logged-in client, runs fn and closes the client.
func runWithClient(cmd *cobra.Command, fn func(ctx context.Context, client copepod.Client) error) error {
	ctx := cmd.Context()

	client, err := CreateClient(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = client.Close() }()

	err = requireLogin(client)
	if err != nil {
		return err
	}

	return fn(ctx, client)
}

// DeleteConfig describes a delete subcommand.
type DeleteConfig struct {
	Use        string
	Short      string
	EntityType string
	Args       cobra.PositionalArgs
	Scope      func(cmd *cobra.Command) ([]string, error)
	DeleteFunc func(ctx context.Context, client copepod.Client, scope, args []string) error
}

// createDeleteCommand builds a delete subcommand that asks for confirmation unless --force is set.
func createDeleteCommand(config DeleteConfig) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   config.Use,
		Short: config.Short,
		Long:  config.Short,
		Args:  config.Args,
		RunE: func(cmd *cobra.Command, args []string) error {
			var scope []string

			if config.Scope != nil {
				resolved, err := config.Scope(cmd)
				if err != nil {
					return err
				}

				scope = resolved
			}

			target := args[len(args)-1]
			if !force && !confirm(fmt.Sprintf("Really delete %s %s? [y/N] ", config.EntityType, target)) {
				_, _ = fmt.Fprintln(os.Stdout, "Delete cancelled")

				return nil
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				err := config.DeleteFunc(ctx, client, scope, args)
				if err != nil {
					return fmt.Errorf("failed to delete %s: %w", config.EntityType, err)
				}

				_, _ = fmt.Fprintf(os.Stdout, "Deleted %s %s\n", config.EntityType, target)

				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	return cmd
}

func confirm(question string) bool {
	answer := strings.ToLower(prompt(bufio.NewReader(os.Stdin), question))

	return answer == "y" || answer == "yes"
}

func orgScope(cmd *cobra.Command) ([]string, error) {
	org, err := resolveOrg(cmd)
	if err != nil {
		return nil, err
	}

	return []string{org}, nil
}

func orgAppScope(cmd *cobra.Command) ([]string, error) {
	org, app, err := resolveOrgApp(cmd)
	if err != nil {
		return nil, err
	}

	return []string{org, app}, nil
}
