package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oreanmos/copepod-go/cmd/copepod/commands"
	"github.com/oreanmos/copepod-go/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "copepod",
	Short: "Copepod platform CLI",
	Long: `A command-line interface for the Copepod platform.

It manages organizations, apps, collections, records and files, and can
follow realtime record events.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if viper.GetBool("verbose") {
			level = zerolog.DebugLevel
		}

		commands.SetLogger(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).
			With().
			Timestamp().
			Logger())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.copepod/config.yml)")
	rootCmd.PersistentFlags().StringP("api", "a", "", "API endpoint URL")
	rootCmd.PersistentFlags().StringP("token", "t", "", "access token")
	rootCmd.PersistentFlags().StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Duration("timeout", constants.ShortHTTPTimeout, "overall timeout of a single API call")

	// Bind flags to viper. The config file's "token" key holds the stored pair,
	// so --token binds to access_token.
	bindings := map[string]string{
		"config":       "config",
		"api":          "api",
		"access_token": "token",
		"output":       "output",
		"verbose":      "verbose",
		"timeout":      "timeout",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewWhoamiCommand())
	rootCmd.AddCommand(commands.NewTokenCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewOrgsCommand())
	rootCmd.AddCommand(commands.NewAppsCommand())
	rootCmd.AddCommand(commands.NewCollectionsCommand())
	rootCmd.AddCommand(commands.NewRecordsCommand())
	rootCmd.AddCommand(commands.NewFilesCommand())
	rootCmd.AddCommand(commands.NewEventsCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.copepod/config.yml
		viper.AddConfigPath(filepath.Join(home, ".copepod"))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// COPEPOD_API, COPEPOD_ACCESS_TOKEN, ...
	viper.SetEnvPrefix("COPEPOD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
