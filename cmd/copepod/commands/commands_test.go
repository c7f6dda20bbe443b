package commands_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oreanmos/copepod-go/cmd/copepod/commands"
)

func subcommandNames(cmd *cobra.Command) []string {
	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	return names
}

func TestCommandGroups(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cmd         *cobra.Command
		use         string
		subcommands []string
	}{
		{
			name:        "orgs",
			cmd:         commands.NewOrgsCommand(),
			use:         "orgs",
			subcommands: []string{"list", "get", "create", "update", "delete", "members"},
		},
		{
			name:        "apps",
			cmd:         commands.NewAppsCommand(),
			use:         "apps",
			subcommands: []string{"list", "get", "create", "update", "delete", "keys"},
		},
		{
			name:        "collections",
			cmd:         commands.NewCollectionsCommand(),
			use:         "collections",
			subcommands: []string{"list", "get", "delete"},
		},
		{
			name:        "records",
			cmd:         commands.NewRecordsCommand(),
			use:         "records",
			subcommands: []string{"list", "get", "create", "update", "delete", "import"},
		},
		{
			name:        "files",
			cmd:         commands.NewFilesCommand(),
			use:         "files",
			subcommands: []string{"upload", "download", "sign", "delete"},
		},
		{
			name:        "events",
			cmd:         commands.NewEventsCommand(),
			use:         "events",
			subcommands: []string{"subscribe"},
		},
		{
			name:        "config",
			cmd:         commands.NewConfigCommand(),
			use:         "config",
			subcommands: []string{"show", "set", "unset"},
		},
		{
			name:        "token",
			cmd:         commands.NewTokenCommand(),
			use:         "token",
			subcommands: []string{"info", "refresh"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.ElementsMatch(t, tt.subcommands, subcommandNames(tt.cmd))
		})
	}
}

func TestScopedGroupsHaveOrgAndAppFlags(t *testing.T) {
	t.Parallel()

	for _, cmd := range []*cobra.Command{
		commands.NewCollectionsCommand(),
		commands.NewRecordsCommand(),
		commands.NewFilesCommand(),
		commands.NewEventsCommand(),
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup("org"), "%s --org", cmd.Use)
		assert.NotNil(t, cmd.PersistentFlags().Lookup("app"), "%s --app", cmd.Use)
	}

	apps := commands.NewAppsCommand()
	assert.NotNil(t, apps.PersistentFlags().Lookup("org"))
	assert.NotNil(t, findSubcommand(apps, "keys").PersistentFlags().Lookup("app"))
}

func TestDeleteCommandsHaveForceFlag(t *testing.T) {
	t.Parallel()

	deletes := []*cobra.Command{
		findSubcommand(commands.NewOrgsCommand(), "delete"),
		findSubcommand(commands.NewAppsCommand(), "delete"),
		findSubcommand(commands.NewCollectionsCommand(), "delete"),
		findSubcommand(commands.NewRecordsCommand(), "delete"),
		findSubcommand(commands.NewFilesCommand(), "delete"),
	}

	for _, cmd := range deletes {
		require.NotNil(t, cmd)

		forceFlag := cmd.Flags().Lookup("force")
		require.NotNil(t, forceFlag, cmd.Use)
		assert.Equal(t, "f", forceFlag.Shorthand)
		assert.Equal(t, "false", forceFlag.DefValue)
		assert.NotNil(t, cmd.Args)
	}
}

func TestRecordsListCommand(t *testing.T) {
	t.Parallel()

	cmd := findSubcommand(commands.NewRecordsCommand(), "list")
	require.NotNil(t, cmd)
	assert.Equal(t, "list COLLECTION", cmd.Use)

	for _, flagName := range []string{"filter", "sort", "expand", "fields", "page", "per-page", "all"} {
		assert.NotNil(t, cmd.Flags().Lookup(flagName), "Flag %s should exist", flagName)
	}

	assert.Equal(t, "50", cmd.Flags().Lookup("per-page").DefValue)
}

func TestLoginCommand(t *testing.T) {
	t.Parallel()

	cmd := commands.NewLoginCommand()
	assert.Equal(t, "login", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	for _, flagName := range []string{"api-endpoint", "email", "password", "mfa-code", "recovery-code"} {
		assert.NotNil(t, cmd.Flags().Lookup(flagName), "Flag %s should exist", flagName)
	}
}

func TestEventsSubscribeCommand(t *testing.T) {
	t.Parallel()

	cmd := findSubcommand(commands.NewEventsCommand(), "subscribe")
	require.NotNil(t, cmd)
	assert.Equal(t, "", cmd.Flags().Lookup("nats-url").DefValue)
	assert.Equal(t, "copepod.events", cmd.Flags().Lookup("subject").DefValue)
}
