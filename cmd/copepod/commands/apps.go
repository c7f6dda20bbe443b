package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// NewAppsCommand creates the apps command group.
func NewAppsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apps",
		Aliases: []string{"applications", "app"},
		Short:   "Manage applications",
		Long:    "List, create, update, and delete applications of an organization and manage their API keys",
	}
	addOrgFlag(cmd)

	cmd.AddCommand(newAppsListCommand())
	cmd.AddCommand(newAppsGetCommand())
	cmd.AddCommand(newAppsCreateCommand())
	cmd.AddCommand(newAppsUpdateCommand())
	cmd.AddCommand(newAppsDeleteCommand())
	cmd.AddCommand(newAppsKeysCommand())

	return cmd
}

func newAppsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := resolveOrg(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				apps, err := client.Apps().List(ctx, org)
				if err != nil {
					return fmt.Errorf("failed to list apps: %w", err)
				}

				return renderOutput(apps.Items, func() error {
					if len(apps.Items) == 0 {
						_, _ = os.Stdout.WriteString("No apps found\n")

						return nil
					}

					table := tablewriter.NewWriter(os.Stdout)
					table.Header("Name", "ID", "Slug", "Created")

					for _, app := range apps.Items {
						_ = table.Append(app.Name, app.ID, derefString(app.Slug), formatTime(app.CreatedAt))
					}

					return renderTable(table)
				})
			})
		},
	}
}

func renderAppDetails(app *copepod.App) error {
	return renderOutput(app, func() error {
		table := newPropertyTable()
		_ = table.Append("Name", app.Name)
		_ = table.Append("ID", app.ID)
		_ = table.Append("Slug", derefString(app.Slug))
		_ = table.Append("Org", app.OrgID)
		_ = table.Append("Created", formatTime(app.CreatedAt))
		_ = table.Append("Updated", formatTime(app.UpdatedAt))

		return renderTable(table)
	})
}

func newAppsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get APP_ID",
		Short: "Get application details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := resolveOrg(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				app, err := client.Apps().Get(ctx, org, args[0])
				if err != nil {
					return fmt.Errorf("failed to get app: %w", err)
				}

				return renderAppDetails(app)
			})
		},
	}
}

func newAppsCreateCommand() *cobra.Command {
	var slug string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := resolveOrg(cmd)
			if err != nil {
				return err
			}

			request := &copepod.AppCreateRequest{Name: args[0]}
			if slug != "" {
				request.Slug = &slug
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				app, err := client.Apps().Create(ctx, org, request)
				if err != nil {
					return fmt.Errorf("failed to create app: %w", err)
				}

				return renderAppDetails(app)
			})
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "URL slug of the application")

	return cmd
}

func newAppsUpdateCommand() *cobra.Command {
	var name, slug string

	cmd := &cobra.Command{
		Use:   "update APP_ID",
		Short: "Update an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := resolveOrg(cmd)
			if err != nil {
				return err
			}

			request := &copepod.AppUpdateRequest{}
			if cmd.Flags().Changed("name") {
				request.Name = &name
			}

			if cmd.Flags().Changed("slug") {
				request.Slug = &slug
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				app, err := client.Apps().Update(ctx, org, args[0], request)
				if err != nil {
					return fmt.Errorf("failed to update app: %w", err)
				}

				return renderAppDetails(app)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new application name")
	cmd.Flags().StringVar(&slug, "slug", "", "new application slug")

	return cmd
}

func newAppsDeleteCommand() *cobra.Command {
	return createDeleteCommand(DeleteConfig{
		Use:        "delete APP_ID",
		Short:      "Delete an application",
		EntityType: "app",
		Args:       cobra.ExactArgs(1),
		Scope:      orgScope,
		DeleteFunc: func(ctx context.Context, client copepod.Client, scope, args []string) error {
			return client.Apps().Delete(ctx, scope[0], args[0])
		},
	})
}

func newAppsKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage application API keys",
	}
	cmd.PersistentFlags().String("app", "", "app ID (defaults to the configured app)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, app, err := resolveOrgApp(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				keys, err := client.Apps().ListAPIKeys(ctx, org, app)
				if err != nil {
					return fmt.Errorf("failed to list API keys: %w", err)
				}

				return renderOutput(keys.Items, func() error {
					table := tablewriter.NewWriter(os.Stdout)
					table.Header("Name", "ID", "Prefix", "Scopes", "Created")

					for _, key := range keys.Items {
						_ = table.Append(key.Name, key.ID, derefString(key.KeyPrefix),
							strings.Join(key.Scopes, ","), formatTime(key.CreatedAt))
					}

					return renderTable(table)
				})
			})
		},
	})

	cmd.AddCommand(newAppsKeysCreateCommand())

	cmd.AddCommand(createDeleteCommand(DeleteConfig{
		Use:        "revoke KEY_ID",
		Short:      "Revoke an API key",
		EntityType: "API key",
		Args:       cobra.ExactArgs(1),
		Scope:      orgAppScope,
		DeleteFunc: func(ctx context.Context, client copepod.Client, scope, args []string) error {
			return client.Apps().RevokeAPIKey(ctx, scope[0], scope[1], args[0])
		},
	}))

	return cmd
}

func newAppsKeysCreateCommand() *cobra.Command {
	var scopes []string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an API key",
		Long:  "Create an API key. The key itself is only shown once.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, app, err := resolveOrgApp(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				key, err := client.Apps().CreateAPIKey(ctx, org, app, &copepod.APIKeyCreateRequest{
					Name:   args[0],
					Scopes: scopes,
				})
				if err != nil {
					return fmt.Errorf("failed to create API key: %w", err)
				}

				return renderOutput(key, func() error {
					table := newPropertyTable()
					_ = table.Append("Name", key.Name)
					_ = table.Append("ID", key.ID)
					_ = table.Append("Key", derefString(key.Key))
					_ = table.Append("Scopes", strings.Join(key.Scopes, ","))

					return renderTable(table)
				})
			})
		},
	}

	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scope granted to the key (repeatable)")

	return cmd
}
