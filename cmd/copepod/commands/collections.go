package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// NewCollectionsCommand creates the collections command group.
func NewCollectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "col"},
		Short:   "Inspect collections",
		Long:    "List collections of an application and show their fields",
	}
	addOrgAppFlags(cmd)

	cmd.AddCommand(newCollectionsListCommand())
	cmd.AddCommand(newCollectionsGetCommand())
	cmd.AddCommand(createDeleteCommand(DeleteConfig{
		Use:        "delete COLLECTION_ID",
		Short:      "Delete a collection and all of its records",
		EntityType: "collection",
		Args:       cobra.ExactArgs(1),
		Scope:      orgAppScope,
		DeleteFunc: func(ctx context.Context, client copepod.Client, scope, args []string) error {
			return client.Collections().Delete(ctx, scope[0], scope[1], args[0])
		},
	}))

	return cmd
}

func newCollectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, app, err := resolveOrgApp(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				collections, err := client.Collections().List(ctx, org, app)
				if err != nil {
					return fmt.Errorf("failed to list collections: %w", err)
				}

				return renderOutput(collections.Items, func() error {
					if len(collections.Items) == 0 {
						_, _ = os.Stdout.WriteString("No collections found\n")

						return nil
					}

					table := tablewriter.NewWriter(os.Stdout)
					table.Header("Name", "ID", "Type", "Fields", "Updated")

					for _, collection := range collections.Items {
						_ = table.Append(collection.Name, collection.ID, derefString(collection.Type),
							strconv.Itoa(len(collection.Fields)), formatTime(collection.UpdatedAt))
					}

					return renderTable(table)
				})
			})
		},
	}
}

func newCollectionsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get COLLECTION_ID",
		Short: "Show a collection and its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, app, err := resolveOrgApp(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				collection, err := client.Collections().Get(ctx, org, app, args[0])
				if err != nil {
					return fmt.Errorf("failed to get collection: %w", err)
				}

				return renderOutput(collection, func() error {
					_, _ = fmt.Fprintf(os.Stdout, "%s (%s)\n", collection.Name, collection.ID)

					table := tablewriter.NewWriter(os.Stdout)
					table.Header("Field", "Type", "Required", "Unique")

					for _, field := range collection.Fields {
						_ = table.Append(field.Name, field.Type, strconv.FormatBool(field.Required), strconv.FormatBool(field.Unique))
					}

					return renderTable(table)
				})
			})
		},
	}
}
