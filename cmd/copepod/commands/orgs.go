package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// NewOrgsCommand creates the organizations command group.
func NewOrgsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orgs",
		Aliases: []string{"organizations", "org"},
		Short:   "Manage organizations",
		Long:    "List, create, update, and delete Copepod organizations and their members",
	}

	cmd.AddCommand(newOrgsListCommand())
	cmd.AddCommand(newOrgsGetCommand())
	cmd.AddCommand(newOrgsCreateCommand())
	cmd.AddCommand(newOrgsUpdateCommand())
	cmd.AddCommand(newOrgsDeleteCommand())
	cmd.AddCommand(newOrgsMembersCommand())

	return cmd
}

func newOrgsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		Long:  "List all organizations the user belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				orgs, err := client.Orgs().List(ctx)
				if err != nil {
					return fmt.Errorf("failed to list organizations: %w", err)
				}

				return renderOutput(orgs.Items, func() error {
					return renderOrgTable(orgs.Items)
				})
			})
		},
	}
}

func renderOrgTable(orgs []copepod.Org) error {
	if len(orgs) == 0 {
		_, _ = os.Stdout.WriteString("No organizations found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "ID", "Slug", "Created")

	for _, org := range orgs {
		_ = table.Append(org.Name, org.ID, derefString(org.Slug), formatTime(org.CreatedAt))
	}

	return renderTable(table)
}

func renderOrgDetails(org *copepod.Org) error {
	return renderOutput(org, func() error {
		table := newPropertyTable()
		_ = table.Append("Name", org.Name)
		_ = table.Append("ID", org.ID)
		_ = table.Append("Slug", derefString(org.Slug))
		_ = table.Append("Created", formatTime(org.CreatedAt))
		_ = table.Append("Updated", formatTime(org.UpdatedAt))

		return renderTable(table)
	})
}

func newOrgsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ORG_ID",
		Short: "Get organization details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				org, err := client.Orgs().Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get organization: %w", err)
				}

				return renderOrgDetails(org)
			})
		},
	}
}

func newOrgsCreateCommand() *cobra.Command {
	var slug string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := &copepod.OrgCreateRequest{Name: args[0]}
			if slug != "" {
				request.Slug = &slug
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				org, err := client.Orgs().Create(ctx, request)
				if err != nil {
					return fmt.Errorf("failed to create organization: %w", err)
				}

				return renderOrgDetails(org)
			})
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "URL slug of the organization")

	return cmd
}

func newOrgsUpdateCommand() *cobra.Command {
	var name, slug string

	cmd := &cobra.Command{
		Use:   "update ORG_ID",
		Short: "Update an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := &copepod.OrgUpdateRequest{}
			if cmd.Flags().Changed("name") {
				request.Name = &name
			}

			if cmd.Flags().Changed("slug") {
				request.Slug = &slug
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				org, err := client.Orgs().Update(ctx, args[0], request)
				if err != nil {
					return fmt.Errorf("failed to update organization: %w", err)
				}

				return renderOrgDetails(org)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new organization name")
	cmd.Flags().StringVar(&slug, "slug", "", "new organization slug")

	return cmd
}

func newOrgsDeleteCommand() *cobra.Command {
	return createDeleteCommand(DeleteConfig{
		Use:        "delete ORG_ID",
		Short:      "Delete an organization",
		EntityType: "organization",
		Args:       cobra.ExactArgs(1),
		DeleteFunc: func(ctx context.Context, client copepod.Client, _, args []string) error {
			return client.Orgs().Delete(ctx, args[0])
		},
	})
}

func newOrgsMembersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage organization members",
	}
	addOrgFlag(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List organization members",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := resolveOrg(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				members, err := client.Orgs().ListMembers(ctx, org)
				if err != nil {
					return fmt.Errorf("failed to list members: %w", err)
				}

				return renderOutput(members.Items, func() error {
					table := tablewriter.NewWriter(os.Stdout)
					table.Header("User ID", "Email", "Name", "Role", "Joined")

					for _, member := range members.Items {
						_ = table.Append(member.UserID, derefString(member.Email), derefString(member.Name),
							member.Role, formatTime(member.CreatedAt))
					}

					return renderTable(table)
				})
			})
		},
	})

	cmd.AddCommand(newOrgsAddMemberCommand())

	cmd.AddCommand(&cobra.Command{
		Use:   "set-role USER_ID ROLE",
		Short: "Change a member's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := resolveOrg(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				_, err := client.Orgs().UpdateMember(ctx, org, args[0], &copepod.OrgMemberUpdateRequest{Role: args[1]})
				if err != nil {
					return fmt.Errorf("failed to update member: %w", err)
				}

				_, _ = fmt.Fprintf(os.Stdout, "Set role of %s to %s\n", args[0], args[1])

				return nil
			})
		},
	})

	cmd.AddCommand(createDeleteCommand(DeleteConfig{
		Use:        "remove USER_ID",
		Short:      "Remove a member from the organization",
		EntityType: "member",
		Args:       cobra.ExactArgs(1),
		Scope:      orgScope,
		DeleteFunc: func(ctx context.Context, client copepod.Client, scope, args []string) error {
			return client.Orgs().RemoveMember(ctx, scope[0], args[0])
		},
	}))

	return cmd
}

func newOrgsAddMemberCommand() *cobra.Command {
	var userID, email, role string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a member by user ID or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" && email == "" {
				return ErrMemberRequired
			}

			org, err := resolveOrg(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				member, err := client.Orgs().AddMember(ctx, org, &copepod.OrgMemberRequest{
					UserID: userID,
					Email:  email,
					Role:   role,
				})
				if err != nil {
					return fmt.Errorf("failed to add member: %w", err)
				}

				_, _ = fmt.Fprintf(os.Stdout, "Added %s as %s\n", member.UserID, member.Role)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "ID of the user to add")
	cmd.Flags().StringVar(&email, "email", "", "email of the user to add")
	cmd.Flags().StringVar(&role, "role", "member", "role of the new member")

	return cmd
}
