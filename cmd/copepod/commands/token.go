package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oreanmos/copepod-go/internal/auth"
	"github.com/oreanmos/copepod-go/internal/constants"
)

// TokenInfo summarizes the stored access token.
type TokenInfo struct {
	Subject   string     `json:"subject"              yaml:"subject"`
	Email     string     `json:"email,omitempty"      yaml:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired   bool       `json:"expired"              yaml:"expired"`
}

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and refresh the stored token",
		Long:  "Show the claims of the stored access token or exchange the refresh token for a new pair",
	}

	cmd.AddCommand(newTokenInfoCommand())
	cmd.AddCommand(newTokenRefreshCommand())

	return cmd
}

func newTokenInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the stored access token's claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			pair := client.Credentials().Get()
			if pair == nil {
				return constants.ErrNotAuthenticated
			}

			claims, err := auth.DecodeClaims(pair.Token)
			if err != nil {
				return fmt.Errorf("failed to decode token: %w", err)
			}

			info := TokenInfo{
				Expired: client.Credentials().IsExpired(),
			}
			info.Subject, _ = claims.GetSubject()
			info.Email, _ = claims["email"].(string)

			expiresAt, err := claims.GetExpirationTime()
			if err == nil && expiresAt != nil {
				info.ExpiresAt = &expiresAt.Time
				info.Expired = !expiresAt.After(time.Now())
			}

			return renderOutput(info, func() error {
				table := newPropertyTable()
				_ = table.Append("Subject", firstNonEmpty(info.Subject, NotAvailable))
				_ = table.Append("Email", firstNonEmpty(info.Email, NotAvailable))

				expires := NotAvailable
				if info.ExpiresAt != nil {
					expires = formatTime(*info.ExpiresAt)
				}

				_ = table.Append("Expires", expires)
				_ = table.Append("Expired", fmt.Sprintf("%t", info.Expired))

				return renderTable(table)
			})
		},
	}
}

func newTokenRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			err = requireLogin(client)
			if err != nil {
				return err
			}

			authResp, err := client.Auth().Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to refresh token: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Token refreshed for %s\n", authResp.User.Email)

			return nil
		},
	}
}
