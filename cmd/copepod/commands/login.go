package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		apiEndpoint  string
		email        string
		password     string
		mfaCode      string
		recoveryCode string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Copepod",
		Long:  "Authenticate with email and password and store the session in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reader := bufio.NewReader(os.Stdin)

			if apiEndpoint != "" {
				viper.Set("api", apiEndpoint)
			}

			config, err := loadConfig()
			if err != nil {
				return err
			}

			email = firstNonEmpty(email, config.Email)
			if email == "" {
				email = prompt(reader, "Email: ")
			}

			if email == "" {
				return ErrEmailRequired
			}

			if password == "" {
				password, err = readPassword()
				if err != nil {
					return err
				}
			}

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			authResp, err := client.Auth().Login(ctx, email, password)

			mfaErr := &copepod.MFARequiredError{}
			if errors.As(err, &mfaErr) {
				authResp, err = completeMFA(ctx, client, reader, mfaErr.MFAToken, mfaCode, recoveryCode)
			}

			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			err = withConfig(func(config *Config) error {
				config.Email = email
				if apiEndpoint != "" {
					config.API = apiEndpoint
				}

				return nil
			})
			if err != nil {
				return err
			}

			logger.Debug().Str("user_id", authResp.User.ID).Msg("Logged in")
			_, _ = fmt.Fprintf(os.Stdout, "Logged in as %s\n", authResp.User.Email)

			return nil
		},
	}

	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "API endpoint to log in to and remember")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&mfaCode, "mfa-code", "", "one-time code for accounts with a second factor")
	cmd.Flags().StringVar(&recoveryCode, "recovery-code", "", "recovery code to use instead of a one-time code")

	return cmd
}

func completeMFA(ctx context.Context, client copepod.Client, reader *bufio.Reader, mfaToken, code, recoveryCode string) (*copepod.AuthResponse, error) {
	if recoveryCode != "" {
		return client.Auth().RecoverMFA(ctx, mfaToken, recoveryCode)
	}

	if code == "" {
		code = prompt(reader, "MFA code: ")
	}

	return client.Auth().VerifyMFA(ctx, mfaToken, code)
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of Copepod",
		Long:  "End the session on the server and remove the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			err = client.Auth().Logout(cmd.Context())
			if err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}

			_, _ = fmt.Fprintln(os.Stdout, "Logged out")

			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Long:  "Display the account the stored session belongs to",
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

			user, err := client.Auth().Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get current user: %w", err)
			}

			return renderOutput(user, func() error {
				table := newPropertyTable()
				_ = table.Append("ID", user.ID)
				_ = table.Append("Email", user.Email)
				_ = table.Append("Name", derefString(user.Name))
				_ = table.Append("Verified", fmt.Sprintf("%t", user.Verified))
				_ = table.Append("Created", formatTime(user.CreatedAt))

				return renderTable(table)
			})
		},
	}
}

func prompt(reader *bufio.Reader, label string) string {
	_, _ = fmt.Fprint(os.Stderr, label)

	line, _ := reader.ReadString('\n')

	return strings.TrimSpace(line)
}

func readPassword() (string, error) {
	_, _ = fmt.Fprint(os.Stderr, "Password: ")

	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd())) // #nosec G115 -- file descriptors fit in int
	_, _ = fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(bytePassword), nil
}
