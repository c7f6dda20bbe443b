package commands

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oreanmos/copepod-go/internal/constants"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// NewFilesCommand creates the files command group.
func NewFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"file"},
		Short:   "Transfer record files",
		Long:    "Upload files to record fields, download them, and create signed download URLs",
	}
	addOrgAppFlags(cmd)

	cmd.AddCommand(newFilesUploadCommand())
	cmd.AddCommand(newFilesDownloadCommand())
	cmd.AddCommand(newFilesSignCommand())
	cmd.AddCommand(createDeleteCommand(DeleteConfig{
		Use:        "delete COLLECTION RECORD_ID FILENAME",
		Short:      "Delete a file attached to a record",
		EntityType: "file",
		Args:       cobra.ExactArgs(3),
		Scope:      orgAppScope,
		DeleteFunc: func(ctx context.Context, client copepod.Client, scope, args []string) error {
			return client.Files().Delete(ctx, scope[0], scope[1], args[0], args[1], args[2])
		},
	}))

	return cmd
}

func newFilesUploadCommand() *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload COLLECTION RECORD_ID FIELD PATH",
		Short: "Upload a file to a record field",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, app, err := resolveOrgApp(cmd)
			if err != nil {
				return err
			}

			// #nosec G304 -- uploading the file the user named
			data, err := os.ReadFile(args[3])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[3], err)
			}

			upload := &copepod.FileUpload{
				Collection:  args[0],
				RecordID:    args[1],
				Field:       args[2],
				Filename:    filepath.Base(args[3]),
				ContentType: firstNonEmpty(contentType, DetectContentType(args[3], data)),
				Data:        data,
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				record, err := client.Files().Upload(ctx, org, app, upload)
				if err != nil {
					return fmt.Errorf("failed to upload file: %w", err)
				}

				return renderRecordDetails(record)
			})
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "content type of the file (detected when omitted)")

	return cmd
}

// DetectContentType picks a content type from the file extension, falling back to sniffing the data.
func DetectContentType(path string, data []byte) string {
	byExtension := mime.TypeByExtension(filepath.Ext(path))
	if byExtension != "" {
		return byExtension
	}

	return http.DetectContentType(data)
}

func newFilesDownloadCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download COLLECTION RECORD_ID FILENAME",
		Short: "Download a file attached to a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, app, err := resolveOrgApp(cmd)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				data, err := client.Files().Download(ctx, org, app, args[0], args[1], args[2])
				if err != nil {
					return fmt.Errorf("failed to download file: %w", err)
				}

				target := firstNonEmpty(output, filepath.Base(args[2]))

				err = os.WriteFile(target, data, constants.DownloadFilePerm)
				if err != nil {
					return fmt.Errorf("failed to write %s: %w", target, err)
				}

				_, _ = fmt.Fprintf(os.Stdout, "Saved %d bytes to %s\n", len(data), target)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "file", "F", "", "path to write to (defaults to FILENAME)")

	return cmd
}

func newFilesSignCommand() *cobra.Command {
	var expiresIn int64

	cmd := &cobra.Command{
		Use:   "sign KEY",
		Short: "Create a signed download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, app, err := resolveOrgApp(cmd)
			if err != nil {
				return err
			}

			request := &copepod.SignedURLRequest{Key: args[0]}
			if expiresIn > 0 {
				request.ExpiresIn = &expiresIn
			}

			return runWithClient(cmd, func(ctx context.Context, client copepod.Client) error {
				signed, err := client.Files().CreateSignedURL(ctx, app, request)
				if err != nil {
					return fmt.Errorf("failed to sign URL: %w", err)
				}

				return renderOutput(signed, func() error {
					table := newPropertyTable()
					_ = table.Append("URL", signed.URL)
					_ = table.Append("Expires", derefString(signed.ExpiresAt))

					return renderTable(table)
				})
			})
		},
	}

	cmd.Flags().Int64Var(&expiresIn, "expires-in", 0, "lifetime of the URL in seconds")

	return cmd
}
