package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JohnyZhand/CoraBooks/client"
	"github.com/JohnyZhand/CoraBooks/config"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [flags] <file> [file2] ...",
	Short: "Upload books to a running server",
	Long: `Upload books through a running server's API.

Each file is declared with an upload intent, sent to the returned ticket URL
and committed. Files are uploaded one after another; a failed file does not
stop the rest.

Examples:
  corabooks upload dune.pdf
  corabooks upload --endpoint https://books.example.com --title "Dune" dune.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var (
	clientEndpoint string
	uploadTitle  string
)

var errUploadFailed = errors.New("one or more uploads failed")

func init() {
	uploadCmd.Flags().StringVar(&clientEndpoint, "endpoint", "", "server URL (default: server.public_url)")
	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "display name, only valid with a single file")

	downloadCmd.Flags().StringVar(&clientEndpoint, "endpoint", "", "server URL (default: server.public_url)")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", `output path, "-" for stdout (default: name sent by the server)`)

	rootCmd.AddCommand(uploadCmd, downloadCmd)
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return nil, err
	}

	endpoint := clientEndpoint
	if endpoint == "" {
		endpoint = cfg.Server.PublicURL
	}

	return client.New(&client.Config{Endpoint: endpoint, AdminKey: cfg.Admin.Key})
}

func runUpload(cmd *cobra.Command, args []string) error {
	if uploadTitle != "" && len(args) > 1 {
		return errors.New("--title can only be used with a single file")
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := false
	for _, path := range args {
		result, err := c.Upload(cmd.Context(), client.UploadOptions{LocalPath: path, Filename: uploadTitle})
		if err != nil {
			failed = true
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%d\n", result.ID, path, result.Size)
	}

	if failed {
		return errUploadFailed
	}
	return nil
}

var downloadCmd = &cobra.Command{
	Use:   "download [flags] <id>",
	Short: "Download a book from a running server",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

var downloadOutput string

func runDownload(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	result, body, err := c.Download(cmd.Context(), client.DownloadOptions{ID: args[0], LocalPath: downloadOutput})
	if err != nil {
		return err
	}

	if body != nil {
		defer func() { _ = body.Close() }()
		_, err = io.Copy(os.Stdout, body)
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "saved %s (%d bytes)\n", result.LocalPath, result.Size)
	return nil
}
