package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JohnyZhand/CoraBooks"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List committed books",
	Long: `List committed books in stored order.

Examples:
  corabooks list
  corabooks list --json
  corabooks list --yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listJSON bool
	listYAML bool
)

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print records as JSON")
	listCmd.Flags().BoolVar(&listYAML, "yaml", false, "print records as YAML")
	listCmd.MarkFlagsMutuallyExclusive("json", "yaml")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := appFromContext(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.service.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	format := "table"
	switch {
	case listJSON:
		format = "json"
	case listYAML:
		format = "yaml"
	}

	return printRecords(cmd.OutOrStdout(), records, format)
}

// listEntry is the yaml view of a record.
type listEntry struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	FileName    string `yaml:"file_name"`
	ContentType string `yaml:"content_type"`
	Size        int64  `yaml:"size"`
	UploadedAt  string `yaml:"uploaded_at"`
	Cover       bool   `yaml:"cover"`
	Description string `yaml:"description,omitempty"`
}

func printRecords(w io.Writer, records []corabooks.FileRecord, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)

	case "yaml":
		entries := make([]listEntry, 0, len(records))
		for _, r := range records {
			entries = append(entries, listEntry{
				ID:          r.ID,
				DisplayName: r.DisplayName,
				FileName:    r.OriginalName,
				ContentType: r.ContentType,
				Size:        r.Size,
				UploadedAt:  r.UploadedAt.UTC().Format(time.RFC3339),
				Cover:       r.CoverObjectName != "",
				Description: r.Description,
			})
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()

	case "table":
		if len(records) == 0 {
			_, err := fmt.Fprintln(w, "no books")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tSIZE\tUPLOADED")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.DisplayName, r.Size, r.UploadedAt.UTC().Format(time.RFC3339))
		}
		return tw.Flush()

	default:
		return errors.New("unknown output format: " + format)
	}
}
