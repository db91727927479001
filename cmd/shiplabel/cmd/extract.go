package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/shiplabel/internal/document"
	"github.com/MeKo-Tech/shiplabel/internal/pipeline"
	"github.com/MeKo-Tech/shiplabel/internal/records"
	"github.com/spf13/cobra"
)

// extractCmd represents the extract command.
var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Print the codes recognized on every page of one document",
	Long: `Walk a single document and print the box ID and tracking number found on
each page. Nothing is written; use it to check a scan before converting.

Examples:
  shiplabel extract FBA15XYZ-boxes.pdf
  shiplabel extract Labels-ups.pdf --role labels --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("role", string(document.RoleBoxes), "document role used in messages (boxes, labels)")
	extractCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	addDocumentFlags(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	role, _ := cmd.Flags().GetString("role")
	if role != string(document.RoleBoxes) && role != string(document.RoleLabels) {
		return fmt.Errorf("invalid role: %s (must be one of: boxes, labels)", role)
	}

	conv, err := pipeline.NewFromConfig(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize converter: %w", err)
	}

	recs, err := conv.Extract(cmd.Context(), document.Role(role), args[0])
	if err != nil {
		return err
	}
	return writeRecords(cmd.OutOrStdout(), recs, cfg.Output.Format)
}

// writeRecords prints page records as a text table or JSON.
func writeRecords(w io.Writer, recs []records.PageRecord, format string) error {
	if format == "json" {
		data, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	_, _ = fmt.Fprintf(w, "%-5s %-20s %-8s %-24s %s\n", "PAGE", "BOX ID", "SOURCE", "TRACKING", "SOURCE")
	for _, r := range recs {
		_, _ = fmt.Fprintf(w, "%-5d %-20s %-8s %-24s %s\n",
			r.Page, dash(r.BoxID), dash(string(r.BoxIDSource)), dash(r.Tracking), dash(string(r.TrackingSource)))
	}
	_, err := fmt.Fprintf(w, "%d pages\n", len(recs))
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
