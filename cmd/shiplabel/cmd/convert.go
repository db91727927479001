package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/shiplabel/internal/config"
	"github.com/MeKo-Tech/shiplabel/internal/inputs"
	"github.com/MeKo-Tech/shiplabel/internal/pipeline"
	"github.com/spf13/cobra"
)

// convertCmd represents the convert command.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Fill the tracking upload template from the two label PDFs",
	Long: `Read the box label document and the shipping label document, pair the
box IDs and tracking numbers by page and write <shipment id>_tracking_upload.xlsx.

Without --boxes/--labels the documents are discovered in --dir by file name
prefix (FBA* for the box labels, Labels* for the shipping labels).

Examples:
  shiplabel convert
  shiplabel convert --dir ./scans --output-dir ./out
  shiplabel convert --boxes FBA15XYZ-boxes.pdf --labels Labels-ups.pdf --strict
  shiplabel convert --format json`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("boxes", "", "box label PDF (FBA box IDs)")
	convertCmd.Flags().String("labels", "", "shipping label PDF (UPS tracking numbers)")
	convertCmd.Flags().String("dir", ".", "directory searched for the input PDFs")
	convertCmd.Flags().String("shipment-id", "", "override the shipment id derived from the box label file name")
	convertCmd.Flags().String("output-dir", ".", "directory for the written workbook")
	convertCmd.Flags().Bool("strict", false, "fail when the documents have different page counts")
	convertCmd.Flags().StringP("format", "f", "text", "summary format (text, json)")
	addDocumentFlags(convertCmd)
}

// addDocumentFlags registers the flags shared by commands that read documents.
func addDocumentFlags(cmd *cobra.Command) {
	cmd.Flags().String("template", config.DefaultTemplatePath, "spreadsheet template path")
	cmd.Flags().Int("dpi", 300, "render resolution")
	cmd.Flags().String("backend", config.BackendPoppler, "page renderer (poppler, extract)")
	cmd.Flags().String("password", "", "user password for encrypted PDFs")
	cmd.Flags().String("dump-dir", "", "write rendered pages as PNG into this directory")
}

func setStringWithFlag(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
	}
}

// commandConfig merges the changed command flags into the loaded configuration.
func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}

	setStringWithFlag(cmd, "template", &cfg.Template.Path)
	setStringWithFlag(cmd, "backend", &cfg.Render.Backend)
	setStringWithFlag(cmd, "password", &cfg.Render.Password)
	setStringWithFlag(cmd, "dump-dir", &cfg.Debug.DumpDir)
	setStringWithFlag(cmd, "format", &cfg.Output.Format)
	if cmd.Flags().Changed("dpi") {
		cfg.Render.DPI, _ = cmd.Flags().GetInt("dpi")
	}

	if cmd.Flags().Lookup("dir") != nil {
		setStringWithFlag(cmd, "dir", &cfg.Inputs.Dir)
		setStringWithFlag(cmd, "output-dir", &cfg.Output.Dir)
		if cmd.Flags().Changed("strict") {
			cfg.Merge.Strict, _ = cmd.Flags().GetBool("strict")
		}
	}

	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runConvert(cmd *cobra.Command, _ []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	pair, err := resolveInputs(cmd, cfg)
	if err != nil {
		return err
	}

	logger := slog.Default()
	conv, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize converter: %w", err)
	}
	conv.Options.ShipmentID, _ = cmd.Flags().GetString("shipment-id")
	conv.Progress = convertProgress(cmd.ErrOrStderr(), logger, cfg.Output.Format)

	res, err := conv.Run(cmd.Context(), pair)
	if err != nil {
		return err
	}
	return writeSummary(cmd.OutOrStdout(), res, cfg.Output.Format)
}

// convertProgress logs every event at debug level and, unless the summary is
// JSON, also prints page lines to w.
func convertProgress(w io.Writer, logger *slog.Logger, format string) pipeline.ProgressCallback {
	progress := pipeline.NewMultiProgressCallback(pipeline.NewLogProgressCallback(logger, slog.LevelDebug))
	if format != "json" {
		progress.Add(pipeline.NewConsoleProgressCallback(w, ""))
	}
	return progress
}

// resolveInputs uses the explicit document paths, discovering whatever is
// missing in the input directory.
func resolveInputs(cmd *cobra.Command, cfg *config.Config) (inputs.Pair, error) {
	var pair inputs.Pair
	pair.Boxes, _ = cmd.Flags().GetString("boxes")
	pair.Labels, _ = cmd.Flags().GetString("labels")
	if pair.Boxes != "" && pair.Labels != "" {
		return pair, nil
	}

	found, err := inputs.Discover(cfg.Inputs.Dir, cfg.ToPrefixes())
	if err != nil {
		return inputs.Pair{}, err
	}
	if pair.Boxes == "" {
		pair.Boxes = found.Boxes
	}
	if pair.Labels == "" {
		pair.Labels = found.Labels
	}
	return pair, nil
}

// writeSummary prints the run summary as text or JSON.
func writeSummary(w io.Writer, res *pipeline.Result, format string) error {
	if format == "json" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	_, _ = fmt.Fprintf(w, "Shipment: %s\n", res.ShipmentID)
	_, _ = fmt.Fprintf(w, "Rows written: %d\n", res.RowsWritten)
	_, _ = fmt.Fprintf(w, "Empty box IDs: %d\n", res.EmptyBoxIDs)
	_, _ = fmt.Fprintf(w, "Empty tracking numbers: %d\n", res.EmptyTracking)
	if res.Merge.Mismatch() {
		_, _ = fmt.Fprintf(w, "Page mismatch: %d box pages, %d label pages\n",
			res.Merge.BoxPages, res.Merge.TrackingPages)
	}
	_, err := fmt.Fprintf(w, "Saved: %s\n", res.OutputPath)
	return err
}
