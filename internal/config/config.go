// Package config loads and validates shiplabel settings and converts them
// into the configuration types of the processing packages.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/shiplabel/internal/barcode"
	"github.com/MeKo-Tech/shiplabel/internal/codes"
	"github.com/MeKo-Tech/shiplabel/internal/inputs"
	"github.com/MeKo-Tech/shiplabel/internal/ocr"
	"github.com/MeKo-Tech/shiplabel/internal/pdf"
	"github.com/MeKo-Tech/shiplabel/internal/recognize"
	"github.com/MeKo-Tech/shiplabel/internal/workbook"
)

// Renderer backends.
const (
	BackendPoppler = "poppler"
	BackendExtract = "extract"
)

const (
	minDPI = 72
	maxDPI = 1200
)

// DefaultTemplatePath is the template file name looked up in the working directory.
const DefaultTemplatePath = "Amazon_Tracking_Uploads_Template.xlsx"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	layout := workbook.DefaultLayout()
	rc := recognize.DefaultConfig()

	formats := make([]string, len(barcode.DefaultFormats))
	for i, f := range barcode.DefaultFormats {
		formats[i] = f.String()
	}

	cfg := Config{
		LogLevel: "info",
		Verbose:  false,
		Inputs: InputsConfig{
			Dir:               ".",
			BoxPrefix:         inputs.DefaultPrefixes.Boxes,
			LabelPrefix:       inputs.DefaultPrefixes.Labels,
			ShipmentSeparator: "-",
		},
		Render: RenderConfig{
			Backend:      BackendPoppler,
			DPI:          pdf.DefaultDPI,
			PdftoppmPath: "pdftoppm",
			TextLayer:    true,
		},
		Recognition: RecognitionConfig{
			RegionTimeout: rc.RegionTimeout,
			Barcode: BarcodeConfig{
				Formats:   formats,
				TryHarder: true,
			},
		},
		Template: TemplateConfig{
			Path:           DefaultTemplatePath,
			ShipmentRow:    layout.ShipmentRow,
			ShipmentColumn: layout.ShipmentColumn,
			StartRow:       layout.StartRow,
			BoxColumn:      layout.BoxColumn,
			TrackingColumn: layout.TrackingColumn,
			OutputSuffix:   layout.OutputSuffix,
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      120,
			ShutdownTimeout: 10,
		},
	}

	for _, spec := range rc.Regions {
		region := fromRegionSpec(spec)
		switch spec.Field {
		case recognize.FieldBoxID:
			cfg.Recognition.BoxID = region
		case recognize.FieldTracking:
			cfg.Recognition.Tracking = region
		}
	}
	return cfg
}

func fromRegionSpec(spec recognize.RegionSpec) RegionConfig {
	return RegionConfig{
		Bounds:       spec.Bounds,
		Pattern:      spec.Extractor.Family().Pattern,
		Whitelist:    spec.OCR.Whitelist,
		Mode:         spec.OCR.Mode.String(),
		Binarize:     spec.OCR.Binarize,
		OCRFullPage:  spec.OCRFullPage,
		RequireMatch: spec.RequireMatch,
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	validBackends := []string{BackendPoppler, BackendExtract}
	if !slices.Contains(validBackends, c.Render.Backend) {
		return fmt.Errorf("invalid render backend: %s (must be one of: %s)", c.Render.Backend, strings.Join(validBackends, ", "))
	}
	if c.Render.DPI < minDPI || c.Render.DPI > maxDPI {
		return fmt.Errorf("invalid render dpi: %d (must be between %d and %d)", c.Render.DPI, minDPI, maxDPI)
	}

	if c.Inputs.BoxPrefix == "" || c.Inputs.LabelPrefix == "" {
		return fmt.Errorf("input prefixes must not be empty")
	}
	if strings.EqualFold(c.Inputs.BoxPrefix, c.Inputs.LabelPrefix) {
		return fmt.Errorf("input prefixes must differ, both are %q", c.Inputs.BoxPrefix)
	}

	if _, err := c.ToRecognizeConfig(); err != nil {
		return err
	}
	if _, err := c.ToBarcodeOptions(); err != nil {
		return err
	}
	if err := c.ToLayout().Validate(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	return nil
}

// ToRecognizeConfig converts the recognition section into recognize.Config,
// compiling each region's pattern.
func (c *Config) ToRecognizeConfig() (recognize.Config, error) {
	box, err := toRegionSpec(recognize.FieldBoxID, codes.BoxIDFamily.Name, c.Recognition.BoxID)
	if err != nil {
		return recognize.Config{}, err
	}
	tracking, err := toRegionSpec(recognize.FieldTracking, codes.TrackingFamily.Name, c.Recognition.Tracking)
	if err != nil {
		return recognize.Config{}, err
	}

	cfg := recognize.Config{
		Regions:       []recognize.RegionSpec{box, tracking},
		RegionTimeout: c.Recognition.RegionTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return recognize.Config{}, fmt.Errorf("invalid recognition config: %w", err)
	}
	return cfg, nil
}

func toRegionSpec(field recognize.Field, family string, rc RegionConfig) (recognize.RegionSpec, error) {
	ext, err := codes.NewExtractor(codes.Family{Name: family, Pattern: rc.Pattern})
	if err != nil {
		return recognize.RegionSpec{}, fmt.Errorf("recognition.%s.pattern: %w", field, err)
	}
	mode, err := ocr.ParseMode(rc.Mode)
	if err != nil {
		return recognize.RegionSpec{}, fmt.Errorf("recognition.%s.mode: %w", field, err)
	}
	return recognize.RegionSpec{
		Field:     field,
		Bounds:    rc.Bounds,
		Extractor: ext,
		OCR: ocr.Options{
			Whitelist: rc.Whitelist,
			Mode:      mode,
			Binarize:  rc.Binarize,
		},
		OCRFullPage:  rc.OCRFullPage,
		RequireMatch: rc.RequireMatch,
	}, nil
}

// ToBarcodeOptions converts the barcode section into barcode.Options.
func (c *Config) ToBarcodeOptions() (barcode.Options, error) {
	opts := barcode.Options{TryHarder: c.Recognition.Barcode.TryHarder}
	for _, name := range c.Recognition.Barcode.Formats {
		f, ok := barcode.ParseFormat(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return barcode.Options{}, fmt.Errorf("recognition.barcode.formats: unknown format %q", name)
		}
		opts.Formats = append(opts.Formats, f)
	}
	return opts, nil
}

// ToLayout converts the template section into workbook.Layout.
func (c *Config) ToLayout() workbook.Layout {
	return workbook.Layout{
		ShipmentRow:    c.Template.ShipmentRow,
		ShipmentColumn: c.Template.ShipmentColumn,
		StartRow:       c.Template.StartRow,
		BoxColumn:      c.Template.BoxColumn,
		TrackingColumn: c.Template.TrackingColumn,
		OutputSuffix:   c.Template.OutputSuffix,
	}
}

// ToPrefixes returns the input discovery prefixes.
func (c *Config) ToPrefixes() inputs.Prefixes {
	return inputs.Prefixes{Boxes: c.Inputs.BoxPrefix, Labels: c.Inputs.LabelPrefix}
}

// ServerTimeout returns the per-request processing timeout.
func (c *Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSec) * time.Second
}
