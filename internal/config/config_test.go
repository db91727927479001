package config

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/shiplabel/internal/barcode"
	"github.com/MeKo-Tech/shiplabel/internal/ocr"
	"github.com/MeKo-Tech/shiplabel/internal/recognize"
)

const infoLevel = "info"

// TestDefaultConfig verifies that DefaultConfig returns expected values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log_level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Verbose {
		t.Error("Expected verbose to be false")
	}

	if cfg.Inputs.BoxPrefix != "FBA" || cfg.Inputs.LabelPrefix != "LABELS" {
		t.Errorf("Unexpected input prefixes %q/%q", cfg.Inputs.BoxPrefix, cfg.Inputs.LabelPrefix)
	}
	if cfg.Inputs.ShipmentSeparator != "-" {
		t.Errorf("Expected shipment separator '-', got %q", cfg.Inputs.ShipmentSeparator)
	}

	if cfg.Render.Backend != BackendPoppler {
		t.Errorf("Expected render backend %s, got %s", BackendPoppler, cfg.Render.Backend)
	}
	if cfg.Render.DPI != 300 {
		t.Errorf("Expected dpi 300, got %d", cfg.Render.DPI)
	}

	if cfg.Recognition.RegionTimeout != 30*time.Second {
		t.Errorf("Expected region timeout 30s, got %v", cfg.Recognition.RegionTimeout)
	}
	if cfg.Recognition.BoxID.Pattern != "FBA[0-9A-Z]+" {
		t.Errorf("Unexpected box id pattern %q", cfg.Recognition.BoxID.Pattern)
	}
	if cfg.Recognition.Tracking.Pattern != "1Z[0-9A-Z]{8,}" {
		t.Errorf("Unexpected tracking pattern %q", cfg.Recognition.Tracking.Pattern)
	}
	if !cfg.Recognition.BoxID.OCRFullPage {
		t.Error("Expected box id OCR to cover the full page")
	}
	if cfg.Recognition.Tracking.Mode != "line" || !cfg.Recognition.Tracking.Binarize {
		t.Errorf("Unexpected tracking OCR settings %+v", cfg.Recognition.Tracking)
	}
	if len(cfg.Recognition.Barcode.Formats) != len(barcode.DefaultFormats) {
		t.Errorf("Expected %d barcode formats, got %d", len(barcode.DefaultFormats), len(cfg.Recognition.Barcode.Formats))
	}

	if cfg.Template.ShipmentRow != 4 || cfg.Template.ShipmentColumn != 2 || cfg.Template.StartRow != 8 {
		t.Errorf("Unexpected template layout %+v", cfg.Template)
	}
	if cfg.Merge.Strict {
		t.Error("Expected merge to be lenient by default")
	}

	if cfg.Server.Host != "localhost" {
		t.Errorf("Expected server host 'localhost', got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"bad output format", func(c *Config) { c.Output.Format = "csv" }, "invalid output format"},
		{"empty output format", func(c *Config) { c.Output.Format = "" }, ""},
		{"bad backend", func(c *Config) { c.Render.Backend = "ghostscript" }, "invalid render backend"},
		{"dpi too low", func(c *Config) { c.Render.DPI = 10 }, "invalid render dpi"},
		{"dpi too high", func(c *Config) { c.Render.DPI = 5000 }, "invalid render dpi"},
		{"empty prefix", func(c *Config) { c.Inputs.BoxPrefix = "" }, "prefixes must not be empty"},
		{"same prefixes", func(c *Config) { c.Inputs.LabelPrefix = "fba" }, "prefixes must differ"},
		{"bad pattern", func(c *Config) { c.Recognition.BoxID.Pattern = "FBA[" }, "recognition.box_id.pattern"},
		{"empty pattern", func(c *Config) { c.Recognition.Tracking.Pattern = "" }, "recognition.tracking.pattern"},
		{"bad mode", func(c *Config) { c.Recognition.Tracking.Mode = "word" }, "recognition.tracking.mode"},
		{"bad bounds", func(c *Config) { c.Recognition.BoxID.Bounds.Bottom = 0.1 }, "bottom must be greater than top"},
		{"nan bounds", func(c *Config) { c.Recognition.Tracking.Bounds.Top = math.NaN() }, "values must be within [0,1]"},
		{"empty whitelist", func(c *Config) { c.Recognition.BoxID.Whitelist = "" }, "whitelist"},
		{"negative timeout", func(c *Config) { c.Recognition.RegionTimeout = -time.Second }, "timeout"},
		{"bad barcode format", func(c *Config) { c.Recognition.Barcode.Formats = []string{"aztec"} }, "unknown format"},
		{"bad layout", func(c *Config) { c.Template.StartRow = 2 }, "start_row"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"bad upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, "invalid max upload size"},
		{"bad server timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "invalid timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestToRecognizeConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recognition.Tracking.RequireMatch = true
	cfg.Recognition.RegionTimeout = 5 * time.Second

	rc, err := cfg.ToRecognizeConfig()
	if err != nil {
		t.Fatalf("ToRecognizeConfig() error: %v", err)
	}
	if len(rc.Regions) != 2 {
		t.Fatalf("Expected 2 regions, got %d", len(rc.Regions))
	}
	if rc.RegionTimeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", rc.RegionTimeout)
	}

	box, tracking := rc.Regions[0], rc.Regions[1]
	if box.Field != recognize.FieldBoxID || tracking.Field != recognize.FieldTracking {
		t.Errorf("Unexpected region order %s, %s", box.Field, tracking.Field)
	}
	if !box.Extractor.Matches("FBA15ABCD") {
		t.Error("Box id extractor should match FBA15ABCD")
	}
	if tracking.OCR.Mode != ocr.ModeLine || !tracking.OCR.Binarize {
		t.Errorf("Unexpected tracking OCR options %+v", tracking.OCR)
	}
	if !tracking.RequireMatch {
		t.Error("Expected tracking to require a pattern match")
	}
}

func TestToRecognizeConfigMatchesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	rc, err := cfg.ToRecognizeConfig()
	if err != nil {
		t.Fatalf("ToRecognizeConfig() error: %v", err)
	}

	want := recognize.DefaultRegions()
	for i, spec := range rc.Regions {
		if spec.Bounds != want[i].Bounds {
			t.Errorf("region %s bounds %+v, want %+v", spec.Field, spec.Bounds, want[i].Bounds)
		}
		if spec.OCR != want[i].OCR {
			t.Errorf("region %s OCR %+v, want %+v", spec.Field, spec.OCR, want[i].OCR)
		}
		if spec.OCRFullPage != want[i].OCRFullPage {
			t.Errorf("region %s OCRFullPage %v, want %v", spec.Field, spec.OCRFullPage, want[i].OCRFullPage)
		}
	}
}

func TestToBarcodeOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recognition.Barcode.Formats = []string{"Code128", " qr "}
	cfg.Recognition.Barcode.TryHarder = false

	opts, err := cfg.ToBarcodeOptions()
	if err != nil {
		t.Fatalf("ToBarcodeOptions() error: %v", err)
	}
	if len(opts.Formats) != 2 || opts.Formats[0] != barcode.FormatCode128 || opts.Formats[1] != barcode.FormatQR {
		t.Errorf("Unexpected formats %v", opts.Formats)
	}
	if opts.TryHarder {
		t.Error("Expected TryHarder false")
	}
}

func TestToLayoutAndPrefixes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Template.OutputSuffix = "_upload.xlsx"
	cfg.Inputs.BoxPrefix = "BOX"

	layout := cfg.ToLayout()
	if layout.OutputFilename("FBA1") != "FBA1_upload.xlsx" {
		t.Errorf("Unexpected output filename %s", layout.OutputFilename("FBA1"))
	}
	if p := cfg.ToPrefixes(); p.Boxes != "BOX" || p.Labels != "LABELS" {
		t.Errorf("Unexpected prefixes %+v", p)
	}
	if cfg.ServerTimeout() != 120*time.Second {
		t.Errorf("Unexpected server timeout %v", cfg.ServerTimeout())
	}
}
