//nolint:lll
package config

import (
	"time"

	"github.com/MeKo-Tech/shiplabel/internal/recognize"
)

// Config represents the complete configuration for the shiplabel tool.
// It covers every command (convert, extract, serve) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Inputs      InputsConfig      `mapstructure:"inputs" yaml:"inputs" json:"inputs"`
	Render      RenderConfig      `mapstructure:"render" yaml:"render" json:"render"`
	Recognition RecognitionConfig `mapstructure:"recognition" yaml:"recognition" json:"recognition"`
	Template    TemplateConfig    `mapstructure:"template" yaml:"template" json:"template"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output" json:"output"`
	Merge       MergeConfig       `mapstructure:"merge" yaml:"merge" json:"merge"`
	Debug       DebugConfig       `mapstructure:"debug" yaml:"debug" json:"debug"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// InputsConfig controls how the two input documents are located.
type InputsConfig struct {
	Dir               string `mapstructure:"dir" yaml:"dir" json:"dir"`
	BoxPrefix         string `mapstructure:"box_prefix" yaml:"box_prefix" json:"box_prefix"`
	LabelPrefix       string `mapstructure:"label_prefix" yaml:"label_prefix" json:"label_prefix"`
	ShipmentSeparator string `mapstructure:"shipment_separator" yaml:"shipment_separator" json:"shipment_separator"`
}

// RenderConfig selects and tunes the page renderer.
type RenderConfig struct {
	Backend      string `mapstructure:"backend" yaml:"backend" json:"backend"`
	DPI          int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	PdftoppmPath string `mapstructure:"pdftoppm_path" yaml:"pdftoppm_path" json:"pdftoppm_path"`
	Password     string `mapstructure:"password" yaml:"password" json:"-"`
	TextLayer    bool   `mapstructure:"text_layer" yaml:"text_layer" json:"text_layer"`
}

// RecognitionConfig contains the per-region recognition settings.
type RecognitionConfig struct {
	RegionTimeout time.Duration `mapstructure:"region_timeout" yaml:"region_timeout" json:"region_timeout"`
	Barcode       BarcodeConfig `mapstructure:"barcode" yaml:"barcode" json:"barcode"`
	BoxID         RegionConfig  `mapstructure:"box_id" yaml:"box_id" json:"box_id"`
	Tracking      RegionConfig  `mapstructure:"tracking" yaml:"tracking" json:"tracking"`
}

// BarcodeConfig contains barcode decoder settings.
type BarcodeConfig struct {
	Formats   []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	TryHarder bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
}

// RegionConfig describes one region of interest on a label page.
type RegionConfig struct {
	Bounds       recognize.Bounds `mapstructure:"bounds" yaml:"bounds" json:"bounds"`
	Pattern      string           `mapstructure:"pattern" yaml:"pattern" json:"pattern"`
	Whitelist    string           `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
	Mode         string           `mapstructure:"mode" yaml:"mode" json:"mode"`
	Binarize     bool             `mapstructure:"binarize" yaml:"binarize" json:"binarize"`
	OCRFullPage  bool             `mapstructure:"ocr_full_page" yaml:"ocr_full_page" json:"ocr_full_page"`
	RequireMatch bool             `mapstructure:"require_match" yaml:"require_match" json:"require_match"`
}

// TemplateConfig locates the spreadsheet template and where values go in it.
type TemplateConfig struct {
	Path           string `mapstructure:"path" yaml:"path" json:"path"`
	ShipmentRow    int    `mapstructure:"shipment_row" yaml:"shipment_row" json:"shipment_row"`
	ShipmentColumn int    `mapstructure:"shipment_column" yaml:"shipment_column" json:"shipment_column"`
	StartRow       int    `mapstructure:"start_row" yaml:"start_row" json:"start_row"`
	BoxColumn      int    `mapstructure:"box_column" yaml:"box_column" json:"box_column"`
	TrackingColumn int    `mapstructure:"tracking_column" yaml:"tracking_column" json:"tracking_column"`
	OutputSuffix   string `mapstructure:"output_suffix" yaml:"output_suffix" json:"output_suffix"`
}

// OutputConfig contains output settings.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// MergeConfig controls how page-count mismatches are treated.
type MergeConfig struct {
	Strict bool `mapstructure:"strict" yaml:"strict" json:"strict"`
}

// DebugConfig contains debugging aids.
type DebugConfig struct {
	DumpDir string `mapstructure:"dump_dir" yaml:"dump_dir" json:"dump_dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}
