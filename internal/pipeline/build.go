package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/shiplabel/internal/barcode"
	"github.com/MeKo-Tech/shiplabel/internal/config"
	"github.com/MeKo-Tech/shiplabel/internal/document"
	"github.com/MeKo-Tech/shiplabel/internal/ocr"
	"github.com/MeKo-Tech/shiplabel/internal/pdf"
	"github.com/MeKo-Tech/shiplabel/internal/recognize"
	"github.com/MeKo-Tech/shiplabel/internal/workbook"
)

// NewRenderer returns the page renderer selected by the render section.
func NewRenderer(cfg *config.Config) (pdf.Renderer, error) {
	switch cfg.Render.Backend {
	case config.BackendPoppler, "":
		return &pdf.PopplerRenderer{Binary: cfg.Render.PdftoppmPath, Password: cfg.Render.Password}, nil
	case config.BackendExtract:
		return &pdf.ExtractRenderer{Password: cfg.Render.Password}, nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", cfg.Render.Backend)
	}
}

// NewRecognizer builds the page recognizer with the fixed strategy order:
// barcode, then the PDF text layer, then OCR.
func NewRecognizer(cfg *config.Config, logger *slog.Logger) (*recognize.Recognizer, error) {
	rc, err := cfg.ToRecognizeConfig()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ToBarcodeOptions()
	if err != nil {
		return nil, err
	}

	decoder := barcode.NewDecoder(barcode.NewBackend(), opts).WithLogger(logger)
	rec, err := recognize.New(rc,
		&recognize.BarcodeStrategy{Decoder: decoder},
		recognize.TextLayerStrategy{},
		&recognize.OCRStrategy{Reader: ocr.NewReader(), Logger: logger},
	)
	if err != nil {
		return nil, err
	}
	return rec.WithLogger(logger), nil
}

// NewFromConfig assembles a Converter from a validated configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Converter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	renderer, err := NewRenderer(cfg)
	if err != nil {
		return nil, err
	}
	rec, err := NewRecognizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	if !ocr.Available() {
		logger.Info("OCR fallback unavailable; only barcodes and PDF text will be read")
	}

	return &Converter{
		Walker: &document.Walker{
			Renderer:   renderer,
			Recognizer: rec,
			DPI:        cfg.Render.DPI,
			TextLayer:  cfg.Render.TextLayer,
			DumpDir:    cfg.Debug.DumpDir,
			Logger:     logger,
		},
		Writer: &workbook.Writer{Template: cfg.Template.Path, Layout: cfg.ToLayout()},
		Options: Options{
			Strict:            cfg.Merge.Strict,
			OutputDir:         cfg.Output.Dir,
			ShipmentSeparator: cfg.Inputs.ShipmentSeparator,
		},
		Logger: logger,
	}, nil
}
