package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/shiplabel/internal/document"
	"github.com/MeKo-Tech/shiplabel/internal/inputs"
	"github.com/MeKo-Tech/shiplabel/internal/pdf"
	"github.com/MeKo-Tech/shiplabel/internal/pipeline"
	"github.com/MeKo-Tech/shiplabel/internal/records"
	"github.com/MeKo-Tech/shiplabel/internal/version"
	"github.com/MeKo-Tech/shiplabel/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Error types reported to clients.
const (
	errTypeInvalidRequest  = "invalid_request"
	errTypeMissingInput    = "missing_input"
	errTypeUnreadable      = "unreadable_document"
	errTypePageMismatch    = "page_mismatch"
	errTypeMissingTemplate = "missing_template"
	errTypeTimeout         = "timeout"
	errTypeCanceled        = "canceled"
	errTypeProcessing      = "processing_error"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ver, _, _ := version.Info()
	response := HealthResponse{
		Status:  "healthy",
		Version: ver,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

// convertHandler takes the two documents as multipart fields "boxes" and
// "labels" (plus an optional "shipment_id") and answers with the workbook.
func (s *Server) convertHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		if isBodyTooLarge(err) {
			s.writeErrorResponse(w, "File too large", errTypeInvalidRequest, http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", errTypeInvalidRequest, http.StatusBadRequest)
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	dir, err := os.MkdirTemp("", "shiplabel-upload-*")
	if err != nil {
		s.writeErrorResponse(w, "Failed to store upload", errTypeProcessing, http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	pair, size, err := saveFormUploads(r, dir)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), errTypeMissingInput, http.StatusBadRequest)
		return
	}
	uploadSizeBytes.Observe(float64(size))

	ctx, cancel := s.requestContext(r.Context())
	defer cancel()

	var buf bytes.Buffer
	conv := s.newConverter(r.FormValue("shipment_id"), nil)
	res, err := s.observe("http", func() (*pipeline.Result, error) {
		return conv.RunTo(ctx, pair, &buf)
	})
	if err != nil {
		status, errType := classifyError(err)
		s.writeErrorResponse(w, err.Error(), errType, status)
		return
	}

	filename := s.converter.Writer.Layout.OutputFilename(res.ShipmentID)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Shipment-ID", res.ShipmentID)
	w.Header().Set("X-Rows-Written", strconv.Itoa(res.RowsWritten))
	w.Header().Set("X-Empty-Fields", strconv.Itoa(res.EmptyFields()))
	if res.Merge.Mismatch() {
		w.Header().Set("X-Page-Mismatch", fmt.Sprintf("%d/%d", res.Merge.BoxPages, res.Merge.TrackingPages))
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Failed to write workbook response", "error", err)
	}
}

// newConverter returns a per-request copy of the shared converter.
func (s *Server) newConverter(shipmentID string, progress pipeline.ProgressCallback) *pipeline.Converter {
	conv := *s.converter
	conv.Options.ShipmentID = strings.TrimSpace(shipmentID)
	if progress != nil {
		conv.Progress = progress
	}
	return &conv
}

func (s *Server) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(parent, s.timeout)
	}
	return context.WithCancel(parent)
}

// observe runs a conversion and records its metrics.
func (s *Server) observe(channel string, run func() (*pipeline.Result, error)) (*pipeline.Result, error) {
	start := time.Now()
	res, err := run()
	conversionDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())

	if err != nil {
		_, errType := classifyError(err)
		conversionsTotal.WithLabelValues(channel, errType).Inc()
		return nil, err
	}
	conversionsTotal.WithLabelValues(channel, "success").Inc()
	rowsWritten.Observe(float64(res.RowsWritten))
	emptyFieldsTotal.WithLabelValues("box_id").Add(float64(res.EmptyBoxIDs))
	emptyFieldsTotal.WithLabelValues("tracking").Add(float64(res.EmptyTracking))
	return res, nil
}

// saveFormUploads writes the "boxes" and "labels" files into dir.
func saveFormUploads(r *http.Request, dir string) (inputs.Pair, int64, error) {
	var (
		pair  inputs.Pair
		total int64
	)
	for _, role := range []document.Role{document.RoleBoxes, document.RoleLabels} {
		file, header, err := r.FormFile(string(role))
		if err != nil {
			return inputs.Pair{}, 0, fmt.Errorf("no %s file provided", role)
		}
		path, n, err := saveDocument(dir, role, header.Filename, file)
		_ = file.Close()
		if err != nil {
			return inputs.Pair{}, 0, err
		}
		total += n
		if role == document.RoleBoxes {
			pair.Boxes = path
		} else {
			pair.Labels = path
		}
	}
	return pair, total, nil
}

// saveDocument stores an uploaded document under dir/<role>/ keeping the
// client's base file name, which carries the shipment id.
func saveDocument(dir string, role document.Role, name string, r io.Reader) (string, int64, error) {
	base := filepath.Base(filepath.Clean("/" + filepath.ToSlash(name)))
	if base == "/" || base == "." {
		base = string(role) + ".pdf"
	}

	roleDir := filepath.Join(dir, string(role))
	if err := os.MkdirAll(roleDir, 0o750); err != nil {
		return "", 0, fmt.Errorf("failed to store %s upload: %w", role, err)
	}
	path := filepath.Join(roleDir, base)

	f, err := os.Create(path) //nolint:gosec // G304: base name only, inside our temp dir
	if err != nil {
		return "", 0, fmt.Errorf("failed to store %s upload: %w", role, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to store %s upload: %w", role, err)
	}
	return path, n, nil
}

// classifyError maps a conversion error to an HTTP status and error type.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, inputs.ErrMissingInput):
		return http.StatusBadRequest, errTypeMissingInput
	case errors.Is(err, records.ErrPageMismatch):
		return http.StatusConflict, errTypePageMismatch
	case errors.Is(err, workbook.ErrMissingTemplate):
		return http.StatusInternalServerError, errTypeMissingTemplate
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errTypeTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, errTypeCanceled
	case errors.Is(err, pdf.ErrUnreadable), errors.Is(err, pdf.ErrNoPages), errors.Is(err, pdf.ErrEncrypted):
		return http.StatusUnprocessableEntity, errTypeUnreadable
	}

	var docErr *document.Error
	if errors.As(err, &docErr) {
		return http.StatusUnprocessableEntity, errTypeUnreadable
	}
	return http.StatusInternalServerError, errTypeProcessing
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message, errType string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Success:   false,
		Error:     message,
		ErrorType: errType,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
