// Package server exposes the conversion over HTTP: a multipart upload
// endpoint returning the filled workbook, a WebSocket endpoint streaming
// per-page progress, and health and Prometheus endpoints.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/shiplabel/internal/pipeline"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	converter   *pipeline.Converter
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	Timeout     time.Duration
	Converter   *pipeline.Converter
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
}

// NewServer creates a new server instance.
func NewServer(config Config) (*Server, error) {
	if config.Converter == nil {
		return nil, errors.New("server requires a converter")
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}

	return &Server{
		converter:   config.Converter,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     config.Timeout,
	}, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/convert", s.corsMiddleware(s.convertHandler))
	mux.HandleFunc("/ws/convert", s.convertWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}
