package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/shiplabel/internal/document"
	"github.com/MeKo-Tech/shiplabel/internal/records"
)

// ProgressCallback receives progress events during a conversion run.
// Calls arrive from the goroutine running the conversion.
type ProgressCallback interface {
	// OnStart is called when a document starts rendering.
	OnStart(role document.Role, path string)

	// OnPage is called after each page is recognized.
	OnPage(role document.Role, rec records.PageRecord)

	// OnComplete is called once the workbook is written.
	OnComplete(res *Result)

	// OnError is called when the run aborts.
	OnError(err error)
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(document.Role, string)            {}
func (NoOpProgressCallback) OnPage(document.Role, records.PageRecord) {}
func (NoOpProgressCallback) OnComplete(*Result)                       {}
func (NoOpProgressCallback) OnError(error)                            {}

// ConsoleProgressCallback prints one line per page to a writer.
type ConsoleProgressCallback struct {
	writer    io.Writer
	prefix    string
	mutex     sync.Mutex
	startTime time.Time
	pages     map[document.Role]int
}

// NewConsoleProgressCallback creates a new console progress reporter.
func NewConsoleProgressCallback(writer io.Writer, prefix string) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgressCallback{writer: writer, prefix: prefix, pages: map[document.Role]int{}}
}

func (c *ConsoleProgressCallback) OnStart(role document.Role, path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.startTime.IsZero() {
		c.startTime = time.Now()
	}
	_, _ = fmt.Fprintf(c.writer, "%sReading %s document %s\n", c.prefix, role, path)
}

func (c *ConsoleProgressCallback) OnPage(role document.Role, rec records.PageRecord) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.pages[role]++
	value, source := rec.BoxID, rec.BoxIDSource
	if role == document.RoleLabels {
		value, source = rec.Tracking, rec.TrackingSource
	}
	if value == "" {
		value, source = "-", "missed"
	}
	_, _ = fmt.Fprintf(c.writer, "%s  %s page %d: %s (%s)\n", c.prefix, role, rec.Page, value, source)
}

func (c *ConsoleProgressCallback) OnComplete(res *Result) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	elapsed := time.Since(c.startTime)
	_, _ = fmt.Fprintf(c.writer, "%sCompleted %d rows in %v\n", c.prefix, res.RowsWritten, elapsed.Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, _ = fmt.Fprintf(c.writer, "%sError: %v\n", c.prefix, err)
}

// LogProgressCallback logs progress events using slog.
type LogProgressCallback struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogProgressCallback creates a new log-based progress reporter.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level}
}

func (l *LogProgressCallback) OnStart(role document.Role, path string) {
	l.logger.Log(context.Background(), l.level, "document started", "role", role, "path", path)
}

func (l *LogProgressCallback) OnPage(role document.Role, rec records.PageRecord) {
	l.logger.Log(context.Background(), l.level, "page done",
		"role", role, "page", rec.Page, "box_id", rec.BoxID, "tracking", rec.Tracking)
}

func (l *LogProgressCallback) OnComplete(res *Result) {
	l.logger.Log(context.Background(), l.level, "conversion completed",
		"shipment_id", res.ShipmentID, "rows", res.RowsWritten, "duration", res.Duration)
}

func (l *LogProgressCallback) OnError(err error) {
	l.logger.Log(context.Background(), slog.LevelError, "conversion failed", "error", err)
}

// MultiProgressCallback combines multiple progress callbacks.
type MultiProgressCallback struct {
	callbacks []ProgressCallback
}

// NewMultiProgressCallback creates a progress callback that reports to multiple callbacks.
func NewMultiProgressCallback(callbacks ...ProgressCallback) *MultiProgressCallback {
	return &MultiProgressCallback{callbacks: callbacks}
}

// Add adds another progress callback.
func (m *MultiProgressCallback) Add(callback ProgressCallback) {
	m.callbacks = append(m.callbacks, callback)
}

func (m *MultiProgressCallback) OnStart(role document.Role, path string) {
	for _, cb := range m.callbacks {
		cb.OnStart(role, path)
	}
}

func (m *MultiProgressCallback) OnPage(role document.Role, rec records.PageRecord) {
	for _, cb := range m.callbacks {
		cb.OnPage(role, rec)
	}
}

func (m *MultiProgressCallback) OnComplete(res *Result) {
	for _, cb := range m.callbacks {
		cb.OnComplete(res)
	}
}

func (m *MultiProgressCallback) OnError(err error) {
	for _, cb := range m.callbacks {
		cb.OnError(err)
	}
}
