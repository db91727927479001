package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/shiplabel/internal/document"
	"github.com/MeKo-Tech/shiplabel/internal/inputs"
	"github.com/MeKo-Tech/shiplabel/internal/pipeline"
	"github.com/MeKo-Tech/shiplabel/internal/records"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	// Requests accepted while a conversion is running.
	wsQueueSize = 4
)

// WebSocket message types.
const (
	msgConvert = "convert"
	msgStarted = "document_started"
	msgPage    = "page"
	msgResult  = "result"
	msgError   = "error"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketDocument is one uploaded document; Data is base64 in JSON.
type WebSocketDocument struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// WebSocketConvertRequest asks for a conversion of two documents.
type WebSocketConvertRequest struct {
	Type       string            `json:"type"`
	ShipmentID string            `json:"shipment_id,omitempty"`
	Boxes      WebSocketDocument `json:"boxes"`
	Labels     WebSocketDocument `json:"labels"`
}

// WebSocketConvertResponse is every message the server sends: progress
// events while the documents are walked, then a result or an error.
type WebSocketConvertResponse struct {
	Type      string              `json:"type"`
	Status    string              `json:"status"` // "processing", "completed", "error"
	RequestID string              `json:"request_id,omitempty"`
	Role      document.Role       `json:"role,omitempty"`
	Path      string              `json:"path,omitempty"`
	Page      *records.PageRecord `json:"page,omitempty"`
	Result    *pipeline.Result    `json:"result,omitempty"`
	Filename  string              `json:"filename,omitempty"`
	Workbook  []byte              `json:"workbook,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorType string              `json:"error_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// convertWebSocketHandler handles WebSocket connections for conversions
// with live progress.
func (s *Server) convertWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection processes messages until the client goes away.
// Requests run one at a time on a worker while the read loop keeps watching
// the connection; a disconnect cancels the running conversion.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	conn.SetReadLimit(2 * s.maxUploadBytes())
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	requests := make(chan []byte, wsQueueSize)
	workerDone := make(chan struct{})
	defer func() {
		cancel()
		close(requests)
		<-workerDone
	}()

	go func() {
		defer close(workerDone)
		for data := range requests {
			if ctx.Err() != nil {
				continue
			}
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}()

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			requests <- data
		}
	}
}

// handleWebSocketMessage runs one conversion request.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketConvertRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", errTypeInvalidRequest, fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if req.Type != msgConvert {
		s.sendWebSocketError(conn, "", errTypeInvalidRequest, "Unsupported request type: "+req.Type)
		return
	}
	if len(req.Boxes.Data) == 0 || len(req.Labels.Data) == 0 {
		s.sendWebSocketError(conn, "", errTypeMissingInput, "Both boxes and labels documents are required")
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	dir, err := os.MkdirTemp("", "shiplabel-ws-*")
	if err != nil {
		s.sendWebSocketError(conn, requestID, errTypeProcessing, "Failed to store upload")
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	var pair inputs.Pair
	pair.Boxes, _, err = saveDocument(dir, document.RoleBoxes, req.Boxes.Filename, bytes.NewReader(req.Boxes.Data))
	if err == nil {
		pair.Labels, _, err = saveDocument(dir, document.RoleLabels, req.Labels.Filename, bytes.NewReader(req.Labels.Data))
	}
	if err != nil {
		s.sendWebSocketError(conn, requestID, errTypeProcessing, err.Error())
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Boxes.Data) + len(req.Labels.Data)))

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	var buf bytes.Buffer
	conv := s.newConverter(req.ShipmentID, &wsProgress{server: s, conn: conn, requestID: requestID})
	res, err := s.observe("websocket", func() (*pipeline.Result, error) {
		return conv.RunTo(ctx, pair, &buf)
	})
	if err != nil {
		_, errType := classifyError(err)
		s.sendWebSocketError(conn, requestID, errType, err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketConvertResponse{
		Type:      msgResult,
		Status:    "completed",
		RequestID: requestID,
		Result:    res,
		Filename:  s.converter.Writer.Layout.OutputFilename(res.ShipmentID),
		Workbook:  buf.Bytes(),
	})
}

// wsProgress forwards walker progress to the client.
type wsProgress struct {
	server    *Server
	conn      WebSocketConnWriter
	requestID string
}

func (p *wsProgress) OnStart(role document.Role, path string) {
	p.server.sendWebSocketResponse(p.conn, WebSocketConvertResponse{
		Type:      msgStarted,
		Status:    "processing",
		RequestID: p.requestID,
		Role:      role,
		Path:      filepath.Base(path),
	})
}

func (p *wsProgress) OnPage(role document.Role, rec records.PageRecord) {
	p.server.sendWebSocketResponse(p.conn, WebSocketConvertResponse{
		Type:      msgPage,
		Status:    "processing",
		RequestID: p.requestID,
		Role:      role,
		Page:      &rec,
	})
}

func (p *wsProgress) OnComplete(*pipeline.Result) {}

func (p *wsProgress) OnError(error) {}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketConvertResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketConvertResponse{
		Type:      msgError,
		Status:    "error",
		RequestID: requestID,
		Error:     message,
		ErrorType: errorType,
	})
}
