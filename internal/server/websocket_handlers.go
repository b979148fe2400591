package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/gradescan/internal/scan"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketScanOptions may precede an image as a text message.
type WebSocketScanOptions struct {
	Locale  string `json:"locale,omitempty"`
	Country string `json:"country,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketScanResponse is every message the server sends.
type WebSocketScanResponse struct {
	Type      string       `json:"type"`
	Status    string       `json:"status"` // "processing", "completed", "error"
	Stage     scan.Stage   `json:"stage,omitempty"`
	Subjects  int          `json:"subjects,omitempty"`
	Result    *scan.Result `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	ErrorType string       `json:"error_type,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// scanWebSocketHandler streams stage events and results for images sent as binary messages.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
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
	s.handleWebSocketConnection(r.Context(), conn, callerID(r))
}

// handleWebSocketConnection reads option and image messages until the client leaves.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn, caller string) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetReadLimit(s.maxUploadMB<<20 + 1<<20)

	var opts WebSocketScanOptions
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch messageType {
		case websocket.TextMessage:
			if err := json.Unmarshal(data, &opts); err != nil {
				s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse options: %v", err))
			}
		case websocket.BinaryMessage:
			s.processWebSocketImage(ctx, conn, data, opts, caller)
		}
	}
}

// processWebSocketImage runs one scan and streams its progress.
func (s *Server) processWebSocketImage(ctx context.Context, conn WebSocketConnWriter, image []byte, opts WebSocketScanOptions, caller string) {
	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)
	if s.scanner == nil {
		s.sendWebSocketError(conn, requestID, "recognition_unavailable", errNoScanner.Error())
		return
	}
	uploadSizeBytes.Observe(float64(len(image)))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.scanner.Scan(ctx, scan.Request{
		Image:       image,
		Locale:      opts.Locale,
		CountryHint: strings.ToUpper(strings.TrimSpace(opts.Country)),
		CallerID:    caller,
		Progress: func(ev scan.Event) {
			s.sendWebSocketResponse(conn, WebSocketScanResponse{
				Type:      "scan",
				Status:    "processing",
				Stage:     ev.Stage,
				Subjects:  ev.Subjects,
				RequestID: requestID,
			})
		},
	})
	if err != nil {
		_, code := classify(err)
		s.sendWebSocketError(conn, requestID, code, err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "scan",
		Status:    "completed",
		Subjects:  len(res.Subjects),
		Result:    res,
		RequestID: requestID,
	})
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "scan",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketScanResponse) {
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
