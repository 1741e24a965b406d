package v1

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// WebSocket message types.
const (
	TypeConvert  = "convert"
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeError    = "error"
)

const wsWriteTimeout = 10 * time.Second

// BaseMessage contains common fields for all WebSocket messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
}

// ConvertMessage asks for one conversion.
type ConvertMessage struct {
	BaseMessage
	ConversionRequest
	APIKey string `json:"api_key,omitempty"`
}

// ProgressMessage carries one progress update.
type ProgressMessage struct {
	BaseMessage
	Progress domain.Progress `json:"progress"`
}

// ResultMessage carries the finished document.
type ResultMessage struct {
	BaseMessage
	Result *domain.ConversionResult `json:"result"`
}

// ErrorMessage reports a failed or rejected conversion.
type ErrorMessage struct {
	BaseMessage
	Error ErrorInfo `json:"error"`
}

// HandleWebSocket serves conversions over a WebSocket connection. Requests
// on one connection are handled in order.
// GET /v1/conversions/ws
func (h *Handler) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("WARN: failed to upgrade WebSocket: %v", err)
		return err
	}
	defer ws.Close()

	ws.SetReadLimit(h.maxMessageBytes)
	headerCredential := h.credential(c.Request())
	ctx := c.Request().Context()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WARN: WebSocket error: %v", err)
			}
			return nil
		}
		if err := h.handleMessage(ctx, ws, headerCredential, data); err != nil {
			log.Printf("WARN: failed to write WebSocket message: %v", err)
			return nil
		}
	}
}

// handleMessage dispatches one incoming message. The returned error is a
// write failure, after which the connection is unusable.
func (h *Handler) handleMessage(ctx context.Context, ws *websocket.Conn, headerCredential string, data []byte) error {
	var msg ConvertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return writeJSON(ws, ErrorMessage{BaseMessage: base(TypeError, ""), Error: invalid("invalid JSON message").Error})
	}
	if msg.Type != TypeConvert {
		return writeJSON(ws, ErrorMessage{BaseMessage: base(TypeError, msg.RequestID), Error: invalid("unknown message type: " + msg.Type).Error})
	}

	requestID := msg.RequestID
	if requestID == "" {
		requestID = "req_" + uuid.New().String()[:8]
	}
	if strings.TrimSpace(msg.Prompt) == "" {
		return writeJSON(ws, ErrorMessage{BaseMessage: base(TypeError, requestID), Error: invalid("prompt is required").Error})
	}

	credential := headerCredential
	if msg.APIKey != "" {
		credential = msg.APIKey
	}

	result, err := h.convert(ctx, msg.ConversionRequest.toDomain(credential), func(p domain.Progress) error {
		return writeJSON(ws, ProgressMessage{BaseMessage: base(TypeProgress, requestID), Progress: p})
	})
	if err != nil {
		return writeJSON(ws, ErrorMessage{BaseMessage: base(TypeError, requestID), Error: errorInfo(err)})
	}
	return writeJSON(ws, ResultMessage{BaseMessage: base(TypeResult, requestID), Result: result})
}

func base(msgType, requestID string) BaseMessage {
	return BaseMessage{Type: msgType, Ts: time.Now().UnixMilli(), RequestID: requestID}
}

func writeJSON(ws *websocket.Conn, v interface{}) error {
	ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return ws.WriteJSON(v)
}
