// Package v1 provides the HTTP handlers of the conversion API.
package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/pagegen/internal/config"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
	"github.com/xiaot623/gogo/pagegen/internal/service"
)

const defaultProgressBuffer = 16

// Handler handles HTTP requests.
type Handler struct {
	service           *service.Service
	defaultCredential string
	progressBuffer    int
	maxMessageBytes   int64
	upgrader          websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, cfg *config.Config) *Handler {
	buffer := cfg.ProgressBuffer
	if buffer <= 0 {
		buffer = defaultProgressBuffer
	}
	maxMessage := int64(cfg.MaxPromptChars)*4 + 4096
	if cfg.MaxPromptChars <= 0 {
		maxMessage = 1 << 20
	}
	return &Handler{
		service:           service,
		defaultCredential: cfg.LLMAPIKey,
		progressBuffer:    buffer,
		maxMessageBytes:   maxMessage,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversion API
	e.POST("/v1/conversions", h.CreateConversion)
	e.POST("/v1/conversions/stream", h.StreamConversion)
	e.GET("/v1/conversions/ws", h.HandleWebSocket)

	// Diagnostic traces
	e.GET("/v1/conversions/:conversion_id/events", h.GetConversionEvents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// credential returns the bearer token of r, or the configured default.
func (h *Handler) credential(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token)
	}
	return h.defaultCredential
}

type outcome struct {
	result *domain.ConversionResult
	err    error
}

// convert runs one conversion, handing each progress value to onProgress
// from the calling goroutine. A failing onProgress cancels the conversion.
func (h *Handler) convert(ctx context.Context, req domain.ConversionRequest, onProgress func(domain.Progress) error) (*domain.ConversionResult, error) {
	if onProgress == nil {
		return h.service.Convert(ctx, req)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := make(chan domain.Progress, h.progressBuffer)
	req.Progress = progress

	done := make(chan outcome, 1)
	go func() {
		result, err := h.service.Convert(ctx, req)
		done <- outcome{result: result, err: err}
	}()

	var sinkErr error
	deliver := func(p domain.Progress) {
		if sinkErr != nil {
			return
		}
		if err := onProgress(p); err != nil {
			sinkErr = err
			cancel()
		}
	}

	for {
		select {
		case p := <-progress:
			deliver(p)
		case out := <-done:
			for {
				select {
				case p := <-progress:
					deliver(p)
				default:
					return out.result, out.err
				}
			}
		}
	}
}
