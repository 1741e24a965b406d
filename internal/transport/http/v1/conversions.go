package v1

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// ConversionRequest is the body of the conversion endpoints.
type ConversionRequest struct {
	Prompt   string `json:"prompt"`
	Protocol string `json:"protocol,omitempty"`
	Model    string `json:"model,omitempty"`
	Title    string `json:"title,omitempty"`
}

func (r *ConversionRequest) toDomain(credential string) domain.ConversionRequest {
	return domain.ConversionRequest{
		Prompt:     r.Prompt,
		Credential: credential,
		Protocol:   domain.Protocol(r.Protocol),
		Model:      r.Model,
		Title:      r.Title,
	}
}

func (h *Handler) bindConversion(c echo.Context) (*ConversionRequest, *ErrorResponse) {
	var req ConversionRequest
	if err := c.Bind(&req); err != nil {
		resp := invalid("invalid request body")
		return nil, &resp
	}
	if strings.TrimSpace(req.Prompt) == "" {
		resp := invalid("prompt is required")
		return nil, &resp
	}
	return &req, nil
}

// CreateConversion converts a prompt into a page document.
// POST /v1/conversions
func (h *Handler) CreateConversion(c echo.Context) error {
	req, errResp := h.bindConversion(c)
	if errResp != nil {
		return c.JSON(http.StatusBadRequest, errResp)
	}

	ctx := c.Request().Context()
	result, err := h.convert(ctx, req.toDomain(h.credential(c.Request())), nil)
	if err != nil {
		return c.JSON(statusFor(err), ErrorResponse{Error: errorInfo(err)})
	}

	return c.JSON(http.StatusOK, result)
}

// StreamConversion converts a prompt and streams progress as server-sent events.
// POST /v1/conversions/stream
func (h *Handler) StreamConversion(c echo.Context) error {
	req, errResp := h.bindConversion(c)
	if errResp != nil {
		return c.JSON(http.StatusBadRequest, errResp)
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorInfo{Kind: string(domain.KindInternal), Message: "streaming not supported"}})
	}

	writeEvent := func(event string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response().Writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	ctx := c.Request().Context()
	result, err := h.convert(ctx, req.toDomain(h.credential(c.Request())), func(p domain.Progress) error {
		return writeEvent("progress", p)
	})
	if err != nil {
		if writeErr := writeEvent("error", ErrorResponse{Error: errorInfo(err)}); writeErr != nil {
			log.Printf("WARN: failed to write error event: %v", writeErr)
		}
		return nil
	}
	if writeErr := writeEvent("result", result); writeErr != nil {
		log.Printf("WARN: failed to write result event: %v", writeErr)
	}
	return nil
}
