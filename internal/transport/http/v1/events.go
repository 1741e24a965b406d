package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// GetConversionEvents retrieves the trace of a conversion.
// GET /v1/conversions/:conversion_id/events
func (h *Handler) GetConversionEvents(c echo.Context) error {
	conversionID := c.Param("conversion_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	for _, t := range strings.Split(c.QueryParam("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	ctx := c.Request().Context()
	conversion, events, err := h.service.GetEvents(ctx, conversionID, afterTs, types, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorInfo{Kind: string(domain.KindInternal), Message: err.Error()}})
	}
	if conversion == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorInfo{Kind: "not_found", Message: "conversion not found"}})
	}
	if events == nil {
		events = []domain.Event{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversion": conversion,
		"events":     events,
	})
}
