package v1

import (
	"errors"
	"net/http"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
	"github.com/xiaot623/gogo/pagegen/internal/service"
)

// kindInvalid labels requests rejected before conversion started.
const kindInvalid = "invalid"

// ErrorInfo describes a failed conversion.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

func errorInfo(err error) ErrorInfo {
	if errors.Is(err, service.ErrInvalidRequest) {
		return ErrorInfo{Kind: kindInvalid, Message: err.Error()}
	}
	return ErrorInfo{Kind: string(domain.KindOf(err)), Message: err.Error()}
}

func invalid(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorInfo{Kind: kindInvalid, Message: message}}
}

// statusFor maps a conversion error onto an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, service.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	switch domain.KindOf(err) {
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindBlocked:
		return http.StatusForbidden
	case domain.KindExtraction, domain.KindParse:
		return http.StatusUnprocessableEntity
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindNetwork, domain.KindToolUseUnsupported, domain.KindUpstreamRun:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
