// Package store defines the diagnostic trace storage interface and implementations.
package store

import (
	"context"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// Store persists diagnostic traces of conversions. Generated documents are
// never stored.
type Store interface {
	// Conversion operations
	CreateConversion(ctx context.Context, conversion *domain.Conversion) error
	GetConversion(ctx context.Context, conversionID string) (*domain.Conversion, error)
	UpdateConversionCompleted(ctx context.Context, conversionID string, status domain.ConversionStatus, stage domain.RepairStage, kind domain.ErrorKind, message string) error

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, conversionID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	// Lifecycle
	Close() error
}
