package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// recordEvent records an event to the store. Trace writes outlive the
// request context so failures after a deadline are still traced.
func (s *Service) recordEvent(ctx context.Context, conversionID string, eventType domain.EventType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID:      "evt_" + uuid.New().String()[:8],
		ConversionID: conversionID,
		Ts:           time.Now().UnixMilli(),
		Type:         eventType,
		Payload:      payloadBytes,
	}

	return s.store.CreateEvent(context.WithoutCancel(ctx), event)
}

func (s *Service) traceEvent(ctx context.Context, conversionID string, eventType domain.EventType, payload interface{}) {
	if err := s.recordEvent(ctx, conversionID, eventType, payload); err != nil {
		log.Printf("ERROR: failed to record %s event for %s: %v", eventType, conversionID, err)
	}
}

// GetEvents returns the trace events of a conversion.
func (s *Service) GetEvents(ctx context.Context, conversionID string, afterTs int64, types []string, limit int) (*domain.Conversion, []domain.Event, error) {
	conversion, err := s.store.GetConversion(ctx, conversionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conversion: %w", err)
	}
	if conversion == nil {
		return nil, nil, nil
	}
	events, err := s.store.GetEvents(ctx, conversionID, afterTs, types, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get events: %w", err)
	}
	return conversion, events, nil
}
