package service

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// progressSink returns an emit func that delivers to ch and records run
// updates as trace events. Sends block until the receiver pulls or ctx ends.
func (s *Service) progressSink(ctx context.Context, conversionID string, ch chan<- domain.Progress) func(domain.Progress) error {
	return func(p domain.Progress) error {
		if p.Ts == 0 {
			p.Ts = time.Now().UnixMilli()
		}

		switch p.Kind {
		case domain.ProgressRunStatus:
			s.traceEvent(ctx, conversionID, domain.EventTypeRunStatus, domain.RunStatusPayload{
				ThreadID: p.ThreadID,
				RunID:    p.RunID,
				State:    p.State,
				Poll:     p.Poll,
			})
		case domain.ProgressToolUsage:
			s.traceEvent(ctx, conversionID, domain.EventTypeToolUsage, domain.ToolUsagePayload{
				Tools:   p.Tools,
				Queries: p.Queries,
			})
		}

		if ch == nil {
			return nil
		}
		select {
		case ch <- p:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
