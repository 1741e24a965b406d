// Package llm provides the direct chat completion client and the streamed
// response ingester.
package llm

import (
	"context"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// CompletionClient defines the direct-completion operations used by the pipeline.
type CompletionClient interface {
	// CreateChatCompletion returns the complete text of a non-streamed completion.
	CreateChatCompletion(ctx context.Context, apiKey string, req *ChatCompletionRequest) (string, error)

	// StreamCompletion streams a completion, handing each text delta to emit,
	// and returns the accumulated text.
	StreamCompletion(ctx context.Context, apiKey string, req *ChatCompletionRequest, emit func(domain.StreamEvent) error) (string, error)
}

// Ensure Client implements CompletionClient interface.
var _ CompletionClient = (*Client)(nil)
