package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// MockClient is a canned CompletionClient for local runs without an upstream.
type MockClient struct{}

// NewMockClient creates a new mock completion client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements CompletionClient interface.
var _ CompletionClient = (*MockClient)(nil)

// CreateChatCompletion returns a fenced page built from the last user message.
func (m *MockClient) CreateChatCompletion(ctx context.Context, apiKey string, req *ChatCompletionRequest) (string, error) {
	return m.generateMockResponse(req), nil
}

// StreamCompletion simulates a streaming response in fixed-size chunks.
func (m *MockClient) StreamCompletion(ctx context.Context, apiKey string, req *ChatCompletionRequest, emit func(domain.StreamEvent) error) (string, error) {
	content := m.generateMockResponse(req)
	for _, chunk := range m.splitIntoChunks(content, 16) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		if emit != nil {
			if err := emit(domain.StreamEvent{Kind: domain.StreamEventTextDelta, Text: chunk}); err != nil {
				return "", err
			}
		}
	}
	if emit != nil {
		if err := emit(domain.StreamEvent{Kind: domain.StreamEventDone}); err != nil {
			return "", err
		}
	}
	return content, nil
}

// generateMockResponse wraps a heading and a text widget in a json fence.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	page := map[string]any{
		"title": "Mock Page",
		"widgets": []map[string]any{
			{"widgetType": "heading", "settings": map[string]any{"title": "[MOCK] Generated page"}},
			{"widgetType": "text-editor", "settings": map[string]any{"editor": truncate(lastUserMessage, 100)}},
		},
	}
	body, _ := json.MarshalIndent(page, "", "  ")
	return fmt.Sprintf("Here is your page:\n```json\n%s\n```", body)
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func (m *MockClient) splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	var chunks []string
	runes := []rune(s)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
