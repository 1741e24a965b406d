package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

const maxErrorBodyBytes = 4096

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new chat completion client. A zero timeout leaves
// streaming bounded only by the request context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatCompletionRequest represents the OpenAI chat completion request.
type ChatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Stream              bool          `json:"stream"`
}

// ChatMessage represents a chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents the OpenAI chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	Delta        *ChatMessage `json:"delta,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk represents a single SSE chunk from the stream.
type StreamChunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// DeltaText returns choices[0].delta.content, or "" when absent.
func (c *StreamChunk) DeltaText() string {
	if len(c.Choices) == 0 || c.Choices[0].Delta == nil {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError represents the error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

// CreateChatCompletion sends a non-streaming request and returns
// choices[0].message.content.
func (c *Client) CreateChatCompletion(ctx context.Context, apiKey string, req *ChatCompletionRequest) (string, error) {
	req.Stream = false

	resp, err := c.post(ctx, apiKey, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.NetworkError{Op: "chat completion", Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &domain.NetworkError{Op: "chat completion", StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}

// StreamCompletion sends a streaming request and ingests the event stream.
// The status is checked before any line is read.
func (c *Client) StreamCompletion(ctx context.Context, apiKey string, req *ChatCompletionRequest, emit func(domain.StreamEvent) error) (string, error) {
	req.Stream = true

	resp, err := c.post(ctx, apiKey, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return IngestStream(ctx, resp.Body, emit)
}

// post sends req and returns the response only for 2xx statuses.
func (c *Client) post(ctx context.Context, apiKey string, req *ChatCompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(httpReq, apiKey, req.Stream)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.NetworkError{Op: "chat completion", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, domain.StatusError("chat completion", resp.StatusCode, errorMessage(respBody))
	}
	return resp, nil
}

// errorMessage returns error.message from an upstream error body, or the
// trimmed body itself when it is not the expected shape.
func errorMessage(body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// setHeaders sets common request headers.
func setHeaders(req *http.Request, apiKey string, stream bool) {
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}
