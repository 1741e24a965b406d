// Package assistant provides the HTTP client for the stateful-run protocol:
// one endpoint, one `action` field per operation.
package assistant

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

// Actions understood by the run endpoint.
const (
	ActionCreateThread = "createThread"
	ActionAddMessage   = "addMessage"
	ActionRunAssistant = "runAssistant"
	ActionGetRunStatus = "getRunStatus"
	ActionGetMessages  = "getMessages"
	ActionGetAssistant = "getAssistant"
)

// ToolFileSearch is the upstream-hosted retrieval tool enabled on every run.
const ToolFileSearch = "file_search"

const maxErrorBodyBytes = 4096

// Client calls the stateful-run endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new run endpoint client.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Tool enables a tool on a run.
type Tool struct {
	Type string `json:"type"`
}

// Thread is the response of createThread.
type Thread struct {
	ID string `json:"id"`
}

// RunError is the upstream-reported reason a run stopped.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FileSearchCall carries the queries of an in-flight retrieval.
type FileSearchCall struct {
	Queries []string `json:"queries,omitempty"`
}

// FunctionCall names a function the run wants executed.
type FunctionCall struct {
	Name string `json:"name"`
}

// ToolCall is one tool invocation reported by the upstream.
type ToolCall struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	FileSearch *FileSearchCall `json:"file_search,omitempty"`
	Function   *FunctionCall   `json:"function,omitempty"`
}

// RequiredAction describes what a paused run is waiting for.
type RequiredAction struct {
	Type              string `json:"type"`
	SubmitToolOutputs struct {
		ToolCalls []ToolCall `json:"tool_calls"`
	} `json:"submit_tool_outputs"`
}

// Run is the response of runAssistant and getRunStatus.
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id,omitempty"`
	Status         string          `json:"status"`
	LastError      *RunError       `json:"last_error,omitempty"`
	ToolCalls      []ToolCall      `json:"tool_calls,omitempty"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
}

// TextValue is the text body of a content part.
type TextValue struct {
	Value string `json:"value"`
}

// ContentPart is one part of a thread message.
type ContentPart struct {
	Type string     `json:"type"`
	Text *TextValue `json:"text,omitempty"`
}

// Message is one thread message.
type Message struct {
	ID        string        `json:"id"`
	Role      string        `json:"role"`
	Content   []ContentPart `json:"content"`
	CreatedAt int64         `json:"created_at"`
}

// MessageList is the response of getMessages.
type MessageList struct {
	Data []Message `json:"data"`
}

// Config is the assistant configuration a run is started with.
type Config struct {
	AssistantID string `json:"id"`
	Model       string `json:"model"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateThread opens a new upstream thread.
func (c *Client) CreateThread(ctx context.Context, apiKey string) (string, error) {
	var thread Thread
	if err := c.call(ctx, apiKey, ActionCreateThread, nil, &thread); err != nil {
		return "", err
	}
	if thread.ID == "" {
		return "", &domain.NetworkError{Op: ActionCreateThread, Message: "response carried no thread id"}
	}
	return thread.ID, nil
}

// AddMessage appends a user message to a thread.
func (c *Client) AddMessage(ctx context.Context, apiKey, threadID, content string) error {
	return c.call(ctx, apiKey, ActionAddMessage, map[string]any{
		"threadId": threadID,
		"content":  content,
	}, nil)
}

// RunAssistant starts a run with the retrieval tool enabled.
func (c *Client) RunAssistant(ctx context.Context, apiKey, threadID string, cfg Config) (*Run, error) {
	var run Run
	if err := c.call(ctx, apiKey, ActionRunAssistant, map[string]any{
		"threadId":    threadID,
		"assistantId": cfg.AssistantID,
		"model":       cfg.Model,
		"tools":       []Tool{{Type: ToolFileSearch}},
	}, &run); err != nil {
		return nil, err
	}
	if run.ID == "" {
		return nil, &domain.NetworkError{Op: ActionRunAssistant, Message: "response carried no run id"}
	}
	return &run, nil
}

// GetRunStatus fetches the current state of a run.
func (c *Client) GetRunStatus(ctx context.Context, apiKey, threadID, runID string) (*Run, error) {
	var run Run
	if err := c.call(ctx, apiKey, ActionGetRunStatus, map[string]any{
		"threadId": threadID,
		"runId":    runID,
	}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetMessages lists the messages of a thread.
func (c *Client) GetMessages(ctx context.Context, apiKey, threadID string) ([]Message, error) {
	var list MessageList
	if err := c.call(ctx, apiKey, ActionGetMessages, map[string]any{
		"threadId": threadID,
	}, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// GetAssistant fetches the assistant configuration. An empty id asks the
// endpoint for its default assistant.
func (c *Client) GetAssistant(ctx context.Context, apiKey, assistantID string) (*Config, error) {
	fields := map[string]any{}
	if assistantID != "" {
		fields["assistantId"] = assistantID
	}
	var cfg Config
	if err := c.call(ctx, apiKey, ActionGetAssistant, fields, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// call posts {action, ...fields} and decodes a 2xx body into out.
func (c *Client) call(ctx context.Context, apiKey, action string, fields map[string]any, out any) error {
	payload := map[string]any{"action": action}
	for k, v := range fields {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: action, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return domain.StatusError(action, resp.StatusCode, errorMessage(respBody))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.NetworkError{Op: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func errorMessage(body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// ConfigLoaderFor returns a loader that fetches assistantID's configuration
// through c, for use with NewConfigCache.
func ConfigLoaderFor(c *Client, assistantID string) ConfigLoader {
	return func(ctx context.Context, apiKey string) (*Config, error) {
		return c.GetAssistant(ctx, apiKey, assistantID)
	}
}
