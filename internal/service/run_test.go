package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xiaot623/gogo/pagegen/internal/adapter/assistant"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// fakeRunAPI replays scripted run states. The last entry repeats forever.
type fakeRunAPI struct {
	initial   string
	runs      []assistant.Run
	messages  []assistant.Message
	createErr error

	polls     int
	gotPrompt string
	gotConfig assistant.Config
}

func (f *fakeRunAPI) CreateThread(ctx context.Context, apiKey string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "thread_1", nil
}

func (f *fakeRunAPI) AddMessage(ctx context.Context, apiKey, threadID, content string) error {
	f.gotPrompt = content
	return nil
}

func (f *fakeRunAPI) RunAssistant(ctx context.Context, apiKey, threadID string, cfg assistant.Config) (*assistant.Run, error) {
	f.gotConfig = cfg
	return &assistant.Run{ID: "run_1", ThreadID: threadID, Status: f.initial}, nil
}

func (f *fakeRunAPI) GetRunStatus(ctx context.Context, apiKey, threadID, runID string) (*assistant.Run, error) {
	f.polls++
	idx := f.polls - 1
	if idx >= len(f.runs) {
		idx = len(f.runs) - 1
	}
	run := f.runs[idx]
	run.ID = runID
	return &run, nil
}

func (f *fakeRunAPI) GetMessages(ctx context.Context, apiKey, threadID string) ([]assistant.Message, error) {
	return f.messages, nil
}

func statuses(list ...string) []assistant.Run {
	runs := make([]assistant.Run, len(list))
	for i, s := range list {
		runs[i] = assistant.Run{Status: s}
	}
	return runs
}

func textMessage(role string, createdAt int64, parts ...string) assistant.Message {
	msg := assistant.Message{ID: "msg", Role: role, CreatedAt: createdAt}
	for _, p := range parts {
		msg.Content = append(msg.Content, assistant.ContentPart{Type: "text", Text: &assistant.TextValue{Value: p}})
	}
	return msg
}

func newTestOrchestrator(api RunAPI, maxPolls int) *RunOrchestrator {
	cfg := assistant.StaticConfig(assistant.Config{AssistantID: "asst_1", Model: "gpt-4o"})
	return NewRunOrchestrator(api, cfg, time.Millisecond, maxPolls)
}

func TestRunCompletesAfterFourPolls(t *testing.T) {
	newest := textMessage("assistant", 5, "Hello ", "world")
	newest.Content = append(newest.Content, assistant.ContentPart{Type: "image_file"})
	api := &fakeRunAPI{
		initial: "queued",
		runs:    statuses("queued", "in_progress", "in_progress", "completed"),
		messages: []assistant.Message{
			newest,
			textMessage("user", 1, "make a page"),
			textMessage("assistant", 2, "stale"),
		},
	}

	var progress []domain.Progress
	text, err := newTestOrchestrator(api, 10).Run(context.Background(), "make a page", "sk-test", "", func(p domain.Progress) error {
		progress = append(progress, p)
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if text != "Hello world" {
		t.Fatalf("expected newest assistant text, got %q", text)
	}
	if api.polls != 4 {
		t.Fatalf("expected 4 polls, got %d", api.polls)
	}
	if api.gotPrompt != "make a page" || api.gotConfig.AssistantID != "asst_1" || api.gotConfig.Model != "gpt-4o" {
		t.Fatalf("unexpected run input: prompt=%q config=%+v", api.gotPrompt, api.gotConfig)
	}

	want := []domain.RunState{domain.RunStateQueued, domain.RunStateInProgress, domain.RunStateCompleted}
	if len(progress) != len(want) {
		t.Fatalf("expected %d status updates, got %+v", len(want), progress)
	}
	for i, p := range progress {
		if p.Kind != domain.ProgressRunStatus || p.State != want[i] || p.RunID != "run_1" || p.ThreadID != "thread_1" {
			t.Fatalf("unexpected progress %d: %+v", i, p)
		}
	}
}

func TestRunModelOverride(t *testing.T) {
	api := &fakeRunAPI{
		initial:  "completed",
		runs:     statuses("completed"),
		messages: []assistant.Message{textMessage("assistant", 1, "{}")},
	}
	if _, err := newTestOrchestrator(api, 10).Run(context.Background(), "p", "sk-test", "gpt-4o-mini", nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if api.gotConfig.Model != "gpt-4o-mini" {
		t.Fatalf("expected model override, got %q", api.gotConfig.Model)
	}
	if api.polls != 0 {
		t.Fatalf("expected no polls for an already completed run, got %d", api.polls)
	}
}

func TestRunTimesOutAfterMaxPolls(t *testing.T) {
	api := &fakeRunAPI{initial: "queued", runs: statuses("in_progress")}

	_, err := newTestOrchestrator(api, 3).Run(context.Background(), "p", "sk-test", "", nil)
	var timeout *domain.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeout.Polls != 3 || api.polls != 3 {
		t.Fatalf("expected exactly 3 polls, got error polls=%d api polls=%d", timeout.Polls, api.polls)
	}
}

func TestRunDeadlineIsTimeout(t *testing.T) {
	api := &fakeRunAPI{initial: "queued", runs: statuses("in_progress")}
	orch := NewRunOrchestrator(api, assistant.StaticConfig(assistant.Config{AssistantID: "asst_1"}), 5*time.Millisecond, 100000)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := orch.Run(ctx, "p", "sk-test", "", nil)
	var timeout *domain.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", err)
	}
}

func TestRunTerminalFailures(t *testing.T) {
	tests := []struct {
		status string
		state  domain.RunState
	}{
		{"failed", domain.RunStateFailed},
		{"incomplete", domain.RunStateFailed},
		{"cancelled", domain.RunStateCancelled},
		{"expired", domain.RunStateExpired},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			final := assistant.Run{Status: tt.status, LastError: &assistant.RunError{Code: "rate_limit_exceeded", Message: "slow down"}}
			api := &fakeRunAPI{initial: "queued", runs: []assistant.Run{{Status: "in_progress"}, final}}

			_, err := newTestOrchestrator(api, 10).Run(context.Background(), "p", "sk-test", "", nil)
			var runErr *domain.UpstreamRunError
			if !errors.As(err, &runErr) {
				t.Fatalf("expected UpstreamRunError, got %v", err)
			}
			if runErr.State != tt.state || runErr.Code != "rate_limit_exceeded" || runErr.Reason != "slow down" || runErr.RunID != "run_1" {
				t.Fatalf("unexpected error: %+v", runErr)
			}
			if domain.KindOf(err) != domain.KindUpstreamRun {
				t.Fatalf("unexpected kind %s", domain.KindOf(err))
			}
		})
	}
}

func TestRunRequiresActionIsUnsupported(t *testing.T) {
	final := assistant.Run{Status: "requires_action", RequiredAction: &assistant.RequiredAction{Type: "submit_tool_outputs"}}
	final.RequiredAction.SubmitToolOutputs.ToolCalls = []assistant.ToolCall{
		{ID: "call_1", Type: "function", Function: &assistant.FunctionCall{Name: "lookup_price"}},
	}
	api := &fakeRunAPI{initial: "in_progress", runs: []assistant.Run{final}}

	_, err := newTestOrchestrator(api, 10).Run(context.Background(), "p", "sk-test", "", nil)
	var unsupported *domain.ToolUseUnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ToolUseUnsupportedError, got %v", err)
	}
	if len(unsupported.Tools) != 1 || unsupported.Tools[0] != "lookup_price" {
		t.Fatalf("unexpected tools: %v", unsupported.Tools)
	}
}

func TestRunReportsToolUsageOnce(t *testing.T) {
	searching := assistant.Run{
		Status: "in_progress",
		ToolCalls: []assistant.ToolCall{
			{ID: "call_1", Type: "file_search", FileSearch: &assistant.FileSearchCall{Queries: []string{"pricing tiers"}}},
		},
	}
	api := &fakeRunAPI{
		initial:  "queued",
		runs:     []assistant.Run{searching, searching, {Status: "completed"}},
		messages: []assistant.Message{textMessage("assistant", 1, "{}")},
	}

	var usage []domain.Progress
	_, err := newTestOrchestrator(api, 10).Run(context.Background(), "p", "sk-test", "", func(p domain.Progress) error {
		if p.Kind == domain.ProgressToolUsage {
			usage = append(usage, p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("expected one tool usage update, got %+v", usage)
	}
	if len(usage[0].Tools) != 1 || usage[0].Tools[0] != "file_search" {
		t.Fatalf("unexpected tools: %v", usage[0].Tools)
	}
	if len(usage[0].Queries) != 1 || usage[0].Queries[0] != "pricing tiers" {
		t.Fatalf("unexpected queries: %v", usage[0].Queries)
	}
}

func TestRunCompletedWithoutAssistantMessage(t *testing.T) {
	api := &fakeRunAPI{
		initial:  "completed",
		runs:     statuses("completed"),
		messages: []assistant.Message{textMessage("user", 1, "p")},
	}

	_, err := newTestOrchestrator(api, 10).Run(context.Background(), "p", "sk-test", "", nil)
	if domain.KindOf(err) != domain.KindExtraction {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestRunPropagatesAuthError(t *testing.T) {
	api := &fakeRunAPI{createErr: domain.StatusError("createThread", 401, "invalid api key")}

	_, err := newTestOrchestrator(api, 10).Run(context.Background(), "p", "sk-bad", "", nil)
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != 401 {
		t.Fatalf("expected wrapped NetworkError, got %v", err)
	}
}

func TestRunStopsWhenEmitFails(t *testing.T) {
	api := &fakeRunAPI{initial: "queued", runs: statuses("in_progress")}
	stop := errors.New("receiver gone")

	_, err := newTestOrchestrator(api, 10).Run(context.Background(), "p", "sk-test", "", func(domain.Progress) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected emit error, got %v", err)
	}
	if api.polls != 0 {
		t.Fatalf("expected no polls, got %d", api.polls)
	}
}
