package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xiaot623/gogo/pagegen/internal/adapter/assistant"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

const defaultMaxPolls = 60

// RunAPI is the part of the run endpoint the orchestrator drives.
type RunAPI interface {
	CreateThread(ctx context.Context, apiKey string) (string, error)
	AddMessage(ctx context.Context, apiKey, threadID, content string) error
	RunAssistant(ctx context.Context, apiKey, threadID string, cfg assistant.Config) (*assistant.Run, error)
	GetRunStatus(ctx context.Context, apiKey, threadID, runID string) (*assistant.Run, error)
	GetMessages(ctx context.Context, apiKey, threadID string) ([]assistant.Message, error)
}

var _ RunAPI = (*assistant.Client)(nil)

// RunOrchestrator drives one stateful run from thread creation to the
// final assistant text.
type RunOrchestrator struct {
	api             RunAPI
	assistantConfig *assistant.ConfigCache
	pollInterval    time.Duration
	maxPolls        int
}

// NewRunOrchestrator creates a run orchestrator. maxPolls bounds the number
// of getRunStatus calls per run.
func NewRunOrchestrator(api RunAPI, assistantConfig *assistant.ConfigCache, pollInterval time.Duration, maxPolls int) *RunOrchestrator {
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	return &RunOrchestrator{
		api:             api,
		assistantConfig: assistantConfig,
		pollInterval:    pollInterval,
		maxPolls:        maxPolls,
	}
}

// Run posts prompt to a fresh thread, waits for the run to finish and
// returns the text of the newest assistant message. model overrides the
// configured assistant model when set. emit may be nil.
func (o *RunOrchestrator) Run(ctx context.Context, prompt, credential, model string, emit func(domain.Progress) error) (string, error) {
	if emit == nil {
		emit = func(domain.Progress) error { return nil }
	}

	cfg, err := o.assistantConfig.Get(ctx, credential)
	if err != nil {
		return "", err
	}
	if model != "" {
		cfg.Model = model
	}

	threadID, err := o.api.CreateThread(ctx, credential)
	if err != nil {
		return "", contextError(ctx, err, 0)
	}
	if err := o.api.AddMessage(ctx, credential, threadID, prompt); err != nil {
		return "", contextError(ctx, err, 0)
	}
	run, err := o.api.RunAssistant(ctx, credential, threadID, cfg)
	if err != nil {
		return "", contextError(ctx, err, 0)
	}
	runID := run.ID

	state := runState(run)
	if err := emit(domain.Progress{Kind: domain.ProgressRunStatus, ThreadID: threadID, RunID: runID, State: state, Ts: time.Now().UnixMilli()}); err != nil {
		return "", contextError(ctx, err, 0)
	}

	tools := newToolTracker()
	polls := 0
	for !state.Terminal() {
		if polls >= o.maxPolls {
			return "", &domain.TimeoutError{Polls: polls}
		}
		if err := sleepContext(ctx, o.pollInterval); err != nil {
			return "", contextError(ctx, err, polls)
		}
		polls++

		run, err = o.api.GetRunStatus(ctx, credential, threadID, runID)
		if err != nil {
			return "", contextError(ctx, err, polls)
		}

		next := runState(run)
		if next != state {
			if err := emit(domain.Progress{Kind: domain.ProgressRunStatus, ThreadID: threadID, RunID: runID, State: next, Poll: polls, Ts: time.Now().UnixMilli()}); err != nil {
				return "", contextError(ctx, err, polls)
			}
		}
		state = next

		if !state.Terminal() {
			if names, queries, ok := tools.observe(run.ToolCalls); ok {
				if err := emit(domain.Progress{Kind: domain.ProgressToolUsage, ThreadID: threadID, RunID: runID, Tools: names, Queries: queries, Poll: polls, Ts: time.Now().UnixMilli()}); err != nil {
					return "", contextError(ctx, err, polls)
				}
			}
		}
	}

	switch state {
	case domain.RunStateCompleted:
		return o.collectText(ctx, credential, threadID, polls)
	case domain.RunStateRequiresAction:
		return "", &domain.ToolUseUnsupportedError{RunID: runID, Tools: requiredTools(run)}
	default:
		runErr := &domain.UpstreamRunError{RunID: runID, State: state}
		if run.LastError != nil {
			runErr.Code = run.LastError.Code
			runErr.Reason = run.LastError.Message
		}
		return "", runErr
	}
}

// collectText returns the concatenated text parts of the newest assistant message.
func (o *RunOrchestrator) collectText(ctx context.Context, credential, threadID string, polls int) (string, error) {
	messages, err := o.api.GetMessages(ctx, credential, threadID)
	if err != nil {
		return "", contextError(ctx, err, polls)
	}

	var newest *assistant.Message
	for i := range messages {
		msg := &messages[i]
		if msg.Role != "assistant" {
			continue
		}
		if newest == nil || msg.CreatedAt > newest.CreatedAt {
			newest = msg
		}
	}
	if newest == nil {
		return "", &domain.ExtractionError{Reason: "run completed without an assistant message"}
	}

	var sb strings.Builder
	for _, part := range newest.Content {
		if part.Type == "text" && part.Text != nil {
			sb.WriteString(part.Text.Value)
		}
	}
	return sb.String(), nil
}

func runState(run *assistant.Run) domain.RunState {
	state, known := domain.ParseRunState(run.Status)
	if !known {
		log.Printf("WARN: run %s reported unknown status %q, continuing to poll", run.ID, run.Status)
	}
	return state
}

func requiredTools(run *assistant.Run) []string {
	var calls []assistant.ToolCall
	if run.RequiredAction != nil {
		calls = run.RequiredAction.SubmitToolOutputs.ToolCalls
	}
	if len(calls) == 0 {
		calls = run.ToolCalls
	}
	var names []string
	for _, call := range calls {
		if call.Function != nil && call.Function.Name != "" {
			names = append(names, call.Function.Name)
		} else if call.Type != "" {
			names = append(names, call.Type)
		}
	}
	return names
}

// toolTracker reports each tool call once per distinct set of queries.
type toolTracker struct {
	seen map[string]struct{}
}

func newToolTracker() *toolTracker {
	return &toolTracker{seen: make(map[string]struct{})}
}

func (t *toolTracker) observe(calls []assistant.ToolCall) ([]string, []string, bool) {
	var names, queries []string
	for i, call := range calls {
		var callQueries []string
		if call.FileSearch != nil {
			callQueries = call.FileSearch.Queries
		}
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("%s#%d", call.Type, i)
		}
		key := id + "|" + strings.Join(callQueries, "\x1f")
		if _, ok := t.seen[key]; ok {
			continue
		}
		t.seen[key] = struct{}{}

		if call.Type != "" && !contains(names, call.Type) {
			names = append(names, call.Type)
		}
		queries = append(queries, callQueries...)
	}
	return names, queries, len(names) > 0 || len(queries) > 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// contextError turns failures caused by the request deadline into a TimeoutError.
func contextError(ctx context.Context, err error, polls int) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		var timeout *domain.TimeoutError
		if errors.As(err, &timeout) {
			return err
		}
		return &domain.TimeoutError{Polls: polls, Err: err}
	}
	return err
}
