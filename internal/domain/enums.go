// Package domain defines the core domain models for the page generator.
package domain

// Protocol selects how raw text is obtained from the upstream service.
type Protocol string

const (
	// ProtocolStream is a direct chat completion delivered as a server-sent event stream.
	ProtocolStream Protocol = "stream"
	// ProtocolCompletion is a direct chat completion delivered as one JSON body.
	ProtocolCompletion Protocol = "completion"
	// ProtocolRun is an assistant run against a stateful thread, driven by polling.
	ProtocolRun Protocol = "run"
)

// Valid reports whether p names a supported protocol.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolStream, ProtocolCompletion, ProtocolRun:
		return true
	}
	return false
}

// RunState represents the status of an upstream assistant run.
type RunState string

const (
	RunStateQueued         RunState = "queued"
	RunStateInProgress     RunState = "in_progress"
	RunStateRequiresAction RunState = "requires_action"
	RunStateCompleted      RunState = "completed"
	RunStateFailed         RunState = "failed"
	RunStateCancelled      RunState = "cancelled"
	RunStateExpired        RunState = "expired"
)

// ParseRunState maps an upstream status string onto a RunState.
// "cancelling" is still moving, "incomplete" ended without output.
// The second return value is false for statuses this service does not know.
func ParseRunState(status string) (RunState, bool) {
	switch status {
	case "queued":
		return RunStateQueued, true
	case "in_progress", "cancelling":
		return RunStateInProgress, true
	case "requires_action":
		return RunStateRequiresAction, true
	case "completed":
		return RunStateCompleted, true
	case "failed", "incomplete":
		return RunStateFailed, true
	case "cancelled":
		return RunStateCancelled, true
	case "expired":
		return RunStateExpired, true
	}
	return RunState(status), false
}

// Terminal reports whether no further transition can happen.
// requires_action counts as terminal: tool outputs are never submitted back.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed, RunStateCancelled, RunStateExpired, RunStateRequiresAction:
		return true
	}
	return false
}

// RepairStage records which stage produced the text that finally parsed.
type RepairStage string

const (
	RepairStageNone      RepairStage = "none"
	RepairStageSanitized RepairStage = "sanitized"
	RepairStageRepaired  RepairStage = "sanitized+structurally-repaired"
)

// StreamEventKind discriminates StreamEvent values.
type StreamEventKind string

const (
	StreamEventTextDelta StreamEventKind = "text_delta"
	StreamEventDone      StreamEventKind = "done"
)

// ProgressKind discriminates Progress values sent to callers.
type ProgressKind string

const (
	ProgressTextDelta ProgressKind = "text_delta"
	ProgressToolUsage ProgressKind = "tool_usage"
	ProgressRunStatus ProgressKind = "run_status"
)

// ConversionStatus represents the lifecycle of a traced conversion.
type ConversionStatus string

const (
	ConversionStatusRunning   ConversionStatus = "RUNNING"
	ConversionStatusSucceeded ConversionStatus = "SUCCEEDED"
	ConversionStatusFailed    ConversionStatus = "FAILED"
)

// EventType represents the type of a diagnostic trace event.
type EventType string

const (
	EventTypeConversionStarted EventType = "conversion_started"
	EventTypeUpstreamCallDone  EventType = "upstream_call_done"
	EventTypeRunStatus         EventType = "run_status"
	EventTypeToolUsage         EventType = "tool_usage"
	EventTypeRepairApplied     EventType = "repair_applied"
	EventTypeConversionDone    EventType = "conversion_done"
	EventTypeConversionFailed  EventType = "conversion_failed"
)
