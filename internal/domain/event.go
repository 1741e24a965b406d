package domain

import "encoding/json"

// Event represents a diagnostic trace event of one conversion.
type Event struct {
	EventID      string          `json:"event_id"`
	ConversionID string          `json:"conversion_id"`
	Ts           int64           `json:"ts"` // Unix milliseconds
	Type         EventType       `json:"type"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// ConversionStartedPayload is the payload for conversion_started event.
type ConversionStartedPayload struct {
	Protocol    Protocol `json:"protocol"`
	Model       string   `json:"model"`
	PromptChars int      `json:"prompt_chars"`
}

// UpstreamCallDonePayload is the payload for upstream_call_done event.
type UpstreamCallDonePayload struct {
	Protocol  Protocol `json:"protocol"`
	LatencyMs int64    `json:"latency_ms"`
	Deltas    int      `json:"deltas,omitempty"`
	Polls     int      `json:"polls,omitempty"`
	TextChars int      `json:"text_chars"`
	Error     string   `json:"error,omitempty"`
}

// RunStatusPayload is the payload for run_status event.
type RunStatusPayload struct {
	ThreadID string   `json:"thread_id"`
	RunID    string   `json:"run_id"`
	State    RunState `json:"state"`
	Poll     int      `json:"poll"`
}

// ToolUsagePayload is the payload for tool_usage event.
type ToolUsagePayload struct {
	Tools   []string `json:"tools"`
	Queries []string `json:"queries,omitempty"`
}

// RepairAppliedPayload is the payload for repair_applied event.
type RepairAppliedPayload struct {
	Stage        RepairStage `json:"stage"`
	OriginalSize int         `json:"original_size"`
	RepairedSize int         `json:"repaired_size"`
}

// ConversionDonePayload is the payload for conversion_done event.
type ConversionDonePayload struct {
	Widgets     int         `json:"widgets"`
	RepairStage RepairStage `json:"repair_stage"`
	LatencyMs   int64       `json:"latency_ms"`
}

// ConversionFailedPayload is the payload for conversion_failed event.
type ConversionFailedPayload struct {
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	Original string    `json:"original,omitempty"`
	Repaired string    `json:"repaired,omitempty"`
}
