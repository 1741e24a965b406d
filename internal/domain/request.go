package domain

import "time"

// ConversionRequest is one call into the conversion pipeline.
type ConversionRequest struct {
	Prompt     string
	Credential string
	Protocol   Protocol
	// Model overrides the configured model when set.
	Model string
	// Title overrides any title found in the generated text.
	Title string
	// Progress, when non-nil, receives deltas and run updates. Sends block
	// until the receiver pulls or the request context ends.
	Progress chan<- Progress
}

// StreamEvent is one parsed event of a direct-completion stream.
type StreamEvent struct {
	Kind StreamEventKind `json:"kind"`
	Text string          `json:"text,omitempty"`
}

// Progress is an observational update delivered while a conversion runs.
type Progress struct {
	Kind     ProgressKind `json:"kind"`
	Text     string       `json:"text,omitempty"`
	ThreadID string       `json:"thread_id,omitempty"`
	RunID    string       `json:"run_id,omitempty"`
	State    RunState     `json:"state,omitempty"`
	Poll     int          `json:"poll,omitempty"`
	Tools    []string     `json:"tools,omitempty"`
	Queries  []string     `json:"queries,omitempty"`
	Ts       int64        `json:"ts"`
}

// ConversionResult is produced exactly once per successful request.
type ConversionResult struct {
	ConversionID string      `json:"conversion_id"`
	Document     *Document   `json:"document"`
	RepairStage  RepairStage `json:"repair_stage"`
	RawText      string      `json:"-"`
}

// Conversion is the diagnostic trace record of one request.
type Conversion struct {
	ConversionID string           `json:"conversion_id"`
	Protocol     Protocol         `json:"protocol"`
	Model        string           `json:"model"`
	Status       ConversionStatus `json:"status"`
	RepairStage  RepairStage      `json:"repair_stage,omitempty"`
	ErrorKind    ErrorKind        `json:"error_kind,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
}
