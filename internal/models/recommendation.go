package models

// Recommendation is the structured product suggestion returned to the wizard.
// An empty URL means no link could be extracted.
type Recommendation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// HasURL reports whether a product link is present.
func (r Recommendation) HasURL() bool {
	return r.URL != ""
}

// RunStatus is the execution state reported by the assistant service for a run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// IsTerminal reports whether polling should stop at this status.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the run ended without producing an answer.
func (s RunStatus) IsFailure() bool {
	switch s {
	case RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	default:
		return false
	}
}

// ConversationSession tracks one thread/run pair for a single recommendation request.
// It is created per request and never shared or reused.
type ConversationSession struct {
	ThreadID string    `json:"threadId"`
	RunID    string    `json:"runId,omitempty"`
	Status   RunStatus `json:"status"`
	Polls    int       `json:"polls"`
}
