package workflow

import (
	"github.com/meridianhq/steward"
	"github.com/meridianhq/steward/id"
)

// Status represents the lifecycle status of a workflow thread.
type Status string

const (
	// StatusRunning means the thread is currently executing.
	StatusRunning Status = "running"
	// StatusPaused means the thread is halted at a pause point awaiting
	// a human decision. Only Resume may continue it.
	StatusPaused Status = "paused"
	// StatusCompleted means the thread finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the thread failed terminally.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status permits no further execution.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Sentinel node names shared by all workflow definitions.
const (
	// NodeStart is the entry node of every workflow.
	NodeStart = "start"
	// NodeEnd marks the end of execution; reaching it completes the thread.
	NodeEnd = "end"
)

// Meta is the common record embedded in every workflow state. ThreadID
// is assigned once at creation and immutable thereafter. RetryCount is
// reset to zero whenever a step succeeds and transitions to a new node.
type Meta struct {
	steward.Entity

	ThreadID    id.ThreadID `json:"thread_id"`
	Status      Status      `json:"status"`
	CurrentNode string      `json:"current_node"`
	RetryCount  int         `json:"retry_count"`
	Error       string      `json:"error,omitempty"`
}

// NewMeta returns a Meta for a fresh thread positioned at the start node.
func NewMeta(threadID id.ThreadID) Meta {
	return Meta{
		Entity:      steward.NewEntity(),
		ThreadID:    threadID,
		Status:      StatusRunning,
		CurrentNode: NodeStart,
	}
}

// Fail marks the state failed with the given message and parks the
// node. The error message is the terminal record of what went wrong.
func (m *Meta) Fail(msg string) {
	m.Status = StatusFailed
	m.Error = msg
}

// Complete marks the state completed at the end node.
func (m *Meta) Complete() {
	m.Status = StatusCompleted
	m.CurrentNode = NodeEnd
}

// State is implemented by workflow-specific state records. A State is
// treated as an immutable value: step functions copy it, mutate the
// copy, and return the copy.
type State interface {
	// Meta returns the embedded common record.
	Meta() *Meta
}
