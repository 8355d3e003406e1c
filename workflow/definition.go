package workflow

import (
	"context"
	"encoding/json"
)

// StepFunc executes one node of a workflow. It receives the current
// state and returns the replacement state. Returning an error signals a
// step failure; for retryable nodes the engine applies the retry
// policy, otherwise the thread fails terminally.
type StepFunc func(ctx context.Context, s State) (State, error)

// Decision is the input applied to a paused thread on resume.
type Decision struct {
	Approved bool `json:"approved"`
}

// Definition describes one workflow type: its nodes, which of them are
// governed by the retry policy, where it may pause, and how its state
// is created, decoded, and resumed.
type Definition struct {
	// Type is the unique workflow type name, e.g. "daily-audit".
	Type string

	// Steps maps node names to step functions. NodeEnd has no entry.
	Steps map[string]StepFunc

	// Retryable marks nodes whose failures go through the retry policy
	// (steps that call the LLM service). Failures of other nodes fail
	// the thread immediately.
	Retryable map[string]bool

	// PausePoints marks nodes from which Resume may be called.
	PausePoints map[string]bool

	// Decode unmarshals a checkpointed state snapshot into the
	// workflow's concrete state type.
	Decode func(raw json.RawMessage) (State, error)

	// Resume applies a human decision to a paused state: it sets the
	// approval fields and chooses the next node deterministically. The
	// engine flips the status back to running and persists before
	// re-entering the loop.
	Resume func(s State, d Decision) (State, error)
}

// Step returns the step function for the given node.
func (d *Definition) Step(node string) (StepFunc, bool) {
	fn, ok := d.Steps[node]
	return fn, ok
}

// PausePoint reports whether node is a registered pause point.
func (d *Definition) PausePoint(node string) bool {
	return d.PausePoints[node]
}
