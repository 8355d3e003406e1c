// Package routine implements the routine-generation workflow: read the
// previous day's summary, have the language model draft a structured
// daily schedule, validate the draft against structural rules with a
// bounded feedback loop, and commit the accepted routine.
package routine

import (
	"encoding/json"
	"fmt"

	"github.com/meridianhq/steward/notes"
	"github.com/meridianhq/steward/workflow"
)

// Type is the registered workflow type name.
const Type = "routine-generation"

// Node names for the routine-generation graph.
const (
	NodeFetchContext = "fetchContext"
	NodeGenerate     = "generate"
	NodeValidate     = "validate"
	NodeSaveRoutine  = "saveRoutine"
)

// State is the routine-generation workflow state.
type State struct {
	Thread workflow.Meta `json:"thread"`

	// Date is the day to plan in YYYY-MM-DD form. Caller input.
	Date string `json:"date"`

	// PreviousSummary carries the prior day's audit result into the
	// generation prompt. Empty when no prior summary exists.
	PreviousSummary string `json:"previous_summary,omitempty"`

	// PreviousRiskLevel is the prior day's risk score, if any.
	PreviousRiskLevel int `json:"previous_risk_level,omitempty"`

	// Activities is the model's latest draft schedule.
	Activities []notes.Activity `json:"activities,omitempty"`

	// ValidationAttempts counts drafts rejected by the validator. It is
	// never reset; the feedback loop is bounded across the whole run.
	ValidationAttempts int `json:"validation_attempts"`

	// Recommendations accumulates validator feedback for the next
	// generation prompt.
	Recommendations []string `json:"recommendations,omitempty"`

	// RoutineSaved records that the commit side effect happened.
	RoutineSaved bool `json:"routine_saved"`
}

// Meta returns the embedded thread record.
func (s *State) Meta() *workflow.Meta { return &s.Thread }

// NewState returns the initial state for planning one day.
func NewState(date string) *State {
	return &State{Date: date}
}

func decode(raw json.RawMessage) (workflow.State, error) {
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("routine: decode state: %w", err)
	}
	return &s, nil
}
