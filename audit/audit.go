// Package audit implements the daily-audit workflow: fetch a day's
// journal notes, have the language model summarize them and score risk,
// pause for human approval when the risk is high, and commit the
// resulting daily summary.
package audit

import (
	"encoding/json"
	"fmt"

	"github.com/meridianhq/steward/workflow"
)

// Type is the registered workflow type name.
const Type = "daily-audit"

// Node names for the daily-audit graph.
const (
	NodeFetchNotes       = "fetchNotes"
	NodeAnalyze          = "analyze"
	NodeCheckApproval    = "checkApproval"
	NodeAwaitingApproval = "awaitingApproval"
	NodeSaveSummary      = "saveSummary"
)

// Analysis is the structured result produced by the analyze step.
type Analysis struct {
	Summary   string   `json:"summary"`
	RiskLevel int      `json:"risk_level"`
	Insights  []string `json:"insights"`
}

// State is the daily-audit workflow state. Steps treat it as an
// immutable value: copy, mutate the copy, return the copy.
type State struct {
	Thread workflow.Meta `json:"thread"`

	// Date is the audited day in YYYY-MM-DD form. Caller input.
	Date string `json:"date"`

	// RequiresHumanApproval enables the approval gate. Caller input.
	RequiresHumanApproval bool `json:"requires_human_approval"`

	// NoteContents holds the journal entries fetched for Date.
	NoteContents []string `json:"note_contents,omitempty"`

	// Analysis is set by the analyze step.
	Analysis *Analysis `json:"analysis,omitempty"`

	// RequiresApproval records that the approval gate fired.
	RequiresApproval bool `json:"requires_approval"`

	// Approved records the human decision applied on resume.
	Approved bool `json:"approved"`

	// SummarySaved records that the commit side effect happened, so a
	// re-run after a crash cannot save the summary twice.
	SummarySaved bool `json:"summary_saved"`
}

// Meta returns the embedded thread record.
func (s *State) Meta() *workflow.Meta { return &s.Thread }

// NewState returns the initial state for auditing one day.
func NewState(date string, requiresHumanApproval bool) *State {
	return &State{
		Date:                  date,
		RequiresHumanApproval: requiresHumanApproval,
	}
}

func decode(raw json.RawMessage) (workflow.State, error) {
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("audit: decode state: %w", err)
	}
	return &s, nil
}

// resume applies the human decision. Approval advances to the commit
// step; rejection completes the thread with no commit.
func resume(s workflow.State, d workflow.Decision) (workflow.State, error) {
	prev, ok := s.(*State)
	if !ok {
		return nil, fmt.Errorf("audit: resume: unexpected state type %T", s)
	}

	next := *prev
	next.Approved = d.Approved
	if d.Approved {
		next.Thread.CurrentNode = NodeSaveSummary
	} else {
		next.Thread.Complete()
	}
	return &next, nil
}
