package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridianhq/steward"
	"github.com/meridianhq/steward/llm"
	"github.com/meridianhq/steward/notes"
	"github.com/meridianhq/steward/repair"
	"github.com/meridianhq/steward/workflow"
)

const analyzeSystemPrompt = `You are a careful wellbeing auditor. You read a person's journal
entries for one day and produce a JSON object with exactly these fields:
  "summary": a short paragraph summarizing the day,
  "risk_level": an integer from 0 (calm, healthy day) to 10 (acute concern),
  "insights": an array of short observations worth surfacing.
Respond with the JSON object only, no surrounding text.`

// Definition builds the daily-audit workflow over the given
// collaborators. The risk threshold for the approval gate comes from
// cfg.ApprovalRiskThreshold.
func Definition(repo notes.Store, client llm.Client, cfg steward.Config) *workflow.Definition {
	steps := &stepSet{repo: repo, client: client, cfg: cfg}

	return &workflow.Definition{
		Type: Type,
		Steps: map[string]workflow.StepFunc{
			workflow.NodeStart:   steps.start,
			NodeFetchNotes:       steps.fetchNotes,
			NodeAnalyze:          steps.analyze,
			NodeCheckApproval:    steps.checkApproval,
			NodeAwaitingApproval: steps.awaitingApproval,
			NodeSaveSummary:      steps.saveSummary,
		},
		Retryable: map[string]bool{
			NodeAnalyze: true,
		},
		PausePoints: map[string]bool{
			NodeAwaitingApproval: true,
		},
		Decode: decode,
		Resume: resume,
	}
}

type stepSet struct {
	repo   notes.Store
	client llm.Client
	cfg    steward.Config
}

func (t *stepSet) start(_ context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)
	if prev.Date == "" {
		return nil, fmt.Errorf("audit: no date supplied")
	}

	next := *prev
	next.Thread.CurrentNode = NodeFetchNotes
	return &next, nil
}

// fetchNotes loads the day's journal entries. A day with no notes has
// nothing to audit and completes immediately without calling the model.
func (t *stepSet) fetchNotes(ctx context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)

	found, err := t.repo.FindNotesForDate(ctx, prev.Date)
	if err != nil {
		return nil, err
	}

	next := *prev
	if len(found) == 0 {
		next.NoteContents = []string{}
		next.Thread.Complete()
		return &next, nil
	}

	next.NoteContents = make([]string, len(found))
	for i, n := range found {
		next.NoteContents[i] = llm.Sanitize(n.Content)
	}
	next.Thread.CurrentNode = NodeAnalyze
	return &next, nil
}

// analyze asks the model for a summary, risk level, and insights. An
// unusable response is a step failure, which routes through the retry
// policy because the node is marked retryable.
func (t *stepSet) analyze(ctx context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)

	var b strings.Builder
	fmt.Fprintf(&b, "Journal entries for %s:\n\n", prev.Date)
	for i, content := range prev.NoteContents {
		fmt.Fprintf(&b, "Entry %d:\n%s\n\n", i+1, content)
	}

	raw, err := t.client.GenerateResponse(ctx, []llm.Message{
		llm.System(analyzeSystemPrompt),
		llm.User(b.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: analyze: %w", err)
	}

	analysis := repair.Decode(raw, Analysis{})
	if analysis.Summary == "" {
		return nil, fmt.Errorf("audit: analyze: unusable model response")
	}

	next := *prev
	next.Analysis = &analysis
	next.Thread.CurrentNode = NodeCheckApproval
	return &next, nil
}

// checkApproval pauses the thread when human approval is enabled and
// the analyzed risk meets the configured threshold.
func (t *stepSet) checkApproval(_ context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)
	if prev.Analysis == nil {
		return nil, fmt.Errorf("audit: checkApproval: no analysis on state")
	}

	next := *prev
	if prev.RequiresHumanApproval && prev.Analysis.RiskLevel >= t.cfg.ApprovalRiskThreshold {
		next.RequiresApproval = true
		next.Thread.Status = workflow.StatusPaused
		next.Thread.CurrentNode = NodeAwaitingApproval
		return &next, nil
	}

	next.Thread.CurrentNode = NodeSaveSummary
	return &next, nil
}

// awaitingApproval only ever runs if the loop is re-entered without a
// decision, which the engine prevents. It re-pauses as a safety net.
func (t *stepSet) awaitingApproval(_ context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)

	next := *prev
	next.Thread.Status = workflow.StatusPaused
	return &next, nil
}

// saveSummary commits the analysis exactly once.
func (t *stepSet) saveSummary(ctx context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)
	if prev.Analysis == nil {
		return nil, fmt.Errorf("audit: saveSummary: no analysis on state")
	}

	next := *prev
	if !prev.SummarySaved {
		a := prev.Analysis
		if err := t.repo.SaveDailySummary(ctx, prev.Date, a.Summary, a.RiskLevel, a.Insights); err != nil {
			return nil, err
		}
		next.SummarySaved = true
	}

	next.Thread.Complete()
	return &next, nil
}
