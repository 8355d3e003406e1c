package routine

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

const generateSystemPrompt = `You are a thoughtful daily planner. Produce a JSON object with
exactly one field:
  "activities": an array of objects, each with
    "time": a 24-hour HH:MM start time,
    "activity": a short activity name,
    "description": one or two sentences describing the activity.
Schedule at least 3 activities in chronological order.
Respond with the JSON object only, no surrounding text.`

// Definition builds the routine-generation workflow over the given
// collaborators. The validation feedback loop is bounded by
// cfg.MaxValidationAttempts.
func Definition(repo notes.Store, client llm.Client, cfg steward.Config) *workflow.Definition {
	steps := &stepSet{repo: repo, client: client, cfg: cfg}

	return &workflow.Definition{
		Type: Type,
		Steps: map[string]workflow.StepFunc{
			workflow.NodeStart: steps.start,
			NodeFetchContext:   steps.fetchContext,
			NodeGenerate:       steps.generate,
			NodeValidate:       steps.validate,
			NodeSaveRoutine:    steps.saveRoutine,
		},
		Retryable: map[string]bool{
			NodeGenerate: true,
		},
		Decode: decode,
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
		return nil, fmt.Errorf("routine: no date supplied")
	}

	next := *prev
	next.Thread.CurrentNode = NodeFetchContext
	return &next, nil
}

// fetchContext loads the most recent audit summary before the planned
// day. A missing summary is fine; the prompt just carries less context.
func (t *stepSet) fetchContext(ctx context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)

	summary, err := t.repo.FindPreviousSummary(ctx, prev.Date)
	if err != nil {
		return nil, err
	}

	next := *prev
	if summary != nil {
		next.PreviousSummary = summary.Summary
		next.PreviousRiskLevel = summary.RiskLevel
	}
	next.Thread.CurrentNode = NodeGenerate
	return &next, nil
}

// generate asks the model for a draft schedule. Accumulated validator
// feedback is folded into the prompt so each attempt addresses the
// previous rejection.
func (t *stepSet) generate(ctx context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)

	var b strings.Builder
	fmt.Fprintf(&b, "Plan a daily routine for %s.\n", prev.Date)
	if prev.PreviousSummary != "" {
		fmt.Fprintf(&b, "\nYesterday's summary (risk level %d):\n%s\n", prev.PreviousRiskLevel, prev.PreviousSummary)
	}
	if len(prev.Recommendations) > 0 {
		b.WriteString("\nYour previous draft was rejected. Address every point below:\n")
		for _, rec := range prev.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	raw, err := t.client.GenerateResponse(ctx, []llm.Message{
		llm.System(generateSystemPrompt),
		llm.User(b.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("routine: generate: %w", err)
	}

	var draft struct {
		Activities []notes.Activity `json:"activities"`
	}
	draft = repair.Decode(raw, draft)
	if len(draft.Activities) == 0 {
		return nil, fmt.Errorf("routine: generate: unusable model response")
	}

	next := *prev
	next.Activities = draft.Activities
	next.Thread.CurrentNode = NodeValidate
	return &next, nil
}

// validate checks the draft. A violation sends the state back to the
// generation node with the message appended to the recommendations,
// until the attempt bound is spent.
func (t *stepSet) validate(_ context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)

	next := *prev
	if err := validateActivities(prev.Activities); err != nil {
		next.ValidationAttempts = prev.ValidationAttempts + 1
		if next.ValidationAttempts >= t.cfg.MaxValidationAttempts {
			next.Thread.Fail(fmt.Sprintf("routine validation failed after %d attempts: %v", next.ValidationAttempts, err))
			return &next, nil
		}

		next.Recommendations = append(append([]string(nil), prev.Recommendations...), err.Error())
		next.Activities = nil
		next.Thread.CurrentNode = NodeGenerate
		return &next, nil
	}

	next.Thread.CurrentNode = NodeSaveRoutine
	return &next, nil
}

// saveRoutine commits the accepted schedule exactly once.
func (t *stepSet) saveRoutine(ctx context.Context, s workflow.State) (workflow.State, error) {
	prev := s.(*State)
	if len(prev.Activities) == 0 {
		return nil, fmt.Errorf("routine: saveRoutine: no activities on state")
	}

	next := *prev
	if !prev.RoutineSaved {
		if err := t.repo.SaveRoutine(ctx, prev.Date, prev.Activities); err != nil {
			return nil, err
		}
		next.RoutineSaved = true
	}

	next.Thread.Complete()
	return &next, nil
}
