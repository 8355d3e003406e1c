package schedule

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/meridianhq/steward"
	"github.com/meridianhq/steward/audit"
	"github.com/meridianhq/steward/backoff"
	"github.com/meridianhq/steward/engine"
	"github.com/meridianhq/steward/llm"
	"github.com/meridianhq/steward/routine"
	"github.com/meridianhq/steward/store/memory"
	"github.com/meridianhq/steward/workflow"
)

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *memory.Store) {
	t.Helper()

	st := memory.New()
	cfg := steward.DefaultConfig()
	client := llm.ClientFunc(func(_ context.Context, _ []llm.Message) (string, error) {
		return `{"summary":"quiet day","risk_level":1,"insights":[]}`, nil
	})

	reg := workflow.NewRegistry()
	reg.Register(audit.Definition(st, client, cfg))
	reg.Register(routine.Definition(st, client, cfg))

	eng := engine.New(reg, st,
		engine.WithBackoff(backoff.NewConstant(0)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time {
			return time.Date(2026, 8, 27, 21, 0, 0, 0, time.UTC)
		}),
	}
	return New(eng, append(base, opts...)...), st
}

func TestFireAuditRunsWorkflow(t *testing.T) {
	s, st := newTestScheduler(t)
	ctx := context.Background()

	if _, err := st.AddNote(ctx, "2026-08-27", "a calm, ordinary day"); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	s.fireAudit(ctx)

	sums := st.Summaries()
	if len(sums) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(sums))
	}
	if sums[0].Date != "2026-08-27" {
		t.Fatalf("summary date = %s, want 2026-08-27", sums[0].Date)
	}
}

func TestFireRoutineHandlesFailure(t *testing.T) {
	// The static model response has no activities field for the routine
	// prompt shape requirement of 3 activities, so the run fails after
	// the validation budget. A failed run must not panic the scheduler.
	s, st := newTestScheduler(t)
	s.fireRoutine(context.Background())

	if got := st.Routines(); len(got) != 0 {
		t.Fatalf("expected no routines, got %d", len(got))
	}
}

func TestInvalidSpecRejected(t *testing.T) {
	s, _ := newTestScheduler(t, WithAuditSpec("not a cron spec"))

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartAndStop(t *testing.T) {
	s, _ := newTestScheduler(t)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
