// Package schedule triggers the daily workflows on cron expressions:
// an evening audit of the closing day and a morning routine for the
// starting day. It wraps robfig/cron and feeds the workflow engine.
package schedule

import (
	"context"
	"log/slog"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/meridianhq/steward/audit"
	"github.com/meridianhq/steward/engine"
	"github.com/meridianhq/steward/routine"
	"github.com/meridianhq/steward/workflow"
)

// dateLayout is the date form carried through workflow states.
const dateLayout = "2006-01-02"

// Default cron expressions: audit the day at 21:00, plan the next one
// at 06:00.
const (
	DefaultAuditSpec   = "0 21 * * *"
	DefaultRoutineSpec = "0 6 * * *"
)

// cronParser accepts standard 5-field cron plus descriptors like
// "@daily".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// Scheduler fires scheduled workflow runs. Runs are executed on the
// cron goroutine; each fire is an independent thread in the engine.
type Scheduler struct {
	eng    *engine.Engine
	cron   *cronlib.Cron
	logger *slog.Logger
	now    func() time.Time

	auditSpec             string
	routineSpec           string
	requiresHumanApproval bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithAuditSpec overrides the cron expression for the daily audit.
func WithAuditSpec(spec string) Option {
	return func(s *Scheduler) { s.auditSpec = spec }
}

// WithRoutineSpec overrides the cron expression for routine generation.
func WithRoutineSpec(spec string) Option {
	return func(s *Scheduler) { s.routineSpec = spec }
}

// WithHumanApproval makes scheduled audits require approval for
// high-risk days instead of committing automatically.
func WithHumanApproval(enabled bool) Option {
	return func(s *Scheduler) { s.requiresHumanApproval = enabled }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler over the given engine.
func New(eng *engine.Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		eng:         eng,
		logger:      slog.Default(),
		now:         time.Now,
		auditSpec:   DefaultAuditSpec,
		routineSpec: DefaultRoutineSpec,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.cron = cronlib.New(cronlib.WithParser(cronParser))
	return s
}

// Start registers both entries and starts the cron loop. The context
// bounds each fired run, not the loop itself; call Stop to end the
// loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.auditSpec, func() { s.fireAudit(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.routineSpec, func() { s.fireRoutine(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("audit_spec", s.auditSpec),
		slog.String("routine_spec", s.routineSpec),
	)
	return nil
}

// Stop halts the cron loop and waits for in-flight fires to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// fireAudit audits the current day (the evening entry runs before
// midnight).
func (s *Scheduler) fireAudit(ctx context.Context) {
	date := s.now().Format(dateLayout)
	res, err := s.eng.Execute(ctx, audit.Type, audit.NewState(date, s.requiresHumanApproval), engine.Options{})
	s.logFire(audit.Type, date, res, err)
}

// fireRoutine plans the current day (the morning entry).
func (s *Scheduler) fireRoutine(ctx context.Context) {
	date := s.now().Format(dateLayout)
	res, err := s.eng.Execute(ctx, routine.Type, routine.NewState(date), engine.Options{})
	s.logFire(routine.Type, date, res, err)
}

func (s *Scheduler) logFire(workflowType, date string, res *engine.Result, err error) {
	if err != nil {
		s.logger.Error("scheduled run failed to start",
			slog.String("workflow", workflowType),
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		return
	}

	attrs := []any{
		slog.String("workflow", workflowType),
		slog.String("date", date),
		slog.String("thread_id", res.ThreadID.String()),
		slog.String("status", string(res.Status)),
	}
	if res.Status == workflow.StatusFailed {
		s.logger.Warn("scheduled run failed", attrs...)
		return
	}
	s.logger.Info("scheduled run settled", attrs...)
}
