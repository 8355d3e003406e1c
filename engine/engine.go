package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridianhq/steward"
	"github.com/meridianhq/steward/backoff"
	"github.com/meridianhq/steward/id"
	"github.com/meridianhq/steward/middleware"
	"github.com/meridianhq/steward/workflow"
)

// Engine executes registered workflow definitions against a checkpoint
// store. It is safe for concurrent use; each call operates on its own
// thread.
type Engine struct {
	registry *workflow.Registry
	store    workflow.Store
	bo       backoff.Strategy
	cfg      steward.Config
	logger   *slog.Logger
	mw       middleware.Middleware
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBackoff sets the retry backoff strategy. Defaults to
// backoff.DefaultStrategy.
func WithBackoff(s backoff.Strategy) Option {
	return func(e *Engine) { e.bo = s }
}

// WithConfig sets the execution configuration. Defaults to
// steward.DefaultConfig.
func WithConfig(cfg steward.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithMiddleware replaces the step middleware chain. The default chain
// is Recover, Tracing, Metrics, Logging (outermost first).
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) { e.mw = middleware.Chain(mws...) }
}

// New creates an Engine over the given registry and checkpoint store.
func New(registry *workflow.Registry, store workflow.Store, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		store:    store,
		bo:       backoff.DefaultStrategy(),
		cfg:      steward.DefaultConfig(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.mw == nil {
		e.mw = middleware.Chain(
			middleware.Recover(e.logger),
			middleware.Tracing(),
			middleware.Metrics(),
			middleware.Logging(e.logger),
		)
	}

	return e
}

// Options carries per-call execution options.
type Options struct {
	// ThreadID resumes the named thread from its latest checkpoint. When
	// nil, a new thread is created.
	ThreadID id.ThreadID

	// Timeout overrides the configured execution budget for this call.
	Timeout time.Duration
}

// Result is the outcome of an Execute, Resume, or Status call. Workflow
// failures are reported through Status and the state's error message,
// not through the error return: a failed thread is a valid outcome.
type Result struct {
	ThreadID id.ThreadID
	Status   workflow.Status
	State    workflow.State
}

// Execute runs a workflow to a terminal or paused state.
//
// For a new thread (Options.ThreadID nil), initial must carry the
// caller's input fields; Execute assigns the thread identity and
// persists the initial checkpoint before the first step runs. For an
// existing thread, initial is ignored and the latest checkpoint is
// loaded instead. Re-executing a terminal or paused thread returns its
// current state without running anything.
func (e *Engine) Execute(ctx context.Context, workflowType string, initial workflow.State, opts Options) (*Result, error) {
	def, ok := e.registry.Get(workflowType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", steward.ErrUnknownWorkflow, workflowType)
	}

	var s workflow.State

	if opts.ThreadID.IsNil() {
		if initial == nil {
			return nil, fmt.Errorf("%w: nil initial state", steward.ErrInvalidState)
		}

		*initial.Meta() = workflow.NewMeta(id.NewThreadID())
		s = initial

		// The initial checkpoint lands before any step executes, so a
		// crash during the first step still leaves a recoverable thread.
		if _, err := e.persist(ctx, def, s); err != nil {
			return nil, err
		}

		e.logger.Info("thread created",
			slog.String("workflow", workflowType),
			slog.String("thread_id", s.Meta().ThreadID.String()),
		)
	} else {
		cp, err := e.store.LatestCheckpoint(ctx, opts.ThreadID)
		if err != nil {
			return nil, err
		}
		if cp == nil {
			return nil, fmt.Errorf("%w: %s", steward.ErrThreadNotFound, opts.ThreadID)
		}
		if cp.WorkflowType != workflowType {
			return nil, fmt.Errorf("%w: thread %s belongs to workflow %q, not %q",
				steward.ErrInvalidState, opts.ThreadID, cp.WorkflowType, workflowType)
		}

		s, err = def.Decode(cp.State)
		if err != nil {
			return nil, fmt.Errorf("%w: decode checkpoint %s: %v", steward.ErrInvalidState, cp.ID, err)
		}

		// Terminal and paused threads are returned as-is; paused threads
		// only move through Resume.
		if st := s.Meta().Status; st != workflow.StatusRunning {
			return result(s), nil
		}
	}

	return e.run(ctx, def, s, opts.Timeout)
}

// Resume applies a human decision to a paused thread and continues
// execution. The post-decision state is persisted before the execution
// loop re-enters; a crash after Resume returns cannot lose the decision.
//
// Resuming a thread that is not paused at a registered pause point
// returns ErrInvalidState.
func (e *Engine) Resume(ctx context.Context, threadID id.ThreadID, d workflow.Decision) (*Result, error) {
	def, s, err := e.load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	meta := s.Meta()
	if meta.Status != workflow.StatusPaused || !def.PausePoint(meta.CurrentNode) {
		return nil, fmt.Errorf("%w: thread %s is %s at node %q, not awaiting a decision",
			steward.ErrInvalidState, threadID, meta.Status, meta.CurrentNode)
	}
	if def.Resume == nil {
		return nil, fmt.Errorf("%w: workflow %q has no resume handler", steward.ErrInvalidState, def.Type)
	}

	s, err = def.Resume(s, d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", steward.ErrInvalidState, err)
	}

	if !s.Meta().Status.Terminal() {
		s.Meta().Status = workflow.StatusRunning
	}

	// The decision must survive a crash between here and the next step
	// checkpoint, so it is persisted before the loop re-enters.
	if _, err := e.persist(ctx, def, s); err != nil {
		return nil, err
	}

	e.logger.Info("thread resumed",
		slog.String("workflow", def.Type),
		slog.String("thread_id", threadID.String()),
		slog.Bool("approved", d.Approved),
	)

	if s.Meta().Status.Terminal() {
		return result(s), nil
	}

	return e.run(ctx, def, s, 0)
}

// Status returns the current state of a thread from its latest
// checkpoint without executing anything.
func (e *Engine) Status(ctx context.Context, threadID id.ThreadID) (*Result, error) {
	_, s, err := e.load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	return result(s), nil
}

// Cancel marks a thread failed with a cancellation message. Cancelling
// a thread already in a terminal state is a no-op.
func (e *Engine) Cancel(ctx context.Context, threadID id.ThreadID) error {
	def, s, err := e.load(ctx, threadID)
	if err != nil {
		return err
	}

	if s.Meta().Status.Terminal() {
		return nil
	}

	s.Meta().Fail("cancelled by user")
	if _, err := e.persist(ctx, def, s); err != nil {
		return err
	}

	e.logger.Info("thread cancelled",
		slog.String("workflow", def.Type),
		slog.String("thread_id", threadID.String()),
	)

	return nil
}

// ResumeAll scans the store for threads whose latest checkpoint is
// still running and re-executes them from where they stopped. It is
// intended to be called once at startup for crash recovery. Individual
// thread failures are logged and do not abort the scan.
func (e *Engine) ResumeAll(ctx context.Context) error {
	threads, err := e.store.ListThreads(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, threadID := range threads {
		g.Go(func() error {
			cp, err := e.store.LatestCheckpoint(ctx, threadID)
			if err != nil {
				return err
			}
			if cp == nil {
				return nil
			}

			def, ok := e.registry.Get(cp.WorkflowType)
			if !ok {
				e.logger.Warn("skipping thread with unregistered workflow",
					slog.String("thread_id", threadID.String()),
					slog.String("workflow", cp.WorkflowType),
				)
				return nil
			}

			s, err := def.Decode(cp.State)
			if err != nil {
				e.logger.Error("skipping undecodable thread",
					slog.String("thread_id", threadID.String()),
					slog.String("error", err.Error()),
				)
				return nil
			}

			if s.Meta().Status != workflow.StatusRunning {
				return nil
			}

			e.logger.Info("recovering interrupted thread",
				slog.String("workflow", def.Type),
				slog.String("thread_id", threadID.String()),
				slog.String("node", s.Meta().CurrentNode),
			)

			res, err := e.run(ctx, def, s, 0)
			if err != nil {
				return err
			}
			if res.Status == workflow.StatusFailed {
				e.logger.Warn("recovered thread ended failed",
					slog.String("thread_id", threadID.String()),
					slog.String("error", res.State.Meta().Error),
				)
			}

			return nil
		})
	}

	return g.Wait()
}

// ── execution loop ──────────────────────────────────

// run drives the state through step functions until it is no longer
// running. It returns an error only for infrastructure failures
// (storage, decode); workflow failures end in a failed Result.
func (e *Engine) run(ctx context.Context, def *workflow.Definition, s workflow.State, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// prev is the JSON snapshot of the last persisted state. A step that
	// returns a byte-identical state produces no new checkpoint.
	prev, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal state: %v", steward.ErrInvalidState, err)
	}

	for s.Meta().Status == workflow.StatusRunning {
		node := s.Meta().CurrentNode

		if node == workflow.NodeEnd {
			s.Meta().Complete()
			if prev, err = e.persistIfChanged(ctx, def, s, prev); err != nil {
				return nil, err
			}
			break
		}

		step, ok := def.Step(node)
		if !ok {
			s.Meta().Fail(fmt.Sprintf("unknown node %q", node))
			if _, err := e.persist(ctx, def, s); err != nil {
				return nil, err
			}
			break
		}

		var next workflow.State
		stepErr := e.mw(ctx, &middleware.StepInfo{
			ThreadID:     s.Meta().ThreadID,
			WorkflowType: def.Type,
			Node:         node,
			RetryCount:   s.Meta().RetryCount,
		}, func(ctx context.Context) error {
			var err error
			next, err = step(ctx, s)
			return err
		})

		if stepErr != nil {
			done, err := e.handleFailure(ctx, def, s, node, stepErr)
			if err != nil {
				return nil, err
			}
			if done {
				break
			}
			// Same node runs again with the incremented retry count;
			// prev already reflects the persisted retry state.
			if prev, err = json.Marshal(s); err != nil {
				return nil, fmt.Errorf("%w: marshal state: %v", steward.ErrInvalidState, err)
			}
			continue
		}

		if next == nil {
			s.Meta().Fail(fmt.Sprintf("node %q returned no state", node))
			if _, err := e.persist(ctx, def, s); err != nil {
				return nil, err
			}
			break
		}

		if next.Meta().CurrentNode != node {
			next.Meta().RetryCount = 0
		}

		s = next
		if prev, err = e.persistIfChanged(ctx, def, s, prev); err != nil {
			return nil, err
		}
	}

	meta := s.Meta()
	e.logger.Info("execution stopped",
		slog.String("workflow", def.Type),
		slog.String("thread_id", meta.ThreadID.String()),
		slog.String("status", string(meta.Status)),
		slog.String("node", meta.CurrentNode),
	)

	return result(s), nil
}

// handleFailure applies the retry policy to a failed step. It reports
// done=true when the thread reached a terminal state and the loop must
// stop, done=false when the node should run again after backoff.
func (e *Engine) handleFailure(ctx context.Context, def *workflow.Definition, s workflow.State, node string, stepErr error) (done bool, err error) {
	meta := s.Meta()

	// A deadline hit inside the step is an execution timeout, not a
	// transient failure. The failed checkpoint is written on a detached
	// context because the run context is already dead.
	if ctx.Err() != nil {
		meta.Fail("execution time exceeded")
		if _, err := e.persist(context.WithoutCancel(ctx), def, s); err != nil {
			return true, err
		}
		return true, nil
	}

	if !def.Retryable[node] {
		meta.Fail(fmt.Sprintf("node %q: %v", node, stepErr))
		if _, err := e.persist(ctx, def, s); err != nil {
			return true, err
		}
		return true, nil
	}

	meta.RetryCount++
	meta.Touch()

	if meta.RetryCount >= e.cfg.MaxRetries {
		meta.Fail(fmt.Sprintf("node %q failed after %d attempts: %v", node, meta.RetryCount, stepErr))
		if _, err := e.persist(ctx, def, s); err != nil {
			return true, err
		}
		return true, nil
	}

	// The incremented count is persisted before the wait so that a crash
	// mid-backoff resumes with the attempts already spent.
	if _, err := e.persist(ctx, def, s); err != nil {
		return true, err
	}

	delay := e.bo.Delay(meta.RetryCount)
	e.logger.Warn("step failed, retrying",
		slog.String("workflow", def.Type),
		slog.String("thread_id", meta.ThreadID.String()),
		slog.String("node", node),
		slog.Int("retry_count", meta.RetryCount),
		slog.Duration("backoff", delay),
		slog.String("error", stepErr.Error()),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		meta.Fail("execution time exceeded")
		if _, err := e.persist(context.WithoutCancel(ctx), def, s); err != nil {
			return true, err
		}
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

// ── persistence helpers ─────────────────────────────

// persist writes a checkpoint for the current state unconditionally.
func (e *Engine) persist(ctx context.Context, def *workflow.Definition, s workflow.State) (json.RawMessage, error) {
	s.Meta().Touch()

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal state: %v", steward.ErrInvalidState, err)
	}

	if _, err := e.store.SaveCheckpoint(ctx, s.Meta().ThreadID, raw, s.Meta().CurrentNode, def.Type); err != nil {
		return nil, err
	}

	return raw, nil
}

// persistIfChanged writes a checkpoint only when the state's JSON
// encoding differs from the previously persisted snapshot, and returns
// the snapshot now on record.
func (e *Engine) persistIfChanged(ctx context.Context, def *workflow.Definition, s workflow.State, prev json.RawMessage) (json.RawMessage, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal state: %v", steward.ErrInvalidState, err)
	}
	if bytes.Equal(raw, prev) {
		return prev, nil
	}

	return e.persist(ctx, def, s)
}

// load fetches a thread's latest checkpoint and decodes its state.
func (e *Engine) load(ctx context.Context, threadID id.ThreadID) (*workflow.Definition, workflow.State, error) {
	cp, err := e.store.LatestCheckpoint(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}
	if cp == nil {
		return nil, nil, fmt.Errorf("%w: %s", steward.ErrThreadNotFound, threadID)
	}

	def, ok := e.registry.Get(cp.WorkflowType)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", steward.ErrUnknownWorkflow, cp.WorkflowType)
	}

	s, err := def.Decode(cp.State)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decode checkpoint %s: %v", steward.ErrInvalidState, cp.ID, err)
	}

	return def, s, nil
}

func result(s workflow.State) *Result {
	return &Result{
		ThreadID: s.Meta().ThreadID,
		Status:   s.Meta().Status,
		State:    s,
	}
}
