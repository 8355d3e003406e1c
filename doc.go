// Package steward provides a durable, resumable workflow engine for
// long-lived AI-driven processes. Workflows are node-based state
// machines whose progress is checkpointed after every node transition,
// survives process restarts, can pause indefinitely awaiting a human
// decision, and retries transient model failures with exponential
// backoff.
//
// Steward is designed as a library, not a service. Import it, register
// workflow definitions, pick a store backend (memory for tests,
// postgres for production), and drive executions through an
// engine.Engine:
//
//	store := memory.New()
//	reg := workflow.NewRegistry()
//	reg.Register(audit.Definition(store, llmClient, steward.DefaultConfig()))
//	eng := engine.New(reg, store, engine.WithLogger(logger))
//	res, err := eng.Execute(ctx, audit.Type, audit.NewState(date, true), engine.Options{})
//
// The subsystem packages are:
//
//   - workflow: state model, definitions, checkpoint contract
//   - engine: the execution loop, retry policy, pause/resume protocol
//   - backoff: retry delay strategies
//   - repair: malformed LLM JSON output recovery
//   - llm: language model client interface and prompt sanitization
//   - notes: domain repositories consumed by workflow steps
//   - store/memory, store/postgres: checkpoint and domain persistence
//   - api: HTTP surface
//   - schedule: cron-driven workflow triggers
package steward
