// Package middleware provides composable middleware for workflow step
// execution. Middleware wraps step calls synchronously and can modify
// execution (recover from panics, log, trace, time out, etc.).
package middleware

import (
	"context"

	"github.com/meridianhq/steward/id"
)

// StepInfo describes the step about to execute, for middleware use.
type StepInfo struct {
	ThreadID     id.ThreadID
	WorkflowType string
	Node         string
	RetryCount   int
}

// Handler is the terminal function that executes step logic.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the step being executed, and the next handler to
// call. Middleware MUST call next to continue the chain (unless
// short-circuiting on error).
type Middleware func(ctx context.Context, step *StepInfo, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, step *StepInfo, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, step, prev)
			}
		}
		return h(ctx)
	}
}
