package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that recovers from panics in the step
// chain. Panics are converted to errors and logged with a stack trace,
// so a panicking step fails its thread instead of crashing the process.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, step *StepInfo, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("step panicked",
					slog.String("workflow", step.WorkflowType),
					slog.String("thread_id", step.ThreadID.String()),
					slog.String("node", step.Node),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in node %s: %v", step.Node, r)
			}
		}()
		return next(ctx)
	}
}
