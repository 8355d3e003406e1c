package middleware

import (
	"context"
	"time"
)

// Timeout returns middleware that bounds a single step execution. The
// engine's overall run deadline still applies; this adds a tighter
// per-step limit for steps that may hang on an external call.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ *StepInfo, next Handler) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
