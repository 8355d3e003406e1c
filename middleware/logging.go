package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs step start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, step *StepInfo, next Handler) error {
		logger.Debug("step started",
			slog.String("workflow", step.WorkflowType),
			slog.String("thread_id", step.ThreadID.String()),
			slog.String("node", step.Node),
			slog.Int("retry_count", step.RetryCount),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("step failed",
				slog.String("workflow", step.WorkflowType),
				slog.String("thread_id", step.ThreadID.String()),
				slog.String("node", step.Node),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("step completed",
				slog.String("workflow", step.WorkflowType),
				slog.String("thread_id", step.ThreadID.String()),
				slog.String("node", step.Node),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
