package steward

import "time"

// Config holds execution configuration for the workflow engine.
type Config struct {
	// MaxRetries is the per-step retry bound for transient failures.
	MaxRetries int

	// MaxValidationAttempts bounds the validation feedback loop in
	// generation workflows.
	MaxValidationAttempts int

	// Timeout is the overall budget for one Execute/Resume call. If the
	// step loop has not reached a terminal or paused state within it,
	// the run fails with ErrExecutionTimeout.
	Timeout time.Duration

	// ApprovalRiskThreshold is the risk level at or above which a
	// daily-audit run requires human approval (when approval is enabled).
	ApprovalRiskThreshold int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:            3,
		MaxValidationAttempts: 3,
		Timeout:               5 * time.Minute,
		ApprovalRiskThreshold: 7,
	}
}
