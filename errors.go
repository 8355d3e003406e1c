package steward

import "errors"

var (
	// Store errors.
	ErrNoStore            = errors.New("steward: no store configured")
	ErrStoreClosed        = errors.New("steward: store closed")
	ErrStorageUnavailable = errors.New("steward: storage temporarily unavailable")
	ErrMigrationFailed    = errors.New("steward: migration failed")

	// Not found errors.
	ErrThreadNotFound     = errors.New("steward: thread not found")
	ErrCheckpointNotFound = errors.New("steward: checkpoint not found")

	// Registration errors.
	ErrUnknownWorkflow = errors.New("steward: unknown workflow type")
	ErrUnknownNode     = errors.New("steward: unknown node")

	// State errors.
	ErrInvalidState       = errors.New("steward: invalid state transition")
	ErrMaxRetriesExceeded = errors.New("steward: max retries exceeded")
	ErrExecutionTimeout   = errors.New("steward: execution time exceeded")
)
