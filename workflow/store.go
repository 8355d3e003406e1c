package workflow

import (
	"context"
	"encoding/json"

	"github.com/meridianhq/steward/id"
)

// Store defines the checkpoint persistence contract.
//
// Implementations must support concurrent access from independent
// threads; no coordination beyond the store itself is assumed. All
// failures to reach the backing storage must wrap
// steward.ErrStorageUnavailable; the engine never retries storage
// failures and surfaces them to the caller unchanged.
type Store interface {
	// SaveCheckpoint inserts a new checkpoint and returns its generated
	// ID. It never mutates an existing row.
	SaveCheckpoint(ctx context.Context, threadID id.ThreadID, state json.RawMessage, nodeID, workflowType string) (id.CheckpointID, error)

	// LatestCheckpoint returns the thread's most recent checkpoint by
	// CreatedAt, or nil if the thread has no checkpoints.
	LatestCheckpoint(ctx context.Context, threadID id.ThreadID) (*Checkpoint, error)

	// GetCheckpoint returns a specific checkpoint (time-travel read).
	// Returns steward.ErrCheckpointNotFound if absent.
	GetCheckpoint(ctx context.Context, threadID id.ThreadID, checkpointID id.CheckpointID) (*Checkpoint, error)

	// ListCheckpoints returns all checkpoints for a thread, oldest first.
	ListCheckpoints(ctx context.Context, threadID id.ThreadID) ([]*Checkpoint, error)

	// ListThreads returns the IDs of all threads that have at least one
	// checkpoint. Used for crash recovery scans.
	ListThreads(ctx context.Context) ([]id.ThreadID, error)

	// DeleteThread removes all checkpoints for a thread.
	DeleteThread(ctx context.Context, threadID id.ThreadID) error
}
