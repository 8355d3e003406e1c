package workflow

import (
	"encoding/json"
	"time"

	"github.com/meridianhq/steward/id"
)

// Checkpoint is an immutable snapshot of a thread's state taken after a
// node transition. Checkpoints are append-only: they are only ever
// inserted, never mutated. The most recent checkpoint by CreatedAt is
// the thread's current state.
type Checkpoint struct {
	ID           id.CheckpointID `json:"id"`
	ThreadID     id.ThreadID     `json:"thread_id"`
	State        json.RawMessage `json:"state"`
	NodeID       string          `json:"node_id"`
	WorkflowType string          `json:"workflow_type"`
	CreatedAt    time.Time       `json:"created_at"`
}
