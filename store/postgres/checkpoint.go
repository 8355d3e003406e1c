package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meridianhq/steward"
	"github.com/meridianhq/steward/id"
	"github.com/meridianhq/steward/workflow"
)

// SaveCheckpoint inserts a new checkpoint row. Rows are never updated.
func (s *Store) SaveCheckpoint(ctx context.Context, threadID id.ThreadID, state json.RawMessage, nodeID, workflowType string) (id.CheckpointID, error) {
	checkpointID := id.NewCheckpointID()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO steward_checkpoints (id, thread_id, state, node_id, workflow_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		checkpointID.String(), threadID.String(), state, nodeID, workflowType, time.Now().UTC(),
	)
	if err != nil {
		return id.Nil, fmt.Errorf("%w: save checkpoint: %w", steward.ErrStorageUnavailable, err)
	}

	return checkpointID, nil
}

// LatestCheckpoint returns the thread's most recent checkpoint by
// CreatedAt, or nil when the thread has no checkpoints. The insert ID
// breaks CreatedAt ties because checkpoint IDs are K-sortable.
func (s *Store) LatestCheckpoint(ctx context.Context, threadID id.ThreadID) (*workflow.Checkpoint, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, thread_id, state, node_id, workflow_type, created_at
		FROM steward_checkpoints
		WHERE thread_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		threadID.String(),
	)

	cp, err := scanCheckpoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: latest checkpoint: %w", steward.ErrStorageUnavailable, err)
	}

	return cp, nil
}

// GetCheckpoint returns a specific checkpoint for time-travel reads.
func (s *Store) GetCheckpoint(ctx context.Context, threadID id.ThreadID, checkpointID id.CheckpointID) (*workflow.Checkpoint, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, thread_id, state, node_id, workflow_type, created_at
		FROM steward_checkpoints
		WHERE thread_id = $1 AND id = $2`,
		threadID.String(), checkpointID.String(),
	)

	cp, err := scanCheckpoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", steward.ErrCheckpointNotFound, checkpointID)
		}
		return nil, fmt.Errorf("%w: get checkpoint: %w", steward.ErrStorageUnavailable, err)
	}

	return cp, nil
}

// ListCheckpoints returns all checkpoints for a thread, oldest first.
func (s *Store) ListCheckpoints(ctx context.Context, threadID id.ThreadID) ([]*workflow.Checkpoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, thread_id, state, node_id, workflow_type, created_at
		FROM steward_checkpoints
		WHERE thread_id = $1
		ORDER BY created_at ASC, id ASC`,
		threadID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list checkpoints: %w", steward.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []*workflow.Checkpoint
	for rows.Next() {
		cp, scanErr := scanCheckpoint(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: list checkpoints: %w", steward.ErrStorageUnavailable, scanErr)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list checkpoints: %w", steward.ErrStorageUnavailable, err)
	}

	return out, nil
}

// ListThreads returns the IDs of all threads with at least one
// checkpoint.
func (s *Store) ListThreads(ctx context.Context) ([]id.ThreadID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT thread_id FROM steward_checkpoints ORDER BY thread_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list threads: %w", steward.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []id.ThreadID
	for rows.Next() {
		var raw string
		if scanErr := rows.Scan(&raw); scanErr != nil {
			return nil, fmt.Errorf("%w: list threads: %w", steward.ErrStorageUnavailable, scanErr)
		}

		threadID, parseErr := id.ParseThreadID(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("steward/postgres: list threads: %w", parseErr)
		}
		out = append(out, threadID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list threads: %w", steward.ErrStorageUnavailable, err)
	}

	return out, nil
}

// DeleteThread removes all checkpoints for a thread.
func (s *Store) DeleteThread(ctx context.Context, threadID id.ThreadID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM steward_checkpoints WHERE thread_id = $1`,
		threadID.String(),
	)
	if err != nil {
		return fmt.Errorf("%w: delete thread: %w", steward.ErrStorageUnavailable, err)
	}
	return nil
}

func scanCheckpoint(row pgx.Row) (*workflow.Checkpoint, error) {
	var (
		cp                 workflow.Checkpoint
		rawID, rawThreadID string
	)

	err := row.Scan(&rawID, &rawThreadID, &cp.State, &cp.NodeID, &cp.WorkflowType, &cp.CreatedAt)
	if err != nil {
		return nil, err
	}

	if cp.ID, err = id.ParseCheckpointID(rawID); err != nil {
		return nil, err
	}
	if cp.ThreadID, err = id.ParseThreadID(rawThreadID); err != nil {
		return nil, err
	}

	return &cp, nil
}
