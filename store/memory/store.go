// Package memory provides a fully in-memory store implementation. Safe
// for concurrent access. Intended for unit testing and development; all
// data is lost when the process exits.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/meridianhq/steward"
	"github.com/meridianhq/steward/id"
	"github.com/meridianhq/steward/notes"
	"github.com/meridianhq/steward/workflow"
)

var (
	_ workflow.Store = (*Store)(nil)
	_ notes.Store    = (*Store)(nil)
)

// Store is an in-memory implementation of workflow.Store and
// notes.Store.
type Store struct {
	mu sync.RWMutex

	// checkpoints holds every checkpoint ever written, keyed by thread.
	// Slices are append-only and kept in insertion order, which is also
	// CreatedAt order.
	checkpoints map[string][]*workflow.Checkpoint

	notes     []*notes.Note
	summaries []*notes.DailySummary
	routines  []*notes.Routine

	closed bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		checkpoints: make(map[string][]*workflow.Checkpoint),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close marks the store closed. Subsequent operations fail with
// steward.ErrStoreClosed.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Store) checkOpen() error {
	if m.closed {
		return fmt.Errorf("%w: %w", steward.ErrStorageUnavailable, steward.ErrStoreClosed)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Checkpoint store
// ──────────────────────────────────────────────────

// SaveCheckpoint appends a new checkpoint for the thread.
func (m *Store) SaveCheckpoint(_ context.Context, threadID id.ThreadID, state json.RawMessage, nodeID, workflowType string) (id.CheckpointID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return id.Nil, err
	}

	cp := &workflow.Checkpoint{
		ID:           id.NewCheckpointID(),
		ThreadID:     threadID,
		State:        append(json.RawMessage(nil), state...),
		NodeID:       nodeID,
		WorkflowType: workflowType,
		CreatedAt:    time.Now().UTC(),
	}

	key := threadID.String()
	m.checkpoints[key] = append(m.checkpoints[key], cp)
	return cp.ID, nil
}

// LatestCheckpoint returns the thread's most recent checkpoint, or nil
// when the thread has no checkpoints.
func (m *Store) LatestCheckpoint(_ context.Context, threadID id.ThreadID) (*workflow.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	cps := m.checkpoints[threadID.String()]
	if len(cps) == 0 {
		return nil, nil
	}

	cp := *cps[len(cps)-1]
	return &cp, nil
}

// GetCheckpoint returns a specific checkpoint for time-travel reads.
func (m *Store) GetCheckpoint(_ context.Context, threadID id.ThreadID, checkpointID id.CheckpointID) (*workflow.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	for _, cp := range m.checkpoints[threadID.String()] {
		if cp.ID == checkpointID {
			c := *cp
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", steward.ErrCheckpointNotFound, checkpointID)
}

// ListCheckpoints returns all checkpoints for a thread, oldest first.
func (m *Store) ListCheckpoints(_ context.Context, threadID id.ThreadID) ([]*workflow.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	cps := m.checkpoints[threadID.String()]
	out := make([]*workflow.Checkpoint, len(cps))
	for i, cp := range cps {
		c := *cp
		out[i] = &c
	}
	return out, nil
}

// ListThreads returns the IDs of all threads with at least one
// checkpoint, sorted for deterministic iteration.
func (m *Store) ListThreads(_ context.Context) ([]id.ThreadID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	out := make([]id.ThreadID, 0, len(m.checkpoints))
	for _, cps := range m.checkpoints {
		if len(cps) > 0 {
			out = append(out, cps[0].ThreadID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// DeleteThread removes all checkpoints for a thread.
func (m *Store) DeleteThread(_ context.Context, threadID id.ThreadID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}

	delete(m.checkpoints, threadID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Notes store
// ──────────────────────────────────────────────────

// AddNote inserts a journal note. Not part of the notes.Store contract;
// used to seed data in development and tests.
func (m *Store) AddNote(_ context.Context, date, content string) (*notes.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	n := &notes.Note{
		ID:        id.NewNoteID(),
		Date:      date,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	m.notes = append(m.notes, n)

	c := *n
	return &c, nil
}

// FindNotesForDate returns all notes for a date, oldest first.
func (m *Store) FindNotesForDate(_ context.Context, date string) ([]*notes.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	var out []*notes.Note
	for _, n := range m.notes {
		if n.Date == date {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SaveDailySummary commits an audit result for a date.
func (m *Store) SaveDailySummary(_ context.Context, date, summary string, riskLevel int, insights []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}

	m.summaries = append(m.summaries, &notes.DailySummary{
		ID:        id.NewSummaryID(),
		Date:      date,
		Summary:   summary,
		RiskLevel: riskLevel,
		Insights:  append([]string(nil), insights...),
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// FindPreviousSummary returns the most recent summary strictly before
// the given date. Dates compare lexically (YYYY-MM-DD).
func (m *Store) FindPreviousSummary(_ context.Context, date string) (*notes.DailySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	var best *notes.DailySummary
	for _, s := range m.summaries {
		if s.Date >= date {
			continue
		}
		if best == nil || s.Date > best.Date || (s.Date == best.Date && s.CreatedAt.After(best.CreatedAt)) {
			best = s
		}
	}
	if best == nil {
		return nil, nil
	}

	c := *best
	return &c, nil
}

// SaveRoutine commits a generated routine for a date.
func (m *Store) SaveRoutine(_ context.Context, date string, activities []notes.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}

	m.routines = append(m.routines, &notes.Routine{
		ID:         id.NewRoutineID(),
		Date:       date,
		Activities: append([]notes.Activity(nil), activities...),
		CreatedAt:  time.Now().UTC(),
	})
	return nil
}

// Routines returns all committed routines, oldest first. Test helper.
func (m *Store) Routines() []*notes.Routine {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*notes.Routine, len(m.routines))
	for i, r := range m.routines {
		c := *r
		out[i] = &c
	}
	return out
}

// Summaries returns all committed summaries, oldest first. Test helper.
func (m *Store) Summaries() []*notes.DailySummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*notes.DailySummary, len(m.summaries))
	for i, s := range m.summaries {
		c := *s
		out[i] = &c
	}
	return out
}
