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
	"github.com/meridianhq/steward/notes"
)

// AddNote inserts a journal note. Not part of the notes.Store contract;
// exposed for the ingestion path and seeding.
func (s *Store) AddNote(ctx context.Context, date, content string) (*notes.Note, error) {
	n := &notes.Note{
		ID:        id.NewNoteID(),
		Date:      date,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO steward_notes (id, note_date, content, created_at)
		VALUES ($1, $2, $3, $4)`,
		n.ID.String(), n.Date, n.Content, n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: add note: %w", steward.ErrStorageUnavailable, err)
	}

	return n, nil
}

// FindNotesForDate returns all notes for a date, oldest first.
func (s *Store) FindNotesForDate(ctx context.Context, date string) ([]*notes.Note, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, note_date, content, created_at
		FROM steward_notes
		WHERE note_date = $1
		ORDER BY created_at ASC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: find notes: %w", steward.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []*notes.Note
	for rows.Next() {
		var (
			n     notes.Note
			rawID string
		)
		if scanErr := rows.Scan(&rawID, &n.Date, &n.Content, &n.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("%w: find notes: %w", steward.ErrStorageUnavailable, scanErr)
		}
		if n.ID, err = id.ParseWithPrefix(rawID, id.PrefixNote); err != nil {
			return nil, fmt.Errorf("steward/postgres: find notes: %w", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: find notes: %w", steward.ErrStorageUnavailable, err)
	}

	return out, nil
}

// SaveDailySummary commits an audit result for a date.
func (s *Store) SaveDailySummary(ctx context.Context, date, summary string, riskLevel int, insights []string) error {
	if insights == nil {
		insights = []string{}
	}
	rawInsights, err := json.Marshal(insights)
	if err != nil {
		return fmt.Errorf("steward/postgres: marshal insights: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO steward_daily_summaries (id, summary_date, summary, risk_level, insights, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id.NewSummaryID().String(), date, summary, riskLevel, rawInsights, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: save summary: %w", steward.ErrStorageUnavailable, err)
	}

	return nil
}

// FindPreviousSummary returns the most recent summary strictly before
// the given date, or nil if none exists. Dates compare lexically
// (YYYY-MM-DD).
func (s *Store) FindPreviousSummary(ctx context.Context, date string) (*notes.DailySummary, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, summary_date, summary, risk_level, insights, created_at
		FROM steward_daily_summaries
		WHERE summary_date < $1
		ORDER BY summary_date DESC, created_at DESC
		LIMIT 1`,
		date,
	)

	var (
		sum         notes.DailySummary
		rawID       string
		rawInsights []byte
	)
	err := row.Scan(&rawID, &sum.Date, &sum.Summary, &sum.RiskLevel, &rawInsights, &sum.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find previous summary: %w", steward.ErrStorageUnavailable, err)
	}

	if sum.ID, err = id.ParseWithPrefix(rawID, id.PrefixSummary); err != nil {
		return nil, fmt.Errorf("steward/postgres: find previous summary: %w", err)
	}
	if err := json.Unmarshal(rawInsights, &sum.Insights); err != nil {
		return nil, fmt.Errorf("steward/postgres: unmarshal insights: %w", err)
	}

	return &sum, nil
}

// SaveRoutine commits a generated routine for a date.
func (s *Store) SaveRoutine(ctx context.Context, date string, activities []notes.Activity) error {
	if activities == nil {
		activities = []notes.Activity{}
	}
	rawActivities, err := json.Marshal(activities)
	if err != nil {
		return fmt.Errorf("steward/postgres: marshal activities: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO steward_routines (id, routine_date, activities, created_at)
		VALUES ($1, $2, $3, $4)`,
		id.NewRoutineID().String(), date, rawActivities, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: save routine: %w", steward.ErrStorageUnavailable, err)
	}

	return nil
}
