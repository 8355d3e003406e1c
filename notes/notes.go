// Package notes defines the domain records consumed and produced by
// workflow steps (journal notes, daily summaries, routines) and the
// narrow repository contract that hides their persistence. Workflow
// steps never issue raw queries; everything outside checkpoints goes
// through Store.
package notes

import (
	"context"
	"time"

	"github.com/meridianhq/steward/id"
)

// Note is one user-authored journal entry.
type Note struct {
	ID        id.NoteID `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DailySummary is the committed result of a daily-audit run.
type DailySummary struct {
	ID        id.SummaryID `json:"id"`
	Date      string       `json:"date"`
	Summary   string       `json:"summary"`
	RiskLevel int          `json:"risk_level"`
	Insights  []string     `json:"insights"`
	CreatedAt time.Time    `json:"created_at"`
}

// Activity is one scheduled entry in a generated routine.
type Activity struct {
	Time        string `json:"time"` // 24-hour HH:MM
	Activity    string `json:"activity"`
	Description string `json:"description"`
}

// Routine is the committed result of a routine-generation run.
type Routine struct {
	ID         id.RoutineID `json:"id"`
	Date       string       `json:"date"`
	Activities []Activity   `json:"activities"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Store is the repository contract used by workflow steps.
type Store interface {
	// FindNotesForDate returns all notes authored on the given date
	// (YYYY-MM-DD), oldest first.
	FindNotesForDate(ctx context.Context, date string) ([]*Note, error)

	// SaveDailySummary commits an audit result for a date.
	SaveDailySummary(ctx context.Context, date, summary string, riskLevel int, insights []string) error

	// FindPreviousSummary returns the most recent summary strictly
	// before the given date, or nil if none exists.
	FindPreviousSummary(ctx context.Context, date string) (*DailySummary, error)

	// SaveRoutine commits a generated routine for a date.
	SaveRoutine(ctx context.Context, date string, activities []Activity) error
}
