package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Note is one operator-visible note attached to a submission.
type Note struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	Text         string    `json:"text"`
	Severity     string    `json:"severity"`
	CreatedAt    time.Time `json:"created_at"`
}

// NoteRepo implements the note-attachment collaborator against Postgres.
type NoteRepo struct{ db *sql.DB }

// NewNoteRepo creates a Postgres-backed note repository.
func NewNoteRepo(db *sql.DB) *NoteRepo { return &NoteRepo{db: db} }

func (r *NoteRepo) Attach(ctx context.Context, submissionID, text, severity string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submission_notes (id, submission_id, note, severity, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, uuid.New().String(), submissionID, text, severity)
	if err != nil {
		return fmt.Errorf("attach note: %w", err)
	}
	return nil
}

// ListBySubmission returns a submission's notes, newest first.
func (r *NoteRepo) ListBySubmission(ctx context.Context, submissionID string) ([]Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, submission_id, note, severity, created_at
		FROM submission_notes
		WHERE submission_id = $1
		ORDER BY created_at DESC
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.SubmissionID, &n.Text, &n.Severity, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
