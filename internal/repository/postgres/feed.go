// Package postgres holds the PostgreSQL-backed stores for feed
// configurations, submission notes, and operator settings.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/klaviyo-bridge/internal/feed"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// FeedRepo stores feed configurations. Mapping settings live in a JSONB
// meta column so the schema survives mapping-format evolution; the legacy
// custom-property shape is normalized on load by feed.PropertyMapping.
type FeedRepo struct{ db *sql.DB }

// NewFeedRepo creates a Postgres-backed feed repository.
func NewFeedRepo(db *sql.DB) *FeedRepo { return &FeedRepo{db: db} }

func (r *FeedRepo) Create(ctx context.Context, f *feed.Feed) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	meta, err := json.Marshal(f.Meta)
	if err != nil {
		return fmt.Errorf("encode feed meta: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO klaviyo_feeds (id, form_id, active, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`, f.ID, f.FormID, f.Active, meta)
	if err != nil {
		return fmt.Errorf("create feed: %w", err)
	}
	return nil
}

func (r *FeedRepo) GetByID(ctx context.Context, id string) (*feed.Feed, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, form_id, active, meta, created_at, updated_at
		FROM klaviyo_feeds WHERE id = $1
	`, id)
	f, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	return f, nil
}

// ListByForm returns all feeds for a form, oldest first.
func (r *FeedRepo) ListByForm(ctx context.Context, formID string) ([]feed.Feed, error) {
	return r.listByForm(ctx, formID, false)
}

// ListActiveByForm returns only the feeds that should process submissions.
func (r *FeedRepo) ListActiveByForm(ctx context.Context, formID string) ([]feed.Feed, error) {
	return r.listByForm(ctx, formID, true)
}

func (r *FeedRepo) listByForm(ctx context.Context, formID string, activeOnly bool) ([]feed.Feed, error) {
	query := `
		SELECT id, form_id, active, meta, created_at, updated_at
		FROM klaviyo_feeds WHERE form_id = $1`
	if activeOnly {
		query += ` AND active = true`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, formID)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []feed.Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, *f)
	}
	return feeds, rows.Err()
}

func (r *FeedRepo) Update(ctx context.Context, f *feed.Feed) error {
	meta, err := json.Marshal(f.Meta)
	if err != nil {
		return fmt.Errorf("encode feed meta: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE klaviyo_feeds SET active = $2, meta = $3, updated_at = NOW()
		WHERE id = $1
	`, f.ID, f.Active, meta)
	if err != nil {
		return fmt.Errorf("update feed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FeedRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM klaviyo_feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*feed.Feed, error) {
	var f feed.Feed
	var meta []byte
	if err := row.Scan(&f.ID, &f.FormID, &f.Active, &meta, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meta, &f.Meta); err != nil {
		return nil, fmt.Errorf("decode feed meta: %w", err)
	}
	return &f, nil
}
