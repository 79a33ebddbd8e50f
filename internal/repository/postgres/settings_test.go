package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepoGetUnsetReturnsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT value FROM bridge_settings WHERE key = \$1`).
		WithArgs("api_key").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	repo := NewSettingsRepo(db)
	value, err := repo.Get(context.Background(), "api_key")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestSettingsRepoRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO bridge_settings`).
		WithArgs("api_key", "pk_test_123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT value FROM bridge_settings`).
		WithArgs("api_key").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("pk_test_123"))

	repo := NewSettingsRepo(db)
	require.NoError(t, repo.Set(context.Background(), "api_key", "pk_test_123"))

	value, err := repo.Get(context.Background(), "api_key")
	require.NoError(t, err)
	assert.Equal(t, "pk_test_123", value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepoAttachAndList(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO submission_notes`).
		WithArgs(sqlmock.AnyArg(), "entry-1", "Successfully added to Klaviyo.", "success").
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now()
	mock.ExpectQuery(`FROM submission_notes\s+WHERE submission_id = \$1`).
		WithArgs("entry-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "submission_id", "note", "severity", "created_at"}).
			AddRow("n1", "entry-1", "Successfully added to Klaviyo.", "success", now))

	repo := NewNoteRepo(db)
	require.NoError(t, repo.Attach(context.Background(), "entry-1", "Successfully added to Klaviyo.", "success"))

	notes, err := repo.ListBySubmission(context.Background(), "entry-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "success", notes[0].Severity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
