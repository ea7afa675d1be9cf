package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

func newRequestRepoMock(t *testing.T) (*RequestRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewRequestRepository(sqlxDB), mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestRequestUpdateStatusAppendsResponse(t *testing.T) {
	repo, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE moderation_requests SET status").
		WithArgs(models.RequestStatusInReview, sqlmock.AnyArg(), "request-1", models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO request_responses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), UpdateStatusParams{
		RequestID:     "request-1",
		CurrentStatus: models.RequestStatusPending,
		NewStatus:     models.RequestStatusInReview,
		ResponderID:   "mod",
		Response:      "taking this one for review",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestUpdateStatusGuardMiss(t *testing.T) {
	repo, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE moderation_requests SET status").
		WithArgs(models.RequestStatusInReview, sqlmock.AnyArg(), "request-1", models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), UpdateStatusParams{
		RequestID:     "request-1",
		CurrentStatus: models.RequestStatusPending,
		NewStatus:     models.RequestStatusInReview,
		ResponderID:   "mod",
		Response:      "taking this one for review",
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
