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

func newWorkflowRepoMock(t *testing.T) (*WorkflowRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewWorkflowRepository(sqlxDB), mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSetAutoAllocateBumpsVersion(t *testing.T) {
	repo, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE questions SET version = version \\+ 1").
		WithArgs(sqlmock.AnyArg(), true, "question-1", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetAutoAllocate(context.Background(), SetAutoAllocateParams{
		QuestionID: "question-1",
		Version:    4,
		Enabled:    true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAutoAllocateStaleVersionRollsBack(t *testing.T) {
	repo, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE questions SET version = version \\+ 1").
		WithArgs(sqlmock.AnyArg(), true, "question-1", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetAutoAllocate(context.Background(), SetAutoAllocateParams{
		QuestionID: "question-1",
		Version:    4,
		Enabled:    true,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendQueueInsertsEntries(t *testing.T) {
	repo, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE questions SET version = version \\+ 1").
		WithArgs(sqlmock.AnyArg(), "question-1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO allocation_queue").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO allocation_queue").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AppendQueue(context.Background(), AppendQueueParams{
		QuestionID: "question-1",
		Version:    2,
		Entries: []models.QueueEntry{
			{QuestionID: "question-1", ExpertID: "alice", ExpertEmail: "alice@example.com", Round: 1, Position: 1},
			{QuestionID: "question-1", ExpertID: "bob", ExpertEmail: "bob@example.com", Round: 1, Position: 2},
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveQueueEntryMissingSlot(t *testing.T) {
	repo, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE questions SET version = version \\+ 1").
		WithArgs(sqlmock.AnyArg(), "question-1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM allocation_queue").
		WithArgs("entry-1", "question-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RemoveQueueEntry(context.Background(), RemoveQueueEntryParams{
		QuestionID: "question-1",
		Version:    2,
		EntryID:    "entry-1",
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseQuestionWritesHistory(t *testing.T) {
	repo, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE questions SET version = version \\+ 1").
		WithArgs(sqlmock.AnyArg(), models.QuestionStatusClosed, "question-1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO submission_history").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CloseQuestion(context.Background(), CloseQuestionParams{
		QuestionID: "question-1",
		Version:    7,
		History: models.SubmissionHistory{
			QuestionID: "question-1",
			Seq:        3,
			UpdatedBy:  "mod",
			Status:     models.QuestionStatusClosed,
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
