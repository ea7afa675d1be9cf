package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/storage"
)

func newExportService(t *testing.T, snapshot *models.QuestionSnapshot) *ExportService {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewExportService(&fakeQuestionStore{snapshot: snapshot}, store, signer, nil)
}

func TestExportHistoryCSVRoundTrip(t *testing.T) {
	reason := "sources do not support the claim"
	history := []models.SubmissionHistory{
		submission("alice"),
		{Seq: 2, UpdatedBy: "mod", Status: models.QuestionStatusInReview, RejectedAnswer: true, ReasonForRejection: &reason},
		{Seq: 3, UpdatedBy: "mod", Status: models.QuestionStatusClosed},
	}
	history[0].Seq = 1
	snapshot := reviewSnapshot(models.QuestionStatusClosed, nil, history)
	svc := newExportService(t, snapshot)

	result, err := svc.ExportHistory(context.Background(), "question-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", result.Format)
	assert.Contains(t, result.DownloadURL, "/api/v1/exports/download?token=")

	token := strings.TrimPrefix(result.DownloadURL, "/api/v1/exports/download?token=")
	file, name, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, result.FileName, name)

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "Seq,When,By,Status,Action,Reason")
	assert.Contains(t, text, "submitted")
	assert.Contains(t, text, "rejected")
	assert.Contains(t, text, "closed")
}

func TestExportHistoryRejectsUnknownFormat(t *testing.T) {
	svc := newExportService(t, reviewSnapshot(models.QuestionStatusClosed, nil, nil))

	_, err := svc.ExportHistory(context.Background(), "question-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOpenRejectsTamperedToken(t *testing.T) {
	svc := newExportService(t, reviewSnapshot(models.QuestionStatusClosed, nil, []models.SubmissionHistory{submission("alice")}))

	result, err := svc.ExportHistory(context.Background(), "question-1", "csv")
	require.NoError(t, err)

	token := strings.TrimPrefix(result.DownloadURL, "/api/v1/exports/download?token=")
	_, _, err = svc.Open(token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
