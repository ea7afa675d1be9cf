package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/export"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/storage"
)

type exportQuestionStore interface {
	GetSnapshot(ctx context.Context, id string) (*models.QuestionSnapshot, error)
}

// ExportService renders a question's submission timeline as CSV or PDF and
// hands out signed download tokens.
type ExportService struct {
	questions exportQuestionStore
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(questions exportQuestionStore, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		questions: questions,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		store:     store,
		signer:    signer,
		logger:    logger,
	}
}

var historyColumns = []string{"Seq", "When", "By", "Status", "Action", "Reason"}

// ExportHistory renders the timeline in the requested format ("csv" or
// "pdf"), stores the file and returns a signed download URL.
func (s *ExportService) ExportHistory(ctx context.Context, questionID, format string) (*dto.HistoryExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	snapshot, err := s.questions.GetSnapshot(ctx, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}

	dataset := historyDataset(snapshot.History)
	var content []byte
	switch format {
	case "csv":
		content, err = s.csv.Render(dataset)
	case "pdf":
		content, err = s.pdf.Render(dataset, "Review Timeline "+questionID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	fileName := fmt.Sprintf("history/%s-%d.%s", questionID, time.Now().UTC().Unix(), format)
	if _, err := s.store.Save(fileName, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(questionID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	s.logger.Info("history exported",
		zap.String("question_id", questionID),
		zap.String("format", format),
		zap.String("file", fileName))

	return &dto.HistoryExportResult{
		QuestionID:  questionID,
		Format:      format,
		FileName:    fileName,
		DownloadURL: "/api/v1/exports/download?token=" + token,
		ExpiresAt:   expiresAt,
	}, nil
}

// Open validates a signed token and returns the stored file handle.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return file, relPath, nil
}

// CleanupLoop periodically removes exports older than the signer TTL. Blocks
// until ctx is cancelled.
func (s *ExportService) CleanupLoop(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(maxAge)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
		}
	}
}

func historyDataset(history []models.SubmissionHistory) export.Dataset {
	rows := make([]map[string]string, 0, len(history))
	for _, entry := range history {
		action := "submitted"
		switch {
		case entry.ApprovedAnswer:
			action = "approved"
		case entry.RejectedAnswer:
			action = "rejected"
		case entry.IsReroute && entry.Status == models.QuestionStatusRerouted:
			action = "re-routed"
		case entry.IsReroute && entry.AnswerID == nil:
			action = "re-route declined"
		case entry.IsReroute:
			action = "re-route answered"
		case entry.AnswerID == nil && entry.Status == models.QuestionStatusClosed:
			action = "closed"
		}
		reason := ""
		if entry.ReasonForRejection != nil {
			reason = *entry.ReasonForRejection
		}
		rows = append(rows, map[string]string{
			"Seq":    strconv.Itoa(entry.Seq),
			"When":   entry.CreatedAt.UTC().Format(time.RFC3339),
			"By":     entry.UpdatedBy,
			"Status": string(entry.Status),
			"Action": action,
			"Reason": reason,
		})
	}
	return export.Dataset{Headers: historyColumns, Rows: rows}
}
