package dto

import "time"

// HistoryExportResult points at a rendered timeline export.
type HistoryExportResult struct {
	QuestionID  string    `json:"questionId"`
	Format      string    `json:"format"`
	FileName    string    `json:"fileName"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
