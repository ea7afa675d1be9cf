package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

type snapshotQuestionStore interface {
	GetByID(ctx context.Context, id string) (*models.Question, error)
}

type snapshotAnswerStore interface {
	GetByID(ctx context.Context, id string) (*models.Answer, error)
}

// EntityDocuments renders the current stored document for moderation request
// targets. Field names match the proposed-document shape clients submit, so
// diffs line up key for key.
type EntityDocuments struct {
	questions snapshotQuestionStore
	answers   snapshotAnswerStore
}

// NewEntityDocuments constructs the snapshotter.
func NewEntityDocuments(questions snapshotQuestionStore, answers snapshotAnswerStore) *EntityDocuments {
	return &EntityDocuments{questions: questions, answers: answers}
}

// EntityDocument implements EntitySnapshotter.
func (d *EntityDocuments) EntityDocument(ctx context.Context, requestType models.RequestType, entityID string) (json.RawMessage, error) {
	switch requestType {
	case models.RequestTypeQuestionFlag, models.RequestTypeDataFix:
		question, err := d.questions.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{
			"question": question.Text,
			"status":   question.Status,
			"details": map[string]interface{}{
				"state":    question.State,
				"crop":     question.Crop,
				"domain":   question.Domain,
				"priority": question.Priority,
			},
		})
	case models.RequestTypeAnswerFlag:
		answer, err := d.answers.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{
			"answer":  answer.Text,
			"sources": answer.Sources,
			"remarks": answer.Remarks,
		})
	}
	return nil, fmt.Errorf("unsupported request type %q", requestType)
}
