package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

type stubQuestionByID struct {
	question *models.Question
}

func (s *stubQuestionByID) GetByID(context.Context, string) (*models.Question, error) {
	return s.question, nil
}

type stubAnswerByID struct {
	answer *models.Answer
}

func (s *stubAnswerByID) GetByID(context.Context, string) (*models.Answer, error) {
	return s.answer, nil
}

func TestEntityDocumentQuestionShape(t *testing.T) {
	questions := &stubQuestionByID{question: &models.Question{
		ID:     "question-1",
		Text:   "leaf curl on tomato",
		Status: models.QuestionStatusOpen,
		State:  "KA",
		Crop:   "tomato",
	}}
	docs := NewEntityDocuments(questions, &stubAnswerByID{})

	doc, err := docs.EntityDocument(context.Background(), models.RequestTypeQuestionFlag, "question-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"question": "leaf curl on tomato",
		"status": "open",
		"details": {"state": "KA", "crop": "tomato", "domain": "", "priority": ""}
	}`, string(doc))
}

func TestEntityDocumentAnswerShape(t *testing.T) {
	answers := &stubAnswerByID{answer: &models.Answer{
		ID:   "answer-1",
		Text: "apply neem oil weekly",
	}}
	docs := NewEntityDocuments(&stubQuestionByID{}, answers)

	doc, err := docs.EntityDocument(context.Background(), models.RequestTypeAnswerFlag, "answer-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer": "apply neem oil weekly", "sources": null, "remarks": null}`, string(doc))
}

func TestEntityDocumentUnknownType(t *testing.T) {
	docs := NewEntityDocuments(&stubQuestionByID{}, &stubAnswerByID{})

	_, err := docs.EntityDocument(context.Background(), "escalation", "x")
	assert.Error(t, err)
}
