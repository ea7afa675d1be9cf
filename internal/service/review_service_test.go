package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
)

type fakeQuestionStore struct {
	snapshot *models.QuestionSnapshot
	err      error
}

func (f *fakeQuestionStore) GetSnapshot(context.Context, string) (*models.QuestionSnapshot, error) {
	return f.snapshot, f.err
}

type fakeWorkflowStore struct {
	submission *repository.RecordSubmissionParams
	approval   *repository.RecordApprovalParams
	rejection  *repository.RecordRejectionParams
	closed     *repository.CloseQuestionParams
	review     *repository.AddReviewParams
	err        error
}

func (f *fakeWorkflowStore) RecordSubmission(_ context.Context, params repository.RecordSubmissionParams) error {
	f.submission = &params
	return f.err
}

func (f *fakeWorkflowStore) RecordApproval(_ context.Context, params repository.RecordApprovalParams) error {
	f.approval = &params
	return f.err
}

func (f *fakeWorkflowStore) RecordRejection(_ context.Context, params repository.RecordRejectionParams) error {
	f.rejection = &params
	return f.err
}

func (f *fakeWorkflowStore) CloseQuestion(_ context.Context, params repository.CloseQuestionParams) error {
	f.closed = &params
	return f.err
}

func (f *fakeWorkflowStore) AddReview(_ context.Context, params repository.AddReviewParams) (*models.AnswerReview, error) {
	f.review = &params
	if f.err != nil {
		return nil, f.err
	}
	stored := params.Review
	stored.ID = "review-1"
	return &stored, nil
}

type fakeAnswerStore struct {
	answer   *models.Answer
	reviews  []models.AnswerReview
	reviewed bool
	err      error
}

func (f *fakeAnswerStore) GetByID(context.Context, string) (*models.Answer, error) {
	return f.answer, f.err
}

func (f *fakeAnswerStore) ListReviews(context.Context, string) ([]models.AnswerReview, error) {
	return f.reviews, f.err
}

func (f *fakeAnswerStore) HasReviewed(context.Context, string, string, bool) (bool, error) {
	return f.reviewed, nil
}

type capturedEvents struct {
	events []Event
}

func (c *capturedEvents) Publish(_ context.Context, event Event) {
	c.events = append(c.events, event)
}

func reviewSnapshot(status models.QuestionStatus, queue []models.QueueEntry, history []models.SubmissionHistory) *models.QuestionSnapshot {
	return &models.QuestionSnapshot{
		Question: models.Question{ID: "question-1", Status: status, Version: 4},
		Queue:    queue,
		History:  history,
	}
}

func TestSubmitRecordsAnswerForCurrentTurn(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 1, 2)}
	snapshot := reviewSnapshot(models.QuestionStatusOpen, queue, nil)
	workflow := &fakeWorkflowStore{}
	events := &capturedEvents{}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeAnswerStore{}, events, 3, 8, nil)

	result, err := svc.Submit(context.Background(), "question-1", "alice", dto.SubmitAnswerRequest{Text: "apply neem oil"})
	require.NoError(t, err)
	assert.Equal(t, models.QuestionStatusInReview, result.Status)
	assert.Equal(t, 1, result.Answer.Iteration)

	require.NotNil(t, workflow.submission)
	assert.Equal(t, int64(4), workflow.submission.Version)
	assert.Equal(t, 1, workflow.submission.History.Seq)
	assert.Nil(t, workflow.submission.ResolveRerouteID)

	require.Len(t, events.events, 1)
	assert.Equal(t, EventAnswerSubmitted, events.events[0].Type)
}

func TestSubmitRejectsOutOfTurnExpert(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 1, 2)}
	snapshot := reviewSnapshot(models.QuestionStatusOpen, queue, nil)
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, &fakeWorkflowStore{}, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Submit(context.Background(), "question-1", "bob", dto.SubmitAnswerRequest{Text: "irrigate weekly"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotYourTurn.Code, appErrors.FromError(err).Code)
}

func TestSubmitRejectsDuplicateSubmission(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 1, 2)}
	history := []models.SubmissionHistory{submission("alice")}
	snapshot := reviewSnapshot(models.QuestionStatusInReview, queue, history)
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, &fakeWorkflowStore{}, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Submit(context.Background(), "question-1", "alice", dto.SubmitAnswerRequest{Text: "rotate crops"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateSubmission.Code, appErrors.FromError(err).Code)
}

func TestSubmitRejectsClosedQuestion(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusClosed, nil, nil)
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, &fakeWorkflowStore{}, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Submit(context.Background(), "question-1", "alice", dto.SubmitAnswerRequest{Text: "too late"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestSubmitOnReroutedQuestionOnlyTarget(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 2, 1)}
	history := []models.SubmissionHistory{submission("alice")}
	snapshot := reviewSnapshot(models.QuestionStatusRerouted, queue, history)
	snapshot.LatestAnswer = &models.Answer{ID: "answer-1", AuthorID: "alice", Iteration: 1}
	snapshot.PendingReroute = &models.Reroute{ID: "reroute-1", ReroutedTo: "bob", Status: models.RerouteStatusPending}
	workflow := &fakeWorkflowStore{}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Submit(context.Background(), "question-1", "alice", dto.SubmitAnswerRequest{Text: "second try"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotYourTurn.Code, appErrors.FromError(err).Code)

	result, err := svc.Submit(context.Background(), "question-1", "bob", dto.SubmitAnswerRequest{Text: "replacement answer"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Answer.Iteration)
	require.NotNil(t, workflow.submission.ResolveRerouteID)
	assert.Equal(t, "reroute-1", *workflow.submission.ResolveRerouteID)
	assert.True(t, workflow.submission.History.IsReroute)
}

func TestSubmitBlockedWhileAnswerUnderReview(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 1, 2)}
	history := []models.SubmissionHistory{submission("alice")}
	snapshot := reviewSnapshot(models.QuestionStatusInReview, queue, history)
	snapshot.LatestAnswer = &models.Answer{ID: "answer-alice", AuthorID: "alice", Iteration: 1}
	workflow := &fakeWorkflowStore{}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeAnswerStore{}, nil, 3, 8, nil)

	// The un-reviewed answer holds the turn; the next queued expert cannot
	// supersede it before a moderator verdict.
	_, err := svc.Submit(context.Background(), "question-1", "bob", dto.SubmitAnswerRequest{Text: "my turn already?"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotYourTurn.Code, appErrors.FromError(err).Code)
	assert.Nil(t, workflow.submission)
}

func TestSubmitOpensNextIterationAfterRejection(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 1, 2)}
	rejectedID := "answer-alice"
	history := []models.SubmissionHistory{
		submission("alice"),
		{UpdatedBy: "mod", AnswerID: &rejectedID, Status: models.QuestionStatusInReview, RejectedAnswer: true},
	}
	snapshot := reviewSnapshot(models.QuestionStatusInReview, queue, history)
	snapshot.LatestAnswer = &models.Answer{ID: rejectedID, AuthorID: "alice", Iteration: 1}
	workflow := &fakeWorkflowStore{}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeAnswerStore{}, nil, 3, 8, nil)

	result, err := svc.Submit(context.Background(), "question-1", "bob", dto.SubmitAnswerRequest{Text: "fresh take"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Answer.Iteration)
	require.NotNil(t, workflow.submission)
	assert.Equal(t, 3, workflow.submission.History.Seq)
}

func TestSubmitMapsStaleVersionToConflict(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1)}
	snapshot := reviewSnapshot(models.QuestionStatusOpen, queue, nil)
	workflow := &fakeWorkflowStore{err: sql.ErrNoRows}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Submit(context.Background(), "question-1", "alice", dto.SubmitAnswerRequest{Text: "racing answer"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApproveRequiresThreshold(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusInReview, nil, nil)
	snapshot.LatestAnswer = &models.Answer{ID: "answer-1", AuthorID: "alice", ApprovalCount: 2}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, &fakeWorkflowStore{}, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Approve(context.Background(), "question-1", "mod", dto.ApproveAnswerRequest{AnswerID: "answer-1", FinalText: "final"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrThresholdNotMet.Code, appErrors.FromError(err).Code)
}

func TestApproveBlockedByPendingReroute(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusRerouted, nil, nil)
	snapshot.LatestAnswer = &models.Answer{ID: "answer-1", AuthorID: "alice", ApprovalCount: 3}
	snapshot.PendingReroute = &models.Reroute{ID: "reroute-1", ReroutedTo: "bob", Status: models.RerouteStatusPending}
	workflow := &fakeWorkflowStore{}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Approve(context.Background(), "question-1", "mod", dto.ApproveAnswerRequest{AnswerID: "answer-1", FinalText: "final"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReroutePending.Code, appErrors.FromError(err).Code)
	assert.Nil(t, workflow.approval)
}

func TestApproveRejectsStaleAnswer(t *testing.T) {
	history := []models.SubmissionHistory{submission("alice"), submission("bob")}
	snapshot := reviewSnapshot(models.QuestionStatusInReview, nil, history)
	snapshot.LatestAnswer = &models.Answer{ID: "answer-2", AuthorID: "bob", Iteration: 2, ApprovalCount: 3}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, &fakeWorkflowStore{}, &fakeAnswerStore{}, nil, 3, 8, nil)

	// The moderator reviewed iteration 1; a newer iteration landed since.
	_, err := svc.Approve(context.Background(), "question-1", "mod", dto.ApproveAnswerRequest{AnswerID: "answer-1", FinalText: "final"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleAnswer.Code, appErrors.FromError(err).Code)
}

func TestApproveClosesQuestion(t *testing.T) {
	history := []models.SubmissionHistory{submission("alice")}
	snapshot := reviewSnapshot(models.QuestionStatusInReview, nil, history)
	snapshot.LatestAnswer = &models.Answer{ID: "answer-1", AuthorID: "alice", ApprovalCount: 3}
	workflow := &fakeWorkflowStore{}
	events := &capturedEvents{}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeAnswerStore{}, events, 3, 8, nil)

	entry, err := svc.Approve(context.Background(), "question-1", "mod", dto.ApproveAnswerRequest{AnswerID: "answer-1", FinalText: "final text"})
	require.NoError(t, err)
	assert.Equal(t, models.QuestionStatusClosed, entry.Status)
	assert.True(t, entry.ApprovedAnswer)
	assert.Equal(t, 2, entry.Seq)

	require.NotNil(t, workflow.approval)
	assert.Equal(t, "final text", workflow.approval.FinalText)
	require.Len(t, events.events, 1)
	assert.Equal(t, EventAnswerApproved, events.events[0].Type)
}

func TestRejectRequiresReason(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusInReview, nil, nil)
	snapshot.LatestAnswer = &models.Answer{ID: "answer-1", AuthorID: "alice"}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, &fakeWorkflowStore{}, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Reject(context.Background(), "question-1", "mod", dto.RejectAnswerRequest{Reason: "no"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReasonTooShort.Code, appErrors.FromError(err).Code)
}

func TestRejectKeepsQuestionInReview(t *testing.T) {
	history := []models.SubmissionHistory{submission("alice")}
	snapshot := reviewSnapshot(models.QuestionStatusInReview, nil, history)
	snapshot.LatestAnswer = &models.Answer{ID: "answer-1", AuthorID: "alice"}
	workflow := &fakeWorkflowStore{}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeAnswerStore{}, nil, 3, 8, nil)

	entry, err := svc.Reject(context.Background(), "question-1", "mod", dto.RejectAnswerRequest{Reason: "sources do not support the claim"})
	require.NoError(t, err)
	assert.Equal(t, models.QuestionStatusInReview, entry.Status)
	assert.True(t, entry.RejectedAnswer)
	require.NotNil(t, entry.ReasonForRejection)
}

func TestCloseBlockedByPendingReroute(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusRerouted, nil, nil)
	snapshot.PendingReroute = &models.Reroute{ID: "reroute-1", Status: models.RerouteStatusPending}
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, &fakeWorkflowStore{}, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Close(context.Background(), "question-1", "mod", "duplicates another question")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReroutePending.Code, appErrors.FromError(err).Code)
}

func TestCloseAlreadyClosed(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusClosed, nil, nil)
	svc := NewReviewService(&fakeQuestionStore{snapshot: snapshot}, &fakeWorkflowStore{}, &fakeAnswerStore{}, nil, 3, 8, nil)

	_, err := svc.Close(context.Background(), "question-1", "mod", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestAddReviewRejectsSelfReview(t *testing.T) {
	answers := &fakeAnswerStore{answer: &models.Answer{ID: "answer-1", AuthorID: "alice"}}
	svc := NewReviewService(&fakeQuestionStore{}, &fakeWorkflowStore{}, answers, nil, 3, 8, nil)

	_, err := svc.AddReview(context.Background(), "answer-1", "alice", dto.CreateReviewRequest{Action: models.ReviewActionAccepted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAddReviewRejectsFinalAnswer(t *testing.T) {
	answers := &fakeAnswerStore{answer: &models.Answer{ID: "answer-1", AuthorID: "alice", IsFinal: true}}
	svc := NewReviewService(&fakeQuestionStore{}, &fakeWorkflowStore{}, answers, nil, 3, 8, nil)

	_, err := svc.AddReview(context.Background(), "answer-1", "bob", dto.CreateReviewRequest{Action: models.ReviewActionAccepted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestAddReviewRejectsSecondVerdict(t *testing.T) {
	answers := &fakeAnswerStore{answer: &models.Answer{ID: "answer-1", AuthorID: "alice"}, reviewed: true}
	svc := NewReviewService(&fakeQuestionStore{}, &fakeWorkflowStore{}, answers, nil, 3, 8, nil)

	_, err := svc.AddReview(context.Background(), "answer-1", "bob", dto.CreateReviewRequest{Action: models.ReviewActionAccepted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAddReviewAcceptedCreditsAuthor(t *testing.T) {
	answers := &fakeAnswerStore{answer: &models.Answer{ID: "answer-1", AuthorID: "alice"}}
	workflow := &fakeWorkflowStore{}
	svc := NewReviewService(&fakeQuestionStore{}, workflow, answers, nil, 3, 8, nil)

	review, err := svc.AddReview(context.Background(), "answer-1", "bob", dto.CreateReviewRequest{Action: models.ReviewActionAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewActionAccepted, review.Action)

	require.NotNil(t, workflow.review)
	assert.True(t, workflow.review.IncrementApproval)
	assert.Equal(t, "alice", workflow.review.AuthorID)
	assert.Equal(t, repository.ReputationDelta{Reputation: 1, Incentive: 1}, workflow.review.AuthorDelta)
}

func TestAddReviewRejectedPenalisesAuthor(t *testing.T) {
	answers := &fakeAnswerStore{answer: &models.Answer{ID: "answer-1", AuthorID: "alice"}}
	workflow := &fakeWorkflowStore{}
	svc := NewReviewService(&fakeQuestionStore{}, workflow, answers, nil, 3, 8, nil)

	_, err := svc.AddReview(context.Background(), "answer-1", "bob", dto.CreateReviewRequest{
		Action: models.ReviewActionRejected,
		Reason: "missing citations for dosage",
	})
	require.NoError(t, err)
	assert.False(t, workflow.review.IncrementApproval)
	assert.Equal(t, repository.ReputationDelta{Penalty: 1}, workflow.review.AuthorDelta)
}

func TestAddReviewModifiedRequiresNewAnswer(t *testing.T) {
	answers := &fakeAnswerStore{answer: &models.Answer{ID: "answer-1", AuthorID: "alice", Text: "old text"}}
	workflow := &fakeWorkflowStore{}
	svc := NewReviewService(&fakeQuestionStore{}, workflow, answers, nil, 3, 8, nil)

	_, err := svc.AddReview(context.Background(), "answer-1", "bob", dto.CreateReviewRequest{Action: models.ReviewActionModified})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	review, err := svc.AddReview(context.Background(), "answer-1", "bob", dto.CreateReviewRequest{
		Action:    models.ReviewActionModified,
		NewAnswer: "corrected text",
	})
	require.NoError(t, err)
	require.NotNil(t, review.OldAnswer)
	assert.Equal(t, "old text", *review.OldAnswer)
	require.NotNil(t, review.NewAnswer)
	assert.Equal(t, "corrected text", *review.NewAnswer)
}
