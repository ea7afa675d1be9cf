package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
)

type questionStore interface {
	Create(ctx context.Context, question *models.Question) error
	GetSnapshot(ctx context.Context, id string) (*models.QuestionSnapshot, error)
	List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error)
}

type questionAnswerStore interface {
	ListByQuestion(ctx context.Context, questionID string) ([]models.Answer, error)
}

type queueFiller interface {
	FillQueue(ctx context.Context, questionID string) error
}

// QuestionService manages question intake and read views.
type QuestionService struct {
	questions questionStore
	answers   questionAnswerStore
	filler    queueFiller
	logger    *zap.Logger
}

// NewQuestionService constructs a QuestionService. filler may be nil when
// auto-allocation is disabled.
func NewQuestionService(questions questionStore, answers questionAnswerStore, filler queueFiller, logger *zap.Logger) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionService{questions: questions, answers: answers, filler: filler, logger: logger}
}

// Create ingests a new question. Auto-allocate questions get their queue
// topped up from the expert pool immediately.
func (s *QuestionService) Create(ctx context.Context, req dto.CreateQuestionRequest, autoAllocate bool) (*models.Question, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "question text is required")
	}
	question := &models.Question{
		Text:           text,
		Status:         models.QuestionStatusOpen,
		IsAutoAllocate: autoAllocate,
		State:          req.State,
		Crop:           req.Crop,
		Domain:         req.Domain,
		Priority:       req.Priority,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
	}

	if autoAllocate && s.filler != nil {
		if err := s.filler.FillQueue(ctx, question.ID); err != nil {
			s.logger.Warn("auto-allocation failed for new question",
				zap.String("question_id", question.ID), zap.Error(err))
		}
	}

	s.logger.Info("question created",
		zap.String("question_id", question.ID),
		zap.Bool("auto_allocate", autoAllocate))
	return question, nil
}

// Get assembles the question detail view: the question, its annotated queue
// and full submission timeline, with answer iterations when requested.
func (s *QuestionService) Get(ctx context.Context, questionID string, includeAnswers bool) (*dto.QuestionDetail, error) {
	snapshot, err := s.questions.GetSnapshot(ctx, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}

	detail := &dto.QuestionDetail{
		Question: snapshot.Question,
		Queue:    QueueStates(snapshot.Queue, snapshot.History),
		History:  snapshot.History,
	}
	if includeAnswers {
		answers, err := s.answers.ListByQuestion(ctx, questionID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list answers")
		}
		detail.Answers = answers
	}
	return detail, nil
}

// List returns questions matching the query with pagination metadata.
func (s *QuestionService) List(ctx context.Context, query dto.QuestionQuery) ([]models.Question, *models.Pagination, error) {
	questions, total, err := s.questions.List(ctx, models.QuestionFilter{
		Status:   query.Status,
		State:    query.State,
		Crop:     query.Crop,
		Domain:   query.Domain,
		Priority: query.Priority,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return questions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
