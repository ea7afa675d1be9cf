package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

const answerColumns = `id, question_id, author_id, iteration, is_final, text, sources, approval_count, threshold, remarks, created_at, updated_at`

// AnswerRepository reads answer iterations and their reviews.
type AnswerRepository struct {
	db *sqlx.DB
}

// NewAnswerRepository constructs the repository.
func NewAnswerRepository(db *sqlx.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// GetByID fetches an answer by identifier.
func (r *AnswerRepository) GetByID(ctx context.Context, id string) (*models.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM answers WHERE id = $1`
	var answer models.Answer
	if err := r.db.GetContext(ctx, &answer, query, id); err != nil {
		return nil, err
	}
	return &answer, nil
}

// ListByQuestion returns all iterations for a question, oldest first.
func (r *AnswerRepository) ListByQuestion(ctx context.Context, questionID string) ([]models.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM answers WHERE question_id = $1 ORDER BY iteration`
	var answers []models.Answer
	if err := r.db.SelectContext(ctx, &answers, query, questionID); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

// ListReviews returns the ordered review timeline of an answer.
func (r *AnswerRepository) ListReviews(ctx context.Context, answerID string) ([]models.AnswerReview, error) {
	const query = `SELECT id, answer_id, reviewer_id, action, parameters, reason, old_answer, new_answer, modified_by, rerouted, created_at
	FROM answer_reviews WHERE answer_id = $1 ORDER BY created_at`
	var reviews []models.AnswerReview
	if err := r.db.SelectContext(ctx, &reviews, query, answerID); err != nil {
		return nil, fmt.Errorf("list answer reviews: %w", err)
	}
	return reviews, nil
}

// HasReviewed reports whether the reviewer already reviewed this answer on
// the given timeline.
func (r *AnswerRepository) HasReviewed(ctx context.Context, answerID, reviewerID string, rerouted bool) (bool, error) {
	const query = `SELECT COUNT(*) FROM answer_reviews WHERE answer_id = $1 AND reviewer_id = $2 AND rerouted = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, answerID, reviewerID, rerouted); err != nil {
		return false, fmt.Errorf("count reviewer verdicts: %w", err)
	}
	return count > 0, nil
}
