package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ExpertWorkloadRow is one expert's count of queue turns still awaiting a
// submission on non-closed questions.
type ExpertWorkloadRow struct {
	ExpertID    string `db:"expert_id"`
	ExpertEmail string `db:"expert_email"`
	WaitingOn   int    `db:"waiting_on"`
}

// ThroughputRow aggregates terminal review outcomes over a trailing window.
type ThroughputRow struct {
	Approved int `db:"approved"`
	Rejected int `db:"rejected"`
	Rerouted int `db:"rerouted"`
}

// DashboardRepository runs the aggregate queries behind the moderator
// dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// ExpertWorkload returns the busiest experts by outstanding queue turns.
func (r *DashboardRepository) ExpertWorkload(ctx context.Context, limit int) ([]ExpertWorkloadRow, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT q.expert_id, q.expert_email, COUNT(*) AS waiting_on
	FROM allocation_queue q
	JOIN questions c ON c.id = q.question_id
	WHERE c.status <> 'closed'
	  AND NOT EXISTS (
	    SELECT 1 FROM submission_history h
	    WHERE h.question_id = q.question_id
	      AND h.updated_by = q.expert_id
	      AND h.answer_id IS NOT NULL)
	GROUP BY q.expert_id, q.expert_email
	ORDER BY waiting_on DESC
	LIMIT $1`

	var rows []ExpertWorkloadRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("load expert workload: %w", err)
	}
	return rows, nil
}

// ReviewThroughput counts approvals, rejections and re-routes recorded since
// the given time.
func (r *DashboardRepository) ReviewThroughput(ctx context.Context, since time.Time) (*ThroughputRow, error) {
	const query = `SELECT
	COUNT(*) FILTER (WHERE approved_answer) AS approved,
	COUNT(*) FILTER (WHERE rejected_answer) AS rejected,
	COUNT(*) FILTER (WHERE is_reroute AND status = 're-routed') AS rerouted
	FROM submission_history WHERE created_at >= $1`

	var row ThroughputRow
	if err := r.db.GetContext(ctx, &row, query, since); err != nil {
		return nil, fmt.Errorf("load review throughput: %w", err)
	}
	return &row, nil
}
