package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

const rerouteColumns = `id, question_id, answer_id, rerouted_to, rerouted_by, queue_entry_id, comment, status, reason, created_at, resolved_at`

// RerouteRepository reads re-route records; writes go through the workflow
// repository so they share the question's optimistic guard.
type RerouteRepository struct {
	db *sqlx.DB
}

// NewRerouteRepository constructs the repository.
func NewRerouteRepository(db *sqlx.DB) *RerouteRepository {
	return &RerouteRepository{db: db}
}

// GetByID fetches a re-route by identifier.
func (r *RerouteRepository) GetByID(ctx context.Context, id string) (*models.Reroute, error) {
	query := `SELECT ` + rerouteColumns + ` FROM reroutes WHERE id = $1`
	var reroute models.Reroute
	if err := r.db.GetContext(ctx, &reroute, query, id); err != nil {
		return nil, err
	}
	return &reroute, nil
}

// List returns re-routes matching the filter, newest first.
func (r *RerouteRepository) List(ctx context.Context, filter models.RerouteFilter) ([]models.Reroute, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if filter.QuestionID != "" {
		args = append(args, filter.QuestionID)
		conditions = append(conditions, fmt.Sprintf("question_id = $%d", len(args)))
	}
	if filter.ReroutedTo != "" {
		args = append(args, filter.ReroutedTo)
		conditions = append(conditions, fmt.Sprintf("rerouted_to = $%d", len(args)))
	}
	if filter.ReroutedBy != "" {
		args = append(args, filter.ReroutedBy)
		conditions = append(conditions, fmt.Sprintf("rerouted_by = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := `SELECT ` + rerouteColumns + ` FROM reroutes`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	var reroutes []models.Reroute
	if err := r.db.SelectContext(ctx, &reroutes, query, args...); err != nil {
		return nil, fmt.Errorf("list reroutes: %w", err)
	}
	return reroutes, nil
}

// CountPending returns the number of unresolved re-routes.
func (r *RerouteRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reroutes WHERE status = $1`, models.RerouteStatusPending); err != nil {
		return 0, fmt.Errorf("count pending reroutes: %w", err)
	}
	return count, nil
}
