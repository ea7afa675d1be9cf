package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
)

type dashboardQuestionStore interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type dashboardRerouteStore interface {
	CountPending(ctx context.Context) (int, error)
}

type dashboardRequestStore interface {
	CountPending(ctx context.Context) (int, error)
}

type dashboardAggregateStore interface {
	ExpertWorkload(ctx context.Context, limit int) ([]repository.ExpertWorkloadRow, error)
	ReviewThroughput(ctx context.Context, since time.Time) (*repository.ThroughputRow, error)
}

const dashboardCacheKey = "dashboard:summary"

// DashboardService assembles the moderator dashboard summary, cached for a
// short TTL since every count is an aggregate query.
type DashboardService struct {
	questions  dashboardQuestionStore
	reroutes   dashboardRerouteStore
	requests   dashboardRequestStore
	aggregates dashboardAggregateStore
	cache      *CacheService
	cacheTTL   time.Duration
	window     time.Duration
	logger     *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(questions dashboardQuestionStore, reroutes dashboardRerouteStore, requests dashboardRequestStore, aggregates dashboardAggregateStore, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &DashboardService{
		questions:  questions,
		reroutes:   reroutes,
		requests:   requests,
		aggregates: aggregates,
		cache:      cache,
		cacheTTL:   cacheTTL,
		window:     7 * 24 * time.Hour,
		logger:     logger,
	}
}

// Summary returns the dashboard counters. The second return value reports
// whether the summary came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, bool, error) {
	if s.cache.Enabled() {
		var cached dto.DashboardSummary
		if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	byStatus, err := s.questions.CountByStatus(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count questions")
	}
	pendingReroutes, err := s.reroutes.CountPending(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending re-routes")
	}
	pendingRequests, err := s.requests.CountPending(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}
	workload, err := s.aggregates.ExpertWorkload(ctx, 20)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expert workload")
	}
	throughput, err := s.aggregates.ReviewThroughput(ctx, time.Now().UTC().Add(-s.window))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review throughput")
	}

	summary := &dto.DashboardSummary{
		QuestionsByStatus: byStatus,
		PendingReroutes:   pendingReroutes,
		PendingRequests:   pendingRequests,
		ExpertWorkload:    make([]dto.ExpertLoad, 0, len(workload)),
		ReviewThroughput: dto.ReviewThroughput{
			Approved: throughput.Approved,
			Rejected: throughput.Rejected,
			Rerouted: throughput.Rerouted,
		},
	}
	for _, row := range workload {
		summary.ExpertWorkload = append(summary.ExpertWorkload, dto.ExpertLoad{
			ExpertID:  row.ExpertID,
			Email:     row.ExpertEmail,
			WaitingOn: row.WaitingOn,
		})
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, dashboardCacheKey, summary, s.cacheTTL)
	}
	return summary, false, nil
}
