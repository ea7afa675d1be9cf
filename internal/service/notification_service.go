package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vicharanashala/ajrasakha-sub001/pkg/config"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/jobs"
)

// Event types emitted by the review workflow.
const (
	EventAnswerSubmitted = "answer.submitted"
	EventAnswerApproved  = "answer.approved"
	EventAnswerRejected  = "answer.rejected"
	EventRerouteCreated  = "reroute.created"
	EventRerouteRejected = "reroute.rejected"
	EventQuestionClosed  = "question.closed"
)

// Event is a best-effort workflow notification. TargetID names the user the
// event concerns (answer author, re-route target) when that differs from the
// actor.
type Event struct {
	Type       string    `json:"type"`
	QuestionID string    `json:"questionId"`
	ActorID    string    `json:"actorId,omitempty"`
	TargetID   string    `json:"targetId,omitempty"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

type eventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// NotificationService dispatches workflow events to an optional webhook
// through a background worker queue. Delivery is best effort and never
// blocks the workflow write path.
type NotificationService struct {
	queue      *jobs.Queue
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
	enabled    bool
}

// NewNotificationService constructs the dispatcher. Call Start before
// publishing and Stop on shutdown.
func NewNotificationService(cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		enabled:    cfg.Enabled,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// Publish enqueues an event for delivery. Failures are logged, not returned;
// notifications never fail a workflow operation.
func (s *NotificationService) Publish(_ context.Context, event Event) {
	if s == nil || !s.enabled {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    event.Type,
		Payload: event,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", event.Type),
			zap.String("question_id", event.QuestionID),
			zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(Event)
	if !ok {
		s.logger.Warn("dropping notification with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	if s.webhookURL == "" {
		s.logger.Info("workflow event",
			zap.String("type", event.Type),
			zap.String("question_id", event.QuestionID),
			zap.String("actor_id", event.ActorID))
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}
