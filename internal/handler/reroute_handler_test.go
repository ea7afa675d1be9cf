package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicharanashala/ajrasakha-sub001/internal/middleware"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	"github.com/vicharanashala/ajrasakha-sub001/internal/service"
)

type stubRerouteWorkflow struct {
	created *repository.CreateRerouteParams
}

func (s *stubRerouteWorkflow) CreateReroute(_ context.Context, params repository.CreateRerouteParams) (*models.Reroute, error) {
	s.created = &params
	reroute := params.Reroute
	reroute.ID = "reroute-1"
	reroute.Status = models.RerouteStatusPending
	return &reroute, nil
}

func (s *stubRerouteWorkflow) RejectReroute(context.Context, repository.RejectRerouteParams) error {
	return nil
}

type stubRerouteStore struct{}

func (stubRerouteStore) GetByID(context.Context, string) (*models.Reroute, error) {
	return &models.Reroute{ID: "reroute-1", Status: models.RerouteStatusPending}, nil
}

func (stubRerouteStore) List(context.Context, models.RerouteFilter) ([]models.Reroute, error) {
	return nil, nil
}

type stubRerouteUsers struct{}

func (stubRerouteUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Email: id + "@example.com", Role: models.RoleExpert, Active: true}, nil
}

// newRerouteRouter mirrors the gateway wiring: re-route creation sits behind
// the moderation role gate.
func newRerouteRouter(claims *models.JWTClaims) (*gin.Engine, *stubRerouteWorkflow) {
	gin.SetMode(gin.TestMode)

	snapshot := &models.QuestionSnapshot{
		Question:     models.Question{ID: "question-1", Status: models.QuestionStatusInReview, Version: 2},
		Queue:        []models.QueueEntry{{ID: "q1", ExpertID: "alice", Round: 1, Position: 1}},
		LatestAnswer: &models.Answer{ID: "answer-1", AuthorID: "alice", Iteration: 1},
	}
	workflow := &stubRerouteWorkflow{}
	svc := service.NewRerouteService(&stubQuestionStore{snapshot: snapshot}, workflow, stubRerouteStore{}, stubRerouteUsers{}, nil, 8, nil)
	handler := NewRerouteHandler(svc, nil)

	r := gin.New()
	grp := r.Group("/questions", func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	}, middleware.RequireRoles(models.RoleAdmin, models.RoleModerator))
	grp.POST("/:id/reroutes", handler.Create)
	return r, workflow
}

func postReroute(t *testing.T, r *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"answerId":       "answer-1",
		"targetExpertId": "bob",
		"comment":        "needs a soil science specialist",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/questions/question-1/reroutes", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateRerouteAllowsModerator(t *testing.T) {
	r, workflow := newRerouteRouter(&models.JWTClaims{UserID: "mod", Role: models.RoleModerator})

	rec := postReroute(t, r)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, workflow.created)
	assert.Equal(t, "mod", workflow.created.Reroute.ReroutedBy)
	assert.Equal(t, "bob", workflow.created.Reroute.ReroutedTo)
}

func TestCreateRerouteForbiddenForExpert(t *testing.T) {
	r, workflow := newRerouteRouter(&models.JWTClaims{UserID: "alice", Role: models.RoleExpert})

	rec := postReroute(t, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, workflow.created)
}
