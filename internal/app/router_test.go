package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/clanstats-api/internal/dto"
	"github.com/noah-isme/clanstats-api/internal/handler"
	"github.com/noah-isme/clanstats-api/internal/models"
	"github.com/noah-isme/clanstats-api/internal/service"
	"github.com/noah-isme/clanstats-api/pkg/config"
)

const routedSubmission = "5b0f2c1e-8d4a-4e55-9f0a-2f4f1c3b7a10"

type routedService struct {
	called string
}

func (s *routedService) GetDetail(ctx context.Context, id string, q dto.DetailQuery) (*dto.SubmissionDetail, *models.Pagination, error) {
	s.called = "get"
	return &dto.SubmissionDetail{Submission: &models.Submission{ID: id}}, &models.Pagination{Page: 1}, nil
}

func (s *routedService) DeleteEntry(ctx context.Context, id, entryID string, actor *models.JWTClaims) (*dto.DeleteResult, error) {
	s.called = "delete_entry"
	return &dto.DeleteResult{Deleted: true}, nil
}

func (s *routedService) DeleteSubmission(ctx context.Context, id string, actor *models.JWTClaims) (*dto.DeleteResult, error) {
	s.called = "delete_submission"
	return &dto.DeleteResult{Deleted: true, SubmissionDeleted: true}, nil
}

func (s *routedService) EditEntry(ctx context.Context, id string, req dto.EditEntryRequest, actor *models.JWTClaims) (*dto.EditEntryResult, error) {
	s.called = "edit"
	return &dto.EditEntryResult{}, nil
}

func (s *routedService) AssignEntry(ctx context.Context, id string, req dto.AssignEntryRequest, actor *models.JWTClaims) (*dto.AssignEntryResult, error) {
	s.called = "assign"
	return &dto.AssignEntryResult{}, nil
}

func (s *routedService) UpdateMetadata(ctx context.Context, id string, req dto.MetadataRequest, actor *models.JWTClaims) (*dto.MetadataResult, error) {
	s.called = "metadata"
	return &dto.MetadataResult{Submission: &models.Submission{ID: id}}, nil
}

func newTestRouter(t *testing.T, env string) (*gin.Engine, *routedService, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: env, APIPrefix: "/api/v1"}
	auth := service.NewAuthService("test-secret", "clanstats")
	metrics := service.NewMetricsService()
	svc := &routedService{}
	r := NewRouter(RouterDeps{
		Config:      cfg,
		Logger:      zap.NewNop(),
		Auth:        auth,
		Metrics:     metrics,
		Submissions: handler.NewSubmissionHandler(svc),
		Probes:      handler.NewMetricsHandler(metrics, nil),
	})
	return r, svc, auth
}

func bearer(t *testing.T, auth *service.AuthService, role models.UserRole) string {
	t.Helper()
	token, err := auth.IssueToken("user-1", role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterSubmissionRoutesRequireReviewerRole(t *testing.T) {
	r, svc, auth := newTestRouter(t, config.EnvDevelopment)
	target := "/api/v1/submissions/" + routedSubmission

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", bearer(t, auth, models.RoleMember))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, svc.called)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", bearer(t, auth, models.RoleModerator))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "get", svc.called)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, target, nil)
	req.Header.Set("Authorization", bearer(t, auth, models.RoleOwner))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "delete_submission", svc.called)
}

func TestRouterProbesAndDocs(t *testing.T) {
	r, _, _ := newTestRouter(t, config.EnvDevelopment)
	for _, path := range []string{"/health", "/ready", "/metrics", "/metrics/summary"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	prod, _, _ := newTestRouter(t, config.EnvProduction)
	w := httptest.NewRecorder()
	prod.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	gin.SetMode(gin.TestMode)
}
