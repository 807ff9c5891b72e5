package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/middleware"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

type fakeCorrectionSrv struct {
	submitted  *dto.CreateCorrectionRequest
	listQuery  dto.CorrectionQuery
	reviewed   *dto.ReviewCorrectionRequest
	reviewedID string
	err        error
}

func (f *fakeCorrectionSrv) Submit(_ context.Context, req dto.CreateCorrectionRequest, actor *models.JWTClaims) (*models.Correction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = &req
	return &models.Correction{ID: "corr-1", Status: models.CorrectionStatusPending, SubmitterID: actor.UserID}, nil
}

func (f *fakeCorrectionSrv) List(_ context.Context, query dto.CorrectionQuery, _ *models.JWTClaims) ([]models.Correction, error) {
	f.listQuery = query
	return []models.Correction{{ID: "corr-1"}}, nil
}

func (f *fakeCorrectionSrv) Get(_ context.Context, id string, _ *models.JWTClaims) (*models.Correction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Correction{ID: id}, nil
}

func (f *fakeCorrectionSrv) Review(_ context.Context, id string, req dto.ReviewCorrectionRequest, _ *models.JWTClaims, _, _ string) (*models.Correction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reviewedID = id
	f.reviewed = &req
	return &models.Correction{ID: id, Status: req.Status}, nil
}

func submitterClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}
}

func TestCorrectionCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewCorrectionHandler(&fakeCorrectionSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := `{"gameId":"game-1","gameSlug":"lost-planet","field":"developer","newValue":"Capcom","reason":"verified"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/corrections", strings.NewReader(body))

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCorrectionCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeCorrectionSrv{}
	h := NewCorrectionHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := `{"gameId":"game-1","gameSlug":"lost-planet","field":"developer","newValue":"Capcom","reason":"verified"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/corrections", strings.NewReader(body))
	c.Set(middleware.ContextUserKey, submitterClaims())

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotNil(t, service.submitted)
	assert.Equal(t, models.FieldDeveloper, service.submitted.Field)
}

func TestCorrectionCreateRejectsMissingReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewCorrectionHandler(&fakeCorrectionSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := `{"gameId":"game-1","gameSlug":"lost-planet","field":"developer"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/corrections", strings.NewReader(body))
	c.Set(middleware.ContextUserKey, submitterClaims())

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorrectionListParsesStatusFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeCorrectionSrv{}
	h := NewCorrectionHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/corrections?status=pending,approved&game=lost-planet&limit=50", nil)
	c.Set(middleware.ContextUserKey, submitterClaims())

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.CorrectionStatus{models.CorrectionStatusPending, models.CorrectionStatusApproved}, service.listQuery.Status)
	assert.Equal(t, "lost-planet", service.listQuery.GameSlug)
	assert.Equal(t, 50, service.listQuery.Limit)
}

func TestCorrectionReviewPropagatesConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewCorrectionHandler(&fakeCorrectionSrv{err: appErrors.ErrConflict})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/corrections/corr-1/review", strings.NewReader(`{"status":"APPROVED"}`))
	c.Params = gin.Params{{Key: "id", Value: "corr-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "rev-1", Role: models.RoleReviewer})

	h.Review(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCorrectionReviewSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeCorrectionSrv{}
	h := NewCorrectionHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/corrections/corr-1/review", strings.NewReader(`{"status":"REJECTED","notes":"duplicate"}`))
	c.Params = gin.Params{{Key: "id", Value: "corr-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "rev-1", Role: models.RoleReviewer})

	h.Review(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "corr-1", service.reviewedID)
	assert.Equal(t, models.CorrectionStatusRejected, service.reviewed.Status)
}
