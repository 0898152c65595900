package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tarakiga/ccas/internal/middleware"
	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/internal/service"
)

type handlerStepStore struct {
	byID     map[int64]*models.WorkflowStep
	assigned []models.WorkflowStep
	filter   models.StepFilter
}

func (s *handlerStepStore) GetByID(_ context.Context, id int64) (*models.WorkflowStep, error) {
	if step, ok := s.byID[id]; ok {
		copied := *step
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *handlerStepStore) GetByShipment(context.Context, int64) ([]models.WorkflowStep, error) {
	return s.assigned, nil
}

func (s *handlerStepStore) GetByAssignee(_ context.Context, _ int64, filter models.StepFilter) ([]models.WorkflowStep, error) {
	s.filter = filter
	return s.assigned, nil
}

func (s *handlerStepStore) Complete(_ context.Context, id int64, actualDate time.Time, _ []models.AuditRecord) (*models.WorkflowStep, error) {
	step := s.byID[id]
	done := *step
	done.ActualDate = &actualDate
	done.Status = models.StepStatusCompleted
	return &done, nil
}

type handlerTemplateStore struct{}

func (handlerTemplateStore) ListActive(context.Context) ([]models.WorkflowStepTemplate, error) {
	return nil, nil
}

type handlerUserDirectory struct{}

func (handlerUserDirectory) ResolveDepartment(context.Context, string) (*models.DepartmentAssignment, error) {
	return &models.DepartmentAssignment{PPRUserID: 1}, nil
}

func newWorkflowTestHandler(store *handlerStepStore) *WorkflowHandler {
	svc := service.NewWorkflowService(store, handlerTemplateStore{}, handlerUserDirectory{}, 1, zap.NewNop())
	return NewWorkflowHandler(svc)
}

func workflowTestContext(t *testing.T, req *http.Request, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func pprClaims() *models.JWTClaims {
	return &models.JWTClaims{
		UserID:     7,
		Email:      "ppr.customs@ccas.local",
		Department: models.DepartmentCustoms,
		Role:       models.RolePPR,
	}
}

func TestWorkflowHandlerMySteps(t *testing.T) {
	store := &handlerStepStore{assigned: []models.WorkflowStep{
		{ID: 21, ShipmentID: 3, StepNumber: "9.0", StepName: "Bayan submission", PPRUserID: 7},
	}}
	handler := newWorkflowTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/steps/my?status=pending&critical=true", nil)
	c, rec := workflowTestContext(t, req, pprClaims())

	handler.MySteps(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"stepNumber":"9.0"`)
	require.Equal(t, models.StepStatusPending, store.filter.Status)
	require.NotNil(t, store.filter.IsCritical)
	require.True(t, *store.filter.IsCritical)
}

func TestWorkflowHandlerMyStepsUnauthorized(t *testing.T) {
	handler := newWorkflowTestHandler(&handlerStepStore{})

	req := httptest.NewRequest(http.MethodGet, "/steps/my", nil)
	c, rec := workflowTestContext(t, req, nil)

	handler.MySteps(c)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWorkflowHandlerComplete(t *testing.T) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	store := &handlerStepStore{byID: map[int64]*models.WorkflowStep{
		42: {ID: 42, ShipmentID: 3, StepNumber: "9.0", StepName: "Bayan submission", Status: models.StepStatusPending, PPRUserID: 7},
	}}
	handler := newWorkflowTestHandler(store)

	body := bytes.NewBufferString(`{"actualDate":"` + yesterday + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/steps/42/complete", body)
	req.Header.Set("Content-Type", "application/json")
	c, rec := workflowTestContext(t, req, pprClaims())
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	handler.Complete(c)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data models.WorkflowStep `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, models.StepStatusCompleted, envelope.Data.Status)
	require.NotNil(t, envelope.Data.ActualDate)
}

func TestWorkflowHandlerCompleteForbidden(t *testing.T) {
	store := &handlerStepStore{byID: map[int64]*models.WorkflowStep{
		42: {ID: 42, ShipmentID: 3, StepNumber: "9.0", Status: models.StepStatusPending, PPRUserID: 99},
	}}
	handler := newWorkflowTestHandler(store)

	body := bytes.NewBufferString(`{"actualDate":"2026-08-01"}`)
	req := httptest.NewRequest(http.MethodPost, "/steps/42/complete", body)
	req.Header.Set("Content-Type", "application/json")
	c, rec := workflowTestContext(t, req, pprClaims())
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	handler.Complete(c)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWorkflowHandlerCompleteInvalidID(t *testing.T) {
	handler := newWorkflowTestHandler(&handlerStepStore{})

	req := httptest.NewRequest(http.MethodPost, "/steps/abc/complete", nil)
	c, rec := workflowTestContext(t, req, pprClaims())
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Complete(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
