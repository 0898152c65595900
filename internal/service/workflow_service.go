package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tarakiga/ccas/internal/catalog"
	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/internal/repository"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
)

type stepStore interface {
	GetByID(ctx context.Context, id int64) (*models.WorkflowStep, error)
	GetByShipment(ctx context.Context, shipmentID int64) ([]models.WorkflowStep, error)
	GetByAssignee(ctx context.Context, userID int64, filter models.StepFilter) ([]models.WorkflowStep, error)
	Complete(ctx context.Context, id int64, actualDate time.Time, audits []models.AuditRecord) (*models.WorkflowStep, error)
}

type templateStore interface {
	ListActive(ctx context.Context) ([]models.WorkflowStepTemplate, error)
}

type userDirectory interface {
	ResolveDepartment(ctx context.Context, department string) (*models.DepartmentAssignment, error)
}

type stepMetrics interface {
	StepCompleted()
}

// WorkflowService generates step instances from the catalog and handles
// step completion with assignee authorization.
type WorkflowService struct {
	steps     stepStore
	templates templateStore
	users     userDirectory
	metrics   stepMetrics

	defaultAssigneeID int64
	logger            *zap.Logger
}

// WorkflowServiceOption configures the service.
type WorkflowServiceOption func(*WorkflowService)

// WithStepMetrics wires completion counters.
func WithStepMetrics(metrics stepMetrics) WorkflowServiceOption {
	return func(s *WorkflowService) { s.metrics = metrics }
}

// NewWorkflowService constructs the service. defaultAssigneeID receives
// steps for departments with no active PPR on file.
func NewWorkflowService(steps stepStore, templates templateStore, users userDirectory, defaultAssigneeID int64, logger *zap.Logger, opts ...WorkflowServiceOption) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &WorkflowService{
		steps:             steps,
		templates:         templates,
		users:             users,
		defaultAssigneeID: defaultAssigneeID,
		logger:            logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Generate materializes the full step set for a shipment anchored at the
// given ETA. Target dates are eta + offset; template fields are denormalized
// so later catalog edits never rewrite history.
func (s *WorkflowService) Generate(ctx context.Context, eta time.Time) ([]models.WorkflowStep, error) {
	templates, err := s.templates.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load step catalog")
	}
	if len(templates) == 0 {
		// unseeded database, fall back to the built-in catalog
		s.logger.Warn("step catalog empty, using built-in defaults")
		templates = catalog.Default()
	}

	anchor := models.DateOf(eta)
	assignments := make(map[string]*models.DepartmentAssignment, 5)
	steps := make([]models.WorkflowStep, 0, len(templates))
	for _, tpl := range templates {
		assignment, ok := assignments[tpl.Department]
		if !ok {
			assignment, err = s.users.ResolveDepartment(ctx, tpl.Department)
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("no active PPR for department, using default assignee",
					zap.String("department", tpl.Department),
					zap.Int64("default_assignee_id", s.defaultAssigneeID))
				assignment = &models.DepartmentAssignment{PPRUserID: s.defaultAssigneeID}
			} else if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve department assignment")
			}
			assignments[tpl.Department] = assignment
		}

		steps = append(steps, models.WorkflowStep{
			StepNumber:  tpl.StepNumber,
			StepName:    tpl.StepName,
			Description: tpl.Description,
			Department:  tpl.Department,
			TargetDate:  anchor.AddDate(0, 0, tpl.OffsetDays),
			OffsetDays:  tpl.OffsetDays,
			Status:      models.StepStatusPending,
			IsCritical:  tpl.IsCritical,
			PPRUserID:   assignment.PPRUserID,
			APRUserID:   assignment.APRUserID,
		})
	}
	return steps, nil
}

// StepsForShipment lists a shipment's steps in schedule order.
func (s *WorkflowService) StepsForShipment(ctx context.Context, shipmentID int64) ([]models.WorkflowStep, error) {
	steps, err := s.steps.GetByShipment(ctx, shipmentID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return steps, nil
}

// MySteps lists steps assigned to the user as PPR or APR.
func (s *WorkflowService) MySteps(ctx context.Context, userID int64, query dto.StepQuery) ([]models.WorkflowStep, error) {
	filter := models.StepFilter{
		Status:     models.StepStatus(query.Status),
		Department: query.Department,
		IsCritical: query.Critical,
	}
	steps, err := s.steps.GetByAssignee(ctx, userID, filter)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return steps, nil
}

// Complete records the actual completion date on a step. Only the step's
// PPR or APR, or a manager, may complete it, and the date cannot lie in
// the future.
func (s *WorkflowService) Complete(ctx context.Context, stepID int64, req dto.CompleteStepRequest, actor *models.User) (*models.WorkflowStep, error) {
	if req.ActualDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "actualDate is required")
	}
	actualDate := models.DateOf(req.ActualDate.Time)
	if actualDate.After(models.DateOf(time.Now())) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "actualDate cannot be in the future")
	}

	step, err := s.steps.GetByID(ctx, stepID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "workflow step not found")
		}
		return nil, appErrors.FromError(err)
	}

	if !s.canComplete(step, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the step's assignees may complete it")
	}
	if step.ActualDate != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "step already completed")
	}

	audits := []models.AuditRecord{{
		EntityType: models.AuditEntityWorkflowStep,
		EntityID:   step.ID,
		FieldName:  "actual_date",
		NewValue:   models.StrPtr(actualDate.Format("2006-01-02")),
		ActorID:    actor.ID,
		Origin:     "api",
	}}
	completed, err := s.steps.Complete(ctx, stepID, actualDate, audits)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "step was completed by another user")
		}
		return nil, appErrors.FromError(err)
	}

	if s.metrics != nil {
		s.metrics.StepCompleted()
	}
	s.logger.Info("workflow step completed",
		zap.Int64("step_id", completed.ID),
		zap.Int64("shipment_id", completed.ShipmentID),
		zap.String("step_number", completed.StepNumber),
		zap.Int64("actor_id", actor.ID))
	return completed, nil
}

func (s *WorkflowService) canComplete(step *models.WorkflowStep, actor *models.User) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleManager:
		return true
	case models.RoleReadOnly:
		return false
	}
	return step.IsAssignee(actor.ID)
}
