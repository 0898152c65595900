package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/internal/repository"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
)

type shipmentStore interface {
	CreateWithSteps(ctx context.Context, shipment *models.Shipment, steps []models.WorkflowStep, audits []models.AuditRecord) error
	GetByID(ctx context.Context, id int64) (*models.Shipment, error)
	UpdateVersioned(ctx context.Context, shipment *models.Shipment, expectedVersion int64, audits []models.AuditRecord) error
	UpdateETA(ctx context.Context, id, expectedVersion int64, newETA time.Time, audits []models.AuditRecord) (*models.Shipment, error)
	SoftDelete(ctx context.Context, id int64, audit models.AuditRecord) (bool, error)
	List(ctx context.Context, filter models.ShipmentFilter) ([]models.Shipment, int, error)
}

type stepGenerator interface {
	Generate(ctx context.Context, eta time.Time) ([]models.WorkflowStep, error)
}

type shipmentMetrics interface {
	ShipmentCreated()
	ETAUpdated()
}

// ShipmentService owns the shipment lifecycle: registration with step
// generation, versioned edits, the bounded ETA adjustment, and removal.
type ShipmentService struct {
	repo      shipmentStore
	steps     stepGenerator
	metrics   shipmentMetrics
	evaluator shipmentEvaluator
	validate  *validator.Validate
	logger    *zap.Logger
}

// ShipmentServiceOption configures the service.
type ShipmentServiceOption func(*ShipmentService)

// WithShipmentEvaluator re-checks escalation right after an ETA move, so a
// date shifted into the past alerts immediately instead of waiting for the
// next sweep.
func WithShipmentEvaluator(evaluator shipmentEvaluator) ShipmentServiceOption {
	return func(s *ShipmentService) { s.evaluator = evaluator }
}

// NewShipmentService constructs the service.
func NewShipmentService(repo shipmentStore, steps stepGenerator, metrics shipmentMetrics, logger *zap.Logger, opts ...ShipmentServiceOption) *ShipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ShipmentService{repo: repo, steps: steps, metrics: metrics, validate: validator.New(), logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create registers a shipment and materializes its full workflow in one
// transaction.
func (s *ShipmentService) Create(ctx context.Context, req dto.CreateShipmentRequest, actorID int64) (*models.Shipment, []models.WorkflowStep, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shipment payload")
	}
	if req.ETA.IsZero() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "eta is required")
	}
	if req.InvoiceAmount <= 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invoiceAmountOMR must be positive")
	}

	eta := models.DateOf(req.ETA.Time)
	steps, err := s.steps.Generate(ctx, eta)
	if err != nil {
		return nil, nil, err
	}

	shipment := &models.Shipment{
		ShipmentNumber: req.ShipmentNumber,
		Principal:      req.Principal,
		Brand:          req.Brand,
		LCNumber:       req.LCNumber,
		InvoiceAmount:  req.InvoiceAmount,
		ETA:            eta,
		Status:         models.ShipmentStatusActive,
		CreatedByID:    actorID,
	}
	audits := []models.AuditRecord{{
		EntityType: models.AuditEntityShipment,
		FieldName:  "shipment",
		NewValue:   models.StrPtr("created"),
		ActorID:    actorID,
		Origin:     "api",
	}}
	if err := s.repo.CreateWithSteps(ctx, shipment, steps, audits); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, nil, appErrors.Clone(appErrors.ErrDuplicateKey, "shipment number already exists")
		}
		return nil, nil, appErrors.FromError(err)
	}

	if s.metrics != nil {
		s.metrics.ShipmentCreated()
	}
	s.logger.Info("shipment created",
		zap.Int64("shipment_id", shipment.ID),
		zap.String("shipment_number", shipment.ShipmentNumber),
		zap.Int("steps", len(steps)),
		zap.Int64("actor_id", actorID))
	return shipment, steps, nil
}

// Get loads a shipment.
func (s *ShipmentService) Get(ctx context.Context, id int64) (*models.Shipment, error) {
	shipment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shipment not found")
		}
		return nil, appErrors.FromError(err)
	}
	return shipment, nil
}

// List pages through shipments matching the query.
func (s *ShipmentService) List(ctx context.Context, query dto.ShipmentQuery) ([]models.Shipment, *models.Pagination, error) {
	filter := models.ShipmentFilter{
		Status:    models.ShipmentStatus(query.Status),
		Principal: query.Principal,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if query.ETAStart != "" {
		start, err := time.ParseInLocation(dto.DateLayout, query.ETAStart, time.UTC)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid etaStart, expected YYYY-MM-DD")
		}
		filter.ETAStart = &start
	}
	if query.ETAEnd != "" {
		end, err := time.ParseInLocation(dto.DateLayout, query.ETAEnd, time.UTC)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid etaEnd, expected YYYY-MM-DD")
		}
		filter.ETAEnd = &end
	}

	shipments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	return shipments, models.NewPagination(query.Page, query.PageSize, total), nil
}

// Update applies field changes conditionally on the caller's version. A
// stale version yields CONCURRENT_MODIFICATION and writes nothing.
func (s *ShipmentService) Update(ctx context.Context, id int64, req dto.UpdateShipmentRequest, actorID int64) (*models.Shipment, error) {
	if req.ExpectedVersion <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expectedVersion is required")
	}
	if req.Status != nil && !validStatus(*req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", *req.Status))
	}
	if req.InvoiceAmount != nil && *req.InvoiceAmount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invoiceAmountOMR must be positive")
	}

	shipment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var audits []models.AuditRecord
	apply := func(field string, old, next string) {
		audits = append(audits, models.AuditRecord{
			EntityType: models.AuditEntityShipment,
			EntityID:   id,
			FieldName:  field,
			OldValue:   models.StrPtr(old),
			NewValue:   models.StrPtr(next),
			ActorID:    actorID,
			Origin:     "api",
		})
	}
	if req.Principal != nil && *req.Principal != shipment.Principal {
		apply("principal", shipment.Principal, *req.Principal)
		shipment.Principal = *req.Principal
	}
	if req.Brand != nil && *req.Brand != shipment.Brand {
		apply("brand", shipment.Brand, *req.Brand)
		shipment.Brand = *req.Brand
	}
	if req.LCNumber != nil && *req.LCNumber != shipment.LCNumber {
		apply("lc_number", shipment.LCNumber, *req.LCNumber)
		shipment.LCNumber = *req.LCNumber
	}
	if req.InvoiceAmount != nil && *req.InvoiceAmount != shipment.InvoiceAmount {
		apply("invoice_amount_omr", shipment.InvoiceAmount.String(), req.InvoiceAmount.String())
		shipment.InvoiceAmount = *req.InvoiceAmount
	}
	if req.Status != nil && *req.Status != shipment.Status {
		apply("status", string(shipment.Status), string(*req.Status))
		shipment.Status = *req.Status
	}
	if len(audits) == 0 {
		return shipment, nil
	}

	if err := s.repo.UpdateVersioned(ctx, shipment, req.ExpectedVersion, audits); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "shipment was modified, re-fetch and retry")
		}
		return nil, appErrors.FromError(err)
	}
	return shipment, nil
}

// UpdateETA moves the anchor date and recalculates every step's target
// date. Each shipment allows a bounded number of ETA edits.
func (s *ShipmentService) UpdateETA(ctx context.Context, id int64, req dto.UpdateETARequest, actorID int64) (*models.Shipment, error) {
	if req.ETA.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "eta is required")
	}
	if req.ExpectedVersion <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expectedVersion is required")
	}

	shipment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shipment.ETAEditCount >= models.MaxETAEdits {
		return nil, appErrors.Clone(appErrors.ErrEditLimitExceeded,
			fmt.Sprintf("ETA may be changed at most %d times", models.MaxETAEdits))
	}

	newETA := models.DateOf(req.ETA.Time)
	if newETA.Equal(models.DateOf(shipment.ETA)) {
		return shipment, nil
	}

	audits := []models.AuditRecord{
		{
			EntityType: models.AuditEntityShipment,
			EntityID:   id,
			FieldName:  "eta",
			OldValue:   models.StrPtr(models.DateOf(shipment.ETA).Format("2006-01-02")),
			NewValue:   models.StrPtr(newETA.Format("2006-01-02")),
			ActorID:    actorID,
			Origin:     "api",
		},
		{
			EntityType: models.AuditEntityShipment,
			EntityID:   id,
			FieldName:  "eta_edit_count",
			OldValue:   models.StrPtr(strconv.Itoa(shipment.ETAEditCount)),
			NewValue:   models.StrPtr(strconv.Itoa(shipment.ETAEditCount + 1)),
			ActorID:    actorID,
			Origin:     "api",
		},
	}
	updated, err := s.repo.UpdateETA(ctx, id, req.ExpectedVersion, newETA, audits)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "shipment was modified, re-fetch and retry")
		}
		return nil, appErrors.FromError(err)
	}

	if s.metrics != nil {
		s.metrics.ETAUpdated()
	}
	s.logger.Info("shipment ETA updated",
		zap.Int64("shipment_id", id),
		zap.String("new_eta", newETA.Format("2006-01-02")),
		zap.Int("edit_count", updated.ETAEditCount),
		zap.Int64("actor_id", actorID))

	// The new date may already be past due; re-check escalation now rather
	// than leaving it to the next sweep. Evaluation failures never fail the
	// update itself.
	if s.evaluator != nil {
		if _, err := s.evaluator.EvaluateShipment(ctx, updated, time.Now()); err != nil {
			s.logger.Error("post-update escalation check failed",
				zap.Int64("shipment_id", id), zap.Error(err))
		}
	}
	return updated, nil
}

// Delete soft-deletes a shipment, cancelling it.
func (s *ShipmentService) Delete(ctx context.Context, id, actorID int64) error {
	audit := models.AuditRecord{
		EntityType: models.AuditEntityShipment,
		EntityID:   id,
		FieldName:  "status",
		NewValue:   models.StrPtr(string(models.ShipmentStatusCancelled)),
		ActorID:    actorID,
		Origin:     "api",
	}
	deleted, err := s.repo.SoftDelete(ctx, id, audit)
	if err != nil {
		return appErrors.FromError(err)
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "shipment not found")
	}
	s.logger.Info("shipment deleted", zap.Int64("shipment_id", id), zap.Int64("actor_id", actorID))
	return nil
}

// Import registers shipments in bulk, isolating per-row failures.
func (s *ShipmentService) Import(ctx context.Context, rows []dto.CreateShipmentRequest, actorID int64) dto.ImportSummary {
	summary := dto.ImportSummary{Total: len(rows)}
	for i, row := range rows {
		if _, _, err := s.Create(ctx, row, actorID); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, dto.ImportError{
				Row:            i + 1,
				ShipmentNumber: row.ShipmentNumber,
				Error:          err.Error(),
			})
			continue
		}
		summary.Successful++
	}
	return summary
}

func validStatus(status models.ShipmentStatus) bool {
	switch status {
	case models.ShipmentStatusActive, models.ShipmentStatusCompleted, models.ShipmentStatusCancelled:
		return true
	}
	return false
}
