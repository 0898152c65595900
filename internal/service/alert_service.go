package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/pkg/config"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
)

type alertStore interface {
	CreateBatch(ctx context.Context, alerts []models.Alert) ([]models.Alert, error)
	ExistsOpen(ctx context.Context, stepID, recipientID int64, daysPostETA int) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Alert, error)
	ListByRecipient(ctx context.Context, userID int64, filter models.AlertFilter) ([]models.Alert, int, error)
	Acknowledge(ctx context.Context, id int64, at time.Time) (*models.Alert, error)
}

type criticalStepStore interface {
	GetCriticalIncomplete(ctx context.Context, shipmentID int64) ([]models.WorkflowStep, error)
}

type alertDispatcher interface {
	Dispatch(alertID int64) error
}

type alertMetrics interface {
	AlertCreated(severity models.AlertSeverity)
}

// RecipientResolver decides which users an escalation goes to, given the
// step and how many days the shipment is past its ETA.
type RecipientResolver interface {
	Recipients(step *models.WorkflowStep, daysPostETA int) []int64
}

// RecipientResolverFunc allows plain functions as resolvers.
type RecipientResolverFunc func(step *models.WorkflowStep, daysPostETA int) []int64

// Recipients implements RecipientResolver.
func (f RecipientResolverFunc) Recipients(step *models.WorkflowStep, daysPostETA int) []int64 {
	return f(step, daysPostETA)
}

// AlertService evaluates shipments against the day-based escalation
// thresholds, creates deduplicated alerts, and handles acknowledgment.
type AlertService struct {
	alerts     alertStore
	steps      criticalStepStore
	resolver   RecipientResolver
	dispatcher alertDispatcher
	metrics    alertMetrics

	cfg    config.AlertsConfig
	logger *zap.Logger
}

// AlertServiceOption configures the service.
type AlertServiceOption func(*AlertService)

// WithRecipientResolver replaces the default escalation routing.
func WithRecipientResolver(resolver RecipientResolver) AlertServiceOption {
	return func(s *AlertService) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithAlertMetrics wires alert counters.
func WithAlertMetrics(metrics alertMetrics) AlertServiceOption {
	return func(s *AlertService) { s.metrics = metrics }
}

// NewAlertService constructs the service. The default resolver routes every
// alert to the step's PPR and pulls in the APR once the escalation day is
// reached.
func NewAlertService(alerts alertStore, steps criticalStepStore, dispatcher alertDispatcher, cfg config.AlertsConfig, logger *zap.Logger, opts ...AlertServiceOption) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AlertService{
		alerts:     alerts,
		steps:      steps,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
	svc.resolver = RecipientResolverFunc(func(step *models.WorkflowStep, daysPostETA int) []int64 {
		recipients := []int64{step.PPRUserID}
		if daysPostETA >= cfg.EscalationDays && step.APRUserID != nil && *step.APRUserID != step.PPRUserID {
			recipients = append(recipients, *step.APRUserID)
		}
		return recipients
	})
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// SeverityFor maps days past ETA onto a severity. The bool is false below
// the warning threshold.
func (s *AlertService) SeverityFor(daysPostETA int) (models.AlertSeverity, bool) {
	switch {
	case daysPostETA >= s.cfg.UrgentDays:
		return models.AlertSeverityUrgent, true
	case daysPostETA >= s.cfg.CriticalDays:
		return models.AlertSeverityCritical, true
	case daysPostETA >= s.cfg.WarningDays:
		return models.AlertSeverityWarning, true
	}
	return "", false
}

// EvaluateShipment checks one shipment's critical open steps against the
// thresholds, creating and dispatching any missing alerts. Returns the
// number of alerts actually created; duplicates of still-open alerts are
// silently skipped.
func (s *AlertService) EvaluateShipment(ctx context.Context, shipment *models.Shipment, today time.Time) (int, error) {
	days := shipment.DaysPostETA(today)
	severity, due := s.SeverityFor(days)
	if !due {
		return 0, nil
	}

	steps, err := s.steps.GetCriticalIncomplete(ctx, shipment.ID)
	if err != nil {
		return 0, fmt.Errorf("load critical steps for shipment %d: %w", shipment.ID, err)
	}
	if len(steps) == 0 {
		return 0, nil
	}

	var pending []models.Alert
	for i := range steps {
		step := &steps[i]
		for _, recipientID := range s.resolver.Recipients(step, days) {
			exists, err := s.alerts.ExistsOpen(ctx, step.ID, recipientID, days)
			if err != nil {
				return 0, fmt.Errorf("dedup check for step %d: %w", step.ID, err)
			}
			if exists {
				continue
			}
			pending = append(pending, models.Alert{
				ShipmentID:      shipment.ID,
				WorkflowStepID:  step.ID,
				RecipientUserID: recipientID,
				Severity:        severity,
				Message: fmt.Sprintf("Shipment %s is %d day(s) past ETA with step %s (%s) incomplete",
					shipment.ShipmentNumber, days, step.StepNumber, step.StepName),
				DaysPostETA: days,
			})
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	created, err := s.alerts.CreateBatch(ctx, pending)
	if err != nil {
		return 0, fmt.Errorf("create alerts for shipment %d: %w", shipment.ID, err)
	}
	for _, alert := range created {
		if s.metrics != nil {
			s.metrics.AlertCreated(alert.Severity)
		}
		if s.dispatcher != nil {
			if err := s.dispatcher.Dispatch(alert.ID); err != nil {
				s.logger.Error("failed to dispatch alert",
					zap.Int64("alert_id", alert.ID), zap.Error(err))
			}
		}
	}
	s.logger.Info("alerts created for shipment",
		zap.Int64("shipment_id", shipment.ID),
		zap.String("severity", string(severity)),
		zap.Int("days_post_eta", days),
		zap.Int("created", len(created)))
	return len(created), nil
}

// Acknowledge marks an alert acknowledged. Only the recipient or a manager
// may acknowledge; repeating the call is harmless.
func (s *AlertService) Acknowledge(ctx context.Context, alertID int64, actor *models.User) (*models.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.FromError(err)
	}
	if !canAcknowledge(alert, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the alert recipient may acknowledge it")
	}

	acked, err := s.alerts.Acknowledge(ctx, alertID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return acked, nil
}

// ListForUser pages through a user's alerts.
func (s *AlertService) ListForUser(ctx context.Context, userID int64, query dto.AlertQuery) ([]models.Alert, *models.Pagination, error) {
	filter := models.AlertFilter{
		ShipmentID:     query.ShipmentID,
		Severity:       models.AlertSeverity(query.Severity),
		IsAcknowledged: query.Acknowledged,
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	alerts, total, err := s.alerts.ListByRecipient(ctx, userID, filter)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	return alerts, models.NewPagination(query.Page, query.PageSize, total), nil
}

func canAcknowledge(alert *models.Alert, actor *models.User) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleManager:
		return true
	}
	return alert.RecipientUserID == actor.ID
}
