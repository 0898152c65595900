package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/pkg/config"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
)

type alertStoreStub struct {
	alerts map[int64]*models.Alert
	nextID int64
	open   map[int64]bool // keyed by step id
}

func newAlertStoreStub() *alertStoreStub {
	return &alertStoreStub{alerts: make(map[int64]*models.Alert), nextID: 1, open: make(map[int64]bool)}
}

func (s *alertStoreStub) CreateBatch(ctx context.Context, alerts []models.Alert) ([]models.Alert, error) {
	created := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		a.ID = s.nextID
		s.nextID++
		copy := a
		s.alerts[a.ID] = &copy
		created = append(created, a)
	}
	return created, nil
}

func (s *alertStoreStub) ExistsOpen(ctx context.Context, stepID, recipientID int64, daysPostETA int) (bool, error) {
	return s.open[stepID], nil
}

func (s *alertStoreStub) GetByID(ctx context.Context, id int64) (*models.Alert, error) {
	if a, ok := s.alerts[id]; ok {
		copy := *a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *alertStoreStub) ListByRecipient(ctx context.Context, userID int64, filter models.AlertFilter) ([]models.Alert, int, error) {
	var out []models.Alert
	for _, a := range s.alerts {
		if a.RecipientUserID == userID {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

func (s *alertStoreStub) Acknowledge(ctx context.Context, id int64, at time.Time) (*models.Alert, error) {
	a, ok := s.alerts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a.IsAcknowledged = true
	if a.AcknowledgedAt == nil {
		a.AcknowledgedAt = &at
	}
	copy := *a
	return &copy, nil
}

type criticalStepsStub struct {
	steps []models.WorkflowStep
}

func (s *criticalStepsStub) GetCriticalIncomplete(ctx context.Context, shipmentID int64) ([]models.WorkflowStep, error) {
	return s.steps, nil
}

type dispatcherStub struct {
	dispatched []int64
}

func (d *dispatcherStub) Dispatch(alertID int64) error {
	d.dispatched = append(d.dispatched, alertID)
	return nil
}

func alertTestConfig() config.AlertsConfig {
	return config.AlertsConfig{
		WarningDays:    4,
		CriticalDays:   5,
		UrgentDays:     7,
		EscalationDays: 6,
		ETAWindowDays:  30,
		BatchSize:      100,
	}
}

func activeShipment(etaDaysAgo int) *models.Shipment {
	return &models.Shipment{
		ID:             7,
		ShipmentNumber: "SHP-2026-0001",
		Status:         models.ShipmentStatusActive,
		ETA:            models.DateOf(time.Now()).AddDate(0, 0, -etaDaysAgo),
	}
}

func TestAlertServiceSeverityThresholds(t *testing.T) {
	svc := NewAlertService(newAlertStoreStub(), &criticalStepsStub{}, nil, alertTestConfig(), nil)

	_, due := svc.SeverityFor(3)
	require.False(t, due)

	severity, due := svc.SeverityFor(4)
	require.True(t, due)
	require.Equal(t, models.AlertSeverityWarning, severity)

	severity, _ = svc.SeverityFor(5)
	require.Equal(t, models.AlertSeverityCritical, severity)

	severity, _ = svc.SeverityFor(6)
	require.Equal(t, models.AlertSeverityCritical, severity)

	severity, _ = svc.SeverityFor(7)
	require.Equal(t, models.AlertSeverityUrgent, severity)

	severity, _ = svc.SeverityFor(30)
	require.Equal(t, models.AlertSeverityUrgent, severity)
}

func TestAlertServiceEvaluateBelowThreshold(t *testing.T) {
	store := newAlertStoreStub()
	steps := &criticalStepsStub{steps: []models.WorkflowStep{{ID: 1, PPRUserID: 5}}}
	svc := NewAlertService(store, steps, nil, alertTestConfig(), nil)

	created, err := svc.EvaluateShipment(context.Background(), activeShipment(3), time.Now())
	require.NoError(t, err)
	require.Zero(t, created)
	require.Empty(t, store.alerts)
}

func TestAlertServiceEvaluateCreatesAndDispatches(t *testing.T) {
	store := newAlertStoreStub()
	steps := &criticalStepsStub{steps: []models.WorkflowStep{
		{ID: 1, StepNumber: "9.0", StepName: "Bayan submission", PPRUserID: 5},
		{ID: 2, StepNumber: "10.0", StepName: "Customs duty payment", PPRUserID: 6},
	}}
	dispatcher := &dispatcherStub{}
	svc := NewAlertService(store, steps, dispatcher, alertTestConfig(), nil)

	created, err := svc.EvaluateShipment(context.Background(), activeShipment(5), time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, created)
	require.Len(t, dispatcher.dispatched, 2)
	for _, a := range store.alerts {
		require.Equal(t, models.AlertSeverityCritical, a.Severity)
		require.Equal(t, 5, a.DaysPostETA)
		require.Contains(t, a.Message, "SHP-2026-0001")
	}
}

func TestAlertServiceEvaluateEscalatesToAPR(t *testing.T) {
	store := newAlertStoreStub()
	aprID := int64(8)
	steps := &criticalStepsStub{steps: []models.WorkflowStep{
		{ID: 1, StepNumber: "9.0", StepName: "Bayan submission", PPRUserID: 5, APRUserID: &aprID},
	}}
	svc := NewAlertService(store, steps, &dispatcherStub{}, alertTestConfig(), nil)

	created, err := svc.EvaluateShipment(context.Background(), activeShipment(6), time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, created)

	recipients := make(map[int64]bool)
	for _, a := range store.alerts {
		recipients[a.RecipientUserID] = true
	}
	require.True(t, recipients[5])
	require.True(t, recipients[8])
}

func TestAlertServiceEvaluateNoAPRBeforeEscalationDay(t *testing.T) {
	store := newAlertStoreStub()
	aprID := int64(8)
	steps := &criticalStepsStub{steps: []models.WorkflowStep{
		{ID: 1, StepNumber: "9.0", StepName: "Bayan submission", PPRUserID: 5, APRUserID: &aprID},
	}}
	svc := NewAlertService(store, steps, &dispatcherStub{}, alertTestConfig(), nil)

	created, err := svc.EvaluateShipment(context.Background(), activeShipment(5), time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, created)
	for _, a := range store.alerts {
		require.Equal(t, int64(5), a.RecipientUserID)
	}
}

func TestAlertServiceEvaluateSkipsOpenDuplicates(t *testing.T) {
	store := newAlertStoreStub()
	store.open[1] = true
	steps := &criticalStepsStub{steps: []models.WorkflowStep{
		{ID: 1, StepNumber: "9.0", StepName: "Bayan submission", PPRUserID: 5},
	}}
	dispatcher := &dispatcherStub{}
	svc := NewAlertService(store, steps, dispatcher, alertTestConfig(), nil)

	created, err := svc.EvaluateShipment(context.Background(), activeShipment(5), time.Now())
	require.NoError(t, err)
	require.Zero(t, created)
	require.Empty(t, dispatcher.dispatched)
}

func TestAlertServiceAcknowledge(t *testing.T) {
	store := newAlertStoreStub()
	store.alerts[1] = &models.Alert{ID: 1, RecipientUserID: 5}
	svc := NewAlertService(store, &criticalStepsStub{}, nil, alertTestConfig(), nil)

	actor := &models.User{ID: 5, Role: models.RolePPR}
	acked, err := svc.Acknowledge(context.Background(), 1, actor)
	require.NoError(t, err)
	require.True(t, acked.IsAcknowledged)
	require.NotNil(t, acked.AcknowledgedAt)

	// repeat keeps the original timestamp
	first := *acked.AcknowledgedAt
	again, err := svc.Acknowledge(context.Background(), 1, actor)
	require.NoError(t, err)
	require.Equal(t, first, *again.AcknowledgedAt)
}

func TestAlertServiceAcknowledgeForbidden(t *testing.T) {
	store := newAlertStoreStub()
	store.alerts[1] = &models.Alert{ID: 1, RecipientUserID: 5}
	svc := NewAlertService(store, &criticalStepsStub{}, nil, alertTestConfig(), nil)

	actor := &models.User{ID: 99, Role: models.RolePPR}
	_, err := svc.Acknowledge(context.Background(), 1, actor)
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAlertServiceAcknowledgeNotFound(t *testing.T) {
	svc := NewAlertService(newAlertStoreStub(), &criticalStepsStub{}, nil, alertTestConfig(), nil)
	actor := &models.User{ID: 5, Role: models.RoleManager}
	_, err := svc.Acknowledge(context.Background(), 404, actor)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAlertServiceListForUser(t *testing.T) {
	store := newAlertStoreStub()
	store.alerts[1] = &models.Alert{ID: 1, RecipientUserID: 5}
	store.alerts[2] = &models.Alert{ID: 2, RecipientUserID: 6}
	svc := NewAlertService(store, &criticalStepsStub{}, nil, alertTestConfig(), nil)

	alerts, page, err := svc.ListForUser(context.Background(), 5, dto.AlertQuery{Page: 1, PageSize: 50})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, 1, page.Total)
}
