package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/pkg/config"
)

type windowListerStub struct {
	shipments []models.Shipment
	start     time.Time
	end       time.Time
}

func (s *windowListerStub) ListActiveInETAWindow(ctx context.Context, start, end time.Time) ([]models.Shipment, error) {
	s.start = start
	s.end = end
	return s.shipments, nil
}

type evaluatorStub struct {
	evaluated []int64
	failOn    map[int64]bool
	perAlert  int
}

func (e *evaluatorStub) EvaluateShipment(ctx context.Context, shipment *models.Shipment, today time.Time) (int, error) {
	if e.failOn[shipment.ID] {
		return 0, fmt.Errorf("boom on shipment %d", shipment.ID)
	}
	e.evaluated = append(e.evaluated, shipment.ID)
	return e.perAlert, nil
}

type overdueMarkerStub struct {
	cutoff time.Time
	marked int64
}

func (s *overdueMarkerStub) MarkOverdueBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.marked, nil
}

func schedulerTestConfig() config.AlertsConfig {
	return config.AlertsConfig{
		WarningDays:        4,
		CriticalDays:       5,
		UrgentDays:         7,
		EscalationDays:     6,
		EvaluationInterval: 24 * time.Hour,
		ETAWindowDays:      30,
		BatchSize:          2,
		SweepSLA:           5 * time.Minute,
		SweepSLACount:      1000,
	}
}

func TestSchedulerRunOnceWindow(t *testing.T) {
	lister := &windowListerStub{}
	marker := &overdueMarkerStub{}
	sched := NewEvaluationScheduler(lister, &evaluatorStub{}, marker, nil, schedulerTestConfig(), nil)

	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	summary, err := sched.RunOnce(context.Background(), now)
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)

	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, today.AddDate(0, 0, -30), lister.start)
	require.Equal(t, today, lister.end)
	require.Equal(t, today, marker.cutoff)
}

func TestSchedulerRunOnceBatchesAndCounts(t *testing.T) {
	var shipments []models.Shipment
	for i := int64(1); i <= 5; i++ {
		shipments = append(shipments, models.Shipment{ID: i, Status: models.ShipmentStatusActive})
	}
	lister := &windowListerStub{shipments: shipments}
	eval := &evaluatorStub{perAlert: 2, failOn: map[int64]bool{}}
	sched := NewEvaluationScheduler(lister, eval, &overdueMarkerStub{}, nil, schedulerTestConfig(), nil)

	summary, err := sched.RunOnce(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 5, summary.TotalShipments)
	require.Equal(t, 5, summary.Processed)
	require.Equal(t, 10, summary.AlertsCreated)
	require.Zero(t, summary.Errors)
	require.Equal(t, []int64{1, 2, 3, 4, 5}, eval.evaluated)
}

func TestSchedulerRunOnceIsolatesFailures(t *testing.T) {
	lister := &windowListerStub{shipments: []models.Shipment{{ID: 1}, {ID: 2}, {ID: 3}}}
	eval := &evaluatorStub{perAlert: 1, failOn: map[int64]bool{2: true}}
	sched := NewEvaluationScheduler(lister, eval, &overdueMarkerStub{}, nil, schedulerTestConfig(), nil)

	summary, err := sched.RunOnce(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, summary.TotalShipments)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Errors)
	require.Equal(t, 2, summary.AlertsCreated)
	require.Equal(t, []int64{1, 3}, eval.evaluated)
}

func TestSchedulerRunOnceStopsOnCancelledContext(t *testing.T) {
	lister := &windowListerStub{shipments: []models.Shipment{{ID: 1}, {ID: 2}}}
	eval := &evaluatorStub{failOn: map[int64]bool{}}
	sched := NewEvaluationScheduler(lister, eval, &overdueMarkerStub{}, nil, schedulerTestConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sched.RunOnce(ctx, time.Now())
	require.Error(t, err)
	require.Empty(t, eval.evaluated)
}
