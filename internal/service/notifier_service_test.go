package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/pkg/config"
)

type deliveryStoreStub struct {
	mu         sync.Mutex
	deliveries map[int64]*models.AlertDelivery
	pending    []int64
}

func newDeliveryStoreStub() *deliveryStoreStub {
	return &deliveryStoreStub{deliveries: make(map[int64]*models.AlertDelivery)}
}

func (s *deliveryStoreStub) add(id int64) *models.AlertDelivery {
	d := &models.AlertDelivery{
		Alert: models.Alert{
			ID:             id,
			ShipmentID:     7,
			WorkflowStepID: 1,
			Severity:       models.AlertSeverityCritical,
			DaysPostETA:    5,
		},
		ShipmentNumber: "SHP-2026-0001",
		Principal:      "Acme Trading",
		Brand:          "Acme",
		StepName:       "Bayan submission",
		TargetDate:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		RecipientEmail: "ppr@example.com",
	}
	s.deliveries[id] = d
	return d
}

func (s *deliveryStoreStub) GetDelivery(ctx context.Context, id int64) (*models.AlertDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *s.deliveries[id]
	return &copy, nil
}

func (s *deliveryStoreStub) MarkSent(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.deliveries[id]
	d.Sent = true
	d.SentAt = &at
	return nil
}

func (s *deliveryStoreStub) IncrementRetry(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.deliveries[id]
	d.RetryCount++
	return d.RetryCount, nil
}

func (s *deliveryStoreStub) ListPending(ctx context.Context, maxRetries, limit int) ([]int64, error) {
	return s.pending, nil
}

type transportStub struct {
	mu    sync.Mutex
	sent  []string
	fails int
}

func (t *transportStub) Send(ctx context.Context, to, subject, htmlBody, textBody string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fails > 0 {
		t.fails--
		return false
	}
	t.sent = append(t.sent, to)
	return true
}

func notifierTestConfig() config.NotifierConfig {
	return config.NotifierConfig{
		Workers:     1,
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
		SendTimeout: time.Second,
	}
}

func TestNotifierDeliverSuccess(t *testing.T) {
	store := newDeliveryStoreStub()
	store.add(11)
	transport := &transportStub{}
	svc := NewNotifierService(store, transport, nil, notifierTestConfig(), nil)

	require.NoError(t, svc.deliver(context.Background(), 11))
	require.Equal(t, []string{"ppr@example.com"}, transport.sent)
	require.True(t, store.deliveries[11].Sent)
	require.NotNil(t, store.deliveries[11].SentAt)
}

func TestNotifierDeliverSkipsAlreadySent(t *testing.T) {
	store := newDeliveryStoreStub()
	d := store.add(11)
	d.Sent = true
	transport := &transportStub{}
	svc := NewNotifierService(store, transport, nil, notifierTestConfig(), nil)

	require.NoError(t, svc.deliver(context.Background(), 11))
	require.Empty(t, transport.sent)
}

func TestNotifierDeliverFailureRequestsRetry(t *testing.T) {
	store := newDeliveryStoreStub()
	store.add(11)
	transport := &transportStub{fails: 1}
	svc := NewNotifierService(store, transport, nil, notifierTestConfig(), nil)

	err := svc.deliver(context.Background(), 11)
	require.Error(t, err)
	require.Equal(t, 1, store.deliveries[11].RetryCount)
	require.False(t, store.deliveries[11].Sent)
}

func TestNotifierDeliverGivesUpAfterMaxRetries(t *testing.T) {
	store := newDeliveryStoreStub()
	d := store.add(11)
	d.RetryCount = 2 // next failure is the third and final attempt
	transport := &transportStub{fails: 10}
	svc := NewNotifierService(store, transport, nil, notifierTestConfig(), nil)

	require.NoError(t, svc.deliver(context.Background(), 11))
	require.Equal(t, 3, store.deliveries[11].RetryCount)
	require.False(t, store.deliveries[11].Sent)
}

func TestNotifierRetriesThroughQueue(t *testing.T) {
	store := newDeliveryStoreStub()
	store.add(11)
	transport := &transportStub{fails: 2}
	svc := NewNotifierService(store, transport, nil, notifierTestConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	require.NoError(t, svc.Dispatch(11))
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.deliveries[11].Sent
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 2, store.deliveries[11].RetryCount)
}

func TestNotifierProcessPending(t *testing.T) {
	store := newDeliveryStoreStub()
	store.add(11)
	store.add(12)
	store.pending = []int64{11, 12}
	transport := &transportStub{}
	svc := NewNotifierService(store, transport, nil, notifierTestConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	count, err := svc.ProcessPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.deliveries[11].Sent && store.deliveries[12].Sent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRenderAlertEmail(t *testing.T) {
	store := newDeliveryStoreStub()
	d := store.add(11)

	subject, htmlBody, textBody := renderAlertEmail(d)
	require.Contains(t, subject, "SHP-2026-0001")
	require.Contains(t, subject, "critical")
	require.Contains(t, htmlBody, "Bayan submission")
	require.Contains(t, textBody, "2026-03-10")
}
