package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/pkg/config"
	"github.com/tarakiga/ccas/pkg/jobs"
)

type deliveryStore interface {
	GetDelivery(ctx context.Context, id int64) (*models.AlertDelivery, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	IncrementRetry(ctx context.Context, id int64) (int, error)
	ListPending(ctx context.Context, maxRetries, limit int) ([]int64, error)
}

// MailTransport sends a rendered notification. Implementations return false
// on any delivery failure; the retry policy lives above the transport.
type MailTransport interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) bool
}

type notifierMetrics interface {
	NotificationSent()
	NotificationFailed()
}

const pendingSweepLimit = 100

// NotifierService delivers alert emails through a background worker queue
// with a bounded retry budget. A failed delivery is retried after a fixed
// delay until the alert's attempt counter is exhausted; after that the
// alert stays visible in listings but is never retried automatically.
type NotifierService struct {
	store     deliveryStore
	transport MailTransport
	metrics   notifierMetrics

	queue  *jobs.Queue
	cfg    config.NotifierConfig
	logger *zap.Logger
}

// NewNotifierService constructs the service and its delivery queue. Call
// Start before dispatching.
func NewNotifierService(store deliveryStore, transport MailTransport, metrics notifierMetrics, cfg config.NotifierConfig, logger *zap.Logger) *NotifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotifierService{
		store:     store,
		transport: transport,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
	svc.queue = jobs.NewQueue("alert-delivery", svc.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start spins up the delivery workers.
func (s *NotifierService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotifierService) Stop() {
	s.queue.Stop()
}

// Dispatch queues an alert for delivery.
func (s *NotifierService) Dispatch(alertID int64) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      fmt.Sprintf("alert-%d", alertID),
		Type:    "alert.deliver",
		Payload: alertID,
	})
}

// ProcessPending re-queues undelivered alerts that still have attempts
// left, typically after a restart dropped in-flight jobs.
func (s *NotifierService) ProcessPending(ctx context.Context) (int, error) {
	ids, err := s.store.ListPending(ctx, s.cfg.MaxRetries, pendingSweepLimit)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.Dispatch(id); err != nil {
			return 0, fmt.Errorf("requeue alert %d: %w", id, err)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("requeued pending alert deliveries", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// Run sweeps for pending deliveries until the context ends.
func (s *NotifierService) Run(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ProcessPending(ctx); err != nil {
				s.logger.Error("pending delivery sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *NotifierService) handleJob(ctx context.Context, job jobs.Job) error {
	alertID, ok := job.Payload.(int64)
	if !ok {
		s.logger.Error("invalid delivery payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.deliver(ctx, alertID)
}

// deliver attempts one send. Returning an error asks the queue for a
// delayed retry; nil means done, whether delivered or permanently failed.
func (s *NotifierService) deliver(ctx context.Context, alertID int64) error {
	delivery, err := s.store.GetDelivery(ctx, alertID)
	if err != nil {
		s.logger.Error("cannot load alert for delivery", zap.Int64("alert_id", alertID), zap.Error(err))
		return nil
	}
	if delivery.Sent {
		return nil
	}

	subject, htmlBody, textBody := renderAlertEmail(delivery)

	sendCtx := ctx
	if s.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.cfg.SendTimeout)
		defer cancel()
	}
	if s.transport.Send(sendCtx, delivery.RecipientEmail, subject, htmlBody, textBody) {
		if err := s.store.MarkSent(ctx, alertID, time.Now().UTC()); err != nil {
			s.logger.Error("delivered but could not mark sent", zap.Int64("alert_id", alertID), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.NotificationSent()
		}
		s.logger.Info("alert delivered",
			zap.Int64("alert_id", alertID),
			zap.String("recipient", delivery.RecipientEmail),
			zap.String("severity", string(delivery.Severity)))
		return nil
	}

	if s.metrics != nil {
		s.metrics.NotificationFailed()
	}
	count, err := s.store.IncrementRetry(ctx, alertID)
	if err != nil {
		s.logger.Error("cannot record delivery failure", zap.Int64("alert_id", alertID), zap.Error(err))
		return nil
	}
	if count >= s.cfg.MaxRetries {
		s.logger.Error("alert delivery permanently failed",
			zap.Int64("alert_id", alertID),
			zap.String("recipient", delivery.RecipientEmail),
			zap.Int("attempts", count))
		return nil
	}
	s.logger.Warn("alert delivery failed, will retry",
		zap.Int64("alert_id", alertID),
		zap.Int("attempt", count),
		zap.Duration("retry_delay", s.cfg.RetryDelay))
	return fmt.Errorf("deliver alert %d: attempt %d failed", alertID, count)
}

func renderAlertEmail(d *models.AlertDelivery) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("[%s] Shipment %s: step %q is %d day(s) past ETA",
		d.Severity, d.ShipmentNumber, d.StepName, d.DaysPostETA)
	target := d.TargetDate.Format("2006-01-02")
	textBody = fmt.Sprintf(
		"Shipment %s (%s / %s) is %d day(s) past its ETA.\n\n"+
			"The critical step %q was due on %s and is still incomplete.\n\n"+
			"Severity: %s\n\nPlease action this step and acknowledge the alert.",
		d.ShipmentNumber, d.Principal, d.Brand, d.DaysPostETA,
		d.StepName, target, d.Severity)
	htmlBody = fmt.Sprintf(
		`<p>Shipment <strong>%s</strong> (%s / %s) is <strong>%d day(s)</strong> past its ETA.</p>`+
			`<p>The critical step <strong>%s</strong> was due on %s and is still incomplete.</p>`+
			`<p>Severity: <strong>%s</strong></p>`+
			`<p>Please action this step and acknowledge the alert.</p>`,
		d.ShipmentNumber, d.Principal, d.Brand, d.DaysPostETA,
		d.StepName, target, d.Severity)
	return subject, htmlBody, textBody
}
