package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/pkg/config"
)

type shipmentWindowLister interface {
	ListActiveInETAWindow(ctx context.Context, start, end time.Time) ([]models.Shipment, error)
}

type shipmentEvaluator interface {
	EvaluateShipment(ctx context.Context, shipment *models.Shipment, today time.Time) (int, error)
}

type overdueMarker interface {
	MarkOverdueBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type schedulerMetrics interface {
	EvaluationRun(elapsed time.Duration, processed, alertsCreated, errs int)
}

// EvaluationScheduler runs the daily alert sweep: it marks overdue steps,
// walks active shipments inside the trailing ETA window in fixed-size
// batches, and evaluates each one with per-shipment error isolation.
type EvaluationScheduler struct {
	shipments shipmentWindowLister
	evaluator shipmentEvaluator
	steps     overdueMarker
	metrics   schedulerMetrics

	cfg    config.AlertsConfig
	logger *zap.Logger
}

// NewEvaluationScheduler constructs the scheduler.
func NewEvaluationScheduler(shipments shipmentWindowLister, evaluator shipmentEvaluator, steps overdueMarker, metrics schedulerMetrics, cfg config.AlertsConfig, logger *zap.Logger) *EvaluationScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationScheduler{
		shipments: shipments,
		evaluator: evaluator,
		steps:     steps,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes sweeps on the configured interval until the context ends.
// One failed sweep never stops the loop.
func (s *EvaluationScheduler) Run(ctx context.Context) {
	interval := s.cfg.EvaluationInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx, time.Now()); err != nil {
				s.logger.Error("evaluation sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single sweep anchored at now and reports what it did.
// A failing shipment is counted and skipped; the sweep continues.
func (s *EvaluationScheduler) RunOnce(ctx context.Context, now time.Time) (dto.EvaluationSummary, error) {
	started := time.Now()
	today := models.DateOf(now)
	summary := dto.EvaluationSummary{RunID: uuid.NewString()}

	if s.steps != nil {
		marked, err := s.steps.MarkOverdueBefore(ctx, today)
		if err != nil {
			s.logger.Error("marking overdue steps failed", zap.String("run_id", summary.RunID), zap.Error(err))
		} else if marked > 0 {
			s.logger.Info("marked steps overdue", zap.String("run_id", summary.RunID), zap.Int64("count", marked))
		}
	}

	windowStart := today.AddDate(0, 0, -s.cfg.ETAWindowDays)
	shipments, err := s.shipments.ListActiveInETAWindow(ctx, windowStart, today)
	if err != nil {
		return summary, err
	}
	summary.TotalShipments = len(shipments)

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	for start := 0; start < len(shipments); start += batchSize {
		end := start + batchSize
		if end > len(shipments) {
			end = len(shipments)
		}
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			shipment := shipments[i]
			created, err := s.evaluator.EvaluateShipment(ctx, &shipment, today)
			if err != nil {
				summary.Errors++
				s.logger.Error("shipment evaluation failed",
					zap.String("run_id", summary.RunID),
					zap.Int64("shipment_id", shipment.ID),
					zap.Error(err))
				continue
			}
			summary.Processed++
			summary.AlertsCreated += created
		}
	}

	elapsed := time.Since(started)
	summary.ElapsedSeconds = elapsed.Seconds()
	if s.metrics != nil {
		s.metrics.EvaluationRun(elapsed, summary.Processed, summary.AlertsCreated, summary.Errors)
	}

	s.logger.Info("evaluation sweep finished",
		zap.String("run_id", summary.RunID),
		zap.Int("total", summary.TotalShipments),
		zap.Int("processed", summary.Processed),
		zap.Int("alerts_created", summary.AlertsCreated),
		zap.Int("errors", summary.Errors),
		zap.Duration("elapsed", elapsed))

	if s.cfg.SweepSLACount > 0 && summary.TotalShipments >= s.cfg.SweepSLACount && elapsed > s.cfg.SweepSLA {
		s.logger.Warn("evaluation sweep exceeded its latency target",
			zap.String("run_id", summary.RunID),
			zap.Int("total", summary.TotalShipments),
			zap.Duration("elapsed", elapsed),
			zap.Duration("target", s.cfg.SweepSLA))
	}
	return summary, nil
}
