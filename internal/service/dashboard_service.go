package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tarakiga/ccas/internal/models"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
)

type shipmentCounter interface {
	CountByStatus(ctx context.Context) (map[models.ShipmentStatus]int, error)
}

type overdueCounter interface {
	CountOverdueCritical(ctx context.Context, today time.Time) (int, error)
}

type alertCounter interface {
	CountOpenBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error)
}

// DashboardSummary aggregates the headline clearance numbers.
type DashboardSummary struct {
	ActiveShipments      int                          `json:"activeShipments"`
	CompletedShipments   int                          `json:"completedShipments"`
	CancelledShipments   int                          `json:"cancelledShipments"`
	OverdueCriticalSteps int                          `json:"overdueCriticalSteps"`
	OpenAlerts           map[models.AlertSeverity]int `json:"openAlerts"`
	GeneratedAt          time.Time                    `json:"generatedAt"`
}

const dashboardCacheKey = "ccas:dashboard:summary"

// DashboardService serves the aggregate summary, cached in Redis so the
// landing page never fans out three count queries per hit.
type DashboardService struct {
	shipments shipmentCounter
	steps     overdueCounter
	alerts    alertCounter

	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardService constructs the service. A nil cache disables caching.
func NewDashboardService(shipments shipmentCounter, steps overdueCounter, alerts alertCounter, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		shipments: shipments,
		steps:     steps,
		alerts:    alerts,
		cache:     cache,
		ttl:       ttl,
		logger:    logger,
	}
}

// Summary returns the cached summary, rebuilding it on a miss. Cache
// failures degrade to a direct read.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
		if err == nil {
			var cached DashboardSummary
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, dashboardCacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary, e.g. after bulk imports.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, dashboardCacheKey).Err(); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context) (*DashboardSummary, error) {
	byStatus, err := s.shipments.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	overdue, err := s.steps.CountOverdueCritical(ctx, models.DateOf(time.Now()))
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	openAlerts, err := s.alerts.CountOpenBySeverity(ctx)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if openAlerts == nil {
		openAlerts = map[models.AlertSeverity]int{}
	}
	return &DashboardSummary{
		ActiveShipments:      byStatus[models.ShipmentStatusActive],
		CompletedShipments:   byStatus[models.ShipmentStatusCompleted],
		CancelledShipments:   byStatus[models.ShipmentStatusCancelled],
		OverdueCriticalSteps: overdue,
		OpenAlerts:           openAlerts,
		GeneratedAt:          time.Now().UTC(),
	}, nil
}
