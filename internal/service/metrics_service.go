package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tarakiga/ccas/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the clearance workflow.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	shipmentsCreated    prometheus.Counter
	etaUpdates          prometheus.Counter
	stepsCompleted      prometheus.Counter
	alertsCreated       *prometheus.CounterVec
	notificationsSent   prometheus.Counter
	notificationsFailed prometheus.Counter

	evaluationDuration prometheus.Histogram
	evaluationRuns     prometheus.Counter
	evaluationErrors   prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	shipmentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipments_created_total",
		Help: "Total shipments registered",
	})

	etaUpdates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipment_eta_updates_total",
		Help: "Total accepted ETA adjustments",
	})

	stepsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workflow_steps_completed_total",
		Help: "Total workflow steps completed",
	})

	alertsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_created_total",
		Help: "Total escalation alerts created",
	}, []string{"severity"})

	notificationsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "alert_notifications_sent_total",
		Help: "Total alert emails delivered",
	})

	notificationsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "alert_notification_failures_total",
		Help: "Total alert email delivery failures",
	})

	evaluationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evaluation_sweep_duration_seconds",
		Help:    "Duration of batch evaluation sweeps",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	evaluationRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evaluation_sweeps_total",
		Help: "Total batch evaluation sweeps",
	})

	evaluationErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evaluation_shipment_errors_total",
		Help: "Total shipments skipped by sweeps due to errors",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal,
		shipmentsCreated, etaUpdates, stepsCompleted, alertsCreated,
		notificationsSent, notificationsFailed,
		evaluationDuration, evaluationRuns, evaluationErrors, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		shipmentsCreated:    shipmentsCreated,
		etaUpdates:          etaUpdates,
		stepsCompleted:      stepsCompleted,
		alertsCreated:       alertsCreated,
		notificationsSent:   notificationsSent,
		notificationsFailed: notificationsFailed,
		evaluationDuration:  evaluationDuration,
		evaluationRuns:      evaluationRuns,
		evaluationErrors:    evaluationErrors,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ShipmentCreated counts a registration.
func (m *MetricsService) ShipmentCreated() {
	if m != nil {
		m.shipmentsCreated.Inc()
	}
}

// ETAUpdated counts an accepted ETA adjustment.
func (m *MetricsService) ETAUpdated() {
	if m != nil {
		m.etaUpdates.Inc()
	}
}

// StepCompleted counts a completed workflow step.
func (m *MetricsService) StepCompleted() {
	if m != nil {
		m.stepsCompleted.Inc()
	}
}

// AlertCreated counts a created alert by severity.
func (m *MetricsService) AlertCreated(severity models.AlertSeverity) {
	if m != nil {
		m.alertsCreated.WithLabelValues(string(severity)).Inc()
	}
}

// NotificationSent counts a delivered alert email.
func (m *MetricsService) NotificationSent() {
	if m != nil {
		m.notificationsSent.Inc()
	}
}

// NotificationFailed counts a failed delivery attempt.
func (m *MetricsService) NotificationFailed() {
	if m != nil {
		m.notificationsFailed.Inc()
	}
}

// EvaluationRun records one sweep outcome.
func (m *MetricsService) EvaluationRun(elapsed time.Duration, processed, alertsCreated, errs int) {
	if m == nil {
		return
	}
	m.evaluationRuns.Inc()
	m.evaluationDuration.Observe(elapsed.Seconds())
	if errs > 0 {
		m.evaluationErrors.Add(float64(errs))
	}
}
