package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tarakiga/ccas/internal/models"
)

const alertColumns = `id, shipment_id, workflow_step_id, recipient_user_id, severity, message,
	days_post_eta, is_acknowledged, acknowledged_at, sent, sent_at, retry_count, created_at`

// AlertRepository persists escalation alerts and their delivery state.
// A partial unique index on (workflow_step_id, recipient_user_id,
// days_post_eta) over unacknowledged rows backs deduplication, so an
// evaluation re-run never doubles an open alert.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates the repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CreateBatch inserts the batch in one transaction and returns the alerts
// that were actually created. Rows swallowed by the dedup index are dropped
// from the result, so callers only dispatch genuinely new alerts.
func (r *AlertRepository) CreateBatch(ctx context.Context, alerts []models.Alert) ([]models.Alert, error) {
	if len(alerts) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create alerts: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const insert = `INSERT INTO alerts
		(shipment_id, workflow_step_id, recipient_user_id, severity, message, days_post_eta,
		 is_acknowledged, sent, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, FALSE, 0, $7)
		ON CONFLICT DO NOTHING
		RETURNING id`
	created := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		var id int64
		err := tx.QueryRowxContext(ctx, insert,
			a.ShipmentID, a.WorkflowStepID, a.RecipientUserID, a.Severity, a.Message, a.DaysPostETA, now,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			continue // open duplicate, dedup index absorbed it
		}
		if err != nil {
			return nil, fmt.Errorf("insert alert for step %d: %w", a.WorkflowStepID, err)
		}
		a.ID = id
		a.CreatedAt = now
		created = append(created, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create alerts: %w", err)
	}
	return created, nil
}

// ExistsOpen reports whether an unacknowledged alert already covers the
// same step, recipient, and escalation day.
func (r *AlertRepository) ExistsOpen(ctx context.Context, stepID, recipientID int64, daysPostETA int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM alerts
		WHERE workflow_step_id = $1 AND recipient_user_id = $2 AND days_post_eta = $3
		  AND is_acknowledged = FALSE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, stepID, recipientID, daysPostETA); err != nil {
		return false, fmt.Errorf("check open alert: %w", err)
	}
	return exists, nil
}

// GetByID loads a single alert.
func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE id = $1`, alertColumns)
	var alert models.Alert
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get alert %d: %w", id, err)
	}
	return &alert, nil
}

// GetDelivery loads an alert joined with the shipment, step, and recipient
// fields notification rendering needs.
func (r *AlertRepository) GetDelivery(ctx context.Context, id int64) (*models.AlertDelivery, error) {
	query := fmt.Sprintf(`SELECT %s,
			s.shipment_number, s.principal, s.brand,
			ws.step_name, ws.target_date,
			u.email AS recipient_email
		FROM alerts a
		JOIN shipments s ON s.id = a.shipment_id
		JOIN workflow_steps ws ON ws.id = a.workflow_step_id
		JOIN users u ON u.id = a.recipient_user_id
		WHERE a.id = $1`, prefixColumns("a", alertColumns))
	var delivery models.AlertDelivery
	if err := r.db.GetContext(ctx, &delivery, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get alert delivery %d: %w", id, err)
	}
	return &delivery, nil
}

// ListByRecipient pages through a user's alerts, newest first.
func (r *AlertRepository) ListByRecipient(ctx context.Context, userID int64, filter models.AlertFilter) ([]models.Alert, int, error) {
	base := `FROM alerts WHERE recipient_user_id = $1`
	args := []interface{}{userID}

	if filter.ShipmentID != 0 {
		args = append(args, filter.ShipmentID)
		base += fmt.Sprintf(" AND shipment_id = $%d", len(args))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		base += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if filter.IsAcknowledged != nil {
		args = append(args, *filter.IsAcknowledged)
		base += fmt.Sprintf(" AND is_acknowledged = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d",
		alertColumns, base, pageSize, (page-1)*pageSize)
	var alerts []models.Alert
	if err := r.db.SelectContext(ctx, &alerts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list alerts for user %d: %w", userID, err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count alerts for user %d: %w", userID, err)
	}
	return alerts, total, nil
}

// Acknowledge stamps the alert acknowledged. Returns the refreshed row;
// acknowledging twice leaves the first timestamp in place.
func (r *AlertRepository) Acknowledge(ctx context.Context, id int64, at time.Time) (*models.Alert, error) {
	query := fmt.Sprintf(`UPDATE alerts
		SET is_acknowledged = TRUE,
		    acknowledged_at = COALESCE(acknowledged_at, $2)
		WHERE id = $1
		RETURNING %s`, alertColumns)
	var alert models.Alert
	if err := r.db.GetContext(ctx, &alert, query, id, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("acknowledge alert %d: %w", id, err)
	}
	return &alert, nil
}

// MarkSent records a successful delivery.
func (r *AlertRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	const update = `UPDATE alerts SET sent = TRUE, sent_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, update, id, at); err != nil {
		return fmt.Errorf("mark alert %d sent: %w", id, err)
	}
	return nil
}

// IncrementRetry bumps the delivery attempt counter and returns the new value.
func (r *AlertRepository) IncrementRetry(ctx context.Context, id int64) (int, error) {
	const update = `UPDATE alerts SET retry_count = retry_count + 1 WHERE id = $1 RETURNING retry_count`
	var count int
	if err := r.db.GetContext(ctx, &count, update, id); err != nil {
		return 0, fmt.Errorf("increment retry for alert %d: %w", id, err)
	}
	return count, nil
}

// ListPending returns ids of undelivered alerts that still have attempts
// left. Alerts that exhausted their retries are deliberately excluded; they
// stay visible in listings but are never retried automatically.
func (r *AlertRepository) ListPending(ctx context.Context, maxRetries, limit int) ([]int64, error) {
	const query = `SELECT id FROM alerts
		WHERE sent = FALSE AND retry_count < $1
		ORDER BY created_at ASC
		LIMIT $2`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, maxRetries, limit); err != nil {
		return nil, fmt.Errorf("list pending alerts: %w", err)
	}
	return ids, nil
}

// CountOpenBySeverity aggregates unacknowledged alerts for the dashboard.
func (r *AlertRepository) CountOpenBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error) {
	const query = `SELECT severity, COUNT(*) AS total FROM alerts
		WHERE is_acknowledged = FALSE GROUP BY severity`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count open alerts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.AlertSeverity]int)
	for rows.Next() {
		var severity models.AlertSeverity
		var total int
		if err := rows.Scan(&severity, &total); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		counts[severity] = total
	}
	return counts, rows.Err()
}
