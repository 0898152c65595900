package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tarakiga/ccas/internal/models"
)

const workflowStepColumns = `id, shipment_id, step_number, step_name, description, department,
	target_date, offset_days, actual_date, status, is_critical, ppr_user_id, apr_user_id,
	created_at, updated_at`

// WorkflowRepository reads and mutates materialized workflow steps.
type WorkflowRepository struct {
	db *sqlx.DB
}

// NewWorkflowRepository creates the repository.
func NewWorkflowRepository(db *sqlx.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// GetByID loads a single step.
func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*models.WorkflowStep, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_steps WHERE id = $1`, workflowStepColumns)
	var step models.WorkflowStep
	if err := r.db.GetContext(ctx, &step, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get workflow step %d: %w", id, err)
	}
	return &step, nil
}

// GetByShipment returns all steps of a shipment in catalog order.
func (r *WorkflowRepository) GetByShipment(ctx context.Context, shipmentID int64) ([]models.WorkflowStep, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_steps WHERE shipment_id = $1 ORDER BY target_date ASC, id ASC`, workflowStepColumns)
	var steps []models.WorkflowStep
	if err := r.db.SelectContext(ctx, &steps, query, shipmentID); err != nil {
		return nil, fmt.Errorf("list steps for shipment %d: %w", shipmentID, err)
	}
	return steps, nil
}

// GetCriticalIncomplete returns a shipment's critical steps without an
// actual date. These are the escalation candidates.
func (r *WorkflowRepository) GetCriticalIncomplete(ctx context.Context, shipmentID int64) ([]models.WorkflowStep, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_steps
		WHERE shipment_id = $1 AND is_critical = TRUE AND actual_date IS NULL
		ORDER BY target_date ASC, id ASC`, workflowStepColumns)
	var steps []models.WorkflowStep
	if err := r.db.SelectContext(ctx, &steps, query, shipmentID); err != nil {
		return nil, fmt.Errorf("list critical incomplete steps for shipment %d: %w", shipmentID, err)
	}
	return steps, nil
}

// GetByAssignee lists steps where the user is PPR or APR on live shipments.
func (r *WorkflowRepository) GetByAssignee(ctx context.Context, userID int64, filter models.StepFilter) ([]models.WorkflowStep, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_steps ws`, prefixColumns("ws", workflowStepColumns)) + `
		JOIN shipments s ON s.id = ws.shipment_id AND s.deleted_at IS NULL
		WHERE (ws.ppr_user_id = $1 OR ws.apr_user_id = $1)`
	args := []interface{}{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND ws.status = $%d", len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		query += fmt.Sprintf(" AND ws.department = $%d", len(args))
	}
	if filter.IsCritical != nil {
		args = append(args, *filter.IsCritical)
		query += fmt.Sprintf(" AND ws.is_critical = $%d", len(args))
	}
	query += " ORDER BY ws.target_date ASC, ws.id ASC"

	var steps []models.WorkflowStep
	if err := r.db.SelectContext(ctx, &steps, query, args...); err != nil {
		return nil, fmt.Errorf("list steps for assignee %d: %w", userID, err)
	}
	return steps, nil
}

// Complete records the actual date on a step and the audit entries for the
// change in one transaction. It only fires on steps that are still open.
func (r *WorkflowRepository) Complete(ctx context.Context, id int64, actualDate time.Time, audits []models.AuditRecord) (*models.WorkflowStep, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin complete step: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	update := fmt.Sprintf(`UPDATE workflow_steps
		SET actual_date = $2, status = $3, updated_at = $4
		WHERE id = $1 AND actual_date IS NULL
		RETURNING %s`, workflowStepColumns)
	var step models.WorkflowStep
	if err := tx.GetContext(ctx, &step, update, id, actualDate, models.StepStatusCompleted, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("step %d: %w", id, ErrVersionConflict)
		}
		return nil, fmt.Errorf("complete workflow step %d: %w", id, err)
	}

	if err := insertAuditRecords(ctx, tx, audits); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit complete step: %w", err)
	}
	return &step, nil
}

// MarkOverdueBefore flips still-pending steps with a target date strictly
// before the cutoff to overdue. Used by the evaluation sweep.
func (r *WorkflowRepository) MarkOverdueBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const update = `UPDATE workflow_steps ws
		SET status = $1, updated_at = $2
		FROM shipments s
		WHERE s.id = ws.shipment_id AND s.deleted_at IS NULL AND s.status = $3
		  AND ws.status = $4 AND ws.actual_date IS NULL AND ws.target_date < $5`
	res, err := r.db.ExecContext(ctx, update,
		models.StepStatusOverdue, time.Now().UTC(), models.ShipmentStatusActive,
		models.StepStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark overdue steps: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue steps: %w", err)
	}
	return affected, nil
}

// CountOverdueCritical counts open critical steps past their target date on
// live active shipments, for the dashboard.
func (r *WorkflowRepository) CountOverdueCritical(ctx context.Context, today time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM workflow_steps ws
		JOIN shipments s ON s.id = ws.shipment_id AND s.deleted_at IS NULL AND s.status = $1
		WHERE ws.is_critical = TRUE AND ws.actual_date IS NULL AND ws.target_date < $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, models.ShipmentStatusActive, today); err != nil {
		return 0, fmt.Errorf("count overdue critical steps: %w", err)
	}
	return total, nil
}

// insertWorkflowSteps bulk-inserts materialized steps inside the caller's
// transaction.
func insertWorkflowSteps(ctx context.Context, ext sqlx.ExtContext, steps []models.WorkflowStep) error {
	if len(steps) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range steps {
		steps[i].CreatedAt = now
		steps[i].UpdatedAt = now
	}
	const insert = `INSERT INTO workflow_steps
		(shipment_id, step_number, step_name, description, department, target_date, offset_days,
		 actual_date, status, is_critical, ppr_user_id, apr_user_id, created_at, updated_at)
		VALUES (:shipment_id, :step_number, :step_name, :description, :department, :target_date, :offset_days,
		 :actual_date, :status, :is_critical, :ppr_user_id, :apr_user_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, insert, steps); err != nil {
		return fmt.Errorf("insert workflow steps: %w", err)
	}
	return nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
