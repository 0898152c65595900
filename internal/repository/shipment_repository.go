package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tarakiga/ccas/internal/models"
)

// Sentinel errors surfaced by the stores. Services map them onto the typed
// error taxonomy at the operation boundary.
var (
	// ErrVersionConflict means a conditional write matched zero rows: the
	// stored version moved since the caller's read. The caller must
	// re-fetch; nothing was written.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicateKey means a unique constraint rejected the insert.
	ErrDuplicateKey = errors.New("duplicate key")
)

const shipmentColumns = `id, shipment_number, principal, brand, lc_number, invoice_amount_omr,
	eta, eta_edit_count, status, version, created_by_id, created_at, updated_at, deleted_at`

// ShipmentRepository owns the shipment aggregate. Multi-table mutations
// (creation with steps, ETA moves with recalculation) run inside a single
// transaction here so readers never observe a bumped version next to stale
// step dates.
type ShipmentRepository struct {
	db *sqlx.DB
}

// NewShipmentRepository creates the repository.
func NewShipmentRepository(db *sqlx.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// CreateWithSteps inserts the shipment, its generated workflow steps, and
// the creation audit records atomically. A partial step insert rolls the
// whole creation back.
func (r *ShipmentRepository) CreateWithSteps(ctx context.Context, shipment *models.Shipment, steps []models.WorkflowStep, audits []models.AuditRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create shipment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	shipment.Version = 1
	shipment.CreatedAt = now
	shipment.UpdatedAt = now

	const insert = `INSERT INTO shipments
		(shipment_number, principal, brand, lc_number, invoice_amount_omr, eta, eta_edit_count, status, version, created_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	err = tx.QueryRowxContext(ctx, insert,
		shipment.ShipmentNumber, shipment.Principal, shipment.Brand, shipment.LCNumber,
		shipment.InvoiceAmount, shipment.ETA, shipment.ETAEditCount, shipment.Status,
		shipment.Version, shipment.CreatedByID, shipment.CreatedAt, shipment.UpdatedAt,
	).Scan(&shipment.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("shipment %s: %w", shipment.ShipmentNumber, ErrDuplicateKey)
		}
		return fmt.Errorf("insert shipment: %w", err)
	}

	for i := range steps {
		steps[i].ShipmentID = shipment.ID
	}
	if err := insertWorkflowSteps(ctx, tx, steps); err != nil {
		return err
	}

	for i := range audits {
		audits[i].EntityID = shipment.ID
	}
	if err := insertAuditRecords(ctx, tx, audits); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create shipment: %w", err)
	}
	return nil
}

// GetByID loads a live (non-deleted) shipment.
func (r *ShipmentRepository) GetByID(ctx context.Context, id int64) (*models.Shipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shipments WHERE id = $1 AND deleted_at IS NULL`, shipmentColumns)
	var shipment models.Shipment
	if err := r.db.GetContext(ctx, &shipment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get shipment %d: %w", id, err)
	}
	return &shipment, nil
}

// UpdateVersioned writes mutable shipment fields conditionally on the
// expected version, bumping it by one. Zero matched rows means another
// writer got there first.
func (r *ShipmentRepository) UpdateVersioned(ctx context.Context, shipment *models.Shipment, expectedVersion int64, audits []models.AuditRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update shipment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const update = `UPDATE shipments
		SET principal = $3, brand = $4, lc_number = $5, invoice_amount_omr = $6, status = $7,
		    version = version + 1, updated_at = $8
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL`
	res, err := tx.ExecContext(ctx, update,
		shipment.ID, expectedVersion,
		shipment.Principal, shipment.Brand, shipment.LCNumber, shipment.InvoiceAmount, shipment.Status,
		now,
	)
	if err != nil {
		return fmt.Errorf("update shipment %d: %w", shipment.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update shipment %d: %w", shipment.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("shipment %d: %w", shipment.ID, ErrVersionConflict)
	}

	if err := insertAuditRecords(ctx, tx, audits); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update shipment: %w", err)
	}
	shipment.Version = expectedVersion + 1
	shipment.UpdatedAt = now
	return nil
}

// UpdateETA moves the anchor date, bumps the edit counter and version, and
// recalculates every step's target date, all in one transaction. The edit
// counter guard in the WHERE clause closes the race between the caller's
// limit check and the write.
func (r *ShipmentRepository) UpdateETA(ctx context.Context, id, expectedVersion int64, newETA time.Time, audits []models.AuditRecord) (*models.Shipment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update eta: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	update := fmt.Sprintf(`UPDATE shipments
		SET eta = $3, eta_edit_count = eta_edit_count + 1, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL AND eta_edit_count < %d
		RETURNING %s`, models.MaxETAEdits, shipmentColumns)
	var shipment models.Shipment
	if err := tx.GetContext(ctx, &shipment, update, id, expectedVersion, newETA, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("shipment %d: %w", id, ErrVersionConflict)
		}
		return nil, fmt.Errorf("update shipment %d eta: %w", id, err)
	}

	const recalc = `UPDATE workflow_steps
		SET target_date = $2::date + offset_days, updated_at = $3
		WHERE shipment_id = $1`
	if _, err := tx.ExecContext(ctx, recalc, id, newETA, now); err != nil {
		return nil, fmt.Errorf("recalculate step dates for shipment %d: %w", id, err)
	}

	if err := insertAuditRecords(ctx, tx, audits); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update eta: %w", err)
	}
	return &shipment, nil
}

// SoftDelete marks the shipment cancelled and stamps deleted_at. Returns
// false when the shipment is already gone.
func (r *ShipmentRepository) SoftDelete(ctx context.Context, id int64, audit models.AuditRecord) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin soft delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const del = `UPDATE shipments
		SET deleted_at = $2, status = $3, version = version + 1, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`
	res, err := tx.ExecContext(ctx, del, id, now, models.ShipmentStatusCancelled)
	if err != nil {
		return false, fmt.Errorf("soft delete shipment %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft delete shipment %d: %w", id, err)
	}
	if affected == 0 {
		return false, nil
	}

	audit.EntityID = id
	if err := insertAuditRecords(ctx, tx, []models.AuditRecord{audit}); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit soft delete: %w", err)
	}
	return true, nil
}

// List returns live shipments matching the filter with a total count.
func (r *ShipmentRepository) List(ctx context.Context, filter models.ShipmentFilter) ([]models.Shipment, int, error) {
	base := `FROM shipments WHERE deleted_at IS NULL`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Principal != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(principal) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Principal)+"%")
	}
	if filter.ETAStart != nil {
		conditions = append(conditions, fmt.Sprintf("eta >= $%d", len(args)+1))
		args = append(args, *filter.ETAStart)
	}
	if filter.ETAEnd != nil {
		conditions = append(conditions, fmt.Sprintf("eta <= $%d", len(args)+1))
		args = append(args, *filter.ETAEnd)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY eta DESC, created_at DESC LIMIT %d OFFSET %d",
		shipmentColumns, base, pageSize, offset)

	var shipments []models.Shipment
	if err := r.db.SelectContext(ctx, &shipments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count shipments: %w", err)
	}

	return shipments, total, nil
}

// ListActiveInETAWindow returns active, live shipments whose ETA falls in
// [start, end]. This is the batch evaluation candidate set.
func (r *ShipmentRepository) ListActiveInETAWindow(ctx context.Context, start, end time.Time) ([]models.Shipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shipments
		WHERE status = $1 AND deleted_at IS NULL AND eta >= $2 AND eta <= $3
		ORDER BY eta ASC, id ASC`, shipmentColumns)
	var shipments []models.Shipment
	if err := r.db.SelectContext(ctx, &shipments, query, models.ShipmentStatusActive, start, end); err != nil {
		return nil, fmt.Errorf("list shipments in eta window: %w", err)
	}
	return shipments, nil
}

// CountByStatus aggregates live shipments per status for the dashboard.
func (r *ShipmentRepository) CountByStatus(ctx context.Context) (map[models.ShipmentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM shipments WHERE deleted_at IS NULL GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count shipments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ShipmentStatus]int)
	for rows.Next() {
		var status models.ShipmentStatus
		var total int
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = total
	}
	return counts, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
