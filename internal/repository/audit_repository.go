package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tarakiga/ccas/internal/models"
)

// AuditRepository reads the immutable change log. Writes happen through
// insertAuditRecords inside the mutating repositories' transactions so a
// change and its trail commit together.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// ListByEntity returns the change history of one entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditRecord, error) {
	const query = `SELECT id, entity_type, entity_id, field_name, old_value, new_value, actor_id, origin, created_at
		FROM audit_records
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC`
	var records []models.AuditRecord
	if err := r.db.SelectContext(ctx, &records, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list audit records for %s %d: %w", entityType, entityID, err)
	}
	return records, nil
}

// insertAuditRecords bulk-inserts audit rows inside the caller's transaction.
func insertAuditRecords(ctx context.Context, ext sqlx.ExtContext, records []models.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range records {
		records[i].CreatedAt = now
	}
	const insert = `INSERT INTO audit_records
		(entity_type, entity_id, field_name, old_value, new_value, actor_id, origin, created_at)
		VALUES (:entity_type, :entity_id, :field_name, :old_value, :new_value, :actor_id, :origin, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, insert, records); err != nil {
		return fmt.Errorf("insert audit records: %w", err)
	}
	return nil
}
