package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tarakiga/ccas/internal/models"
)

// TemplateRepository serves the workflow step catalog.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// ListActive returns the active catalog entries in display order. Step
// generation reads exactly this set.
func (r *TemplateRepository) ListActive(ctx context.Context) ([]models.WorkflowStepTemplate, error) {
	const query = `SELECT id, step_number, step_name, description, department, offset_days,
			is_critical, display_order, is_active, created_at, updated_at
		FROM workflow_step_templates
		WHERE is_active = TRUE
		ORDER BY display_order ASC`
	var templates []models.WorkflowStepTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list active step templates: %w", err)
	}
	return templates, nil
}

// Seed upserts the catalog by step number. Existing rows get refreshed
// definitions; ids and generated steps are untouched.
func (r *TemplateRepository) Seed(ctx context.Context, templates []models.WorkflowStepTemplate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed templates: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const upsert = `INSERT INTO workflow_step_templates
		(step_number, step_name, description, department, offset_days, is_critical, display_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (step_number) DO UPDATE SET
			step_name = EXCLUDED.step_name,
			description = EXCLUDED.description,
			department = EXCLUDED.department,
			offset_days = EXCLUDED.offset_days,
			is_critical = EXCLUDED.is_critical,
			display_order = EXCLUDED.display_order,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`
	for _, t := range templates {
		if _, err := tx.ExecContext(ctx, upsert,
			t.StepNumber, t.StepName, t.Description, t.Department, t.OffsetDays,
			t.IsCritical, t.DisplayOrder, t.IsActive, now,
		); err != nil {
			return fmt.Errorf("seed template %s: %w", t.StepNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed templates: %w", err)
	}
	return nil
}
