package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tarakiga/ccas/internal/models"
)

const userColumns = `id, external_id, email, full_name, department, role, is_active, created_at, updated_at`

// UserRepository reads the user directory.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID loads a user.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// FindByEmail loads a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1)`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// ResolveDepartment picks the active primary (PPR) and alternate (APR)
// responsible users for a department. No active PPR yields sql.ErrNoRows;
// a missing APR is fine.
func (r *UserRepository) ResolveDepartment(ctx context.Context, department string) (*models.DepartmentAssignment, error) {
	const query = `SELECT id FROM users
		WHERE department = $1 AND role = $2 AND is_active = TRUE
		ORDER BY id ASC LIMIT 1`

	var assignment models.DepartmentAssignment
	if err := r.db.GetContext(ctx, &assignment.PPRUserID, query, department, models.RolePPR); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve PPR for %s: %w", department, err)
	}

	var aprID int64
	err := r.db.GetContext(ctx, &aprID, query, department, models.RoleAPR)
	switch {
	case err == nil:
		assignment.APRUserID = &aprID
	case errors.Is(err, sql.ErrNoRows):
		// no alternate configured
	default:
		return nil, fmt.Errorf("resolve APR for %s: %w", department, err)
	}
	return &assignment, nil
}
