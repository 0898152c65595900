package models

import "time"

// Role names used for workflow responsibility assignment.
const (
	RolePPR      = "PPR"
	RoleAPR      = "APR"
	RoleManager  = "Manager"
	RoleAdmin    = "Admin"
	RoleReadOnly = "ReadOnly"
)

// Department names for the clearance workflow.
const (
	DepartmentBusinessUnit = "BusinessUnit"
	DepartmentFinance      = "Finance"
	DepartmentCustoms      = "C&C"
	DepartmentStores       = "Stores"
	DepartmentAudit        = "IA"
)

// User is a directory entry referenced by workflow steps and alerts.
// Identity lives in an external IdP; this record carries the routing fields.
type User struct {
	ID         int64     `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"externalId"`
	Email      string    `db:"email" json:"email"`
	FullName   string    `db:"full_name" json:"fullName"`
	Department string    `db:"department" json:"department"`
	Role       string    `db:"role" json:"role"`
	IsActive   bool      `db:"is_active" json:"isActive"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// DepartmentAssignment resolves who is responsible for a department's steps.
type DepartmentAssignment struct {
	PPRUserID int64
	APRUserID *int64
}
