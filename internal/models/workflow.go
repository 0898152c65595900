package models

import "time"

// StepStatus enumerates workflow step states.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusCompleted StepStatus = "completed"
	StepStatusOverdue   StepStatus = "overdue"
)

// WorkflowStepTemplate is an immutable catalog entry describing one of the
// fixed clearance steps. The catalog drives step generation; it is never
// modified at runtime.
type WorkflowStepTemplate struct {
	ID           int64     `db:"id" json:"id"`
	StepNumber   string    `db:"step_number" json:"stepNumber"`
	StepName     string    `db:"step_name" json:"stepName"`
	Description  string    `db:"description" json:"description"`
	Department   string    `db:"department" json:"department"`
	OffsetDays   int       `db:"offset_days" json:"offsetDays"`
	IsCritical   bool      `db:"is_critical" json:"isCritical"`
	DisplayOrder int       `db:"display_order" json:"displayOrder"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// WorkflowStep is one materialized step instance for a shipment. Template
// fields are denormalized at generation time; only target_date moves when
// the shipment's ETA changes.
type WorkflowStep struct {
	ID          int64      `db:"id" json:"id"`
	ShipmentID  int64      `db:"shipment_id" json:"shipmentId"`
	StepNumber  string     `db:"step_number" json:"stepNumber"`
	StepName    string     `db:"step_name" json:"stepName"`
	Description string     `db:"description" json:"description"`
	Department  string     `db:"department" json:"department"`
	TargetDate  time.Time  `db:"target_date" json:"targetDate"`
	OffsetDays  int        `db:"offset_days" json:"offsetDays"`
	ActualDate  *time.Time `db:"actual_date" json:"actualDate,omitempty"`
	Status      StepStatus `db:"status" json:"status"`
	IsCritical  bool       `db:"is_critical" json:"isCritical"`
	PPRUserID   int64      `db:"ppr_user_id" json:"pprUserId"`
	APRUserID   *int64     `db:"apr_user_id" json:"aprUserId,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsAssignee reports whether the user is the step's PPR or APR.
func (s *WorkflowStep) IsAssignee(userID int64) bool {
	if s.PPRUserID == userID {
		return true
	}
	return s.APRUserID != nil && *s.APRUserID == userID
}

// StepFilter constrains assigned-step listing queries.
type StepFilter struct {
	Status     StepStatus
	Department string
	IsCritical *bool
}
