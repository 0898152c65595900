package models

import "time"

// AlertSeverity enumerates escalation severities.
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
	AlertSeverityUrgent   AlertSeverity = "urgent"
)

// Alert records one escalation notification for an overdue critical step.
// An alert is never deleted; acknowledgment and delivery state mutate in place.
type Alert struct {
	ID              int64         `db:"id" json:"id"`
	ShipmentID      int64         `db:"shipment_id" json:"shipmentId"`
	WorkflowStepID  int64         `db:"workflow_step_id" json:"workflowStepId"`
	RecipientUserID int64         `db:"recipient_user_id" json:"recipientUserId"`
	Severity        AlertSeverity `db:"severity" json:"severity"`
	Message         string        `db:"message" json:"message"`
	DaysPostETA     int           `db:"days_post_eta" json:"daysPostEta"`
	IsAcknowledged  bool          `db:"is_acknowledged" json:"isAcknowledged"`
	AcknowledgedAt  *time.Time    `db:"acknowledged_at" json:"acknowledgedAt,omitempty"`
	Sent            bool          `db:"sent" json:"sent"`
	SentAt          *time.Time    `db:"sent_at" json:"sentAt,omitempty"`
	RetryCount      int           `db:"retry_count" json:"retryCount"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
}

// AlertDelivery joins the alert with everything notification rendering needs.
type AlertDelivery struct {
	Alert
	ShipmentNumber string    `db:"shipment_number" json:"shipmentNumber"`
	Principal      string    `db:"principal" json:"principal"`
	Brand          string    `db:"brand" json:"brand"`
	StepName       string    `db:"step_name" json:"stepName"`
	TargetDate     time.Time `db:"target_date" json:"targetDate"`
	RecipientEmail string    `db:"recipient_email" json:"recipientEmail"`
}

// AlertFilter constrains recipient alert listings.
type AlertFilter struct {
	ShipmentID     int64
	Severity       AlertSeverity
	IsAcknowledged *bool
	Page           int
	PageSize       int
}
