package models

import "time"

// Audited entity types.
const (
	AuditEntityShipment     = "shipment"
	AuditEntityWorkflowStep = "workflow_step"
	AuditEntityAlert        = "alert"
)

// AuditRecord is one field-level change entry. Every successful shipment or
// step mutation emits one record per changed field, inside the same
// transaction as the mutation it documents.
type AuditRecord struct {
	ID         int64     `db:"id" json:"id"`
	EntityType string    `db:"entity_type" json:"entityType"`
	EntityID   int64     `db:"entity_id" json:"entityId"`
	FieldName  string    `db:"field_name" json:"fieldName"`
	OldValue   *string   `db:"old_value" json:"oldValue,omitempty"`
	NewValue   *string   `db:"new_value" json:"newValue,omitempty"`
	ActorID    int64     `db:"actor_id" json:"actorId"`
	Origin     string    `db:"origin" json:"origin"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// FieldChange is a pending audit entry built while applying a mutation.
type FieldChange struct {
	Field    string
	OldValue *string
	NewValue *string
}

// StrPtr is a convenience for building audit values.
func StrPtr(v string) *string { return &v }
