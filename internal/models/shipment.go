package models

import "time"

// ShipmentStatus enumerates shipment lifecycle states.
type ShipmentStatus string

const (
	ShipmentStatusActive    ShipmentStatus = "active"
	ShipmentStatusCompleted ShipmentStatus = "completed"
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

// MaxETAEdits caps how many times a shipment's ETA may be changed.
const MaxETAEdits = 3

// Shipment is the customs-clearance aggregate root. All workflow steps and
// alerts hang off it; mutations are guarded by the version column.
type Shipment struct {
	ID             int64          `db:"id" json:"id"`
	ShipmentNumber string         `db:"shipment_number" json:"shipmentNumber"`
	Principal      string         `db:"principal" json:"principal"`
	Brand          string         `db:"brand" json:"brand"`
	LCNumber       string         `db:"lc_number" json:"lcNumber"`
	InvoiceAmount  Amount         `db:"invoice_amount_omr" json:"invoiceAmountOMR"`
	ETA            time.Time      `db:"eta" json:"eta"`
	ETAEditCount   int            `db:"eta_edit_count" json:"etaEditCount"`
	Status         ShipmentStatus `db:"status" json:"status"`
	Version        int64          `db:"version" json:"version"`
	CreatedByID    int64          `db:"created_by_id" json:"createdById"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
	DeletedAt      *time.Time     `db:"deleted_at" json:"deletedAt,omitempty"`
}

// CustomsDuty is 5% of the invoice amount.
func (s *Shipment) CustomsDuty() Amount { return s.InvoiceAmount.Percent(5) }

// VAT is 5% of the invoice amount.
func (s *Shipment) VAT() Amount { return s.InvoiceAmount.Percent(5) }

// Insurance is 1% of the invoice amount.
func (s *Shipment) Insurance() Amount { return s.InvoiceAmount.Percent(1) }

// DaysPostETA returns the whole-day distance from the ETA to the given date.
// Negative values mean the ETA is still in the future.
func (s *Shipment) DaysPostETA(today time.Time) int {
	eta := DateOf(s.ETA)
	day := DateOf(today)
	return int(day.Sub(eta).Hours() / 24)
}

// ShipmentFilter constrains listing queries.
type ShipmentFilter struct {
	Status    ShipmentStatus
	Principal string
	ETAStart  *time.Time
	ETAEnd    *time.Time
	Page      int
	PageSize  int
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
