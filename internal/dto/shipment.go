package dto

import (
	"time"

	"github.com/tarakiga/ccas/internal/models"
)

// CreateShipmentRequest carries a new shipment registration.
type CreateShipmentRequest struct {
	ShipmentNumber string        `json:"shipmentNumber" binding:"required" validate:"required,max=100"`
	Principal      string        `json:"principal" binding:"required" validate:"required,max=255"`
	Brand          string        `json:"brand" binding:"required" validate:"required,max=255"`
	LCNumber       string        `json:"lcNumber" binding:"required" validate:"required,max=100"`
	InvoiceAmount  models.Amount `json:"invoiceAmountOMR" binding:"required" validate:"required"`
	ETA            Date          `json:"eta" binding:"required"`
}

// UpdateShipmentRequest applies optional field changes against a version.
type UpdateShipmentRequest struct {
	ExpectedVersion int64                  `json:"expectedVersion" binding:"required"`
	Principal       *string                `json:"principal,omitempty"`
	Brand           *string                `json:"brand,omitempty"`
	LCNumber        *string                `json:"lcNumber,omitempty"`
	InvoiceAmount   *models.Amount         `json:"invoiceAmountOMR,omitempty"`
	Status          *models.ShipmentStatus `json:"status,omitempty"`
}

// UpdateETARequest moves the anchor date.
type UpdateETARequest struct {
	ExpectedVersion int64 `json:"expectedVersion" binding:"required"`
	ETA             Date  `json:"eta" binding:"required"`
}

// ShipmentQuery filters shipment listings.
type ShipmentQuery struct {
	Status    string `form:"status"`
	Principal string `form:"principal"`
	ETAStart  string `form:"etaStart"`
	ETAEnd    string `form:"etaEnd"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"pageSize,default=50"`
}

// ShipmentResponse is the API projection of a shipment, including the
// derived financial charges.
type ShipmentResponse struct {
	ID             int64                 `json:"id"`
	ShipmentNumber string                `json:"shipmentNumber"`
	Principal      string                `json:"principal"`
	Brand          string                `json:"brand"`
	LCNumber       string                `json:"lcNumber"`
	InvoiceAmount  models.Amount         `json:"invoiceAmountOMR"`
	CustomsDuty    models.Amount         `json:"customsDutyOMR"`
	VAT            models.Amount         `json:"vatOMR"`
	Insurance      models.Amount         `json:"insuranceOMR"`
	ETA            Date                  `json:"eta"`
	ETAEditCount   int                   `json:"etaEditCount"`
	Status         models.ShipmentStatus `json:"status"`
	Version        int64                 `json:"version"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
	Steps          []models.WorkflowStep `json:"steps,omitempty"`
}

// NewShipmentResponse projects a shipment and optional steps.
func NewShipmentResponse(s *models.Shipment, steps []models.WorkflowStep) *ShipmentResponse {
	return &ShipmentResponse{
		ID:             s.ID,
		ShipmentNumber: s.ShipmentNumber,
		Principal:      s.Principal,
		Brand:          s.Brand,
		LCNumber:       s.LCNumber,
		InvoiceAmount:  s.InvoiceAmount,
		CustomsDuty:    s.CustomsDuty(),
		VAT:            s.VAT(),
		Insurance:      s.Insurance(),
		ETA:            NewDate(s.ETA),
		ETAEditCount:   s.ETAEditCount,
		Status:         s.Status,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		Steps:          steps,
	}
}

// ImportError reports one failed row of a bulk import.
type ImportError struct {
	Row            int    `json:"row"`
	ShipmentNumber string `json:"shipmentNumber"`
	Error          string `json:"error"`
}

// ImportSummary aggregates a bulk import outcome.
type ImportSummary struct {
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Total      int           `json:"total"`
	Errors     []ImportError `json:"errors,omitempty"`
}
