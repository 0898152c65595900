package dto

// AlertQuery filters a recipient's alert listing.
type AlertQuery struct {
	ShipmentID   int64  `form:"shipmentId"`
	Severity     string `form:"severity"`
	Acknowledged *bool  `form:"acknowledged"`
	Page         int    `form:"page,default=1"`
	PageSize     int    `form:"pageSize,default=50"`
}

// EvaluationSummary reports one batch evaluation sweep.
type EvaluationSummary struct {
	RunID          string  `json:"runId"`
	TotalShipments int     `json:"totalShipments"`
	Processed      int     `json:"processed"`
	Errors         int     `json:"errors"`
	AlertsCreated  int     `json:"alertsCreated"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}
