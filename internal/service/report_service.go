package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/models"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
	"github.com/tarakiga/ccas/pkg/export"
)

type reportShipmentStore interface {
	List(ctx context.Context, filter models.ShipmentFilter) ([]models.Shipment, int, error)
}

type reportStepStore interface {
	GetByShipment(ctx context.Context, shipmentID int64) ([]models.WorkflowStep, error)
}

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

const reportPageSize = 200

// ReportService renders the clearance status report: one row per shipment
// with its financial charges and workflow progress.
type ReportService struct {
	shipments reportShipmentStore
	steps     reportStepStore
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(shipments reportShipmentStore, steps reportStepStore, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		shipments: shipments,
		steps:     steps,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// ClearanceReport renders the report for shipments matching the query.
// Returns the bytes, the content type, and a suggested filename.
func (s *ReportService) ClearanceReport(ctx context.Context, query dto.ShipmentQuery, format ReportFormat) ([]byte, string, string, error) {
	dataset, err := s.buildDataset(ctx, query)
	if err != nil {
		return nil, "", "", err
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case ReportFormatCSV:
		payload, err := s.csv.Render(*dataset)
		if err != nil {
			return nil, "", "", appErrors.FromError(err)
		}
		return payload, "text/csv", fmt.Sprintf("clearance-report-%s.csv", stamp), nil
	case ReportFormatPDF:
		payload, err := s.pdf.Render(*dataset, "Customs Clearance Status Report")
		if err != nil {
			return nil, "", "", appErrors.FromError(err)
		}
		return payload, "application/pdf", fmt.Sprintf("clearance-report-%s.pdf", stamp), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}
}

func (s *ReportService) buildDataset(ctx context.Context, query dto.ShipmentQuery) (*export.Dataset, error) {
	headers := []string{
		"Shipment Number", "Principal", "Brand", "LC Number", "ETA", "Status",
		"Invoice (OMR)", "Customs Duty (OMR)", "VAT (OMR)", "Insurance (OMR)",
		"Steps Completed", "Steps Total", "Days Post ETA",
	}
	dataset := &export.Dataset{Headers: headers}
	today := models.DateOf(time.Now())

	page := 1
	for {
		filter := models.ShipmentFilter{
			Status:    models.ShipmentStatus(query.Status),
			Principal: query.Principal,
			Page:      page,
			PageSize:  reportPageSize,
		}
		shipments, total, err := s.shipments.List(ctx, filter)
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		for i := range shipments {
			row, err := s.buildRow(ctx, &shipments[i], today)
			if err != nil {
				return nil, err
			}
			dataset.Rows = append(dataset.Rows, row)
		}
		if page*reportPageSize >= total || len(shipments) == 0 {
			break
		}
		page++
	}
	return dataset, nil
}

func (s *ReportService) buildRow(ctx context.Context, shipment *models.Shipment, today time.Time) (map[string]string, error) {
	steps, err := s.steps.GetByShipment(ctx, shipment.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	completed := 0
	for _, step := range steps {
		if step.ActualDate != nil {
			completed++
		}
	}
	return map[string]string{
		"Shipment Number":    shipment.ShipmentNumber,
		"Principal":          shipment.Principal,
		"Brand":              shipment.Brand,
		"LC Number":          shipment.LCNumber,
		"ETA":                models.DateOf(shipment.ETA).Format("2006-01-02"),
		"Status":             string(shipment.Status),
		"Invoice (OMR)":      shipment.InvoiceAmount.String(),
		"Customs Duty (OMR)": shipment.CustomsDuty().String(),
		"VAT (OMR)":          shipment.VAT().String(),
		"Insurance (OMR)":    shipment.Insurance().String(),
		"Steps Completed":    strconv.Itoa(completed),
		"Steps Total":        strconv.Itoa(len(steps)),
		"Days Post ETA":      strconv.Itoa(shipment.DaysPostETA(today)),
	}, nil
}
