package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/service"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
	"github.com/tarakiga/ccas/pkg/response"
)

// ReportHandler exposes the clearance report export.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Clearance godoc
// @Summary Export the clearance status report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param status query string false "Filter by status"
// @Param principal query string false "Filter by principal"
// @Success 200 {file} file
// @Router /reports/clearance [get]
func (h *ReportHandler) Clearance(c *gin.Context) {
	var query dto.ShipmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	format := service.ReportFormat(c.DefaultQuery("format", string(service.ReportFormatCSV)))

	payload, contentType, filename, err := h.reports.ClearanceReport(c.Request.Context(), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
