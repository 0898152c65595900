package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/service"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
	"github.com/tarakiga/ccas/pkg/response"
)

// AlertHandler exposes alert endpoints.
type AlertHandler struct {
	alerts    *service.AlertService
	scheduler *service.EvaluationScheduler
}

// NewAlertHandler constructs AlertHandler.
func NewAlertHandler(alerts *service.AlertService, scheduler *service.EvaluationScheduler) *AlertHandler {
	return &AlertHandler{alerts: alerts, scheduler: scheduler}
}

// List godoc
// @Summary List the caller's alerts
// @Tags Alerts
// @Produce json
// @Param shipmentId query int false "Filter by shipment"
// @Param severity query string false "Filter by severity"
// @Param acknowledged query bool false "Filter by acknowledgment"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var query dto.AlertQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	alerts, pagination, err := h.alerts.ListForUser(c.Request.Context(), actor.ID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, pagination)
}

// Acknowledge godoc
// @Summary Acknowledge an alert
// @Tags Alerts
// @Produce json
// @Param id path int true "Alert ID"
// @Success 200 {object} response.Envelope
// @Router /alerts/{id}/ack [post]
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	alert, err := h.alerts.Acknowledge(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}

// Evaluate godoc
// @Summary Run the alert evaluation sweep immediately
// @Tags Alerts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /alerts/evaluate [post]
func (h *AlertHandler) Evaluate(c *gin.Context) {
	summary, err := h.scheduler.RunOnce(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
