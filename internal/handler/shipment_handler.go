package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/service"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
	"github.com/tarakiga/ccas/pkg/response"
)

// ShipmentHandler exposes shipment endpoints.
type ShipmentHandler struct {
	shipments *service.ShipmentService
	workflow  *service.WorkflowService
	dashboard *service.DashboardService
}

// NewShipmentHandler constructs ShipmentHandler. dashboard may be nil.
func NewShipmentHandler(shipments *service.ShipmentService, workflow *service.WorkflowService, dashboard *service.DashboardService) *ShipmentHandler {
	return &ShipmentHandler{shipments: shipments, workflow: workflow, dashboard: dashboard}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid id"))
		return 0, false
	}
	return id, true
}

// List godoc
// @Summary List shipments
// @Tags Shipments
// @Produce json
// @Param status query string false "Filter by status"
// @Param principal query string false "Filter by principal (substring)"
// @Param etaStart query string false "ETA window start (YYYY-MM-DD)"
// @Param etaEnd query string false "ETA window end (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /shipments [get]
func (h *ShipmentHandler) List(c *gin.Context) {
	var query dto.ShipmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	shipments, pagination, err := h.shipments.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	responses := make([]*dto.ShipmentResponse, 0, len(shipments))
	for i := range shipments {
		responses = append(responses, dto.NewShipmentResponse(&shipments[i], nil))
	}
	response.JSON(c, http.StatusOK, responses, pagination)
}

// Get godoc
// @Summary Get shipment detail with its workflow steps
// @Tags Shipments
// @Produce json
// @Param id path int true "Shipment ID"
// @Success 200 {object} response.Envelope
// @Router /shipments/{id} [get]
func (h *ShipmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	shipment, err := h.shipments.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	steps, err := h.workflow.StepsForShipment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewShipmentResponse(shipment, steps), nil)
}

// Create godoc
// @Summary Register a shipment and generate its clearance workflow
// @Tags Shipments
// @Accept json
// @Produce json
// @Param payload body dto.CreateShipmentRequest true "Shipment payload"
// @Success 201 {object} response.Envelope
// @Router /shipments [post]
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req dto.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	shipment, steps, err := h.shipments.Create(c.Request.Context(), req, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewShipmentResponse(shipment, steps))
}

// Update godoc
// @Summary Update shipment fields with optimistic locking
// @Tags Shipments
// @Accept json
// @Produce json
// @Param id path int true "Shipment ID"
// @Param payload body dto.UpdateShipmentRequest true "Changes with expectedVersion"
// @Success 200 {object} response.Envelope
// @Router /shipments/{id} [patch]
func (h *ShipmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	shipment, err := h.shipments.Update(c.Request.Context(), id, req, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewShipmentResponse(shipment, nil), nil)
}

// UpdateETA godoc
// @Summary Move the shipment ETA and recalculate all step target dates
// @Tags Shipments
// @Accept json
// @Produce json
// @Param id path int true "Shipment ID"
// @Param payload body dto.UpdateETARequest true "New ETA with expectedVersion"
// @Success 200 {object} response.Envelope
// @Router /shipments/{id}/eta [put]
func (h *ShipmentHandler) UpdateETA(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateETARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	shipment, err := h.shipments.UpdateETA(c.Request.Context(), id, req, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewShipmentResponse(shipment, nil), nil)
}

// Delete godoc
// @Summary Cancel and soft-delete a shipment
// @Tags Shipments
// @Param id path int true "Shipment ID"
// @Success 204
// @Router /shipments/{id} [delete]
func (h *ShipmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.shipments.Delete(c.Request.Context(), id, actor.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Bulk-register shipments
// @Tags Shipments
// @Accept json
// @Produce json
// @Param payload body []dto.CreateShipmentRequest true "Shipment rows"
// @Success 200 {object} response.Envelope
// @Router /shipments/import [post]
func (h *ShipmentHandler) Import(c *gin.Context) {
	var rows []dto.CreateShipmentRequest
	if err := c.ShouldBindJSON(&rows); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if len(rows) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "empty import"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary := h.shipments.Import(c.Request.Context(), rows, actor.ID)
	if h.dashboard != nil && summary.Successful > 0 {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
