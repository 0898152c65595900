package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/service"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
	"github.com/tarakiga/ccas/pkg/response"
)

// WorkflowHandler exposes workflow step endpoints.
type WorkflowHandler struct {
	workflow *service.WorkflowService
}

// NewWorkflowHandler constructs WorkflowHandler.
func NewWorkflowHandler(workflow *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow}
}

// MySteps godoc
// @Summary List steps assigned to the caller
// @Tags Workflow
// @Produce json
// @Param status query string false "Filter by step status"
// @Param department query string false "Filter by department"
// @Param critical query bool false "Only critical steps"
// @Success 200 {object} response.Envelope
// @Router /steps/my [get]
func (h *WorkflowHandler) MySteps(c *gin.Context) {
	var query dto.StepQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	steps, err := h.workflow.MySteps(c.Request.Context(), actor.ID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, steps, nil)
}

// Complete godoc
// @Summary Record the actual completion date of a step
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path int true "Step ID"
// @Param payload body dto.CompleteStepRequest true "Actual date"
// @Success 200 {object} response.Envelope
// @Router /steps/{id}/complete [post]
func (h *WorkflowHandler) Complete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.CompleteStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	step, err := h.workflow.Complete(c.Request.Context(), id, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, step, nil)
}
