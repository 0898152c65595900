package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tarakiga/ccas/internal/middleware"
	"github.com/tarakiga/ccas/internal/models"
)

// RouterDeps bundles everything route registration needs.
type RouterDeps struct {
	Shipments *ShipmentHandler
	Workflow  *WorkflowHandler
	Alerts    *AlertHandler
	Dashboard *DashboardHandler
	Reports   *ReportHandler
	Metrics   *MetricsHandler

	JWTSecret string
	APIPrefix string
}

// RegisterRoutes wires all API routes onto the engine. Everything under the
// API prefix requires a valid token; mutating routes additionally check the
// caller's role.
func RegisterRoutes(r *gin.Engine, deps RouterDeps) {
	r.GET("/health", deps.Metrics.Health)
	r.GET("/ready", deps.Metrics.Health)
	r.GET("/metrics", deps.Metrics.Prometheus)

	writers := middleware.RBAC(models.RolePPR, models.RoleAPR, models.RoleManager, models.RoleAdmin)
	managers := middleware.RBAC(models.RoleManager, models.RoleAdmin)

	api := r.Group(deps.APIPrefix)
	api.Use(middleware.JWT(deps.JWTSecret))
	{
		shipments := api.Group("/shipments")
		{
			shipments.GET("", deps.Shipments.List)
			shipments.GET("/:id", deps.Shipments.Get)
			shipments.POST("", writers, deps.Shipments.Create)
			shipments.PATCH("/:id", writers, deps.Shipments.Update)
			shipments.PUT("/:id/eta", writers, deps.Shipments.UpdateETA)
			shipments.DELETE("/:id", managers, deps.Shipments.Delete)
			shipments.POST("/import", managers, deps.Shipments.Import)
		}

		steps := api.Group("/steps")
		{
			steps.GET("/my", deps.Workflow.MySteps)
			steps.POST("/:id/complete", writers, deps.Workflow.Complete)
		}

		alerts := api.Group("/alerts")
		{
			alerts.GET("", deps.Alerts.List)
			alerts.POST("/:id/ack", deps.Alerts.Acknowledge)
			alerts.POST("/evaluate", managers, deps.Alerts.Evaluate)
		}

		api.GET("/dashboard/summary", deps.Dashboard.Summary)
		api.GET("/reports/clearance", managers, deps.Reports.Clearance)
	}
}
