package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/woeat/pipeline/api/handlers"
	"github.com/woeat/pipeline/api/middleware"
	"github.com/woeat/pipeline/pkg/metrics"
)

// SetupRoutes mounts the dashboard API and the metrics endpoint.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, reg *metrics.Registry) {
	r.Use(middleware.CORS())

	r.GET("/metrics", gin.WrapH(reg.Handler()))

	v1 := r.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	pipeline := v1.Group("/pipeline")
	{
		pipeline.POST("/run", h.Pipeline.TriggerRun)
		pipeline.GET("/status/:runId", h.Pipeline.GetRunStatus)
	}

	kpi := v1.Group("/kpi")
	{
		kpi.GET("/delivery", h.KPI.GetDeliveryKPIs)
		kpi.GET("/drivers", h.KPI.GetDriverKPIs)
		kpi.GET("/items", h.KPI.GetItemSales)
		kpi.GET("/cuisine", h.KPI.GetCuisineKPIs)
	}
	v1.GET("/features", h.KPI.GetFeatures)

	sim := v1.Group("/sim")
	{
		sim.POST("/order", h.Sim.SimulateOrder)
		sim.POST("/report", h.Sim.SimulateReport)
	}

	v1.GET("/export/kpis", h.Export.DownloadKPIs)
}
