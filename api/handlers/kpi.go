package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/woeat/pipeline/internal/service/pipeline"
	"github.com/woeat/pipeline/pkg/logger"
)

// KPIHandler serves the published rollups and the feature table. Responses
// come straight off the last completed run; an empty store means no run has
// published yet.
type KPIHandler struct {
	service pipeline.Service
	logger  logger.Logger
}

func NewKPIHandler(service pipeline.Service, logger logger.Logger) *KPIHandler {
	return &KPIHandler{
		service: service,
		logger:  logger,
	}
}

func (h *KPIHandler) GetDeliveryKPIs(c *gin.Context) {
	kpis, err := h.service.DeliveryKPIs(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to load delivery KPIs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kpis": kpis})
}

func (h *KPIHandler) GetDriverKPIs(c *gin.Context) {
	kpis, err := h.service.DriverKPIs(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to load driver KPIs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kpis": kpis})
}

func (h *KPIHandler) GetItemSales(c *gin.Context) {
	kpis, err := h.service.ItemSales(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to load item sales", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kpis": kpis})
}

func (h *KPIHandler) GetCuisineKPIs(c *gin.Context) {
	kpis, err := h.service.CuisineKPIs(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to load cuisine KPIs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kpis": kpis})
}

func (h *KPIHandler) GetFeatures(c *gin.Context) {
	features, err := h.service.Features(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to load features", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"features": features})
}

func (h *KPIHandler) handleError(c *gin.Context, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:   http.StatusText(http.StatusServiceUnavailable),
		Message: message + ": " + err.Error(),
	})
}
