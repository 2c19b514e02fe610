package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/woeat/pipeline/internal/service/pipeline"
	"github.com/woeat/pipeline/pkg/logger"
)

// SimHandler drives the live simulation from the dashboard.
type SimHandler struct {
	service pipeline.Service
	logger  logger.Logger
}

func NewSimHandler(service pipeline.Service, logger logger.Logger) *SimHandler {
	return &SimHandler{
		service: service,
		logger:  logger,
	}
}

// SimulateOrder places a live order. The delivery lands shortly after on a
// scheduled task, followed by a rebuild.
func (h *SimHandler) SimulateOrder(c *gin.Context) {
	order, err := h.service.SimulateOrder(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to simulate order", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// SimulateReport appends a back-dated restaurant report.
func (h *SimHandler) SimulateReport(c *gin.Context) {
	report, err := h.service.SimulateReport(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to simulate report", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

func (h *SimHandler) handleError(c *gin.Context, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   http.StatusText(http.StatusInternalServerError),
		Message: message + ": " + err.Error(),
	})
}
