package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/woeat/pipeline/internal/service/pipeline"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/queue"
)

type PipelineHandler struct {
	service pipeline.Service
	logger  logger.Logger
}

// ErrorResponse is the uniform error body for every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewPipelineHandler(service pipeline.Service, logger logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		service: service,
		logger:  logger,
	}
}

// TriggerRun enqueues a full rebuild and returns its id for polling.
func (h *PipelineHandler) TriggerRun(c *gin.Context) {
	run, err := h.service.TriggerRun(c.Request.Context())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to enqueue run", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"runId":     run.ID,
		"status":    string(run.Status),
		"createdAt": run.CreatedAt,
	})
}

// GetRunStatus reports the state of a previously enqueued run.
func (h *PipelineHandler) GetRunStatus(c *gin.Context) {
	runID := c.Param("runId")
	if runID == "" {
		h.handleError(c, http.StatusBadRequest, "Run ID is required", nil)
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, queue.ErrRunNotFound) {
			h.handleError(c, http.StatusNotFound, "Run not found", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to get run", err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *PipelineHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)
	resp := ErrorResponse{Error: http.StatusText(status), Message: message}
	if err != nil {
		resp.Message = message + ": " + err.Error()
	}
	c.JSON(status, resp)
}
