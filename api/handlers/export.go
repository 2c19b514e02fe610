package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/woeat/pipeline/internal/export"
	"github.com/woeat/pipeline/internal/service/pipeline"
	"github.com/woeat/pipeline/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler renders the KPI tables as a downloadable workbook.
type ExportHandler struct {
	service pipeline.Service
	logger  logger.Logger
}

func NewExportHandler(service pipeline.Service, logger logger.Logger) *ExportHandler {
	return &ExportHandler{
		service: service,
		logger:  logger,
	}
}

func (h *ExportHandler) DownloadKPIs(c *gin.Context) {
	ctx := c.Request.Context()

	data := export.KPIData{}
	var err error
	if data.Delivery, err = h.service.DeliveryKPIs(ctx); err != nil {
		h.handleError(c, "Failed to load delivery KPIs", err)
		return
	}
	if data.Drivers, err = h.service.DriverKPIs(ctx); err != nil {
		h.handleError(c, "Failed to load driver KPIs", err)
		return
	}
	if data.Items, err = h.service.ItemSales(ctx); err != nil {
		h.handleError(c, "Failed to load item sales", err)
		return
	}
	if data.Cuisine, err = h.service.CuisineKPIs(ctx); err != nil {
		h.handleError(c, "Failed to load cuisine KPIs", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, data); err != nil {
		h.handleError(c, "Failed to build workbook", err)
		return
	}

	filename := fmt.Sprintf("woeat_kpis_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleError(c *gin.Context, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:   http.StatusText(http.StatusServiceUnavailable),
		Message: message + ": " + err.Error(),
	})
}
