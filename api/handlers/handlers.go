package handlers

import (
	"github.com/woeat/pipeline/internal/service/pipeline"
	"github.com/woeat/pipeline/pkg/logger"
)

type Handlers struct {
	Pipeline *PipelineHandler
	KPI      *KPIHandler
	Sim      *SimHandler
	Export   *ExportHandler
}

func NewHandlers(svc pipeline.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Pipeline: NewPipelineHandler(svc, log),
		KPI:      NewKPIHandler(svc, log),
		Sim:      NewSimHandler(svc, log),
		Export:   NewExportHandler(svc, log),
	}
}
