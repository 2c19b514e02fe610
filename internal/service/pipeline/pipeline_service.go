package pipeline

import (
	"context"

	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/internal/sim"
)

// Service is the application surface behind the API and the worker: run
// management, the live simulation and read access to the published tables.
type Service interface {
	// TriggerRun enqueues a full rebuild and returns it in pending state.
	TriggerRun(ctx context.Context) (*models.PipelineRun, error)
	// GetRun reports the current state of a run.
	GetRun(ctx context.Context, runID string) (*models.PipelineRun, error)
	// ExecuteRun performs the rebuild for an enqueued run. Called by the
	// worker, never by the API.
	ExecuteRun(ctx context.Context, runID string) error

	// SimulateOrder places a live order and schedules its delivery.
	SimulateOrder(ctx context.Context) (*sim.Order, error)
	// SimulateReport appends a late restaurant report.
	SimulateReport(ctx context.Context) (*sim.Report, error)
	// CompleteSimOrder marks a simulated order delivered. Called by the
	// worker when the scheduled completion task fires.
	CompleteSimOrder(ctx context.Context, orderID string) error

	DeliveryKPIs(ctx context.Context) ([]models.DeliveryKPI, error)
	DriverKPIs(ctx context.Context) ([]models.DriverPerformanceKPI, error)
	ItemSales(ctx context.Context) ([]models.ItemSalesKPI, error)
	CuisineKPIs(ctx context.Context) ([]models.CuisineKPI, error)
	Features(ctx context.Context) ([]models.DeliveryFeature, error)
}
