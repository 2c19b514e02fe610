package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/internal/etl"
	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/internal/sim"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/metrics"
	"github.com/woeat/pipeline/pkg/queue"
	"github.com/woeat/pipeline/pkg/storage"
	"github.com/woeat/pipeline/pkg/table"
)

type PipelineService struct {
	pipeline  *etl.Pipeline
	queue     queue.Queue
	simulator *sim.Simulator
	metrics   *metrics.Registry
	cfg       *config.PipelineConfig
	logger    logger.Logger

	// runMu serializes rebuilds within this process. Runs recompute every
	// published table, so overlapping them buys nothing.
	runMu sync.Mutex
}

func NewService(
	store storage.Storage,
	q queue.Queue,
	reg *metrics.Registry,
	cfg *config.PipelineConfig,
	log logger.Logger,
) Service {
	return &PipelineService{
		pipeline:  etl.NewPipeline(store, cfg, log),
		queue:     q,
		simulator: sim.New(store, cfg, log),
		metrics:   reg,
		cfg:       cfg,
		logger:    log.Named("service"),
	}
}

// GetService wires a service from the process configuration. The caller owns
// the metrics registry so it can also mount the scrape handler.
func GetService(log logger.Logger, reg *metrics.Registry) (Service, error) {
	cfg := config.GetPipelineConfig()

	store, err := storage.NewStorage(storage.StorageType(cfg.StorageType), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	return NewService(store, q, reg, cfg, log), nil
}

func (s *PipelineService) TriggerRun(ctx context.Context) (*models.PipelineRun, error) {
	run := &models.PipelineRun{
		ID:        uuid.New().String(),
		Status:    models.RunPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.queue.EnqueueRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to enqueue run: %w", err)
	}
	s.logger.Info("pipeline run enqueued", logger.String("run_id", run.ID))
	return run, nil
}

func (s *PipelineService) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	return s.queue.GetRun(ctx, runID)
}

func (s *PipelineService) ExecuteRun(ctx context.Context, runID string) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	run, err := s.queue.GetRun(ctx, runID)
	if err != nil {
		// The run key may have expired; execute anyway and rebuild state.
		run = &models.PipelineRun{ID: runID, CreatedAt: time.Now().UTC()}
	}
	run.Status = models.RunRunning
	run.Error = ""
	if err := s.queue.SaveRun(ctx, run); err != nil {
		s.logger.Warn("failed to save running state", logger.String("run_id", runID), logger.Error(err))
	}

	report, err := s.pipeline.Run(ctx)
	s.metrics.RunsTotal.Inc()
	if err != nil {
		s.metrics.RunFailures.Inc()
		run.Status = models.RunFailed
		run.Error = err.Error()
		if saveErr := s.queue.SaveRun(ctx, run); saveErr != nil {
			s.logger.Error("failed to save failed run", logger.String("run_id", runID), logger.Error(saveErr))
		}
		return err
	}

	s.metrics.RunDurationSec.Observe(float64(report.DurationMS) / 1000)
	for name, rows := range report.RowCounts {
		s.metrics.TableRows.WithLabelValues(name).Set(float64(rows))
	}
	for source, count := range report.Rejected {
		s.metrics.RejectedTotal.WithLabelValues(source).Add(float64(count))
	}
	s.metrics.UnzonedOrders.Set(float64(report.UnzonedOrders))

	run.Status = models.RunCompleted
	run.Report = report
	if err := s.queue.SaveRun(ctx, run); err != nil {
		s.logger.Error("failed to save completed run", logger.String("run_id", runID), logger.Error(err))
	}
	return nil
}

// SimulateOrder places a live order, schedules its delivery update and kicks
// off a rebuild so the dashboards pick it up.
func (s *PipelineService) SimulateOrder(ctx context.Context) (*sim.Order, error) {
	order, err := s.simulator.PlaceOrder(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.SimOrders.Inc()

	if err := s.queue.EnqueueSimCompletion(ctx, order.OrderID, s.cfg.SimCompleteDelay); err != nil {
		return nil, err
	}
	if _, err := s.TriggerRun(ctx); err != nil {
		s.logger.Warn("failed to trigger rebuild after simulated order", logger.Error(err))
	}
	return order, nil
}

func (s *PipelineService) SimulateReport(ctx context.Context) (*sim.Report, error) {
	report, err := s.simulator.AppendLateReport(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.SimReports.Inc()

	if _, err := s.TriggerRun(ctx); err != nil {
		s.logger.Warn("failed to trigger rebuild after late report", logger.Error(err))
	}
	return report, nil
}

func (s *PipelineService) CompleteSimOrder(ctx context.Context, orderID string) error {
	if err := s.simulator.CompleteOrder(ctx, orderID); err != nil {
		return err
	}
	if _, err := s.TriggerRun(ctx); err != nil {
		s.logger.Warn("failed to trigger rebuild after delivery", logger.Error(err))
	}
	return nil
}

func (s *PipelineService) DeliveryKPIs(ctx context.Context) ([]models.DeliveryKPI, error) {
	t, err := s.readTable(s.cfg.KPIDir, etl.TableDeliveryKPI)
	if err != nil {
		return nil, err
	}
	return etl.DecodeDeliveryKPIs(t)
}

func (s *PipelineService) DriverKPIs(ctx context.Context) ([]models.DriverPerformanceKPI, error) {
	t, err := s.readTable(s.cfg.KPIDir, etl.TableDriverKPI)
	if err != nil {
		return nil, err
	}
	return etl.DecodeDriverKPIs(t)
}

func (s *PipelineService) ItemSales(ctx context.Context) ([]models.ItemSalesKPI, error) {
	t, err := s.readTable(s.cfg.KPIDir, etl.TableItemSalesKPI)
	if err != nil {
		return nil, err
	}
	return etl.DecodeItemSales(t)
}

func (s *PipelineService) CuisineKPIs(ctx context.Context) ([]models.CuisineKPI, error) {
	t, err := s.readTable(s.cfg.KPIDir, etl.TableCuisineKPI)
	if err != nil {
		return nil, err
	}
	return etl.DecodeCuisineKPIs(t)
}

func (s *PipelineService) Features(ctx context.Context) ([]models.DeliveryFeature, error) {
	t, err := s.readTable(s.cfg.GoldDir, etl.TableFeatures)
	if err != nil {
		return nil, err
	}
	return etl.DecodeFeatures(t)
}

func (s *PipelineService) readTable(dir, name string) (*table.Table, error) {
	t, err := table.ReadFile(filepath.Join(dir, name+".csv"))
	if err != nil {
		return nil, fmt.Errorf("table %s not published yet: %w", name, err)
	}
	return t, nil
}
