// Package etl wires the three pipeline stages together: normalize
// cleans the raw landing zone, model shapes the cleaned tables into a
// star schema, aggregate derives the feature table and the KPI rollups.
// Each stage is a pure transform over in-memory values; this package owns
// all CSV publication.
package etl

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/internal/etl/aggregate"
	"github.com/woeat/pipeline/internal/etl/model"
	"github.com/woeat/pipeline/internal/etl/normalize"
	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/storage"
	"github.com/woeat/pipeline/pkg/table"
)

// Pipeline runs the full raw-to-KPI rebuild.
type Pipeline struct {
	store storage.Storage
	cfg   *config.PipelineConfig
	log   logger.Logger
}

func NewPipeline(store storage.Storage, cfg *config.PipelineConfig, log logger.Logger) *Pipeline {
	return &Pipeline{
		store: store,
		cfg:   cfg,
		log:   log.Named("pipeline"),
	}
}

// Run executes a full rebuild: every published table is recomputed from the
// raw landing zone, so running twice over the same input yields identical
// output. Partial failures never leave a half-written table behind because
// each table is published atomically.
func (p *Pipeline) Run(ctx context.Context) (*models.RunReport, error) {
	started := time.Now().UTC()
	p.log.Info("pipeline run started")

	cleaned, rejected, err := normalize.New(p.store, p.cfg, p.log).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("normalize stage: %w", err)
	}

	warehouse := model.New(p.cfg.SLAMinutes).Build(cleaned)
	aggregates := aggregate.New().Build(warehouse, cleaned.Weather)

	report := &models.RunReport{
		StartedAt:     started,
		RowCounts:     make(map[string]int),
		Rejected:      rejected,
		UnzonedOrders: aggregates.UnzonedOrders,
	}
	if err := p.publish(report, cleaned, warehouse, aggregates); err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now().UTC()
	report.DurationMS = report.FinishedAt.Sub(started).Milliseconds()
	p.log.Info("pipeline run completed",
		logger.Int64("duration_ms", report.DurationMS),
		logger.Int("orders", report.RowCounts[TableOrderFacts]),
		logger.Int("unzoned_orders", aggregates.UnzonedOrders),
	)
	return report, nil
}

func (p *Pipeline) publish(report *models.RunReport, cleaned *models.CleanedTables,
	warehouse *models.WarehouseTables, aggregates *models.AggregateTables) error {

	silver := []*table.Table{
		encodeOrders(cleaned.Orders),
		encodeReports(cleaned.Reports),
		encodeMenuItems(cleaned.Menu),
		encodeDrivers(cleaned.Drivers),
		encodeWeather(cleaned.Weather),
	}
	gold := []*table.Table{
		encodeRestaurantDim(warehouse.Restaurants),
		encodeMenuItemDim(warehouse.MenuItems),
		encodeDriverDim(warehouse.Drivers),
		encodeOrderFacts(warehouse.Orders),
		encodeOrderItemFacts(warehouse.OrderItems),
		encodeFeatures(aggregates.Features),
	}
	kpi := []*table.Table{
		encodeDeliveryKPIs(aggregates.DeliveryKPIs),
		encodeDriverKPIs(aggregates.DriverKPIs),
		encodeItemSales(aggregates.ItemSales),
		encodeCuisineKPIs(aggregates.CuisineKPIs),
	}

	layers := []struct {
		dir    string
		tables []*table.Table
	}{
		{p.cfg.SilverDir, silver},
		{p.cfg.GoldDir, gold},
		{p.cfg.KPIDir, kpi},
	}
	for _, layer := range layers {
		for _, t := range layer.tables {
			path := filepath.Join(layer.dir, t.Name+".csv")
			if err := t.WriteFile(path); err != nil {
				return fmt.Errorf("publish %s: %w", t.Name, err)
			}
			report.RowCounts[t.Name] = len(t.Rows)
			p.log.Debug("table published",
				logger.String("table", t.Name),
				logger.Int("rows", len(t.Rows)),
			)
		}
	}
	return nil
}
