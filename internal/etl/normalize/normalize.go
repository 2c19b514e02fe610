// Package normalize implements the raw-to-cleaned stage: heterogeneous raw
// records from the store become five uniformly typed cleaned tables, each
// stamped with an ingestion timestamp.
package normalize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/storage"
)

// MalformedRecordError reports a raw record that could not contribute to a
// cleaned table: a required field is missing or a value does not parse.
// The record is skipped; the run only fails when every record of an entity
// is malformed.
type MalformedRecordError struct {
	Source string
	Key    string
	Field  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s record %s: field %q: %v", e.Source, e.Key, e.Field, e.Err)
	}
	return fmt.Sprintf("%s record %s: field %q is missing", e.Source, e.Key, e.Field)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Normalizer reads raw records from the store and builds the cleaned tables.
type Normalizer struct {
	store    storage.Storage
	prefixes []string
	logger   logger.Logger

	// now stamps reference-data ingestion; overridable in tests.
	now func() time.Time
}

func New(store storage.Storage, cfg *config.PipelineConfig, log logger.Logger) *Normalizer {
	return &Normalizer{
		store:    store,
		prefixes: cfg.RawPrefixes,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run builds all five cleaned tables. The per-entity loaders are independent
// and run concurrently. The returned map counts malformed records skipped
// per source entity.
func (n *Normalizer) Run(ctx context.Context) (*models.CleanedTables, map[string]int, error) {
	cleaned := &models.CleanedTables{}
	var mu sync.Mutex
	rejected := make(map[string]int)
	record := func(source string, count int) {
		if count == 0 {
			return
		}
		mu.Lock()
		rejected[source] = count
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, skipped, err := n.LoadOrders(gctx)
		if err != nil {
			return err
		}
		cleaned.Orders = orders
		record("orders", skipped)
		return nil
	})
	g.Go(func() error {
		reports, skipped, err := n.LoadRestaurantReports(gctx)
		if err != nil {
			return err
		}
		cleaned.Reports = reports
		record("restaurant_reports", skipped)
		return nil
	})
	g.Go(func() error {
		menu, skipped, err := n.LoadMenuItems(gctx)
		if err != nil {
			return err
		}
		cleaned.Menu = menu
		record("menu_items", skipped)
		return nil
	})
	g.Go(func() error {
		drivers, skipped, err := n.LoadDrivers(gctx)
		if err != nil {
			return err
		}
		cleaned.Drivers = drivers
		record("drivers", skipped)
		return nil
	})
	g.Go(func() error {
		weather, skipped, err := n.LoadWeather(gctx)
		if err != nil {
			return err
		}
		cleaned.Weather = weather
		record("weather", skipped)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cleaned, rejected, nil
}

// listSorted enumerates objects under dir within every configured raw
// prefix, sorted by key so first-seen ordering is reproducible on
// unchanged input.
func (n *Normalizer) listSorted(ctx context.Context, dir string) ([]storage.Object, error) {
	var objects []storage.Object
	for _, prefix := range n.prefixes {
		objs, err := n.store.List(ctx, prefix+dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s%s: %w", prefix, dir, err)
		}
		objects = append(objects, objs...)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func hasSuffixFold(key, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(key), suffix)
}
