package seed

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/internal/etl/normalize"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/storage/local"
)

func testParams() Params {
	return Params{
		StartDate:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Days:         2,
		OrdersPerDay: 20,
		Restaurants:  5,
		Drivers:      4,
		Customers:    10,
		ItemsPerMenu: 3,
		Seed:         7,
	}
}

func seedInto(t *testing.T, params Params) (*local.LocalStorage, *config.PipelineConfig) {
	t.Helper()
	cfg := &config.PipelineConfig{RawPrefixes: []string{"bronze/", "bronze_live/"}}
	store, err := local.NewLocalStorage(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)
	require.NoError(t, New(store, cfg, logger.NewTestLogger(), params).Run(context.Background()))
	return store, cfg
}

func TestSeederShapesDataset(t *testing.T) {
	params := testParams()
	store, _ := seedInto(t, params)
	ctx := context.Background()

	orders, err := store.List(ctx, "bronze/orders_stream/")
	require.NoError(t, err)
	require.Len(t, orders, params.Days*params.OrdersPerDay)

	menus, err := store.List(ctx, "bronze/menu_items/")
	require.NoError(t, err)
	require.Len(t, menus, params.Restaurants)

	weather, err := store.List(ctx, "bronze/weather_api/")
	require.NoError(t, err)
	require.Len(t, weather, params.Days*24*2)

	reports, err := store.List(ctx, "bronze/restaurant_reports/")
	require.NoError(t, err)
	require.Len(t, reports, 1)

	roster, err := store.List(ctx, "bronze/drivers/")
	require.NoError(t, err)
	require.Len(t, roster, 1)
}

// The seeded dataset must load cleanly through the normalizer with nothing
// rejected.
func TestSeededDataNormalizes(t *testing.T) {
	params := testParams()
	store, cfg := seedInto(t, params)

	n := normalize.New(store, cfg, logger.NewTestLogger())
	cleaned, rejected, err := n.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, rejected)

	require.Len(t, cleaned.Orders, params.Days*params.OrdersPerDay)
	require.Len(t, cleaned.Reports, params.Days*params.Restaurants)
	require.Len(t, cleaned.Menu, params.Restaurants*params.ItemsPerMenu)
	require.Len(t, cleaned.Drivers, params.Drivers)
	require.Len(t, cleaned.Weather, params.Days*24*2)

	for _, o := range cleaned.Orders {
		require.NotEmpty(t, o.ItemIDs())
		require.LessOrEqual(t, len(o.ItemIDs()), 2)
		if o.Status == "DELIVERED" {
			require.NotNil(t, o.DeliveryTime)
			minutes := o.DeliveryTime.Sub(o.OrderTime).Minutes()
			require.GreaterOrEqual(t, minutes, 20.0)
			require.LessOrEqual(t, minutes, 70.0)
		} else {
			require.Empty(t, o.DriverID)
		}
	}
}

// The same rng seed must reproduce byte-identical raw records.
func TestSeederIsDeterministic(t *testing.T) {
	params := testParams()
	first, _ := seedInto(t, params)
	second, _ := seedInto(t, params)
	ctx := context.Background()

	objects, err := first.List(ctx, "bronze/")
	require.NoError(t, err)
	require.NotEmpty(t, objects)

	for _, obj := range objects {
		a, err := first.Get(ctx, obj.Key)
		require.NoError(t, err)
		b, err := second.Get(ctx, obj.Key)
		require.NoError(t, err, "object %s missing from second dataset", obj.Key)

		dataA, err := io.ReadAll(a)
		require.NoError(t, err)
		dataB, err := io.ReadAll(b)
		require.NoError(t, err)
		a.Close()
		b.Close()
		require.Equal(t, dataA, dataB, "object %s differs", obj.Key)
	}
}
