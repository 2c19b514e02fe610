package etl

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/storage/local"
	"github.com/woeat/pipeline/pkg/table"
)

func testConfig(t *testing.T) (*config.PipelineConfig, *local.LocalStorage) {
	t.Helper()
	root := t.TempDir()
	out := t.TempDir()

	store, err := local.NewLocalStorage(root, logger.NewTestLogger())
	require.NoError(t, err)

	return &config.PipelineConfig{
		StorageType: "local",
		RawRoot:     root,
		RawPrefixes: []string{"bronze/", "bronze_live/"},
		SilverDir:   filepath.Join(out, "silver"),
		GoldDir:     filepath.Join(out, "gold"),
		KPIDir:      filepath.Join(out, "kpi"),
		SLAMinutes:  45,
	}, store
}

// seedScenario writes a small raw dataset: two restaurants with three menu
// items each, three drivers, ten orders across two days and hourly weather.
func seedScenario(t *testing.T, store *local.LocalStorage) {
	t.Helper()
	ctx := context.Background()

	put := func(key, body string) {
		t.Helper()
		_, err := store.Store(ctx, bytes.NewReader([]byte(body)), key)
		require.NoError(t, err)
	}

	put("bronze/restaurant_reports/perf.csv",
		"report_date,restaurant_id,cuisine,avg_prep_time,avg_rating,orders_count,cancel_rate,avg_tip\n"+
			"2024-04-01,R300,Vegan,20,4.2,120,0.05,1.50\n"+
			"2024-04-01,R301,Burgers,25,4.0,90,0.08,1.10\n")

	put("bronze/menu_items/menu_R300.json",
		`[{"item_id":"M400","restaurant_id":"R300","item_name":"Harvest Bowl","category":"Vegan","base_price":10},
		  {"item_id":"M401","restaurant_id":"R300","item_name":"Garden Roll","category":"Vegan","base_price":6},
		  {"item_id":"M402","restaurant_id":"R300","item_name":"Green Salad","category":"Vegan","base_price":8}]`)
	put("bronze/menu_items/menu_R301.json",
		`[{"item_id":"M403","restaurant_id":"R301","item_name":"Classic Burger","category":"Burgers","base_price":12},
		  {"item_id":"M404","restaurant_id":"R301","item_name":"Double Burger","category":"Burgers","base_price":15},
		  {"item_id":"M405","restaurant_id":"R301","item_name":"Crispy Fries","category":"Burgers","base_price":4}]`)

	put("bronze/drivers/drivers_2024-04-01.csv",
		"driver_id,name,rating,zone\n"+
			"D200,Avery,4.50,Z1\n"+
			"D201,Sam,4.20,Z2\n"+
			"D202,Kai,4.80,Z1\n")

	for day := 1; day <= 2; day++ {
		for hour := 8; hour <= 20; hour++ {
			for _, zone := range []string{"Z1", "Z2"} {
				put(fmt.Sprintf("bronze/weather_api/weather_%s_202404%02d_%02d.json", zone, day, hour),
					fmt.Sprintf(`{"weather_time":"2024-04-%02dT%02d:00:00Z","temperature":20.0,"condition":"Sunny"}`, day, hour))
			}
		}
	}

	type o struct {
		id, restaurant, driver, items string
		day, hour                     int
		deliverMin                    int // 0 means still out
	}
	orders := []o{
		{"O-1000", "R300", "D200", `["M400","M401"]`, 1, 9, 30},
		{"O-1001", "R300", "D201", `["M400"]`, 1, 10, 50},
		{"O-1002", "R301", "D202", `["M403","M405"]`, 1, 12, 40},
		{"O-1003", "R301", "D200", `["M404"]`, 1, 13, 70},
		{"O-1004", "R300", "", `["M402"]`, 1, 14, 0},
		{"O-1005", "R301", "D201", `["M403"]`, 1, 19, 45},
		{"O-1006", "R300", "D202", `["M401","M402"]`, 2, 8, 25},
		{"O-1007", "R301", "D200", `["M405"]`, 2, 11, 35},
		{"O-1008", "R300", "D201", `["M400","M400"]`, 2, 15, 60},
		{"O-1009", "R301", "", `["M404","M405"]`, 2, 18, 0},
	}
	for _, ord := range orders {
		driver := "null"
		if ord.driver != "" {
			driver = fmt.Sprintf("%q", ord.driver)
		}
		delivery := "null"
		status := "PLACED"
		placed := time.Date(2024, 4, ord.day, ord.hour, 0, 0, 0, time.UTC)
		if ord.deliverMin > 0 {
			delivery = fmt.Sprintf("%q", placed.Add(time.Duration(ord.deliverMin)*time.Minute).Format(table.TimeLayout))
			status = "DELIVERED"
		}
		body := fmt.Sprintf(`{"order_id":%q,"customer_id":"C100","restaurant_id":%q,"driver_id":%s,
			"items":%s,"order_time":%q,"delivery_time":%s,"status":%q}`,
			ord.id, ord.restaurant, driver, ord.items, placed.Format(table.TimeLayout), delivery, status)
		put(fmt.Sprintf("bronze/orders_stream/2024-04-%02d/%s.json", ord.day, ord.id), body)
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	cfg, store := testConfig(t)
	seedScenario(t, store)

	p := NewPipeline(store, cfg, logger.NewTestLogger())
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Rejected)

	require.Equal(t, 10, report.RowCounts[TableOrders])
	require.Equal(t, 2, report.RowCounts[TableReports])
	require.Equal(t, 6, report.RowCounts[TableMenuItems])
	require.Equal(t, 3, report.RowCounts[TableDrivers])
	require.Equal(t, 2, report.RowCounts[TableRestaurantDim])
	require.Equal(t, 6, report.RowCounts[TableMenuItemDim])
	require.Equal(t, 3, report.RowCounts[TableDriverDim])
	require.Equal(t, 10, report.RowCounts[TableOrderFacts])
	// 15 ordered item instances across the 10 orders; the duplicate token
	// in O-1008 stays two rows.
	require.Equal(t, 15, report.RowCounts[TableOrderItemFacts])
	require.Equal(t, 10, report.RowCounts[TableFeatures])
	// The two undriven orders stay out of the zone rollups.
	require.Equal(t, 2, report.UnzonedOrders)

	for _, name := range []string{
		TableDeliveryKPI, TableDriverKPI, TableItemSalesKPI, TableCuisineKPI,
	} {
		path := filepath.Join(cfg.KPIDir, name+".csv")
		require.FileExists(t, path)
	}

	// Two days of delivered orders over two zones: at most four zone groups
	// and exactly two item sale and cuisine groups per day present.
	kpiTable, err := table.ReadFile(filepath.Join(cfg.KPIDir, TableDeliveryKPI+".csv"))
	require.NoError(t, err)
	delivery, err := DecodeDeliveryKPIs(kpiTable)
	require.NoError(t, err)
	require.Len(t, delivery, 4)
	dates := map[string]bool{}
	for _, k := range delivery {
		dates[k.OrderDate] = true
		require.Contains(t, []string{"Z1", "Z2"}, k.Zone)
		require.NotNil(t, k.AvgDeliveryMin)
	}
	require.Len(t, dates, 2)

	cuisineTable, err := table.ReadFile(filepath.Join(cfg.KPIDir, TableCuisineKPI+".csv"))
	require.NoError(t, err)
	cuisine, err := DecodeCuisineKPIs(cuisineTable)
	require.NoError(t, err)
	require.Len(t, cuisine, 4)
	require.Equal(t, report.DurationMS, report.FinishedAt.Sub(report.StartedAt).Milliseconds())
}

// Rerunning over unchanged input must publish identical tables. The
// comparison skips the tables that embed load timestamps.
func TestPipelineRunIsIdempotent(t *testing.T) {
	cfg, store := testConfig(t)
	seedScenario(t, store)

	p := NewPipeline(store, cfg, logger.NewTestLogger())
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	stable := []string{
		filepath.Join(cfg.GoldDir, TableRestaurantDim+".csv"),
		filepath.Join(cfg.GoldDir, TableMenuItemDim+".csv"),
		filepath.Join(cfg.GoldDir, TableDriverDim+".csv"),
		filepath.Join(cfg.GoldDir, TableOrderItemFacts+".csv"),
		filepath.Join(cfg.GoldDir, TableFeatures+".csv"),
		filepath.Join(cfg.KPIDir, TableDeliveryKPI+".csv"),
		filepath.Join(cfg.KPIDir, TableDriverKPI+".csv"),
		filepath.Join(cfg.KPIDir, TableItemSalesKPI+".csv"),
		filepath.Join(cfg.KPIDir, TableCuisineKPI+".csv"),
	}
	first := make(map[string][]byte, len(stable))
	for _, path := range stable {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		first[path] = data
	}

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	for _, path := range stable {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, first[path], data, "table %s changed between identical runs", path)
	}
}
