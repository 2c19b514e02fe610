package pipeline

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/metrics"
	"github.com/woeat/pipeline/pkg/queue"
	"github.com/woeat/pipeline/pkg/storage/local"
)

// fakeQueue keeps runs and completion tasks in memory.
type fakeQueue struct {
	runs        map[string]*models.PipelineRun
	enqueued    []string
	completions []string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{runs: make(map[string]*models.PipelineRun)}
}

func (q *fakeQueue) EnqueueRun(ctx context.Context, run *models.PipelineRun) error {
	if err := q.SaveRun(ctx, run); err != nil {
		return err
	}
	q.enqueued = append(q.enqueued, run.ID)
	return nil
}

func (q *fakeQueue) EnqueueSimCompletion(ctx context.Context, orderID string, delay time.Duration) error {
	q.completions = append(q.completions, orderID)
	return nil
}

func (q *fakeQueue) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	run, ok := q.runs[runID]
	if !ok {
		return nil, queue.ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

func (q *fakeQueue) SaveRun(ctx context.Context, run *models.PipelineRun) error {
	copied := *run
	q.runs[run.ID] = &copied
	return nil
}

func (q *fakeQueue) Close() error { return nil }

func testService(t *testing.T) (Service, *fakeQueue, *config.PipelineConfig, *local.LocalStorage) {
	t.Helper()
	out := t.TempDir()
	cfg := &config.PipelineConfig{
		StorageType:      "local",
		RawPrefixes:      []string{"bronze/", "bronze_live/"},
		SilverDir:        filepath.Join(out, "silver"),
		GoldDir:          filepath.Join(out, "gold"),
		KPIDir:           filepath.Join(out, "kpi"),
		SLAMinutes:       45,
		SimCompleteDelay: time.Millisecond,
	}
	store, err := local.NewLocalStorage(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	q := newFakeQueue()
	svc := NewService(store, q, metrics.NewRegistry(), cfg, logger.NewTestLogger())
	return svc, q, cfg, store
}

func seedMinimal(t *testing.T, store *local.LocalStorage) {
	t.Helper()
	ctx := context.Background()
	put := func(key, body string) {
		t.Helper()
		_, err := store.Store(ctx, bytes.NewReader([]byte(body)), key)
		require.NoError(t, err)
	}
	put("bronze/restaurant_reports/perf.csv",
		"report_date,restaurant_id,cuisine,avg_prep_time,avg_rating,orders_count,cancel_rate,avg_tip\n"+
			"2024-04-01,R300,Vegan,20,4.2,120,0.05,1.50\n")
	put("bronze/menu_items/menu_R300.json",
		`[{"item_id":"M400","restaurant_id":"R300","item_name":"Harvest Bowl","category":"Vegan","base_price":10}]`)
	put("bronze/drivers/drivers.csv", "driver_id,name,rating,zone\nD200,Avery,4.50,Z1\n")
	put("bronze/orders_stream/2024-04-01/O-1.json",
		`{"order_id":"O-1","customer_id":"C100","restaurant_id":"R300","driver_id":"D200",
		  "items":["M400"],"order_time":"2024-04-01T10:00:00Z",
		  "delivery_time":"2024-04-01T10:40:00Z","status":"DELIVERED"}`)
	put("bronze/weather_api/weather_Z1_20240401_10.json",
		`{"weather_time":"2024-04-01T10:00:00Z","temperature":18.5,"condition":"Rain"}`)
}

func TestTriggerAndExecuteRun(t *testing.T) {
	svc, q, _, store := testService(t)
	seedMinimal(t, store)
	ctx := context.Background()

	run, err := svc.TriggerRun(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	require.Equal(t, models.RunPending, run.Status)
	require.Equal(t, []string{run.ID}, q.enqueued)

	require.NoError(t, svc.ExecuteRun(ctx, run.ID))

	done, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, models.RunCompleted, done.Status)
	require.NotNil(t, done.Report)
	require.Equal(t, 1, done.Report.RowCounts["fact_orders"])

	kpis, err := svc.DeliveryKPIs(ctx)
	require.NoError(t, err)
	require.Len(t, kpis, 1)
	require.Equal(t, "Z1", kpis[0].Zone)

	features, err := svc.Features(ctx)
	require.NoError(t, err)
	require.Len(t, features, 1)
	require.Equal(t, "Rain", *features[0].WeatherCondition)
}

func TestGetRunUnknownID(t *testing.T) {
	svc, _, _, _ := testService(t)
	_, err := svc.GetRun(context.Background(), "nope")
	require.ErrorIs(t, err, queue.ErrRunNotFound)
}

func TestExecuteRunRecordsFailure(t *testing.T) {
	svc, _, _, store := testService(t)
	ctx := context.Background()

	// A report file without the cuisine column is a fatal contract
	// violation for the run.
	_, err := store.Store(ctx, bytes.NewReader([]byte(
		"report_date,restaurant_id,avg_prep_time,avg_rating,orders_count,cancel_rate,avg_tip\n"+
			"2024-04-01,R300,20,4.2,120,0.05,1.50\n")),
		"bronze/restaurant_reports/perf.csv")
	require.NoError(t, err)

	run, err := svc.TriggerRun(ctx)
	require.NoError(t, err)
	require.Error(t, svc.ExecuteRun(ctx, run.ID))

	failed, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, models.RunFailed, failed.Status)
	require.NotEmpty(t, failed.Error)
}

func TestSimulationFlow(t *testing.T) {
	svc, q, _, store := testService(t)
	ctx := context.Background()

	order, err := svc.SimulateOrder(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{order.OrderID}, q.completions)
	// Placing an order schedules a rebuild.
	require.Len(t, q.enqueued, 1)

	require.NoError(t, svc.CompleteSimOrder(ctx, order.OrderID))
	require.Len(t, q.enqueued, 2)

	report, err := svc.SimulateReport(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, report.RestaurantID)
	require.Len(t, q.enqueued, 3)

	objects, err := store.List(ctx, "bronze_live/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
}
