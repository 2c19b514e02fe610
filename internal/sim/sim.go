// Package sim emulates the live side of the demo: freshly placed orders and
// late restaurant reports landing in the raw store while the pipeline is
// running. Simulated records go under the live prefix so a reseed of the
// historical prefix never clobbers them.
package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/storage"
	"github.com/woeat/pipeline/pkg/table"
)

const (
	ordersDir     = "orders_stream"
	reportsDir    = "restaurant_reports"
	lateReportKey = "late_perf.csv"
)

// The simulator only references entities the seeded data is guaranteed to
// contain, so simulated records always join.
var (
	simRestaurants = []string{"R300", "R301", "R302", "R303", "R304"}
	simDrivers     = []string{"D200", "D201", "D202", "D203"}
	simCuisines    = []string{"Italian", "Japanese", "Mexican", "Vegan", "Burgers"}
)

// Order is the raw record written for a simulated order.
type Order struct {
	OrderID      string   `json:"order_id"`
	CustomerID   string   `json:"customer_id"`
	RestaurantID string   `json:"restaurant_id"`
	DriverID     string   `json:"driver_id"`
	Items        []string `json:"items"`
	OrderTime    string   `json:"order_time"`
	DeliveryTime *string  `json:"delivery_time"`
	Status       string   `json:"status"`
	TotalAmount  float64  `json:"total_amount"`
}

// Report is one late restaurant report row appended by the simulator.
type Report struct {
	ReportDate   string  `json:"report_date"`
	RestaurantID string  `json:"restaurant_id"`
	Cuisine      string  `json:"cuisine"`
	AvgPrepTime  int     `json:"avg_prep_time"`
	AvgRating    float64 `json:"avg_rating"`
	OrdersCount  int     `json:"orders_count"`
	CancelRate   float64 `json:"cancel_rate"`
	AvgTip       float64 `json:"avg_tip"`
}

// Simulator writes simulated raw records under the live prefix.
type Simulator struct {
	store  storage.Storage
	prefix string
	log    logger.Logger

	rng *rand.Rand
	now func() time.Time
}

func New(store storage.Storage, cfg *config.PipelineConfig, log logger.Logger) *Simulator {
	prefix := "bronze_live/"
	if len(cfg.RawPrefixes) > 1 {
		prefix = cfg.RawPrefixes[len(cfg.RawPrefixes)-1]
	}
	return &Simulator{
		store:  store,
		prefix: prefix,
		log:    log.Named("sim"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder writes a new order in PLACED state and returns it. The caller
// schedules the later DELIVERED update.
func (s *Simulator) PlaceOrder(ctx context.Context) (*Order, error) {
	now := s.now()
	order := &Order{
		OrderID:      fmt.Sprintf("O-SIM-%d", now.UnixNano()),
		CustomerID:   "CSIM",
		RestaurantID: simRestaurants[s.rng.Intn(len(simRestaurants))],
		DriverID:     simDrivers[s.rng.Intn(len(simDrivers))],
		Items:        []string{fmt.Sprintf("M%d", 400+s.rng.Intn(101))},
		OrderTime:    now.Format(table.TimeLayout),
		Status:       "PLACED",
		TotalAmount:  float64(s.rng.Intn(4001)+1000) / 100,
	}

	if err := s.writeOrder(ctx, order); err != nil {
		return nil, err
	}
	s.log.Info("simulated order placed",
		logger.String("order_id", order.OrderID),
		logger.String("restaurant_id", order.RestaurantID),
	)
	return order, nil
}

// CompleteOrder rewrites a previously placed order as DELIVERED with a
// delivery time a short random span after now.
func (s *Simulator) CompleteOrder(ctx context.Context, orderID string) error {
	key, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}

	reader, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read order %s: %w", orderID, err)
	}
	defer reader.Close()

	var order Order
	if err := json.NewDecoder(reader).Decode(&order); err != nil {
		return fmt.Errorf("failed to decode order %s: %w", orderID, err)
	}

	delivered := s.now().Add(time.Duration(s.rng.Intn(26)+5) * time.Minute).Format(table.TimeLayout)
	order.DeliveryTime = &delivered
	order.Status = "DELIVERED"

	if err := s.writeOrder(ctx, &order); err != nil {
		return err
	}
	s.log.Info("simulated order delivered", logger.String("order_id", orderID))
	return nil
}

// AppendLateReport appends one back-dated report row to the live report file
// and returns it. The row lands two days behind today, like a restaurant
// submitting figures late.
func (s *Simulator) AppendLateReport(ctx context.Context) (*Report, error) {
	report := &Report{
		ReportDate:   s.now().AddDate(0, 0, -2).Format(table.DateLayout),
		RestaurantID: simRestaurants[s.rng.Intn(len(simRestaurants))],
		Cuisine:      simCuisines[s.rng.Intn(len(simCuisines))],
		AvgPrepTime:  s.rng.Intn(13) + 28,
		AvgRating:    float64(s.rng.Intn(14)+25) / 10,
		OrdersCount:  s.rng.Intn(71) + 50,
		CancelRate:   float64(s.rng.Intn(16)+10) / 100,
		AvgTip:       float64(s.rng.Intn(201)) / 100,
	}

	key := s.prefix + reportsDir + "/" + lateReportKey
	existing, err := s.readExisting(ctx, key)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if len(existing) == 0 {
		buf.WriteString("report_date,restaurant_id,cuisine,avg_prep_time,avg_rating,orders_count,cancel_rate,avg_tip\n")
	} else {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	fmt.Fprintf(&buf, "%s,%s,%s,%d,%.1f,%d,%.2f,%.2f\n",
		report.ReportDate, report.RestaurantID, report.Cuisine,
		report.AvgPrepTime, report.AvgRating, report.OrdersCount,
		report.CancelRate, report.AvgTip)

	if _, err := s.store.Store(ctx, &buf, key); err != nil {
		return nil, fmt.Errorf("failed to write late report: %w", err)
	}
	s.log.Info("simulated late report appended",
		logger.String("restaurant_id", report.RestaurantID),
		logger.String("report_date", report.ReportDate),
	)
	return report, nil
}

func (s *Simulator) writeOrder(ctx context.Context, order *Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order %s: %w", order.OrderID, err)
	}

	day := order.OrderTime[:len(table.DateLayout)]
	key := fmt.Sprintf("%s%s/%s/%s.json", s.prefix, ordersDir, day, order.OrderID)
	if _, err := s.store.Store(ctx, bytes.NewReader(data), key); err != nil {
		return fmt.Errorf("failed to store order %s: %w", order.OrderID, err)
	}
	return nil
}

// findOrder locates a simulated order's key. Placement and completion can
// straddle midnight, so the day folder is not derivable from the id alone.
func (s *Simulator) findOrder(ctx context.Context, orderID string) (string, error) {
	objects, err := s.store.List(ctx, s.prefix+ordersDir+"/")
	if err != nil {
		return "", fmt.Errorf("failed to list simulated orders: %w", err)
	}
	suffix := "/" + orderID + ".json"
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, suffix) {
			return obj.Key, nil
		}
	}
	return "", fmt.Errorf("simulated order %s not found", orderID)
}

func (s *Simulator) readExisting(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.store.Get(ctx, key)
	if err != nil {
		// First report of the session creates the file.
		return nil, nil
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}
