// Package seed fills the raw store's historical prefix with synthetic demo
// data: a week of orders, restaurant reports, menu dumps, a driver roster
// and hourly weather observations. A fixed rng seed reproduces the exact
// same dataset.
package seed

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/storage"
	"github.com/woeat/pipeline/pkg/table"
)

// Params controls the shape of the generated dataset.
type Params struct {
	StartDate    time.Time
	Days         int
	OrdersPerDay int
	Restaurants  int
	Drivers      int
	Customers    int
	ItemsPerMenu int
	Seed         int64
}

// DefaultParams mirrors the demo dataset the dashboards expect.
func DefaultParams() Params {
	return Params{
		StartDate:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Days:         7,
		OrdersPerDay: 3000,
		Restaurants:  50,
		Drivers:      200,
		Customers:    1000,
		ItemsPerMenu: 10,
		Seed:         1,
	}
}

var (
	cuisines   = []string{"Italian", "Japanese", "Mexican", "Vegan", "Burgers"}
	zones      = []string{"Z1", "Z2"}
	conditions = []string{"Sunny", "Clouds", "Rain", "Wind"}

	kitchenWords = []string{
		"Golden", "Lucky", "Urban", "Corner", "Royal", "Spice", "Harbor",
		"Garden", "Sunset", "Copper", "Willow", "Ember", "Juniper", "Summit",
	}
	dishWords = []string{
		"Harvest", "Smoky", "Crispy", "Garden", "Spicy", "Classic", "Twisted",
		"Golden", "Rustic", "Zesty", "Midnight", "Sunrise", "Double", "Island",
	}
	dishTypes = []string{"Bowl", "Pizza", "Roll", "Salad", "Burger"}

	firstNames = []string{
		"Alex", "Sam", "Jordan", "Casey", "Riley", "Morgan", "Quinn", "Avery",
		"Dana", "Jamie", "Taylor", "Reese", "Drew", "Kai", "Rowan", "Skyler",
	}
)

type restaurant struct {
	ID      string
	Name    string
	Cuisine string
	Zone    string
}

type menuItem struct {
	ItemID       string  `json:"item_id"`
	RestaurantID string  `json:"restaurant_id"`
	ItemName     string  `json:"item_name"`
	Category     string  `json:"category"`
	BasePrice    float64 `json:"base_price"`
}

type rawOrder struct {
	OrderID      string   `json:"order_id"`
	CustomerID   string   `json:"customer_id"`
	RestaurantID string   `json:"restaurant_id"`
	DriverID     *string  `json:"driver_id"`
	Items        []string `json:"items"`
	OrderTime    string   `json:"order_time"`
	DeliveryTime *string  `json:"delivery_time,omitempty"`
	Status       string   `json:"status"`
}

// Seeder writes the synthetic dataset into the raw store.
type Seeder struct {
	store  storage.Storage
	prefix string
	log    logger.Logger
	params Params
	rng    *rand.Rand
}

func New(store storage.Storage, cfg *config.PipelineConfig, log logger.Logger, params Params) *Seeder {
	prefix := "bronze/"
	if len(cfg.RawPrefixes) > 0 {
		prefix = cfg.RawPrefixes[0]
	}
	return &Seeder{
		store:  store,
		prefix: prefix,
		log:    log.Named("seed"),
		params: params,
		rng:    rand.New(rand.NewSource(params.Seed)),
	}
}

// Run generates and stores the full dataset.
func (s *Seeder) Run(ctx context.Context) error {
	restaurants := s.makeRestaurants()
	drivers := s.makeDrivers()
	menu := s.makeMenu(restaurants)

	if err := s.writeOrders(ctx, restaurants, drivers, menu); err != nil {
		return err
	}
	if err := s.writeReports(ctx, restaurants); err != nil {
		return err
	}
	if err := s.writeMenuDumps(ctx, restaurants, menu); err != nil {
		return err
	}
	if err := s.writeDriverRoster(ctx, drivers); err != nil {
		return err
	}
	if err := s.writeWeather(ctx); err != nil {
		return err
	}

	s.log.Info("raw dataset seeded",
		logger.Int("days", s.params.Days),
		logger.Int("orders_per_day", s.params.OrdersPerDay),
		logger.Int("restaurants", len(restaurants)),
		logger.Int("drivers", len(drivers)),
		logger.Int("menu_items", len(menu)),
	)
	return nil
}

func (s *Seeder) makeRestaurants() []restaurant {
	restaurants := make([]restaurant, s.params.Restaurants)
	for i := range restaurants {
		restaurants[i] = restaurant{
			ID:      fmt.Sprintf("R%d", 300+i),
			Name:    kitchenWords[s.rng.Intn(len(kitchenWords))] + " Kitchen",
			Cuisine: cuisines[s.rng.Intn(len(cuisines))],
			Zone:    zones[s.rng.Intn(len(zones))],
		}
	}
	return restaurants
}

type driver struct {
	ID     string
	Name   string
	Rating float64
	Zone   string
}

func (s *Seeder) makeDrivers() []driver {
	drivers := make([]driver, s.params.Drivers)
	for i := range drivers {
		drivers[i] = driver{
			ID:     fmt.Sprintf("D%d", 200+i),
			Name:   firstNames[s.rng.Intn(len(firstNames))],
			Rating: float64(s.rng.Intn(91)+400) / 100,
			Zone:   zones[s.rng.Intn(len(zones))],
		}
	}
	return drivers
}

func (s *Seeder) makeMenu(restaurants []restaurant) []menuItem {
	var menu []menuItem
	for _, r := range restaurants {
		for i := 0; i < s.params.ItemsPerMenu; i++ {
			menu = append(menu, menuItem{
				ItemID:       fmt.Sprintf("M%d", 400+len(menu)),
				RestaurantID: r.ID,
				ItemName:     dishWords[s.rng.Intn(len(dishWords))] + " " + dishTypes[s.rng.Intn(len(dishTypes))],
				Category:     r.Cuisine,
				BasePrice:    float64(s.rng.Intn(1501)+500) / 100,
			})
		}
	}
	return menu
}

func (s *Seeder) writeOrders(ctx context.Context, restaurants []restaurant, drivers []driver, menu []menuItem) error {
	byRestaurant := make(map[string][]string, len(restaurants))
	for _, m := range menu {
		byRestaurant[m.RestaurantID] = append(byRestaurant[m.RestaurantID], m.ItemID)
	}

	seq := 1000
	for d := 0; d < s.params.Days; d++ {
		day := s.params.StartDate.AddDate(0, 0, d)
		for n := 0; n < s.params.OrdersPerDay; n++ {
			r := restaurants[s.rng.Intn(len(restaurants))]
			items := s.pickItems(byRestaurant[r.ID])
			orderTime := day.Add(time.Duration(s.rng.Intn(86400)) * time.Second)

			order := rawOrder{
				OrderID:      fmt.Sprintf("O-%d", seq),
				CustomerID:   fmt.Sprintf("C%d", 100+s.rng.Intn(s.params.Customers)),
				RestaurantID: r.ID,
				Items:        items,
				OrderTime:    orderTime.Format(table.TimeLayout),
				Status:       "PLACED",
			}
			seq++

			// 90% of orders reach delivery, 20 to 70 minutes after placement.
			if s.rng.Float64() < 0.9 {
				drv := drivers[s.rng.Intn(len(drivers))]
				delivered := orderTime.Add(time.Duration(s.rng.Intn(51)+20) * time.Minute).Format(table.TimeLayout)
				order.DriverID = &drv.ID
				order.DeliveryTime = &delivered
				order.Status = "DELIVERED"
			}

			key := fmt.Sprintf("%sorders_stream/%s/%s.json",
				s.prefix, day.Format(table.DateLayout), order.OrderID)
			if err := s.storeJSON(ctx, key, order); err != nil {
				return err
			}
		}
	}
	return nil
}

// pickItems samples one or two distinct items from a restaurant's menu.
func (s *Seeder) pickItems(menu []string) []string {
	count := s.rng.Intn(2) + 1
	if count > len(menu) {
		count = len(menu)
	}
	picked := make([]string, 0, count)
	for _, i := range s.rng.Perm(len(menu))[:count] {
		picked = append(picked, menu[i])
	}
	return picked
}

func (s *Seeder) writeReports(ctx context.Context, restaurants []restaurant) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{
		"report_date", "restaurant_id", "cuisine", "avg_prep_time",
		"avg_rating", "orders_count", "cancel_rate", "avg_tip",
	}); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for d := 0; d < s.params.Days; d++ {
		date := s.params.StartDate.AddDate(0, 0, d).Format(table.DateLayout)
		for _, r := range restaurants {
			row := []string{
				date,
				r.ID,
				r.Cuisine,
				strconv.Itoa(s.rng.Intn(16) + 15),
				strconv.FormatFloat(float64(s.rng.Intn(14)+35)/10, 'f', 1, 64),
				strconv.Itoa(s.rng.Intn(251) + 50),
				strconv.FormatFloat(float64(s.rng.Intn(16))/100, 'f', 2, 64),
				strconv.FormatFloat(float64(s.rng.Intn(301))/100, 'f', 2, 64),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("failed to write report row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush reports: %w", err)
	}

	key := s.prefix + "restaurant_reports/restaurant_perf.csv"
	if _, err := s.store.Store(ctx, &buf, key); err != nil {
		return fmt.Errorf("failed to store reports: %w", err)
	}
	return nil
}

func (s *Seeder) writeMenuDumps(ctx context.Context, restaurants []restaurant, menu []menuItem) error {
	for _, r := range restaurants {
		var dump []menuItem
		for _, m := range menu {
			if m.RestaurantID == r.ID {
				dump = append(dump, m)
			}
		}
		key := fmt.Sprintf("%smenu_items/menu_%s.json", s.prefix, r.ID)
		if err := s.storeJSON(ctx, key, dump); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) writeDriverRoster(ctx context.Context, drivers []driver) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"driver_id", "name", "rating", "zone"}); err != nil {
		return fmt.Errorf("failed to write roster header: %w", err)
	}
	for _, d := range drivers {
		row := []string{d.ID, d.Name, strconv.FormatFloat(d.Rating, 'f', 2, 64), d.Zone}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write roster row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush roster: %w", err)
	}

	key := fmt.Sprintf("%sdrivers/drivers_%s.csv",
		s.prefix, s.params.StartDate.Format(table.DateLayout))
	if _, err := s.store.Store(ctx, &buf, key); err != nil {
		return fmt.Errorf("failed to store roster: %w", err)
	}
	return nil
}

func (s *Seeder) writeWeather(ctx context.Context) error {
	type observation struct {
		WeatherTime string  `json:"weather_time"`
		Temperature float64 `json:"temperature"`
		Condition   string  `json:"condition"`
	}

	for d := 0; d < s.params.Days; d++ {
		day := s.params.StartDate.AddDate(0, 0, d)
		for hour := 0; hour < 24; hour++ {
			for _, zone := range zones {
				obs := observation{
					WeatherTime: day.Add(time.Duration(hour) * time.Hour).Format(table.TimeLayout),
					Temperature: float64(s.rng.Intn(171)+150) / 10,
					Condition:   conditions[s.rng.Intn(len(conditions))],
				}
				key := fmt.Sprintf("%sweather_api/weather_%s_%s_%02d.json",
					s.prefix, zone, day.Format("20060102"), hour)
				if err := s.storeJSON(ctx, key, obs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Seeder) storeJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if _, err := s.store.Store(ctx, bytes.NewReader(data), key); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}
