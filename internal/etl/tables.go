package etl

import (
	"fmt"
	"strconv"

	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/pkg/table"
)

// Published table names. The grouping keys of each rollup are its leading
// columns, which downstream dashboard consumers rely on.
const (
	TableOrders         = "silver_orders"
	TableReports        = "silver_restaurant_performance"
	TableMenuItems      = "silver_menu_items"
	TableDrivers        = "silver_drivers"
	TableWeather        = "silver_weather"
	TableRestaurantDim  = "dim_restaurants"
	TableMenuItemDim    = "dim_menu_items"
	TableDriverDim      = "dim_drivers"
	TableOrderFacts     = "fact_orders"
	TableOrderItemFacts = "fact_order_items"
	TableFeatures       = "ml_delivery_features"
	TableDeliveryKPI    = "kpi_delivery_daily"
	TableDriverKPI      = "kpi_driver_performance_daily"
	TableItemSalesKPI   = "kpi_menu_item_sales"
	TableCuisineKPI     = "kpi_cuisine_performance"
)

func f(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
func i(v int) string     { return strconv.Itoa(v) }
func bl(v bool) string   { return strconv.FormatBool(v) }

func encodeOrders(orders []models.CleanedOrder) *table.Table {
	t := table.New(TableOrders, []string{
		"order_id", "customer_id", "restaurant_id", "driver_id", "items",
		"status", "order_time", "delivery_time", "ingest_timestamp",
	})
	for _, o := range orders {
		ingested := o.IngestedAt
		t.Append(o.OrderID, o.CustomerID, o.RestaurantID, o.DriverID, o.Items,
			o.Status, table.FormatTime(&o.OrderTime), table.FormatTime(o.DeliveryTime),
			table.FormatTime(&ingested))
	}
	return t
}

func encodeReports(reports []models.CleanedRestaurantReport) *table.Table {
	t := table.New(TableReports, []string{
		"report_date", "restaurant_id", "cuisine", "avg_prep_time",
		"avg_rating", "orders_count", "cancel_rate", "avg_tip", "ingest_timestamp",
	})
	for _, r := range reports {
		ingested := r.IngestedAt
		t.Append(r.ReportDate, r.RestaurantID, r.Cuisine, f(r.AvgPrepTime),
			f(r.AvgRating), i(r.OrdersCount), f(r.CancelRate), f(r.AvgTip),
			table.FormatTime(&ingested))
	}
	return t
}

func encodeMenuItems(items []models.CleanedMenuItem) *table.Table {
	t := table.New(TableMenuItems, []string{
		"item_id", "restaurant_id", "item_name", "category", "base_price", "ingest_timestamp",
	})
	for _, m := range items {
		ingested := m.IngestedAt
		t.Append(m.ItemID, m.RestaurantID, m.ItemName, m.Category, f(m.BasePrice),
			table.FormatTime(&ingested))
	}
	return t
}

func encodeDrivers(drivers []models.CleanedDriver) *table.Table {
	t := table.New(TableDrivers, []string{
		"driver_id", "name", "rating", "zone", "ingest_timestamp",
	})
	for _, d := range drivers {
		ingested := d.IngestedAt
		t.Append(d.DriverID, d.Name, f(d.Rating), d.Zone, table.FormatTime(&ingested))
	}
	return t
}

func encodeWeather(weather []models.CleanedWeather) *table.Table {
	t := table.New(TableWeather, []string{
		"zone", "weather_time", "temperature", "condition", "ingest_timestamp",
	})
	for _, w := range weather {
		observed, ingested := w.WeatherTime, w.IngestedAt
		t.Append(w.Zone, table.FormatTime(&observed), f(w.Temperature), w.Condition,
			table.FormatTime(&ingested))
	}
	return t
}

func encodeRestaurantDim(dims []models.RestaurantDim) *table.Table {
	t := table.New(TableRestaurantDim, []string{
		"restaurant_key", "restaurant_id", "avg_prep_time", "cuisine_type",
		"active_flag", "record_start_date", "record_end_date", "is_current",
	})
	for _, d := range dims {
		t.Append(i(d.RestaurantKey), d.RestaurantID, f(d.AvgPrepTime), d.CuisineType,
			bl(d.ActiveFlag), d.RecordStartDate, d.RecordEndDate, bl(d.IsCurrent))
	}
	return t
}

func encodeMenuItemDim(dims []models.MenuItemDim) *table.Table {
	t := table.New(TableMenuItemDim, []string{
		"menu_item_key", "item_id", "restaurant_key", "item_name", "category", "base_price",
	})
	for _, d := range dims {
		t.Append(i(d.MenuItemKey), d.ItemID, table.FormatInt(d.RestaurantKey),
			d.ItemName, d.Category, f(d.BasePrice))
	}
	return t
}

func encodeDriverDim(dims []models.DriverDim) *table.Table {
	t := table.New(TableDriverDim, []string{
		"driver_key", "driver_id", "name", "rating", "zone",
		"record_start_date", "record_end_date", "is_current",
	})
	for _, d := range dims {
		t.Append(i(d.DriverKey), d.DriverID, d.Name, f(d.Rating), d.Zone,
			d.RecordStartDate, d.RecordEndDate, bl(d.IsCurrent))
	}
	return t
}

func encodeOrderFacts(facts []models.OrderFact) *table.Table {
	t := table.New(TableOrderFacts, []string{
		"order_key", "order_id", "driver_key", "restaurant_key", "order_time",
		"delivery_time", "status", "total_amount", "delivery_minutes",
		"sla_breached", "inserted_at",
	})
	for _, o := range facts {
		orderTime, insertedAt := o.OrderTime, o.InsertedAt
		t.Append(i(o.OrderKey), o.OrderID, table.FormatInt(o.DriverKey),
			table.FormatInt(o.RestaurantKey), table.FormatTime(&orderTime),
			table.FormatTime(o.DeliveryTime), o.Status, table.FormatFloat(o.TotalAmount),
			table.FormatFloat(o.DeliveryMinutes), table.FormatBool(o.SLABreached),
			table.FormatTime(&insertedAt))
	}
	return t
}

func encodeOrderItemFacts(facts []models.OrderItemFact) *table.Table {
	t := table.New(TableOrderItemFacts, []string{
		"order_item_key", "order_key", "menu_item_key", "quantity", "extended_price",
	})
	for _, o := range facts {
		t.Append(i(o.OrderItemKey), i(o.OrderKey), table.FormatInt(o.MenuItemKey),
			i(o.Quantity), table.FormatFloat(o.ExtendedPrice))
	}
	return t
}

func encodeFeatures(features []models.DeliveryFeature) *table.Table {
	t := table.New(TableFeatures, []string{
		"order_key", "delivery_minutes", "distance_km", "driver_rating",
		"weather_condition", "time_of_day",
	})
	for _, ft := range features {
		cond := ""
		if ft.WeatherCondition != nil {
			cond = *ft.WeatherCondition
		}
		t.Append(i(ft.OrderKey), table.FormatFloat(ft.DeliveryMinutes), f(ft.DistanceKM),
			table.FormatFloat(ft.DriverRating), cond, ft.TimeOfDay)
	}
	return t
}

func encodeDeliveryKPIs(kpis []models.DeliveryKPI) *table.Table {
	t := table.New(TableDeliveryKPI, []string{
		"order_date", "zone", "orders", "avg_delivery_min", "sla_breach_pct",
	})
	for _, k := range kpis {
		t.Append(k.OrderDate, k.Zone, i(k.Orders), table.FormatFloat(k.AvgDeliveryMin),
			table.FormatFloat(k.SLABreachPct))
	}
	return t
}

func encodeDriverKPIs(kpis []models.DriverPerformanceKPI) *table.Table {
	t := table.New(TableDriverKPI, []string{
		"order_date", "zone", "total_deliveries", "avg_delivery_minutes", "sla_breach_pct",
	})
	for _, k := range kpis {
		t.Append(k.OrderDate, k.Zone, i(k.TotalDeliveries),
			table.FormatFloat(k.AvgDeliveryMinutes), table.FormatFloat(k.SLABreachPct))
	}
	return t
}

func encodeItemSales(kpis []models.ItemSalesKPI) *table.Table {
	t := table.New(TableItemSalesKPI, []string{
		"order_date", "category", "total_items_sold", "total_sales",
	})
	for _, k := range kpis {
		t.Append(k.OrderDate, k.Category, i(k.TotalItemsSold), f(k.TotalSales))
	}
	return t
}

func encodeCuisineKPIs(kpis []models.CuisineKPI) *table.Table {
	t := table.New(TableCuisineKPI, []string{
		"order_date", "cuisine_type", "orders", "avg_delivery_min", "revenue",
	})
	for _, k := range kpis {
		t.Append(k.OrderDate, k.CuisineType, i(k.Orders),
			table.FormatFloat(k.AvgDeliveryMin), f(k.Revenue))
	}
	return t
}

// DecodeDeliveryKPIs reads a published delivery KPI table back into rows,
// for API serving and export.
func DecodeDeliveryKPIs(t *table.Table) ([]models.DeliveryKPI, error) {
	if err := t.Require("order_date", "zone", "orders", "avg_delivery_min", "sla_breach_pct"); err != nil {
		return nil, err
	}
	var kpis []models.DeliveryKPI
	for n, row := range t.Rows {
		orders, err := strconv.Atoi(t.Get(row, "orders"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		avg, err := table.ParseFloat(t.Get(row, "avg_delivery_min"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		pct, err := table.ParseFloat(t.Get(row, "sla_breach_pct"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		kpis = append(kpis, models.DeliveryKPI{
			OrderDate:      t.Get(row, "order_date"),
			Zone:           t.Get(row, "zone"),
			Orders:         orders,
			AvgDeliveryMin: avg,
			SLABreachPct:   pct,
		})
	}
	return kpis, nil
}

// DecodeDriverKPIs reads a published driver performance KPI table.
func DecodeDriverKPIs(t *table.Table) ([]models.DriverPerformanceKPI, error) {
	if err := t.Require("order_date", "zone", "total_deliveries", "avg_delivery_minutes", "sla_breach_pct"); err != nil {
		return nil, err
	}
	var kpis []models.DriverPerformanceKPI
	for n, row := range t.Rows {
		deliveries, err := strconv.Atoi(t.Get(row, "total_deliveries"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		avg, err := table.ParseFloat(t.Get(row, "avg_delivery_minutes"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		pct, err := table.ParseFloat(t.Get(row, "sla_breach_pct"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		kpis = append(kpis, models.DriverPerformanceKPI{
			OrderDate:          t.Get(row, "order_date"),
			Zone:               t.Get(row, "zone"),
			TotalDeliveries:    deliveries,
			AvgDeliveryMinutes: avg,
			SLABreachPct:       pct,
		})
	}
	return kpis, nil
}

// DecodeItemSales reads a published item sales KPI table.
func DecodeItemSales(t *table.Table) ([]models.ItemSalesKPI, error) {
	if err := t.Require("order_date", "category", "total_items_sold", "total_sales"); err != nil {
		return nil, err
	}
	var kpis []models.ItemSalesKPI
	for n, row := range t.Rows {
		sold, err := strconv.Atoi(t.Get(row, "total_items_sold"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		sales, err := strconv.ParseFloat(t.Get(row, "total_sales"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		kpis = append(kpis, models.ItemSalesKPI{
			OrderDate:      t.Get(row, "order_date"),
			Category:       t.Get(row, "category"),
			TotalItemsSold: sold,
			TotalSales:     sales,
		})
	}
	return kpis, nil
}

// DecodeCuisineKPIs reads a published cuisine performance KPI table.
func DecodeCuisineKPIs(t *table.Table) ([]models.CuisineKPI, error) {
	if err := t.Require("order_date", "cuisine_type", "orders", "avg_delivery_min", "revenue"); err != nil {
		return nil, err
	}
	var kpis []models.CuisineKPI
	for n, row := range t.Rows {
		orders, err := strconv.Atoi(t.Get(row, "orders"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		avg, err := table.ParseFloat(t.Get(row, "avg_delivery_min"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		revenue, err := strconv.ParseFloat(t.Get(row, "revenue"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		kpis = append(kpis, models.CuisineKPI{
			OrderDate:      t.Get(row, "order_date"),
			CuisineType:    t.Get(row, "cuisine_type"),
			Orders:         orders,
			AvgDeliveryMin: avg,
			Revenue:        revenue,
		})
	}
	return kpis, nil
}

// DecodeFeatures reads a published feature table.
func DecodeFeatures(t *table.Table) ([]models.DeliveryFeature, error) {
	if err := t.Require("order_key", "delivery_minutes", "distance_km", "driver_rating",
		"weather_condition", "time_of_day"); err != nil {
		return nil, err
	}
	var features []models.DeliveryFeature
	for n, row := range t.Rows {
		key, err := strconv.Atoi(t.Get(row, "order_key"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		minutes, err := table.ParseFloat(t.Get(row, "delivery_minutes"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		distance, err := strconv.ParseFloat(t.Get(row, "distance_km"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		rating, err := table.ParseFloat(t.Get(row, "driver_rating"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, n+1, err)
		}
		ft := models.DeliveryFeature{
			OrderKey:        key,
			DeliveryMinutes: minutes,
			DistanceKM:      distance,
			DriverRating:    rating,
			TimeOfDay:       t.Get(row, "time_of_day"),
		}
		if cond := t.Get(row, "weather_condition"); cond != "" {
			ft.WeatherCondition = &cond
		}
		features = append(features, ft)
	}
	return features, nil
}
