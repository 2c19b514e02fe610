package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/table"
)

// Reference data (restaurant reports, menu items, driver roster) arrives as
// periodic batch drops. The ingestion timestamp is stamped with the load
// time, a coarser provenance than the per-record file time used for orders;
// that asymmetry is deliberate.

// LoadRestaurantReports builds the cleaned restaurant performance table from
// every CSV under restaurant_reports/.
func (n *Normalizer) LoadRestaurantReports(ctx context.Context) ([]models.CleanedRestaurantReport, int, error) {
	objects, err := n.listSorted(ctx, "restaurant_reports/")
	if err != nil {
		return nil, 0, err
	}

	ingested := n.now()
	var reports []models.CleanedRestaurantReport
	skipped := 0
	total := 0
	for _, obj := range objects {
		if !hasSuffixFold(obj.Key, ".csv") {
			continue
		}

		body, err := n.store.Get(ctx, obj.Key)
		if err != nil {
			return nil, 0, err
		}
		t, err := table.Read(body, obj.Key)
		body.Close()
		if err != nil {
			return nil, 0, err
		}
		if len(t.Rows) == 0 {
			continue
		}
		if err := t.Require("report_date", "restaurant_id", "cuisine", "avg_prep_time",
			"avg_rating", "orders_count", "cancel_rate", "avg_tip"); err != nil {
			return nil, 0, err
		}

		for _, row := range t.Rows {
			total++
			report, err := parseReport(t, row, obj.Key, ingested)
			if err != nil {
				skipped++
				n.logger.Warn("Skipping malformed restaurant report", logger.Error(err))
				continue
			}
			reports = append(reports, *report)
		}
	}

	if total > 0 && len(reports) == 0 {
		return nil, skipped, fmt.Errorf("all %d restaurant report rows are malformed", total)
	}
	return reports, skipped, nil
}

func parseReport(t *table.Table, row []string, key string, ingested time.Time) (*models.CleanedRestaurantReport, error) {
	report := &models.CleanedRestaurantReport{
		ReportDate:   t.Get(row, "report_date"),
		RestaurantID: t.Get(row, "restaurant_id"),
		Cuisine:      t.Get(row, "cuisine"),
		IngestedAt:   ingested,
	}
	if report.ReportDate == "" {
		return nil, &MalformedRecordError{Source: "restaurant_reports", Key: key, Field: "report_date"}
	}
	if report.RestaurantID == "" {
		return nil, &MalformedRecordError{Source: "restaurant_reports", Key: key, Field: "restaurant_id"}
	}
	if report.Cuisine == "" {
		return nil, &MalformedRecordError{Source: "restaurant_reports", Key: key, Field: "cuisine"}
	}

	var err error
	if report.AvgPrepTime, err = strconv.ParseFloat(t.Get(row, "avg_prep_time"), 64); err != nil {
		return nil, &MalformedRecordError{Source: "restaurant_reports", Key: key, Field: "avg_prep_time", Err: err}
	}
	if report.AvgRating, err = strconv.ParseFloat(t.Get(row, "avg_rating"), 64); err != nil {
		return nil, &MalformedRecordError{Source: "restaurant_reports", Key: key, Field: "avg_rating", Err: err}
	}
	if report.OrdersCount, err = strconv.Atoi(t.Get(row, "orders_count")); err != nil {
		return nil, &MalformedRecordError{Source: "restaurant_reports", Key: key, Field: "orders_count", Err: err}
	}
	if report.CancelRate, err = strconv.ParseFloat(t.Get(row, "cancel_rate"), 64); err != nil {
		return nil, &MalformedRecordError{Source: "restaurant_reports", Key: key, Field: "cancel_rate", Err: err}
	}
	if report.AvgTip, err = strconv.ParseFloat(t.Get(row, "avg_tip"), 64); err != nil {
		return nil, &MalformedRecordError{Source: "restaurant_reports", Key: key, Field: "avg_tip", Err: err}
	}
	return report, nil
}

// rawMenuItem is one element of a restaurant's menu dump JSON array.
type rawMenuItem struct {
	ItemID       string   `json:"item_id"`
	RestaurantID string   `json:"restaurant_id"`
	ItemName     string   `json:"item_name"`
	Category     string   `json:"category"`
	BasePrice    *float64 `json:"base_price"`
}

// LoadMenuItems builds the cleaned menu items table from every menu dump
// under menu_items/.
func (n *Normalizer) LoadMenuItems(ctx context.Context) ([]models.CleanedMenuItem, int, error) {
	objects, err := n.listSorted(ctx, "menu_items/")
	if err != nil {
		return nil, 0, err
	}

	ingested := n.now()
	var items []models.CleanedMenuItem
	skipped := 0
	total := 0
	for _, obj := range objects {
		if !hasSuffixFold(obj.Key, ".json") {
			continue
		}

		body, err := n.store.Get(ctx, obj.Key)
		if err != nil {
			return nil, 0, err
		}
		var raws []rawMenuItem
		err = json.NewDecoder(body).Decode(&raws)
		body.Close()
		if err != nil {
			total++
			skipped++
			n.logger.Warn("Skipping unreadable menu dump",
				logger.String("key", obj.Key), logger.Error(err))
			continue
		}

		for _, raw := range raws {
			total++
			item, err := parseMenuItem(raw, obj.Key, ingested)
			if err != nil {
				skipped++
				n.logger.Warn("Skipping malformed menu item", logger.Error(err))
				continue
			}
			items = append(items, *item)
		}
	}

	if total > 0 && len(items) == 0 {
		return nil, skipped, fmt.Errorf("all %d menu item records are malformed", total)
	}
	return items, skipped, nil
}

func parseMenuItem(raw rawMenuItem, key string, ingested time.Time) (*models.CleanedMenuItem, error) {
	switch {
	case raw.ItemID == "":
		return nil, &MalformedRecordError{Source: "menu_items", Key: key, Field: "item_id"}
	case raw.RestaurantID == "":
		return nil, &MalformedRecordError{Source: "menu_items", Key: key, Field: "restaurant_id"}
	case raw.ItemName == "":
		return nil, &MalformedRecordError{Source: "menu_items", Key: key, Field: "item_name"}
	case raw.Category == "":
		return nil, &MalformedRecordError{Source: "menu_items", Key: key, Field: "category"}
	case raw.BasePrice == nil:
		return nil, &MalformedRecordError{Source: "menu_items", Key: key, Field: "base_price"}
	case *raw.BasePrice < 0:
		return nil, &MalformedRecordError{Source: "menu_items", Key: key, Field: "base_price",
			Err: fmt.Errorf("base_price %v is negative", *raw.BasePrice)}
	}

	return &models.CleanedMenuItem{
		ItemID:       raw.ItemID,
		RestaurantID: raw.RestaurantID,
		ItemName:     raw.ItemName,
		Category:     raw.Category,
		BasePrice:    *raw.BasePrice,
		IngestedAt:   ingested,
	}, nil
}

// LoadDrivers builds the cleaned driver roster from every CSV under
// drivers/.
func (n *Normalizer) LoadDrivers(ctx context.Context) ([]models.CleanedDriver, int, error) {
	objects, err := n.listSorted(ctx, "drivers/")
	if err != nil {
		return nil, 0, err
	}

	ingested := n.now()
	var drivers []models.CleanedDriver
	skipped := 0
	total := 0
	for _, obj := range objects {
		if !hasSuffixFold(obj.Key, ".csv") {
			continue
		}

		body, err := n.store.Get(ctx, obj.Key)
		if err != nil {
			return nil, 0, err
		}
		t, err := table.Read(body, obj.Key)
		body.Close()
		if err != nil {
			return nil, 0, err
		}
		if len(t.Rows) == 0 {
			continue
		}
		if err := t.Require("driver_id", "name", "rating", "zone"); err != nil {
			return nil, 0, err
		}

		for _, row := range t.Rows {
			total++
			driver := models.CleanedDriver{
				DriverID:   t.Get(row, "driver_id"),
				Name:       t.Get(row, "name"),
				Zone:       t.Get(row, "zone"),
				IngestedAt: ingested,
			}
			if driver.DriverID == "" {
				skipped++
				n.logger.Warn("Skipping malformed driver row",
					logger.Error(&MalformedRecordError{Source: "drivers", Key: obj.Key, Field: "driver_id"}))
				continue
			}
			rating, err := strconv.ParseFloat(t.Get(row, "rating"), 64)
			if err != nil {
				skipped++
				n.logger.Warn("Skipping malformed driver row",
					logger.Error(&MalformedRecordError{Source: "drivers", Key: obj.Key, Field: "rating", Err: err}))
				continue
			}
			driver.Rating = rating
			drivers = append(drivers, driver)
		}
	}

	if total > 0 && len(drivers) == 0 {
		return nil, skipped, fmt.Errorf("all %d driver rows are malformed", total)
	}
	return drivers, skipped, nil
}
