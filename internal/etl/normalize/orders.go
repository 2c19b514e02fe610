package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/table"
)

// rawOrder is the order event payload as it lands in the raw store, one
// JSON file per order under orders_stream/<date>/.
type rawOrder struct {
	OrderID      string   `json:"order_id"`
	CustomerID   string   `json:"customer_id"`
	RestaurantID string   `json:"restaurant_id"`
	DriverID     *string  `json:"driver_id"`
	Items        []string `json:"items"`
	OrderTime    string   `json:"order_time"`
	DeliveryTime *string  `json:"delivery_time"`
	Status       string   `json:"status"`
}

// LoadOrders builds the cleaned orders table. The ingestion timestamp of
// each row is the raw object's last-modified time, so re-delivered order
// events carry their update provenance. Item ids are comma-joined into a
// single field.
func (n *Normalizer) LoadOrders(ctx context.Context) ([]models.CleanedOrder, int, error) {
	objects, err := n.listSorted(ctx, "orders_stream/")
	if err != nil {
		return nil, 0, err
	}

	var orders []models.CleanedOrder
	skipped := 0
	total := 0
	for _, obj := range objects {
		if !hasSuffixFold(obj.Key, ".json") {
			continue
		}
		total++

		order, err := n.loadOrder(ctx, obj.Key, obj.LastModified)
		if err != nil {
			skipped++
			n.logger.Warn("Skipping malformed order record", logger.Error(err))
			continue
		}
		orders = append(orders, *order)
	}

	if total > 0 && len(orders) == 0 {
		return nil, skipped, fmt.Errorf("all %d order records are malformed", total)
	}
	return orders, skipped, nil
}

func (n *Normalizer) loadOrder(ctx context.Context, key string, modified time.Time) (*models.CleanedOrder, error) {
	body, err := n.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var raw rawOrder
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, &MalformedRecordError{Source: "orders", Key: key, Field: "(body)", Err: err}
	}

	required := []struct {
		field, value string
	}{
		{"order_id", raw.OrderID},
		{"customer_id", raw.CustomerID},
		{"restaurant_id", raw.RestaurantID},
		{"status", raw.Status},
		{"order_time", raw.OrderTime},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &MalformedRecordError{Source: "orders", Key: key, Field: r.field}
		}
	}

	orderTime, err := time.Parse(table.TimeLayout, raw.OrderTime)
	if err != nil {
		return nil, &MalformedRecordError{Source: "orders", Key: key, Field: "order_time", Err: err}
	}

	// Completion is optional: an order that is still out carries a null
	// delivery time, not an error.
	var deliveryTime *time.Time
	if raw.DeliveryTime != nil && *raw.DeliveryTime != "" {
		t, err := time.Parse(table.TimeLayout, *raw.DeliveryTime)
		if err != nil {
			return nil, &MalformedRecordError{Source: "orders", Key: key, Field: "delivery_time", Err: err}
		}
		if t.Before(orderTime) {
			return nil, &MalformedRecordError{Source: "orders", Key: key, Field: "delivery_time",
				Err: fmt.Errorf("delivery_time %s precedes order_time %s", t, orderTime)}
		}
		utc := t.UTC()
		deliveryTime = &utc
	}

	driverID := ""
	if raw.DriverID != nil {
		driverID = *raw.DriverID
	}

	return &models.CleanedOrder{
		OrderID:      raw.OrderID,
		CustomerID:   raw.CustomerID,
		RestaurantID: raw.RestaurantID,
		DriverID:     driverID,
		Items:        joinItems(raw.Items),
		Status:       raw.Status,
		OrderTime:    orderTime.UTC(),
		DeliveryTime: deliveryTime,
		IngestedAt:   modified.UTC(),
	}, nil
}

// joinItems flattens the multi-item payload into a single delimited field.
// Item ids are controlled and never contain the separator; an id with a
// comma would corrupt this encoding.
func joinItems(items []string) string {
	return strings.Join(items, models.ItemSeparator)
}
