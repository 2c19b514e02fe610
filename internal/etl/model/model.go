// Package model implements the cleaned-to-modeled stage: surrogate key
// assignment, dimension construction and fact construction with derived
// per-order metrics. Unresolved natural-key references become null columns,
// never errors; late or missing reference data must not fail the build.
package model

import (
	"time"

	"github.com/woeat/pipeline/internal/models"
)

// Modeler builds the dimension and fact tables for one pipeline run. The
// key maps live for the duration of the run only; surrogate keys are not
// stable across runs when input ordering changes.
type Modeler struct {
	slaMinutes float64

	Restaurants *KeyMap
	MenuItems   *KeyMap
	Drivers     *KeyMap
	Orders      *KeyMap

	// now stamps fact load timestamps; overridable in tests.
	now func() time.Time
}

func New(slaMinutes float64) *Modeler {
	return &Modeler{
		slaMinutes:  slaMinutes,
		Restaurants: NewKeyMap(),
		MenuItems:   NewKeyMap(),
		Drivers:     NewKeyMap(),
		Orders:      NewKeyMap(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Build constructs the full modeled layer from the cleaned tables.
func (m *Modeler) Build(cleaned *models.CleanedTables) *models.WarehouseTables {
	w := &models.WarehouseTables{}
	w.Restaurants = m.buildRestaurantDim(cleaned.Reports)
	w.Drivers = m.buildDriverDim(cleaned.Drivers)
	w.MenuItems = m.buildMenuItemDim(cleaned.Menu)
	w.Orders, w.OrderItems = m.buildOrderFacts(cleaned.Orders, cleaned.Menu)
	return w
}

// buildRestaurantDim aggregates performance reports into one current row per
// restaurant. For repeated reports the last value in input order wins, and
// cuisine comes from the report feed itself rather than being invented here.
func (m *Modeler) buildRestaurantDim(reports []models.CleanedRestaurantReport) []models.RestaurantDim {
	byKey := make(map[int]int) // restaurant key -> dim slice position
	var dims []models.RestaurantDim

	for _, report := range reports {
		key := m.Restaurants.Add(report.RestaurantID)
		pos, ok := byKey[key]
		if !ok {
			dims = append(dims, models.RestaurantDim{
				RestaurantKey:   key,
				RestaurantID:    report.RestaurantID,
				ActiveFlag:      true,
				RecordStartDate: models.RecordStartDate,
				RecordEndDate:   models.RecordEndDate,
				IsCurrent:       true,
			})
			pos = len(dims) - 1
			byKey[key] = pos
		}
		dims[pos].AvgPrepTime = report.AvgPrepTime
		dims[pos].CuisineType = report.Cuisine
	}
	return dims
}

// buildMenuItemDim keeps one current row per item id; the first occurrence
// wins for descriptive attributes.
func (m *Modeler) buildMenuItemDim(menu []models.CleanedMenuItem) []models.MenuItemDim {
	seen := make(map[string]bool)
	var dims []models.MenuItemDim

	for _, item := range menu {
		if seen[item.ItemID] {
			continue
		}
		seen[item.ItemID] = true

		dim := models.MenuItemDim{
			MenuItemKey: m.MenuItems.Add(item.ItemID),
			ItemID:      item.ItemID,
			ItemName:    item.ItemName,
			Category:    item.Category,
			BasePrice:   item.BasePrice,
		}
		if key, ok := m.Restaurants.Lookup(item.RestaurantID); ok {
			dim.RestaurantKey = &key
		}
		dims = append(dims, dim)
	}
	return dims
}

// buildDriverDim keeps one current row per driver id; first occurrence wins.
func (m *Modeler) buildDriverDim(drivers []models.CleanedDriver) []models.DriverDim {
	seen := make(map[string]bool)
	var dims []models.DriverDim

	for _, driver := range drivers {
		if seen[driver.DriverID] {
			continue
		}
		seen[driver.DriverID] = true

		dims = append(dims, models.DriverDim{
			DriverKey:       m.Drivers.Add(driver.DriverID),
			DriverID:        driver.DriverID,
			Name:            driver.Name,
			Rating:          driver.Rating,
			Zone:            driver.Zone,
			RecordStartDate: models.RecordStartDate,
			RecordEndDate:   models.RecordEndDate,
			IsCurrent:       true,
		})
	}
	return dims
}

// buildOrderFacts explodes each order's delimited item field into one
// OrderItemFact row per item token and derives the per-order metrics.
func (m *Modeler) buildOrderFacts(orders []models.CleanedOrder, menu []models.CleanedMenuItem) ([]models.OrderFact, []models.OrderItemFact) {
	// Current base price per item id at build time; prices are not stored
	// historically. First occurrence wins, matching the menu dimension.
	prices := make(map[string]float64, len(menu))
	for _, item := range menu {
		if _, ok := prices[item.ItemID]; !ok {
			prices[item.ItemID] = item.BasePrice
		}
	}

	loadedAt := m.now()
	var facts []models.OrderFact
	var itemFacts []models.OrderItemFact
	nextItemKey := 1

	for _, order := range orders {
		orderKey := m.Orders.Add(order.OrderID)

		fact := models.OrderFact{
			OrderKey:     orderKey,
			OrderID:      order.OrderID,
			OrderTime:    order.OrderTime,
			DeliveryTime: order.DeliveryTime,
			Status:       order.Status,
			InsertedAt:   loadedAt,
		}
		if key, ok := m.Drivers.Lookup(order.DriverID); ok && order.DriverID != "" {
			fact.DriverKey = &key
		}
		if key, ok := m.Restaurants.Lookup(order.RestaurantID); ok {
			fact.RestaurantKey = &key
		}

		// One row per ordered item instance, in item order. Duplicate
		// tokens stay separate quantity-1 rows; they are not coalesced.
		var total float64
		priced := false
		for _, itemID := range order.ItemIDs() {
			itemFact := models.OrderItemFact{
				OrderItemKey: nextItemKey,
				OrderKey:     orderKey,
				Quantity:     1,
			}
			nextItemKey++

			if key, ok := m.MenuItems.Lookup(itemID); ok {
				itemFact.MenuItemKey = &key
			}
			if price, ok := prices[itemID]; ok {
				p := price
				itemFact.ExtendedPrice = &p
				total += p
				priced = true
			}
			itemFacts = append(itemFacts, itemFact)
		}

		// An order whose items all failed to price keeps a null total, not
		// zero; downstream aggregates must be able to tell the difference.
		if priced {
			t := total
			fact.TotalAmount = &t
		}

		if order.DeliveryTime != nil {
			minutes := order.DeliveryTime.Sub(order.OrderTime).Minutes()
			fact.DeliveryMinutes = &minutes
			breached := minutes > m.slaMinutes
			fact.SLABreached = &breached
		}

		facts = append(facts, fact)
	}
	return facts, itemFacts
}
