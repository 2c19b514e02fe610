package models

import (
	"strings"
	"time"
)

// ItemSeparator joins the item ids of an order into a single cleaned-table
// field. Item ids are controlled identifiers (M400, M401, ...) and never
// contain the separator themselves.
const ItemSeparator = ","

// CleanedOrder is one row of the cleaned orders table. DriverID is empty for
// unassigned orders and DeliveryTime is nil until the order is delivered.
type CleanedOrder struct {
	OrderID      string     `json:"orderId"`
	CustomerID   string     `json:"customerId"`
	RestaurantID string     `json:"restaurantId"`
	DriverID     string     `json:"driverId,omitempty"`
	Items        string     `json:"items"` // comma-joined item ids, in order
	Status       string     `json:"status"`
	OrderTime    time.Time  `json:"orderTime"`
	DeliveryTime *time.Time `json:"deliveryTime,omitempty"`
	IngestedAt   time.Time  `json:"ingestedAt"`
}

// ItemIDs splits the joined items field back into individual item ids,
// preserving order. An empty field yields no ids.
func (o CleanedOrder) ItemIDs() []string {
	if o.Items == "" {
		return nil
	}
	return strings.Split(o.Items, ItemSeparator)
}

// CleanedRestaurantReport is one row of the cleaned restaurant performance
// table, one row per restaurant per report date.
type CleanedRestaurantReport struct {
	ReportDate   string    `json:"reportDate"` // YYYY-MM-DD
	RestaurantID string    `json:"restaurantId"`
	Cuisine      string    `json:"cuisine"`
	AvgPrepTime  float64   `json:"avgPrepTime"`
	AvgRating    float64   `json:"avgRating"`
	OrdersCount  int       `json:"ordersCount"`
	CancelRate   float64   `json:"cancelRate"`
	AvgTip       float64   `json:"avgTip"`
	IngestedAt   time.Time `json:"ingestedAt"`
}

// CleanedMenuItem is one row of the cleaned menu items table.
type CleanedMenuItem struct {
	ItemID       string    `json:"itemId"`
	RestaurantID string    `json:"restaurantId"`
	ItemName     string    `json:"itemName"`
	Category     string    `json:"category"`
	BasePrice    float64   `json:"basePrice"`
	IngestedAt   time.Time `json:"ingestedAt"`
}

// CleanedDriver is one row of the cleaned driver roster.
type CleanedDriver struct {
	DriverID   string    `json:"driverId"`
	Name       string    `json:"name"`
	Rating     float64   `json:"rating"`
	Zone       string    `json:"zone"`
	IngestedAt time.Time `json:"ingestedAt"`
}

// CleanedWeather is one hourly observation for a delivery zone.
type CleanedWeather struct {
	Zone        string    `json:"zone"`
	WeatherTime time.Time `json:"weatherTime"`
	Temperature float64   `json:"temperature"`
	Condition   string    `json:"condition"`
	IngestedAt  time.Time `json:"ingestedAt"`
}

// CleanedTables bundles the full output of the normalize stage.
type CleanedTables struct {
	Orders  []CleanedOrder
	Reports []CleanedRestaurantReport
	Menu    []CleanedMenuItem
	Drivers []CleanedDriver
	Weather []CleanedWeather
}
