package models

import (
	"time"
)

// Validity window used by the always-current dimension rows. The schema keeps
// slowly-changing columns even though only a single current version is built.
const (
	RecordStartDate = "2024-04-01"
	RecordEndDate   = "9999-12-31"
)

// RestaurantDim is one current row per restaurant.
type RestaurantDim struct {
	RestaurantKey   int     `json:"restaurantKey"`
	RestaurantID    string  `json:"restaurantId"`
	AvgPrepTime     float64 `json:"avgPrepTime"`
	CuisineType     string  `json:"cuisineType"`
	ActiveFlag      bool    `json:"activeFlag"`
	RecordStartDate string  `json:"recordStartDate"`
	RecordEndDate   string  `json:"recordEndDate"`
	IsCurrent       bool    `json:"isCurrent"`
}

// MenuItemDim is one current row per menu item. RestaurantKey is nil when the
// owning restaurant never appeared in the performance reports.
type MenuItemDim struct {
	MenuItemKey   int     `json:"menuItemKey"`
	ItemID        string  `json:"itemId"`
	RestaurantKey *int    `json:"restaurantKey"`
	ItemName      string  `json:"itemName"`
	Category      string  `json:"category"`
	BasePrice     float64 `json:"basePrice"`
}

// DriverDim is one current row per driver.
type DriverDim struct {
	DriverKey       int     `json:"driverKey"`
	DriverID        string  `json:"driverId"`
	Name            string  `json:"name"`
	Rating          float64 `json:"rating"`
	Zone            string  `json:"zone"`
	RecordStartDate string  `json:"recordStartDate"`
	RecordEndDate   string  `json:"recordEndDate"`
	IsCurrent       bool    `json:"isCurrent"`
}

// OrderFact is one row per order. Nullable columns reflect reference misses
// and undelivered orders: they carry nil, never a zero value.
type OrderFact struct {
	OrderKey        int        `json:"orderKey"`
	OrderID         string     `json:"orderId"`
	DriverKey       *int       `json:"driverKey"`
	RestaurantKey   *int       `json:"restaurantKey"`
	OrderTime       time.Time  `json:"orderTime"`
	DeliveryTime    *time.Time `json:"deliveryTime"`
	Status          string     `json:"status"`
	TotalAmount     *float64   `json:"totalAmount"`
	DeliveryMinutes *float64   `json:"deliveryMinutes"`
	SLABreached     *bool      `json:"slaBreached"`
	InsertedAt      time.Time  `json:"insertedAt"`
}

// OrderItemFact is one row per ordered item instance. Duplicate item ids in
// one order stay separate rows with Quantity 1; they are not coalesced.
type OrderItemFact struct {
	OrderItemKey  int      `json:"orderItemKey"`
	OrderKey      int      `json:"orderKey"`
	MenuItemKey   *int     `json:"menuItemKey"`
	Quantity      int      `json:"quantity"`
	ExtendedPrice *float64 `json:"extendedPrice"`
}

// WarehouseTables bundles the full output of the modeling stage.
type WarehouseTables struct {
	Restaurants []RestaurantDim
	MenuItems   []MenuItemDim
	Drivers     []DriverDim
	Orders      []OrderFact
	OrderItems  []OrderItemFact
}
