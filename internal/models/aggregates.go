package models

// DeliveryFeature is one row of the ML feature table, one per order.
// Nullable columns are nil when a join misses (no driver, no weather
// observation for the order's hour) or when the order was never delivered.
type DeliveryFeature struct {
	OrderKey         int      `json:"orderKey"`
	DeliveryMinutes  *float64 `json:"deliveryMinutes"`
	DistanceKM       float64  `json:"distanceKm"` // synthetic stand-in, not a measured distance
	DriverRating     *float64 `json:"driverRating"`
	WeatherCondition *string  `json:"weatherCondition"`
	TimeOfDay        string   `json:"timeOfDay"`
}

// DeliveryKPI is the per-day per-zone delivery rollup.
type DeliveryKPI struct {
	OrderDate      string   `json:"orderDate"`
	Zone           string   `json:"zone"`
	Orders         int      `json:"orders"`
	AvgDeliveryMin *float64 `json:"avgDeliveryMin"`
	SLABreachPct   *float64 `json:"slaBreachPct"`
}

// DriverPerformanceKPI is the per-day per-zone driver rollup served on the
// driver dashboard tab.
type DriverPerformanceKPI struct {
	OrderDate          string   `json:"orderDate"`
	Zone               string   `json:"zone"`
	TotalDeliveries    int      `json:"totalDeliveries"`
	AvgDeliveryMinutes *float64 `json:"avgDeliveryMinutes"`
	SLABreachPct       *float64 `json:"slaBreachPct"`
}

// ItemSalesKPI is the per-day per-category menu item sales rollup.
type ItemSalesKPI struct {
	OrderDate      string  `json:"orderDate"`
	Category       string  `json:"category"`
	TotalItemsSold int     `json:"totalItemsSold"`
	TotalSales     float64 `json:"totalSales"`
}

// CuisineKPI is the per-day per-cuisine performance rollup.
type CuisineKPI struct {
	OrderDate      string   `json:"orderDate"`
	CuisineType    string   `json:"cuisineType"`
	Orders         int      `json:"orders"`
	AvgDeliveryMin *float64 `json:"avgDeliveryMin"`
	Revenue        float64  `json:"revenue"`
}

// AggregateTables bundles the full output of the aggregate stage.
// UnzonedOrders counts orders left out of the zone rollups because their
// driver reference did not resolve to a zone.
type AggregateTables struct {
	Features      []DeliveryFeature
	DeliveryKPIs  []DeliveryKPI
	DriverKPIs    []DriverPerformanceKPI
	ItemSales     []ItemSalesKPI
	CuisineKPIs   []CuisineKPI
	UnzonedOrders int
}
