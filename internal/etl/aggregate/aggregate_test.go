package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/woeat/pipeline/internal/models"
)

func ts(day, hour, minute int) time.Time {
	return time.Date(2024, 4, day, hour, minute, 0, 0, time.UTC)
}

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }
func bp(v bool) *bool       { return &v }

func testDrivers() map[int]models.DriverDim {
	return map[int]models.DriverDim{
		1: {DriverKey: 1, DriverID: "D200", Rating: 4.5, Zone: "Z1"},
		2: {DriverKey: 2, DriverID: "D201", Rating: 4.1, Zone: "Z2"},
	}
}

func TestBuildFeaturesWeatherJoin(t *testing.T) {
	b := New()
	weather := []models.CleanedWeather{
		{Zone: "Z1", WeatherTime: ts(1, 10, 0), Condition: "Rain", Temperature: 18},
		{Zone: "Z2", WeatherTime: ts(1, 10, 0), Condition: "Sunny", Temperature: 25},
		// Same zone and hour again: the later observation wins.
		{Zone: "Z1", WeatherTime: ts(1, 10, 30), Condition: "Wind", Temperature: 17},
	}
	orders := []models.OrderFact{
		{OrderKey: 1, OrderTime: ts(1, 10, 42), DriverKey: ip(1), DeliveryMinutes: fp(30)},
		{OrderKey: 2, OrderTime: ts(1, 10, 42), DriverKey: ip(2), DeliveryMinutes: fp(28)},
		// No observation for this hour: the condition stays missing.
		{OrderKey: 3, OrderTime: ts(1, 11, 5), DriverKey: ip(1)},
		// No driver: no zone, so no weather and no rating.
		{OrderKey: 4, OrderTime: ts(1, 10, 42)},
	}

	features := b.buildFeatures(orders, testDrivers(), weather)
	require.Len(t, features, 4)

	require.Equal(t, "Wind", *features[0].WeatherCondition)
	require.Equal(t, 4.5, *features[0].DriverRating)
	require.Equal(t, "Sunny", *features[1].WeatherCondition)
	require.Nil(t, features[2].WeatherCondition)
	require.Nil(t, features[3].WeatherCondition)
	require.Nil(t, features[3].DriverRating)

	for _, f := range features {
		require.GreaterOrEqual(t, f.DistanceKM, 1.0)
		require.LessOrEqual(t, f.DistanceKM, 7.0)
	}
}

func TestBuildFeaturesDeterministicDistances(t *testing.T) {
	orders := []models.OrderFact{
		{OrderKey: 1, OrderTime: ts(1, 9, 0)},
		{OrderKey: 2, OrderTime: ts(1, 9, 1)},
	}

	first := New().buildFeatures(orders, nil, nil)
	second := New().buildFeatures(orders, nil, nil)
	require.Equal(t, first, second)
}

func TestTimeOfDayBuckets(t *testing.T) {
	require.Equal(t, "Morning", timeOfDay(6))
	require.Equal(t, "Morning", timeOfDay(11))
	require.Equal(t, "Afternoon", timeOfDay(12))
	require.Equal(t, "Afternoon", timeOfDay(17))
	require.Equal(t, "Evening", timeOfDay(18))
	require.Equal(t, "Evening", timeOfDay(23))
	require.Equal(t, "Evening", timeOfDay(0))
	require.Equal(t, "Evening", timeOfDay(5))
}

func TestBuildZoneRollups(t *testing.T) {
	b := New()
	agg := &models.AggregateTables{}
	orders := []models.OrderFact{
		{OrderKey: 1, OrderTime: ts(1, 9, 0), DriverKey: ip(1),
			DeliveryMinutes: fp(30), SLABreached: bp(false)},
		{OrderKey: 2, OrderTime: ts(1, 10, 0), DriverKey: ip(1),
			DeliveryMinutes: fp(50), SLABreached: bp(true)},
		{OrderKey: 3, OrderTime: ts(1, 11, 0), DriverKey: ip(2),
			DeliveryMinutes: fp(40), SLABreached: bp(false)},
		{OrderKey: 4, OrderTime: ts(2, 9, 0), DriverKey: ip(1)},
		// Missing and unknown driver references are counted, not dropped.
		{OrderKey: 5, OrderTime: ts(1, 9, 30)},
		{OrderKey: 6, OrderTime: ts(1, 9, 45), DriverKey: ip(99)},
	}

	b.buildZoneRollups(agg, orders, testDrivers())

	require.Equal(t, 2, agg.UnzonedOrders)
	require.Len(t, agg.DeliveryKPIs, 3)
	require.Len(t, agg.DriverKPIs, 3)

	// Groups come out in first-seen order.
	first := agg.DeliveryKPIs[0]
	require.Equal(t, "2024-04-01", first.OrderDate)
	require.Equal(t, "Z1", first.Zone)
	require.Equal(t, 2, first.Orders)
	require.Equal(t, 40.0, *first.AvgDeliveryMin)
	require.Equal(t, 0.5, *first.SLABreachPct)

	require.Equal(t, "Z2", agg.DeliveryKPIs[1].Zone)

	// A group with no delivered orders keeps null measures.
	undelivered := agg.DeliveryKPIs[2]
	require.Equal(t, "2024-04-02", undelivered.OrderDate)
	require.Equal(t, 1, undelivered.Orders)
	require.Nil(t, undelivered.AvgDeliveryMin)
	require.Nil(t, undelivered.SLABreachPct)

	// The driver rollup covers the same groups with the same measures.
	require.Equal(t, 2, agg.DriverKPIs[0].TotalDeliveries)
	require.Equal(t, 40.0, *agg.DriverKPIs[0].AvgDeliveryMinutes)
}

func TestBuildItemSales(t *testing.T) {
	b := New()
	menuItems := map[int]models.MenuItemDim{
		1: {MenuItemKey: 1, Category: "Vegan"},
		2: {MenuItemKey: 2, Category: "Burgers"},
	}
	orders := []models.OrderFact{
		{OrderKey: 1, OrderTime: ts(1, 9, 0)},
		{OrderKey: 2, OrderTime: ts(1, 20, 0)},
	}
	items := []models.OrderItemFact{
		{OrderItemKey: 1, OrderKey: 1, MenuItemKey: ip(1), Quantity: 1, ExtendedPrice: fp(10)},
		{OrderItemKey: 2, OrderKey: 1, MenuItemKey: ip(1), Quantity: 1, ExtendedPrice: fp(10)},
		{OrderItemKey: 3, OrderKey: 2, MenuItemKey: ip(2), Quantity: 1, ExtendedPrice: fp(8)},
		// Unresolved menu reference drops out of the rollup.
		{OrderItemKey: 4, OrderKey: 2, MenuItemKey: nil, Quantity: 1},
		// Unpriced item still counts as sold.
		{OrderItemKey: 5, OrderKey: 2, MenuItemKey: ip(2), Quantity: 1},
	}

	kpis := b.buildItemSales(orders, items, menuItems)
	require.Len(t, kpis, 2)

	require.Equal(t, "Vegan", kpis[0].Category)
	require.Equal(t, 2, kpis[0].TotalItemsSold)
	require.Equal(t, 20.0, kpis[0].TotalSales)

	require.Equal(t, "Burgers", kpis[1].Category)
	require.Equal(t, 2, kpis[1].TotalItemsSold)
	require.Equal(t, 8.0, kpis[1].TotalSales)
}

func TestBuildCuisineKPIs(t *testing.T) {
	b := New()
	restaurants := map[int]models.RestaurantDim{
		1: {RestaurantKey: 1, CuisineType: "Vegan"},
		2: {RestaurantKey: 2, CuisineType: "Vegan"},
	}
	orders := []models.OrderFact{
		{OrderKey: 1, OrderTime: ts(1, 9, 0), RestaurantKey: ip(1),
			DeliveryMinutes: fp(30), TotalAmount: fp(20)},
		{OrderKey: 2, OrderTime: ts(1, 10, 0), RestaurantKey: ip(2),
			DeliveryMinutes: fp(40), TotalAmount: fp(10)},
		{OrderKey: 3, OrderTime: ts(1, 11, 0), RestaurantKey: nil},
	}

	kpis := b.buildCuisineKPIs(orders, restaurants)
	require.Len(t, kpis, 1)
	require.Equal(t, "Vegan", kpis[0].CuisineType)
	require.Equal(t, 2, kpis[0].Orders)
	require.Equal(t, 35.0, *kpis[0].AvgDeliveryMin)
	require.Equal(t, 30.0, kpis[0].Revenue)
}
