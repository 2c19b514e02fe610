package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/woeat/pipeline/internal/models"
)

func ts(hour, minute int) time.Time {
	return time.Date(2024, 4, 1, hour, minute, 0, 0, time.UTC)
}

func tsPtr(hour, minute int) *time.Time {
	v := ts(hour, minute)
	return &v
}

func testMenu() []models.CleanedMenuItem {
	return []models.CleanedMenuItem{
		{ItemID: "M400", RestaurantID: "R300", ItemName: "Harvest Bowl", Category: "Vegan", BasePrice: 10.5},
		{ItemID: "M401", RestaurantID: "R300", ItemName: "Garden Roll", Category: "Vegan", BasePrice: 4},
	}
}

func TestBuildRestaurantDimLastReportWins(t *testing.T) {
	m := New(45)
	dims := m.buildRestaurantDim([]models.CleanedRestaurantReport{
		{ReportDate: "2024-04-01", RestaurantID: "R300", Cuisine: "Vegan", AvgPrepTime: 20},
		{ReportDate: "2024-04-01", RestaurantID: "R301", Cuisine: "Italian", AvgPrepTime: 15},
		{ReportDate: "2024-04-02", RestaurantID: "R300", Cuisine: "Burgers", AvgPrepTime: 28},
	})

	require.Len(t, dims, 2)
	require.Equal(t, 1, dims[0].RestaurantKey)
	require.Equal(t, "R300", dims[0].RestaurantID)
	require.Equal(t, "Burgers", dims[0].CuisineType)
	require.Equal(t, 28.0, dims[0].AvgPrepTime)
	require.True(t, dims[0].IsCurrent)
	require.Equal(t, models.RecordEndDate, dims[0].RecordEndDate)
	require.Equal(t, 2, dims[1].RestaurantKey)
}

func TestBuildDimsDeduplicateFirstWins(t *testing.T) {
	m := New(45)

	drivers := m.buildDriverDim([]models.CleanedDriver{
		{DriverID: "D200", Name: "Avery", Rating: 4.5, Zone: "Z1"},
		{DriverID: "D200", Name: "Changed", Rating: 1.0, Zone: "Z2"},
	})
	require.Len(t, drivers, 1)
	require.Equal(t, "Avery", drivers[0].Name)
	require.Equal(t, "Z1", drivers[0].Zone)

	menu := m.buildMenuItemDim([]models.CleanedMenuItem{
		{ItemID: "M400", RestaurantID: "R300", ItemName: "Harvest Bowl", Category: "Vegan", BasePrice: 10},
		{ItemID: "M400", RestaurantID: "R300", ItemName: "Renamed", Category: "Vegan", BasePrice: 99},
	})
	require.Len(t, menu, 1)
	require.Equal(t, "Harvest Bowl", menu[0].ItemName)
	require.Equal(t, 10.0, menu[0].BasePrice)
}

func TestBuildOrderFactsExplodesDuplicateItems(t *testing.T) {
	m := New(45)
	facts, itemFacts := m.buildOrderFacts([]models.CleanedOrder{
		{OrderID: "O-1", CustomerID: "C100", RestaurantID: "R300",
			Items: "M400,M401,M400", Status: "DELIVERED",
			OrderTime: ts(10, 0), DeliveryTime: tsPtr(10, 30)},
	}, testMenu())

	require.Len(t, facts, 1)
	require.Len(t, itemFacts, 3)

	// Duplicate tokens each get their own quantity-1 row in item order.
	for i, f := range itemFacts {
		require.Equal(t, i+1, f.OrderItemKey)
		require.Equal(t, 1, f.Quantity)
		require.Equal(t, facts[0].OrderKey, f.OrderKey)
	}
	require.Equal(t, 10.5, *itemFacts[0].ExtendedPrice)
	require.Equal(t, 4.0, *itemFacts[1].ExtendedPrice)
	require.Equal(t, 10.5, *itemFacts[2].ExtendedPrice)
	require.Equal(t, 25.0, *facts[0].TotalAmount)
}

func TestBuildOrderFactsUnknownItemsKeepNulls(t *testing.T) {
	m := New(45)
	facts, itemFacts := m.buildOrderFacts([]models.CleanedOrder{
		{OrderID: "O-1", CustomerID: "C100", RestaurantID: "R300",
			Items: "M999", Status: "PLACED", OrderTime: ts(9, 0)},
		{OrderID: "O-2", CustomerID: "C101", RestaurantID: "R300",
			Items: "M400,M999", Status: "PLACED", OrderTime: ts(9, 5)},
	}, testMenu())

	require.Len(t, itemFacts, 3)
	require.Nil(t, itemFacts[0].MenuItemKey)
	require.Nil(t, itemFacts[0].ExtendedPrice)

	// No priced item at all: the total stays null, not zero.
	require.Nil(t, facts[0].TotalAmount)

	// Partial pricing sums the priced items only.
	require.Equal(t, 10.5, *facts[1].TotalAmount)
	require.Nil(t, itemFacts[2].ExtendedPrice)
}

func TestBuildOrderFactsSLABoundary(t *testing.T) {
	m := New(45)
	facts, _ := m.buildOrderFacts([]models.CleanedOrder{
		{OrderID: "O-1", CustomerID: "C1", RestaurantID: "R300", Items: "M400",
			Status: "DELIVERED", OrderTime: ts(10, 0), DeliveryTime: tsPtr(10, 45)},
		{OrderID: "O-2", CustomerID: "C1", RestaurantID: "R300", Items: "M400",
			Status: "DELIVERED", OrderTime: ts(10, 0), DeliveryTime: tsPtr(10, 50)},
		{OrderID: "O-3", CustomerID: "C1", RestaurantID: "R300", Items: "M400",
			Status: "PLACED", OrderTime: ts(10, 0)},
	}, testMenu())

	// Exactly the threshold is not a breach; the comparison is strict.
	require.Equal(t, 45.0, *facts[0].DeliveryMinutes)
	require.False(t, *facts[0].SLABreached)

	require.Equal(t, 50.0, *facts[1].DeliveryMinutes)
	require.True(t, *facts[1].SLABreached)

	// Undelivered orders keep all delivery measures null.
	require.Nil(t, facts[2].DeliveryMinutes)
	require.Nil(t, facts[2].SLABreached)
}

func TestBuildLinksFactsToDims(t *testing.T) {
	m := New(45)
	w := m.Build(&models.CleanedTables{
		Reports: []models.CleanedRestaurantReport{
			{ReportDate: "2024-04-01", RestaurantID: "R300", Cuisine: "Vegan", AvgPrepTime: 20},
		},
		Drivers: []models.CleanedDriver{
			{DriverID: "D200", Name: "Avery", Rating: 4.5, Zone: "Z1"},
		},
		Menu: testMenu(),
		Orders: []models.CleanedOrder{
			{OrderID: "O-1", CustomerID: "C100", RestaurantID: "R300", DriverID: "D200",
				Items: "M400", Status: "DELIVERED", OrderTime: ts(12, 0), DeliveryTime: tsPtr(12, 40)},
			{OrderID: "O-2", CustomerID: "C101", RestaurantID: "R999", DriverID: "",
				Items: "M401", Status: "PLACED", OrderTime: ts(12, 5)},
		},
	})

	require.Len(t, w.Orders, 2)
	require.Equal(t, 1, *w.Orders[0].RestaurantKey)
	require.Equal(t, 1, *w.Orders[0].DriverKey)

	// Unknown restaurant and absent driver stay null references.
	require.Nil(t, w.Orders[1].RestaurantKey)
	require.Nil(t, w.Orders[1].DriverKey)

	require.Equal(t, 1, *w.MenuItems[0].RestaurantKey)
}
