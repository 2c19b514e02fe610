package aggregate

import (
	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/pkg/table"
)

// groupStats accumulates the per-group measures shared by the rollups.
// Means are taken over non-null values only; a group with no non-null
// values keeps a null mean instead of zero.
type groupStats struct {
	date string
	dim  string

	orders       int
	minutesSum   float64
	minutesCount int
	breaches     int
	breachCount  int
	salesSum     float64
	itemsSold    int
	revenue      float64
}

func (g *groupStats) avgMinutes() *float64 {
	if g.minutesCount == 0 {
		return nil
	}
	v := g.minutesSum / float64(g.minutesCount)
	return &v
}

func (g *groupStats) breachPct() *float64 {
	if g.breachCount == 0 {
		return nil
	}
	v := float64(g.breaches) / float64(g.breachCount)
	return &v
}

// grouper accumulates groups in first-seen order so rollup output is
// reproducible on unchanged input. Groups with zero members never exist;
// there is no zero-filling across the date/dimension cross product.
type grouper struct {
	order []*groupStats
	index map[[2]string]*groupStats
}

func newGrouper() *grouper {
	return &grouper{index: make(map[[2]string]*groupStats)}
}

func (g *grouper) at(date, dim string) *groupStats {
	key := [2]string{date, dim}
	if stats, ok := g.index[key]; ok {
		return stats
	}
	stats := &groupStats{date: date, dim: dim}
	g.index[key] = stats
	g.order = append(g.order, stats)
	return stats
}

func (g *grouper) addOrder(stats *groupStats, order models.OrderFact) {
	stats.orders++
	if order.DeliveryMinutes != nil {
		stats.minutesSum += *order.DeliveryMinutes
		stats.minutesCount++
	}
	if order.SLABreached != nil {
		stats.breachCount++
		if *order.SLABreached {
			stats.breaches++
		}
	}
	if order.TotalAmount != nil {
		stats.revenue += *order.TotalAmount
	}
}

func orderDate(order models.OrderFact) string {
	return order.OrderTime.UTC().Format(table.DateLayout)
}

// buildZoneRollups groups orders by date and driver zone for the delivery
// and driver-performance KPIs. Orders whose driver reference does not
// resolve to a zone are excluded and counted in UnzonedOrders so they are
// accounted for rather than silently dropped.
func (b *Builder) buildZoneRollups(agg *models.AggregateTables, orders []models.OrderFact, drivers map[int]models.DriverDim) {
	groups := newGrouper()
	for _, order := range orders {
		if order.DriverKey == nil {
			agg.UnzonedOrders++
			continue
		}
		driver, ok := drivers[*order.DriverKey]
		if !ok || driver.Zone == "" {
			agg.UnzonedOrders++
			continue
		}
		groups.addOrder(groups.at(orderDate(order), driver.Zone), order)
	}

	for _, g := range groups.order {
		agg.DeliveryKPIs = append(agg.DeliveryKPIs, models.DeliveryKPI{
			OrderDate:      g.date,
			Zone:           g.dim,
			Orders:         g.orders,
			AvgDeliveryMin: g.avgMinutes(),
			SLABreachPct:   g.breachPct(),
		})
		agg.DriverKPIs = append(agg.DriverKPIs, models.DriverPerformanceKPI{
			OrderDate:          g.date,
			Zone:               g.dim,
			TotalDeliveries:    g.orders,
			AvgDeliveryMinutes: g.avgMinutes(),
			SLABreachPct:       g.breachPct(),
		})
	}
}

// buildItemSales joins order items through the menu dimension for the
// category and through the order fact for the date. Items with an
// unresolved menu reference have no category and drop out of this rollup.
func (b *Builder) buildItemSales(orders []models.OrderFact, items []models.OrderItemFact, menuItems map[int]models.MenuItemDim) []models.ItemSalesKPI {
	dates := make(map[int]string, len(orders))
	for _, order := range orders {
		dates[order.OrderKey] = orderDate(order)
	}

	groups := newGrouper()
	for _, item := range items {
		if item.MenuItemKey == nil {
			continue
		}
		dim, ok := menuItems[*item.MenuItemKey]
		if !ok {
			continue
		}
		date, ok := dates[item.OrderKey]
		if !ok {
			continue
		}

		stats := groups.at(date, dim.Category)
		stats.itemsSold += item.Quantity
		if item.ExtendedPrice != nil {
			stats.salesSum += *item.ExtendedPrice
		}
	}

	var kpis []models.ItemSalesKPI
	for _, g := range groups.order {
		kpis = append(kpis, models.ItemSalesKPI{
			OrderDate:      g.date,
			Category:       g.dim,
			TotalItemsSold: g.itemsSold,
			TotalSales:     g.salesSum,
		})
	}
	return kpis
}

// buildCuisineKPIs groups orders by date and cuisine via the restaurant
// dimension. Orders with an unresolved restaurant reference drop out.
func (b *Builder) buildCuisineKPIs(orders []models.OrderFact, restaurants map[int]models.RestaurantDim) []models.CuisineKPI {
	groups := newGrouper()
	for _, order := range orders {
		if order.RestaurantKey == nil {
			continue
		}
		dim, ok := restaurants[*order.RestaurantKey]
		if !ok {
			continue
		}
		groups.addOrder(groups.at(orderDate(order), dim.CuisineType), order)
	}

	var kpis []models.CuisineKPI
	for _, g := range groups.order {
		kpis = append(kpis, models.CuisineKPI{
			OrderDate:      g.date,
			CuisineType:    g.dim,
			Orders:         g.orders,
			AvgDeliveryMin: g.avgMinutes(),
			Revenue:        g.revenue,
		})
	}
	return kpis
}
