// Package export renders the published KPI tables as a spreadsheet for
// whoever wants the numbers outside the dashboard.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/woeat/pipeline/internal/models"
)

// KPIData bundles the four rollups that go into one workbook.
type KPIData struct {
	Delivery []models.DeliveryKPI
	Drivers  []models.DriverPerformanceKPI
	Items    []models.ItemSalesKPI
	Cuisine  []models.CuisineKPI
}

// WriteWorkbook writes one xlsx workbook with a sheet per KPI table.
func WriteWorkbook(w io.Writer, data KPIData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, "Delivery", deliveryRows(data.Delivery)); err != nil {
		return err
	}
	if err := writeSheet(f, "Drivers", driverRows(data.Drivers)); err != nil {
		return err
	}
	if err := writeSheet(f, "Item Sales", itemRows(data.Items)); err != nil {
		return err
	}
	if err := writeSheet(f, "Cuisine", cuisineRows(data.Cuisine)); err != nil {
		return err
	}

	// Drop the default sheet excelize opens with.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("sheet %s: %w", name, err)
			}
			if err := f.SetCellValue(name, cell, val); err != nil {
				return fmt.Errorf("sheet %s cell %s: %w", name, cell, err)
			}
		}
	}
	return nil
}

func cellFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func deliveryRows(kpis []models.DeliveryKPI) [][]interface{} {
	rows := [][]interface{}{{"Date", "Zone", "Orders", "Avg Delivery (min)", "SLA Breach %"}}
	for _, k := range kpis {
		rows = append(rows, []interface{}{
			k.OrderDate, k.Zone, k.Orders, cellFloat(k.AvgDeliveryMin), cellFloat(k.SLABreachPct),
		})
	}
	return rows
}

func driverRows(kpis []models.DriverPerformanceKPI) [][]interface{} {
	rows := [][]interface{}{{"Date", "Zone", "Deliveries", "Avg Delivery (min)", "SLA Breach %"}}
	for _, k := range kpis {
		rows = append(rows, []interface{}{
			k.OrderDate, k.Zone, k.TotalDeliveries, cellFloat(k.AvgDeliveryMinutes), cellFloat(k.SLABreachPct),
		})
	}
	return rows
}

func itemRows(kpis []models.ItemSalesKPI) [][]interface{} {
	rows := [][]interface{}{{"Date", "Category", "Items Sold", "Sales"}}
	for _, k := range kpis {
		rows = append(rows, []interface{}{k.OrderDate, k.Category, k.TotalItemsSold, k.TotalSales})
	}
	return rows
}

func cuisineRows(kpis []models.CuisineKPI) [][]interface{} {
	rows := [][]interface{}{{"Date", "Cuisine", "Orders", "Avg Delivery (min)", "Revenue"}}
	for _, k := range kpis {
		rows = append(rows, []interface{}{
			k.OrderDate, k.CuisineType, k.Orders, cellFloat(k.AvgDeliveryMin), k.Revenue,
		})
	}
	return rows
}
