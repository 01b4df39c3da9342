// Package xlsx renders categorized sites as an Excel workbook.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/site-fueling-service/internal/domain"
)

// SheetName is the worksheet that holds the site table.
const SheetName = "Sites"

var header = []any{
	"Site Name", "Date", "Status", "Category", "Sheet Status",
	"Days Overdue", "Latitude", "Longitude", "Fuel Type", "Quantity",
}

var columnWidths = map[string]float64{
	"A": 32, "B": 12, "C": 12, "D": 16, "E": 14,
	"F": 13, "G": 11, "H": 11, "I": 12, "J": 10,
}

// Write renders sites, one per row under a bold header, and writes the
// workbook to w. Unknown values are left as empty cells.
func Write(w io.Writer, sites []domain.Site) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "J1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, site := range sites {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := siteRow(site)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row for site %d: %w", site.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func siteRow(s domain.Site) []any {
	return []any{
		s.SiteName,
		s.DateString(),
		string(s.Status),
		string(s.Category),
		s.SheetStatus,
		optional(s.DaysOverdue),
		optional(s.Latitude),
		optional(s.Longitude),
		s.FuelType,
		s.Quantity,
	}
}

// optional maps a nil pointer to an empty cell.
func optional[T int | float64](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
