// Package export renders reports as spreadsheet files.
package export

import (
	"fmt"
	"io"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/xuri/excelize/v2"
)

const (
	stockSheet      = "Stock"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	lastCountedFmt  = "2006-01-02 15:04"
)

var stockHeadings = []string{"SKU", "Product", "Location", "Quantity", "Last Counted", "Updated At"}

// XLSXStockExporter writes stock rows into an Excel workbook
type XLSXStockExporter struct{}

// NewXLSXStockExporter creates a new XLSXStockExporter
func NewXLSXStockExporter() *XLSXStockExporter {
	return &XLSXStockExporter{}
}

// ContentType returns the MIME type of the workbook
func (e *XLSXStockExporter) ContentType() string { return xlsxContentType }

// Extension returns the file extension of the workbook
func (e *XLSXStockExporter) Extension() string { return "xlsx" }

// WriteStock writes one row per stock record under a bold header row
func (e *XLSXStockExporter) WriteStock(w io.Writer, rows []inventory.StockView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", stockSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(stockHeadings))
	for i, h := range stockHeadings {
		header[i] = h
	}
	if err := f.SetSheetRow(stockSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(stockHeadings))
	if err := f.SetCellStyle(stockSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		lastCounted := ""
		if r.LastCounted != nil {
			lastCounted = r.LastCounted.UTC().Format(lastCountedFmt)
		}
		values := []interface{}{
			r.ProductSKU,
			r.ProductName,
			r.Location,
			r.Quantity,
			lastCounted,
			r.UpdatedAt.UTC().Format(lastCountedFmt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(stockSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(stockSheet, "A", "B", 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetPanes(stockSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
