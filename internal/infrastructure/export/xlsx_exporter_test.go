package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/xuri/excelize/v2"
)

func stockRow(sku, name, location string, quantity int, counted *time.Time) inventory.StockView {
	item, err := inventory.NewInventoryItem(uuid.New(), location)
	if err != nil {
		panic(err)
	}
	item.Quantity = quantity
	item.LastCounted = counted
	return inventory.StockView{InventoryItem: *item, ProductName: name, ProductSKU: sku}
}

func TestXLSXStockExporter_WriteStock(t *testing.T) {
	counted := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	rows := []inventory.StockView{
		stockRow("SKU1", "Widget", "A-01", 7, &counted),
		stockRow("SKU2", "Gadget", "B-02", 0, nil),
	}

	exporter := NewXLSXStockExporter()
	assert.Equal(t, "xlsx", exporter.Extension())
	assert.Equal(t, xlsxContentType, exporter.ContentType())

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteStock(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{stockSheet}, f.GetSheetList())

	got, err := f.GetRows(stockSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, stockHeadings, got[0])
	assert.Equal(t, []string{"SKU1", "Widget", "A-01", "7", "2024-05-01 09:30"}, got[1][:5])
	assert.Equal(t, "0", got[2][3])
	assert.Equal(t, "", got[2][4])
}

func TestXLSXStockExporter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXStockExporter().WriteStock(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(stockSheet)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stockHeadings, got[0])
}
