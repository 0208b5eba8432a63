// Package export renders stock and allocation reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names used by the exporter
const (
	StockSheet      = "Stock"
	AllocationSheet = "Allocations"
)

// ContentType is the MIME type of the produced workbooks
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateLayout = "2006-01-02"

var (
	stockHeaders = []string{
		"Batch Number", "Product ID", "Warehouse ID", "Received", "Expires",
		"Location", "Received Qty", "On Hand", "Unit Cost", "Value",
	}
	allocationHeaders = []string{
		"Allocated At", "Order Line ID", "Product ID", "Warehouse ID", "Batch ID", "Quantity", "Strategy",
	}
)

// XLSXExporter writes reports with excelize
type XLSXExporter struct{}

// NewXLSXExporter creates a new XLSXExporter
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// WriteStockReport writes one row per batch followed by a totals row.
// Value is on-hand quantity times unit cost.
func (e *XLSXExporter) WriteStockReport(w io.Writer, batches []inventory.Batch) error {
	f, err := newWorkbook(StockSheet, stockHeaders)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		totalOnHand int64
		totalValue  = decimal.Zero
	)
	for i := range batches {
		b := &batches[i]
		expires := ""
		if b.ExpiresAt != nil {
			expires = b.ExpiresAt.Format(dateLayout)
		}
		value := b.Value()
		row := []interface{}{
			b.BatchNumber,
			b.ProductID.String(),
			b.WarehouseID.String(),
			b.ReceivedAt.Format(dateLayout),
			expires,
			b.Location,
			b.OriginalQuantity,
			b.Quantity,
			b.UnitCost.InexactFloat64(),
			value.InexactFloat64(),
		}
		if err := setRow(f, StockSheet, i+2, row); err != nil {
			return err
		}
		totalOnHand += b.Quantity
		totalValue = totalValue.Add(value)
	}

	totals := []interface{}{"Total", "", "", "", "", "", "", totalOnHand, "", totalValue.InexactFloat64()}
	if err := setRow(f, StockSheet, len(batches)+2, totals); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteAllocationReport writes the allocation ledger of one order
func (e *XLSXExporter) WriteAllocationReport(w io.Writer, orderID uuid.UUID, allocations []inventory.Allocation) error {
	f, err := newWorkbook(AllocationSheet, allocationHeaders)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("Allocations for order %s", orderID),
		Subject: orderID.String(),
	}); err != nil {
		return err
	}

	for i, a := range allocations {
		row := []interface{}{
			a.AllocatedAt.Format("2006-01-02 15:04:05"),
			a.OrderLineID.String(),
			a.ProductID.String(),
			a.WarehouseID.String(),
			a.BatchID.String(),
			a.Quantity,
			a.Strategy.String(),
		}
		if err := setRow(f, AllocationSheet, i+2, row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// newWorkbook creates a workbook with a single styled header row
func newWorkbook(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, 18); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
