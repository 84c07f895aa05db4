// Package report generates spreadsheet exports of purchase requests for
// external reporting.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

const sheetName = "Purchases"

var columns = []struct {
	header string
	width  float64
}{
	{"Date Created", 20},
	{"Uploader Name", 20},
	{"Vendor Name", 30},
	{"Purpose", 15},
	{"Amount", 15},
	{"Hub", 15},
	{"Bill Type", 15},
	{"Payment Date", 20},
	{"Status", 18},
	{"OCR Vendor Name", 30},
	{"OCR Amount", 15},
	{"OCR Invoice Number", 20},
	{"OCR Tax Number", 20},
	{"OCR Confidence", 15},
}

// Exporter writes purchase listings as xlsx workbooks
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Write renders the purchases to w as a single-sheet workbook, newest
// ordering preserved from the input
func (e *Exporter) Write(w io.Writer, purchases []*entity.Purchase) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, col.header); err != nil {
			return fmt.Errorf("failed to set header: %w", err)
		}

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column name: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, col.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for rowIdx, p := range purchases {
		row := e.purchaseRow(p)
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row cell: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Purchase export generated", zap.Int("rows", len(purchases)))
	return nil
}

// purchaseRow flattens a purchase into export cells. Missing OCR fields
// render as N/A, matching how reviewers read the sheet.
func (e *Exporter) purchaseRow(p *entity.Purchase) []interface{} {
	ocrVendor := "N/A"
	ocrAmount := interface{}("N/A")
	ocrInvoice := "N/A"
	ocrTax := "N/A"
	ocrConfidence := "N/A"

	if p.Extracted != nil {
		if p.Extracted.VendorName != "" {
			ocrVendor = p.Extracted.VendorName
		}
		if p.Extracted.Amount != 0 {
			ocrAmount = p.Extracted.Amount
		}
		if p.Extracted.InvoiceNumber != "" {
			ocrInvoice = p.Extracted.InvoiceNumber
		}
		if p.Extracted.TaxNumber != "" {
			ocrTax = p.Extracted.TaxNumber
		}
		ocrConfidence = fmt.Sprintf("%.0f%%", p.Extracted.Confidence)
	}

	return []interface{}{
		p.CreatedAt.Format("2006-01-02 15:04:05"),
		p.UploaderName,
		p.VendorName,
		string(p.Purpose),
		p.Amount,
		string(p.Hub),
		string(p.BillType),
		p.PaymentDate.Format("2006-01-02"),
		string(p.Status),
		ocrVendor,
		ocrAmount,
		ocrInvoice,
		ocrTax,
		ocrConfidence,
	}
}
