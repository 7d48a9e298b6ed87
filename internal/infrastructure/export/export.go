// Package export renders reports as Excel workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"stockbook/internal/domain/invoice"
	"stockbook/internal/domain/reports"
)

// ContentType is the MIME type of .xlsx files.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	movementSheet = "Stock Movement"
	invoiceSheet  = "Invoices"
)

// StockMovement renders the movement pivot with a two-row header:
//
//	S. No | Product Code | Product Description | <date> |     | <date> | ...
//	      |              |                     | IN     | OUT | IN     | ...
func StockMovement(mv *reports.Movement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", movementSheet); err != nil {
		return nil, err
	}

	top := []any{"S. No", "Product Code", "Product Description"}
	sub := []any{"", "", ""}
	for _, d := range mv.Dates {
		top = append(top, d, "")
		sub = append(sub, "IN", "OUT")
	}
	if err := setRow(f, movementSheet, 1, top); err != nil {
		return nil, err
	}
	if err := setRow(f, movementSheet, 2, sub); err != nil {
		return nil, err
	}

	// Each date spans its IN and OUT columns.
	for i := range mv.Dates {
		from, _ := excelize.CoordinatesToCellName(4+2*i, 1)
		to, _ := excelize.CoordinatesToCellName(5+2*i, 1)
		if err := f.MergeCell(movementSheet, from, to); err != nil {
			return nil, fmt.Errorf("merge header: %w", err)
		}
	}

	for i, r := range mv.Rows {
		values := []any{i + 1, r.ProductCode, r.ProductDescription}
		for _, d := range mv.Dates {
			values = append(values, r.In[d], r.Out[d])
		}
		if err := setRow(f, movementSheet, i+3, values); err != nil {
			return nil, err
		}
	}

	return write(f)
}

// InvoiceReport renders one row per IMEI.
func InvoiceReport(report *reports.InvoiceReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return nil, err
	}

	inward := report.Direction == invoice.Inward
	header := []any{"S. No", "Invoice Number", "Invoice Date"}
	if inward {
		header = append(header, "Delivery Date")
	} else {
		header = append(header, "Customer Name", "Destination")
	}
	header = append(header, "Transporter", "Docket Number", "Product Code", "Product Description", "IMEI")
	if inward {
		header = append(header, "Status", "Damage Reason")
	}
	if err := setRow(f, invoiceSheet, 1, header); err != nil {
		return nil, err
	}

	for i, r := range report.Rows {
		values := []any{i + 1, r.InvoiceNumber, r.InvoiceDate}
		if inward {
			values = append(values, r.DeliveryDate)
		} else {
			values = append(values, r.CustomerName, r.Destination)
		}
		values = append(values, r.Transporter, r.DocketNumber, r.ProductCode, r.ProductDescription, r.IMEI)
		if inward {
			values = append(values, r.Status, r.DamageReason)
		}
		if err := setRow(f, invoiceSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	return write(f)
}

// FileName returns the download name of an invoice report.
func FileName(report *reports.InvoiceReport) string {
	return fmt.Sprintf("%s_invoice_report_%s_%s.xlsx", report.Direction, report.StartDate, report.EndDate)
}

func setRow(f *excelize.File, sheetName string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func write(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
