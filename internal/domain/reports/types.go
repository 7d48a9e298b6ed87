// Package reports provides stock and invoice report generation.
package reports

import (
	"bytes"
	"encoding/json"
	"time"

	"stockbook/internal/domain/invoice"
)

// DateLayout is the layout of report date parameters.
const DateLayout = "2006-01-02"

// MaxMovementDays bounds the stock movement window (inclusive).
const MaxMovementDays = 31

// Product is a catalogue entry.
type Product struct {
	Code        string
	Description string
}

// Snapshot is a consistent read of everything the reports need.
type Snapshot struct {
	Products     []Product
	Inward       []invoice.InwardInvoice
	Outward      []invoice.OutwardInvoice
	Customers    []string
	Destinations []string
}

// --- Stock Summary ---

// StockRow is one product line of the stock summary.
type StockRow struct {
	ProductCode        string `json:"productCode"`
	ProductDescription string `json:"productDescription"`
	InwardQuantity     int64  `json:"inwardQuantity"`
	OutwardQuantity    int64  `json:"outwardQuantity"`
	DamagedQuantity    int64  `json:"damagedQuantity"`
	PhysicalQuantity   int64  `json:"physicalQuantity"`
}

// --- Dashboard ---

// DashboardSummary holds the headline totals of the dashboard.
type DashboardSummary struct {
	TotalPhysicalQuantity int64 `json:"totalPhysicalQuantity"`
	TotalInwardQuantity   int64 `json:"totalInwardQuantity"`
	TotalOutwardQuantity  int64 `json:"totalOutwardQuantity"`
	TotalDamagedQuantity  int64 `json:"totalDamagedQuantity"`
	TotalInwardInvoices   int   `json:"totalInwardInvoices"`
	TotalOutwardInvoices  int   `json:"totalOutwardInvoices"`
	TotalProducts         int   `json:"totalProducts"`
	TotalCustomers        int   `json:"totalCustomers"`
	TotalDestinations     int   `json:"totalDestinations"`
}

// --- Stock Movement ---

// MovementRow holds the daily inward and outward quantities of one product.
type MovementRow struct {
	ProductCode        string
	ProductDescription string
	In                 map[string]int64
	Out                map[string]int64

	dates []string
}

// MarshalJSON renders the row flat, as
// {"productCode", "productDescription", "<date>_IN", "<date>_OUT", ...}
// with dates in ascending order.
func (r MovementRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write("productCode", r.ProductCode); err != nil {
		return nil, err
	}
	if err := write("productDescription", r.ProductDescription); err != nil {
		return nil, err
	}
	for _, d := range r.dates {
		if err := write(d+"_IN", r.In[d]); err != nil {
			return nil, err
		}
		if err := write(d+"_OUT", r.Out[d]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Movement is the stock movement pivot over a date range.
type Movement struct {
	StartDate time.Time
	EndDate   time.Time
	Dates     []string
	Rows      []MovementRow
}

// --- Invoice Report ---

// Item statuses on inward invoice reports.
const (
	StatusGood    = "Good"
	StatusDamaged = "Damaged"
)

// InvoiceReportRow is one IMEI of one invoice item.
type InvoiceReportRow struct {
	InvoiceNumber      string `json:"invoiceNumber"`
	InvoiceDate        string `json:"invoiceDate"`
	DeliveryDate       string `json:"deliveryDate,omitempty"`
	CustomerName       string `json:"customerName,omitempty"`
	Destination        string `json:"destination,omitempty"`
	Transporter        string `json:"transporter"`
	DocketNumber       string `json:"docketNumber"`
	ProductCode        string `json:"productCode"`
	ProductDescription string `json:"productDescription"`
	IMEI               string `json:"imei"`
	Status             string `json:"status,omitempty"`
	DamageReason       string `json:"damageReason,omitempty"`
}

// InvoiceReport lists every IMEI of the invoices dated within a range.
type InvoiceReport struct {
	Direction invoice.Direction  `json:"type"`
	StartDate string             `json:"startDate"`
	EndDate   string             `json:"endDate"`
	Rows      []InvoiceReportRow `json:"rows"`
}
