// Package invoice provides the inward and outward invoice documents and
// the IMEI rules their items must satisfy.
package invoice

import (
	"encoding/json"
	"fmt"

	"stockbook/internal/domain/sheet"
)

// Direction tells inward (received) from outward (shipped) invoices.
type Direction string

const (
	Inward  Direction = "inward"
	Outward Direction = "outward"
)

// Item is one product line of an invoice.
type Item struct {
	ProductCode     string   `json:"productCode" validate:"required"`
	Quantity        int64    `json:"quantity" validate:"min=1"`
	IMEIs           []string `json:"imeis" validate:"dive,imei"`
	DamagedQuantity int64    `json:"damagedQuantity,omitempty" validate:"min=0"`
	DamagedIMEIs    []string `json:"damagedImeis,omitempty" validate:"dive,imei"`
}

// UnmarshalJSON accepts each IMEI set either as an array or as a
// newline-separated block, the two shapes the sheet layer can store.
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var raw struct {
		plain
		IMEIs        json.RawMessage `json:"imeis"`
		DamagedIMEIs json.RawMessage `json:"damagedImeis"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	imeis, err := decodeIMEIs(raw.IMEIs)
	if err != nil {
		return fmt.Errorf("imeis: %w", err)
	}
	damaged, err := decodeIMEIs(raw.DamagedIMEIs)
	if err != nil {
		return fmt.Errorf("damagedImeis: %w", err)
	}

	*it = Item(raw.plain)
	it.IMEIs = imeis
	it.DamagedIMEIs = damaged
	return nil
}

func decodeIMEIs(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var block string
		if err := json.Unmarshal(raw, &block); err != nil {
			return nil, err
		}
		return sheet.SplitLines(block), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// InwardInvoice records goods received from a supplier.
type InwardInvoice struct {
	InvoiceNumber string `json:"invoiceNumber" validate:"required"`
	InvoiceDate   string `json:"invoiceDate" validate:"required"`
	DeliveryDate  string `json:"deliveryDate" validate:"required"`
	Transporter   string `json:"transporter" validate:"required"`
	DocketNumber  string `json:"docketNumber" validate:"required"`
	DamageReason  string `json:"damageReason,omitempty"`
	Items         []Item `json:"items" validate:"dive"`
}

// OutwardInvoice records goods shipped to a customer.
// Outward items carry no damaged units.
type OutwardInvoice struct {
	InvoiceNumber string `json:"invoiceNumber" validate:"required"`
	InvoiceDate   string `json:"invoiceDate" validate:"required"`
	CustomerName  string `json:"customerName" validate:"required"`
	Destination   string `json:"destination" validate:"required"`
	Transporter   string `json:"transporter" validate:"required"`
	DocketNumber  string `json:"docketNumber" validate:"required"`
	Items         []Item `json:"items" validate:"dive"`
}

// DamagedTotal sums damaged units over all items.
func (inv *InwardInvoice) DamagedTotal() int64 {
	var total int64
	for _, it := range inv.Items {
		total += it.DamagedQuantity
		if it.DamagedQuantity == 0 {
			total += int64(len(it.DamagedIMEIs))
		}
	}
	return total
}

// MovementDate is the date goods physically arrived: the delivery date, or
// the invoice date when no delivery date was recorded.
func (inv *InwardInvoice) MovementDate() string {
	if inv.DeliveryDate != "" {
		return inv.DeliveryDate
	}
	return inv.InvoiceDate
}

// --- Decoding from sheet records ---

// InwardFromRecord builds an invoice header from a decoded INWARD_INVOICES row.
func InwardFromRecord(rec sheet.Record) InwardInvoice {
	return InwardInvoice{
		InvoiceNumber: rec.String("invoiceNumber"),
		InvoiceDate:   rec.String("invoiceDate"),
		DeliveryDate:  rec.String("deliveryDate"),
		Transporter:   rec.String("transporter"),
		DocketNumber:  rec.String("docketNumber"),
		DamageReason:  rec.String("damageReason"),
	}
}

// OutwardFromRecord builds an invoice header from a decoded OUTWARD_INVOICES row.
func OutwardFromRecord(rec sheet.Record) OutwardInvoice {
	return OutwardInvoice{
		InvoiceNumber: rec.String("invoiceNumber"),
		InvoiceDate:   rec.String("invoiceDate"),
		CustomerName:  rec.String("customerName"),
		Destination:   rec.String("destination"),
		Transporter:   rec.String("transporter"),
		DocketNumber:  rec.String("docketNumber"),
	}
}

// ItemFromRecord builds an item from a decoded *_INVOICE_ITEMS row.
func ItemFromRecord(rec sheet.Record) Item {
	return Item{
		ProductCode:     rec.String("productCode"),
		Quantity:        asInt(rec["quantity"]),
		IMEIs:           asList(rec["imeis"]),
		DamagedQuantity: asInt(rec["damagedQuantity"]),
		DamagedIMEIs:    asList(rec["damagedImeis"]),
	}
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		q, _ := sheet.ParseQuantity(n)
		return q
	default:
		return 0
	}
}

func asList(v any) []string {
	if l, ok := v.([]string); ok {
		return l
	}
	return nil
}
