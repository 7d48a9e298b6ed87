// Package sheet models the tabular store: named sheets with a header row of
// UPPER_SNAKE_CASE columns followed by rows of string cells.
package sheet

// Kind describes how a cell is interpreted on read and produced on write.
type Kind int

const (
	// KindText cells are returned as strings.
	KindText Kind = iota
	// KindNumber cells hold integer quantities.
	KindNumber
	// KindList cells hold a JSON array of strings serialized into one cell.
	KindList
)

// Column is one header cell of a sheet.
type Column struct {
	Name string
	Kind Kind
}

// Table is the schema of a sheet.
type Table struct {
	Name    string
	Columns []Column
}

// Header returns the column names in storage order.
func (t Table) Header() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// KindOf returns the kind of the named column. Unknown columns are text.
func (t Table) KindOf(column string) Kind {
	for _, c := range t.Columns {
		if c.Name == column {
			return c.Kind
		}
	}
	return KindText
}

// Sheet names.
const (
	Products            = "PRODUCTS"
	InwardInvoices      = "INWARD_INVOICES"
	InwardInvoiceItems  = "INWARD_INVOICE_ITEMS"
	OutwardInvoices     = "OUTWARD_INVOICES"
	OutwardInvoiceItems = "OUTWARD_INVOICE_ITEMS"
	Transporters        = "TRANSPORTERS"
	Customers           = "CUSTOMERS"
	Destinations        = "DESTINATIONS"
)

// Column names shared by several sheets.
const (
	ColProductCode        = "PRODUCT_CODE"
	ColProductDescription = "PRODUCT_DESCRIPTION"
	ColInvoiceNumber      = "INVOICE_NUMBER"
	ColInvoiceDate        = "INVOICE_DATE"
	ColDeliveryDate       = "DELIVERY_DATE"
	ColTransporter        = "TRANSPORTER"
	ColDocketNumber       = "DOCKET_NUMBER"
	ColDamageReason       = "DAMAGE_REASON"
	ColCustomerName       = "CUSTOMER_NAME"
	ColDestination        = "DESTINATION"
	ColQuantity           = "QUANTITY"
	ColIMEIs              = "IMEIS"
	ColDamagedQuantity    = "DAMAGED_QUANTITY"
	ColDamagedIMEIs       = "DAMAGED_IMEIS"
	ColName               = "NAME"
)

func text(name string) Column { return Column{Name: name, Kind: KindText} }

var (
	ProductsTable = Table{Name: Products, Columns: []Column{
		text(ColProductCode),
		text(ColProductDescription),
	}}

	InwardInvoicesTable = Table{Name: InwardInvoices, Columns: []Column{
		text(ColInvoiceNumber),
		text(ColInvoiceDate),
		text(ColDeliveryDate),
		text(ColTransporter),
		text(ColDocketNumber),
		text(ColDamageReason),
	}}

	InwardInvoiceItemsTable = Table{Name: InwardInvoiceItems, Columns: []Column{
		text(ColInvoiceNumber),
		text(ColProductCode),
		{Name: ColQuantity, Kind: KindNumber},
		{Name: ColIMEIs, Kind: KindList},
		{Name: ColDamagedQuantity, Kind: KindNumber},
		{Name: ColDamagedIMEIs, Kind: KindList},
	}}

	OutwardInvoicesTable = Table{Name: OutwardInvoices, Columns: []Column{
		text(ColInvoiceNumber),
		text(ColInvoiceDate),
		text(ColCustomerName),
		text(ColDestination),
		text(ColTransporter),
		text(ColDocketNumber),
	}}

	OutwardInvoiceItemsTable = Table{Name: OutwardInvoiceItems, Columns: []Column{
		text(ColInvoiceNumber),
		text(ColProductCode),
		{Name: ColQuantity, Kind: KindNumber},
		{Name: ColIMEIs, Kind: KindList},
	}}

	TransportersTable = Table{Name: Transporters, Columns: []Column{text(ColName)}}
	CustomersTable    = Table{Name: Customers, Columns: []Column{text(ColName)}}
	DestinationsTable = Table{Name: Destinations, Columns: []Column{text(ColName)}}
)

// Tables returns every sheet the service needs, in creation order.
func Tables() []Table {
	return []Table{
		ProductsTable,
		InwardInvoicesTable,
		InwardInvoiceItemsTable,
		OutwardInvoicesTable,
		OutwardInvoiceItemsTable,
		TransportersTable,
		CustomersTable,
		DestinationsTable,
	}
}
