package dto

const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// StockMovementRequest represents the query of the stock movement report.
// Dates are validated by the report service so that every client gets the
// same messages.
type StockMovementRequest struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Format    string `form:"format" binding:"omitempty,oneof=json xlsx"`
}

// WantsWorkbook reports whether the caller asked for an Excel download.
func (r StockMovementRequest) WantsWorkbook() bool {
	return r.Format == FormatXLSX
}

// InvoiceReportRequest represents the query of the invoice report.
type InvoiceReportRequest struct {
	Type      string `form:"type"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Format    string `form:"format" binding:"omitempty,oneof=json xlsx"`
}

// WantsJSON reports whether the caller asked for rows instead of a workbook.
func (r InvoiceReportRequest) WantsJSON() bool {
	return r.Format == FormatJSON
}
