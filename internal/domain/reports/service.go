package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/domain/invoice"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) snapshot(ctx context.Context) (*Snapshot, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewStorage("read report data", err)
	}
	return snap, nil
}

// StockSummary returns the per-product quantities. Products follow catalogue
// order; codes that only appear on invoices are appended in order of first use.
func (s *Service) StockSummary(ctx context.Context) ([]StockRow, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return stockRows(snap), nil
}

func stockRows(snap *Snapshot) []StockRow {
	rows := make([]StockRow, 0, len(snap.Products))
	byCode := make(map[string]int, len(snap.Products))

	row := func(code string) *StockRow {
		if i, ok := byCode[code]; ok {
			return &rows[i]
		}
		byCode[code] = len(rows)
		rows = append(rows, StockRow{ProductCode: code})
		return &rows[len(rows)-1]
	}

	for _, p := range snap.Products {
		r := row(p.Code)
		if r.ProductDescription == "" {
			r.ProductDescription = p.Description
		}
	}
	for _, inv := range snap.Inward {
		for _, it := range inv.Items {
			r := row(it.ProductCode)
			r.InwardQuantity += it.Quantity
			r.DamagedQuantity += it.DamagedQuantity
		}
	}
	for _, inv := range snap.Outward {
		for _, it := range inv.Items {
			row(it.ProductCode).OutwardQuantity += it.Quantity
		}
	}

	for i := range rows {
		rows[i].PhysicalQuantity = rows[i].InwardQuantity - rows[i].OutwardQuantity
	}
	return rows
}

// Dashboard returns the headline totals.
func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	sum := &DashboardSummary{
		TotalInwardInvoices:  len(snap.Inward),
		TotalOutwardInvoices: len(snap.Outward),
		TotalProducts:        len(snap.Products),
	}
	for _, r := range stockRows(snap) {
		sum.TotalInwardQuantity += r.InwardQuantity
		sum.TotalOutwardQuantity += r.OutwardQuantity
		sum.TotalDamagedQuantity += r.DamagedQuantity
		sum.TotalPhysicalQuantity += r.PhysicalQuantity
	}

	customers := distinct(snap.Customers)
	destinations := distinct(snap.Destinations)
	for _, inv := range snap.Outward {
		customers.add(inv.CustomerName)
		destinations.add(inv.Destination)
	}
	sum.TotalCustomers = len(customers)
	sum.TotalDestinations = len(destinations)

	return sum, nil
}

type nameSet map[string]struct{}

func distinct(names []string) nameSet {
	set := make(nameSet, len(names))
	for _, n := range names {
		set.add(n)
	}
	return set
}

func (s nameSet) add(name string) {
	if name = strings.TrimSpace(name); name != "" {
		s[strings.ToLower(name)] = struct{}{}
	}
}

// StockMovement pivots daily inward and outward quantities per product over
// [startDate, endDate]. The window may span at most MaxMovementDays days.
func (s *Service) StockMovement(ctx context.Context, startDate, endDate string) (*Movement, error) {
	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if int(end.Sub(start).Hours()/24) > MaxMovementDays-1 {
		return nil, apperror.NewValidation(fmt.Sprintf("Date range cannot exceed %d days", MaxMovementDays))
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, MaxMovementDays)
	inRange := make(map[string]bool, MaxMovementDays)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		dates = append(dates, key)
		inRange[key] = true
	}

	rows := make([]MovementRow, 0, len(snap.Products))
	byCode := make(map[string]int, len(snap.Products))
	row := func(code string) *MovementRow {
		if i, ok := byCode[code]; ok {
			return &rows[i]
		}
		byCode[code] = len(rows)
		rows = append(rows, MovementRow{
			ProductCode: code,
			In:          make(map[string]int64),
			Out:         make(map[string]int64),
			dates:       dates,
		})
		return &rows[len(rows)-1]
	}

	for _, p := range snap.Products {
		r := row(p.Code)
		if r.ProductDescription == "" {
			r.ProductDescription = p.Description
		}
	}
	for _, inv := range snap.Inward {
		day, ok := dayOf(inv.MovementDate())
		if !ok || !inRange[day] {
			continue
		}
		for _, it := range inv.Items {
			row(it.ProductCode).In[day] += it.Quantity
		}
	}
	for _, inv := range snap.Outward {
		day, ok := dayOf(inv.InvoiceDate)
		if !ok || !inRange[day] {
			continue
		}
		for _, it := range inv.Items {
			row(it.ProductCode).Out[day] += it.Quantity
		}
	}

	return &Movement{StartDate: start, EndDate: end, Dates: dates, Rows: rows}, nil
}

// InvoiceReport lists one row per IMEI of every invoice of the given direction
// whose invoice date lies in [startDate, endDate].
func (s *Service) InvoiceReport(ctx context.Context, direction, startDate, endDate string) (*InvoiceReport, error) {
	dir := invoice.Direction(strings.ToLower(strings.TrimSpace(direction)))
	if dir != invoice.Inward && dir != invoice.Outward {
		return nil, apperror.NewValidation("type must be inward or outward").
			WithDetail("type", direction)
	}
	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	descriptions := make(map[string]string, len(snap.Products))
	for _, p := range snap.Products {
		if _, ok := descriptions[p.Code]; !ok {
			descriptions[p.Code] = p.Description
		}
	}
	within := func(date string) bool {
		day, ok := dayOf(date)
		if !ok {
			return false
		}
		t, _ := time.Parse(DateLayout, day)
		return !t.Before(start) && !t.After(end)
	}

	report := &InvoiceReport{
		Direction: dir,
		StartDate: start.Format(DateLayout),
		EndDate:   end.Format(DateLayout),
		Rows:      []InvoiceReportRow{},
	}

	if dir == invoice.Inward {
		for _, inv := range snap.Inward {
			if !within(inv.InvoiceDate) {
				continue
			}
			for _, it := range inv.Items {
				base := InvoiceReportRow{
					InvoiceNumber:      inv.InvoiceNumber,
					InvoiceDate:        inv.InvoiceDate,
					DeliveryDate:       inv.DeliveryDate,
					Transporter:        inv.Transporter,
					DocketNumber:       inv.DocketNumber,
					ProductCode:        it.ProductCode,
					ProductDescription: descriptions[it.ProductCode],
				}
				for _, imei := range it.IMEIs {
					r := base
					r.IMEI, r.Status = imei, StatusGood
					report.Rows = append(report.Rows, r)
				}
				for _, imei := range it.DamagedIMEIs {
					r := base
					r.IMEI, r.Status, r.DamageReason = imei, StatusDamaged, inv.DamageReason
					report.Rows = append(report.Rows, r)
				}
			}
		}
		return report, nil
	}

	for _, inv := range snap.Outward {
		if !within(inv.InvoiceDate) {
			continue
		}
		for _, it := range inv.Items {
			for _, imei := range it.IMEIs {
				report.Rows = append(report.Rows, InvoiceReportRow{
					InvoiceNumber:      inv.InvoiceNumber,
					InvoiceDate:        inv.InvoiceDate,
					CustomerName:       inv.CustomerName,
					Destination:        inv.Destination,
					Transporter:        inv.Transporter,
					DocketNumber:       inv.DocketNumber,
					ProductCode:        it.ProductCode,
					ProductDescription: descriptions[it.ProductCode],
					IMEI:               imei,
				})
			}
		}
	}
	return report, nil
}

// parseRange validates a pair of YYYY-MM-DD dates with end >= start.
func parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	if startDate == "" || endDate == "" {
		return time.Time{}, time.Time{}, apperror.NewValidation("startDate and endDate are required")
	}
	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.NewValidation("invalid startDate: expected YYYY-MM-DD").
			WithDetail("startDate", startDate)
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.NewValidation("invalid endDate: expected YYYY-MM-DD").
			WithDetail("endDate", endDate)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperror.NewValidation("End date must be after start date")
	}
	return start, end, nil
}

// dayOf extracts the calendar day of a stored date. Full timestamps such as
// "2024-01-02T10:00:00Z" are truncated to their date part.
func dayOf(date string) (string, bool) {
	date = strings.TrimSpace(date)
	if len(date) < len(DateLayout) {
		return "", false
	}
	day := date[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, day); err != nil {
		return "", false
	}
	return day, true
}
