package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/domain/invoice"
	"stockbook/internal/domain/sheet"
	"stockbook/internal/infrastructure/storage/memory"
)

const (
	imei1 = "111111111111111"
	imei2 = "222222222222222"
	imei3 = "333333333333333"
)

func newTestDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *memory.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, sheet.EnsureAll(context.Background(), store, sheet.Tables()))
	return NewDispatcher(store, opts...), store
}

func seedInvoices(store *memory.Store) {
	store.Load(sheet.InwardInvoices, sheet.InwardInvoicesTable.Header(),
		[]string{"INV1", "2024-01-01", "2024-01-02", "T1", "D1", ""},
		[]string{"INV2", "2024-01-03", "2024-01-04", "T2", "D2", ""},
	)
	store.Load(sheet.InwardInvoiceItems, sheet.InwardInvoiceItemsTable.Header(),
		[]string{"INV1", "P1", "1", `["` + imei1 + `"]`, "0", "[]"},
		[]string{"INV2", "P2", "1", `["` + imei2 + `"]`, "0", "[]"},
		[]string{"INV1", "P2", "1", `["` + imei3 + `"]`, "0", "[]"},
	)
}

func rowCount(t *testing.T, store sheet.Store, name string) int {
	t.Helper()
	data, err := store.Rows(context.Background(), name)
	require.NoError(t, err)
	return len(data.Rows)
}

func requireAppError(t *testing.T, err error, status int) *apperror.AppError {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, status, appErr.HTTPStatus)
	return appErr
}

func inwardPayload(number string, items ...invoice.Item) json.RawMessage {
	b, _ := json.Marshal(invoice.InwardInvoice{
		InvoiceNumber: number,
		InvoiceDate:   "2024-01-01",
		DeliveryDate:  "2024-01-02",
		Transporter:   "T1",
		DocketNumber:  "D1",
		Items:         items,
	})
	return b
}

func TestDispatch_ListCountsRows(t *testing.T) {
	d, store := newTestDispatcher(t)
	seedInvoices(store)
	store.Load(sheet.Products, sheet.ProductsTable.Header(), []string{"P1", "Phone"})

	for _, name := range d.Registry().Names() {
		t.Run(name, func(t *testing.T) {
			def, _ := d.Registry().Lookup(name)
			resp, err := d.Dispatch(context.Background(), Request{Method: http.MethodGet, Resource: name})
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.Len(t, resp.Body, rowCount(t, store, def.Table.Name))
		})
	}
}

func TestDispatch_ListAddsID(t *testing.T) {
	d, store := newTestDispatcher(t)
	store.Load(sheet.Products, sheet.ProductsTable.Header(), []string{"P1", "Phone"})

	resp, err := d.Dispatch(context.Background(), Request{Method: http.MethodGet, Resource: "products"})
	require.NoError(t, err)

	assert.Equal(t, []sheet.Record{{
		"productCode":        "P1",
		"productDescription": "Phone",
		"id":                 "P1",
	}}, resp.Body)
}

func TestDispatch_GetAttachesItems(t *testing.T) {
	d, store := newTestDispatcher(t)
	seedInvoices(store)

	resp, err := d.Dispatch(context.Background(), Request{Method: http.MethodGet, Resource: "inward-invoices", ResourceID: "INV1"})
	require.NoError(t, err)

	rec := resp.Body.(sheet.Record)
	assert.Equal(t, "INV1", rec["invoiceNumber"])
	assert.Equal(t, "INV1", rec["id"])
	assert.Equal(t, []any{
		invoice.Item{ProductCode: "P1", Quantity: 1, IMEIs: []string{imei1}, DamagedIMEIs: []string{}},
		invoice.Item{ProductCode: "P2", Quantity: 1, IMEIs: []string{imei3}, DamagedIMEIs: []string{}},
	}, rec["items"])
}

func TestDispatch_DeleteUnknownIsNotFound(t *testing.T) {
	d, store := newTestDispatcher(t)
	seedInvoices(store)
	before := rowCount(t, store, sheet.InwardInvoiceItems)

	_, err := d.Dispatch(context.Background(), Request{Method: http.MethodDelete, Resource: "outward-invoices", ResourceID: "UNKNOWN"})
	appErr := requireAppError(t, err, http.StatusNotFound)
	assert.Equal(t, "outward-invoice UNKNOWN not found", appErr.Message)

	_, err = d.Dispatch(context.Background(), Request{Method: http.MethodDelete, Resource: "inward-invoices", ResourceID: "NOPE"})
	requireAppError(t, err, http.StatusNotFound)

	assert.Equal(t, 2, rowCount(t, store, sheet.InwardInvoices))
	assert.Equal(t, before, rowCount(t, store, sheet.InwardInvoiceItems))
}

func TestDispatch_DeleteRemovesParentAndItems(t *testing.T) {
	d, store := newTestDispatcher(t)
	seedInvoices(store)

	resp, err := d.Dispatch(context.Background(), Request{Method: http.MethodDelete, Resource: "inward-invoices", ResourceID: "INV1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, StatusBody{Status: "Successfully deleted inward-invoice INV1"}, resp.Body)

	assert.Equal(t, 1, rowCount(t, store, sheet.InwardInvoices))
	assert.Equal(t, 1, rowCount(t, store, sheet.InwardInvoiceItems))
}

func TestDispatch_DuplicateKeyGetFirstDeleteLast(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()
	store.Load(sheet.Products, sheet.ProductsTable.Header(),
		[]string{"P1", "first"},
		[]string{" P1 ", "second"},
	)

	resp, err := d.Dispatch(ctx, Request{Method: http.MethodGet, Resource: "products", ResourceID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Body.(sheet.Record)["productDescription"])

	_, err = d.Dispatch(ctx, Request{Method: http.MethodDelete, Resource: "products", ResourceID: "P1"})
	require.NoError(t, err)

	data, err := store.Rows(ctx, sheet.Products)
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "first", data.Rows[0].Cell(1))
}

func TestDispatch_CreateThenGet(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"invoiceNumber":"INV100","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
		"transporter":"T1","docketNumber":"D1",
		"items":[{"productCode":"P1","quantity":2,"imeis":["111111111111111","222222222222222"]}]}`)

	resp, err := d.Dispatch(ctx, Request{Method: http.MethodPost, Resource: "inward-invoices", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, StatusBody{Status: "Created inward-invoice successfully"}, resp.Body)

	resp, err = d.Dispatch(ctx, Request{Method: http.MethodGet, Resource: "inward-invoices", ResourceID: "INV100"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	body, err := json.Marshal(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":"INV100","invoiceNumber":"INV100","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
		"transporter":"T1","docketNumber":"D1","damageReason":"",
		"items":[{"productCode":"P1","quantity":2,"imeis":["111111111111111","222222222222222"]}]
	}`, string(body))
}

func TestDispatch_CreateKeepsItemOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	items := []invoice.Item{
		{ProductCode: "P3", Quantity: 1, IMEIs: []string{imei3}},
		{ProductCode: "P1", Quantity: 2, IMEIs: []string{imei2, imei1}},
	}
	_, err := d.Dispatch(ctx, Request{Method: http.MethodPost, Resource: "inward-invoices", Payload: inwardPayload("INV9", items...)})
	require.NoError(t, err)

	resp, err := d.Dispatch(ctx, Request{Method: http.MethodGet, Resource: "inward-invoices", ResourceID: "INV9"})
	require.NoError(t, err)

	got := resp.Body.(sheet.Record)["items"].([]any)
	require.Len(t, got, 2)
	assert.Equal(t, "P3", got[0].(invoice.Item).ProductCode)
	assert.Equal(t, []string{imei2, imei1}, got[1].(invoice.Item).IMEIs)
}

func TestDispatch_UpdateReplacesItems(t *testing.T) {
	d, store := newTestDispatcher(t)
	seedInvoices(store)
	ctx := context.Background()

	payload := inwardPayload("INV1", invoice.Item{ProductCode: "P9", Quantity: 1, IMEIs: []string{imei2}})
	resp, err := d.Dispatch(ctx, Request{Method: http.MethodPut, Resource: "inward-invoices", ResourceID: "INV1", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, StatusBody{Status: "Updated inward-invoice successfully"}, resp.Body)

	resp, err = d.Dispatch(ctx, Request{Method: http.MethodGet, Resource: "inward-invoices", ResourceID: "INV1"})
	require.NoError(t, err)
	items := resp.Body.(sheet.Record)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "P9", items[0].(invoice.Item).ProductCode)

	// INV2's item is untouched.
	assert.Equal(t, 2, rowCount(t, store, sheet.InwardInvoiceItems))
}

func TestDispatch_UpdateUnknownDoesNotCreate(t *testing.T) {
	d, store := newTestDispatcher(t)
	seedInvoices(store)

	_, err := d.Dispatch(context.Background(), Request{
		Method: http.MethodPut, Resource: "inward-invoices", ResourceID: "INV404",
		Payload: inwardPayload("INV404"),
	})
	requireAppError(t, err, http.StatusNotFound)
	assert.Equal(t, 2, rowCount(t, store, sheet.InwardInvoices))
}

func TestDispatch_FailedUpdateRollsBack(t *testing.T) {
	d, store := newTestDispatcher(t)
	seedInvoices(store)

	// Renaming INV1 to INV2 collides with the existing INV2.
	_, err := d.Dispatch(context.Background(), Request{
		Method: http.MethodPut, Resource: "inward-invoices", ResourceID: "INV1",
		Payload: inwardPayload("INV2", invoice.Item{ProductCode: "P1", Quantity: 1, IMEIs: []string{imei1}}),
	})
	requireAppError(t, err, http.StatusConflict)

	assert.Equal(t, 2, rowCount(t, store, sheet.InwardInvoices))
	assert.Equal(t, 3, rowCount(t, store, sheet.InwardInvoiceItems))
	_, err = d.Dispatch(context.Background(), Request{Method: http.MethodGet, Resource: "inward-invoices", ResourceID: "INV1"})
	assert.NoError(t, err)
}

func TestDispatch_CreateDuplicateIsConflict(t *testing.T) {
	d, store := newTestDispatcher(t)
	seedInvoices(store)

	_, err := d.Dispatch(context.Background(), Request{Method: http.MethodPost, Resource: "inward-invoices", Payload: inwardPayload("INV1")})
	requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, 2, rowCount(t, store, sheet.InwardInvoices))
}

func TestDispatch_Errors(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tests := []struct {
		name    string
		req     Request
		status  int
		message string
	}{
		{
			name:    "unknown resource",
			req:     Request{Method: http.MethodGet, Resource: "widgets"},
			status:  http.StatusBadRequest,
			message: "Unknown resource",
		},
		{
			name:    "unknown method",
			req:     Request{Method: http.MethodPatch, Resource: "products"},
			status:  http.StatusMethodNotAllowed,
			message: "Unknown method PATCH",
		},
		{
			name:    "delete without id",
			req:     Request{Method: http.MethodDelete, Resource: "products"},
			status:  http.StatusBadRequest,
			message: "resourceId not provided",
		},
		{
			name:    "update without id",
			req:     Request{Method: http.MethodPut, Resource: "products", Payload: json.RawMessage(`{"productCode":"P1"}`)},
			status:  http.StatusBadRequest,
			message: "resourceId not provided",
		},
		{
			name:   "malformed payload",
			req:    Request{Method: http.MethodPost, Resource: "products", Payload: json.RawMessage(`{"productCode":`)},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing payload",
			req:    Request{Method: http.MethodPost, Resource: "products"},
			status: http.StatusBadRequest,
		},
		{
			name:    "missing key",
			req:     Request{Method: http.MethodPost, Resource: "customers", Payload: json.RawMessage(`{"name":"  "}`)},
			status:  http.StatusBadRequest,
			message: "name is required",
		},
		{
			name: "imei shared by two items",
			req: Request{Method: http.MethodPost, Resource: "inward-invoices", Payload: inwardPayload("INV7",
				invoice.Item{ProductCode: "P1", Quantity: 1, IMEIs: []string{imei1}},
				invoice.Item{ProductCode: "P2", Quantity: 1, IMEIs: []string{imei1}},
			)},
			status:  http.StatusBadRequest,
			message: "items[1].imeis: duplicate IMEI " + imei1,
		},
		{
			name:   "invalid imei",
			req:    Request{Method: http.MethodPost, Resource: "inward-invoices", Payload: inwardPayload("INV5", invoice.Item{ProductCode: "P1", Quantity: 1, IMEIs: []string{"12"}})},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(context.Background(), tt.req)
			appErr := requireAppError(t, err, tt.status)
			if tt.message != "" {
				assert.Equal(t, tt.message, appErr.Message)
			}
		})
	}
}

func TestDispatch_UnknownResourceListsKnown(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), Request{Method: http.MethodGet, Resource: "widgets"})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "widgets", appErr.Details["resource"])
	assert.Contains(t, appErr.Details["known"], "inward-invoices")
}

func TestDispatch_CreateAcceptsIMEIBlock(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"invoiceNumber":"INV9","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
		"transporter":"T1","docketNumber":"D1",
		"items":[{"productCode":"P1","quantity":2,"imeis":"` + imei1 + `\n` + imei2 + `\n"}]}`)
	resp, err := d.Dispatch(ctx, Request{Method: http.MethodPost, Resource: "inward-invoices", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)

	resp, err = d.Dispatch(ctx, Request{Method: http.MethodGet, Resource: "inward-invoices", ResourceID: "INV9"})
	require.NoError(t, err)
	items := resp.Body.(sheet.Record)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, []string{imei1, imei2}, items[0].(invoice.Item).IMEIs)
}

func TestDispatch_ValidationCanBeDisabled(t *testing.T) {
	d, _ := newTestDispatcher(t, WithValidation(false))

	payload := inwardPayload("INV5", invoice.Item{ProductCode: "P1", Quantity: 3, IMEIs: []string{"12"}})
	resp, err := d.Dispatch(context.Background(), Request{Method: http.MethodPost, Resource: "inward-invoices", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
}

func TestDispatch_ProductsAndNames(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, Request{Method: http.MethodPost, Resource: "products",
		Payload: json.RawMessage(`{"productCode":"P1","productDescription":"Phone"}`)})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, Request{Method: http.MethodPost, Resource: "transporters",
		Payload: json.RawMessage(`{"name":"Blue Dart"}`)})
	require.NoError(t, err)

	resp, err := d.Dispatch(ctx, Request{Method: http.MethodGet, Resource: "products", ResourceID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, sheet.Record{"productCode": "P1", "productDescription": "Phone", "id": "P1"}, resp.Body)

	assert.Equal(t, 1, rowCount(t, store, sheet.Transporters))
}

type recorded struct {
	resource, op, outcome string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (f *fakeRecorder) ObserveDispatch(resource, operation, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recorded{resource, operation, outcome})
}

func TestDispatch_RecordsOperations(t *testing.T) {
	rec := &fakeRecorder{}
	d, _ := newTestDispatcher(t, WithRecorder(rec))
	ctx := context.Background()

	_, _ = d.Dispatch(ctx, Request{Method: http.MethodGet, Resource: "products"})
	_, _ = d.Dispatch(ctx, Request{Method: http.MethodGet, Resource: "products", ResourceID: "missing"})

	assert.Equal(t, []recorded{
		{"products", OpList, "ok"},
		{"products", OpGet, "not_found"},
	}, rec.seen)
}
