package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stockbook/internal/domain/auth"
	"stockbook/internal/domain/reports"
	"stockbook/internal/domain/resource"
	"stockbook/internal/domain/sheet"
	"stockbook/internal/infrastructure/metrics"
	"stockbook/internal/infrastructure/storage/memory"
	"stockbook/internal/infrastructure/storage/report_repo"
	"stockbook/pkg/logger"
)

const inwardBody = `{"invoiceNumber":"INV100","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
"transporter":"T1","docketNumber":"D1",
"items":[{"productCode":"P1","quantity":2,"imeis":["111111111111111","222222222222222"]}]}`

type testServer struct {
	router http.Handler
	store  *memory.Store
	m      *metrics.Metrics
}

func newTestServer(t *testing.T, mutate ...func(*RouterConfig)) *testServer {
	t.Helper()
	store := memory.New()
	require.NoError(t, sheet.EnsureAll(context.Background(), store, sheet.Tables()))

	m := metrics.New()
	cfg := RouterConfig{
		Logger:        logger.Nop(),
		Store:         store,
		StorageDriver: "memory",
		Dispatcher:    resource.NewDispatcher(store, resource.WithRecorder(m)),
		Reports:       reports.NewService(report_repo.New(store)),
		Metrics:       m,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return &testServer{router: NewRouter(cfg), store: store, m: m}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestRouter_InwardInvoiceLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/inward-invoices", inwardBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"Created inward-invoice successfully"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/inward-invoices/INV100", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "INV100", got["invoiceNumber"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "P1", item["productCode"])
	assert.Equal(t, []any{"111111111111111", "222222222222222"}, item["imeis"])

	w = s.do(http.MethodGet, "/api/v1/inward-invoices", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = s.do(http.MethodDelete, "/api/v1/inward-invoices/INV100", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/inward-invoices/INV100", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		error  string
	}{
		{"unknown resource", http.MethodGet, "/api/v1/widgets", "", http.StatusBadRequest, "Unknown resource"},
		{"unknown method", http.MethodPatch, "/api/v1/products", "", http.StatusMethodNotAllowed, "Unknown method PATCH"},
		{"delete missing", http.MethodDelete, "/api/v1/outward-invoices/UNKNOWN", "", http.StatusNotFound, "outward-invoice UNKNOWN not found"},
		{"update without id", http.MethodPut, "/api/v1/exec?resource=products", `{"productCode":"P1"}`, http.StatusBadRequest, "resourceId not provided"},
		{"empty create", http.MethodPost, "/api/v1/products", "", http.StatusBadRequest, "payload not provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.error, body["error"])
		})
	}
}

func TestRouter_ExecAndFormPayload(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"payload": {`{"productCode":"P1","productDescription":"Phone"}`}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exec?resource=products", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/exec?resource=products&resourceId=P1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"productDescription":"Phone"`)
}

func TestRouter_Reports(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/products", `{"productCode":"P1","productDescription":"Phone"}`).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/inward-invoices", inwardBody).Code)

	w := s.do(http.MethodGet, "/api/v1/inventory", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"physicalQuantity":2`)

	w = s.do(http.MethodGet, "/api/v1/dashboard-summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalInwardInvoices":1`)

	w = s.do(http.MethodGet, "/api/v1/stock-movement?startDate=2024-01-01&endDate=2024-01-03", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"2024-01-02_IN":2`)

	w = s.do(http.MethodGet, "/api/v1/stock-movement?startDate=2024-01-01&endDate=2024-03-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/stock-movement?startDate=2024-01-01&endDate=2024-01-03&format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/invoice-report?type=inward&startDate=2024-01-01&endDate=2024-01-31", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inward_invoice_report_2024-01-01_2024-01-31.xlsx")
	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 3, "header plus one row per IMEI")
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/live", "").Code)
	w := s.do(http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memory")

	s.do(http.MethodGet, "/api/v1/products", "")
	w = s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stockbook_http_requests_total")
	assert.Contains(t, w.Body.String(), "stockbook_dispatch_operations_total")
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("workbook missing") }

func TestRouter_NotReady(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) { cfg.Store = downStore{} })

	w := s.do(http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "workbook missing")
}

func TestRouter_Auth(t *testing.T) {
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("secret"))
	s := newTestServer(t, func(cfg *RouterConfig) { cfg.JWTValidator = jwtSvc })

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/products", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/live", "").Code)

	token, _, err := jwtSvc.GenerateAccessToken("u1", "clerk@example.com", "Clerk", nil)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
