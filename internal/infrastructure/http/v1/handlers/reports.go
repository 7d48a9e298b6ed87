package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/reports"
	"stockbook/internal/infrastructure/export"
	"stockbook/internal/infrastructure/http/v1/dto"
	"stockbook/pkg/logger"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetInventory handles GET /inventory
func (h *ReportsHandler) GetInventory(c *gin.Context) {
	rows, err := h.service.StockSummary(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rows)
}

// GetDashboardSummary handles GET /dashboard-summary
func (h *ReportsHandler) GetDashboardSummary(c *gin.Context) {
	summary, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// GetStockMovement handles GET /stock-movement
func (h *ReportsHandler) GetStockMovement(c *gin.Context) {
	var req dto.StockMovementRequest
	if !h.BindQuery(c, &req) {
		return
	}

	mv, err := h.service.StockMovement(c.Request.Context(), req.StartDate, req.EndDate)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !req.WantsWorkbook() {
		h.OK(c, mv.Rows)
		return
	}

	data, err := export.StockMovement(mv)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.attachment(c, "stock_movement_"+req.StartDate+"_"+req.EndDate+".xlsx", data)
}

// GetInvoiceReport handles GET /invoice-report
func (h *ReportsHandler) GetInvoiceReport(c *gin.Context) {
	var req dto.InvoiceReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	report, err := h.service.InvoiceReport(c.Request.Context(), req.Type, req.StartDate, req.EndDate)
	if err != nil {
		h.Error(c, err)
		return
	}
	if req.WantsJSON() {
		h.OK(c, report.Rows)
		return
	}

	data, err := export.InvoiceReport(report)
	if err != nil {
		h.Error(c, err)
		return
	}
	logger.Info(c.Request.Context(), "invoice report exported",
		"type", report.Direction, "rows", len(report.Rows))
	h.attachment(c, export.FileName(report), data)
}

func (h *ReportsHandler) attachment(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, export.ContentType, data)
}
