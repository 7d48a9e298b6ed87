package v1

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/infrastructure/http/v1/handlers"
)

// RegisterResourceRoutes routes every verb of /{resource}, /{resource}/{id}
// and /exec to the dispatcher, which answers unsupported verbs itself.
func RegisterResourceRoutes(rg *gin.RouterGroup, h *handlers.ResourceHandler) {
	rg.Any("/exec", h.Exec)
	rg.Any("/:resource", h.Handle)
	rg.Any("/:resource/:id", h.Handle)
}

// RegisterReportRoutes registers the read-only report endpoints.
func RegisterReportRoutes(rg *gin.RouterGroup, h *handlers.ReportsHandler) {
	rg.GET("/inventory", h.GetInventory)
	rg.GET("/dashboard-summary", h.GetDashboardSummary)
	rg.GET("/stock-movement", h.GetStockMovement)
	rg.GET("/invoice-report", h.GetInvoiceReport)
}
