package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the REST surface. Everything except login and the
// health probe requires a valid token.
func RegisterRoutes(r *gin.Engine) {

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/auth/login", Login)

	auth := api.Group("", requireUser())
	{
		auth.POST("/auth/register", RegisterUser)

		auth.GET("/products", ListProducts)
		auth.POST("/products", CreateProduct)
		auth.GET("/products/:id", GetProduct)
		auth.PUT("/products/:id", UpdateProduct)

		auth.GET("/stores", ListStores)
		auth.POST("/stores", CreateStore)
		auth.PUT("/stores/:id", UpdateStore)

		auth.GET("/customers", ListCustomers)
		auth.POST("/customers", CreateCustomer)
		auth.PUT("/customers/:id", UpdateCustomer)

		auth.GET("/inventory", InventoryOverview)
		auth.GET("/inventory/movements", ListMovements)
		auth.POST("/inventory/movements", RecordMovement)
		auth.GET("/inventory/alerts", ListStockAlerts)
		auth.PUT("/inventory/min-stock", SetMinStock)

		auth.GET("/transfers", ListTransfers)
		auth.POST("/transfers", CreateTransfer)
		auth.GET("/transfers/:id", GetTransfer)
		auth.POST("/transfers/:id/approve", ApproveTransfer)
		auth.POST("/transfers/:id/confirm", ConfirmTransfer)
		auth.POST("/transfers/:id/reject", RejectTransfer)

		auth.POST("/pos/sessions", OpenPosSession)
		auth.GET("/pos/sessions/current", CurrentPosSession)
		auth.POST("/pos/sessions/close", ClosePosSession)
		auth.POST("/pos/checkout", PosCheckout)

		auth.GET("/invoices", ListInvoices)
		auth.GET("/invoices/:id", GetInvoice)
		auth.PUT("/invoices/:id/items", ReviseInvoice)
		auth.POST("/invoices/:id/void", VoidInvoice)
		auth.GET("/invoices/:id/logs", InvoiceAuditLogs)

		auth.GET("/reports/closing", ClosingReport)
		auth.GET("/reports/closing/export", ExportClosingReport)
	}
}
