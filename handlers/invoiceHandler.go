package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"github.com/gin-gonic/gin"
)

func ListInvoices(c *gin.Context) {
	filter := models.InvoiceFilter{
		StoreId: queryInt(c, "store_id"),
		Status:  models.InvoiceStatus(c.Query("status")),
		Since:   queryTime(c, "since"),
		Until:   queryTime(c, "until"),
		Limit:   queryInt(c, "limit"),
	}
	invoices, err := models.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "handlers", "ListInvoices", err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func GetInvoice(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	invoice, err := models.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetInvoice", err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func ReviseInvoice(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewInvoiceRevision
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	invoice, err := models.UpdateInvoiceItems(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "handlers", "ReviseInvoice", err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

type voidRequest struct {
	Reason string `json:"reason"`
}

func VoidInvoice(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req voidRequest
	c.ShouldBindJSON(&req)
	invoice, err := models.VoidInvoice(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, "handlers", "VoidInvoice", err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func InvoiceAuditLogs(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	logs, err := models.ListInvoiceAuditLogs(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "InvoiceAuditLogs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
