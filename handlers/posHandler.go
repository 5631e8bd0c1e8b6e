package handlers

import (
	"fmt"
	"net/http"

	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"bitbucket.org/mmdatafocus/retailstock_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func OpenPosSession(c *gin.Context) {
	var input models.NewPosSession
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	session, err := models.OpenPosSession(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "OpenPosSession", err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func CurrentPosSession(c *gin.Context) {
	session, err := models.CurrentPosSession(c.Request.Context())
	if err != nil {
		respondError(c, "handlers", "CurrentPosSession", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func ClosePosSession(c *gin.Context) {
	session, err := models.ClosePosSession(c.Request.Context())
	if err != nil {
		respondError(c, "handlers", "ClosePosSession", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func PosCheckout(c *gin.Context) {
	var input models.NewPosCheckout
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	invoice, err := models.PosCheckout(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "PosCheckout", err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func ClosingReport(c *gin.Context) {
	report, err := reports.GenerateClosingReport(c.Request.Context(), queryInt(c, "store_id"), c.Query("date"))
	if err != nil {
		respondError(c, "handlers", "ClosingReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func ExportClosingReport(c *gin.Context) {
	report, err := reports.GenerateClosingReport(c.Request.Context(), queryInt(c, "store_id"), c.Query("date"))
	if err != nil {
		respondError(c, "handlers", "ExportClosingReport", err)
		return
	}
	buf, err := reports.ExportClosingReportXlsx(report)
	if err != nil {
		respondError(c, "handlers", "ExportClosingReport", err)
		return
	}
	filename := fmt.Sprintf("closing-report-%d-%s.xlsx", report.StoreId, report.Date)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
