package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateTransfer(c *gin.Context) {
	var input models.NewTransferRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	transfer, err := models.CreateTransferRequest(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "CreateTransfer", err)
		return
	}
	c.JSON(http.StatusCreated, transfer)
}

func ListTransfers(c *gin.Context) {
	transfers, err := models.ListTransfers(c.Request.Context(), models.TransferStatus(c.Query("status")))
	if err != nil {
		respondError(c, "handlers", "ListTransfers", err)
		return
	}
	c.JSON(http.StatusOK, transfers)
}

func GetTransfer(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	transfer, err := models.GetTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetTransfer", err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}

func ApproveTransfer(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	transfer, err := models.ApproveTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "ApproveTransfer", err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}

func ConfirmTransfer(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	transfer, err := models.ConfirmTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "ConfirmTransfer", err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func RejectTransfer(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req rejectRequest
	c.ShouldBindJSON(&req)
	transfer, err := models.RejectTransfer(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, "handlers", "RejectTransfer", err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}
