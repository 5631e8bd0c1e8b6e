package handlers

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"github.com/gin-gonic/gin"
)

func queryInt(c *gin.Context, name string) int {
	v, _ := strconv.Atoi(c.Query(name))
	return v
}

func queryTime(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}

// RecordMovement registers a manual stock entry or exit.
func RecordMovement(c *gin.Context) {
	var input models.NewMovement
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	inv, err := models.RecordMovement(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "RecordMovement", err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func ListMovements(c *gin.Context) {
	filter := models.MovementFilter{
		ProductId: queryInt(c, "product_id"),
		StoreId:   queryInt(c, "store_id"),
		Kind:      models.MovementKind(c.Query("kind")),
		Since:     queryTime(c, "since"),
		Until:     queryTime(c, "until"),
		Limit:     queryInt(c, "limit"),
	}
	movements, err := models.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "handlers", "ListMovements", err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func InventoryOverview(c *gin.Context) {
	records, err := models.GetInventoryOverview(c.Request.Context(), queryInt(c, "store_id"))
	if err != nil {
		respondError(c, "handlers", "InventoryOverview", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func ListStockAlerts(c *gin.Context) {
	alerts, err := models.ListActiveAlerts(c.Request.Context(), queryInt(c, "store_id"))
	if err != nil {
		respondError(c, "handlers", "ListStockAlerts", err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

type minStockRequest struct {
	ProductId int `json:"product_id" binding:"required"`
	StoreId   int `json:"store_id" binding:"required"`
	MinStock  int `json:"min_stock"`
}

func SetMinStock(c *gin.Context) {
	ctx := c.Request.Context()
	if err := models.EnsureManagementAccess(ctx); err != nil {
		respondError(c, "handlers", "SetMinStock", err)
		return
	}
	var req minStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	inv, err := models.SetMinStock(ctx, req.ProductId, req.StoreId, req.MinStock)
	if err != nil {
		respondError(c, "handlers", "SetMinStock", err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
