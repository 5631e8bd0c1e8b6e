package handlers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/gin-gonic/gin"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

/* Products */

func CreateProduct(c *gin.Context) {
	ctx := c.Request.Context()
	if err := models.EnsureManagementAccess(ctx); err != nil {
		respondError(c, "handlers", "CreateProduct", err)
		return
	}
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	product, err := models.CreateProduct(ctx, &input)
	if err != nil {
		respondError(c, "handlers", "CreateProduct", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func UpdateProduct(c *gin.Context) {
	ctx := c.Request.Context()
	if err := models.EnsureManagementAccess(ctx); err != nil {
		respondError(c, "handlers", "UpdateProduct", err)
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	product, err := models.UpdateProduct(ctx, id, &input)
	if err != nil {
		respondError(c, "handlers", "UpdateProduct", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func GetProduct(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, "handlers", "GetProduct", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func ListProducts(c *gin.Context) {
	products, err := utils.FetchAllModels[models.Product](c.Request.Context(), "Category")
	if err != nil {
		respondError(c, "handlers", "ListProducts", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

/* Stores */

func CreateStore(c *gin.Context) {
	ctx := c.Request.Context()
	if err := models.EnsureAdminAccess(ctx); err != nil {
		respondError(c, "handlers", "CreateStore", err)
		return
	}
	var input models.NewStore
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	store, err := models.CreateStore(ctx, &input)
	if err != nil {
		respondError(c, "handlers", "CreateStore", err)
		return
	}
	c.JSON(http.StatusCreated, store)
}

func UpdateStore(c *gin.Context) {
	ctx := c.Request.Context()
	if err := models.EnsureAdminAccess(ctx); err != nil {
		respondError(c, "handlers", "UpdateStore", err)
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewStore
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	store, err := models.UpdateStore(ctx, id, &input)
	if err != nil {
		respondError(c, "handlers", "UpdateStore", err)
		return
	}
	c.JSON(http.StatusOK, store)
}

func ListStores(c *gin.Context) {
	stores, err := utils.FetchAllModels[models.Store](c.Request.Context())
	if err != nil {
		respondError(c, "handlers", "ListStores", err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

/* Customers */

func CreateCustomer(c *gin.Context) {
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	customer, err := models.CreateCustomer(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "handlers", "CreateCustomer", err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func UpdateCustomer(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "handlers", "UpdateCustomer", err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func ListCustomers(c *gin.Context) {
	customers, err := utils.FetchAllModels[models.Customer](c.Request.Context())
	if err != nil {
		respondError(c, "handlers", "ListCustomers", err)
		return
	}
	c.JSON(http.StatusOK, customers)
}
