package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := models.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := utils.JwtGenerate(user.ID, user.Username, string(user.Role))
	if err != nil {
		respondError(c, "handlers", "Login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func RegisterUser(c *gin.Context) {
	ctx := c.Request.Context()
	if err := models.EnsureAdminAccess(ctx); err != nil {
		respondError(c, "handlers", "RegisterUser", err)
		return
	}

	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	user, err := models.CreateUser(ctx, &input)
	if err != nil {
		respondError(c, "handlers", "RegisterUser", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
