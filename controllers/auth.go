package controllers

import (
	"net/http"
	"os"

	"estetica-voice-backend/utils"

	"github.com/gin-gonic/gin"
)

type TokenInput struct {
	Password string `json:"password" binding:"required"`
}

// Token exchanges the operator password for a JWT used by the admin API.
// There is no user table; callers on the voice side are identified only by
// their CallSid and never authenticate.
func Token(c *gin.Context) {
	var input TokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	hash := os.Getenv("ADMIN_PASSWORD_HASH")
	if hash == "" {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Admin access not configured")
		return
	}

	if !utils.CheckPasswordHash(input.Password, hash) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken("admin")
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
