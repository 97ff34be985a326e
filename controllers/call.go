// controllers/call.go
package controllers

import (
	"errors"
	"net/http"

	"estetica-voice-backend/config"
	"estetica-voice-backend/models"
	"estetica-voice-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetCallSessions lists in-progress call sessions, newest activity first.
func GetCallSessions(c *gin.Context) {
	var sessions []models.CallSession
	err := config.DB.Preload("Product").
		Order("updated_at desc").
		Limit(50).
		Find(&sessions).Error
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve call sessions")
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// GetCallSession returns one session with its turn history, for inspecting
// what happened on a specific call.
func GetCallSession(c *gin.Context) {
	var session models.CallSession
	err := config.DB.Preload("Product").
		Where("call_sid = ?", c.Param("sid")).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Call session not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, session)
}
