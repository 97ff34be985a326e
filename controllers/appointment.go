// controllers/appointment.go
package controllers

import (
	"net/http"
	"time"

	"estetica-voice-backend/config"
	"estetica-voice-backend/models"
	"estetica-voice-backend/utils"

	"github.com/gin-gonic/gin"
)

// GetAppointments lists appointments, filtered by date range and status.
// Query params: from, to (YYYY-MM-DD), status (scheduled|cancelled).
func GetAppointments(c *gin.Context) {
	query := config.DB.Preload("Product").Order("starts_at asc")

	if from := c.Query("from"); from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, time.Local)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' date, expected YYYY-MM-DD")
			return
		}
		query = query.Where("starts_at >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, time.Local)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' date, expected YYYY-MM-DD")
			return
		}
		query = query.Where("starts_at < ?", t.AddDate(0, 0, 1))
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}

	c.JSON(http.StatusOK, appointments)
}
