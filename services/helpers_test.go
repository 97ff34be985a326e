package services

import (
	"path/filepath"
	"testing"
	"time"

	"estetica-voice-backend/models"
	"estetica-voice-backend/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Appointment{},
		&models.CallSession{},
	))
	return db
}

func createProduct(t *testing.T, db *gorm.DB, code, family, name string, durationMinutes, priceCents int) models.Product {
	t.Helper()

	product := models.Product{
		Code:            code,
		Family:          family,
		Name:            name,
		DurationMinutes: durationMinutes,
		PriceCents:      priceCents,
		Active:          true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func createAppointment(t *testing.T, db *gorm.DB, product models.Product, start time.Time, durationMinutes int) models.Appointment {
	t.Helper()

	appointment := models.Appointment{
		ProductID:     product.ID,
		CustomerName:  "Cliente",
		CustomerPhone: "+34600000000",
		StartsAt:      start,
		EndsAt:        start.Add(time.Duration(durationMinutes) * time.Minute),
		Status:        models.AppointmentScheduled,
	}
	require.NoError(t, db.Create(&appointment).Error)
	return appointment
}

// futureBusinessDay returns a weekday at least one day out, so date-dependent
// tests never land on today or a weekend.
func futureBusinessDay(t *testing.T) time.Time {
	t.Helper()
	return utils.NextBusinessDay(time.Now().AddDate(0, 0, 1))
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
