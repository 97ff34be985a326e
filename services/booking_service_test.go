package services

import (
	"sync"
	"testing"

	"estetica-voice-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitPersistsAppointment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	booking := NewBookingService(db, svc)
	product := createProduct(t, db, "MANICURE", models.FamilyHands, "Manicura clásica", 40, 2500)
	day := futureBusinessDay(t)

	slot := models.NewTimeRange(at(day, 15, 30), product.DurationMinutes)

	appointment, err := booking.Commit(slot, product.ID, "+34600111222")
	require.NoError(t, err)
	require.NotNil(t, appointment)

	var stored models.Appointment
	require.NoError(t, db.First(&stored, "id = ?", appointment.ID).Error)
	assert.Equal(t, models.AppointmentScheduled, stored.Status)
	assert.Equal(t, product.ID, stored.ProductID)
	assert.Equal(t, "+34600111222", stored.CustomerPhone)
	assert.True(t, stored.StartsAt.Equal(slot.Start))
	assert.True(t, stored.EndsAt.Equal(at(day, 16, 10)))
}

func TestCommitRejectsDuplicateSlot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	booking := NewBookingService(db, svc)
	product := createProduct(t, db, "FACIAL_BASIC", models.FamilyFacial, "Limpieza facial básica", 45, 3500)
	day := futureBusinessDay(t)

	slot := models.NewTimeRange(at(day, 10, 0), product.DurationMinutes)

	_, err := booking.Commit(slot, product.ID, "+34600111222")
	require.NoError(t, err)

	_, err = booking.Commit(slot, product.ID, "+34600333444")
	assert.ErrorIs(t, err, ErrSlotTaken)

	var count int64
	require.NoError(t, db.Model(&models.Appointment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCommitRejectsOverlappingSlot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	booking := NewBookingService(db, svc)
	product := createProduct(t, db, "FACIAL_PREMIUM", models.FamilyFacial, "Tratamiento facial premium", 60, 6000)
	day := futureBusinessDay(t)

	_, err := booking.Commit(models.NewTimeRange(at(day, 10, 0), 60), product.ID, "+34600111222")
	require.NoError(t, err)

	// Starts inside the existing booking
	_, err = booking.Commit(models.NewTimeRange(at(day, 10, 45), 60), product.ID, "+34600333444")
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Ends inside the existing booking
	_, err = booking.Commit(models.NewTimeRange(at(day, 9, 30), 60), product.ID, "+34600333444")
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCommitAllowsTouchingSlots(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	booking := NewBookingService(db, svc)
	product := createProduct(t, db, "MANICURE", models.FamilyHands, "Manicura clásica", 40, 2500)
	day := futureBusinessDay(t)

	_, err := booking.Commit(models.NewTimeRange(at(day, 12, 0), 40), product.ID, "+34600111222")
	require.NoError(t, err)

	// Back-to-back: the new slot starts exactly where the first one ends
	_, err = booking.Commit(models.NewTimeRange(at(day, 12, 40), 40), product.ID, "+34600333444")
	assert.NoError(t, err)
}

func TestCommitConcurrentIdenticalSlots(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	booking := NewBookingService(db, svc)
	product := createProduct(t, db, "FACIAL_BASIC", models.FamilyFacial, "Limpieza facial básica", 45, 3500)
	day := futureBusinessDay(t)

	slot := models.NewTimeRange(at(day, 11, 0), product.DurationMinutes)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = booking.Commit(slot, product.ID, "+34600000000")
		}(i)
	}
	wg.Wait()

	booked, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			booked++
		case assert.ErrorIs(t, err, ErrSlotTaken):
			conflicts++
		}
	}
	assert.Equal(t, 1, booked, "exactly one caller may win the slot")
	assert.Equal(t, callers-1, conflicts)

	var count int64
	require.NoError(t, db.Model(&models.Appointment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
