package services

import (
	"testing"
	"time"

	"estetica-voice-backend/models"
	"estetica-voice-backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAvailableSlotsEmptyCalendar(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	day := futureBusinessDay(t)

	slots, err := svc.GetAvailableSlots(day, 45)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	// 09:00 through 18:15 on the 15-minute grid, every slot ending by 19:00
	assert.True(t, slots[0].Start.Equal(at(day, 9, 0)))
	last := slots[len(slots)-1]
	assert.True(t, last.Start.Equal(at(day, 18, 15)))
	assert.True(t, last.End.Equal(at(day, 19, 0)))
	assert.Len(t, slots, 38)

	closing := at(day, 19, 0)
	for i, slot := range slots {
		assert.Equal(t, 45*time.Minute, slot.Duration())
		assert.False(t, slot.End.After(closing))
		if i > 0 {
			assert.Equal(t, SlotIntervalMinutes*time.Minute, slot.Start.Sub(slots[i-1].Start),
				"slots must be in ascending order on the grid")
		}
	}
}

func TestGetAvailableSlotsPastAndWeekend(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)

	yesterday := utils.BeginningOfDay(time.Now()).AddDate(0, 0, -1)
	slots, err := svc.GetAvailableSlots(yesterday, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)

	saturday := utils.BeginningOfDay(time.Now())
	for saturday.Weekday() != time.Saturday {
		saturday = saturday.AddDate(0, 0, 1)
	}
	slots, err = svc.GetAvailableSlots(saturday, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailableSlotsSkipsBookedIntervals(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	product := createProduct(t, db, "FACIAL_BASIC", models.FamilyFacial, "Limpieza facial básica", 60, 3500)
	day := futureBusinessDay(t)

	booked := createAppointment(t, db, product, at(day, 10, 0), 60)

	slots, err := svc.GetAvailableSlots(day, 60)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	starts := make(map[string]bool)
	for _, slot := range slots {
		assert.False(t, slot.Overlaps(booked.Range()),
			"enumerated slot %s overlaps a booked appointment", slot.Start.Format("15:04"))
		starts[slot.Start.Format("15:04")] = true
	}

	// Back-to-back is allowed on both sides of the booking
	assert.True(t, starts["09:00"])
	assert.True(t, starts["11:00"])
	assert.False(t, starts["09:15"])
	assert.False(t, starts["10:00"])
	assert.False(t, starts["10:45"])
}

func TestEnumerationAgreesWithIsSlotAvailable(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	product := createProduct(t, db, "MANICURE", models.FamilyHands, "Manicura clásica", 40, 2500)
	day := futureBusinessDay(t)

	createAppointment(t, db, product, at(day, 11, 30), 40)
	createAppointment(t, db, product, at(day, 16, 0), 40)

	slots, err := svc.GetAvailableSlots(day, 40)
	require.NoError(t, err)
	for _, slot := range slots {
		free, err := svc.IsSlotAvailable(slot)
		require.NoError(t, err)
		assert.True(t, free, "enumeration offered %s but the validity check rejects it", slot.Start.Format("15:04"))
	}

	taken, err := svc.IsSlotAvailable(models.NewTimeRange(at(day, 11, 30), 40))
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestBookedSlotDisappearsFromEnumeration(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	booking := NewBookingService(db, svc)
	product := createProduct(t, db, "FACIAL_PREMIUM", models.FamilyFacial, "Tratamiento facial premium", 60, 6000)
	day := futureBusinessDay(t)

	target := models.NewTimeRange(at(day, 12, 0), product.DurationMinutes)

	_, err := booking.Commit(target, product.ID, "+34600111222")
	require.NoError(t, err)

	slots, err := svc.GetAvailableSlots(day, product.DurationMinutes)
	require.NoError(t, err)
	for _, slot := range slots {
		assert.False(t, slot.Start.Equal(target.Start), "booked slot still enumerated")
		assert.False(t, slot.Overlaps(target))
	}
}

func TestFindNextAvailableSlot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)

	slot, err := svc.FindNextAvailableSlot(time.Now(), 45)
	require.NoError(t, err)
	require.NotNil(t, slot)

	assert.False(t, utils.IsWeekend(slot.Start))
	assert.False(t, slot.Start.Before(time.Now().Add(-time.Minute)))
	assert.Equal(t, 45*time.Minute, slot.Duration())
}

func TestFindNextAvailableSlotSkipsFullDays(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	product := createProduct(t, db, "FACIAL_BASIC", models.FamilyFacial, "Limpieza facial básica", 45, 3500)

	first := futureBusinessDay(t)
	second := utils.NextBusinessDay(first.AddDate(0, 0, 1))

	// Block the whole first business day
	createAppointment(t, db, product, at(first, 9, 0), 10*60)

	slot, err := svc.FindNextAvailableSlot(at(first, 0, 0), 45)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.True(t, slot.Start.Equal(at(second, 9, 0)))
}

func TestFindNextAvailableSlotHorizonExhausted(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAvailabilityService(db)
	product := createProduct(t, db, "MANICURE", models.FamilyHands, "Manicura clásica", 40, 2500)

	// Block every business day well past the search horizon
	day := utils.BeginningOfDay(time.Now())
	for i := 0; i < SearchHorizonDays+7; i++ {
		if !utils.IsWeekend(day) {
			createAppointment(t, db, product, at(day, 9, 0), 10*60)
		}
		day = day.AddDate(0, 0, 1)
	}

	slot, err := svc.FindNextAvailableSlot(time.Now(), 40)
	require.NoError(t, err)
	assert.Nil(t, slot)
}
