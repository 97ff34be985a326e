// services/availability_service.go
package services

import (
	"time"

	"estetica-voice-backend/models"
	"estetica-voice-backend/utils"

	"gorm.io/gorm"
)

// Working hours and slot grid for the whole salon.
const (
	WorkStartHour       = 9  // 9:00
	WorkEndHour         = 19 // 19:00
	SlotIntervalMinutes = 15
	SearchHorizonDays   = 30
)

type AvailabilityService struct {
	db *gorm.DB
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db}
}

// GetAvailableSlots enumerates the free slots of a given day for a service of
// the given duration, in ascending start order. Days in the past and weekends
// yield no slots. A slot qualifies only if it ends by closing time and does
// not overlap any scheduled appointment.
func (s *AvailabilityService) GetAvailableSlots(date time.Time, durationMinutes int) ([]models.TimeRange, error) {
	day := utils.BeginningOfDay(date)
	today := utils.BeginningOfDay(time.Now())
	if day.Before(today) || utils.IsWeekend(day) {
		return nil, nil
	}

	appointments, err := s.scheduledOn(s.db, day)
	if err != nil {
		return nil, err
	}

	opening := time.Date(day.Year(), day.Month(), day.Day(), WorkStartHour, 0, 0, 0, day.Location())
	closing := time.Date(day.Year(), day.Month(), day.Day(), WorkEndHour, 0, 0, 0, day.Location())

	var slots []models.TimeRange
	for start := opening; ; start = start.Add(SlotIntervalMinutes * time.Minute) {
		slot := models.NewTimeRange(start, durationMinutes)
		if slot.End.After(closing) {
			break
		}
		if !hasConflict(appointments, slot) {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// IsSlotAvailable reports whether no scheduled appointment overlaps the slot.
// It runs the same conflict predicate as GetAvailableSlots, so the two can
// never disagree about a slot.
func (s *AvailabilityService) IsSlotAvailable(slot models.TimeRange) (bool, error) {
	conflict, err := s.ConflictExists(s.db, slot)
	return !conflict, err
}

// ConflictExists checks the slot against the scheduled appointments of its
// day on the given handle, so the commit gate can re-validate inside its
// transaction with the exact predicate enumeration uses.
func (s *AvailabilityService) ConflictExists(tx *gorm.DB, slot models.TimeRange) (bool, error) {
	appointments, err := s.scheduledOn(tx, utils.BeginningOfDay(slot.Start))
	if err != nil {
		return false, err
	}
	return hasConflict(appointments, slot), nil
}

// FindNextAvailableSlot scans forward day by day from the given instant and
// returns the first free slot starting at or after it, or nil when the
// horizon is exhausted. Weekends fall out naturally because their days
// enumerate empty.
func (s *AvailabilityService) FindNextAvailableSlot(from time.Time, durationMinutes int) (*models.TimeRange, error) {
	current := utils.BeginningOfDay(from)
	for i := 0; i < SearchHorizonDays; i++ {
		slots, err := s.GetAvailableSlots(current, durationMinutes)
		if err != nil {
			return nil, err
		}
		for _, slot := range slots {
			if !slot.Start.Before(from) {
				return &slot, nil
			}
		}
		current = current.AddDate(0, 0, 1)
	}
	return nil, nil
}

func (s *AvailabilityService) scheduledOn(tx *gorm.DB, day time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := tx.Where("status = ? AND starts_at >= ? AND starts_at < ?",
		models.AppointmentScheduled, day, day.AddDate(0, 0, 1)).
		Order("starts_at asc").
		Find(&appointments).Error
	return appointments, err
}

func hasConflict(appointments []models.Appointment, slot models.TimeRange) bool {
	for _, a := range appointments {
		if a.Range().Overlaps(slot) {
			return true
		}
	}
	return false
}
