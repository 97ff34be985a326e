// services/booking_service.go
package services

import (
	"errors"
	"sync"

	"estetica-voice-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrSlotTaken is returned when another booking claimed an overlapping slot
// before the commit could.
var ErrSlotTaken = errors.New("slot already booked")

// BookingService is the single gate through which appointments are created.
// Validation and insert run inside one critical section per calendar day, so
// two calls racing for overlapping slots cannot both pass the availability
// check; commits on different days proceed concurrently.
type BookingService struct {
	db           *gorm.DB
	availability *AvailabilityService

	mu       sync.Mutex
	dayLocks map[string]*sync.Mutex
}

func NewBookingService(db *gorm.DB, availability *AvailabilityService) *BookingService {
	return &BookingService{
		db:           db,
		availability: availability,
		dayLocks:     make(map[string]*sync.Mutex),
	}
}

// Commit re-validates the slot against live bookings and, if still free,
// persists the appointment. Returns ErrSlotTaken on conflict; any other
// error means nothing was written.
func (s *BookingService) Commit(slot models.TimeRange, productID uuid.UUID, customerPhone string) (*models.Appointment, error) {
	lock := s.dayLock(slot)
	lock.Lock()
	defer lock.Unlock()

	var appointment *models.Appointment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		conflict, err := s.availability.ConflictExists(tx, slot)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotTaken
		}

		a := models.Appointment{
			ProductID:     productID,
			CustomerName:  "Cliente",
			CustomerPhone: customerPhone,
			StartsAt:      slot.Start,
			EndsAt:        slot.End,
			Status:        models.AppointmentScheduled,
		}
		if err := tx.Create(&a).Error; err != nil {
			return err
		}
		appointment = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *BookingService) dayLock(slot models.TimeRange) *sync.Mutex {
	key := slot.Start.Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.dayLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.dayLocks[key] = lock
	}
	return lock
}
