package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AppointmentScheduled = "scheduled"
	AppointmentCancelled = "cancelled"
)

type Appointment struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ProductID     uuid.UUID `gorm:"type:uuid;index;not null" json:"productId"`
	CustomerName  string    `gorm:"not null;default:'Cliente'" json:"customerName"`
	CustomerPhone string    `gorm:"not null" json:"customerPhone"`
	StartsAt      time.Time `gorm:"index:idx_appointment_window;not null" json:"startsAt"`
	EndsAt        time.Time `gorm:"index:idx_appointment_window;not null" json:"endsAt"`
	Status        string    `gorm:"not null;default:'scheduled'" json:"status"`

	Product Product `gorm:"foreignKey:ProductID" json:"product"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

func (a *Appointment) Range() TimeRange {
	return TimeRange{Start: a.StartsAt, End: a.EndsAt}
}
