package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FamilyFacial = "facial"
	FamilyHands  = "manos"
)

type Product struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Code            string    `gorm:"uniqueIndex;not null" json:"code"`
	Family          string    `gorm:"index;not null" json:"family"` // facial, manos
	Name            string    `gorm:"not null" json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `gorm:"not null" json:"durationMinutes"`
	PriceCents      int       `gorm:"not null;default:0" json:"priceCents"`
	Active          bool      `gorm:"default:true" json:"active"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// ActiveProductsByFamily returns the bookable catalogue for a family in the
// stable order callers pick from ("press 1 for ..." relies on this order).
func ActiveProductsByFamily(db *gorm.DB, family string) ([]Product, error) {
	var products []Product
	err := db.Where("family = ? AND active = ?", family, true).
		Order("code asc").
		Find(&products).Error
	return products, err
}
