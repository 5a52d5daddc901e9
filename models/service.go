package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	GarageID uuid.UUID `gorm:"type:uuid;index;not null" json:"garageId"`

	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	Duration    int     `json:"duration"` // in minutes
	Category    string  `gorm:"default:'general'" json:"category"`
	IsAvailable bool    `gorm:"default:true" json:"isAvailable"`

	gorm.Model `json:"-"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// The owner lives on the garage row; callers authorize against the garage.
func (s *Service) OwnedBy() *uuid.UUID {
	return nil
}
