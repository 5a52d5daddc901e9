package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GarageStatusPending   = "pending"
	GarageStatusActive    = "active"
	GarageStatusSuspended = "suspended"
)

// DayHours is one weekday's opening window. Times are zero-padded HH:MM.
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

// BusinessHours maps lowercase weekday names to opening windows.
type BusinessHours map[string]DayHours

func (b BusinessHours) Value() (driver.Value, error) {
	return json.Marshal(b)
}

func (b *BusinessHours) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return errors.New("unsupported type for BusinessHours")
	}
}

// DefaultBusinessHours is applied when a garage is created without hours.
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		"monday":    {Open: "09:00", Close: "18:00"},
		"tuesday":   {Open: "09:00", Close: "18:00"},
		"wednesday": {Open: "09:00", Close: "18:00"},
		"thursday":  {Open: "09:00", Close: "18:00"},
		"friday":    {Open: "09:00", Close: "18:00"},
		"saturday":  {Open: "09:00", Close: "14:00"},
		"sunday":    {Closed: true},
	}
}

type GarageStats struct {
	TotalBookings     int     `gorm:"default:0" json:"totalBookings"`
	CompletedBookings int     `gorm:"default:0" json:"completedBookings"`
	AverageRating     float64 `gorm:"default:0" json:"averageRating"`
	TotalReviews      int     `gorm:"default:0" json:"totalReviews"`
}

type Garage struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"ownerId"`

	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
	Address     string  `gorm:"not null" json:"address"`
	City        string  `json:"city"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`

	BusinessHours BusinessHours `gorm:"type:jsonb;default:'{}'" json:"businessHours"`

	Status     string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IsActive   bool   `gorm:"default:false" json:"isActive"`
	IsVerified bool   `gorm:"default:false" json:"isVerified"`

	// Stamped when a garage-creation payment settles; activation stays
	// with admin verification
	PaidAt *time.Time `json:"paidAt,omitempty"`

	Stats GarageStats `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`

	Services []Service `gorm:"foreignKey:GarageID" json:"services,omitempty"`

	DeletedBy *uuid.UUID `gorm:"type:uuid" json:"-"`

	gorm.Model `json:"-"`
}

func (g *Garage) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return
}

// IsActive mirrors Status; they are never set independently.
func (g *Garage) BeforeSave(tx *gorm.DB) (err error) {
	g.IsActive = g.Status == GarageStatusActive
	return
}

func (g *Garage) OwnedBy() *uuid.UUID {
	id := g.OwnerID
	return &id
}
