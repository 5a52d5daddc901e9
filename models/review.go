package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryRatings holds optional per-category sub-ratings (1-5 each).
type CategoryRatings map[string]int

func (r CategoryRatings) Value() (driver.Value, error) {
	if r == nil {
		r = CategoryRatings{}
	}
	return json.Marshal(r)
}

func (r *CategoryRatings) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	case nil:
		*r = CategoryRatings{}
		return nil
	default:
		return errors.New("unsupported type for CategoryRatings")
	}
}

type Review struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BookingID  uuid.UUID `gorm:"type:uuid;index;not null" json:"bookingId"`
	CarOwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"carOwnerId"`
	GarageID   uuid.UUID `gorm:"type:uuid;index;not null" json:"garageId"`

	Rating  int    `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Title   string `json:"title"`
	Comment string `gorm:"type:text" json:"comment"`

	CategoryRatings CategoryRatings `gorm:"type:jsonb;default:'{}'" json:"categoryRatings,omitempty"`

	// A single garage-side response, settable once
	ResponseComment *string    `gorm:"type:text" json:"responseComment,omitempty"`
	RespondedAt     *time.Time `json:"respondedAt,omitempty"`
	RespondedBy     *uuid.UUID `gorm:"type:uuid" json:"respondedBy,omitempty"`

	HelpfulVotes StringList `gorm:"type:jsonb;default:'[]'" json:"helpfulVotes"`
	IsVerified   bool       `gorm:"default:false" json:"isVerified"`

	DeletedBy *uuid.UUID `gorm:"type:uuid" json:"-"`

	gorm.Model `json:"-"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

func (r *Review) OwnedBy() *uuid.UUID {
	id := r.CarOwnerID
	return &id
}

func (r *Review) HasResponse() bool {
	return r.ResponseComment != nil
}

// ReviewBookingIndex enforces one live review per booking; a soft-deleted
// review releases the slot so the booking can be reviewed again.
const ReviewBookingIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_review_booking
ON reviews (booking_id)
WHERE deleted_at IS NULL`
