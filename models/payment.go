package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

const (
	PaymentTypeBooking        = "booking"
	PaymentTypeGarageCreation = "garage_creation"
)

type Payment struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`

	Type      string     `gorm:"type:varchar(20);not null" json:"type"`
	BookingID *uuid.UUID `gorm:"type:uuid;index" json:"bookingId,omitempty"`
	GarageID  *uuid.UUID `gorm:"type:uuid;index" json:"garageId,omitempty"`

	Amount   float64 `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency string  `gorm:"type:varchar(3);not null;default:'ETB'" json:"currency"`
	Method   string  `json:"method"`

	Status string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Transaction reference used with the payment provider
	TxRef        string         `gorm:"uniqueIndex;not null" json:"txRef"`
	ProviderData datatypes.JSON `gorm:"type:jsonb" json:"providerData,omitempty"`

	PaidAt *time.Time `json:"paidAt,omitempty"`

	gorm.Model `json:"-"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

func (p *Payment) OwnedBy() *uuid.UUID {
	id := p.UserID
	return &id
}
