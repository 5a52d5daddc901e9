package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusApproved   BookingStatus = "approved"
	BookingStatusRejected   BookingStatus = "rejected"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// bookingTransitions is the full transition table. Terminal states have
// no outgoing edges.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled},
	BookingStatusApproved:   {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted:  {},
	BookingStatusCancelled:  {},
	BookingStatusRejected:   {},
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0 && s.Valid()
}

// SlotBlockingStatuses are the statuses under which a booking occupies
// its slot for conflict purposes.
var SlotBlockingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusApproved,
	BookingStatusInProgress,
	BookingStatusCompleted,
}

// StatusChange is one entry of a booking's append-only history log.
type StatusChange struct {
	Status    BookingStatus `json:"status"`
	ChangedBy uuid.UUID     `json:"changedBy"`
	Reason    string        `json:"reason"`
	Timestamp time.Time     `json:"timestamp"`
}

type StatusHistory []StatusChange

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		h = StatusHistory{}
	}
	return json.Marshal(h)
}

func (h *StatusHistory) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	case nil:
		*h = StatusHistory{}
		return nil
	default:
		return errors.New("unsupported type for StatusHistory")
	}
}

// StringList is a JSON-encoded list column (booking attachment references,
// review helpful votes).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = StringList{}
		return nil
	default:
		return errors.New("unsupported type for StringList")
	}
}

type VehicleInfo struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	LicensePlate string `json:"licensePlate"`
}

type Booking struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CarOwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"carOwnerId"`
	GarageID   uuid.UUID `gorm:"type:uuid;index;not null" json:"garageId"`
	ServiceID  uuid.UUID `gorm:"type:uuid;index;not null" json:"serviceId"`

	// Calendar date as YYYY-MM-DD, times as zero-padded HH:MM so that
	// lexicographic order equals chronological order
	Date      string `gorm:"type:varchar(10);not null;index" json:"date"`
	StartTime string `gorm:"type:varchar(5);not null" json:"startTime"`
	EndTime   string `gorm:"type:varchar(5);not null" json:"endTime"`

	Vehicle VehicleInfo `gorm:"embedded;embeddedPrefix:vehicle_" json:"vehicle"`
	Notes   string      `gorm:"type:text" json:"notes"`

	Attachments StringList `gorm:"type:jsonb;default:'[]'" json:"attachments"`

	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StatusHistory StatusHistory `gorm:"type:jsonb;default:'[]'" json:"statusHistory"`

	IsPaid    bool       `gorm:"default:false" json:"isPaid"`
	PaymentID *uuid.UUID `gorm:"type:uuid" json:"paymentId,omitempty"`

	DeletedBy *uuid.UUID `gorm:"type:uuid" json:"-"`

	gorm.Model `json:"-"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

func (b *Booking) OwnedBy() *uuid.UUID {
	id := b.CarOwnerID
	return &id
}

// BookingConflictIndex enforces at most one slot-blocking booking per
// (garage, date, start, end) tuple at the database level, so the second
// of two racing creates fails instead of double-booking.
const BookingConflictIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_slot_conflict
ON bookings (garage_id, date, start_time, end_time)
WHERE status NOT IN ('cancelled', 'rejected') AND deleted_at IS NULL`
