// services/booking_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingService struct {
	db *gorm.DB
}

func NewBookingService(db *gorm.DB) *BookingService {
	return &BookingService{db: db}
}

type CreateBookingInput struct {
	CarOwnerID uuid.UUID
	GarageID   uuid.UUID
	ServiceID  uuid.UUID
	Date       string
	StartTime  string
	EndTime    string
	Vehicle    models.VehicleInfo
	Notes      string
}

// Create inserts a pending booking. The availability check, conflict
// check, stat increment and insert all run in one transaction; if two
// requests race for the same slot, the conflict index fails the second
// committer and the whole transaction rolls back.
func (s *BookingService) Create(in CreateBookingInput) (*models.Booking, error) {
	if !utils.ValidateDate(in.Date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var garage models.Garage
		if err := tx.First(&garage, "id = ?", in.GarageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: garage not found", ErrNotFound)
			}
			return err
		}
		if garage.Status != models.GarageStatusActive {
			return fmt.Errorf("%w: garage is not active", ErrValidation)
		}

		var service models.Service
		if err := tx.First(&service, "id = ? AND garage_id = ?", in.ServiceID, in.GarageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: service not found for this garage", ErrNotFound)
			}
			return err
		}
		if !service.IsAvailable {
			return fmt.Errorf("%w: service is not available", ErrValidation)
		}

		result, err := checkAvailabilityTx(tx, in.GarageID, &in.ServiceID, in.Date, in.StartTime, in.EndTime)
		if err != nil {
			return err
		}
		if !result.Available {
			if result.Reason == "slot already booked" {
				return fmt.Errorf("%w: slot already booked", ErrConflict)
			}
			return fmt.Errorf("%w: %s", ErrValidation, result.Reason)
		}

		now := time.Now().UTC()
		booking = models.Booking{
			CarOwnerID: in.CarOwnerID,
			GarageID:   in.GarageID,
			ServiceID:  in.ServiceID,
			Date:       in.Date,
			StartTime:  in.StartTime,
			EndTime:    in.EndTime,
			Vehicle:    in.Vehicle,
			Notes:      in.Notes,
			Status:     models.BookingStatusPending,
			StatusHistory: models.StatusHistory{{
				Status:    models.BookingStatusPending,
				ChangedBy: in.CarOwnerID,
				Reason:    "Booking created",
				Timestamp: now,
			}},
		}
		if err := tx.Create(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: slot already booked", ErrConflict)
			}
			return err
		}

		return tx.Model(&models.Garage{}).Where("id = ?", in.GarageID).
			Update("stats_total_bookings", gorm.Expr("stats_total_bookings + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Transition drives a booking to targetStatus. Only the garage owner,
// an admin, or the system (payment settlement) may call this; car
// owners cancel through Cancel. Re-requesting the current status is an
// idempotent no-op that leaves the history untouched.
func (s *BookingService) Transition(bookingID uuid.UUID, target models.BookingStatus, actor Actor, reason string) (*models.Booking, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, target)
	}

	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Row lock so concurrent transitions serialize on the status
		// read; without it two completions could both see in_progress
		// and double-count the completed stat.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking not found", ErrNotFound)
			}
			return err
		}

		if !actor.IsSystem() && !actor.IsAdmin() {
			var garage models.Garage
			if err := tx.First(&garage, "id = ?", booking.GarageID).Error; err != nil {
				return err
			}
			if garage.OwnerID != actor.ID {
				return fmt.Errorf("%w: only the garage owner or an admin may change booking status", ErrForbidden)
			}
		}

		if booking.Status == target {
			return nil
		}
		if !booking.Status.CanTransitionTo(target) {
			return &InvalidTransitionError{From: booking.Status, To: target}
		}

		return applyTransitionTx(tx, &booking, target, actor, reason)
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Cancel is the car-owner path: always targets cancelled and is only
// allowed from pending or approved. Admins may use it on any booking.
func (s *BookingService) Cancel(bookingID uuid.UUID, actor Actor, reason string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking not found", ErrNotFound)
			}
			return err
		}
		if !actor.IsAdmin() && booking.CarOwnerID != actor.ID {
			return fmt.Errorf("%w: only the booking owner may cancel", ErrForbidden)
		}
		if booking.Status == models.BookingStatusCancelled {
			return nil
		}
		if booking.Status != models.BookingStatusPending && booking.Status != models.BookingStatusApproved {
			return &InvalidTransitionError{From: booking.Status, To: models.BookingStatusCancelled}
		}
		return applyTransitionTx(tx, &booking, models.BookingStatusCancelled, actor, reason)
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// applyTransitionTx writes the new status, appends the history entry and
// keeps garage stats in step. Callers validate the transition first.
func applyTransitionTx(tx *gorm.DB, booking *models.Booking, target models.BookingStatus, actor Actor, reason string) error {
	if reason == "" {
		reason = "Status changed to " + string(target)
	}
	booking.Status = target
	booking.StatusHistory = append(booking.StatusHistory, models.StatusChange{
		Status:    target,
		ChangedBy: actor.ID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
	if err := tx.Save(booking).Error; err != nil {
		return err
	}

	if target == models.BookingStatusCompleted {
		return tx.Model(&models.Garage{}).Where("id = ?", booking.GarageID).
			Update("stats_completed_bookings", gorm.Expr("stats_completed_bookings + ?", 1)).Error
	}
	return nil
}

// SoftDelete marks the booking deleted and stamps the deleting actor.
// A completed booking releases its completed-bookings stat, floored at
// zero. Rows are only physically removed by HardPurgeForUser.
func (s *BookingService) SoftDelete(bookingID uuid.UUID, actor Actor) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking not found", ErrNotFound)
			}
			return err
		}

		if !actor.IsAdmin() {
			var garage models.Garage
			if err := tx.First(&garage, "id = ?", booking.GarageID).Error; err != nil {
				return err
			}
			if garage.OwnerID != actor.ID {
				return fmt.Errorf("%w: only the garage owner or an admin may delete bookings", ErrForbidden)
			}
		}

		if err := tx.Model(&booking).Update("deleted_by", actor.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&booking).Error; err != nil {
			return err
		}

		if booking.Status == models.BookingStatusCompleted {
			return tx.Model(&models.Garage{}).Where("id = ?", booking.GarageID).
				Update("stats_completed_bookings",
					gorm.Expr("CASE WHEN stats_completed_bookings > 0 THEN stats_completed_bookings - 1 ELSE 0 END")).Error
		}
		return nil
	})
}

// HardPurgeForUser physically removes a user's bookings, reviews and
// payments. Reserved for cascading admin user deletion.
func (s *BookingService) HardPurgeForUser(userID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("car_owner_id = ?", userID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("car_owner_id = ?", userID).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("user_id = ?", userID).Delete(&models.Payment{}).Error
	})
}
