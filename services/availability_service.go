// services/availability_service.go
package services

import (
	"errors"
	"fmt"

	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AvailabilityService struct {
	db *gorm.DB
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db}
}

type AvailabilityResult struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Check reports whether the given time slot is bookable at the garage.
// Read-only; the same logic runs inside the booking-creation transaction
// via checkAvailabilityTx so concurrent creates cannot both pass.
func (s *AvailabilityService) Check(garageID uuid.UUID, serviceID *uuid.UUID, date, start, end string) (AvailabilityResult, error) {
	return checkAvailabilityTx(s.db, garageID, serviceID, date, start, end)
}

func checkAvailabilityTx(tx *gorm.DB, garageID uuid.UUID, serviceID *uuid.UUID, date, start, end string) (AvailabilityResult, error) {
	if !utils.ValidateDate(date) {
		return AvailabilityResult{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	startMin := utils.MinuteOfDay(start)
	endMin := utils.MinuteOfDay(end)
	if startMin < 0 || endMin < 0 {
		return AvailabilityResult{}, fmt.Errorf("%w: times must be zero-padded HH:MM", ErrValidation)
	}
	if endMin <= startMin {
		return AvailabilityResult{}, fmt.Errorf("%w: end time must be after start time", ErrValidation)
	}

	var garage models.Garage
	if err := tx.First(&garage, "id = ?", garageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AvailabilityResult{}, fmt.Errorf("%w: garage not found", ErrNotFound)
		}
		return AvailabilityResult{}, err
	}

	hours, ok := garage.BusinessHours[utils.WeekdayKey(date)]
	if !ok || hours.Closed {
		return AvailabilityResult{Available: false, Reason: "closed this day"}, nil
	}

	openMin := utils.MinuteOfDay(hours.Open)
	closeMin := utils.MinuteOfDay(hours.Close)
	if startMin < openMin || endMin > closeMin {
		return AvailabilityResult{Available: false, Reason: "outside business hours"}, nil
	}

	var conflicts int64
	err := tx.Model(&models.Booking{}).
		Where("garage_id = ? AND date = ? AND start_time = ? AND end_time = ?", garageID, date, start, end).
		Where("status IN ?", models.SlotBlockingStatuses).
		Count(&conflicts).Error
	if err != nil {
		return AvailabilityResult{}, err
	}
	if conflicts > 0 {
		return AvailabilityResult{Available: false, Reason: "slot already booked"}, nil
	}

	if serviceID != nil {
		var service models.Service
		if err := tx.First(&service, "id = ? AND garage_id = ?", *serviceID, garageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return AvailabilityResult{}, fmt.Errorf("%w: service not found", ErrNotFound)
			}
			return AvailabilityResult{}, err
		}
		slotDuration := endMin - startMin
		if slotDuration < service.Duration {
			return AvailabilityResult{
				Available: false,
				Reason:    fmt.Sprintf("slot is %d minutes but service requires %d minutes", slotDuration, service.Duration),
			}, nil
		}
	}

	return AvailabilityResult{Available: true}, nil
}
