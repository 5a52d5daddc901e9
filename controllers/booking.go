// controllers/booking.go
package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/services"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateBookingInput struct {
	GarageID  uuid.UUID          `json:"garageId" binding:"required"`
	ServiceID uuid.UUID          `json:"serviceId" binding:"required"`
	Date      string             `json:"date" binding:"required"`
	StartTime string             `json:"startTime" binding:"required"`
	EndTime   string             `json:"endTime" binding:"required"`
	Vehicle   models.VehicleInfo `json:"vehicle" binding:"required"`
	Notes     string             `json:"notes"`
}

type TransitionInput struct {
	Status models.BookingStatus `json:"status" binding:"required"`
	Reason string               `json:"reason"`
}

type CancelInput struct {
	Reason string `json:"reason"`
}

// CheckAvailability is the public availability query; the same logic
// re-runs inside the booking-creation transaction.
func CheckAvailability(c *gin.Context) {
	garageID, err := uuid.Parse(c.Query("garageId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "garageId is required")
		return
	}

	var serviceID *uuid.UUID
	if raw := c.Query("serviceId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid serviceId format")
			return
		}
		serviceID = &id
	}

	result, err := availabilityService().Check(garageID, serviceID, c.Query("date"), c.Query("startTime"), c.Query("endTime"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreateBooking places a pending booking for the authenticated car owner.
func CreateBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	booking, err := bookingService().Create(services.CreateBookingInput{
		CarOwnerID: actor.ID,
		GarageID:   input.GarageID,
		ServiceID:  input.ServiceID,
		Date:       input.Date,
		StartTime:  input.StartTime,
		EndTime:    input.EndTime,
		Vehicle:    input.Vehicle,
		Notes:      input.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBookings lists bookings scoped to the caller's role: car owners see
// their own, garage owners their garages', admins everything.
func GetBookings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	query := config.DB.Model(&models.Booking{})

	switch actor.Role {
	case models.RoleAdmin:
		// no scoping
	case models.RoleGarageOwner:
		query = query.Where("garage_id IN (?)",
			config.DB.Model(&models.Garage{}).Select("id").Where("owner_id = ?", actor.ID))
	default:
		query = query.Where("car_owner_id = ?", actor.ID)
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if date := c.Query("date"); date != "" {
		query = query.Where("date = ?", date)
	}
	if garageID := c.Query("garageId"); garageID != "" {
		query = query.Where("garage_id = ?", garageID)
	}

	var bookings []models.Booking
	if err := query.Order("date DESC, start_time DESC").Find(&bookings).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve bookings")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func loadVisibleBooking(c *gin.Context) (*models.Booking, bool) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	var booking models.Booking
	if err := config.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Booking not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}

	if utils.IsOwnerOrAdmin(c, &booking) {
		return &booking, true
	}

	// Garage owners can see bookings at their garage
	var garage models.Garage
	if err := config.DB.First(&garage, "id = ?", booking.GarageID).Error; err == nil {
		if utils.IsOwnerOrAdmin(c, &garage) {
			return &booking, true
		}
	}

	utils.RespondWithError(c, http.StatusForbidden, "Not your booking")
	return nil, false
}

func GetBooking(c *gin.Context) {
	booking, ok := loadVisibleBooking(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, booking)
}

// UpdateBookingStatus drives the state machine; only the garage owner
// or an admin may call it.
func UpdateBookingStatus(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input TransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	booking, err := bookingService().Transition(bookingID, input.Status, actor, input.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking is the car-owner cancellation path.
func CancelBooking(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	// Body is optional; an absent reason gets the default template
	var input CancelInput
	_ = c.ShouldBindJSON(&input)

	booking, err := bookingService().Cancel(bookingID, actor, input.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// DeleteBooking soft deletes a booking
func DeleteBooking(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	if err := bookingService().SoftDelete(bookingID, actor); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking deleted successfully"})
}

// GetBookingTimeline returns the append-only status history.
func GetBookingTimeline(c *gin.Context) {
	booking, ok := loadVisibleBooking(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookingId": booking.ID,
		"status":    booking.Status,
		"timeline":  booking.StatusHistory,
	})
}

// GetBookingCalendar lists a garage's bookings over a date range,
// grouped by day.
func GetBookingCalendar(c *gin.Context) {
	garageID, err := uuid.Parse(c.Query("garageId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "garageId is required")
		return
	}
	from := c.Query("from")
	to := c.Query("to")
	if !utils.ValidateDate(from) || !utils.ValidateDate(to) {
		utils.RespondWithError(c, http.StatusBadRequest, "from and to must be YYYY-MM-DD")
		return
	}

	var garage models.Garage
	if err := config.DB.First(&garage, "id = ?", garageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Garage not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}
	if !utils.IsOwnerOrAdmin(c, &garage) {
		utils.RespondWithError(c, http.StatusForbidden, "Not your garage")
		return
	}

	var bookings []models.Booking
	if err := config.DB.
		Where("garage_id = ? AND date >= ? AND date <= ?", garageID, from, to).
		Where("status NOT IN ?", []models.BookingStatus{models.BookingStatusCancelled, models.BookingStatusRejected}).
		Order("date ASC, start_time ASC").
		Find(&bookings).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve bookings")
		return
	}

	calendar := make(map[string][]models.Booking)
	for _, b := range bookings {
		calendar[b.Date] = append(calendar[b.Date], b)
	}

	c.JSON(http.StatusOK, gin.H{"garageId": garageID, "from": from, "to": to, "calendar": calendar})
}

// UploadAttachment stores a file for the booking and appends its
// reference to the attachment list.
func UploadAttachment(c *gin.Context) {
	booking, ok := loadVisibleBooking(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "file is required")
		return
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	dir := filepath.Join(uploadDir, "bookings", booking.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to store attachment")
		return
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(file.Filename))
	dst := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to store attachment")
		return
	}

	booking.Attachments = append(booking.Attachments, dst)
	if err := config.DB.Model(booking).Update("attachments", booking.Attachments).Error; err != nil {
		// best-effort cleanup of the orphaned file
		if rmErr := os.Remove(dst); rmErr != nil {
			log.Printf("failed to remove orphaned attachment %s: %v", dst, rmErr)
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to store attachment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"attachment": dst, "attachments": booking.Attachments})
}
