// controllers/garage.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateGarageInput struct {
	Name          string               `json:"name" binding:"required"`
	Description   string               `json:"description"`
	Address       string               `json:"address" binding:"required"`
	City          string               `json:"city"`
	Phone         string               `json:"phone"`
	Email         string               `json:"email" binding:"omitempty,email"`
	Longitude     float64              `json:"longitude"`
	Latitude      float64              `json:"latitude"`
	BusinessHours models.BusinessHours `json:"businessHours"`
}

type UpdateGarageInput struct {
	Name          *string               `json:"name"`
	Description   *string               `json:"description"`
	Address       *string               `json:"address"`
	City          *string               `json:"city"`
	Phone         *string               `json:"phone"`
	Email         *string               `json:"email" binding:"omitempty,email"`
	Longitude     *float64              `json:"longitude"`
	Latitude      *float64              `json:"latitude"`
	BusinessHours *models.BusinessHours `json:"businessHours"`
}

type VerifyGarageInput struct {
	Status string `json:"status" binding:"required,oneof=pending active suspended"`
}

func validateBusinessHours(hours models.BusinessHours) bool {
	for _, day := range hours {
		if day.Closed {
			continue
		}
		if !utils.ValidateTimeOfDay(day.Open) || !utils.ValidateTimeOfDay(day.Close) {
			return false
		}
		if utils.MinuteOfDay(day.Open) >= utils.MinuteOfDay(day.Close) {
			return false
		}
	}
	return true
}

// CreateGarage registers a new garage in pending status. Requires a
// settled garage-creation payment unless the caller is an admin.
func CreateGarage(c *gin.Context) {
	userID, ok := utils.PrincipalID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return
	}
	if user.Role != models.RoleAdmin && !user.CanCreateGarage {
		utils.RespondWithError(c, http.StatusForbidden, "Garage creation requires a settled garage-creation payment")
		return
	}

	var input CreateGarageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if !utils.ValidateCoordinates(input.Longitude, input.Latitude) {
		utils.RespondWithError(c, http.StatusBadRequest, "Coordinates out of range")
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	// One non-deleted garage per owner
	var existing int64
	if err := config.DB.Model(&models.Garage{}).Where("owner_id = ?", userID).Count(&existing).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if existing > 0 {
		utils.RespondWithError(c, http.StatusConflict, "You already have a garage")
		return
	}

	hours := input.BusinessHours
	if hours == nil {
		hours = models.DefaultBusinessHours()
	} else if !validateBusinessHours(hours) {
		utils.RespondWithError(c, http.StatusBadRequest, "Business hours must be zero-padded HH:MM with open before close")
		return
	}

	garage := models.Garage{
		OwnerID:       userID,
		Name:          input.Name,
		Description:   input.Description,
		Address:       input.Address,
		City:          input.City,
		Phone:         input.Phone,
		Email:         input.Email,
		Longitude:     input.Longitude,
		Latitude:      input.Latitude,
		BusinessHours: hours,
		Status:        models.GarageStatusPending,
	}

	if err := config.DB.Create(&garage).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create garage")
		return
	}

	c.JSON(http.StatusCreated, garage)
}

// GetGarages lists garages. The public sees active ones; admins may
// filter by any status or verification flag.
func GetGarages(c *gin.Context) {
	query := config.DB.Model(&models.Garage{})

	if utils.PrincipalRole(c) == models.RoleAdmin {
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if verified := c.Query("verified"); verified != "" {
			query = query.Where("is_verified = ?", verified == "true")
		}
	} else {
		query = query.Where("status = ?", models.GarageStatusActive)
	}

	if city := c.Query("city"); city != "" {
		query = query.Where("LOWER(city) = LOWER(?)", city)
	}

	var garages []models.Garage
	if err := query.Find(&garages).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve garages")
		return
	}

	c.JSON(http.StatusOK, garages)
}

func GetGarage(c *gin.Context) {
	garageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var garage models.Garage
	if err := config.DB.Preload("Services").First(&garage, "id = ?", garageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Garage not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	// Non-active garages are only visible to their owner and admins,
	// matching the list endpoint.
	if garage.Status != models.GarageStatusActive && !utils.IsOwnerOrAdmin(c, &garage) {
		utils.RespondWithError(c, http.StatusNotFound, "Garage not found")
		return
	}

	c.JSON(http.StatusOK, garage)
}

func UpdateGarage(c *gin.Context) {
	garageID, ok := parseIDParam(c, "id")
	if !ok {
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

	var input UpdateGarageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if input.Name != nil {
		garage.Name = *input.Name
	}
	if input.Description != nil {
		garage.Description = *input.Description
	}
	if input.Address != nil {
		garage.Address = *input.Address
	}
	if input.City != nil {
		garage.City = *input.City
	}
	if input.Phone != nil {
		if !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		garage.Phone = *input.Phone
	}
	if input.Email != nil {
		garage.Email = *input.Email
	}
	if input.Longitude != nil {
		garage.Longitude = *input.Longitude
	}
	if input.Latitude != nil {
		garage.Latitude = *input.Latitude
	}
	if !utils.ValidateCoordinates(garage.Longitude, garage.Latitude) {
		utils.RespondWithError(c, http.StatusBadRequest, "Coordinates out of range")
		return
	}
	if input.BusinessHours != nil {
		if !validateBusinessHours(*input.BusinessHours) {
			utils.RespondWithError(c, http.StatusBadRequest, "Business hours must be zero-padded HH:MM with open before close")
			return
		}
		garage.BusinessHours = *input.BusinessHours
	}

	if err := config.DB.Save(&garage).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update garage")
		return
	}

	c.JSON(http.StatusOK, garage)
}

// DeleteGarage soft deletes a garage
func DeleteGarage(c *gin.Context) {
	garageID, ok := parseIDParam(c, "id")
	if !ok {
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

	userID, _ := utils.PrincipalID(c)
	tx := config.DB.Begin()
	if err := tx.Model(&garage).Update("deleted_by", userID).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete garage")
		return
	}
	if err := tx.Delete(&garage).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete garage")
		return
	}
	tx.Commit()

	c.JSON(http.StatusOK, gin.H{"message": "Garage deleted successfully"})
}

// VerifyGarage is the admin verification action and the only path that
// can make a garage active; payment settlement only stamps paidAt.
func VerifyGarage(c *gin.Context) {
	garageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input VerifyGarageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
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

	garage.Status = input.Status
	garage.IsVerified = true
	if err := config.DB.Save(&garage).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to verify garage")
		return
	}

	c.JSON(http.StatusOK, garage)
}

// GetGarageStats returns the aggregate counters kept by the booking and
// review flows, plus a live breakdown by booking status.
func GetGarageStats(c *gin.Context) {
	garageID, ok := parseIDParam(c, "id")
	if !ok {
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

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var byStatus []statusCount
	config.DB.Model(&models.Booking{}).
		Select("status, COUNT(*) as count").
		Where("garage_id = ?", garageID).
		Group("status").
		Scan(&byStatus)

	upcoming := time.Now().Format("2006-01-02")
	var upcomingCount int64
	config.DB.Model(&models.Booking{}).
		Where("garage_id = ? AND date >= ? AND status IN ?", garageID, upcoming,
			[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusApproved}).
		Count(&upcomingCount)

	c.JSON(http.StatusOK, gin.H{
		"stats":            garage.Stats,
		"bookingsByStatus": byStatus,
		"upcomingBookings": upcomingCount,
	})
}
