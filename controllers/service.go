// controllers/service.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateServiceInput defines the expected JSON structure for creating a service
type CreateServiceInput struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"min=0"`
	Duration    int     `json:"duration" binding:"required,min=1"` // in minutes
	Category    string  `json:"category" binding:"omitempty,oneof=maintenance repair inspection cleaning tires electrical bodywork general"`
}

// UpdateServiceInput defines the expected JSON structure for updating a service
type UpdateServiceInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,min=0"`
	Duration    *int     `json:"duration" binding:"omitempty,min=1"`
	Category    *string  `json:"category" binding:"omitempty,oneof=maintenance repair inspection cleaning tires electrical bodywork general"`
	IsAvailable *bool    `json:"isAvailable"`
}

func loadOwnedGarage(c *gin.Context) (*models.Garage, bool) {
	garageID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	var garage models.Garage
	if err := config.DB.First(&garage, "id = ?", garageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Garage not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}

	if !utils.IsOwnerOrAdmin(c, &garage) {
		utils.RespondWithError(c, http.StatusForbidden, "Not your garage")
		return nil, false
	}
	return &garage, true
}

// CreateService creates a new service for a garage
func CreateService(c *gin.Context) {
	garage, ok := loadOwnedGarage(c)
	if !ok {
		return
	}

	var input CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Service names are unique per garage, case-insensitive
	var existing int64
	if err := config.DB.Model(&models.Service{}).
		Where("garage_id = ? AND LOWER(name) = LOWER(?)", garage.ID, input.Name).
		Count(&existing).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if existing > 0 {
		utils.RespondWithError(c, http.StatusConflict, "A service with this name already exists")
		return
	}

	category := input.Category
	if category == "" {
		category = "general"
	}

	service := models.Service{
		GarageID:    garage.ID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Duration:    input.Duration,
		Category:    category,
		IsAvailable: true,
	}

	if err := config.DB.Create(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create service")
		return
	}

	c.JSON(http.StatusCreated, service)
}

// GetServices retrieves all services for a garage
func GetServices(c *gin.Context) {
	garageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var services []models.Service
	if err := config.DB.Where("garage_id = ?", garageID).Find(&services).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}

	c.JSON(http.StatusOK, services)
}

// GetService retrieves a specific service by ID
func GetService(c *gin.Context) {
	garageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(c.Param("serviceId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid serviceId format")
		return
	}

	var service models.Service
	if err := config.DB.Where("garage_id = ? AND id = ?", garageID, serviceID).
		First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, service)
}

// UpdateService updates an existing service
func UpdateService(c *gin.Context) {
	garage, ok := loadOwnedGarage(c)
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(c.Param("serviceId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid serviceId format")
		return
	}

	var input UpdateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var service models.Service
	if err := config.DB.Where("garage_id = ? AND id = ?", garage.ID, serviceID).
		First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil && *input.Name != service.Name {
		var existing int64
		if err := config.DB.Model(&models.Service{}).
			Where("garage_id = ? AND LOWER(name) = LOWER(?) AND id <> ?", garage.ID, *input.Name, service.ID).
			Count(&existing).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if existing > 0 {
			utils.RespondWithError(c, http.StatusConflict, "A service with this name already exists")
			return
		}
		service.Name = *input.Name
	}
	if input.Description != nil {
		service.Description = *input.Description
	}
	if input.Price != nil {
		service.Price = *input.Price
	}
	if input.Duration != nil {
		service.Duration = *input.Duration
	}
	if input.Category != nil {
		service.Category = *input.Category
	}
	if input.IsAvailable != nil {
		service.IsAvailable = *input.IsAvailable
	}

	if err := config.DB.Save(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update service")
		return
	}

	c.JSON(http.StatusOK, service)
}

// DeleteService soft deletes a service unless upcoming active bookings
// still reference it
func DeleteService(c *gin.Context) {
	garage, ok := loadOwnedGarage(c)
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(c.Param("serviceId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid serviceId format")
		return
	}

	today := time.Now().Format("2006-01-02")
	var upcoming int64
	if err := config.DB.Model(&models.Booking{}).
		Where("service_id = ? AND date >= ? AND status IN ?", serviceID, today,
			[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusApproved, models.BookingStatusInProgress}).
		Count(&upcoming).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if upcoming > 0 {
		utils.RespondWithError(c, http.StatusConflict, "Service has upcoming bookings")
		return
	}

	result := config.DB.Where("garage_id = ? AND id = ?", garage.ID, serviceID).
		Delete(&models.Service{})

	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete service")
		return
	}

	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}
