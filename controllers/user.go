// controllers/user.go
package controllers

import (
	"errors"
	"net/http"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetUsers lists all users. Admin only.
func GetUsers(c *gin.Context) {
	query := config.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	c.JSON(http.StatusOK, users)
}

// DeleteUser hard-deletes a user and purges their bookings, reviews and
// payments. Admin only; this is the sole path that physically removes
// booking rows.
func DeleteUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "User not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := bookingService().HardPurgeForUser(userID); err != nil {
		respondServiceError(c, err)
		return
	}

	actorID, _ := utils.PrincipalID(c)
	tx := config.DB.Begin()
	// Garages stay soft-deleted so their booking history remains auditable
	if err := tx.Model(&models.Garage{}).Where("owner_id = ?", userID).
		Update("deleted_by", actorID).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if err := tx.Where("owner_id = ?", userID).Delete(&models.Garage{}).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if err := tx.Unscoped().Delete(&user).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	tx.Commit()

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
