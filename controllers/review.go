// controllers/review.go
package controllers

import (
	"net/http"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/services"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateReviewInput struct {
	BookingID       uuid.UUID              `json:"bookingId" binding:"required"`
	GarageID        uuid.UUID              `json:"garageId" binding:"required"`
	Rating          int                    `json:"rating" binding:"required,min=1,max=5"`
	Title           string                 `json:"title"`
	Comment         string                 `json:"comment" binding:"required"`
	CategoryRatings models.CategoryRatings `json:"categoryRatings"`
}

type UpdateReviewInput struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Title   *string `json:"title"`
	Comment *string `json:"comment"`
}

type ResponseInput struct {
	Comment string `json:"comment" binding:"required"`
}

// CreateReview adds the single review a completed or approved booking
// is entitled to.
func CreateReview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input CreateReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	review, err := reviewService().Create(services.CreateReviewInput{
		CarOwnerID:      actor.ID,
		BookingID:       input.BookingID,
		GarageID:        input.GarageID,
		Rating:          input.Rating,
		Title:           input.Title,
		Comment:         input.Comment,
		CategoryRatings: input.CategoryRatings,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// GetGarageReviews lists a garage's reviews, newest first. Public.
func GetGarageReviews(c *gin.Context) {
	garageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var reviews []models.Review
	if err := config.DB.Where("garage_id = ?", garageID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}

	c.JSON(http.StatusOK, reviews)
}

func UpdateReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input UpdateReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	review, err := reviewService().Update(reviewID, actor, services.UpdateReviewInput{
		Rating:  input.Rating,
		Title:   input.Title,
		Comment: input.Comment,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func DeleteReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	if err := reviewService().Delete(reviewID, actor); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

// RespondToReview attaches the single garage-side response.
func RespondToReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input ResponseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	review, err := reviewService().Respond(reviewID, actor, input.Comment)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

func UpdateReviewResponse(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input ResponseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	review, err := reviewService().UpdateResponse(reviewID, actor, input.Comment)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func WithdrawReviewResponse(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	review, err := reviewService().WithdrawResponse(reviewID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// MarkReviewHelpful toggles the caller's helpful vote.
func MarkReviewHelpful(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := utils.PrincipalID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	review, err := reviewService().ToggleHelpful(reviewID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}
