// services/review_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"garagehub-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const reviewEditWindow = 30 * 24 * time.Hour

type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

type CreateReviewInput struct {
	CarOwnerID      uuid.UUID
	BookingID       uuid.UUID
	GarageID        uuid.UUID
	Rating          int
	Title           string
	Comment         string
	CategoryRatings models.CategoryRatings
}

// Create adds the single review a completed or approved booking is
// entitled to, and folds the rating into the garage aggregates.
func (s *ReviewService) Create(in CreateReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	for _, r := range in.CategoryRatings {
		if r < 1 || r > 5 {
			return nil, fmt.Errorf("%w: category ratings must be between 1 and 5", ErrValidation)
		}
	}

	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, "id = ?", in.BookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking not found", ErrNotFound)
			}
			return err
		}
		if booking.CarOwnerID != in.CarOwnerID {
			return fmt.Errorf("%w: not your booking", ErrForbidden)
		}
		if booking.GarageID != in.GarageID {
			return fmt.Errorf("%w: garage does not match booking", ErrValidation)
		}
		if booking.Status != models.BookingStatusCompleted && booking.Status != models.BookingStatusApproved {
			return fmt.Errorf("%w: booking is not in a reviewable state", ErrValidation)
		}

		var existing int64
		if err := tx.Model(&models.Review{}).Where("booking_id = ?", in.BookingID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: booking already reviewed", ErrConflict)
		}

		review = models.Review{
			BookingID:       in.BookingID,
			CarOwnerID:      in.CarOwnerID,
			GarageID:        in.GarageID,
			Rating:          in.Rating,
			Title:           in.Title,
			Comment:         in.Comment,
			CategoryRatings: in.CategoryRatings,
			IsVerified:      booking.Status == models.BookingStatusCompleted,
		}
		if err := tx.Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: booking already reviewed", ErrConflict)
			}
			return err
		}

		return recalcRatingTx(tx, in.GarageID)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

type UpdateReviewInput struct {
	Rating  *int
	Title   *string
	Comment *string
}

// Update edits a review. Owners get 30 days from creation; admins are
// exempt from the window.
func (s *ReviewService) Update(reviewID uuid.UUID, actor Actor, in UpdateReviewInput) (*models.Review, error) {
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, "id = ?", reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: review not found", ErrNotFound)
			}
			return err
		}
		if !actor.IsAdmin() {
			if review.CarOwnerID != actor.ID {
				return fmt.Errorf("%w: not your review", ErrForbidden)
			}
			if time.Since(review.CreatedAt) > reviewEditWindow {
				return fmt.Errorf("%w: reviews can only be edited within 30 days", ErrValidation)
			}
		}

		ratingChanged := in.Rating != nil && *in.Rating != review.Rating
		if in.Rating != nil {
			review.Rating = *in.Rating
		}
		if in.Title != nil {
			review.Title = *in.Title
		}
		if in.Comment != nil {
			review.Comment = *in.Comment
		}
		if err := tx.Save(&review).Error; err != nil {
			return err
		}

		if ratingChanged {
			return recalcRatingTx(tx, review.GarageID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// Delete soft-deletes a review and removes its rating from the garage
// aggregates.
func (s *ReviewService) Delete(reviewID uuid.UUID, actor Actor) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.First(&review, "id = ?", reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: review not found", ErrNotFound)
			}
			return err
		}
		if !actor.IsAdmin() && review.CarOwnerID != actor.ID {
			return fmt.Errorf("%w: not your review", ErrForbidden)
		}

		if err := tx.Model(&review).Update("deleted_by", actor.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		return recalcRatingTx(tx, review.GarageID)
	})
}

// Respond attaches the single garage-side response. Subsequent attempts
// fail until the response is withdrawn.
func (s *ReviewService) Respond(reviewID uuid.UUID, actor Actor, comment string) (*models.Review, error) {
	return s.setResponse(reviewID, actor, comment, false)
}

// UpdateResponse edits an existing response.
func (s *ReviewService) UpdateResponse(reviewID uuid.UUID, actor Actor, comment string) (*models.Review, error) {
	return s.setResponse(reviewID, actor, comment, true)
}

func (s *ReviewService) setResponse(reviewID uuid.UUID, actor Actor, comment string, mustExist bool) (*models.Review, error) {
	if comment == "" {
		return nil, fmt.Errorf("%w: response comment is required", ErrValidation)
	}

	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadReviewForGarageActorTx(tx, &review, reviewID, actor); err != nil {
			return err
		}
		if mustExist && !review.HasResponse() {
			return fmt.Errorf("%w: review has no response", ErrNotFound)
		}
		if !mustExist && review.HasResponse() {
			return fmt.Errorf("%w: already responded", ErrConflict)
		}

		now := time.Now().UTC()
		review.ResponseComment = &comment
		review.RespondedAt = &now
		review.RespondedBy = &actor.ID
		return tx.Save(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// WithdrawResponse removes the response, allowing a fresh one.
func (s *ReviewService) WithdrawResponse(reviewID uuid.UUID, actor Actor) (*models.Review, error) {
	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadReviewForGarageActorTx(tx, &review, reviewID, actor); err != nil {
			return err
		}
		if !review.HasResponse() {
			return fmt.Errorf("%w: review has no response", ErrNotFound)
		}
		review.ResponseComment = nil
		review.RespondedAt = nil
		review.RespondedBy = nil
		return tx.Save(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ToggleHelpful adds or removes the user's helpful vote.
func (s *ReviewService) ToggleHelpful(reviewID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, "id = ?", reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: review not found", ErrNotFound)
			}
			return err
		}

		id := userID.String()
		votes := make(models.StringList, 0, len(review.HelpfulVotes)+1)
		found := false
		for _, v := range review.HelpfulVotes {
			if v == id {
				found = true
				continue
			}
			votes = append(votes, v)
		}
		if !found {
			votes = append(votes, id)
		}
		review.HelpfulVotes = votes
		return tx.Save(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func loadReviewForGarageActorTx(tx *gorm.DB, review *models.Review, reviewID uuid.UUID, actor Actor) error {
	if err := tx.First(review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: review not found", ErrNotFound)
		}
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	var garage models.Garage
	if err := tx.First(&garage, "id = ?", review.GarageID).Error; err != nil {
		return err
	}
	if garage.OwnerID != actor.ID {
		return fmt.Errorf("%w: only the garage owner or an admin may manage responses", ErrForbidden)
	}
	return nil
}

// recalcRatingTx recomputes the garage's review aggregates from the
// surviving review rows. Runs in the same transaction as the write that
// changed them.
func recalcRatingTx(tx *gorm.DB, garageID uuid.UUID) error {
	type agg struct {
		Count int64
		Avg   float64
	}
	var a agg
	if err := tx.Model(&models.Review{}).
		Select("COUNT(*) as count, COALESCE(AVG(rating), 0) as avg").
		Where("garage_id = ?", garageID).
		Scan(&a).Error; err != nil {
		return err
	}
	return tx.Model(&models.Garage{}).Where("id = ?", garageID).
		Updates(map[string]interface{}{
			"stats_total_reviews":  a.Count,
			"stats_average_rating": a.Avg,
		}).Error
}
