package services

import (
	"errors"
	"testing"

	"garagehub-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func completedBooking(t *testing.T, db *gorm.DB, garage *models.Garage, service *models.Service, start, end string) *models.Booking {
	t.Helper()
	booking := seedBooking(t, db, garage, service, start, end)
	svc := NewBookingService(db)
	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}
	for _, target := range []models.BookingStatus{
		models.BookingStatusApproved,
		models.BookingStatusInProgress,
		models.BookingStatusCompleted,
	} {
		var err error
		if booking, err = svc.Transition(booking.ID, target, owner, ""); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}
	return booking
}

func TestReviewCreate_GatedOnBookingState(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewReviewService(db)

	pending := seedBooking(t, db, garage, service, "09:00", "10:00")
	_, err := svc.Create(CreateReviewInput{
		CarOwnerID: pending.CarOwnerID,
		BookingID:  pending.ID,
		GarageID:   garage.ID,
		Rating:     5,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("pending booking: expected ErrValidation, got %v", err)
	}

	done := completedBooking(t, db, garage, service, "10:00", "11:00")
	review, err := svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID,
		BookingID:  done.ID,
		GarageID:   garage.ID,
		Rating:     4,
		Comment:    "Quick and honest",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !review.IsVerified {
		t.Fatal("review of completed booking must be verified")
	}

	// One review per booking.
	_, err = svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID,
		BookingID:  done.ID,
		GarageID:   garage.ID,
		Rating:     5,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate review: expected ErrConflict, got %v", err)
	}
}

func TestReviewCreate_AllowedAgainAfterSoftDelete(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewReviewService(db)

	done := completedBooking(t, db, garage, service, "10:00", "11:00")
	first, err := svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID,
		BookingID:  done.ID,
		GarageID:   garage.ID,
		Rating:     2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(first.ID, Actor{ID: first.CarOwnerID, Role: models.RoleCarOwner}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// A soft-deleted review releases the one-per-booking slot.
	second, err := svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID,
		BookingID:  done.ID,
		GarageID:   garage.ID,
		Rating:     5,
	})
	if err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}

	stats := reloadGarage(t, db, garage.ID).Stats
	if stats.TotalReviews != 1 || stats.AverageRating != 5 {
		t.Fatalf("expected 1 review avg 5, got count=%d avg=%v", stats.TotalReviews, stats.AverageRating)
	}

	// The live review still blocks a third one.
	if _, err := svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID,
		BookingID:  done.ID,
		GarageID:   garage.ID,
		Rating:     4,
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict while %s is live, got %v", second.ID, err)
	}
}

func TestReviewCreate_ApprovedBookingUnverified(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)

	booking := seedBooking(t, db, garage, service, "10:00", "11:00")
	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}
	if _, err := NewBookingService(db).Transition(booking.ID, models.BookingStatusApproved, owner, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	review, err := NewReviewService(db).Create(CreateReviewInput{
		CarOwnerID: booking.CarOwnerID,
		BookingID:  booking.ID,
		GarageID:   garage.ID,
		Rating:     3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if review.IsVerified {
		t.Fatal("review of merely approved booking must not be verified")
	}
}

func TestReviewCreate_Validation(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewReviewService(db)
	done := completedBooking(t, db, garage, service, "10:00", "11:00")

	if _, err := svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID, BookingID: done.ID, GarageID: garage.ID, Rating: 6,
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("rating 6: expected ErrValidation, got %v", err)
	}

	if _, err := svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID, BookingID: done.ID, GarageID: garage.ID,
		Rating: 4, CategoryRatings: models.CategoryRatings{"quality": 0},
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("category 0: expected ErrValidation, got %v", err)
	}

	if _, err := svc.Create(CreateReviewInput{
		CarOwnerID: uuid.New(), BookingID: done.ID, GarageID: garage.ID, Rating: 4,
	}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: expected ErrForbidden, got %v", err)
	}

	if _, err := svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID, BookingID: done.ID, GarageID: uuid.New(), Rating: 4,
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("garage mismatch: expected ErrValidation, got %v", err)
	}
}

func TestReviewAggregates(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewReviewService(db)

	first := completedBooking(t, db, garage, service, "09:00", "10:00")
	second := completedBooking(t, db, garage, service, "11:00", "12:00")

	r1, err := svc.Create(CreateReviewInput{
		CarOwnerID: first.CarOwnerID, BookingID: first.ID, GarageID: garage.ID, Rating: 5,
	})
	if err != nil {
		t.Fatalf("create r1: %v", err)
	}
	if _, err := svc.Create(CreateReviewInput{
		CarOwnerID: second.CarOwnerID, BookingID: second.ID, GarageID: garage.ID, Rating: 3,
	}); err != nil {
		t.Fatalf("create r2: %v", err)
	}

	stats := reloadGarage(t, db, garage.ID).Stats
	if stats.TotalReviews != 2 || stats.AverageRating != 4 {
		t.Fatalf("expected 2 reviews avg 4, got count=%d avg=%v", stats.TotalReviews, stats.AverageRating)
	}

	// Editing a rating re-folds the aggregate.
	newRating := 1
	actor := Actor{ID: r1.CarOwnerID, Role: models.RoleCarOwner}
	if _, err := svc.Update(r1.ID, actor, UpdateReviewInput{Rating: &newRating}); err != nil {
		t.Fatalf("update: %v", err)
	}
	stats = reloadGarage(t, db, garage.ID).Stats
	if stats.AverageRating != 2 {
		t.Fatalf("expected avg 2 after edit, got %v", stats.AverageRating)
	}

	// Deleting removes the rating from the aggregate.
	if err := svc.Delete(r1.ID, actor); err != nil {
		t.Fatalf("delete: %v", err)
	}
	stats = reloadGarage(t, db, garage.ID).Stats
	if stats.TotalReviews != 1 || stats.AverageRating != 3 {
		t.Fatalf("expected 1 review avg 3 after delete, got count=%d avg=%v", stats.TotalReviews, stats.AverageRating)
	}
}

func TestReviewResponse_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewReviewService(db)

	done := completedBooking(t, db, garage, service, "10:00", "11:00")
	review, err := svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID, BookingID: done.ID, GarageID: garage.ID, Rating: 4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}
	stranger := Actor{ID: uuid.New(), Role: models.RoleGarageOwner}

	if _, err := svc.UpdateResponse(review.ID, owner, "edited"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update before respond: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Respond(review.ID, stranger, "not yours"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger respond: expected ErrForbidden, got %v", err)
	}

	responded, err := svc.Respond(review.ID, owner, "Thanks for coming in")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !responded.HasResponse() || responded.RespondedBy == nil || *responded.RespondedBy != owner.ID {
		t.Fatal("response not recorded")
	}

	if _, err := svc.Respond(review.ID, owner, "again"); !errors.Is(err, ErrConflict) {
		t.Fatalf("second respond: expected ErrConflict, got %v", err)
	}

	if _, err := svc.UpdateResponse(review.ID, owner, "Thanks, come again"); err != nil {
		t.Fatalf("update response: %v", err)
	}

	withdrawn, err := svc.WithdrawResponse(review.ID, owner)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawn.HasResponse() {
		t.Fatal("withdraw left the response in place")
	}

	// A fresh response is allowed after withdrawal.
	if _, err := svc.Respond(review.ID, owner, "Fresh reply"); err != nil {
		t.Fatalf("respond after withdraw: %v", err)
	}
}

func TestReviewToggleHelpful(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewReviewService(db)

	done := completedBooking(t, db, garage, service, "10:00", "11:00")
	review, err := svc.Create(CreateReviewInput{
		CarOwnerID: done.CarOwnerID, BookingID: done.ID, GarageID: garage.ID, Rating: 4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	voter := uuid.New()
	voted, err := svc.ToggleHelpful(review.ID, voter)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(voted.HelpfulVotes) != 1 || voted.HelpfulVotes[0] != voter.String() {
		t.Fatalf("expected one vote, got %v", voted.HelpfulVotes)
	}

	unvoted, err := svc.ToggleHelpful(review.ID, voter)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if len(unvoted.HelpfulVotes) != 0 {
		t.Fatalf("expected vote removed, got %v", unvoted.HelpfulVotes)
	}
}
