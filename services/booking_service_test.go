package services

import (
	"errors"
	"sync"
	"testing"

	"garagehub-backend/models"

	"github.com/google/uuid"
)

func TestBookingCreate_StartsPendingWithHistory(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)

	booking := seedBooking(t, db, garage, service, "10:00", "11:00")

	if booking.Status != models.BookingStatusPending {
		t.Fatalf("expected pending, got %s", booking.Status)
	}
	if len(booking.StatusHistory) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(booking.StatusHistory))
	}
	if booking.StatusHistory[0].Reason != "Booking created" {
		t.Fatalf("unexpected history reason %q", booking.StatusHistory[0].Reason)
	}

	if got := reloadGarage(t, db, garage.ID).Stats.TotalBookings; got != 1 {
		t.Fatalf("expected totalBookings 1, got %d", got)
	}
}

func TestBookingCreate_InactiveGarage(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "pending")
	service := seedService(t, db, garage.ID, 60)

	_, err := NewBookingService(db).Create(CreateBookingInput{
		CarOwnerID: uuid.New(),
		GarageID:   garage.ID,
		ServiceID:  service.ID,
		Date:       testMonday,
		StartTime:  "10:00",
		EndTime:    "11:00",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestBookingCreate_SlotConflict(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	seedBooking(t, db, garage, service, "10:00", "11:00")

	_, err := NewBookingService(db).Create(CreateBookingInput{
		CarOwnerID: uuid.New(),
		GarageID:   garage.ID,
		ServiceID:  service.ID,
		Date:       testMonday,
		StartTime:  "10:00",
		EndTime:    "11:00",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The failed create must not leak into the stat.
	if got := reloadGarage(t, db, garage.ID).Stats.TotalBookings; got != 1 {
		t.Fatalf("expected totalBookings 1, got %d", got)
	}
}

func TestBookingCreate_ConcurrentSameSlot(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewBookingService(db)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(CreateBookingInput{
				CarOwnerID: uuid.New(),
				GarageID:   garage.ID,
				ServiceID:  service.ID,
				Date:       testMonday,
				StartTime:  "14:00",
				EndTime:    "15:00",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one create to succeed, got %d", succeeded)
	}

	var count int64
	db.Model(&models.Booking{}).Where("garage_id = ? AND date = ? AND start_time = ?", garage.ID, testMonday, "14:00").Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 booking row, got %d", count)
	}
}

func TestBookingTransition_OwnerApproves(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	booking := seedBooking(t, db, garage, service, "10:00", "11:00")

	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}
	updated, err := NewBookingService(db).Transition(booking.ID, models.BookingStatusApproved, owner, "See you Monday")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != models.BookingStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
	if len(updated.StatusHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(updated.StatusHistory))
	}
	if updated.StatusHistory[1].Reason != "See you Monday" {
		t.Fatalf("unexpected reason %q", updated.StatusHistory[1].Reason)
	}
}

func TestBookingTransition_SameStatusIsNoOp(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	booking := seedBooking(t, db, garage, service, "10:00", "11:00")

	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}
	updated, err := NewBookingService(db).Transition(booking.ID, models.BookingStatusPending, owner, "")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if len(updated.StatusHistory) != 1 {
		t.Fatalf("no-op must not append history, got %d entries", len(updated.StatusHistory))
	}
}

func TestBookingTransition_InvalidSkip(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	booking := seedBooking(t, db, garage, service, "10:00", "11:00")

	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}
	_, err := NewBookingService(db).Transition(booking.ID, models.BookingStatusCompleted, owner, "")

	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if ite.From != models.BookingStatusPending || ite.To != models.BookingStatusCompleted {
		t.Fatalf("unexpected transition error %v", ite)
	}
}

func TestBookingTransition_StrangerForbidden(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	booking := seedBooking(t, db, garage, service, "10:00", "11:00")

	stranger := Actor{ID: uuid.New(), Role: models.RoleGarageOwner}
	_, err := NewBookingService(db).Transition(booking.ID, models.BookingStatusApproved, stranger, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestBookingLifecycle_CompletedUpdatesStats(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewBookingService(db)
	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}

	booking := seedBooking(t, db, garage, service, "10:00", "11:00")
	for _, target := range []models.BookingStatus{
		models.BookingStatusApproved,
		models.BookingStatusInProgress,
		models.BookingStatusCompleted,
	} {
		if _, err := svc.Transition(booking.ID, target, owner, ""); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	stats := reloadGarage(t, db, garage.ID).Stats
	if stats.TotalBookings != 1 || stats.CompletedBookings != 1 {
		t.Fatalf("expected 1/1, got total=%d completed=%d", stats.TotalBookings, stats.CompletedBookings)
	}
}

func TestBookingTransition_ConcurrentCompleteCountsOnce(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewBookingService(db)
	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}

	booking := seedBooking(t, db, garage, service, "10:00", "11:00")
	for _, target := range []models.BookingStatus{models.BookingStatusApproved, models.BookingStatusInProgress} {
		if _, err := svc.Transition(booking.ID, target, owner, ""); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	// Whichever request loses the race must observe completed and
	// no-op instead of counting the completion twice.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(booking.ID, models.BookingStatusCompleted, owner, "")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	if got := reloadGarage(t, db, garage.ID).Stats.CompletedBookings; got != 1 {
		t.Fatalf("expected completedBookings 1, got %d", got)
	}
}

func TestBookingCancel_Rules(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewBookingService(db)

	booking := seedBooking(t, db, garage, service, "10:00", "11:00")
	carOwner := Actor{ID: booking.CarOwnerID, Role: models.RoleCarOwner}

	if _, err := svc.Cancel(booking.ID, Actor{ID: uuid.New(), Role: models.RoleCarOwner}, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger cancel: expected ErrForbidden, got %v", err)
	}

	cancelled, err := svc.Cancel(booking.ID, carOwner, "Change of plans")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// Cancelling again is idempotent.
	again, err := svc.Cancel(booking.ID, carOwner, "")
	if err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if len(again.StatusHistory) != len(cancelled.StatusHistory) {
		t.Fatal("repeat cancel must not append history")
	}

	// In-progress work can no longer be cancelled by the car owner path.
	second := seedBooking(t, db, garage, service, "11:00", "12:00")
	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}
	if _, err := svc.Transition(second.ID, models.BookingStatusApproved, owner, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Transition(second.ID, models.BookingStatusInProgress, owner, ""); err != nil {
		t.Fatalf("start work: %v", err)
	}
	var ite *InvalidTransitionError
	if _, err := svc.Cancel(second.ID, Actor{ID: second.CarOwnerID, Role: models.RoleCarOwner}, ""); !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestBookingSoftDelete_ReleasesCompletedStat(t *testing.T) {
	db := newTestDB(t)
	garage := seedGarage(t, db, "active")
	service := seedService(t, db, garage.ID, 60)
	svc := NewBookingService(db)
	owner := Actor{ID: garage.OwnerID, Role: models.RoleGarageOwner}

	booking := seedBooking(t, db, garage, service, "10:00", "11:00")
	for _, target := range []models.BookingStatus{
		models.BookingStatusApproved,
		models.BookingStatusInProgress,
		models.BookingStatusCompleted,
	} {
		if _, err := svc.Transition(booking.ID, target, owner, ""); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	if err := svc.SoftDelete(booking.ID, owner); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if got := reloadGarage(t, db, garage.ID).Stats.CompletedBookings; got != 0 {
		t.Fatalf("expected completedBookings 0 after delete, got %d", got)
	}

	var count int64
	db.Model(&models.Booking{}).Where("id = ?", booking.ID).Count(&count)
	if count != 0 {
		t.Fatal("soft-deleted booking still visible in default queries")
	}
	db.Unscoped().Model(&models.Booking{}).Where("id = ?", booking.ID).Count(&count)
	if count != 1 {
		t.Fatal("soft-deleted booking row must survive unscoped")
	}
}
