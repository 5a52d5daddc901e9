// services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const refundWindow = 30 * 24 * time.Hour

type PaymentService struct {
	db      *gorm.DB
	gateway PaymentGateway
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway) *PaymentService {
	return &PaymentService{db: db, gateway: gateway}
}

func newTxRef() string {
	return "GHB-" + time.Now().Format("20060102") + "-" + utils.GenerateRandomString(8)
}

// InitiateBookingPayment creates a pending payment for a booking and
// returns the provider checkout URL the caller is redirected to.
func (s *PaymentService) InitiateBookingPayment(user *models.User, bookingID uuid.UUID) (*models.Payment, string, error) {
	var booking models.Booking
	if err := s.db.First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("%w: booking not found", ErrNotFound)
		}
		return nil, "", err
	}
	if booking.CarOwnerID != user.ID && user.Role != models.RoleAdmin {
		return nil, "", fmt.Errorf("%w: not your booking", ErrForbidden)
	}
	if booking.IsPaid {
		return nil, "", fmt.Errorf("%w: booking already paid", ErrConflict)
	}
	if booking.Status == models.BookingStatusCancelled || booking.Status == models.BookingStatusRejected {
		return nil, "", fmt.Errorf("%w: booking is %s", ErrValidation, booking.Status)
	}

	var service models.Service
	if err := s.db.First(&service, "id = ?", booking.ServiceID).Error; err != nil {
		return nil, "", err
	}

	payment := models.Payment{
		UserID:    booking.CarOwnerID,
		Type:      models.PaymentTypeBooking,
		BookingID: &booking.ID,
		Amount:    service.Price,
		Currency:  "ETB",
		Status:    models.PaymentStatusPending,
		TxRef:     newTxRef(),
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, "", err
	}

	checkoutURL, err := s.gateway.InitializeCheckout(CheckoutInput{
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		TxRef:     payment.TxRef,
		Email:     user.Email,
		FirstName: user.Name,
	})
	if err != nil {
		return nil, "", err
	}
	return &payment, checkoutURL, nil
}

// InitiateGaragePayment creates a pending garage-creation payment. The
// garage reference is optional: the fee may be paid before the garage
// record exists.
func (s *PaymentService) InitiateGaragePayment(user *models.User, garageID *uuid.UUID) (*models.Payment, string, error) {
	amount := 500.0
	if env := os.Getenv("GARAGE_CREATION_FEE"); env != "" {
		if v, err := strconv.ParseFloat(env, 64); err == nil {
			amount = v
		}
	}

	if garageID != nil {
		var garage models.Garage
		if err := s.db.First(&garage, "id = ?", *garageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", fmt.Errorf("%w: garage not found", ErrNotFound)
			}
			return nil, "", err
		}
		if garage.OwnerID != user.ID && user.Role != models.RoleAdmin {
			return nil, "", fmt.Errorf("%w: not your garage", ErrForbidden)
		}
	}

	payment := models.Payment{
		UserID:   user.ID,
		Type:     models.PaymentTypeGarageCreation,
		GarageID: garageID,
		Amount:   amount,
		Currency: "ETB",
		Status:   models.PaymentStatusPending,
		TxRef:    newTxRef(),
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, "", err
	}

	checkoutURL, err := s.gateway.InitializeCheckout(CheckoutInput{
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		TxRef:     payment.TxRef,
		Email:     user.Email,
		FirstName: user.Name,
	})
	if err != nil {
		return nil, "", err
	}
	return &payment, checkoutURL, nil
}

// OnPaymentSettled marks the payment completed and applies its side
// effects: a booking payment marks the booking paid and approves it, a
// garage-creation payment grants CanCreateGarage and stamps the garage.
// Re-delivering a settlement for an already completed payment is a no-op.
func (s *PaymentService) OnPaymentSettled(txRef string, method string, providerData datatypes.JSON) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, "tx_ref = ?", txRef).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment not found", ErrNotFound)
			}
			return err
		}

		if payment.Status == models.PaymentStatusCompleted {
			return nil
		}
		if payment.Status == models.PaymentStatusRefunded {
			return fmt.Errorf("%w: payment already refunded", ErrConflict)
		}

		now := time.Now().UTC()
		payment.Status = models.PaymentStatusCompleted
		payment.PaidAt = &now
		if method != "" {
			payment.Method = method
		}
		if providerData != nil {
			payment.ProviderData = providerData
		}
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		switch payment.Type {
		case models.PaymentTypeBooking:
			return settleBookingTx(tx, &payment)
		case models.PaymentTypeGarageCreation:
			return settleGarageCreationTx(tx, &payment, now)
		default:
			return fmt.Errorf("%w: unknown payment type %q", ErrValidation, payment.Type)
		}
	})
}

func settleBookingTx(tx *gorm.DB, payment *models.Payment) error {
	if payment.BookingID == nil {
		return fmt.Errorf("%w: booking payment has no booking reference", ErrValidation)
	}
	var booking models.Booking
	if err := tx.First(&booking, "id = ?", *payment.BookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: booking not found", ErrNotFound)
		}
		return err
	}

	booking.IsPaid = true
	booking.PaymentID = &payment.ID

	// The system actor drives pending bookings to approved; a booking
	// already past pending keeps its state.
	if booking.Status == models.BookingStatusPending {
		return applyTransitionTx(tx, &booking, models.BookingStatusApproved,
			Actor{ID: payment.UserID, Role: RoleSystem}, "Payment settled")
	}
	return tx.Save(&booking).Error
}

func settleGarageCreationTx(tx *gorm.DB, payment *models.Payment, paidAt time.Time) error {
	if err := tx.Model(&models.User{}).Where("id = ?", payment.UserID).
		Update("can_create_garage", true).Error; err != nil {
		return err
	}
	if payment.GarageID != nil {
		// Payment alone never activates a garage; that takes admin verification
		return tx.Model(&models.Garage{}).Where("id = ?", *payment.GarageID).
			Update("paid_at", paidAt).Error
	}
	return nil
}

// OnPaymentRefunded reverses a settlement. Only completed payments can
// be refunded. The 30-day window applies to user-initiated refunds only:
// admins and the system actor (the provider already moved the money) are
// exempt. Re-delivering a refund for an already refunded payment is a
// no-op.
func (s *PaymentService) OnPaymentRefunded(txRef string, actor Actor) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, "tx_ref = ?", txRef).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment not found", ErrNotFound)
			}
			return err
		}

		if payment.Status == models.PaymentStatusRefunded {
			return nil
		}
		if payment.Status != models.PaymentStatusCompleted {
			return fmt.Errorf("%w: only completed payments can be refunded", ErrValidation)
		}
		if !actor.IsAdmin() && !actor.IsSystem() && payment.PaidAt != nil && time.Since(*payment.PaidAt) > refundWindow {
			return fmt.Errorf("%w: refund window of 30 days has passed", ErrValidation)
		}

		payment.Status = models.PaymentStatusRefunded
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		switch payment.Type {
		case models.PaymentTypeBooking:
			return refundBookingTx(tx, &payment, actor)
		case models.PaymentTypeGarageCreation:
			return tx.Model(&models.User{}).Where("id = ?", payment.UserID).
				Update("can_create_garage", false).Error
		}
		return nil
	})
}

func refundBookingTx(tx *gorm.DB, payment *models.Payment, actor Actor) error {
	if payment.BookingID == nil {
		return nil
	}
	var booking models.Booking
	if err := tx.First(&booking, "id = ?", *payment.BookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	booking.IsPaid = false
	if booking.Status == models.BookingStatusCancelled {
		return tx.Save(&booking).Error
	}

	// A refund cancels the booking regardless of the normal transition
	// table; the history entry records why.
	booking.Status = models.BookingStatusCancelled
	booking.StatusHistory = append(booking.StatusHistory, models.StatusChange{
		Status:    models.BookingStatusCancelled,
		ChangedBy: actor.ID,
		Reason:    "Payment refunded",
		Timestamp: time.Now().UTC(),
	})
	return tx.Save(&booking).Error
}

// VerifyByRef asks the provider for the definitive outcome of a payment
// and converges on the same settlement path the webhook uses.
func (s *PaymentService) VerifyByRef(txRef string) (*models.Payment, error) {
	result, err := s.gateway.Verify(txRef)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case "success":
		if err := s.OnPaymentSettled(txRef, result.Method, nil); err != nil {
			return nil, err
		}
	case "failed":
		if err := s.db.Model(&models.Payment{}).
			Where("tx_ref = ? AND status = ?", txRef, models.PaymentStatusPending).
			Update("status", models.PaymentStatusFailed).Error; err != nil {
			return nil, err
		}
	}

	var payment models.Payment
	if err := s.db.First(&payment, "tx_ref = ?", txRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment not found", ErrNotFound)
		}
		return nil, err
	}
	return &payment, nil
}

// StartVerificationPoller periodically re-checks stale pending payments
// against the provider, covering missed webhook deliveries.
func (s *PaymentService) StartVerificationPoller() {
	c := cron.New()

	c.AddFunc("@every 10m", func() {
		cutoff := time.Now().Add(-2 * time.Minute)
		var pending []models.Payment
		if err := s.db.Where("status = ? AND created_at < ?", models.PaymentStatusPending, cutoff).
			Limit(100).Find(&pending).Error; err != nil {
			log.Printf("Failed to fetch pending payments: %v", err)
			return
		}
		for _, p := range pending {
			if _, err := s.VerifyByRef(p.TxRef); err != nil {
				log.Printf("Verification failed for %s: %v", p.TxRef, err)
			}
		}
	})

	c.Start()
	log.Println("Payment verification poller started")
}
