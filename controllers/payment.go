// controllers/payment.go
package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"garagehub-backend/config"
	"garagehub-backend/models"
	"garagehub-backend/services"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GaragePaymentInput struct {
	GarageID *uuid.UUID `json:"garageId"`
}

type webhookEvent struct {
	Event  string `json:"event"` // charge.success | charge.refunded
	TxRef  string `json:"tx_ref"`
	Method string `json:"method"`
}

func loadAuthedUser(c *gin.Context) (*models.User, bool) {
	userID, ok := utils.PrincipalID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return nil, false
	}
	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return nil, false
	}
	return &user, true
}

// InitiateBookingPayment creates a pending payment for the booking and
// returns the provider checkout URL.
func InitiateBookingPayment(c *gin.Context) {
	user, ok := loadAuthedUser(c)
	if !ok {
		return
	}
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	payment, checkoutURL, err := paymentService().InitiateBookingPayment(user, bookingID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payment": payment, "checkoutUrl": checkoutURL})
}

// InitiateGaragePayment creates a pending garage-creation payment; the
// garage reference is optional because the fee may precede the garage.
func InitiateGaragePayment(c *gin.Context) {
	user, ok := loadAuthedUser(c)
	if !ok {
		return
	}

	var input GaragePaymentInput
	_ = c.ShouldBindJSON(&input)

	payment, checkoutURL, err := paymentService().InitiateGaragePayment(user, input.GarageID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payment": payment, "checkoutUrl": checkoutURL})
}

// PaymentWebhook receives provider settlement notifications. The raw
// body is HMAC-verified before anything is trusted; duplicate
// deliveries converge on idempotent no-ops.
func PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Unreadable body")
		return
	}

	signature := c.GetHeader("Chapa-Signature")
	if signature == "" {
		signature = c.GetHeader("X-Chapa-Signature")
	}
	if !services.VerifyWebhookSignature(body, signature) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.TxRef == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Malformed event payload")
		return
	}

	switch event.Event {
	case "charge.success":
		err = paymentService().OnPaymentSettled(event.TxRef, event.Method, datatypes.JSON(body))
	case "charge.refunded":
		err = paymentService().OnPaymentRefunded(event.TxRef, services.Actor{Role: services.RoleSystem})
	default:
		// Unknown events are acknowledged and skipped
		c.JSON(http.StatusOK, gin.H{"message": "ignored"})
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "processed"})
}

// VerifyPayment queries the provider for the definitive outcome and
// applies it through the same settlement path the webhook uses.
func VerifyPayment(c *gin.Context) {
	user, ok := loadAuthedUser(c)
	if !ok {
		return
	}
	txRef := c.Param("txRef")

	var existing models.Payment
	if err := config.DB.First(&existing, "tx_ref = ?", txRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Payment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}
	if existing.UserID != user.ID && user.Role != models.RoleAdmin {
		utils.RespondWithError(c, http.StatusForbidden, "Not your payment")
		return
	}

	payment, err := paymentService().VerifyByRef(txRef)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// GetPayments lists the caller's payments; admins see everything.
func GetPayments(c *gin.Context) {
	user, ok := loadAuthedUser(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.Payment{})
	if user.Role != models.RoleAdmin {
		query = query.Where("user_id = ?", user.ID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var payments []models.Payment
	if err := query.Order("created_at DESC").Find(&payments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve payments")
		return
	}

	c.JSON(http.StatusOK, payments)
}

// RefundPayment is the admin-initiated refund path; it shares the
// reversal logic with refund webhooks.
func RefundPayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}
	txRef := c.Param("txRef")

	if err := paymentService().OnPaymentRefunded(txRef, actor); err != nil {
		respondServiceError(c, err)
		return
	}

	var payment models.Payment
	if err := config.DB.First(&payment, "tx_ref = ?", txRef).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	c.JSON(http.StatusOK, payment)
}
