// controllers/common.go
package controllers

import (
	"errors"
	"net/http"
	"strings"

	"garagehub-backend/config"
	"garagehub-backend/services"
	"garagehub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gateway is the payment provider client, injected at startup.
var Gateway services.PaymentGateway

func availabilityService() *services.AvailabilityService {
	return services.NewAvailabilityService(config.DB)
}

func bookingService() *services.BookingService {
	return services.NewBookingService(config.DB)
}

func paymentService() *services.PaymentService {
	return services.NewPaymentService(config.DB, Gateway)
}

func reviewService() *services.ReviewService {
	return services.NewReviewService(config.DB)
}

// currentActor builds the engine actor from the authenticated principal.
func currentActor(c *gin.Context) (services.Actor, bool) {
	id, ok := utils.PrincipalID(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{ID: id, Role: utils.PrincipalRole(c)}, true
}

var errorKinds = []struct {
	kind   error
	status int
}{
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrConflict, http.StatusConflict},
	{services.ErrValidation, http.StatusBadRequest},
	{services.ErrUpstream, http.StatusBadGateway},
}

// respondServiceError maps engine error kinds onto HTTP status families.
func respondServiceError(c *gin.Context, err error) {
	var invalid *services.InvalidTransitionError
	if errors.As(err, &invalid) {
		utils.RespondWithError(c, http.StatusConflict, invalid.Error())
		return
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			msg := strings.TrimPrefix(err.Error(), k.kind.Error()+": ")
			utils.RespondWithError(c, k.status, msg)
			return
		}
	}

	utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}
