// services/errors.go
package services

import (
	"errors"
	"fmt"

	"garagehub-backend/models"

	"github.com/google/uuid"
)

// Error kinds surfaced by the engine. Controllers map them onto HTTP
// status families; wrap with fmt.Errorf("%w: ...") to add detail.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrUpstream   = errors.New("upstream failure")
)

// InvalidTransitionError names the offending source and target states.
type InvalidTransitionError struct {
	From models.BookingStatus
	To   models.BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// Actor identifies who is driving an operation. The system actor is used
// for payment-driven transitions, which bypass ownership checks.
type Actor struct {
	ID   uuid.UUID
	Role string
}

const RoleSystem = "system"

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}
