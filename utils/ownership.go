// utils/ownership.go
package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Owned is implemented by every entity that has a single owning user.
// Entities whose owner lives on a related row (e.g. a garage service)
// return nil and callers authorize against the related entity instead.
type Owned interface {
	OwnedBy() *uuid.UUID
}

// PrincipalID extracts the authenticated user id set by AuthMiddleware.
func PrincipalID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("userId")
	if !exists {
		return uuid.Nil, false
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// PrincipalRole extracts the authenticated role set by AuthMiddleware.
func PrincipalRole(c *gin.Context) string {
	raw, exists := c.Get("role")
	if !exists {
		return ""
	}
	s, _ := raw.(string)
	return s
}

// IsOwnerOrAdmin reports whether the authenticated principal owns the
// entity or is an admin. Replaces per-type ownership branching.
func IsOwnerOrAdmin(c *gin.Context, entity Owned) bool {
	if PrincipalRole(c) == "admin" {
		return true
	}
	id, ok := PrincipalID(c)
	if !ok {
		return false
	}
	owner := entity.OwnedBy()
	return owner != nil && *owner == id
}
