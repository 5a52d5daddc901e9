package models

import "time"

// RateLimit is a persisted fixed-window request counter, keyed by client
// identity and route. Kept in the database so the count holds across
// server instances and restarts.
type RateLimit struct {
	Key         string    `gorm:"primaryKey" json:"key"`
	WindowStart time.Time `gorm:"not null" json:"windowStart"`
	Count       int       `gorm:"not null;default:0" json:"count"`
}
