package config

import (
	"log"
	"net/http"
	"time"

	"garagehub-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateLimit is a fixed-window limiter keyed by client IP and route, backed
// by the rate_limits table so the count survives restarts and is shared
// across server instances. The increment is a single atomic upsert; the
// window resets when the stored window start falls out of the cutoff.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + "|" + c.FullPath()
		now := time.Now().UTC()
		cutoff := now.Add(-window)

		err := DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count": gorm.Expr(
					"CASE WHEN rate_limits.window_start <= ? THEN 1 ELSE rate_limits.count + 1 END", cutoff),
				"window_start": gorm.Expr(
					"CASE WHEN rate_limits.window_start <= ? THEN ? ELSE rate_limits.window_start END", cutoff, now),
			}),
		}).Create(&models.RateLimit{Key: key, WindowStart: now, Count: 1}).Error
		if err != nil {
			// A broken limiter must not take down the endpoint
			log.Printf("[RATELIMIT] increment failed for %s: %v", key, err)
			c.Next()
			return
		}

		var rl models.RateLimit
		if err := DB.First(&rl, "key = ?", key).Error; err == nil && rl.Count > limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, try again later",
			})
			return
		}

		c.Next()
	}
}
