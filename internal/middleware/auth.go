package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminAuth gates the admin-only operational endpoints (leaderboard
// disable/enable, manual matchmaker trigger) behind a single shared
// token. Account/session auth for the snake-owner-facing API is out of
// scope (SPEC_FULL.md §1, out of scope); this exists only so the thin
// operational surface this module does own isn't wide open.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin endpoints disabled"})
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
