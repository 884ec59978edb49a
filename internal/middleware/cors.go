package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS allows the operational API to be called from a browser-based
// admin dashboard without a same-origin restriction. Tight enough that
// it doesn't need gin-contrib/cors: this module has one header set and
// no credentialed requests.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
