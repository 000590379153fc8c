// Package middleware holds the gin middleware shared by the API routes.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the authenticated user's identity.  Authentication
// itself happens at the gateway; by the time a request reaches this service
// the header is trusted.
const UserIDHeader = "X-User-ID"

// userIDKey is the gin context key the identity is stored under.
const userIDKey = "user_id"

// UserIdentity requires the gateway identity header and stores its value in
// the request context.  Requests without it are rejected before any handler
// runs.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "COMMON_003", "message": "missing user identity"},
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the identity set by UserIdentity, or "" when the middleware
// did not run on this route.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
