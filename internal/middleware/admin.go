package middleware

import (
	"net/http"

	"github.com/Conceptual-Machines/chordsheet-api/internal/models"
	"github.com/gin-gonic/gin"
)

// AdminRequired ensures the user has admin role
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetCurrentUser(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		if user.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// IsAdmin reports whether the request belongs to an admin.
func IsAdmin(c *gin.Context) bool {
	user, ok := GetCurrentUser(c)
	return ok && user.Role == models.RoleAdmin
}
