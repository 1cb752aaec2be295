package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoAuth is a pass-through middleware for AUTH_MODE=none. Every request
// runs as the anonymous user 0.
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", uint(0))
		c.Set("user_id_str", "anonymous")
		c.Next()
	}
}

// CurrentUserID returns the user id any auth mode stored, 0 when anonymous.
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
