package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GatewayAuth trusts user info from gateway headers (X-User-ID, X-User-Email,
// X-User-Role). It is used when the API runs behind a gateway that already
// validated the caller.
//
// This should ONLY be used with network isolation between the gateway and
// the API.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDStr := c.GetHeader("X-User-ID")
		if userIDStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-User-ID header from gateway",
			})
			c.Abort()
			return
		}
		setGatewayUser(c, userIDStr)
		c.Next()
	}
}

// OptionalGatewayAuth is like GatewayAuth but lets anonymous requests through.
func OptionalGatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userIDStr := c.GetHeader("X-User-ID"); userIDStr != "" {
			setGatewayUser(c, userIDStr)
		}
		c.Next()
	}
}

// setGatewayUser stores the numeric id when the gateway sends one; the
// string form is always kept.
func setGatewayUser(c *gin.Context, userIDStr string) {
	var userID uint
	if id, err := strconv.ParseUint(userIDStr, 10, 64); err == nil {
		userID = uint(id)
	}
	c.Set("user_id", userID)
	c.Set("user_id_str", userIDStr)
	c.Set("user_email", c.GetHeader("X-User-Email"))
	c.Set("user_role", c.GetHeader("X-User-Role"))
}

// GetUserIDFromGateway retrieves the user ID from gateway headers
func GetUserIDFromGateway(c *gin.Context) (string, bool) {
	userIDStr, exists := c.Get("user_id_str")
	if !exists {
		return "", false
	}
	id, ok := userIDStr.(string)
	return id, ok
}
