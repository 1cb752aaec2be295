package middleware

import (
	"net/http"
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/config"
	"github.com/Conceptual-Machines/chordsheet-api/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	bearerPrefix = "Bearer"
)

// UserFinder loads a user by id.
type UserFinder func(id uint) (*models.User, error)

// DBUserFinder looks users up with gorm.
func DBUserFinder(db *gorm.DB) UserFinder {
	return func(id uint) (*models.User, error) {
		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
}

// JWTAuth middleware validates JWT tokens and attaches user to context
func JWTAuth(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return JWTAuthWith(DBUserFinder(db), cfg.JWTSecret)
}

// JWTAuthWith is JWTAuth over an arbitrary user lookup.
func JWTAuthWith(find UserFinder, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims, err := ParseToken(secret, tokenString, TokenAccess)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		user, err := find(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
			c.Abort()
			return
		}

		c.Set("user", *user)
		c.Set("user_id", user.ID)

		c.Next()
	}
}

// tokenFromRequest prefers the Authorization header, then the
// access_token cookie set for browser logins.
func tokenFromRequest(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == bearerPrefix {
			return parts[1]
		}
	}
	token, _ := c.Cookie("access_token")
	return token
}

// GetCurrentUser retrieves the user from context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	userVal, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := userVal.(models.User)
	return &user, ok
}

// GetCurrentUserID retrieves the user ID from context
func GetCurrentUserID(c *gin.Context) (uint, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	userID, ok := userIDVal.(uint)
	return userID, ok
}
