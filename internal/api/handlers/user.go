package handlers

import (
	"net/http"
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/middleware"
	"github.com/Conceptual-Machines/chordsheet-api/internal/services"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	history *services.HistoryService
}

func NewUserHandler(history *services.HistoryService) *UserHandler {
	return &UserHandler{history: history}
}

// GetProfile returns the current user's profile with lifetime conversion
// totals.
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp := gin.H{
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"name":       user.Name,
			"role":       user.Role,
			"is_active":  user.IsActive,
			"created_at": user.CreatedAt,
		},
	}
	if h.history.Enabled() {
		stats, err := h.history.Stats(user.ID, time.Time{}, time.Time{})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get conversion stats"})
			return
		}
		resp["conversions"] = stats
	}

	c.JSON(http.StatusOK, resp)
}
