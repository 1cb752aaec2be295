package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/api/middleware"
	"github.com/Conceptual-Machines/chordsheet-api/internal/engine"
	"github.com/Conceptual-Machines/chordsheet-api/internal/models"
	"github.com/Conceptual-Machines/chordsheet-api/internal/services"
	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const defaultStatsWindow = 30 * 24 * time.Hour

// ConversionsHandler serves conversion history from the database and
// stored results from the storage repository. Either may be absent.
type ConversionsHandler struct {
	history *services.HistoryService
	repo    *storage.Repository
}

func NewConversionsHandler(history *services.HistoryService, repo *storage.Repository) *ConversionsHandler {
	return &ConversionsHandler{history: history, repo: repo}
}

// List returns the caller's history, newest first.
func (h *ConversionsHandler) List(c *gin.Context) {
	if !h.history.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Conversion history is not configured"})
		return
	}

	limit := services.ClampLimit(queryInt(c, "limit", 0))
	offset := queryInt(c, "offset", 0)
	rows, err := h.history.List(middleware.CurrentUserID(c), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get conversion history"})
		return
	}
	if rows == nil {
		rows = []models.ConversionLog{}
	}

	c.JSON(http.StatusOK, gin.H{
		"conversions": rows,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
		},
	})
}

// Stats aggregates the caller's history over from..to, defaulting to the
// last 30 days.
func (h *ConversionsHandler) Stats(c *gin.Context) {
	if !h.history.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Conversion history is not configured"})
		return
	}

	to := queryTime(c, "to", time.Now())
	from := queryTime(c, "from", to.Add(-defaultStatsWindow))

	stats, err := h.history.Stats(middleware.CurrentUserID(c), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get conversion stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
		"period": gin.H{
			"from": from.Format(time.RFC3339),
			"to":   to.Format(time.RFC3339),
		},
	})
}

// Get returns a stored result and, when history is on, its log row.
func (h *ConversionsHandler) Get(c *gin.Context) {
	id := c.Param("id")
	resp := gin.H{"id": id}

	if h.repo != nil {
		var res engine.Result
		err := h.repo.LoadConversion(c.Request.Context(), id, &res)
		switch {
		case err == nil:
			resp["result"] = res
		case errors.Is(err, storage.ErrInvalidKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversion id"})
			return
		case !errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversion"})
			return
		}
	}

	if h.history.Enabled() {
		row, err := h.history.Get(middleware.CurrentUserID(c), id)
		switch {
		case err == nil:
			resp["log"] = row
		case !errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversion history"})
			return
		}
	}

	if len(resp) == 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversion not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListStored lists the ids of every stored result. Admin only.
func (h *ConversionsHandler) ListStored(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage is not configured"})
		return
	}
	ids, err := h.repo.ListConversions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ids": ids, "count": len(ids)})
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

func queryTime(c *gin.Context, name string, def time.Time) time.Time {
	t, err := time.Parse(time.RFC3339, c.Query(name))
	if err != nil {
		return def
	}
	return t
}
