package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

type HealthHandler struct {
	db    *gorm.DB
	store storage.Store
}

func NewHealthHandler(db *gorm.DB, store storage.Store) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

// HealthCheck returns the health status of the API. A failing dependency
// turns the status to degraded with a 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	checks := gin.H{}

	if h.db == nil {
		checks["database"] = "disabled"
	} else if err := pingDB(ctx, h.db); err != nil {
		checks["database"] = err.Error()
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}

	if h.store == nil {
		checks["storage"] = "disabled"
	} else if _, err := h.store.Exists(ctx, "health"); err != nil {
		checks["storage"] = err.Error()
		status = "degraded"
	} else {
		checks["storage"] = "ok"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
