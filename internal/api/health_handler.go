package api

import (
	"net/http"
	"time"

	"alva-backend/internal/database"
	"alva-backend/internal/nats"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db          *database.DB
	natsManager *nats.Manager
}

// NewHealthHandler creates a new health handler. Both dependencies are
// optional: a nil db means the in-memory store is active, a nil manager
// means NATS is disabled, and neither counts against readiness.
func NewHealthHandler(db *database.DB, natsManager *nats.Manager) *HealthHandler {
	return &HealthHandler{
		db:          db,
		natsManager: natsManager,
	}
}

// Live reports process liveness
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports whether configured backends are reachable
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	ready := true

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			checks["database"] = err.Error()
			ready = false
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "memory"
	}

	if h.natsManager != nil {
		if err := h.natsManager.HealthCheck(); err != nil {
			checks["nats"] = err.Error()
			ready = false
		} else {
			checks["nats"] = "ok"
		}
	} else {
		checks["nats"] = "disabled"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}

	c.JSON(status, gin.H{
		"status":    state,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
