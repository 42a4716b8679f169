package api

import (
	"net/http"

	"alva-backend/internal/metrics"
	"alva-backend/internal/middleware"
	"alva-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the aggregated dashboard endpoint
type DashboardHandler struct {
	dashboardService *services.DashboardService
	metrics          *metrics.Metrics
}

// NewDashboardHandler creates a new dashboard handler. Metrics are
// optional.
func NewDashboardHandler(dashboardService *services.DashboardService, m *metrics.Metrics) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		metrics:          m,
	}
}

// GetDashboard returns the user's aggregated dashboard. Individual read
// failures degrade to empty sections, so this endpoint only 401s.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	dashboard := h.dashboardService.GetDashboard(c.Request.Context(), userID)

	if h.metrics != nil {
		h.metrics.RecordDashboardLoad()
	}

	c.JSON(http.StatusOK, dashboard)
}
