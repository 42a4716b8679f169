package api

import (
	"errors"
	"net/http"

	"alva-backend/internal/middleware"
	"alva-backend/internal/models"
	"alva-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CopierHandler handles master copier connection endpoints
type CopierHandler struct {
	copierService *services.CopierService
}

// NewCopierHandler creates a new copier handler
func NewCopierHandler(copierService *services.CopierService) *CopierHandler {
	return &CopierHandler{copierService: copierService}
}

// ListConnections returns the user's copier connections, newest first
func (h *CopierHandler) ListConnections(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conns, err := h.copierService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch copier connections")
		return
	}
	if conns == nil {
		conns = []*models.MasterCopierConnection{}
	}

	c.JSON(http.StatusOK, conns)
}

// Connect creates a copier connection for one of the user's accounts
func (h *CopierHandler) Connect(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.ConnectCopierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.copierService.Connect(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, models.ErrAccountOwnershipMismatch) {
			respondError(c, http.StatusNotFound, "Trading account not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to create copier connection")
		return
	}

	c.JSON(http.StatusCreated, conn)
}

// UpdateStatus toggles a copier connection on or off
func (h *CopierHandler) UpdateStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	connID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid connection id")
		return
	}

	var req models.UpdateCopierStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "isActive must be a boolean")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.copierService.UpdateStatus(c.Request.Context(), userID, connID, &req)
	if err != nil {
		if errors.Is(err, models.ErrCopierConnectionNotFound) {
			respondError(c, http.StatusNotFound, "Copier connection not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to update copier connection")
		return
	}

	c.JSON(http.StatusOK, conn)
}
