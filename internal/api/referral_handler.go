package api

import (
	"errors"
	"net/http"

	"alva-backend/internal/metrics"
	"alva-backend/internal/middleware"
	"alva-backend/internal/models"
	"alva-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReferralHandler handles referral earnings, stats and link endpoints
type ReferralHandler struct {
	referralService *services.ReferralService
	metrics         *metrics.Metrics
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(referralService *services.ReferralService, m *metrics.Metrics) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
		metrics:         m,
	}
}

// ListEarnings returns the user's commission ledger, newest first
func (h *ReferralHandler) ListEarnings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	earnings, err := h.referralService.GetEarnings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch referral earnings")
		return
	}
	if earnings == nil {
		earnings = []*models.ReferralEarning{}
	}

	c.JSON(http.StatusOK, earnings)
}

// CreateEarning records a commission event with the caller as referrer
func (h *ReferralHandler) CreateEarning(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateReferralEarningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	earning, err := h.referralService.CreateEarning(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create referral earning")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordReferralEarning(earning.Broker, earning.Status)
	}

	c.JSON(http.StatusCreated, earning)
}

// GetStats returns the user's referral summary
func (h *ReferralHandler) GetStats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stats, err := h.referralService.GetStats(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to fetch referral stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListLinks returns the user's referral links ordered by broker
func (h *ReferralHandler) ListLinks(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	links, err := h.referralService.GetLinks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch referral links")
		return
	}
	if links == nil {
		links = []*models.ReferralLink{}
	}

	c.JSON(http.StatusOK, links)
}

// GetLinkByBroker returns the user's link for one broker
func (h *ReferralHandler) GetLinkByBroker(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	link, err := h.referralService.GetLinkByBroker(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrReferralLinkNotFound) {
			respondError(c, http.StatusNotFound, "Referral link not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to fetch referral link")
		return
	}

	c.JSON(http.StatusOK, link)
}

// CreateLink creates an extra referral link beyond the provisioned
// defaults
func (h *ReferralHandler) CreateLink(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateReferralLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	link, err := h.referralService.CreateLink(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, models.ErrReferralLinkExists) {
			respondError(c, http.StatusConflict, "Referral link already exists for this broker")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to create referral link")
		return
	}

	c.JSON(http.StatusCreated, link)
}

// TrackClick is the public click endpoint: no session, rate limited per
// IP. The link id is the only trusted input.
func (h *ReferralHandler) TrackClick(c *gin.Context) {
	linkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid link id")
		return
	}

	link, err := h.referralService.TrackClick(c.Request.Context(), linkID)
	if err != nil {
		if errors.Is(err, models.ErrReferralLinkNotFound) {
			respondError(c, http.StatusNotFound, "Referral link not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to record click")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordReferralClick(link.Broker)
	}

	respondMessage(c, http.StatusOK, "Click recorded")
}

// TrackConversion is the public conversion callback used by broker signup
// bridges, rate limited like the click endpoint
func (h *ReferralHandler) TrackConversion(c *gin.Context) {
	linkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid link id")
		return
	}

	link, err := h.referralService.TrackConversion(c.Request.Context(), linkID)
	if err != nil {
		if errors.Is(err, models.ErrReferralLinkNotFound) {
			respondError(c, http.StatusNotFound, "Referral link not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to record conversion")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordReferralConversion(link.Broker)
	}

	respondMessage(c, http.StatusOK, "Conversion recorded")
}
