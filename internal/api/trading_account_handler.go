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

// TradingAccountHandler handles trading account endpoints
type TradingAccountHandler struct {
	accountService *services.AccountService
	metrics        *metrics.Metrics
}

// NewTradingAccountHandler creates a new trading account handler
func NewTradingAccountHandler(accountService *services.AccountService, m *metrics.Metrics) *TradingAccountHandler {
	return &TradingAccountHandler{
		accountService: accountService,
		metrics:        m,
	}
}

// ListAccounts returns the user's trading accounts, newest first
func (h *TradingAccountHandler) ListAccounts(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch trading accounts")
		return
	}
	if accounts == nil {
		accounts = []*models.TradingAccount{}
	}

	c.JSON(http.StatusOK, accounts)
}

// ConnectAccount connects a new trading account
func (h *TradingAccountHandler) ConnectAccount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.ConnectTradingAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.accountService.ConnectAccount(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to connect trading account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

// UpdateBalance applies a manual balance update to one account
func (h *TradingAccountHandler) UpdateBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid account id")
		return
	}

	var req models.UpdateBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.accountService.UpdateBalance(c.Request.Context(), userID, accountID, &req)
	if err != nil {
		if errors.Is(err, models.ErrTradingAccountNotFound) {
			respondError(c, http.StatusNotFound, "Trading account not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to update balance")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordBalanceUpdate(account.Broker, "success")
	}

	c.JSON(http.StatusOK, account)
}

// DisconnectAccount removes a trading account. Unknown or foreign ids
// still return 200 so the endpoint leaks no account existence.
func (h *TradingAccountHandler) DisconnectAccount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid account id")
		return
	}

	if err := h.accountService.DisconnectAccount(c.Request.Context(), userID, accountID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to disconnect trading account")
		return
	}

	respondMessage(c, http.StatusOK, "Trading account disconnected")
}
