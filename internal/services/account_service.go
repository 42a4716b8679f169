package services

import (
	"context"
	"fmt"
	"log"

	"alva-backend/internal/models"
	"alva-backend/internal/repositories"
	"alva-backend/pkg/security"

	"github.com/google/uuid"
)

// AccountService handles trading account business logic
type AccountService struct {
	repos      *repositories.Repositories
	encryption *security.EncryptionManager
	events     EventPublisher
}

// NewAccountService creates a new account service. Encryption and events
// are optional; without an encryption manager submitted API keys are
// discarded rather than stored in the clear.
func NewAccountService(repos *repositories.Repositories, encryption *security.EncryptionManager, events EventPublisher) *AccountService {
	return &AccountService{
		repos:      repos,
		encryption: encryption,
		events:     events,
	}
}

// ConnectAccount creates a trading account record for the user
func (s *AccountService) ConnectAccount(ctx context.Context, userID string, req *models.ConnectTradingAccountRequest) (*models.TradingAccount, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	connected := true
	account := &models.TradingAccount{
		UserID:      userID,
		Broker:      req.Broker,
		AccountID:   req.AccountID,
		AccountName: req.AccountName,
		Balance:     req.Balance,
		DailyPnL:    req.DailyPnL,
		CopyStatus:  req.CopyStatus,
		IsConnected: &connected,
	}

	if req.APIKey != nil && *req.APIKey != "" {
		if s.encryption == nil {
			log.Printf("no encryption key configured, discarding API key for account %s", req.AccountID)
		} else {
			encrypted, err := s.encryption.Encrypt(*req.APIKey)
			if err != nil {
				return nil, fmt.Errorf("failed to encrypt API key: %w", err)
			}
			account.APIKeyEncrypted = &encrypted
		}
	}

	if err := s.repos.TradingAccount.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create trading account: %w", err)
	}

	return account, nil
}

// ListAccounts returns the user's trading accounts, newest first
func (s *AccountService) ListAccounts(ctx context.Context, userID string) ([]*models.TradingAccount, error) {
	accounts, err := s.repos.TradingAccount.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trading accounts: %w", err)
	}
	return accounts, nil
}

// UpdateBalance applies a manual balance update to one of the user's
// accounts and stamps the sync time
func (s *AccountService) UpdateBalance(ctx context.Context, userID string, accountID uuid.UUID, req *models.UpdateBalanceRequest) (*models.TradingAccount, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.repos.TradingAccount.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trading account: %w", err)
	}
	if account == nil || account.UserID != userID {
		return nil, models.ErrTradingAccountNotFound
	}

	if err := s.repos.TradingAccount.UpdateBalance(ctx, accountID, *req.Balance, *req.DailyPnL); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishBalanceSynced(ctx, userID, accountID, *req.Balance, *req.DailyPnL); err != nil {
			log.Printf("failed to publish balance sync event for account %s: %v", accountID, err)
		}
	}

	updated, err := s.repos.TradingAccount.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload trading account: %w", err)
	}
	return updated, nil
}

// DisconnectAccount removes the user's trading account. Deleting an
// account that does not exist or belongs to another user is a no-op.
func (s *AccountService) DisconnectAccount(ctx context.Context, userID string, accountID uuid.UUID) error {
	if err := s.repos.TradingAccount.Delete(ctx, accountID, userID); err != nil {
		return fmt.Errorf("failed to delete trading account: %w", err)
	}
	return nil
}
