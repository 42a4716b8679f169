package services

import (
	"context"
	"fmt"

	"alva-backend/internal/models"
	"alva-backend/internal/repositories"

	"github.com/google/uuid"
)

// CopierService handles master copier connection metadata. Connections
// are descriptive only: no trade replication happens here.
type CopierService struct {
	repos *repositories.Repositories
}

// NewCopierService creates a new copier service
func NewCopierService(repos *repositories.Repositories) *CopierService {
	return &CopierService{repos: repos}
}

// Connect creates a copier connection after verifying the trading account
// belongs to the requesting user
func (s *CopierService) Connect(ctx context.Context, userID string, req *models.ConnectCopierRequest) (*models.MasterCopierConnection, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.repos.TradingAccount.GetByID(ctx, req.TradingAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trading account: %w", err)
	}
	if account == nil || account.UserID != userID {
		return nil, models.ErrAccountOwnershipMismatch
	}

	conn := &models.MasterCopierConnection{
		UserID:           userID,
		TradingAccountID: req.TradingAccountID,
		MasterAccountID:  req.MasterAccountID,
		CopyRatio:        req.CopyRatio,
		IsActive:         true,
	}

	if err := s.repos.Copier.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to create copier connection: %w", err)
	}

	return conn, nil
}

// List returns the user's copier connections, newest first
func (s *CopierService) List(ctx context.Context, userID string) ([]*models.MasterCopierConnection, error) {
	conns, err := s.repos.Copier.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list copier connections: %w", err)
	}
	return conns, nil
}

// UpdateStatus toggles a connection the user owns
func (s *CopierService) UpdateStatus(ctx context.Context, userID string, connID uuid.UUID, req *models.UpdateCopierStatusRequest) (*models.MasterCopierConnection, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	conn, err := s.repos.Copier.GetByID(ctx, connID)
	if err != nil {
		return nil, fmt.Errorf("failed to get copier connection: %w", err)
	}
	if conn == nil || conn.UserID != userID {
		return nil, models.ErrCopierConnectionNotFound
	}

	if err := s.repos.Copier.UpdateStatus(ctx, connID, *req.IsActive); err != nil {
		return nil, fmt.Errorf("failed to update copier status: %w", err)
	}

	conn.IsActive = *req.IsActive
	return conn, nil
}
