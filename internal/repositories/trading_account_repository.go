package repositories

import (
	"context"
	"errors"
	"time"

	"alva-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type tradingAccountRepository struct {
	db *gorm.DB
}

// NewTradingAccountRepository creates a new trading account repository
// instance
func NewTradingAccountRepository(db *gorm.DB) TradingAccountRepository {
	return &tradingAccountRepository{db: db}
}

func (r *tradingAccountRepository) Create(ctx context.Context, account *models.TradingAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *tradingAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error) {
	var account models.TradingAccount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *tradingAccountRepository) GetByUserID(ctx context.Context, userID string) ([]*models.TradingAccount, error) {
	var accounts []*models.TradingAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *tradingAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance, dailyPnL string) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":      balance,
			"daily_pnl":    dailyPnL,
			"last_sync_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTradingAccountNotFound
	}
	return nil
}

func (r *tradingAccountRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	// Scoped delete: an account owned by another user is left untouched
	// and no error is reported.
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.TradingAccount{}).Error
}

func (r *tradingAccountRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TradingAccount{}).Count(&count).Error
	return count, err
}
