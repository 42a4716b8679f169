package repositories

import (
	"context"
	"errors"
	"time"

	"alva-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type referralLinkRepository struct {
	db *gorm.DB
}

// NewReferralLinkRepository creates a new referral link repository instance
func NewReferralLinkRepository(db *gorm.DB) ReferralLinkRepository {
	return &referralLinkRepository{db: db}
}

func (r *referralLinkRepository) Create(ctx context.Context, link *models.ReferralLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *referralLinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReferralLink, error) {
	var link models.ReferralLink
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *referralLinkRepository) GetByUserID(ctx context.Context, userID string) ([]*models.ReferralLink, error) {
	var links []*models.ReferralLink
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("broker ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *referralLinkRepository) GetByUserAndBroker(ctx context.Context, userID, broker string) (*models.ReferralLink, error) {
	var link models.ReferralLink
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND broker = ?", userID, broker).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *referralLinkRepository) IncrementStats(ctx context.Context, id uuid.UUID, clicks, conversions int) error {
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if clicks != 0 {
		updates["click_count"] = gorm.Expr("click_count + ?", clicks)
	}
	if conversions != 0 {
		updates["conversion_count"] = gorm.Expr("conversion_count + ?", conversions)
	}

	result := r.db.WithContext(ctx).
		Model(&models.ReferralLink{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrReferralLinkNotFound
	}
	return nil
}
