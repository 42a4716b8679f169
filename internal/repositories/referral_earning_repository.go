package repositories

import (
	"context"
	"fmt"
	"strconv"

	"alva-backend/internal/models"

	"gorm.io/gorm"
)

type referralEarningRepository struct {
	db *gorm.DB
}

// NewReferralEarningRepository creates a new referral earning repository
// instance
func NewReferralEarningRepository(db *gorm.DB) ReferralEarningRepository {
	return &referralEarningRepository{db: db}
}

func (r *referralEarningRepository) Create(ctx context.Context, earning *models.ReferralEarning) error {
	if earning.Status == "" {
		earning.Status = models.EarningStatusPending
	}
	return r.db.WithContext(ctx).Create(earning).Error
}

func (r *referralEarningRepository) GetByReferrerID(ctx context.Context, referrerID string) ([]*models.ReferralEarning, error) {
	var earnings []*models.ReferralEarning
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *referralEarningRepository) TotalPaid(ctx context.Context, referrerID string) (string, error) {
	// Amounts are stored as decimal text; summing in Go keeps the query
	// portable across postgres and the sqlite test backend.
	var amounts []string
	err := r.db.WithContext(ctx).
		Model(&models.ReferralEarning{}).
		Where("referrer_id = ? AND status = ?", referrerID, models.EarningStatusPaid).
		Pluck("amount", &amounts).Error
	if err != nil {
		return "", err
	}

	var total float64
	for _, a := range amounts {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			continue
		}
		total += v
	}
	return fmt.Sprintf("%.2f", total), nil
}

func (r *referralEarningRepository) CountDistinctReferred(ctx context.Context, referrerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReferralEarning{}).
		Where("referrer_id = ?", referrerID).
		Distinct("referred_user_id").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
