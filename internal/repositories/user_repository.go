package repositories

import (
	"context"
	"errors"
	"time"

	"alva-backend/internal/models"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Upsert(ctx context.Context, params *models.UpsertUserParams) (*models.User, bool, error) {
	var (
		user    models.User
		created bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", params.ID).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				ID:              params.ID,
				Email:           params.Email,
				FirstName:       params.FirstName,
				LastName:        params.LastName,
				ProfileImageURL: params.ProfileImageURL,
				ReferralCode:    models.GenerateReferralCode(),
				ReferredBy:      params.ReferredBy,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			created = true
			return nil
		case err != nil:
			return err
		}

		// Existing row: refresh profile fields, keep the referral code and
		// CreatedAt, and never overwrite an established referrer link.
		user.Email = params.Email
		user.FirstName = params.FirstName
		user.LastName = params.LastName
		user.ProfileImageURL = params.ProfileImageURL
		if user.ReferredBy == nil && params.ReferredBy != nil {
			user.ReferredBy = params.ReferredBy
		}
		if user.ReferralCode == "" {
			user.ReferralCode = models.GenerateReferralCode()
		}
		user.UpdatedAt = time.Now().UTC()
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, false, err
	}

	return &user, created, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
