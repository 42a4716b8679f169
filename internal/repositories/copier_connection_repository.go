package repositories

import (
	"context"
	"errors"
	"time"

	"alva-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type copierConnectionRepository struct {
	db *gorm.DB
}

// NewCopierConnectionRepository creates a new copier connection repository
// instance
func NewCopierConnectionRepository(db *gorm.DB) CopierConnectionRepository {
	return &copierConnectionRepository{db: db}
}

func (r *copierConnectionRepository) Create(ctx context.Context, conn *models.MasterCopierConnection) error {
	return r.db.WithContext(ctx).Create(conn).Error
}

func (r *copierConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MasterCopierConnection, error) {
	var conn models.MasterCopierConnection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (r *copierConnectionRepository) GetByUserID(ctx context.Context, userID string) ([]*models.MasterCopierConnection, error) {
	var conns []*models.MasterCopierConnection
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&conns).Error
	if err != nil {
		return nil, err
	}
	return conns, nil
}

func (r *copierConnectionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.MasterCopierConnection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  isActive,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrCopierConnectionNotFound
	}
	return nil
}
