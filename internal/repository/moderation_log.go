package repository

import (
	"context"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// ModerationLogRepository records admin skill moderation.
type ModerationLogRepository interface {
	Create(ctx context.Context, entry *models.SkillModerationLog) error
	List(ctx context.Context, page Page) ([]models.SkillModerationLog, int64, error)
}

type moderationLogRepository struct {
	db *gorm.DB
}

// NewModerationLogRepository returns a new ModerationLogRepository implementation.
func NewModerationLogRepository(db *gorm.DB) ModerationLogRepository {
	return &moderationLogRepository{db: db}
}

func (r *moderationLogRepository) Create(ctx context.Context, entry *models.SkillModerationLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *moderationLogRepository) List(ctx context.Context, page Page) ([]models.SkillModerationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SkillModerationLog{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	entries := make([]models.SkillModerationLog, 0)
	if err := page.apply(query.Order("action_at DESC").Order("id DESC")).Find(&entries).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return entries, total, nil
}
