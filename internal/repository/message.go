package repository

import (
	"context"
	"time"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// MessageRepository persists platform announcements.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.AdminMessage) error
	ListVisible(ctx context.Context, at time.Time, limit int) ([]models.AdminMessage, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.AdminMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListVisible returns messages still visible at the given time, newest first.
func (r *messageRepository) ListVisible(ctx context.Context, at time.Time, limit int) ([]models.AdminMessage, error) {
	messages := make([]models.AdminMessage, 0)
	query := r.db.WithContext(ctx).
		Where("visible_until IS NULL OR visible_until > ?", at).
		Order("created_at DESC").Order("id DESC")
	if err := (Page{Number: 1, Size: limit}).apply(query).Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}
