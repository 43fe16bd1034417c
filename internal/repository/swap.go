package repository

import (
	"context"
	"time"

	"skillswap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SwapFilter is the predicate of SwapRepository.FindMany. Zero values do not filter.
type SwapFilter struct {
	ParticipantID    uint // requester or responder
	RequesterID      uint
	ResponderID      uint
	Status           models.SwapStatus
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
	HasFeedback      bool
	WithParticipants bool
}

// SwapSort selects the ordering of swap listings.
type SwapSort int

const (
	// SwapSortNewest orders by creation time, newest first.
	SwapSortNewest SwapSort = iota
	// SwapSortOldest orders by creation time, oldest first.
	SwapSortOldest
)

// SwapRepository defines persistence operations for swaps.
type SwapRepository interface {
	Get(ctx context.Context, id uint) (*models.Swap, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Swap, error)
	Put(ctx context.Context, swap *models.Swap) error
	Delete(ctx context.Context, id uint) error
	FindMany(ctx context.Context, filter SwapFilter, sort SwapSort, page Page) ([]models.Swap, int64, error)
	CancelPendingForUser(ctx context.Context, userID uint, reason string) ([]models.Swap, error)
	CompletedForUser(ctx context.Context, userID uint) ([]models.Swap, error)
	CountByStatus(ctx context.Context, participantID uint) (map[models.SwapStatus]int64, error)
}

type swapRepository struct {
	db *gorm.DB
}

// NewSwapRepository returns a new SwapRepository implementation.
func NewSwapRepository(db *gorm.DB) SwapRepository {
	return &swapRepository{db: db}
}

func participantColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "profile_photo", "location", "rating_average", "rating_count")
}

func (r *swapRepository) withParticipants(db *gorm.DB) *gorm.DB {
	return db.Preload("Requester", participantColumns).Preload("Responder", participantColumns)
}

// Get loads a swap with both participants.
func (r *swapRepository) Get(ctx context.Context, id uint) (*models.Swap, error) {
	var swap models.Swap
	if err := r.withParticipants(r.db.WithContext(ctx)).First(&swap, id).Error; err != nil {
		return nil, translateError(err, "Swap", id)
	}
	return &swap, nil
}

// GetForUpdate loads the bare swap row, locked where the dialect allows.
// Call it inside a transaction.
func (r *swapRepository) GetForUpdate(ctx context.Context, id uint) (*models.Swap, error) {
	var swap models.Swap
	if err := lockForUpdate(r.db.WithContext(ctx)).First(&swap, id).Error; err != nil {
		return nil, translateError(err, "Swap", id)
	}
	return &swap, nil
}

// Put inserts a new swap (ID 0) or overwrites an existing one. Associations are never written.
func (r *swapRepository) Put(ctx context.Context, swap *models.Swap) error {
	db := r.db.WithContext(ctx).Omit(clause.Associations)
	var err error
	if swap.ID == 0 {
		err = db.Create(swap).Error
	} else {
		err = db.Save(swap).Error
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *swapRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Swap{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Swap", id)
	}
	return nil
}

func applySwapFilter(query *gorm.DB, filter SwapFilter) *gorm.DB {
	if filter.ParticipantID != 0 {
		query = query.Where("(requester_id = ? OR responder_id = ?)", filter.ParticipantID, filter.ParticipantID)
	}
	if filter.RequesterID != 0 {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.ResponderID != 0 {
		query = query.Where("responder_id = ?", filter.ResponderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.HasFeedback {
		query = query.Where("(requester_feedback_rating > 0 OR responder_feedback_rating > 0)")
	}
	return query
}

// FindMany returns one page of matching swaps and the total match count.
func (r *swapRepository) FindMany(ctx context.Context, filter SwapFilter, sort SwapSort, page Page) ([]models.Swap, int64, error) {
	query := applySwapFilter(r.db.WithContext(ctx).Model(&models.Swap{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	if sort == SwapSortOldest {
		query = query.Order("created_at ASC").Order("id ASC")
	} else {
		query = query.Order("created_at DESC").Order("id DESC")
	}
	if filter.WithParticipants {
		query = r.withParticipants(query)
	}

	swaps := make([]models.Swap, 0)
	if err := page.apply(query).Find(&swaps).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return swaps, total, nil
}

// CancelPendingForUser cancels every pending swap userID takes part in and returns them
// in their cancelled state.
func (r *swapRepository) CancelPendingForUser(ctx context.Context, userID uint, reason string) ([]models.Swap, error) {
	swaps := make([]models.Swap, 0)
	if err := lockForUpdate(r.db.WithContext(ctx)).
		Where("(requester_id = ? OR responder_id = ?) AND status = ?", userID, userID, models.SwapStatusPending).
		Order("id ASC").
		Find(&swaps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(swaps) == 0 {
		return swaps, nil
	}

	ids := make([]uint, 0, len(swaps))
	for _, s := range swaps {
		ids = append(ids, s.ID)
	}

	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&models.Swap{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":           models.SwapStatusCancelled,
			"rejection_reason": reason,
			"updated_at":       now,
		}).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	for i := range swaps {
		swaps[i].Status = models.SwapStatusCancelled
		swaps[i].RejectionReason = reason
		swaps[i].UpdatedAt = now
	}
	return swaps, nil
}

// CompletedForUser returns every completed swap userID takes part in.
func (r *swapRepository) CompletedForUser(ctx context.Context, userID uint) ([]models.Swap, error) {
	swaps := make([]models.Swap, 0)
	if err := r.db.WithContext(ctx).
		Where("(requester_id = ? OR responder_id = ?) AND status = ?", userID, userID, models.SwapStatusCompleted).
		Find(&swaps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return swaps, nil
}

// CountByStatus counts swaps per status. A zero participantID counts the whole platform.
func (r *swapRepository) CountByStatus(ctx context.Context, participantID uint) (map[models.SwapStatus]int64, error) {
	var rows []struct {
		Status models.SwapStatus
		Count  int64
	}
	query := applySwapFilter(r.db.WithContext(ctx).Model(&models.Swap{}), SwapFilter{ParticipantID: participantID})
	if err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	counts := make(map[models.SwapStatus]int64, len(models.SwapStatuses))
	for _, s := range models.SwapStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
