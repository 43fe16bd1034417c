package repository

import (
	"context"
	"errors"
	"time"

	"skillswap/internal/cache"
	"skillswap/internal/models"

	"gorm.io/gorm"
)

// UserSort selects the ordering of user listings.
type UserSort int

const (
	// UserSortNewest orders by creation time, newest first (admin listings).
	UserSortNewest UserSort = iota
	// UserSortDirectory orders by rating then recency (directory search).
	UserSortDirectory
)

// UserFilter is the predicate of UserRepository.FindMany. Zero values do not filter.
type UserFilter struct {
	PublicOnly    bool
	Active        *bool
	ExcludeID     uint
	SkillOffered  string // substring of an offered skill name
	Location      string // substring of location
	Search        string // substring of name, email or location
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Role          models.Role
	Sort          UserSort
	PreloadSkills bool
}

// UserCounts summarizes the user table for platform statistics.
type UserCounts struct {
	Total          int64
	Active         int64
	RecentlyActive int64
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetProfile(ctx context.Context, id uint) (*models.User, error)
	GetAccount(ctx context.Context, id uint) (*models.User, error)
	GetAccountForUpdate(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	UpdateRating(ctx context.Context, id uint, rating models.Rating) error
	FindMany(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error)
	Counts(ctx context.Context, activeSince time.Time) (UserCounts, error)
	AddSkill(ctx context.Context, skill *models.UserSkill) error
	DeleteSkill(ctx context.Context, userID uint, kind models.SkillKind, skillID uint) (*models.UserSkill, error)
}

type userRepository struct {
	db         *gorm.DB
	profiles   *cache.Store
	ttl        time.Duration
	invalidate func(ctx context.Context, ids ...uint)
}

// NewUserRepository returns a new UserRepository implementation.
// profiles may be nil, which disables profile caching.
func NewUserRepository(db *gorm.DB, profiles *cache.Store, ttl time.Duration) UserRepository {
	if ttl <= 0 {
		ttl = cache.DefaultProfileTTL
	}
	return &userRepository{db: db, profiles: profiles, ttl: ttl, invalidate: profiles.InvalidateProfiles}
}

func orderedSkills(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

// GetByID loads a user with skills straight from the database.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Skills", orderedSkills).First(&user, id).Error; err != nil {
		return nil, translateError(err, "User", id)
	}
	return &user, nil
}

// GetProfile is GetByID behind the profile cache. The cached copy carries no password hash,
// so it must only back read paths.
func (r *userRepository) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.profiles.Aside(ctx, cache.ProfileKey(id), &user, r.ttl, func() error {
		loaded, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		user = *loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAccount loads the user row without skills, for authentication checks.
func (r *userRepository) GetAccount(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err, "User", id)
	}
	return &user, nil
}

// GetAccountForUpdate is GetAccount with the row locked where the dialect allows.
// Call it inside a transaction to serialize writes to one user's skill lists.
func (r *userRepository) GetAccountForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := lockForUpdate(r.db.WithContext(ctx)).First(&user, id).Error; err != nil {
		return nil, translateError(err, "User", id)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update writes the given columns and drops the cached profile.
func (r *userRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	models.SearchColumns(fields)
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.invalidate(ctx, id)
	return nil
}

// UpdateRating overwrites both rating fields.
func (r *userRepository) UpdateRating(ctx context.Context, id uint, rating models.Rating) error {
	return r.Update(ctx, id, map[string]interface{}{
		"rating_average": rating.Average,
		"rating_count":   rating.Count,
	})
}

func (r *userRepository) FindMany(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if filter.PublicOnly {
		query = query.Where("is_public = ?", true)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if filter.ExcludeID != 0 {
		query = query.Where("id <> ?", filter.ExcludeID)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.SkillOffered != "" {
		query = query.Where(
			`EXISTS (SELECT 1 FROM user_skills us WHERE us.user_id = users.id AND us.kind = ? AND `+containsClause("us.skill_search")+`)`,
			models.SkillKindOffered, likePattern(filter.SkillOffered),
		)
	}
	if filter.Location != "" {
		query = query.Where(containsClause("location_search"), likePattern(filter.Location))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(
			"("+containsClause("name_search")+" OR "+containsClause("LOWER(email)")+" OR "+containsClause("location_search")+")",
			pattern, pattern, pattern,
		)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	switch filter.Sort {
	case UserSortDirectory:
		query = query.Order("rating_average DESC").Order("last_active DESC").Order("id DESC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}
	if filter.PreloadSkills {
		query = query.Preload("Skills", orderedSkills)
	}

	users := make([]models.User, 0)
	if err := page.apply(query).Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

func (r *userRepository) Counts(ctx context.Context, activeSince time.Time) (UserCounts, error) {
	var counts UserCounts
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&counts.Total).Error; err != nil {
		return counts, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true).Count(&counts.Active).Error; err != nil {
		return counts, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("last_active >= ?", activeSince).Count(&counts.RecentlyActive).Error; err != nil {
		return counts, models.NewInternalError(err)
	}
	return counts, nil
}

// AddSkill appends skill to the end of its owner's list of the same kind.
func (r *userRepository) AddSkill(ctx context.Context, skill *models.UserSkill) error {
	var maxPos int
	if err := r.db.WithContext(ctx).Model(&models.UserSkill{}).
		Where("user_id = ? AND kind = ?", skill.UserID, skill.Kind).
		Select("COALESCE(MAX(position), -1)").Scan(&maxPos).Error; err != nil {
		return models.NewInternalError(err)
	}
	skill.Position = maxPos + 1

	if err := r.db.WithContext(ctx).Create(skill).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, skill.UserID)
	return nil
}

// DeleteSkill removes one of userID's skills and returns it. NotFound if it is not theirs.
func (r *userRepository) DeleteSkill(ctx context.Context, userID uint, kind models.SkillKind, skillID uint) (*models.UserSkill, error) {
	var skill models.UserSkill
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND kind = ?", skillID, userID, kind).
		First(&skill).Error; err != nil {
		return nil, translateError(err, "Skill", skillID)
	}
	if err := r.db.WithContext(ctx).Delete(&skill).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	r.invalidate(ctx, userID)
	return &skill, nil
}
