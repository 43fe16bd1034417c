// Package seed populates a database with demo users, skills and swaps for development.
package seed

import (
	"context"
	"fmt"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/service"

	"gorm.io/gorm"
)

// Options configure a seeding run.
type Options struct {
	NumUsers    int
	NumSwaps    int
	ShouldClean bool
	// SkipBcrypt stores a placeholder hash; seeded users cannot log in.
	SkipBcrypt bool
	// MaxDays bounds how far back timestamps are spread.
	MaxDays  int
	RandSeed int64
}

// Summary reports what a run created.
type Summary struct {
	Users    int
	Swaps    int
	ByStatus map[models.SwapStatus]int
	Rated    int
}

// statusWeights is the share of seeded swaps per status, out of 100.
var statusWeights = []struct {
	status models.SwapStatus
	weight int
}{
	{models.SwapStatusPending, 30},
	{models.SwapStatusAccepted, 20},
	{models.SwapStatusCompleted, 30},
	{models.SwapStatusRejected, 10},
	{models.SwapStatusCancelled, 10},
}

// Seeder runs a seeding pass against one database.
type Seeder struct {
	db      *gorm.DB
	store   *repository.Store
	factory *Factory
	opts    Options
}

// NewSeeder loads the embedded catalog and binds a factory to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	store := repository.NewStore(db, nil, 0)
	return &Seeder{
		db:      db,
		store:   store,
		factory: NewFactory(store.Repositories(), catalog, opts),
		opts:    opts,
	}, nil
}

// Run creates users and swaps, then recomputes every rating.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	if s.opts.ShouldClean {
		if err := Clean(ctx, s.db); err != nil {
			return nil, err
		}
	}

	summary := &Summary{ByStatus: make(map[models.SwapStatus]int)}
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	middleware.Logger.Info("seeded users", "count", summary.Users)

	if len(users) >= 2 {
		for i := 0; i < s.opts.NumSwaps; i++ {
			requester := users[s.factory.faker.Number(0, len(users)-1)]
			responder := users[s.factory.faker.Number(0, len(users)-1)]
			for responder.ID == requester.ID {
				responder = users[s.factory.faker.Number(0, len(users)-1)]
			}
			status := s.pickStatus()
			if _, err := s.factory.CreateSwap(ctx, requester, responder, status); err != nil {
				return nil, fmt.Errorf("create swap %d: %w", i, err)
			}
			summary.ByStatus[status]++
			summary.Swaps++
		}
	}
	middleware.Logger.Info("seeded swaps", "count", summary.Swaps)

	rated, err := service.RatingAggregator{}.RecomputeAll(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("recompute ratings: %w", err)
	}
	summary.Rated = rated
	return summary, nil
}

func (s *Seeder) pickStatus() models.SwapStatus {
	roll := s.factory.faker.Number(1, 100)
	for _, w := range statusWeights {
		if roll <= w.weight {
			return w.status
		}
		roll -= w.weight
	}
	return models.SwapStatusPending
}

// Clean removes all swaps, moderation history, announcements and non-admin users.
func Clean(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []interface{}{&models.Swap{}, &models.SkillModerationLog{}, &models.AdminMessage{}} {
			if err := all.Delete(model).Error; err != nil {
				return fmt.Errorf("clean %T: %w", model, err)
			}
		}
		nonAdmins := tx.Model(&models.User{}).Select("id").Where("role <> ?", models.RoleAdmin)
		if err := tx.Where("user_id IN (?)", nonAdmins).Delete(&models.UserSkill{}).Error; err != nil {
			return fmt.Errorf("clean skills: %w", err)
		}
		if err := tx.Where("role <> ?", models.RoleAdmin).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clean users: %w", err)
		}
		middleware.Logger.Info("database cleaned")
		return nil
	})
}
