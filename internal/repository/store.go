package repository

import (
	"context"
	"sync"
	"time"

	"skillswap/internal/cache"

	"gorm.io/gorm"
)

// Repositories bundles the repositories bound to one database handle,
// either the root connection or an open transaction.
type Repositories struct {
	Users      UserRepository
	Swaps      SwapRepository
	Messages   MessageRepository
	Moderation ModerationLogRepository
}

// Store owns the database handle and hands out repositories and transactions.
type Store struct {
	db         *gorm.DB
	profiles   *cache.Store
	profileTTL time.Duration
}

// NewStore builds a Store. profiles may be nil.
func NewStore(db *gorm.DB, profiles *cache.Store, profileTTL time.Duration) *Store {
	return &Store{db: db, profiles: profiles, profileTTL: profileTTL}
}

// DB exposes the root handle for health checks and maintenance commands.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Repositories returns repositories on the root connection.
func (s *Store) Repositories() Repositories {
	return s.bind(s.db, s.profiles.InvalidateProfiles)
}

func (s *Store) bind(db *gorm.DB, invalidate func(context.Context, ...uint)) Repositories {
	users := &userRepository{db: db, profiles: s.profiles, ttl: s.profileTTL, invalidate: invalidate}
	if users.ttl <= 0 {
		users.ttl = cache.DefaultProfileTTL
	}
	return Repositories{
		Users:      users,
		Swaps:      NewSwapRepository(db),
		Messages:   NewMessageRepository(db),
		Moderation: NewModerationLogRepository(db),
	}
}

// pendingInvalidations collects profile ids touched inside a transaction.
type pendingInvalidations struct {
	mu  sync.Mutex
	ids []uint
}

func (p *pendingInvalidations) add(_ context.Context, ids ...uint) {
	p.mu.Lock()
	p.ids = append(p.ids, ids...)
	p.mu.Unlock()
}

// WithinTransaction runs fn with repositories bound to one transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// Cached profiles touched by fn are dropped only after a successful commit.
func (s *Store) WithinTransaction(ctx context.Context, fn func(Repositories) error) error {
	pending := &pendingInvalidations{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.bind(tx, pending.add))
	})
	if err != nil {
		return err
	}
	s.profiles.InvalidateProfiles(ctx, pending.ids...)
	return nil
}
