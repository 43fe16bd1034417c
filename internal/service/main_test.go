package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"skillswap/internal/database"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// newTestStore opens a private in-memory sqlite database behind a repository.Store.
func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return repository.NewStore(db, nil, 0)
}

// failUpdates makes every UPDATE that sets column on table abort, until the returned func
// drops the trigger. when is an optional SQL condition over NEW.
func failUpdates(t *testing.T, store *repository.Store, table, column, when string) func() {
	t.Helper()
	name := fmt.Sprintf("fail_%s_%s", table, column)
	stmt := fmt.Sprintf("CREATE TRIGGER %s BEFORE UPDATE OF %s ON %s", name, column, table)
	if when != "" {
		stmt += " WHEN " + when
	}
	stmt += " BEGIN SELECT RAISE(ABORT, 'storage failure'); END"
	require.NoError(t, store.DB().Exec(stmt).Error)
	return func() {
		require.NoError(t, store.DB().Exec("DROP TRIGGER "+name).Error)
	}
}

func createUser(t *testing.T, store *repository.Store, name string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	user := &models.User{
		Name:     name,
		Email:    name + "@example.com",
		Password: "hash",
		IsPublic: true,
		IsActive: true,
		Role:     models.RoleUser,
	}
	for _, fn := range mutate {
		fn(user)
	}
	require.NoError(t, store.Repositories().Users.Create(context.Background(), user))
	return user
}

func createSwap(t *testing.T, store *repository.Store, requesterID, responderID uint, status models.SwapStatus) *models.Swap {
	t.Helper()
	swap := &models.Swap{
		RequesterID:    requesterID,
		ResponderID:    responderID,
		SkillOffered:   models.SkillRef{Skill: "Go"},
		SkillRequested: models.SkillRef{Skill: "Guitar"},
		Status:         status,
	}
	require.NoError(t, store.Repositories().Swaps.Put(context.Background(), swap))
	return swap
}

type publishedEvent struct {
	UserID uint // zero for broadcasts
	Event  notifications.Event
}

// recordingPublisher captures every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: event})
	return nil
}

func (p *recordingPublisher) PublishBroadcast(_ context.Context, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Event: event})
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type flagStub struct {
	enabledFn func(name string, userID uint) bool
}

func (f flagStub) Enabled(name string, userID uint) bool {
	if f.enabledFn == nil {
		return false
	}
	return f.enabledFn(name, userID)
}

func assertAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation, "")
}
