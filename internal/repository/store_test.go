package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"skillswap/internal/cache"
	"skillswap/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTransactionCommits(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	store := NewStore(db, nil, 0)
	ctx := context.Background()
	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")

	err := store.WithinTransaction(ctx, func(tx Repositories) error {
		swap := &models.Swap{RequesterID: a.ID, ResponderID: b.ID, SkillOffered: models.SkillRef{Skill: "Go"}, SkillRequested: models.SkillRef{Skill: "Chess"}, Status: models.SwapStatusPending}
		if err := tx.Swaps.Put(ctx, swap); err != nil {
			return err
		}
		return tx.Users.UpdateRating(ctx, b.ID, models.Rating{Average: 5, Count: 1})
	})
	require.NoError(t, err)

	_, total, err := store.Repositories().Swaps.FindMany(ctx, SwapFilter{}, SwapSortNewest, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	user, err := store.Repositories().Users.GetAccount(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Average: 5, Count: 1}, user.Rating)
}

func TestStore_WithinTransactionRollsBack(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	store := NewStore(db, nil, 0)
	ctx := context.Background()
	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")
	pending := seedSwap(t, db, a.ID, b.ID, models.SwapStatusPending)

	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(tx Repositories) error {
		if err := tx.Users.Update(ctx, a.ID, map[string]interface{}{"is_active": false}); err != nil {
			return err
		}
		if _, err := tx.Swaps.CancelPendingForUser(ctx, a.ID, "x"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	repos := store.Repositories()
	user, err := repos.Users.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	swap, err := repos.Swaps.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusPending, swap.Status)
}

func TestMessageRepository_ListVisible(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.NoError(t, repo.Create(ctx, &models.AdminMessage{Title: "forever", Body: "a", Type: models.MessageTypeInfo, CreatedByID: 1}))
	require.NoError(t, repo.Create(ctx, &models.AdminMessage{Title: "expired", Body: "b", Type: models.MessageTypeWarning, CreatedByID: 1, VisibleUntil: &past}))
	require.NoError(t, repo.Create(ctx, &models.AdminMessage{Title: "soon", Body: "c", Type: models.MessageTypeUpdate, CreatedByID: 1, VisibleUntil: &future}))

	messages, err := repo.ListVisible(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "soon", messages[0].Title)
	assert.Equal(t, "forever", messages[1].Title)
}

func TestModerationLogRepository_List(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	repo := NewModerationLogRepository(db)
	ctx := context.Background()

	for i := uint(1); i <= 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.SkillModerationLog{
			SkillID: i, SkillType: models.SkillKindOffered, UserID: 7, AdminID: 1, Action: models.ModerationActionRemove,
		}))
	}

	entries, total, err := repo.List(ctx, Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	assert.Equal(t, uint(3), entries[0].SkillID)
	assert.False(t, entries[0].ActionAt.IsZero())
}

func TestStore_InvalidatesProfilesAfterCommitOnly(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewStore(db, cache.NewStore(rdb, "profiles"), time.Minute)
	ctx := context.Background()
	user := seedUser(t, db, "rated")
	key := cache.ProfileKey(user.ID)

	_, err = store.Repositories().Users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(key))

	err = store.WithinTransaction(ctx, func(tx Repositories) error {
		require.NoError(t, tx.Users.UpdateRating(ctx, user.ID, models.Rating{Average: 2, Count: 1}))
		assert.True(t, mr.Exists(key), "cache must survive until commit")
		return errors.New("rollback")
	})
	require.Error(t, err)
	assert.True(t, mr.Exists(key))

	require.NoError(t, store.WithinTransaction(ctx, func(tx Repositories) error {
		return tx.Users.UpdateRating(ctx, user.ID, models.Rating{Average: 4, Count: 1})
	}))
	assert.False(t, mr.Exists(key))

	profile, err := store.Repositories().Users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, profile.Rating.Average)
}
