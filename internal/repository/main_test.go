package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"skillswap/internal/database"
	"skillswap/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// newTestDB opens a private in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repository_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func seedUser(t *testing.T, db *gorm.DB, name string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	user := &models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "hash",
		IsPublic: true,
		IsActive: true,
		Role:     models.RoleUser,
	}
	for _, fn := range mutate {
		fn(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedSkill(t *testing.T, db *gorm.DB, userID uint, kind models.SkillKind, name string) *models.UserSkill {
	t.Helper()
	skill := &models.UserSkill{UserID: userID, Kind: kind, Skill: name}
	require.NoError(t, NewUserRepository(db, nil, 0).AddSkill(context.Background(), skill))
	return skill
}

func seedSwap(t *testing.T, db *gorm.DB, requesterID, responderID uint, status models.SwapStatus) *models.Swap {
	t.Helper()
	swap := &models.Swap{
		RequesterID:    requesterID,
		ResponderID:    responderID,
		SkillOffered:   models.SkillRef{Skill: "Go"},
		SkillRequested: models.SkillRef{Skill: "Guitar"},
		Status:         status,
	}
	require.NoError(t, NewSwapRepository(db).Put(context.Background(), swap))
	return swap
}
