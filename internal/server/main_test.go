package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"skillswap/internal/auth"
	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

type testServer struct {
	*Server
	app *fiber.App
}

func testConfig() *config.Config {
	return &config.Config{
		Env:          "test",
		Port:         "0",
		JWTSecret:    "test-secret-test-secret-test-secret",
		JWTIssuer:    "skillswap-api",
		JWTAudience:  "skillswap-app",
		TokenTTL:     time.Hour,
		UserCacheTTL: time.Minute,
	}
}

// newTestServer builds a Server over a private in-memory sqlite database.
// withRedis attaches a miniredis instance.
func newTestServer(t *testing.T, withRedis bool, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	var rdb *redis.Client
	if withRedis {
		mr := miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	s, err := NewServer(cfg, db, rdb)
	require.NoError(t, err)
	return &testServer{Server: s, app: s.App()}
}

func (ts *testServer) createUser(t *testing.T, name string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := &models.User{
		Name:       name,
		Email:      name + "@example.com",
		Password:   hash,
		IsPublic:   true,
		IsActive:   true,
		Role:       models.RoleUser,
		LastActive: time.Now(),
	}
	for _, fn := range mutate {
		fn(user)
	}
	require.NoError(t, ts.store.Repositories().Users.Create(context.Background(), user))
	return user
}

func (ts *testServer) createAdmin(t *testing.T, name string) *models.User {
	return ts.createUser(t, name, func(u *models.User) { u.Role = models.RoleAdmin })
}

func (ts *testServer) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := ts.tokens.Issue(user.ID)
	require.NoError(t, err)
	return token
}

func (ts *testServer) createSwap(t *testing.T, requesterID, responderID uint, status models.SwapStatus) *models.Swap {
	t.Helper()
	swap := &models.Swap{
		RequesterID:    requesterID,
		ResponderID:    responderID,
		SkillOffered:   models.SkillRef{Skill: "Go"},
		SkillRequested: models.SkillRef{Skill: "Guitar"},
		Status:         status,
	}
	require.NoError(t, ts.store.Repositories().Swaps.Put(context.Background(), swap))
	return swap
}

// do sends a request and decodes a JSON object response. body may be nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	status, raw := ts.doRaw(t, method, path, token, body)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return status, out
}

func (ts *testServer) doRaw(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func idOf(v interface{}) uint {
	f, _ := v.(float64)
	return uint(f)
}
