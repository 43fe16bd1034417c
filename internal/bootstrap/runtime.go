// Package bootstrap wires the process-level dependencies shared by every command.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/auth"
	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/middleware"
	"skillswap/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// BootstrapAdmin creates or promotes the ADMIN_EMAIL account.
	BootstrapAdmin bool
	// SkipRedis leaves the Redis client nil even when REDIS_URL is set.
	SkipRedis bool
}

// InitRuntime connects to the database and Redis. A Redis failure is logged and yields a
// nil client; the service then runs without caching, revocation and push notifications.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	var rdb *redis.Client
	if !opts.SkipRedis && cfg.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.Warn("redis unavailable, continuing without it", "error", err.Error())
			rdb = nil
		}
	}

	if opts.BootstrapAdmin {
		if err := EnsureAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			_ = database.Close(db)
			if rdb != nil {
				_ = rdb.Close()
			}
			return nil, nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
		}
	}

	return db, rdb, nil
}

// EnsureAdmin makes email an admin, creating the account with password when it does not
// exist. An empty email is a no-op.
func EnsureAdmin(ctx context.Context, db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		res := tx.Where("email = ?", email).Limit(1).Find(&user)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			if user.Role == models.RoleAdmin && user.IsActive {
				return nil
			}
			middleware.Logger.Info("promoting bootstrap admin", "email", email)
			return tx.Model(&models.User{}).Where("id = ?", user.ID).
				Updates(map[string]interface{}{"role": models.RoleAdmin, "is_active": true}).Error
		}

		if password == "" {
			return fmt.Errorf("ADMIN_PASSWORD must be set to create %s", email)
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		user = models.User{
			Name:       "Administrator",
			Email:      email,
			Password:   hash,
			Role:       models.RoleAdmin,
			IsActive:   true,
			IsPublic:   false,
			LastActive: time.Now(),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		middleware.Logger.Info("created bootstrap admin", "email", email, "user_id", user.ID)
		return nil
	})
}
