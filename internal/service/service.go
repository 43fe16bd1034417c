// Package service implements the business rules of the marketplace on top of the repositories.
package service

import (
	"context"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/notifications"
	"skillswap/internal/repository"
)

// Transactor hands out repositories, either on the root connection or inside one transaction.
type Transactor interface {
	Repositories() repository.Repositories
	WithinTransaction(ctx context.Context, fn func(repository.Repositories) error) error
}

// EventPublisher delivers notification events. Implementations must tolerate a missing broker.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID uint, event notifications.Event) error
	PublishBroadcast(ctx context.Context, event notifications.Event) error
}

// FlagChecker evaluates feature flags for a user.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

type noopPublisher struct{}

func (noopPublisher) PublishUser(context.Context, uint, notifications.Event) error  { return nil }
func (noopPublisher) PublishBroadcast(context.Context, notifications.Event) error { return nil }

// notifyUser publishes after the fact; delivery failures are logged, never returned.
func notifyUser(ctx context.Context, events EventPublisher, userID uint, eventType string, payload interface{}) {
	if err := events.PublishUser(ctx, userID, notifications.NewEvent(eventType, payload)); err != nil {
		middleware.Logger.WarnContext(ctx, "notification publish failed",
			"event_type", eventType, "user_id", userID, "error", err.Error())
	}
}

func normalizePage(page, limit int) repository.Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}
	return repository.Page{Number: page, Size: limit}
}

// DefaultPageSize applies when a caller does not ask for a page size.
const DefaultPageSize = 10

type clock func() time.Time
