// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Channel names.
const (
	userChannelPrefix = "notifications:user:"
	BroadcastChannel  = "notifications:broadcast"
	channelPattern    = "notifications:*"
)

// Event types delivered to clients.
const (
	EventSwapCreated      = "swap_created"
	EventSwapAccepted     = "swap_accepted"
	EventSwapRejected     = "swap_rejected"
	EventSwapCompleted    = "swap_completed"
	EventSwapCancelled    = "swap_cancelled"
	EventSwapDeleted      = "swap_deleted"
	EventFeedbackReceived = "feedback_received"
	EventPlatformMessage  = "platform_message"
	EventAccountStatus    = "account_status"
	EventConnected        = "connected"
)

// Event is the JSON envelope published on notification channels.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sentAt"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, SentAt: time.Now().UTC()}
}

// Encode renders the event as it travels on the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier publishes events into Redis channels. A Notifier without a client drops everything.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event to one user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event Event) error {
	return n.publish(ctx, UserChannel(userID), event)
}

// PublishBroadcast sends an event to every connected user.
func (n *Notifier) PublishBroadcast(ctx context.Context, event Event) error {
	return n.publish(ctx, BroadcastChannel, event)
}

func (n *Notifier) publish(ctx context.Context, channel string, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return err
	}
	observability.NotificationsPublished.WithLabelValues(event.Type).Inc()
	return nil
}

// StartPatternSubscriber subscribes to every notification channel and calls onMessage
// for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, channelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", channelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a user channel name.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
