package notifications

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/redis/go-redis/v9"

	"smartcity/internal/middleware"
	"smartcity/internal/observability"
)

// Channel layout. Pattern subscribers rely on these prefixes, so changing
// them requires a coordinated restart of every server instance.
const (
	// FeedChannel carries every request lifecycle event for live dashboards.
	FeedChannel = "requests:feed"
	// ApprovedChannel carries area-wide announcements for newly approved businesses.
	ApprovedChannel = "business:approved"

	userChannelPrefix         = "notifications:user:"
	conversationChannelPrefix = "conversations:owner:"
)

// UserChannel returns the pub/sub channel for a user's personal notifications.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// ConversationChannel returns the pub/sub channel for an owner's support thread.
func ConversationChannel(ownerID string) string {
	return conversationChannelPrefix + ownerID
}

// Notifier publishes realtime events over Redis pub/sub. A nil Redis client
// turns every publish into a no-op so the platform keeps working without
// realtime delivery when Redis is down.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// class keeps metric cardinality bounded: per-user and per-owner channels
// collapse into a single label value.
func (n *Notifier) publish(ctx context.Context, channel, class string, payload []byte) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		observability.EventPublishFailures.WithLabelValues(class).Inc()
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// PublishFeed pushes a request lifecycle event onto the shared feed channel.
func (n *Notifier) PublishFeed(ctx context.Context, payload []byte) error {
	return n.publish(ctx, FeedChannel, "feed", payload)
}

// PublishUser pushes a personal notification to a single user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID string, payload []byte) error {
	return n.publish(ctx, UserChannel(userID), "user", payload)
}

// PublishConversation pushes a new support message onto the owner's thread channel.
func (n *Notifier) PublishConversation(ctx context.Context, ownerID string, payload []byte) error {
	return n.publish(ctx, ConversationChannel(ownerID), "conversation", payload)
}

// PublishApproved pushes a broadcast announcement onto the approval channel.
func (n *Notifier) PublishApproved(ctx context.Context, payload []byte) error {
	return n.publish(ctx, ApprovedChannel, "approved", payload)
}

// StartEventSubscriber subscribes to every realtime channel and invokes
// onMessage for each delivery until ctx is cancelled. Returns false when no
// Redis client is configured.
func (n *Notifier) StartEventSubscriber(ctx context.Context, onMessage func(channel string, payload []byte)) bool {
	if n == nil || n.rdb == nil {
		return false
	}

	sub := n.rdb.PSubscribe(ctx,
		userChannelPrefix+"*",
		conversationChannelPrefix+"*",
		FeedChannel,
		ApprovedChannel,
	)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				middleware.Logger.Error("event subscriber panicked",
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onMessage(msg.Channel, []byte(msg.Payload))
			}
		}
	}()

	return true
}
