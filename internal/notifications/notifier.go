// Package notifications provides cross-instance notification fan-out.
package notifications

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Notifier provides helpers to publish notification events into Redis
// channels so other instances can invalidate their unread-count caches.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishProfile sends a notification payload to a profile's channel.
func (n *Notifier) PublishProfile(
	ctx context.Context, profileID uint, payload string,
) error {
	if n.rdb == nil {
		return nil
	}
	channel := fmt.Sprintf("notify:profile:%d", profileID)
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// PublishConversation sends a payload to a conversation channel so pollers
// behind other instances see fresh messages promptly.
func (n *Notifier) PublishConversation(
	ctx context.Context, conversationID uint, payload string,
) error {
	if n.rdb == nil {
		return nil
	}
	channel := fmt.Sprintf("notify:conv:%d", conversationID)
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// PublishBroadcast sends a payload to all instances.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, "notify:broadcast", payload).Err()
}

// StartPatternSubscriber subscribes to the notify:* patterns and calls
// onMessage for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notify:profile:*", "notify:conv:*", "notify:broadcast")
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
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// ProfileChannel derives the Redis channel name for a profile.
func ProfileChannel(profileID uint) string {
	return "notify:profile:" + strconv.FormatUint(uint64(profileID), 10)
}

// ConversationChannel derives the Redis channel name for a conversation.
func ConversationChannel(conversationID uint) string {
	return "notify:conv:" + strconv.FormatUint(uint64(conversationID), 10)
}

// ParseProfileChannel extracts the profile ID from a notify:profile:*
// channel name.
func ParseProfileChannel(channel string) (uint, bool) {
	const prefix = "notify:profile:"
	if !strings.HasPrefix(channel, prefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(channel[len(prefix):], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
