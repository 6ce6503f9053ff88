// Package events publishes domain events and user notices over Redis pub/sub.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const EventFavoriteToggled = "EVENT_FAVORITE_TOGGLED"

type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, channel, b).Err()
}

// NoticeChannel is where user-visible notices for an identity are sent.
func NoticeChannel(identityRef string) string {
	return "profile:" + identityRef + ":notices"
}

type Notice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Notifier sends notices through a Publisher.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) Notify(ctx context.Context, identityRef, message string) error {
	return n.pub.Publish(ctx, NoticeChannel(identityRef), Notice{Type: "notice", Message: message})
}
