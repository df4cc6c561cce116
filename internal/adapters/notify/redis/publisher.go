// Package redis は通知を Redis の pub/sub チャネルへ配信します。
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
)

// ChannelPrefix は利用者ごとの通知チャネル名の接頭辞です。
const ChannelPrefix = "notifications:"

// ErrEmptyRecipient は宛先のない通知を配信しようとした場合に返却されます。
var ErrEmptyRecipient = errors.New("redis notifier: recipient is required")

// Config は Redis 接続に関する設定です。
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewClient は Redis クライアントを生成し疎通確認を行います。
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis notifier: ping: %w", err)
	}
	return client, nil
}

type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher は通知を JSON にして notifications:<user_id> チャネルへ発行する Notifier です。
type Publisher struct {
	client publishClient
}

// NewPublisher は Publisher を生成します。
func NewPublisher(client publishClient) *Publisher {
	return &Publisher{client: client}
}

var _ notification.Notifier = (*Publisher)(nil)

type payload struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Notify は通知を発行します。購読者がいない場合もエラーにはしません。
func (p *Publisher) Notify(ctx context.Context, n notification.Notification) error {
	if n.UserID == "" {
		return ErrEmptyRecipient
	}

	data, err := json.Marshal(payload{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("redis notifier: encode: %w", err)
	}

	if err := p.client.Publish(ctx, Channel(n.UserID), data).Err(); err != nil {
		return fmt.Errorf("redis notifier: publish: %w", err)
	}
	return nil
}

// Channel は利用者の通知チャネル名を返します。
func Channel(userID string) string {
	return ChannelPrefix + userID
}
