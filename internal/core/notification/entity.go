package notification

import (
	"context"
	"time"
)

// Type は通知の重要度です。
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Notification は 1 人の利用者宛ての通知です。
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      Type
	IsRead    bool
	CreatedAt time.Time
}

// Notifier は通知の配送先です。配送の失敗は呼び出し側で記録し、処理結果には影響させません。
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc は関数を Notifier として扱うためのアダプタです。
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify は f(ctx, n) を呼び出します。
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}
