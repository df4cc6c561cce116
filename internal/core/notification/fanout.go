package notification

import (
	"context"
	"errors"
	"fmt"
)

// Fanout は複数の配送先に順に通知します。一部が失敗しても残りへの配送は続けます。
type Fanout struct {
	targets []Notifier
}

// NewFanout は nil を除いた配送先で Fanout を生成します。
func NewFanout(targets ...Notifier) *Fanout {
	filtered := make([]Notifier, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			filtered = append(filtered, t)
		}
	}
	return &Fanout{targets: filtered}
}

// Notify はすべての配送先に通知し、失敗をまとめて返します。
func (f *Fanout) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for i, t := range f.targets {
		if err := t.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("notification: target %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
