package postgres

import (
	"context"
	"fmt"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	pgdb "github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/db/postgres"
)

// NotificationRepository は通知を notifications テーブルに保存する Notifier です。
// コミット後に呼ばれるため、通常はトランザクションの外でプールから直接書き込みます。
type NotificationRepository struct {
	pool pgdb.Queryer
}

// NewNotificationRepository は NotificationRepository を生成します。
func NewNotificationRepository(pool pgdb.Queryer) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

var _ notification.Notifier = (*NotificationRepository)(nil)

// Notify は通知を 1 件保存します。
func (r *NotificationRepository) Notify(ctx context.Context, n notification.Notification) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO notifications (user_id, title, message, type, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, n.UserID, n.Title, n.Message, string(n.Type), n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert notification: %w", err)
	}
	return nil
}
