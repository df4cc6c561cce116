package lifecycle

import (
	"context"
	"time"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

// outbox はトランザクション中に決まった通知を溜め、コミット後に配送します。
type outbox struct {
	direct []notification.Notification
	staff  []notification.Notification
}

func (o *outbox) toUser(userID, title, message string, typ notification.Type) {
	o.direct = append(o.direct, notification.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
	})
}

func (o *outbox) toStaff(title, message string, typ notification.Type) {
	o.staff = append(o.staff, notification.Notification{
		Title:   title,
		Message: message,
		Type:    typ,
	})
}

// dispatch は溜めた通知を配送します。失敗はログに残すのみで呼び出し元には返しません。
func (s *Service) dispatch(ctx context.Context, box *outbox) {
	if box == nil {
		return
	}

	now := s.clock.Now()
	for _, n := range box.direct {
		s.deliver(ctx, n, now)
	}

	if len(box.staff) == 0 {
		return
	}

	staffIDs, err := s.users.ListIDsByRole(ctx, shared.RoleHR)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve hr recipients", "error", err)
		return
	}
	for _, n := range box.staff {
		for _, id := range staffIDs {
			addressed := n
			addressed.UserID = id
			s.deliver(ctx, addressed, now)
		}
	}
}

func (s *Service) deliver(ctx context.Context, n notification.Notification, now time.Time) {
	n.CreatedAt = now
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification delivery failed",
			"user_id", n.UserID,
			"title", n.Title,
			"error", err,
		)
	}
}
