package user

import (
	"context"
	"time"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

// Repository はユーザーの永続化を行うインターフェースです。
type Repository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	UpdateRole(ctx context.Context, id string, role shared.Role, updatedAt time.Time) error
	ListIDsByRole(ctx context.Context, roles ...shared.Role) ([]string, error)
}
