package user

import (
	"time"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

// User はプラットフォームの利用者です。候補者・人事・メンターはすべて User を持ちます。
type User struct {
	ID        string
	Email     string
	Name      string
	Role      shared.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
