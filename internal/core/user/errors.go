package user

import "github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"

var (
	// ErrUserNotFound はユーザーが存在しない場合に返却されます。
	ErrUserNotFound = shared.NewError("user", "Find", shared.ErrNotFound, "user not found")
	// ErrInvalidRole は役割が不正な場合に返却されます。
	ErrInvalidRole = shared.NewError("user", "Validate", shared.ErrValidation, "invalid role")
)
