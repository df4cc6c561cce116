package shared

import (
	"strings"

	"github.com/google/uuid"
)

// Role は利用者の役割です。
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleEmployee  Role = "employee"
	RoleMentor    Role = "mentor"
	RoleHR        Role = "hr"
	RoleAdmin     Role = "admin"
)

// IsValid は既知の役割かを判定します。
func (r Role) IsValid() bool {
	switch r {
	case RoleCandidate, RoleEmployee, RoleMentor, RoleHR, RoleAdmin:
		return true
	default:
		return false
	}
}

// Caller は操作を呼び出した利用者です。ユースケースには常に明示的に渡します。
type Caller struct {
	UserID string
	Role   Role
}

// IsStaff は人事または管理者かを判定します。
func (c Caller) IsStaff() bool {
	return c.Role == RoleHR || c.Role == RoleAdmin
}

// Is は呼び出し元が指定ユーザー本人かを判定します。
func (c Caller) Is(userID string) bool {
	return c.UserID != "" && c.UserID == userID
}

// Validate は呼び出し元情報を検証します。
func (c Caller) Validate() error {
	if _, err := uuid.Parse(strings.TrimSpace(c.UserID)); err != nil {
		return Wrap("caller", "Validate", ErrForbidden, "unauthenticated caller", err)
	}
	if !c.Role.IsValid() {
		return NewError("caller", "Validate", ErrForbidden, "unknown role")
	}
	return nil
}

// ParseID は UUID 形式の ID を正規化します。
func ParseID(domain, field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return "", Wrap(domain, "Validate", ErrValidation, "invalid "+field, err)
	}
	return id.String(), nil
}
