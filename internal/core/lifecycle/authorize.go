package lifecycle

import (
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

var (
	// ErrStaffOnly は人事・管理者のみが実行できる操作に他の役割で呼び出した場合に返却されます。
	ErrStaffOnly = shared.NewError("lifecycle", "Authorize", shared.ErrForbidden, "operation requires hr or admin role")
	// ErrNotOwner は他の候補者の記録を操作しようとした場合に返却されます。
	ErrNotOwner = shared.NewError("lifecycle", "Authorize", shared.ErrForbidden, "caller does not own this candidate record")
	// ErrNotReviewer は採点権限のない呼び出し元が採点しようとした場合に返却されます。
	ErrNotReviewer = shared.NewError("lifecycle", "Authorize", shared.ErrForbidden, "caller cannot review this attempt")
)

func requireStaff(caller shared.Caller) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	if !caller.IsStaff() {
		return ErrStaffOnly
	}
	return nil
}

// requireOwnerOrStaff は候補者本人または人事・管理者であることを確認します。
func requireOwnerOrStaff(caller shared.Caller, c *candidate.Candidate) error {
	if caller.IsStaff() {
		return nil
	}
	if caller.Role == shared.RoleCandidate && caller.Is(c.UserID) {
		return nil
	}
	return ErrNotOwner
}

// requireReviewer は担当メンターまたは人事・管理者であることを確認します。
func requireReviewer(caller shared.Caller, c *candidate.Candidate) error {
	if caller.IsStaff() {
		return nil
	}
	if caller.Role == shared.RoleMentor && c.HasMentor(caller.UserID) {
		return nil
	}
	return ErrNotReviewer
}

// requireViewer は候補者本人・担当メンター・人事・管理者であることを確認します。
func requireViewer(caller shared.Caller, c *candidate.Candidate) error {
	if requireOwnerOrStaff(caller, c) == nil || requireReviewer(caller, c) == nil {
		return nil
	}
	return ErrNotOwner
}
