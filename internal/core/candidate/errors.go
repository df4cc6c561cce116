package candidate

import "github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"

var (
	// ErrCandidateNotFound は候補者が存在しない場合に返却されます。
	ErrCandidateNotFound = shared.NewError("candidate", "Find", shared.ErrNotFound, "candidate not found")
	// ErrInvalidTransition は遷移表にない状態遷移を要求した場合に返却されます。
	ErrInvalidTransition = shared.NewError("candidate", "Transition", shared.ErrInvalidState, "invalid status transition")
	// ErrInvalidStatus は未知の状態名が指定された場合に返却されます。
	ErrInvalidStatus = shared.NewError("candidate", "Validate", shared.ErrValidation, "invalid status")
	// ErrOfferInFlight はオファー発行後に求人を変更しようとした場合に返却されます。
	ErrOfferInFlight = shared.NewError("candidate", "AssignVacancy", shared.ErrInvalidState, "candidate has an offer in flight")
	// ErrNoVacancy は求人が未割り当ての候補者にオファーを発行しようとした場合に返却されます。
	ErrNoVacancy = shared.NewError("candidate", "IssueOffer", shared.ErrInvalidState, "candidate has no vacancy assigned")
)
