package offer

import "github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"

var (
	// ErrOfferNotFound はオファーが存在しない場合に返却されます。
	ErrOfferNotFound = shared.NewError("offer", "Find", shared.ErrNotFound, "offer not found")
	// ErrOfferAlreadyResponded は回答済みのオファーに再度回答した場合に返却されます。
	ErrOfferAlreadyResponded = shared.NewError("offer", "Respond", shared.ErrInvalidState, "offer already responded to")
	// ErrActiveOfferExists は回答待ちのオファーが既にある候補者へ新規発行しようとした場合に返却されます。
	ErrActiveOfferExists = shared.NewError("offer", "Issue", shared.ErrInvalidState, "candidate already has an outstanding offer")
	// ErrNotRespondable は汎用オファーに回答しようとした場合に返却されます。
	ErrNotRespondable = shared.NewError("offer", "Respond", shared.ErrInvalidState, "general offers cannot be responded to")
	// ErrNotOfferCandidate はオファーの宛先以外が回答しようとした場合に返却されます。
	ErrNotOfferCandidate = shared.NewError("offer", "Respond", shared.ErrForbidden, "offer is addressed to another candidate")
	// ErrInvalidDecision は回答内容が不正な場合に返却されます。
	ErrInvalidDecision = shared.NewError("offer", "Validate", shared.ErrValidation, "invalid decision")
	// ErrInvalidContent はオファー本文が空の場合に返却されます。
	ErrInvalidContent = shared.NewError("offer", "Validate", shared.ErrValidation, "invalid content")
)
