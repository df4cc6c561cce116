package assessment

import "github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"

var (
	// ErrTestNotFound はテストが存在しない場合に返却されます。
	ErrTestNotFound = shared.NewError("assessment", "FindTest", shared.ErrNotFound, "test not found")
	// ErrAttemptNotFound は受験記録が存在しない場合に返却されます。
	ErrAttemptNotFound = shared.NewError("assessment", "FindAttempt", shared.ErrNotFound, "attempt not found")
	// ErrAttemptAlreadyExists は同一テストの受験記録が既に存在する場合に返却されます。
	ErrAttemptAlreadyExists = shared.NewError("assessment", "CreateAttempt", shared.ErrInvalidState, "attempt already exists")
	// ErrAttemptAlreadySubmitted は完了済みの受験に回答を提出しようとした場合に返却されます。
	ErrAttemptAlreadySubmitted = shared.NewError("assessment", "Submit", shared.ErrInvalidState, "attempt already submitted")
	// ErrAttemptNotStarted は未着手の受験を採点しようとした場合に返却されます。
	ErrAttemptNotStarted = shared.NewError("assessment", "Score", shared.ErrInvalidState, "attempt has not been started")
	// ErrTestInactive は無効化されたテストを受験しようとした場合に返却されます。
	ErrTestInactive = shared.NewError("assessment", "Start", shared.ErrInvalidState, "test is not active")
	// ErrTestNotInCourse は受講中のコースに属さないテストを受験しようとした場合に返却されます。
	ErrTestNotInCourse = shared.NewError("assessment", "Start", shared.ErrInvalidState, "test does not belong to an enrolled course")
	// ErrAlreadyReviewed は採点者の得点が入った受験に回答を再提出しようとした場合に返却されます。
	ErrAlreadyReviewed = shared.NewError("assessment", "Submit", shared.ErrInvalidState, "attempt has already been reviewed")
	// ErrUnknownQuestion はテストに存在しない設問を参照した場合に返却されます。
	ErrUnknownQuestion = shared.NewError("assessment", "Score", shared.ErrInvalidState, "question does not belong to test")
	// ErrNotOpenAnswer は自動採点の設問に採点者の得点を与えようとした場合に返却されます。
	ErrNotOpenAnswer = shared.NewError("assessment", "Review", shared.ErrInvalidState, "question is not an open answer")
	// ErrPointsOutOfRange は採点者の得点が配点の範囲外の場合に返却されます。
	ErrPointsOutOfRange = shared.NewError("assessment", "Review", shared.ErrValidation, "awarded points out of range")
	// ErrDuplicateAnswer は同じ設問への回答が重複している場合に返却されます。
	ErrDuplicateAnswer = shared.NewError("assessment", "Submit", shared.ErrValidation, "duplicate answer for question")
)
