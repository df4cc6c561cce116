package vacancy

import "github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"

var (
	// ErrVacancyNotFound は求人が存在しない場合に返却されます。
	ErrVacancyNotFound = shared.NewError("vacancy", "Find", shared.ErrNotFound, "vacancy not found")
	// ErrVacancyClosed は募集終了した求人を割り当てようとした場合に返却されます。
	ErrVacancyClosed = shared.NewError("vacancy", "Assign", shared.ErrInvalidState, "vacancy is closed")
)
