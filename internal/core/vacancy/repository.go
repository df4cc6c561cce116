package vacancy

import "context"

// Repository は求人の参照を行うインターフェースです。
type Repository interface {
	FindByID(ctx context.Context, id string) (*Vacancy, error)
}
