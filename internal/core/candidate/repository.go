package candidate

import "context"

// Repository は候補者の永続化を行うインターフェースです。
type Repository interface {
	FindByID(ctx context.Context, id string) (*Candidate, error)
	// LockByID は更新前提で候補者を取得します (トランザクション内で行ロック)。
	LockByID(ctx context.Context, id string) (*Candidate, error)
	Update(ctx context.Context, candidate *Candidate) (*Candidate, error)
}
