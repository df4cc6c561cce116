package assessment

import "context"

// Repository はテストと受験記録の永続化を行うインターフェースです。
type Repository interface {
	FindTest(ctx context.Context, id string) (*Test, error)
	ListActiveTestIDsByCourse(ctx context.Context, courseID string) ([]string, error)
	FindAttempt(ctx context.Context, id string) (*Attempt, error)
	// LockAttempt は更新前提で受験記録を取得します (トランザクション内で行ロック)。
	LockAttempt(ctx context.Context, id string) (*Attempt, error)
	FindAttemptByCandidateAndTest(ctx context.Context, candidateID, testID string) (*Attempt, error)
	ListAttemptsByCandidate(ctx context.Context, candidateID string) ([]*Attempt, error)
	CreateAttempt(ctx context.Context, attempt *Attempt) (*Attempt, error)
	UpdateAttempt(ctx context.Context, attempt *Attempt) (*Attempt, error)
	// DeleteOpenAttemptsByCandidate は候補者の未完了 (未着手・受験中) の受験を削除し、削除件数を返します。
	DeleteOpenAttemptsByCandidate(ctx context.Context, candidateID string) (int64, error)
}
