package course

import "context"

// Repository は受講・レッスン進捗の永続化を行うインターフェースです。
type Repository interface {
	CreateEnrollment(ctx context.Context, enrollment *Enrollment) (*Enrollment, error)
	FindEnrollment(ctx context.Context, id string) (*Enrollment, error)
	// LockEnrollment は更新前提で受講情報を取得します (トランザクション内で行ロック)。
	LockEnrollment(ctx context.Context, id string) (*Enrollment, error)
	UpdateEnrollment(ctx context.Context, enrollment *Enrollment) (*Enrollment, error)
	ListEnrollmentsByCandidate(ctx context.Context, candidateID string) ([]*Enrollment, error)
	// DeleteEnrollmentsByCandidate は候補者の受講情報をレッスン進捗ごと削除し、削除件数を返します。
	DeleteEnrollmentsByCandidate(ctx context.Context, candidateID string) (int64, error)
	ListLessonIDs(ctx context.Context, courseID string) ([]string, error)
	FindLessonProgress(ctx context.Context, enrollmentID, lessonID string) (*LessonProgress, error)
	UpsertLessonProgress(ctx context.Context, progress *LessonProgress) error
	CountCompletedLessons(ctx context.Context, enrollmentID, courseID string) (int, error)
}
