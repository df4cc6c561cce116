package course

import "time"

// CompleteProgress は修了とみなす進捗率です。
const CompleteProgress = 100

// Enrollment は候補者とコースの受講関係です。
type Enrollment struct {
	ID          string
	CandidateID string
	CourseID    string
	Progress    int
	StartedAt   time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// IsCompleted は修了日時が記録済みかを返します。
func (e *Enrollment) IsCompleted() bool {
	return e.CompletedAt != nil
}

// ApplyProgress は進捗率を反映し、今回の反映で修了に達した場合に true を返します。
// 一度記録した修了日時は進捗率が下がっても消去しません。
func (e *Enrollment) ApplyProgress(progress int, now time.Time) bool {
	e.Progress = progress
	if progress < CompleteProgress || e.CompletedAt != nil {
		return false
	}
	completed := now
	e.CompletedAt = &completed
	return true
}

// LessonProgress はレッスン単位の完了記録です。完了イベントが来たレッスンにのみ存在します。
type LessonProgress struct {
	EnrollmentID string
	LessonID     string
	IsCompleted  bool
	CompletedAt  *time.Time
}

// ComputeProgress は完了レッスン数から進捗率 (0-100, 四捨五入) を求めます。
func ComputeProgress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return (200*completed + total) / (2 * total)
}
