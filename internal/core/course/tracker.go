package course

import (
	"context"
	"time"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Tracker はレッスン完了から受講進捗を算出します。
// トランザクション制御は呼び出し側が行います。
type Tracker struct {
	repo  Repository
	clock Clock
}

// NewTracker は Tracker を生成します。
func NewTracker(repo Repository, clock Clock) *Tracker {
	if clock == nil {
		clock = realClock{}
	}
	return &Tracker{repo: repo, clock: clock}
}

// CompletionResult はレッスン完了処理の結果です。
type CompletionResult struct {
	Enrollment *Enrollment
	// JustCompleted は今回の処理でコース修了に達した場合に true になります。
	JustCompleted bool
}

// MarkLessonComplete は 1 レッスンを完了にし、進捗率を再計算します。
// 完了済みのレッスンに対しては何も書き込みません。
func (t *Tracker) MarkLessonComplete(ctx context.Context, enrollmentID, lessonID string) (*CompletionResult, error) {
	return t.CompleteLessons(ctx, enrollmentID, []string{lessonID})
}

// CompleteLessons は複数レッスンを完了にし、最後に一度だけ進捗率を再計算します。
func (t *Tracker) CompleteLessons(ctx context.Context, enrollmentID string, lessonIDs []string) (*CompletionResult, error) {
	requested, err := normalizeLessonIDs(lessonIDs)
	if err != nil {
		return nil, err
	}

	enrollment, err := t.repo.LockEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	courseLessons, err := t.repo.ListLessonIDs(ctx, enrollment.CourseID)
	if err != nil {
		return nil, err
	}
	inCourse := make(map[string]struct{}, len(courseLessons))
	for _, id := range courseLessons {
		inCourse[id] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := inCourse[id]; !ok {
			return nil, ErrLessonNotInCourse
		}
	}

	now := t.clock.Now()
	for _, lessonID := range requested {
		if err := t.markLesson(ctx, enrollment.ID, lessonID, now); err != nil {
			return nil, err
		}
	}

	completed, err := t.repo.CountCompletedLessons(ctx, enrollment.ID, enrollment.CourseID)
	if err != nil {
		return nil, err
	}

	progress := ComputeProgress(completed, len(courseLessons))
	if progress == enrollment.Progress && (progress < CompleteProgress || enrollment.IsCompleted()) {
		return &CompletionResult{Enrollment: enrollment}, nil
	}

	justCompleted := enrollment.ApplyProgress(progress, now)
	enrollment.UpdatedAt = now

	updated, err := t.repo.UpdateEnrollment(ctx, enrollment)
	if err != nil {
		return nil, err
	}

	return &CompletionResult{Enrollment: updated, JustCompleted: justCompleted}, nil
}

func (t *Tracker) markLesson(ctx context.Context, enrollmentID, lessonID string, now time.Time) error {
	existing, err := t.repo.FindLessonProgress(ctx, enrollmentID, lessonID)
	if err != nil {
		return err
	}
	if existing != nil && existing.IsCompleted {
		return nil
	}

	completedAt := now
	return t.repo.UpsertLessonProgress(ctx, &LessonProgress{
		EnrollmentID: enrollmentID,
		LessonID:     lessonID,
		IsCompleted:  true,
		CompletedAt:  &completedAt,
	})
}

func normalizeLessonIDs(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, ErrNoLessons
	}

	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		id, err := shared.ParseID("course", "lesson id", r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
