package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/assessment"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/course"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

// CompleteLessonsInput はレッスン完了時の入力です。
type CompleteLessonsInput struct {
	Caller       shared.Caller
	EnrollmentID string
	LessonIDs    []string
}

// CompleteLessonsResult はレッスン完了の結果です。
type CompleteLessonsResult struct {
	Enrollment      *course.Enrollment
	CourseCompleted bool
	// PendingAttempts はコース修了により作成された未着手の受験です。
	PendingAttempts []*assessment.Attempt
}

// CompleteLessons はレッスンを完了にし、コース修了時はコースの有効なテストすべてに未着手の受験を作成します。
func (s *Service) CompleteLessons(ctx context.Context, in CompleteLessonsInput) (*CompleteLessonsResult, error) {
	if err := in.Caller.Validate(); err != nil {
		return nil, err
	}
	enrollmentID, err := shared.ParseID("course", "enrollment id", in.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if len(in.LessonIDs) == 0 {
		return nil, course.ErrNoLessons
	}

	var (
		result CompleteLessonsResult
		box    outbox
	)

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		enrollment, err := s.courses.FindEnrollment(txCtx, enrollmentID)
		if err != nil {
			return err
		}

		// 候補者 → 受講情報の順にロックする
		c, err := s.candidates.LockByID(txCtx, enrollment.CandidateID)
		if err != nil {
			return err
		}
		if err := requireOwnerOrStaff(in.Caller, c); err != nil {
			return err
		}

		completion, err := s.tracker.CompleteLessons(txCtx, enrollmentID, in.LessonIDs)
		if err != nil {
			return err
		}
		result.Enrollment = completion.Enrollment

		if !completion.JustCompleted {
			return nil
		}
		result.CourseCompleted = true

		pending, err := s.createPendingAttempts(txCtx, c.ID, completion.Enrollment.CourseID)
		if err != nil {
			return err
		}
		result.PendingAttempts = pending

		applied, err := s.applyIfAllowed(txCtx, c, candidate.EventCourseCompleted)
		if err != nil {
			return err
		}
		if applied {
			if _, err := s.candidates.Update(txCtx, c); err != nil {
				return err
			}
		}

		box.toUser(c.UserID, "Course completed",
			fmt.Sprintf("Congratulations, you finished the course. %d test(s) are waiting for you.", len(pending)),
			notification.TypeSuccess)
		return nil
	}); err != nil {
		return nil, err
	}

	s.dispatch(ctx, &box)
	return &result, nil
}

// createPendingAttempts はコースの有効なテストのうち、受験記録がないものに未着手の受験を作成します。
func (s *Service) createPendingAttempts(ctx context.Context, candidateID, courseID string) ([]*assessment.Attempt, error) {
	testIDs, err := s.assessments.ListActiveTestIDsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	created := make([]*assessment.Attempt, 0, len(testIDs))
	for _, testID := range testIDs {
		_, err := s.assessments.FindAttemptByCandidateAndTest(ctx, candidateID, testID)
		if err == nil {
			continue
		}
		if !errors.Is(err, assessment.ErrAttemptNotFound) {
			return nil, err
		}

		attempt, err := s.assessments.CreateAttempt(ctx, &assessment.Attempt{
			CandidateID: candidateID,
			TestID:      testID,
			Status:      assessment.AttemptPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return nil, err
		}
		created = append(created, attempt)
	}
	return created, nil
}
