package lifecycle

import (
	"context"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/course"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/vacancy"
)

// AssignVacancyInput は求人割り当て時の入力です。
type AssignVacancyInput struct {
	Caller      shared.Caller
	CandidateID string
	VacancyID   string
}

// AssignVacancyResult は求人割り当ての結果です。
type AssignVacancyResult struct {
	Candidate *candidate.Candidate
	// Enrollment は開始コースがない求人の場合 nil です。
	Enrollment         *course.Enrollment
	RemovedEnrollments int64
	// RemovedAttempts は以前の求人で作成された未完了の受験の削除件数です。
	RemovedAttempts int64
}

// AssignVacancy は候補者に求人を割り当て、受講情報を入れ替えます。
// 以前の受講情報はレッスン進捗ごと削除し、未完了の受験も破棄します。開始コースがあれば進捗 0 で受講を開始します。
func (s *Service) AssignVacancy(ctx context.Context, in AssignVacancyInput) (*AssignVacancyResult, error) {
	if err := requireStaff(in.Caller); err != nil {
		return nil, err
	}
	candidateID, err := shared.ParseID("candidate", "candidate id", in.CandidateID)
	if err != nil {
		return nil, err
	}
	vacancyID, err := shared.ParseID("vacancy", "vacancy id", in.VacancyID)
	if err != nil {
		return nil, err
	}

	var (
		result AssignVacancyResult
		box    outbox
	)

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		c, err := s.candidates.LockByID(txCtx, candidateID)
		if err != nil {
			return err
		}
		if c.Status.HasOfferInFlight() {
			return candidate.ErrOfferInFlight
		}

		v, err := s.vacancies.FindByID(txCtx, vacancyID)
		if err != nil {
			return err
		}
		if !v.IsActive {
			return vacancy.ErrVacancyClosed
		}

		removed, err := s.courses.DeleteEnrollmentsByCandidate(txCtx, c.ID)
		if err != nil {
			return err
		}
		result.RemovedEnrollments = removed

		voided, err := s.assessments.DeleteOpenAttemptsByCandidate(txCtx, c.ID)
		if err != nil {
			return err
		}
		result.RemovedAttempts = voided

		if err := s.apply(txCtx, c, candidate.EventVacancyAssigned); err != nil {
			return err
		}
		c.VacancyID = &v.ID
		c.OfferStatus = candidate.OfferNone

		if v.HasStartCourse() {
			now := s.clock.Now()
			enrollment, err := s.courses.CreateEnrollment(txCtx, &course.Enrollment{
				CandidateID: c.ID,
				CourseID:    *v.StartCourseID,
				Progress:    0,
				StartedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				return err
			}
			if err := s.apply(txCtx, c, candidate.EventCourseStarted); err != nil {
				return err
			}
			result.Enrollment = enrollment
		}

		updated, err := s.candidates.Update(txCtx, c)
		if err != nil {
			return err
		}
		result.Candidate = updated

		message := "You have been assigned to the vacancy " + v.Title + "."
		if result.Enrollment != nil {
			message += " Your onboarding course is now available."
		}
		box.toUser(updated.UserID, "Vacancy assigned", message, notification.TypeInfo)
		return nil
	}); err != nil {
		return nil, err
	}

	s.dispatch(ctx, &box)
	return &result, nil
}
