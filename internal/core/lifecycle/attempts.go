package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/assessment"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/offer"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

// StartAttemptInput は受験開始時の入力です。
type StartAttemptInput struct {
	Caller      shared.Caller
	CandidateID string
	TestID      string
}

// SubmitAnswersInput は回答提出時の入力です。
type SubmitAnswersInput struct {
	Caller    shared.Caller
	AttemptID string
	Answers   []assessment.Answer
}

// ScoreTestAttemptInput は採点時の入力です。ReviewerAwards は記述式設問 ID ごとの得点です。
type ScoreTestAttemptInput struct {
	Caller         shared.Caller
	AttemptID      string
	ReviewerAwards map[string]int
	Comment        *string
}

// ScoreResult は採点の結果です。
type ScoreResult struct {
	Attempt *assessment.Attempt
	Result  assessment.Result
	// AwaitingReview は記述式の採点待ちで結果が確定していないことを示します。
	AwaitingReview bool
	// Offer は合格により発行 (または既存) のオファーです。
	Offer *offer.Offer
}

// StartAttempt は受験を開始します。受験記録がなければ作成し、未着手なら受験中にします。
func (s *Service) StartAttempt(ctx context.Context, in StartAttemptInput) (*assessment.Attempt, error) {
	if err := in.Caller.Validate(); err != nil {
		return nil, err
	}
	candidateID, err := shared.ParseID("candidate", "candidate id", in.CandidateID)
	if err != nil {
		return nil, err
	}
	testID, err := shared.ParseID("assessment", "test id", in.TestID)
	if err != nil {
		return nil, err
	}

	var started *assessment.Attempt
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		c, err := s.candidates.LockByID(txCtx, candidateID)
		if err != nil {
			return err
		}
		if err := requireOwnerOrStaff(in.Caller, c); err != nil {
			return err
		}

		test, err := s.assessments.FindTest(txCtx, testID)
		if err != nil {
			return err
		}
		if !test.IsActive {
			return assessment.ErrTestInactive
		}
		courses, err := s.enrolledCourses(txCtx, c.ID)
		if err != nil {
			return err
		}
		if !courses.has(test.CourseID) {
			return assessment.ErrTestNotInCourse
		}

		now := s.clock.Now()
		existing, err := s.assessments.FindAttemptByCandidateAndTest(txCtx, c.ID, test.ID)
		switch {
		case errors.Is(err, assessment.ErrAttemptNotFound):
			attempt := &assessment.Attempt{
				CandidateID: c.ID,
				TestID:      test.ID,
				Status:      assessment.AttemptPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			attempt.Start(now)
			started, err = s.assessments.CreateAttempt(txCtx, attempt)
			return err
		case err != nil:
			return err
		}

		locked, err := s.assessments.LockAttempt(txCtx, existing.ID)
		if err != nil {
			return err
		}
		switch locked.Status {
		case assessment.AttemptCompleted:
			return assessment.ErrAttemptAlreadySubmitted
		case assessment.AttemptInProgress:
			started = locked
			return nil
		}

		locked.Start(now)
		started, err = s.assessments.UpdateAttempt(txCtx, locked)
		return err
	}); err != nil {
		return nil, err
	}

	return started, nil
}

// SubmitAnswers は回答を保存して即時に採点します。
func (s *Service) SubmitAnswers(ctx context.Context, in SubmitAnswersInput) (*ScoreResult, error) {
	if err := in.Caller.Validate(); err != nil {
		return nil, err
	}
	attemptID, err := shared.ParseID("assessment", "attempt id", in.AttemptID)
	if err != nil {
		return nil, err
	}

	var (
		result *ScoreResult
		box    outbox
	)

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		c, attempt, err := s.lockAttemptWithCandidate(txCtx, attemptID)
		if err != nil {
			return err
		}
		if err := requireOwnerOrStaff(in.Caller, c); err != nil {
			return err
		}
		if attempt.Status == assessment.AttemptCompleted {
			return assessment.ErrAttemptAlreadySubmitted
		}

		test, err := s.assessments.FindTest(txCtx, attempt.TestID)
		if err != nil {
			return err
		}
		courses, err := s.enrolledCourses(txCtx, c.ID)
		if err != nil {
			return err
		}
		if !courses.has(test.CourseID) {
			return assessment.ErrTestNotInCourse
		}

		attempt.Start(s.clock.Now())
		if err := assessment.SetAnswers(test, attempt, in.Answers); err != nil {
			return err
		}

		result, err = s.scoreLocked(txCtx, c, test, attempt, &box)
		return err
	}); err != nil {
		return nil, err
	}

	s.dispatch(ctx, &box)
	return result, nil
}

// ScoreTestAttempt は採点者の得点を反映して受験を採点 (再採点) します。
func (s *Service) ScoreTestAttempt(ctx context.Context, in ScoreTestAttemptInput) (*ScoreResult, error) {
	if err := in.Caller.Validate(); err != nil {
		return nil, err
	}
	attemptID, err := shared.ParseID("assessment", "attempt id", in.AttemptID)
	if err != nil {
		return nil, err
	}

	var (
		result *ScoreResult
		box    outbox
	)

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		c, attempt, err := s.lockAttemptWithCandidate(txCtx, attemptID)
		if err != nil {
			return err
		}
		if err := requireReviewer(in.Caller, c); err != nil {
			return err
		}
		if attempt.Status == assessment.AttemptPending {
			return assessment.ErrAttemptNotStarted
		}

		test, err := s.assessments.FindTest(txCtx, attempt.TestID)
		if err != nil {
			return err
		}
		if err := assessment.ApplyReviewerAwards(test, attempt, in.ReviewerAwards); err != nil {
			return err
		}
		if in.Comment != nil {
			comment := strings.TrimSpace(*in.Comment)
			attempt.ManualReviewComment = &comment
		}

		result, err = s.scoreLocked(txCtx, c, test, attempt, &box)
		return err
	}); err != nil {
		return nil, err
	}

	s.dispatch(ctx, &box)
	return result, nil
}

// lockAttemptWithCandidate は候補者 → 受験記録の順にロックして取得します。
func (s *Service) lockAttemptWithCandidate(ctx context.Context, attemptID string) (*candidate.Candidate, *assessment.Attempt, error) {
	ref, err := s.assessments.FindAttempt(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.candidates.LockByID(ctx, ref.CandidateID)
	if err != nil {
		return nil, nil, err
	}
	attempt, err := s.assessments.LockAttempt(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	return c, attempt, nil
}

// scoreLocked は採点結果を確定し、合否に応じて候補者の状態とオファー発行を進めます。
// 呼び出し元は候補者と受験記録をロック済みであること。
func (s *Service) scoreLocked(ctx context.Context, c *candidate.Candidate, test *assessment.Test, attempt *assessment.Attempt, box *outbox) (*ScoreResult, error) {
	now := s.clock.Now()
	previouslyPassed := attempt.Status == assessment.AttemptCompleted &&
		attempt.Score != nil && *attempt.Score >= test.PassingScore

	graded, err := assessment.Grade(test, attempt)
	if err != nil {
		return nil, err
	}

	result := &ScoreResult{Result: graded}
	if !graded.Scorable {
		attempt.UpdatedAt = now
		updated, err := s.assessments.UpdateAttempt(ctx, attempt)
		if err != nil {
			return nil, err
		}
		result.Attempt = updated
		result.AwaitingReview = true
		box.toStaff("Test awaiting review",
			fmt.Sprintf("An attempt on %q needs open answer review.", test.Title),
			notification.TypeInfo)
		return result, nil
	}

	attempt.Complete(graded.Score, now)

	// 受講中のコース以外のテストは得点だけを記録し、選考状況には反映しない。
	courses, err := s.enrolledCourses(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	current := courses.has(test.CourseID)
	if !current {
		s.logger.InfoContext(ctx, "attempt outside current course scored without status change",
			"candidate_id", c.ID,
			"attempt_id", attempt.ID,
			"test_id", test.ID,
		)
	}

	candidateChanged := false
	switch {
	case graded.Passed:
		attempt.NeedsReview = false
		box.toUser(c.UserID, "Test passed",
			fmt.Sprintf("You scored %d on %q.", graded.Score, test.Title),
			notification.TypeSuccess)
		if !current {
			break
		}

		applied, err := s.applyIfAllowed(ctx, c, candidate.EventTestPassed)
		if err != nil {
			return nil, err
		}
		candidateChanged = applied

		if c.Status == candidate.StatusTestCompleted {
			issued, created, err := s.issueOfferIfEligible(ctx, c, &test.ID, box)
			if err != nil {
				return nil, err
			}
			result.Offer = issued
			candidateChanged = candidateChanged || created
		}
	default:
		box.toUser(c.UserID, "Test result",
			fmt.Sprintf("You scored %d on %q. The passing score is %d.", graded.Score, test.Title, test.PassingScore),
			notification.TypeInfo)
		if !current {
			break
		}

		if previouslyPassed && c.Status.HasOfferInFlight() {
			attempt.NeedsReview = true
			box.toStaff("Offer needs review",
				fmt.Sprintf("A re-graded attempt on %q now scores %d, below the passing score %d, after an offer was issued.",
					test.Title, graded.Score, test.PassingScore),
				notification.TypeWarning)
			s.logger.WarnContext(ctx, "re-graded attempt fails after offer",
				"candidate_id", c.ID,
				"attempt_id", attempt.ID,
				"score", graded.Score,
			)
		}

		open, err := s.hasOtherOpenAttempt(ctx, c.ID, attempt.ID, courses)
		if err != nil {
			return nil, err
		}
		if !open {
			applied, err := s.applyIfAllowed(ctx, c, candidate.EventTestFailed)
			if err != nil {
				return nil, err
			}
			candidateChanged = applied
		}
	}

	updated, err := s.assessments.UpdateAttempt(ctx, attempt)
	if err != nil {
		return nil, err
	}
	result.Attempt = updated

	if candidateChanged {
		if _, err := s.candidates.Update(ctx, c); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// hasOtherOpenAttempt は受講中のコースのテストに、結果が未確定の受験が他にあるかを返します。
func (s *Service) hasOtherOpenAttempt(ctx context.Context, candidateID, attemptID string, courses courseSet) (bool, error) {
	attempts, err := s.assessments.ListAttemptsByCandidate(ctx, candidateID)
	if err != nil {
		return false, err
	}
	for _, a := range attempts {
		if a.ID == attemptID || !a.Status.IsOpen() {
			continue
		}
		test, err := s.assessments.FindTest(ctx, a.TestID)
		if err != nil {
			return false, err
		}
		if courses.has(test.CourseID) {
			return true, nil
		}
	}
	return false, nil
}

// courseSet は候補者が受講中のコース ID の集合です。
type courseSet map[string]struct{}

func (c courseSet) has(courseID string) bool {
	_, ok := c[courseID]
	return ok
}

func (s *Service) enrolledCourses(ctx context.Context, candidateID string) (courseSet, error) {
	enrollments, err := s.courses.ListEnrollmentsByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	set := make(courseSet, len(enrollments))
	for _, e := range enrollments {
		set[e.CourseID] = struct{}{}
	}
	return set, nil
}
