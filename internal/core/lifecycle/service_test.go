package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/assessment"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/offer"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/user"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/vacancy"
)

type fixture struct {
	store    *memStore
	notifier *recordingNotifier
	clock    *stubClock
	svc      *Service

	hr        shared.Caller
	mentor    shared.Caller
	applicant shared.Caller

	candidateID   string
	vacancyID     string
	vacancy2ID    string
	courseID      string
	course2ID     string
	lessonIDs     []string
	course2Lesson []string
	testID        string
	test2ID       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{
		store:         newMemStore(),
		notifier:      &recordingNotifier{},
		clock:         &stubClock{now: now},
		hr:            shared.Caller{UserID: uuid.NewString(), Role: shared.RoleHR},
		mentor:        shared.Caller{UserID: uuid.NewString(), Role: shared.RoleMentor},
		applicant:     shared.Caller{UserID: uuid.NewString(), Role: shared.RoleCandidate},
		candidateID:   uuid.NewString(),
		vacancyID:     uuid.NewString(),
		vacancy2ID:    uuid.NewString(),
		courseID:      uuid.NewString(),
		course2ID:     uuid.NewString(),
		lessonIDs:     []string{uuid.NewString(), uuid.NewString(), uuid.NewString()},
		course2Lesson: []string{uuid.NewString(), uuid.NewString()},
		testID:        uuid.NewString(),
		test2ID:       uuid.NewString(),
	}

	for _, c := range []shared.Caller{f.hr, f.mentor, f.applicant} {
		f.store.users[c.UserID] = &user.User{ID: c.UserID, Role: c.Role, CreatedAt: now, UpdatedAt: now}
	}

	mentorID := f.mentor.UserID
	f.store.candidates[f.candidateID] = &candidate.Candidate{
		ID:          f.candidateID,
		UserID:      f.applicant.UserID,
		Status:      candidate.StatusRegistered,
		OfferStatus: candidate.OfferNone,
		MentorID:    &mentorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	course1, course2 := f.courseID, f.course2ID
	f.store.vacancies[f.vacancyID] = &vacancy.Vacancy{
		ID: f.vacancyID, Title: "Trainee agent", StartCourseID: &course1,
		DefaultOfferContent: "Default trainee offer", IsActive: true,
	}
	f.store.vacancies[f.vacancy2ID] = &vacancy.Vacancy{
		ID: f.vacancy2ID, Title: "Realtor", StartCourseID: &course2,
		DefaultOfferContent: "Default realtor offer", IsActive: true,
	}
	f.store.lessons[f.courseID] = append([]string(nil), f.lessonIDs...)
	f.store.lessons[f.course2ID] = append([]string(nil), f.course2Lesson...)

	f.store.tests[f.testID] = &assessment.Test{
		ID:           f.testID,
		CourseID:     f.courseID,
		Title:        "Onboarding test",
		PassingScore: 70,
		IsActive:     true,
		Questions: []assessment.Question{
			{ID: "q1", Type: assessment.QuestionSingleChoice, Points: 60, CorrectOptions: []string{"a"}, Position: 1},
			{ID: "q2", Type: assessment.QuestionMultiChoice, Points: 40, CorrectOptions: []string{"b", "c"}, Position: 2},
			{ID: "q3", Type: assessment.QuestionOpenAnswer, Points: 0, Position: 3},
		},
	}
	f.store.tests[f.test2ID] = &assessment.Test{
		ID:           f.test2ID,
		CourseID:     f.course2ID,
		Title:        "Realtor test",
		PassingScore: 50,
		IsActive:     true,
		Questions: []assessment.Question{
			{ID: "r1", Type: assessment.QuestionSingleChoice, Points: 10, CorrectOptions: []string{"yes"}, Position: 1},
		},
	}

	f.svc = NewService(Dependencies{
		Candidates:  memCandidates{f.store},
		Users:       memUsers{f.store},
		Vacancies:   memVacancies{f.store},
		Courses:     memCourses{f.store},
		Assessments: memAssessments{f.store},
		Offers:      memOffers{f.store},
		Notifier:    f.notifier,
		Tx:          snapshotTx{f.store},
		Clock:       f.clock,
	})
	return f
}

func (f *fixture) candidate() candidate.Candidate {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return *f.store.candidates[f.candidateID]
}

func (f *fixture) assign(t *testing.T, vacancyID string) *AssignVacancyResult {
	t.Helper()
	res, err := f.svc.AssignVacancy(context.Background(), AssignVacancyInput{
		Caller: f.hr, CandidateID: f.candidateID, VacancyID: vacancyID,
	})
	if err != nil {
		t.Fatalf("AssignVacancy returned error: %v", err)
	}
	return res
}

// complete は受講中のレッスンをすべて完了させ、作成された未着手の受験を返します。
func (f *fixture) complete(t *testing.T, enrollmentID string, lessonIDs []string) []*assessment.Attempt {
	t.Helper()
	res, err := f.svc.CompleteLessons(context.Background(), CompleteLessonsInput{
		Caller: f.applicant, EnrollmentID: enrollmentID, LessonIDs: lessonIDs,
	})
	if err != nil {
		t.Fatalf("CompleteLessons returned error: %v", err)
	}
	if !res.CourseCompleted {
		t.Fatalf("expected course completion, got progress %d", res.Enrollment.Progress)
	}
	return res.PendingAttempts
}

// finishCourse は求人を割り当ててコースを修了させ、作成された受験の ID を返します。
func (f *fixture) finishCourse(t *testing.T) string {
	t.Helper()
	assigned := f.assign(t, f.vacancyID)
	pending := f.complete(t, assigned.Enrollment.ID, f.lessonIDs)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending attempt, got %d", len(pending))
	}
	return pending[0].ID
}

func (f *fixture) submit(t *testing.T, attemptID string, answers ...assessment.Answer) *ScoreResult {
	t.Helper()
	res, err := f.svc.SubmitAnswers(context.Background(), SubmitAnswersInput{
		Caller: f.applicant, AttemptID: attemptID, Answers: answers,
	})
	if err != nil {
		t.Fatalf("SubmitAnswers returned error: %v", err)
	}
	return res
}

func (f *fixture) offerCandidate(t *testing.T) *offer.Offer {
	t.Helper()
	res := f.submit(t, f.finishCourse(t), correctAnswers...)
	if res.Offer == nil {
		t.Fatal("expected an offer after passing the test")
	}
	return res.Offer
}

func titles(messages []notification.Notification) []string {
	out := make([]string, 0, len(messages))
	for _, n := range messages {
		out = append(out, n.Title)
	}
	return out
}

func containsTitle(messages []notification.Notification, title string) bool {
	for _, n := range messages {
		if n.Title == title {
			return true
		}
	}
	return false
}

var correctAnswers = []assessment.Answer{
	{QuestionID: "q1", Values: []string{"a"}},
	{QuestionID: "q2", Values: []string{"c", "b"}},
	{QuestionID: "q3", Values: []string{"I like people"}},
}

func TestAssignVacancy_ReplacesEnrollments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first := f.assign(t, f.vacancyID)
	if first.Enrollment == nil {
		t.Fatal("expected enrollment for the start course")
	}
	if first.Candidate.Status != candidate.StatusInCourse {
		t.Fatalf("expected IN_COURSE, got %s", first.Candidate.Status)
	}

	if _, err := f.svc.CompleteLessons(context.Background(), CompleteLessonsInput{
		Caller: f.applicant, EnrollmentID: first.Enrollment.ID, LessonIDs: f.lessonIDs[:1],
	}); err != nil {
		t.Fatalf("CompleteLessons returned error: %v", err)
	}

	second := f.assign(t, f.vacancy2ID)
	if second.RemovedEnrollments != 1 {
		t.Fatalf("expected 1 removed enrollment, got %d", second.RemovedEnrollments)
	}
	if second.Enrollment.CourseID != f.course2ID || second.Enrollment.Progress != 0 || second.Enrollment.CompletedAt != nil {
		t.Fatalf("unexpected fresh enrollment %+v", second.Enrollment)
	}
	if *second.Candidate.VacancyID != f.vacancy2ID {
		t.Fatalf("expected vacancy %s, got %s", f.vacancy2ID, *second.Candidate.VacancyID)
	}
	if len(f.store.enrollments) != 1 || len(f.store.progress) != 0 {
		t.Fatalf("expected one enrollment and no progress, got %d / %d", len(f.store.enrollments), len(f.store.progress))
	}
}

func TestAssignVacancy_WithoutStartCourse(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	noCourse := uuid.NewString()
	f.store.vacancies[noCourse] = &vacancy.Vacancy{
		ID: noCourse, Title: "Office manager", DefaultOfferContent: "Office offer", IsActive: true,
	}

	f.assign(t, f.vacancyID)
	res := f.assign(t, noCourse)

	if res.Enrollment != nil {
		t.Fatalf("expected no enrollment, got %+v", res.Enrollment)
	}
	if res.RemovedEnrollments != 1 {
		t.Fatalf("expected previous enrollment to be removed, got %d", res.RemovedEnrollments)
	}
	if res.Candidate.Status != candidate.StatusRegistered {
		t.Fatalf("expected REGISTERED, got %s", res.Candidate.Status)
	}
	if *res.Candidate.VacancyID != noCourse {
		t.Fatalf("expected vacancy %s, got %s", noCourse, *res.Candidate.VacancyID)
	}
	if len(f.store.enrollments) != 0 {
		t.Fatalf("expected no enrollments, got %d", len(f.store.enrollments))
	}
}

func TestAssignVacancy_VoidsOpenAttemptsOfPreviousCourse(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	staleID := f.finishCourse(t)

	second := f.assign(t, f.vacancy2ID)
	if second.RemovedAttempts != 1 {
		t.Fatalf("expected 1 voided attempt, got %d", second.RemovedAttempts)
	}

	pending := f.complete(t, second.Enrollment.ID, f.course2Lesson)
	if len(pending) != 1 || pending[0].TestID != f.test2ID {
		t.Fatalf("expected one attempt for the realtor test, got %+v", pending)
	}

	res := f.submit(t, pending[0].ID, assessment.Answer{QuestionID: "r1", Values: []string{"no"}})
	if res.Result.Passed {
		t.Fatal("expected failing score")
	}
	if got := f.candidate().Status; got != candidate.StatusRejected {
		t.Fatalf("expected REJECTED after failing the current test, got %s", got)
	}

	_, err := f.svc.SubmitAnswers(context.Background(), SubmitAnswersInput{
		Caller: f.applicant, AttemptID: staleID, Answers: correctAnswers,
	})
	if !errors.Is(err, assessment.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound for voided attempt, got %v", err)
	}

	_, err = f.svc.StartAttempt(context.Background(), StartAttemptInput{
		Caller: f.applicant, CandidateID: f.candidateID, TestID: f.testID,
	})
	if !errors.Is(err, assessment.ErrTestNotInCourse) {
		t.Fatalf("expected ErrTestNotInCourse, got %v", err)
	}
	if f.store.offerCreates != 0 {
		t.Fatalf("expected no offers, got %d", f.store.offerCreates)
	}
}

func TestAssignVacancy_RequiresStaff(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.AssignVacancy(context.Background(), AssignVacancyInput{
		Caller: f.applicant, CandidateID: f.candidateID, VacancyID: f.vacancyID,
	})
	if !errors.Is(err, ErrStaffOnly) || !shared.IsForbidden(err) {
		t.Fatalf("expected ErrStaffOnly, got %v", err)
	}
}

func TestAssignVacancy_RejectsOfferInFlight(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.candidates[f.candidateID].Status = candidate.StatusOfferSent

	_, err := f.svc.AssignVacancy(context.Background(), AssignVacancyInput{
		Caller: f.hr, CandidateID: f.candidateID, VacancyID: f.vacancyID,
	})
	if !errors.Is(err, candidate.ErrOfferInFlight) {
		t.Fatalf("expected ErrOfferInFlight, got %v", err)
	}
	if got := f.candidate().Status; got != candidate.StatusOfferSent {
		t.Fatalf("expected status to stay OFFER_SENT, got %s", got)
	}
}

func TestAssignVacancy_ClosedVacancy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.vacancies[f.vacancyID].IsActive = false

	_, err := f.svc.AssignVacancy(context.Background(), AssignVacancyInput{
		Caller: f.hr, CandidateID: f.candidateID, VacancyID: f.vacancyID,
	})
	if !errors.Is(err, vacancy.ErrVacancyClosed) {
		t.Fatalf("expected ErrVacancyClosed, got %v", err)
	}
	if f.candidate().VacancyID != nil {
		t.Fatal("vacancy must not be assigned")
	}
}

func TestCompleteLessons_CourseCompletionIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.finishCourse(t)

	enrollments, err := memCourses{f.store}.ListEnrollmentsByCandidate(context.Background(), f.candidateID)
	if err != nil {
		t.Fatalf("ListEnrollmentsByCandidate returned error: %v", err)
	}
	if len(enrollments) != 1 || enrollments[0].Progress != 100 || enrollments[0].CompletedAt == nil {
		t.Fatalf("expected one completed enrollment, got %+v", enrollments)
	}
	if got := f.candidate().Status; got != candidate.StatusInCourse {
		t.Fatalf("expected IN_COURSE, got %s", got)
	}

	again, err := f.svc.CompleteLessons(context.Background(), CompleteLessonsInput{
		Caller: f.applicant, EnrollmentID: enrollments[0].ID, LessonIDs: f.lessonIDs,
	})
	if err != nil {
		t.Fatalf("CompleteLessons returned error: %v", err)
	}
	if again.CourseCompleted || len(again.PendingAttempts) != 0 {
		t.Fatalf("second completion must be a no-op, got %+v", again)
	}
	if len(f.store.attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(f.store.attempts))
	}
}

func TestCompleteLessons_OtherCandidateForbidden(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	assigned := f.assign(t, f.vacancyID)

	stranger := shared.Caller{UserID: uuid.NewString(), Role: shared.RoleCandidate}
	_, err := f.svc.CompleteLessons(context.Background(), CompleteLessonsInput{
		Caller: stranger, EnrollmentID: assigned.Enrollment.ID, LessonIDs: f.lessonIDs,
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if len(f.store.progress) != 0 {
		t.Fatalf("expected no lesson progress, got %d", len(f.store.progress))
	}
}

func TestSubmitAnswers_PassIssuesOfferFromDefaultContent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	attemptID := f.finishCourse(t)

	res := f.submit(t, attemptID, correctAnswers...)
	if res.Result.Score != 100 || res.Result.Possible != 100 || !res.Result.Passed {
		t.Fatalf("unexpected result %+v", res.Result)
	}
	if res.Attempt.Status != assessment.AttemptCompleted {
		t.Fatalf("expected completed attempt, got %s", res.Attempt.Status)
	}
	if res.Offer == nil || res.Offer.Content != "Default trainee offer" || res.Offer.Status != offer.StatusSent {
		t.Fatalf("unexpected offer %+v", res.Offer)
	}

	c := f.candidate()
	if c.Status != candidate.StatusOfferSent || c.OfferStatus != candidate.OfferSent {
		t.Fatalf("unexpected candidate %s / %s", c.Status, c.OfferStatus)
	}

	sent := f.notifier.to(f.applicant.UserID)
	if !containsTitle(sent, "Test passed") || !containsTitle(sent, "You have received an offer") {
		t.Fatalf("unexpected notifications %v", titles(sent))
	}
}

func TestSubmitAnswers_BlankDefaultContentStillIssuesOffer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.vacancies[f.vacancyID].DefaultOfferContent = "  "
	attemptID := f.finishCourse(t)

	res := f.submit(t, attemptID, correctAnswers...)
	if res.Attempt.Status != assessment.AttemptCompleted || !res.Result.Passed {
		t.Fatalf("expected completed passing attempt, got %s / %+v", res.Attempt.Status, res.Result)
	}
	if res.Offer == nil {
		t.Fatal("expected an offer")
	}
	if want := "We are pleased to offer you the position of Trainee agent."; res.Offer.Content != want {
		t.Fatalf("expected content %q, got %q", want, res.Offer.Content)
	}
	if got := f.candidate().Status; got != candidate.StatusOfferSent {
		t.Fatalf("expected OFFER_SENT, got %s", got)
	}
}

func TestSubmitAnswers_UsesOfferTemplate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	testID := f.testID
	template, err := f.svc.CreateOfferTemplate(context.Background(), CreateOfferTemplateInput{
		Caller: f.hr, VacancyID: f.vacancyID, TestID: &testID, Content: "  Template offer  ",
	})
	if err != nil {
		t.Fatalf("CreateOfferTemplate returned error: %v", err)
	}
	if template.Type != offer.TypeGeneral {
		t.Fatalf("expected general offer, got %s", template.Type)
	}

	res := f.submit(t, f.finishCourse(t), correctAnswers...)
	if res.Offer == nil || res.Offer.Content != "Template offer" {
		t.Fatalf("unexpected offer %+v", res.Offer)
	}
	if res.Offer.TestID == nil || *res.Offer.TestID != f.testID {
		t.Fatalf("expected offer linked to test %s, got %v", f.testID, res.Offer.TestID)
	}
}

func TestSubmitAnswers_UsesVacancyWideTemplate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if _, err := f.svc.CreateOfferTemplate(context.Background(), CreateOfferTemplateInput{
		Caller: f.hr, VacancyID: f.vacancyID, Content: "Vacancy-wide offer",
	}); err != nil {
		t.Fatalf("CreateOfferTemplate returned error: %v", err)
	}

	res := f.submit(t, f.finishCourse(t), correctAnswers...)
	if res.Offer == nil || res.Offer.Content != "Vacancy-wide offer" {
		t.Fatalf("unexpected offer %+v", res.Offer)
	}
	if res.Offer.TestID == nil || *res.Offer.TestID != f.testID {
		t.Fatalf("expected offer linked to the passed test, got %v", res.Offer.TestID)
	}
}

func TestSubmitAnswers_FailRejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	attemptID := f.finishCourse(t)

	res := f.submit(t, attemptID,
		assessment.Answer{QuestionID: "q1", Values: []string{"b"}},
		assessment.Answer{QuestionID: "q2", Values: []string{"b"}},
	)
	if res.Result.Score != 0 || res.Result.Passed || res.Offer != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := f.candidate().Status; got != candidate.StatusRejected {
		t.Fatalf("expected REJECTED, got %s", got)
	}
	if f.store.offerCreates != 0 {
		t.Fatalf("expected no offers, got %d", f.store.offerCreates)
	}

	_, err := f.svc.SubmitAnswers(context.Background(), SubmitAnswersInput{
		Caller: f.applicant, AttemptID: attemptID, Answers: correctAnswers,
	})
	if !errors.Is(err, assessment.ErrAttemptAlreadySubmitted) {
		t.Fatalf("expected ErrAttemptAlreadySubmitted, got %v", err)
	}
}

func TestSubmitAnswers_FailKeepsStatusWhileOtherAttemptOpen(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	otherTest := uuid.NewString()
	f.store.tests[otherTest] = &assessment.Test{
		ID: otherTest, CourseID: f.courseID, Title: "Second test", PassingScore: 50, IsActive: true,
		Questions: []assessment.Question{{ID: "x1", Type: assessment.QuestionSingleChoice, Points: 10, CorrectOptions: []string{"y"}}},
	}

	assigned := f.assign(t, f.vacancyID)
	pending := f.complete(t, assigned.Enrollment.ID, f.lessonIDs)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending attempts, got %d", len(pending))
	}

	var attemptID string
	for _, a := range pending {
		if a.TestID == f.testID {
			attemptID = a.ID
		}
	}
	f.submit(t, attemptID, assessment.Answer{QuestionID: "q1", Values: []string{"z"}})
	if got := f.candidate().Status; got != candidate.StatusInCourse {
		t.Fatalf("expected IN_COURSE while another attempt is open, got %s", got)
	}
}

func TestIssueOfferIfEligible_ReturnsExistingOffer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.assign(t, f.vacancyID)
	f.store.candidates[f.candidateID].Status = candidate.StatusTestCompleted

	ctx := context.Background()
	c, err := memCandidates{f.store}.FindByID(ctx, f.candidateID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}

	var box outbox
	first, created, err := f.svc.issueOfferIfEligible(ctx, c, nil, &box)
	if err != nil || !created {
		t.Fatalf("expected a new offer, got created=%v err=%v", created, err)
	}

	second, created, err := f.svc.issueOfferIfEligible(ctx, c, nil, &box)
	if err != nil {
		t.Fatalf("issueOfferIfEligible returned error: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected the existing offer %s, got %s (created=%v)", first.ID, second.ID, created)
	}
	if f.store.offerCreates != 1 || len(box.direct) != 1 {
		t.Fatalf("expected one offer and one notification, got %d / %d", f.store.offerCreates, len(box.direct))
	}
}

func TestIssueOffer_Manual(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.assign(t, f.vacancyID)

	if _, err := f.svc.IssueOffer(context.Background(), IssueOfferInput{Caller: f.applicant, CandidateID: f.candidateID}); !errors.Is(err, ErrStaffOnly) {
		t.Fatalf("expected ErrStaffOnly, got %v", err)
	}

	issued, err := f.svc.IssueOffer(context.Background(), IssueOfferInput{Caller: f.hr, CandidateID: f.candidateID})
	if err != nil {
		t.Fatalf("IssueOffer returned error: %v", err)
	}
	if issued.Content != "Default trainee offer" {
		t.Fatalf("unexpected content %q", issued.Content)
	}
	if got := f.candidate().Status; got != candidate.StatusOfferSent {
		t.Fatalf("expected OFFER_SENT, got %s", got)
	}

	_, err = f.svc.IssueOffer(context.Background(), IssueOfferInput{Caller: f.hr, CandidateID: f.candidateID})
	if !errors.Is(err, offer.ErrActiveOfferExists) || !shared.IsInvalidState(err) {
		t.Fatalf("expected ErrActiveOfferExists, got %v", err)
	}
	if f.store.offerCreates != 1 {
		t.Fatalf("expected one offer, got %d", f.store.offerCreates)
	}
}

func TestIssueOffer_RequiresVacancy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.IssueOffer(context.Background(), IssueOfferInput{Caller: f.hr, CandidateID: f.candidateID})
	if !errors.Is(err, candidate.ErrNoVacancy) {
		t.Fatalf("expected ErrNoVacancy, got %v", err)
	}
}

func TestRespondToOffer_AcceptHires(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.offerCandidate(t)

	res, err := f.svc.RespondToOffer(context.Background(), RespondToOfferInput{
		Caller: f.applicant, OfferID: o.ID, Decision: offer.DecisionAccept,
	})
	if err != nil {
		t.Fatalf("RespondToOffer returned error: %v", err)
	}
	if res.Offer.Status != offer.StatusAccepted || res.Offer.RespondedAt == nil {
		t.Fatalf("unexpected offer %+v", res.Offer)
	}
	if res.Candidate.Status != candidate.StatusHired || res.Candidate.OfferStatus != candidate.OfferAccepted {
		t.Fatalf("unexpected candidate %s / %s", res.Candidate.Status, res.Candidate.OfferStatus)
	}
	if got := f.store.users[f.applicant.UserID].Role; got != shared.RoleEmployee {
		t.Fatalf("expected employee role, got %s", got)
	}

	hrMessages := f.notifier.to(f.hr.UserID)
	if len(hrMessages) == 0 || hrMessages[len(hrMessages)-1].Title != "Offer accepted" {
		t.Fatalf("unexpected hr notifications %v", titles(hrMessages))
	}
}

func TestRespondToOffer_DeclineMovesToTalentPool(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.offerCandidate(t)

	res, err := f.svc.RespondToOffer(context.Background(), RespondToOfferInput{
		Caller: f.applicant, OfferID: o.ID, Decision: offer.DecisionDecline,
	})
	if err != nil {
		t.Fatalf("RespondToOffer returned error: %v", err)
	}
	if res.Offer.Status != offer.StatusDeclined {
		t.Fatalf("expected declined offer, got %s", res.Offer.Status)
	}
	if res.Candidate.Status != candidate.StatusInTalentPool || res.Candidate.OfferStatus != candidate.OfferDeclined {
		t.Fatalf("unexpected candidate %s / %s", res.Candidate.Status, res.Candidate.OfferStatus)
	}
	if got := f.store.users[f.applicant.UserID].Role; got != shared.RoleCandidate {
		t.Fatalf("expected candidate role, got %s", got)
	}
}

func TestRespondToOffer_TerminalOfferHasNoSideEffects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.offerCandidate(t)

	if _, err := f.svc.RespondToOffer(context.Background(), RespondToOfferInput{
		Caller: f.applicant, OfferID: o.ID, Decision: offer.DecisionAccept,
	}); err != nil {
		t.Fatalf("RespondToOffer returned error: %v", err)
	}

	beforeCandidate := f.candidate()
	beforeOffer := *f.store.offers[o.ID]
	sent := len(f.notifier.sent)

	_, err := f.svc.RespondToOffer(context.Background(), RespondToOfferInput{
		Caller: f.applicant, OfferID: o.ID, Decision: offer.DecisionDecline,
	})
	if !errors.Is(err, offer.ErrOfferAlreadyResponded) || !shared.IsInvalidState(err) {
		t.Fatalf("expected ErrOfferAlreadyResponded, got %v", err)
	}
	if offer.ErrOfferAlreadyResponded.Message != "offer already responded to" {
		t.Fatalf("unexpected message %q", offer.ErrOfferAlreadyResponded.Message)
	}

	if after := f.candidate(); !reflect.DeepEqual(beforeCandidate, after) {
		t.Fatalf("candidate changed: %+v -> %+v", beforeCandidate, after)
	}
	if after := *f.store.offers[o.ID]; !reflect.DeepEqual(beforeOffer, after) {
		t.Fatalf("offer changed: %+v -> %+v", beforeOffer, after)
	}
	if len(f.notifier.sent) != sent {
		t.Fatalf("expected no new notifications, got %d", len(f.notifier.sent)-sent)
	}
}

func TestRespondToOffer_OnlyAddressee(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.offerCandidate(t)

	_, err := f.svc.RespondToOffer(context.Background(), RespondToOfferInput{
		Caller: f.hr, OfferID: o.ID, Decision: offer.DecisionAccept,
	})
	if !errors.Is(err, offer.ErrNotOfferCandidate) {
		t.Fatalf("expected ErrNotOfferCandidate, got %v", err)
	}
	if got := f.store.offers[o.ID].Status; got != offer.StatusSent {
		t.Fatalf("expected offer to stay sent, got %s", got)
	}

	_, err = f.svc.RespondToOffer(context.Background(), RespondToOfferInput{
		Caller: f.applicant, OfferID: o.ID, Decision: offer.Decision("maybe"),
	})
	if !errors.Is(err, offer.ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.notifier.fail = errBrokenNotifier

	res := f.assign(t, f.vacancyID)
	if res.Candidate.Status != candidate.StatusInCourse {
		t.Fatalf("expected IN_COURSE, got %s", res.Candidate.Status)
	}
	if len(f.notifier.sent) == 0 {
		t.Fatal("expected delivery to be attempted")
	}
}

func TestScoreTestAttempt_OpenOnlyTestAwaitsReview(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.tests[f.testID].Questions = []assessment.Question{
		{ID: "essay", Type: assessment.QuestionOpenAnswer, Points: 10},
	}
	f.store.tests[f.testID].PassingScore = 60
	attemptID := f.finishCourse(t)

	res := f.submit(t, attemptID, assessment.Answer{QuestionID: "essay", Values: []string{"My essay"}})
	if !res.AwaitingReview || res.Attempt.Status != assessment.AttemptInProgress || res.Attempt.Score != nil {
		t.Fatalf("expected attempt awaiting review, got %+v", res.Attempt)
	}
	if got := f.candidate().Status; got != candidate.StatusInCourse {
		t.Fatalf("expected IN_COURSE, got %s", got)
	}

	_, err := f.svc.ScoreTestAttempt(context.Background(), ScoreTestAttemptInput{
		Caller: f.applicant, AttemptID: attemptID, ReviewerAwards: map[string]int{"essay": 10},
	})
	if !errors.Is(err, ErrNotReviewer) {
		t.Fatalf("expected ErrNotReviewer, got %v", err)
	}

	_, err = f.svc.ScoreTestAttempt(context.Background(), ScoreTestAttemptInput{
		Caller: f.mentor, AttemptID: attemptID, ReviewerAwards: map[string]int{"essay": 11},
	})
	if !errors.Is(err, assessment.ErrPointsOutOfRange) || !shared.IsValidation(err) {
		t.Fatalf("expected ErrPointsOutOfRange, got %v", err)
	}

	_, err = f.svc.ScoreTestAttempt(context.Background(), ScoreTestAttemptInput{
		Caller: f.mentor, AttemptID: attemptID, ReviewerAwards: map[string]int{"missing": 1},
	})
	if !errors.Is(err, assessment.ErrUnknownQuestion) || !shared.IsInvalidState(err) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}

	comment := " thoughtful "
	scored, err := f.svc.ScoreTestAttempt(context.Background(), ScoreTestAttemptInput{
		Caller: f.mentor, AttemptID: attemptID, ReviewerAwards: map[string]int{"essay": 7}, Comment: &comment,
	})
	if err != nil {
		t.Fatalf("ScoreTestAttempt returned error: %v", err)
	}
	if scored.AwaitingReview || scored.Result.Score != 70 || !scored.Result.Passed {
		t.Fatalf("unexpected result %+v", scored.Result)
	}
	if scored.Attempt.ManualReviewComment == nil || *scored.Attempt.ManualReviewComment != "thoughtful" {
		t.Fatalf("unexpected comment %v", scored.Attempt.ManualReviewComment)
	}
	if got := f.candidate().Status; got != candidate.StatusOfferSent {
		t.Fatalf("expected OFFER_SENT, got %s", got)
	}
}

func TestSubmitAnswers_ResubmissionAfterReviewRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.tests[f.testID].Questions = []assessment.Question{
		{ID: "essay", Type: assessment.QuestionOpenAnswer, Points: 10},
		{ID: "essay2", Type: assessment.QuestionOpenAnswer, Points: 10},
	}
	attemptID := f.finishCourse(t)

	f.submit(t, attemptID,
		assessment.Answer{QuestionID: "essay", Values: []string{"first"}},
		assessment.Answer{QuestionID: "essay2", Values: []string{"second"}},
	)

	partial, err := f.svc.ScoreTestAttempt(context.Background(), ScoreTestAttemptInput{
		Caller: f.mentor, AttemptID: attemptID, ReviewerAwards: map[string]int{"essay": 9},
	})
	if err != nil {
		t.Fatalf("ScoreTestAttempt returned error: %v", err)
	}
	if !partial.AwaitingReview {
		t.Fatal("expected attempt to keep awaiting review")
	}

	_, err = f.svc.SubmitAnswers(context.Background(), SubmitAnswersInput{
		Caller: f.applicant, AttemptID: attemptID, Answers: []assessment.Answer{{QuestionID: "essay", Values: []string{"rewritten"}}},
	})
	if !errors.Is(err, assessment.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}

	stored := f.store.attempts[attemptID]
	for _, a := range stored.Answers {
		if a.QuestionID == "essay" && (a.Points == nil || *a.Points != 9) {
			t.Fatalf("reviewer award lost: %+v", a)
		}
	}
}

func TestScoreTestAttempt_FailingRegradeFlagsOffer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.tests[f.testID].Questions = []assessment.Question{
		{ID: "choice", Type: assessment.QuestionSingleChoice, Points: 40, CorrectOptions: []string{"a"}},
		{ID: "essay", Type: assessment.QuestionOpenAnswer, Points: 60},
	}
	f.store.tests[f.testID].PassingScore = 50
	attemptID := f.finishCourse(t)

	first := f.submit(t, attemptID,
		assessment.Answer{QuestionID: "choice", Values: []string{"a"}},
		assessment.Answer{QuestionID: "essay", Values: []string{"text"}},
	)
	if first.Result.Score != 40 {
		t.Fatalf("expected score 40, got %d", first.Result.Score)
	}
	if got := f.candidate().Status; got != candidate.StatusRejected {
		t.Fatalf("expected REJECTED, got %s", got)
	}

	passed, err := f.svc.ScoreTestAttempt(context.Background(), ScoreTestAttemptInput{
		Caller: f.hr, AttemptID: attemptID, ReviewerAwards: map[string]int{"essay": 20},
	})
	if err != nil {
		t.Fatalf("ScoreTestAttempt returned error: %v", err)
	}
	if passed.Result.Score != 60 || passed.Offer == nil {
		t.Fatalf("expected passing re-grade with offer, got %+v", passed)
	}
	if got := f.candidate().Status; got != candidate.StatusOfferSent {
		t.Fatalf("expected OFFER_SENT, got %s", got)
	}

	regraded, err := f.svc.ScoreTestAttempt(context.Background(), ScoreTestAttemptInput{
		Caller: f.hr, AttemptID: attemptID, ReviewerAwards: map[string]int{"essay": 0},
	})
	if err != nil {
		t.Fatalf("ScoreTestAttempt returned error: %v", err)
	}
	if regraded.Result.Score != 40 || !regraded.Attempt.NeedsReview {
		t.Fatalf("expected flagged failing re-grade, got %+v", regraded.Attempt)
	}
	if got := f.candidate().Status; got != candidate.StatusOfferSent {
		t.Fatalf("offer must not be revoked, candidate is %s", got)
	}
	if got := f.store.offers[passed.Offer.ID].Status; got != offer.StatusSent {
		t.Fatalf("offer must stay sent, got %s", got)
	}

	var warned bool
	for _, n := range f.notifier.to(f.hr.UserID) {
		if n.Type == notification.TypeWarning && n.Title == "Offer needs review" {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected hr warning notification")
	}
}

func TestScoreTestAttempt_PreviousCourseRegradeKeepsStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.tests[f.testID].Questions = []assessment.Question{
		{ID: "choice", Type: assessment.QuestionSingleChoice, Points: 40, CorrectOptions: []string{"a"}},
		{ID: "essay", Type: assessment.QuestionOpenAnswer, Points: 60},
	}
	f.store.tests[f.testID].PassingScore = 50
	attemptID := f.finishCourse(t)

	f.submit(t, attemptID,
		assessment.Answer{QuestionID: "choice", Values: []string{"a"}},
		assessment.Answer{QuestionID: "essay", Values: []string{"text"}},
	)
	f.assign(t, f.vacancy2ID)

	regraded, err := f.svc.ScoreTestAttempt(context.Background(), ScoreTestAttemptInput{
		Caller: f.hr, AttemptID: attemptID, ReviewerAwards: map[string]int{"essay": 60},
	})
	if err != nil {
		t.Fatalf("ScoreTestAttempt returned error: %v", err)
	}
	if !regraded.Result.Passed || regraded.Result.Score != 100 {
		t.Fatalf("expected the score to be recorded, got %+v", regraded.Result)
	}
	if regraded.Offer != nil || f.store.offerCreates != 0 {
		t.Fatalf("expected no offer for a previous vacancy's test, got %+v", regraded.Offer)
	}
	if got := f.candidate().Status; got != candidate.StatusInCourse {
		t.Fatalf("expected IN_COURSE for the current vacancy, got %s", got)
	}
}

func TestStartAttempt(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	attemptID := f.finishCourse(t)

	started, err := f.svc.StartAttempt(context.Background(), StartAttemptInput{
		Caller: f.applicant, CandidateID: f.candidateID, TestID: f.testID,
	})
	if err != nil {
		t.Fatalf("StartAttempt returned error: %v", err)
	}
	if started.ID != attemptID || started.Status != assessment.AttemptInProgress || started.StartedAt == nil {
		t.Fatalf("unexpected attempt %+v", started)
	}

	again, err := f.svc.StartAttempt(context.Background(), StartAttemptInput{
		Caller: f.applicant, CandidateID: f.candidateID, TestID: f.testID,
	})
	if err != nil {
		t.Fatalf("StartAttempt returned error: %v", err)
	}
	if !again.StartedAt.Equal(*started.StartedAt) {
		t.Fatalf("expected start time to be kept, got %v", again.StartedAt)
	}

	_, err = f.svc.StartAttempt(context.Background(), StartAttemptInput{
		Caller: f.applicant, CandidateID: f.candidateID, TestID: f.test2ID,
	})
	if !errors.Is(err, assessment.ErrTestNotInCourse) {
		t.Fatalf("expected ErrTestNotInCourse, got %v", err)
	}

	f.store.tests[f.testID].IsActive = false
	_, err = f.svc.StartAttempt(context.Background(), StartAttemptInput{
		Caller: f.applicant, CandidateID: f.candidateID, TestID: f.testID,
	})
	if !errors.Is(err, assessment.ErrTestInactive) {
		t.Fatalf("expected ErrTestInactive, got %v", err)
	}
}

func TestScoreTestAttempt_PendingAttempt(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	attemptID := f.finishCourse(t)

	_, err := f.svc.ScoreTestAttempt(context.Background(), ScoreTestAttemptInput{
		Caller: f.hr, AttemptID: attemptID,
	})
	if !errors.Is(err, assessment.ErrAttemptNotStarted) {
		t.Fatalf("expected ErrAttemptNotStarted, got %v", err)
	}
}

func TestGetCandidate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.offerCandidate(t)

	view, err := f.svc.GetCandidate(context.Background(), GetCandidateInput{Caller: f.mentor, CandidateID: f.candidateID})
	if err != nil {
		t.Fatalf("GetCandidate returned error: %v", err)
	}
	if view.Candidate.Status != candidate.StatusOfferSent || len(view.Enrollments) != 1 || len(view.Attempts) != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.ActiveOffer == nil || view.ActiveOffer.ID != o.ID {
		t.Fatalf("expected active offer %s, got %+v", o.ID, view.ActiveOffer)
	}

	stranger := shared.Caller{UserID: uuid.NewString(), Role: shared.RoleCandidate}
	if _, err := f.svc.GetCandidate(context.Background(), GetCandidateInput{Caller: stranger, CandidateID: f.candidateID}); !shared.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if _, err := f.svc.GetCandidate(context.Background(), GetCandidateInput{Caller: f.hr, CandidateID: "not-a-uuid"}); !shared.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
