package lifecycle

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/assessment"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/course"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/offer"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/user"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/vacancy"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

// memStore は全リポジトリで共有するインメモリの状態です。
type memStore struct {
	mu          sync.Mutex
	users       map[string]*user.User
	candidates  map[string]*candidate.Candidate
	vacancies   map[string]*vacancy.Vacancy
	lessons     map[string][]string
	enrollments map[string]*course.Enrollment
	progress    map[string]*course.LessonProgress
	tests       map[string]*assessment.Test
	attempts    map[string]*assessment.Attempt
	offers      map[string]*offer.Offer

	candidateUpdates int
	offerCreates     int
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*user.User),
		candidates:  make(map[string]*candidate.Candidate),
		vacancies:   make(map[string]*vacancy.Vacancy),
		lessons:     make(map[string][]string),
		enrollments: make(map[string]*course.Enrollment),
		progress:    make(map[string]*course.LessonProgress),
		tests:       make(map[string]*assessment.Test),
		attempts:    make(map[string]*assessment.Attempt),
		offers:      make(map[string]*offer.Offer),
	}
}

func progressKey(enrollmentID, lessonID string) string {
	return enrollmentID + "/" + lessonID
}

type memCandidates struct{ s *memStore }

func (r memCandidates) FindByID(_ context.Context, id string) (*candidate.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.candidates[id]
	if !ok {
		return nil, candidate.ErrCandidateNotFound
	}
	clone := *c
	return &clone, nil
}

func (r memCandidates) LockByID(ctx context.Context, id string) (*candidate.Candidate, error) {
	return r.FindByID(ctx, id)
}

func (r memCandidates) Update(_ context.Context, c *candidate.Candidate) (*candidate.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.candidates[c.ID]; !ok {
		return nil, candidate.ErrCandidateNotFound
	}
	r.s.candidateUpdates++
	clone := *c
	r.s.candidates[c.ID] = &clone
	out := clone
	return &out, nil
}

type memUsers struct{ s *memStore }

func (r memUsers) FindByID(_ context.Context, id string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r memUsers) UpdateRole(_ context.Context, id string, role shared.Role, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = updatedAt
	return nil
}

func (r memUsers) ListIDsByRole(_ context.Context, roles ...shared.Role) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for _, u := range r.s.users {
		for _, role := range roles {
			if u.Role == role {
				ids = append(ids, u.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memVacancies struct{ s *memStore }

func (r memVacancies) FindByID(_ context.Context, id string) (*vacancy.Vacancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vacancies[id]
	if !ok {
		return nil, vacancy.ErrVacancyNotFound
	}
	clone := *v
	return &clone, nil
}

type memCourses struct{ s *memStore }

func (r memCourses) CreateEnrollment(_ context.Context, e *course.Enrollment) (*course.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *e
	clone.ID = uuid.NewString()
	r.s.enrollments[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r memCourses) FindEnrollment(_ context.Context, id string) (*course.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.enrollments[id]
	if !ok {
		return nil, course.ErrEnrollmentNotFound
	}
	clone := *e
	return &clone, nil
}

func (r memCourses) LockEnrollment(ctx context.Context, id string) (*course.Enrollment, error) {
	return r.FindEnrollment(ctx, id)
}

func (r memCourses) UpdateEnrollment(_ context.Context, e *course.Enrollment) (*course.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.enrollments[e.ID]; !ok {
		return nil, course.ErrEnrollmentNotFound
	}
	clone := *e
	r.s.enrollments[e.ID] = &clone
	out := clone
	return &out, nil
}

func (r memCourses) ListEnrollmentsByCandidate(_ context.Context, candidateID string) ([]*course.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*course.Enrollment
	for _, e := range r.s.enrollments {
		if e.CandidateID == candidateID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r memCourses) DeleteEnrollmentsByCandidate(_ context.Context, candidateID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, e := range r.s.enrollments {
		if e.CandidateID != candidateID {
			continue
		}
		for key, p := range r.s.progress {
			if p.EnrollmentID == id {
				delete(r.s.progress, key)
			}
		}
		delete(r.s.enrollments, id)
		n++
	}
	return n, nil
}

func (r memCourses) ListLessonIDs(_ context.Context, courseID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lessons, ok := r.s.lessons[courseID]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return append([]string(nil), lessons...), nil
}

func (r memCourses) FindLessonProgress(_ context.Context, enrollmentID, lessonID string) (*course.LessonProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.progress[progressKey(enrollmentID, lessonID)]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r memCourses) UpsertLessonProgress(_ context.Context, p *course.LessonProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *p
	r.s.progress[progressKey(p.EnrollmentID, p.LessonID)] = &clone
	return nil
}

func (r memCourses) CountCompletedLessons(_ context.Context, enrollmentID, courseID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, lessonID := range r.s.lessons[courseID] {
		if p, ok := r.s.progress[progressKey(enrollmentID, lessonID)]; ok && p.IsCompleted {
			n++
		}
	}
	return n, nil
}

type memAssessments struct{ s *memStore }

func cloneAttempt(a *assessment.Attempt) *assessment.Attempt {
	clone := *a
	clone.Answers = make([]assessment.Answer, len(a.Answers))
	for i, ans := range a.Answers {
		ans.Values = append([]string(nil), ans.Values...)
		if ans.Points != nil {
			p := *ans.Points
			ans.Points = &p
		}
		clone.Answers[i] = ans
	}
	return &clone
}

func (r memAssessments) FindTest(_ context.Context, id string) (*assessment.Test, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tests[id]
	if !ok {
		return nil, assessment.ErrTestNotFound
	}
	clone := *t
	return &clone, nil
}

func (r memAssessments) ListActiveTestIDsByCourse(_ context.Context, courseID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for _, t := range r.s.tests {
		if t.CourseID == courseID && t.IsActive {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r memAssessments) FindAttempt(_ context.Context, id string) (*assessment.Attempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attempts[id]
	if !ok {
		return nil, assessment.ErrAttemptNotFound
	}
	return cloneAttempt(a), nil
}

func (r memAssessments) LockAttempt(ctx context.Context, id string) (*assessment.Attempt, error) {
	return r.FindAttempt(ctx, id)
}

func (r memAssessments) FindAttemptByCandidateAndTest(_ context.Context, candidateID, testID string) (*assessment.Attempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.attempts {
		if a.CandidateID == candidateID && a.TestID == testID {
			return cloneAttempt(a), nil
		}
	}
	return nil, assessment.ErrAttemptNotFound
}

func (r memAssessments) ListAttemptsByCandidate(_ context.Context, candidateID string) ([]*assessment.Attempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*assessment.Attempt
	for _, a := range r.s.attempts {
		if a.CandidateID == candidateID {
			out = append(out, cloneAttempt(a))
		}
	}
	return out, nil
}

func (r memAssessments) CreateAttempt(_ context.Context, a *assessment.Attempt) (*assessment.Attempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.attempts {
		if existing.CandidateID == a.CandidateID && existing.TestID == a.TestID {
			return nil, assessment.ErrAttemptAlreadyExists
		}
	}
	stored := cloneAttempt(a)
	stored.ID = uuid.NewString()
	r.s.attempts[stored.ID] = stored
	return cloneAttempt(stored), nil
}

func (r memAssessments) UpdateAttempt(_ context.Context, a *assessment.Attempt) (*assessment.Attempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.attempts[a.ID]; !ok {
		return nil, assessment.ErrAttemptNotFound
	}
	r.s.attempts[a.ID] = cloneAttempt(a)
	return cloneAttempt(a), nil
}

func (r memAssessments) DeleteOpenAttemptsByCandidate(_ context.Context, candidateID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, a := range r.s.attempts {
		if a.CandidateID == candidateID && a.Status.IsOpen() {
			delete(r.s.attempts, id)
			n++
		}
	}
	return n, nil
}

type memOffers struct{ s *memStore }

func (r memOffers) Create(_ context.Context, o *offer.Offer) (*offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o.Type == offer.TypePersonal {
		for _, existing := range r.s.offers {
			if existing.IsFor(*o.CandidateID) && existing.Status == offer.StatusSent {
				return nil, offer.ErrActiveOfferExists
			}
		}
	}
	r.s.offerCreates++
	clone := *o
	clone.ID = uuid.NewString()
	r.s.offers[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r memOffers) FindByID(_ context.Context, id string) (*offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return nil, offer.ErrOfferNotFound
	}
	clone := *o
	return &clone, nil
}

func (r memOffers) LockByID(ctx context.Context, id string) (*offer.Offer, error) {
	return r.FindByID(ctx, id)
}

func (r memOffers) FindActiveByCandidate(_ context.Context, candidateID string) (*offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.offers {
		if o.IsFor(candidateID) && o.Status == offer.StatusSent {
			clone := *o
			return &clone, nil
		}
	}
	return nil, offer.ErrOfferNotFound
}

func (r memOffers) FindTemplate(_ context.Context, vacancyID string, testID *string) (*offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var vacancyWide *offer.Offer
	for _, o := range r.s.offers {
		if o.Type != offer.TypeGeneral || o.VacancyID == nil || *o.VacancyID != vacancyID {
			continue
		}
		if o.TestID == nil {
			vacancyWide = o
			continue
		}
		if testID != nil && *testID == *o.TestID {
			clone := *o
			return &clone, nil
		}
	}
	if vacancyWide == nil {
		return nil, offer.ErrOfferNotFound
	}
	clone := *vacancyWide
	return &clone, nil
}

func (r memOffers) MarkResponded(_ context.Context, id string, status offer.Status, respondedAt time.Time) (*offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return nil, offer.ErrOfferNotFound
	}
	if o.Status != offer.StatusSent {
		return nil, offer.ErrOfferAlreadyResponded
	}
	at := respondedAt
	o.Status = status
	o.RespondedAt = &at
	o.UpdatedAt = respondedAt
	clone := *o
	return &clone, nil
}

// recordingNotifier は配送された通知を記録します。fail が設定されていれば常に失敗します。
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
	fail error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notification.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.fail
}

func (n *recordingNotifier) to(userID string) []notification.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification.Notification
	for _, msg := range n.sent {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out
}

// snapshotTx はトランザクションの失敗時に memStore をロールバックします。
type snapshotTx struct{ s *memStore }

func (t snapshotTx) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (t snapshotTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	saved := t.s.snapshot()
	if err := fn(ctx); err != nil {
		t.s.restore(saved)
		return err
	}
	return nil
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := newMemStore()
	for k, v := range s.users {
		c := *v
		cp.users[k] = &c
	}
	for k, v := range s.candidates {
		c := *v
		cp.candidates[k] = &c
	}
	for k, v := range s.enrollments {
		c := *v
		cp.enrollments[k] = &c
	}
	for k, v := range s.progress {
		c := *v
		cp.progress[k] = &c
	}
	for k, v := range s.attempts {
		cp.attempts[k] = cloneAttempt(v)
	}
	for k, v := range s.offers {
		c := *v
		cp.offers[k] = &c
	}
	return cp
}

func (s *memStore) restore(saved *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = saved.users
	s.candidates = saved.candidates
	s.enrollments = saved.enrollments
	s.progress = saved.progress
	s.attempts = saved.attempts
	s.offers = saved.offers
}

var errBrokenNotifier = errors.New("notifier unavailable")
