// Package lifecycle は候補者の選考ライフサイクル (状態遷移・採点・オファー発行) を統括します。
package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/assessment"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/course"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/offer"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/user"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/vacancy"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Dependencies は Service が利用する永続化・通知の実装です。
type Dependencies struct {
	Candidates  candidate.Repository
	Users       user.Repository
	Vacancies   vacancy.Repository
	Courses     course.Repository
	Assessments assessment.Repository
	Offers      offer.Repository
	Notifier    notification.Notifier
	Tx          TransactionManager
	Clock       Clock
	Logger      *slog.Logger
}

// Service は選考ライフサイクルのユースケースをまとめます。
// すべての状態遷移は 1 つの読み書きトランザクション内で行い、通知はコミット後に送ります。
type Service struct {
	candidates  candidate.Repository
	users       user.Repository
	vacancies   vacancy.Repository
	courses     course.Repository
	assessments assessment.Repository
	offers      offer.Repository
	notifier    notification.Notifier
	tracker     *course.Tracker
	tx          TransactionManager
	clock       Clock
	logger      *slog.Logger
}

// UseCase は選考ライフサイクルの公開インターフェースです。
type UseCase interface {
	AssignVacancy(ctx context.Context, in AssignVacancyInput) (*AssignVacancyResult, error)
	CompleteLessons(ctx context.Context, in CompleteLessonsInput) (*CompleteLessonsResult, error)
	StartAttempt(ctx context.Context, in StartAttemptInput) (*assessment.Attempt, error)
	SubmitAnswers(ctx context.Context, in SubmitAnswersInput) (*ScoreResult, error)
	ScoreTestAttempt(ctx context.Context, in ScoreTestAttemptInput) (*ScoreResult, error)
	IssueOffer(ctx context.Context, in IssueOfferInput) (*offer.Offer, error)
	CreateOfferTemplate(ctx context.Context, in CreateOfferTemplateInput) (*offer.Offer, error)
	RespondToOffer(ctx context.Context, in RespondToOfferInput) (*RespondToOfferResult, error)
	GetCandidate(ctx context.Context, in GetCandidateInput) (*CandidateView, error)
}

var _ UseCase = (*Service)(nil)

// NewService は Service を生成します。
func NewService(deps Dependencies) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = realClock{}
	}
	tx := deps.Tx
	if tx == nil {
		tx = noopTransactionManager{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notification.NewFanout()
	}

	return &Service{
		candidates:  deps.Candidates,
		users:       deps.Users,
		vacancies:   deps.Vacancies,
		courses:     deps.Courses,
		assessments: deps.Assessments,
		offers:      deps.Offers,
		notifier:    notifier,
		tracker:     course.NewTracker(deps.Courses, clock),
		tx:          tx,
		clock:       clock,
		logger:      logger,
	}
}

// apply は候補者の状態を遷移させて記録します。
func (s *Service) apply(ctx context.Context, c *candidate.Candidate, event candidate.Event) error {
	tr, err := c.Apply(event, s.clock.Now())
	if err != nil {
		return err
	}
	if tr.Changed() {
		s.logger.InfoContext(ctx, "candidate status changed",
			"candidate_id", c.ID,
			"event", string(tr.Event),
			"from", string(tr.From),
			"to", string(tr.To),
		)
	}
	return nil
}

// applyIfAllowed は遷移表で許可されている場合のみ遷移させ、適用したかを返します。
func (s *Service) applyIfAllowed(ctx context.Context, c *candidate.Candidate, event candidate.Event) (bool, error) {
	if !candidate.CanApply(c.Status, event) {
		return false, nil
	}
	if err := s.apply(ctx, c, event); err != nil {
		return false, err
	}
	return true, nil
}
