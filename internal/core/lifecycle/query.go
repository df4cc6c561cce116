package lifecycle

import (
	"context"
	"errors"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/assessment"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/course"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/offer"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

// GetCandidateInput は候補者参照時の入力です。
type GetCandidateInput struct {
	Caller      shared.Caller
	CandidateID string
}

// CandidateView は候補者の選考状況のスナップショットです。
type CandidateView struct {
	Candidate   *candidate.Candidate
	Enrollments []*course.Enrollment
	Attempts    []*assessment.Attempt
	// ActiveOffer は回答待ちのオファーがない場合 nil です。
	ActiveOffer *offer.Offer
}

// GetCandidate は候補者と受講・受験・オファーの状況を返します。
func (s *Service) GetCandidate(ctx context.Context, in GetCandidateInput) (*CandidateView, error) {
	if err := in.Caller.Validate(); err != nil {
		return nil, err
	}
	candidateID, err := shared.ParseID("candidate", "candidate id", in.CandidateID)
	if err != nil {
		return nil, err
	}

	var view CandidateView
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		c, err := s.candidates.FindByID(txCtx, candidateID)
		if err != nil {
			return err
		}
		if err := requireViewer(in.Caller, c); err != nil {
			return err
		}
		view.Candidate = c

		if view.Enrollments, err = s.courses.ListEnrollmentsByCandidate(txCtx, c.ID); err != nil {
			return err
		}
		if view.Attempts, err = s.assessments.ListAttemptsByCandidate(txCtx, c.ID); err != nil {
			return err
		}

		active, err := s.offers.FindActiveByCandidate(txCtx, c.ID)
		switch {
		case err == nil:
			view.ActiveOffer = active
		case !errors.Is(err, offer.ErrOfferNotFound):
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &view, nil
}
