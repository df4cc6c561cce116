package lifecycle

import (
	"context"
	"errors"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/offer"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

// IssueOfferInput は人事によるオファー発行時の入力です。
type IssueOfferInput struct {
	Caller      shared.Caller
	CandidateID string
	TestID      *string
}

// CreateOfferTemplateInput は求人に紐づく汎用オファー作成時の入力です。
type CreateOfferTemplateInput struct {
	Caller    shared.Caller
	VacancyID string
	TestID    *string
	Content   string
}

// RespondToOfferInput はオファーへの回答時の入力です。
type RespondToOfferInput struct {
	Caller   shared.Caller
	OfferID  string
	Decision offer.Decision
}

// RespondToOfferResult はオファー回答の結果です。
type RespondToOfferResult struct {
	Offer     *offer.Offer
	Candidate *candidate.Candidate
}

// IssueOffer は人事の判断で候補者にオファーを発行します。回答待ちのオファーがある場合は ErrActiveOfferExists です。
func (s *Service) IssueOffer(ctx context.Context, in IssueOfferInput) (*offer.Offer, error) {
	if err := requireStaff(in.Caller); err != nil {
		return nil, err
	}
	candidateID, err := shared.ParseID("candidate", "candidate id", in.CandidateID)
	if err != nil {
		return nil, err
	}
	testID, err := parseOptionalID("assessment", "test id", in.TestID)
	if err != nil {
		return nil, err
	}

	var (
		issued *offer.Offer
		box    outbox
	)

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		c, err := s.candidates.LockByID(txCtx, candidateID)
		if err != nil {
			return err
		}

		if _, err := s.offers.FindActiveByCandidate(txCtx, c.ID); err == nil {
			return offer.ErrActiveOfferExists
		} else if !errors.Is(err, offer.ErrOfferNotFound) {
			return err
		}
		if _, err := candidate.Next(c.Status, candidate.EventOfferSent); err != nil {
			return err
		}
		if c.VacancyID == nil {
			return candidate.ErrNoVacancy
		}

		o, created, err := s.issueOfferIfEligible(txCtx, c, testID, &box)
		if err != nil {
			return err
		}
		if !created {
			return offer.ErrActiveOfferExists
		}
		if _, err := s.candidates.Update(txCtx, c); err != nil {
			return err
		}
		issued = o
		return nil
	}); err != nil {
		return nil, err
	}

	s.dispatch(ctx, &box)
	return issued, nil
}

// CreateOfferTemplate は求人 (と任意のテスト) に紐づく汎用オファーを作成します。
func (s *Service) CreateOfferTemplate(ctx context.Context, in CreateOfferTemplateInput) (*offer.Offer, error) {
	if err := requireStaff(in.Caller); err != nil {
		return nil, err
	}
	vacancyID, err := shared.ParseID("vacancy", "vacancy id", in.VacancyID)
	if err != nil {
		return nil, err
	}
	testID, err := parseOptionalID("assessment", "test id", in.TestID)
	if err != nil {
		return nil, err
	}

	template, err := offer.NewGeneral(vacancyID, testID, in.Content, s.clock.Now())
	if err != nil {
		return nil, err
	}

	var created *offer.Offer
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.vacancies.FindByID(txCtx, vacancyID); err != nil {
			return err
		}
		if testID != nil {
			if _, err := s.assessments.FindTest(txCtx, *testID); err != nil {
				return err
			}
		}

		created, err = s.offers.Create(txCtx, template)
		return err
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "offer template created", "offer_id", created.ID, "vacancy_id", vacancyID)
	return created, nil
}

// RespondToOffer はオファーへの回答を反映します。承諾で採用 (役割を employee に昇格)、辞退で人材プールへ移ります。
// 回答済みのオファーへの回答は ErrOfferAlreadyResponded で、何も変更しません。
func (s *Service) RespondToOffer(ctx context.Context, in RespondToOfferInput) (*RespondToOfferResult, error) {
	if err := in.Caller.Validate(); err != nil {
		return nil, err
	}
	offerID, err := shared.ParseID("offer", "offer id", in.OfferID)
	if err != nil {
		return nil, err
	}
	if !in.Decision.IsValid() {
		return nil, offer.ErrInvalidDecision
	}

	var (
		result RespondToOfferResult
		box    outbox
	)

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		ref, err := s.offers.FindByID(txCtx, offerID)
		if err != nil {
			return err
		}
		if ref.Type != offer.TypePersonal || ref.CandidateID == nil {
			return offer.ErrNotRespondable
		}

		c, err := s.candidates.LockByID(txCtx, *ref.CandidateID)
		if err != nil {
			return err
		}
		if !in.Caller.Is(c.UserID) {
			return offer.ErrNotOfferCandidate
		}

		o, err := s.offers.LockByID(txCtx, offerID)
		if err != nil {
			return err
		}
		if !o.IsFor(c.ID) {
			return offer.ErrNotOfferCandidate
		}

		now := s.clock.Now()
		if err := o.Respond(in.Decision, now); err != nil {
			return err
		}

		switch in.Decision {
		case offer.DecisionAccept:
			if err := s.apply(txCtx, c, candidate.EventOfferAccepted); err != nil {
				return err
			}
			if err := s.apply(txCtx, c, candidate.EventHired); err != nil {
				return err
			}
			c.OfferStatus = candidate.OfferAccepted
		default:
			if err := s.apply(txCtx, c, candidate.EventOfferDeclined); err != nil {
				return err
			}
			c.OfferStatus = candidate.OfferDeclined
		}

		responded, err := s.offers.MarkResponded(txCtx, o.ID, o.Status, now)
		if err != nil {
			return err
		}
		if in.Decision == offer.DecisionAccept {
			if err := s.users.UpdateRole(txCtx, c.UserID, shared.RoleEmployee, now); err != nil {
				return err
			}
		}

		updated, err := s.candidates.Update(txCtx, c)
		if err != nil {
			return err
		}
		result.Offer = responded
		result.Candidate = updated

		if in.Decision == offer.DecisionAccept {
			box.toUser(c.UserID, "Welcome aboard", "You accepted the offer. Your account now has employee access.", notification.TypeSuccess)
			box.toStaff("Offer accepted", "A candidate accepted their offer and has been hired.", notification.TypeSuccess)
		} else {
			box.toUser(c.UserID, "Offer declined", "You declined the offer. You remain in our talent pool.", notification.TypeInfo)
			box.toStaff("Offer declined", "A candidate declined their offer and moved to the talent pool.", notification.TypeWarning)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.dispatch(ctx, &box)
	return &result, nil
}

// issueOfferIfEligible は回答待ちのオファーがなければ発行し、(オファー, 新規発行したか) を返します。
// 既にある場合はそれを返すだけで何も変更しません。候補者の永続化は呼び出し元が行います。
func (s *Service) issueOfferIfEligible(ctx context.Context, c *candidate.Candidate, testID *string, box *outbox) (*offer.Offer, bool, error) {
	existing, err := s.offers.FindActiveByCandidate(ctx, c.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, offer.ErrOfferNotFound) {
		return nil, false, err
	}

	if c.VacancyID == nil {
		s.logger.InfoContext(ctx, "offer not issued: candidate has no vacancy", "candidate_id", c.ID)
		return nil, false, nil
	}
	v, err := s.vacancies.FindByID(ctx, *c.VacancyID)
	if err != nil {
		return nil, false, err
	}

	template, err := s.offers.FindTemplate(ctx, v.ID, testID)
	if err != nil {
		if !errors.Is(err, offer.ErrOfferNotFound) {
			return nil, false, err
		}
		template = nil
	}

	now := s.clock.Now()
	draft, err := offer.NewPersonal(c.ID, template, v.OfferContent(), testID, now)
	if err != nil {
		return nil, false, err
	}

	created, err := s.offers.Create(ctx, draft)
	if errors.Is(err, offer.ErrActiveOfferExists) {
		winner, findErr := s.offers.FindActiveByCandidate(ctx, c.ID)
		if findErr != nil {
			return nil, false, findErr
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := s.apply(ctx, c, candidate.EventOfferSent); err != nil {
		return nil, false, err
	}
	c.OfferStatus = candidate.OfferSent

	s.logger.InfoContext(ctx, "offer issued",
		"candidate_id", c.ID,
		"offer_id", created.ID,
		"from_template", template != nil,
	)
	box.toUser(c.UserID, "You have received an offer", "Congratulations! A new offer is waiting for your response.", notification.TypeSuccess)
	return created, true, nil
}

func parseOptionalID(domain, field string, raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := shared.ParseID(domain, field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
