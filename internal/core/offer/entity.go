package offer

import "time"

// Type はオファーの種類です。
type Type string

const (
	// TypePersonal は特定の候補者宛てのオファーです。
	TypePersonal Type = "personal"
	// TypeGeneral は求人に紐づくテンプレートとしてのオファーです。
	TypeGeneral Type = "general"
)

// Status はオファーの状態です。
type Status string

const (
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// IsTerminal は回答済みの状態かを返します。
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusDeclined
}

// Decision は候補者の回答です。
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// IsValid は既知の回答かを返します。
func (d Decision) IsValid() bool {
	return d == DecisionAccept || d == DecisionDecline
}

// Offer は内定オファーです。個人宛ては CandidateID、汎用は VacancyID のみを持ちます。
type Offer struct {
	ID          string
	Type        Type
	Status      Status
	CandidateID *string
	VacancyID   *string
	TestID      *string
	Content     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RespondedAt *time.Time
}

// IsFor は指定候補者宛てのオファーかを返します。
func (o *Offer) IsFor(candidateID string) bool {
	return o.Type == TypePersonal && o.CandidateID != nil && *o.CandidateID == candidateID
}

// Respond は候補者の回答を反映します。回答済みのオファーは変更しません。
func (o *Offer) Respond(decision Decision, now time.Time) error {
	if !decision.IsValid() {
		return ErrInvalidDecision
	}
	if o.Type != TypePersonal {
		return ErrNotRespondable
	}
	if o.Status != StatusSent {
		return ErrOfferAlreadyResponded
	}

	responded := now
	if decision == DecisionAccept {
		o.Status = StatusAccepted
	} else {
		o.Status = StatusDeclined
	}
	o.RespondedAt = &responded
	o.UpdatedAt = now
	return nil
}
