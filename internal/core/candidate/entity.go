package candidate

import "time"

// OfferStatus は候補者から見たオファーの状況です。
type OfferStatus string

const (
	OfferNone     OfferStatus = "NONE"
	OfferSent     OfferStatus = "SENT"
	OfferAccepted OfferStatus = "ACCEPTED"
	OfferDeclined OfferStatus = "DECLINED"
)

// Candidate は選考中の候補者です。
type Candidate struct {
	ID          string
	UserID      string
	Status      Status
	OfferStatus OfferStatus
	VacancyID   *string
	MentorID    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Apply はイベントに従って状態を遷移させます。遷移表にない組み合わせはエラーで、状態は変わりません。
func (c *Candidate) Apply(event Event, now time.Time) (Transition, error) {
	next, err := Next(c.Status, event)
	if err != nil {
		return Transition{}, err
	}

	tr := Transition{From: c.Status, To: next, Event: event}
	c.Status = next
	c.UpdatedAt = now
	return tr, nil
}

// HasMentor は指定ユーザーが担当メンターかを返します。
func (c *Candidate) HasMentor(userID string) bool {
	return c.MentorID != nil && userID != "" && *c.MentorID == userID
}
