package offer

import (
	"strings"
	"time"
)

// NewPersonal は候補者宛てのオファーを生成します。
// テンプレートがあればその本文を、なければ求人の既定本文を使います。
func NewPersonal(candidateID string, template *Offer, defaultContent string, testID *string, now time.Time) (*Offer, error) {
	content := strings.TrimSpace(defaultContent)
	if template != nil {
		content = strings.TrimSpace(template.Content)
		if testID == nil {
			testID = template.TestID
		}
	}
	if content == "" {
		return nil, ErrInvalidContent
	}

	cid := candidateID
	return &Offer{
		Type:        TypePersonal,
		Status:      StatusSent,
		CandidateID: &cid,
		TestID:      cloneString(testID),
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewGeneral は求人に紐づく汎用オファー (テンプレート) を生成します。
func NewGeneral(vacancyID string, testID *string, content string, now time.Time) (*Offer, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidContent
	}

	vid := vacancyID
	return &Offer{
		Type:      TypeGeneral,
		Status:    StatusSent,
		VacancyID: &vid,
		TestID:    cloneString(testID),
		Content:   trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
