package vacancy

import (
	"fmt"
	"strings"
	"time"
)

// Vacancy は候補者が応募する求人です。
type Vacancy struct {
	ID                  string
	Title               string
	StartCourseID       *string
	DefaultOfferContent string
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasStartCourse は開始コースが設定されているかを返します。
func (v *Vacancy) HasStartCourse() bool {
	return v.StartCourseID != nil && *v.StartCourseID != ""
}

// OfferContent はテンプレートがない場合に使うオファー本文を返します。
// 既定本文が空の求人でも空文字列は返しません。
func (v *Vacancy) OfferContent() string {
	if content := strings.TrimSpace(v.DefaultOfferContent); content != "" {
		return content
	}
	if title := strings.TrimSpace(v.Title); title != "" {
		return fmt.Sprintf("We are pleased to offer you the position of %s.", title)
	}
	return "We are pleased to offer you a position with us."
}
