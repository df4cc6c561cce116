package candidate

import (
	"fmt"
	"strings"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
)

// Status は選考段階です。
type Status string

const (
	StatusRegistered       Status = "REGISTERED"
	StatusProfileCompleted Status = "PROFILE_COMPLETED"
	StatusInCourse         Status = "IN_COURSE"
	StatusTestCompleted    Status = "TEST_COMPLETED"
	StatusOfferSent        Status = "OFFER_SENT"
	StatusOfferAccepted    Status = "OFFER_ACCEPTED"
	StatusHired            Status = "HIRED"
	StatusInTalentPool     Status = "IN_TALENT_POOL"
	StatusRejected         Status = "REJECTED"
)

// 二系統 (研修生/不動産エージェント) で使われていた旧名称の対応表です。
var legacyStatuses = map[string]Status{
	"COURSE_IN_PROGRESS": StatusInCourse,
	"OFFER_TRAINEE":      StatusOfferSent,
	"OFFER_REALTOR":      StatusOfferSent,
	"HIRED_TRAINEE":      StatusHired,
	"HIRED_REALTOR":      StatusHired,
	"OFFER_DECLINED":     StatusInTalentPool,
}

// ParseStatus は状態名を解釈します。旧名称も受け付けます。
func ParseStatus(raw string) (Status, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if legacy, ok := legacyStatuses[name]; ok {
		return legacy, nil
	}
	s := Status(name)
	if _, ok := transitions[s]; !ok {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// IsTerminal は以降の遷移がない状態かを返します。
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// HasOfferInFlight はオファー発行から採用までの段階かを返します。
func (s Status) HasOfferInFlight() bool {
	return s == StatusOfferSent || s == StatusOfferAccepted || s == StatusHired
}

// Event は状態遷移を引き起こす出来事です。
type Event string

const (
	EventVacancyAssigned  Event = "vacancy_assigned"
	EventProfileCompleted Event = "profile_completed"
	EventCourseStarted    Event = "course_started"
	EventCourseCompleted  Event = "course_completed"
	EventTestPassed       Event = "test_passed"
	EventTestFailed       Event = "test_failed"
	EventOfferSent        Event = "offer_sent"
	EventOfferAccepted    Event = "offer_accepted"
	EventOfferDeclined    Event = "offer_declined"
	EventHired            Event = "hired"
)

// Transition は適用された状態遷移の記録です。
type Transition struct {
	From  Status
	To    Status
	Event Event
}

// Changed は状態が変化したかを返します。
func (t Transition) Changed() bool {
	return t.From != t.To
}

// transitions は (状態, イベント) から遷移先を引く表です。
// 前進のみを許可し、例外は辞退による人材プールへの移動と、求人変更による再登録です。
var transitions = map[Status]map[Event]Status{
	StatusRegistered: {
		EventVacancyAssigned:  StatusRegistered,
		EventProfileCompleted: StatusProfileCompleted,
		EventCourseStarted:    StatusInCourse,
		EventOfferSent:        StatusOfferSent,
	},
	StatusProfileCompleted: {
		EventVacancyAssigned: StatusRegistered,
		EventCourseStarted:   StatusInCourse,
		EventOfferSent:       StatusOfferSent,
	},
	StatusInCourse: {
		EventVacancyAssigned: StatusRegistered,
		EventCourseCompleted: StatusInCourse,
		EventTestPassed:      StatusTestCompleted,
		EventTestFailed:      StatusRejected,
		EventOfferSent:       StatusOfferSent,
	},
	StatusTestCompleted: {
		EventVacancyAssigned: StatusRegistered,
		EventCourseCompleted: StatusTestCompleted,
		EventTestPassed:      StatusTestCompleted,
		EventTestFailed:      StatusTestCompleted,
		EventOfferSent:       StatusOfferSent,
	},
	StatusOfferSent: {
		EventTestPassed:    StatusOfferSent,
		EventTestFailed:    StatusOfferSent,
		EventOfferSent:     StatusOfferSent,
		EventOfferAccepted: StatusOfferAccepted,
		EventOfferDeclined: StatusInTalentPool,
	},
	StatusOfferAccepted: {
		EventHired: StatusHired,
	},
	StatusHired: {},
	StatusInTalentPool: {
		EventVacancyAssigned: StatusRegistered,
		EventTestPassed:      StatusInTalentPool,
		EventTestFailed:      StatusInTalentPool,
		EventOfferSent:       StatusOfferSent,
	},
	StatusRejected: {
		EventVacancyAssigned: StatusRegistered,
		EventTestPassed:      StatusTestCompleted,
		EventTestFailed:      StatusRejected,
	},
}

// Next は遷移先を返します。表にない組み合わせは ErrInvalidTransition です。
func Next(from Status, event Event) (Status, error) {
	to, ok := transitions[from][event]
	if !ok {
		return "", shared.Wrap("candidate", "Transition", shared.ErrInvalidState,
			fmt.Sprintf("%s is not allowed in status %s", event, from), ErrInvalidTransition)
	}
	return to, nil
}

// CanApply は遷移が許可されているかを返します。
func CanApply(from Status, event Event) bool {
	_, ok := transitions[from][event]
	return ok
}
