package assessment

import "time"

// QuestionType は設問の種類です。
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
	QuestionOpenAnswer   QuestionType = "open_answer"
)

// IsAutoGraded は自動採点される設問かを返します。
func (t QuestionType) IsAutoGraded() bool {
	return t == QuestionSingleChoice || t == QuestionMultiChoice
}

// IsValid は既知の設問種別かを返します。
func (t QuestionType) IsValid() bool {
	return t.IsAutoGraded() || t == QuestionOpenAnswer
}

// Question はテストの設問です。
type Question struct {
	ID             string
	Type           QuestionType
	Points         int
	CorrectOptions []string
	Position       int
}

// Test はコースに紐づく試験です。
type Test struct {
	ID           string
	CourseID     string
	Title        string
	PassingScore int
	IsActive     bool
	Questions    []Question
}

// Question は ID で設問を検索します。
func (t *Test) Question(id string) (Question, bool) {
	for _, q := range t.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// AttemptStatus は受験状態です。
type AttemptStatus string

const (
	AttemptPending    AttemptStatus = "pending"
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// IsOpen は結果が確定していない受験かを返します。
func (s AttemptStatus) IsOpen() bool {
	return s == AttemptPending || s == AttemptInProgress
}

// Answer は設問への回答です。Points は自動採点または採点者の入力で埋まり、未採点の間は nil です。
type Answer struct {
	QuestionID string
	Values     []string
	Points     *int
}

// Attempt は候補者の受験記録です。
type Attempt struct {
	ID                  string
	CandidateID         string
	TestID              string
	Status              AttemptStatus
	Answers             []Answer
	Score               *int
	ManualReviewComment *string
	NeedsReview         bool
	StartedAt           *time.Time
	CompletedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Start は未着手の受験を受験中にします。受験中・完了済みの場合は何もしません。
func (a *Attempt) Start(now time.Time) {
	if a.Status != AttemptPending {
		return
	}
	started := now
	a.Status = AttemptInProgress
	a.StartedAt = &started
	a.UpdatedAt = now
}

// Complete は採点結果を確定します。再採点時は得点を上書きします。
func (a *Attempt) Complete(score int, now time.Time) {
	s := score
	a.Score = &s
	a.Status = AttemptCompleted
	if a.CompletedAt == nil {
		completed := now
		a.CompletedAt = &completed
	}
	a.UpdatedAt = now
}

// answer は設問 ID に対応する回答を返します。
func (a *Attempt) answer(questionID string) *Answer {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return &a.Answers[i]
		}
	}
	return nil
}
