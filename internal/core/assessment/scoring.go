package assessment

import (
	"sort"
	"strings"
)

// Result は採点結果です。
type Result struct {
	Awarded  int
	Possible int
	Score    int
	Passed   bool
	// Scorable が false の場合は採点者の入力待ちで、Score と Passed は評価されていません。
	Scorable bool
}

// Score は回答から得点を算出します。同じ回答と採点者得点に対しては常に同じ結果を返します。
//
// 自動採点の設問は正解集合と完全一致した場合のみ満点、それ以外は 0 点です。
// 記述式の設問は採点者が与えた得点 (未採点は 0 点) を加算します。
// 記述式のみのテストは、すべての回答が採点されるまで Scorable=false を返します。
func Score(test *Test, answers []Answer) (Result, error) {
	byQuestion, err := indexAnswers(test, answers)
	if err != nil {
		return Result{}, err
	}

	var (
		result     Result
		autoGraded int
		unreviewed int
	)

	for _, q := range test.Questions {
		result.Possible += q.Points
		a, answered := byQuestion[q.ID]

		if q.Type.IsAutoGraded() {
			autoGraded++
			if answered && sameOptions(q.CorrectOptions, a.Values) {
				result.Awarded += q.Points
			}
			continue
		}

		if !answered || a.Points == nil {
			unreviewed++
			continue
		}
		if *a.Points < 0 || *a.Points > q.Points {
			return Result{}, ErrPointsOutOfRange
		}
		result.Awarded += *a.Points
	}

	if autoGraded == 0 && unreviewed > 0 {
		return result, nil
	}

	result.Score = percentage(result.Awarded, result.Possible)
	result.Passed = result.Score >= test.PassingScore
	result.Scorable = true
	return result, nil
}

// Grade は受験記録の自動採点設問に得点を記入し、全体を採点し直します。
// 前回の得点は参照せず、常に回答から再計算します。
func Grade(test *Test, attempt *Attempt) (Result, error) {
	for i := range attempt.Answers {
		a := &attempt.Answers[i]
		q, ok := test.Question(a.QuestionID)
		if !ok {
			return Result{}, ErrUnknownQuestion
		}
		if !q.Type.IsAutoGraded() {
			continue
		}
		awarded := 0
		if sameOptions(q.CorrectOptions, a.Values) {
			awarded = q.Points
		}
		a.Points = &awarded
	}
	return Score(test, attempt.Answers)
}

// ApplyReviewerAwards は記述式設問に採点者の得点を反映します。
// いずれかの得点が不正な場合は何も反映しません。
func ApplyReviewerAwards(test *Test, attempt *Attempt, awards map[string]int) error {
	for questionID, points := range awards {
		q, ok := test.Question(questionID)
		if !ok {
			return ErrUnknownQuestion
		}
		if q.Type.IsAutoGraded() {
			return ErrNotOpenAnswer
		}
		if points < 0 || points > q.Points {
			return ErrPointsOutOfRange
		}
	}

	for questionID, points := range awards {
		p := points
		if existing := attempt.answer(questionID); existing != nil {
			existing.Points = &p
			continue
		}
		attempt.Answers = append(attempt.Answers, Answer{QuestionID: questionID, Points: &p})
	}
	return nil
}

// SetAnswers は提出された回答を検証して受験記録に設定します。提出側の得点は無視します。
// 採点者が記述式の設問に得点を入れた後は、その得点を失わないよう再提出を受け付けません。
func SetAnswers(test *Test, attempt *Attempt, answers []Answer) error {
	if _, err := indexAnswers(test, answers); err != nil {
		return err
	}
	if hasReviewerAward(test, attempt) {
		return ErrAlreadyReviewed
	}

	normalized := make([]Answer, 0, len(answers))
	for _, a := range answers {
		normalized = append(normalized, Answer{QuestionID: a.QuestionID, Values: normalizeOptions(a.Values)})
	}
	attempt.Answers = normalized
	return nil
}

func hasReviewerAward(test *Test, attempt *Attempt) bool {
	for _, a := range attempt.Answers {
		q, ok := test.Question(a.QuestionID)
		if ok && !q.Type.IsAutoGraded() && a.Points != nil {
			return true
		}
	}
	return false
}

func indexAnswers(test *Test, answers []Answer) (map[string]Answer, error) {
	byQuestion := make(map[string]Answer, len(answers))
	for _, a := range answers {
		if _, ok := test.Question(a.QuestionID); !ok {
			return nil, ErrUnknownQuestion
		}
		if _, dup := byQuestion[a.QuestionID]; dup {
			return nil, ErrDuplicateAnswer
		}
		byQuestion[a.QuestionID] = a
	}
	return byQuestion, nil
}

func percentage(awarded, possible int) int {
	if possible <= 0 || awarded <= 0 {
		return 0
	}
	score := (200*awarded + possible) / (2 * possible)
	if score > 100 {
		return 100
	}
	return score
}

func sameOptions(correct, submitted []string) bool {
	want := normalizeOptions(correct)
	got := normalizeOptions(submitted)
	if len(want) == 0 || len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

func normalizeOptions(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
