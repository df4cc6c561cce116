package handler

import (
	"fmt"
	"math"
	"time"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/assessment"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/course"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/offer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// requestFields は google.protobuf.Struct のフィールドを返します。
func requestFields(req *structpb.Struct) (map[string]*structpb.Value, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	return req.GetFields(), nil
}

func stringField(fields map[string]*structpb.Value, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func optionalStringField(fields map[string]*structpb.Value, key string) *string {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil
	}
	s := v.GetStringValue()
	return &s
}

func stringListField(fields map[string]*structpb.Value, key string) ([]string, error) {
	v, ok := fields[key]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, invalidArgument("%s must be a list of strings", key)
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		s, isString := item.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return nil, invalidArgument("%s must be a list of strings", key)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

func intValue(v *structpb.Value, key string) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, invalidArgument("%s must be an integer", key)
	}
	return int(n.NumberValue), nil
}

// answersField は [{question_id, values}] 形式の回答を解釈します。
func answersField(fields map[string]*structpb.Value, key string) ([]assessment.Answer, error) {
	v, ok := fields[key]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, invalidArgument("%s must be a list", key)
	}
	answers := make([]assessment.Answer, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		obj := item.GetStructValue()
		if obj == nil {
			return nil, invalidArgument("%s entries must be objects", key)
		}
		values, err := stringListField(obj.GetFields(), "values")
		if err != nil {
			return nil, err
		}
		answers = append(answers, assessment.Answer{
			QuestionID: stringField(obj.GetFields(), "question_id"),
			Values:     values,
		})
	}
	return answers, nil
}

// awardsField は {question_id: points} 形式の採点を解釈します。
func awardsField(fields map[string]*structpb.Value, key string) (map[string]int, error) {
	v, ok := fields[key]
	if !ok {
		return nil, nil
	}
	obj := v.GetStructValue()
	if obj == nil {
		return nil, invalidArgument("%s must be an object", key)
	}
	awards := make(map[string]int, len(obj.GetFields()))
	for questionID, raw := range obj.GetFields() {
		points, err := intValue(raw, key+"."+questionID)
		if err != nil {
			return nil, err
		}
		awards[questionID] = points
	}
	return awards, nil
}

func invalidArgument(format string, args ...any) error {
	return status.Error(codes.InvalidArgument, fmt.Sprintf(format, args...))
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func timePtrValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeValue(*t)
}

func stringPtrValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func intPtrValue(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func stringsValue(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func candidateValue(c *candidate.Candidate) any {
	if c == nil {
		return nil
	}
	return map[string]any{
		"id":           c.ID,
		"user_id":      c.UserID,
		"status":       string(c.Status),
		"offer_status": string(c.OfferStatus),
		"vacancy_id":   stringPtrValue(c.VacancyID),
		"mentor_id":    stringPtrValue(c.MentorID),
		"created_at":   timeValue(c.CreatedAt),
		"updated_at":   timeValue(c.UpdatedAt),
	}
}

func enrollmentValue(e *course.Enrollment) any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"id":           e.ID,
		"candidate_id": e.CandidateID,
		"course_id":    e.CourseID,
		"progress":     e.Progress,
		"started_at":   timeValue(e.StartedAt),
		"completed_at": timePtrValue(e.CompletedAt),
		"updated_at":   timeValue(e.UpdatedAt),
	}
}

func enrollmentsValue(list []*course.Enrollment) []any {
	out := make([]any, 0, len(list))
	for _, e := range list {
		out = append(out, enrollmentValue(e))
	}
	return out
}

func attemptValue(a *assessment.Attempt) any {
	if a == nil {
		return nil
	}
	answers := make([]any, 0, len(a.Answers))
	for _, ans := range a.Answers {
		answers = append(answers, map[string]any{
			"question_id": ans.QuestionID,
			"values":      stringsValue(ans.Values),
			"points":      intPtrValue(ans.Points),
		})
	}
	return map[string]any{
		"id":                    a.ID,
		"candidate_id":          a.CandidateID,
		"test_id":               a.TestID,
		"status":                string(a.Status),
		"answers":               answers,
		"score":                 intPtrValue(a.Score),
		"manual_review_comment": stringPtrValue(a.ManualReviewComment),
		"needs_review":          a.NeedsReview,
		"started_at":            timePtrValue(a.StartedAt),
		"completed_at":          timePtrValue(a.CompletedAt),
		"updated_at":            timeValue(a.UpdatedAt),
	}
}

func attemptsValue(list []*assessment.Attempt) []any {
	out := make([]any, 0, len(list))
	for _, a := range list {
		out = append(out, attemptValue(a))
	}
	return out
}

func resultValue(r assessment.Result) any {
	return map[string]any{
		"awarded":  r.Awarded,
		"possible": r.Possible,
		"score":    r.Score,
		"passed":   r.Passed,
		"scorable": r.Scorable,
	}
}

func offerValue(o *offer.Offer) any {
	if o == nil {
		return nil
	}
	return map[string]any{
		"id":           o.ID,
		"type":         string(o.Type),
		"status":       string(o.Status),
		"candidate_id": stringPtrValue(o.CandidateID),
		"vacancy_id":   stringPtrValue(o.VacancyID),
		"test_id":      stringPtrValue(o.TestID),
		"content":      o.Content,
		"created_at":   timeValue(o.CreatedAt),
		"updated_at":   timeValue(o.UpdatedAt),
		"responded_at": timePtrValue(o.RespondedAt),
	}
}
