package handler

import (
	"context"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/lifecycle"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/offer"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// LifecycleGrpcHandler は LifecycleService の gRPC 実装です。
type LifecycleGrpcHandler struct {
	svc lifecycle.UseCase
}

var _ LifecycleServiceServer = (*LifecycleGrpcHandler)(nil)

// NewLifecycleGrpcHandler は LifecycleGrpcHandler を生成します。
func NewLifecycleGrpcHandler(svc lifecycle.UseCase) *LifecycleGrpcHandler {
	return &LifecycleGrpcHandler{svc: svc}
}

// AssignVacancy は候補者に求人を割り当てます。
func (h *LifecycleGrpcHandler) AssignVacancy(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, caller, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.AssignVacancy(ctx, lifecycle.AssignVacancyInput{
		Caller:      caller,
		CandidateID: stringField(fields, "candidate_id"),
		VacancyID:   stringField(fields, "vacancy_id"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{
		"candidate":           candidateValue(result.Candidate),
		"enrollment":          enrollmentValue(result.Enrollment),
		"removed_enrollments": result.RemovedEnrollments,
		"removed_attempts":    result.RemovedAttempts,
	})
}

// CompleteLessons はレッスンを完了として記録します。
func (h *LifecycleGrpcHandler) CompleteLessons(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, caller, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	lessonIDs, err := stringListField(fields, "lesson_ids")
	if err != nil {
		return nil, err
	}

	result, err := h.svc.CompleteLessons(ctx, lifecycle.CompleteLessonsInput{
		Caller:       caller,
		EnrollmentID: stringField(fields, "enrollment_id"),
		LessonIDs:    lessonIDs,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{
		"enrollment":       enrollmentValue(result.Enrollment),
		"course_completed": result.CourseCompleted,
		"pending_attempts": attemptsValue(result.PendingAttempts),
	})
}

// StartAttempt はテスト受験を開始します。
func (h *LifecycleGrpcHandler) StartAttempt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, caller, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	attempt, err := h.svc.StartAttempt(ctx, lifecycle.StartAttemptInput{
		Caller:      caller,
		CandidateID: stringField(fields, "candidate_id"),
		TestID:      stringField(fields, "test_id"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"attempt": attemptValue(attempt)})
}

// SubmitAnswers は回答を提出して採点します。
func (h *LifecycleGrpcHandler) SubmitAnswers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, caller, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	answers, err := answersField(fields, "answers")
	if err != nil {
		return nil, err
	}

	result, err := h.svc.SubmitAnswers(ctx, lifecycle.SubmitAnswersInput{
		Caller:    caller,
		AttemptID: stringField(fields, "attempt_id"),
		Answers:   answers,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(scoreResultValue(result))
}

// ScoreTestAttempt は採点者の配点を反映して再採点します。
func (h *LifecycleGrpcHandler) ScoreTestAttempt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, caller, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	awards, err := awardsField(fields, "reviewer_awards")
	if err != nil {
		return nil, err
	}

	result, err := h.svc.ScoreTestAttempt(ctx, lifecycle.ScoreTestAttemptInput{
		Caller:         caller,
		AttemptID:      stringField(fields, "attempt_id"),
		ReviewerAwards: awards,
		Comment:        optionalStringField(fields, "comment"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(scoreResultValue(result))
}

// IssueOffer は候補者へ個別オファーを発行します。
func (h *LifecycleGrpcHandler) IssueOffer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, caller, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	issued, err := h.svc.IssueOffer(ctx, lifecycle.IssueOfferInput{
		Caller:      caller,
		CandidateID: stringField(fields, "candidate_id"),
		TestID:      optionalStringField(fields, "test_id"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"offer": offerValue(issued)})
}

// CreateOfferTemplate は求人ごとのオファー文面を登録します。
func (h *LifecycleGrpcHandler) CreateOfferTemplate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, caller, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	created, err := h.svc.CreateOfferTemplate(ctx, lifecycle.CreateOfferTemplateInput{
		Caller:    caller,
		VacancyID: stringField(fields, "vacancy_id"),
		TestID:    optionalStringField(fields, "test_id"),
		Content:   stringField(fields, "content"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{"offer": offerValue(created)})
}

// RespondToOffer は候補者のオファー回答を記録します。
func (h *LifecycleGrpcHandler) RespondToOffer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, caller, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.RespondToOffer(ctx, lifecycle.RespondToOfferInput{
		Caller:   caller,
		OfferID:  stringField(fields, "offer_id"),
		Decision: offer.Decision(stringField(fields, "decision")),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{
		"offer":     offerValue(result.Offer),
		"candidate": candidateValue(result.Candidate),
	})
}

// GetCandidate は候補者の進捗をまとめて取得します。
func (h *LifecycleGrpcHandler) GetCandidate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, caller, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	view, err := h.svc.GetCandidate(ctx, lifecycle.GetCandidateInput{
		Caller:      caller,
		CandidateID: stringField(fields, "candidate_id"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{
		"candidate":    candidateValue(view.Candidate),
		"enrollments":  enrollmentsValue(view.Enrollments),
		"attempts":     attemptsValue(view.Attempts),
		"active_offer": offerValue(view.ActiveOffer),
	})
}

func prepare(ctx context.Context, req *structpb.Struct) (map[string]*structpb.Value, shared.Caller, error) {
	fields, err := requestFields(req)
	if err != nil {
		return nil, shared.Caller{}, err
	}
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, shared.Caller{}, status.Error(codes.Unauthenticated, err.Error())
	}
	return fields, caller, nil
}

func scoreResultValue(result *lifecycle.ScoreResult) map[string]any {
	return map[string]any{
		"attempt":         attemptValue(result.Attempt),
		"result":          resultValue(result.Result),
		"awaiting_review": result.AwaitingReview,
		"offer":           offerValue(result.Offer),
	}
}
