package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/assessment"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	pgdb "github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/db/postgres"
)

const attemptColumns = `id, candidate_id, test_id, status, answers, score, manual_review_comment, needs_review,
               started_at, completed_at, created_at, updated_at`

// answerRecord は test_attempts.answers (JSONB) の 1 要素です。
type answerRecord struct {
	QuestionID string   `json:"question_id"`
	Values     []string `json:"values"`
	Points     *int     `json:"points,omitempty"`
}

// AssessmentRepository は PostgreSQL を利用したテスト・受験記録の実装です。
type AssessmentRepository struct {
	pool pgdb.Queryer
}

// NewAssessmentRepository は AssessmentRepository を生成します。
func NewAssessmentRepository(pool pgdb.Queryer) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// FindTest はテストを設問付きで取得します。
func (r *AssessmentRepository) FindTest(ctx context.Context, id string) (*assessment.Test, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var t assessment.Test
	if err := exec.QueryRow(ctx, `
        SELECT id, course_id, title, passing_score, is_active
          FROM tests
         WHERE id = $1
    `, id).Scan(&t.ID, &t.CourseID, &t.Title, &t.PassingScore, &t.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assessment.ErrTestNotFound
		}
		return nil, err
	}

	rows, err := exec.Query(ctx, `
        SELECT id, type, points, correct_options, position
          FROM questions
         WHERE test_id = $1
         ORDER BY position, id
    `, t.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t.Questions = make([]assessment.Question, 0)
	for rows.Next() {
		var (
			q   assessment.Question
			typ string
		)
		if err := rows.Scan(&q.ID, &typ, &q.Points, &q.CorrectOptions, &q.Position); err != nil {
			return nil, err
		}
		q.Type = assessment.QuestionType(typ)
		t.Questions = append(t.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListActiveTestIDsByCourse はコースに紐づく有効なテストの ID を返します。
func (r *AssessmentRepository) ListActiveTestIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id
          FROM tests
         WHERE course_id = $1 AND is_active
         ORDER BY id
    `, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// FindAttempt は ID で受験記録を取得します。
func (r *AssessmentRepository) FindAttempt(ctx context.Context, id string) (*assessment.Attempt, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+attemptColumns+`
          FROM test_attempts
         WHERE id = $1
    `, id)
	return scanAttempt(row)
}

// LockAttempt は受験記録の行をロックして取得します。
func (r *AssessmentRepository) LockAttempt(ctx context.Context, id string) (*assessment.Attempt, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+attemptColumns+`
          FROM test_attempts
         WHERE id = $1
           FOR UPDATE
    `, id)
	return scanAttempt(row)
}

// FindAttemptByCandidateAndTest は候補者とテストの組で受験記録を取得します。
func (r *AssessmentRepository) FindAttemptByCandidateAndTest(ctx context.Context, candidateID, testID string) (*assessment.Attempt, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+attemptColumns+`
          FROM test_attempts
         WHERE candidate_id = $1 AND test_id = $2
    `, candidateID, testID)
	return scanAttempt(row)
}

// ListAttemptsByCandidate は候補者の受験記録を作成日時順に返します。
func (r *AssessmentRepository) ListAttemptsByCandidate(ctx context.Context, candidateID string) ([]*assessment.Attempt, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+attemptColumns+`
          FROM test_attempts
         WHERE candidate_id = $1
         ORDER BY created_at, id
    `, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]*assessment.Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// CreateAttempt は受験記録を作成します。同じ候補者・テストの記録がある場合は ErrAttemptAlreadyExists です。
func (r *AssessmentRepository) CreateAttempt(ctx context.Context, a *assessment.Attempt) (*assessment.Attempt, error) {
	answers, err := encodeAnswers(a.Answers)
	if err != nil {
		return nil, err
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO test_attempts (candidate_id, test_id, status, answers, score, manual_review_comment, needs_review,
                                   started_at, completed_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+attemptColumns,
		a.CandidateID,
		a.TestID,
		string(a.Status),
		answers,
		nullableInt(a.Score),
		nullableString(a.ManualReviewComment),
		a.NeedsReview,
		nullableTimestamp(a.StartedAt),
		nullableTimestamp(a.CompletedAt),
		a.CreatedAt,
		a.UpdatedAt,
	)

	created, err := scanAttempt(row)
	if err != nil {
		return nil, translateAssessmentPgError(err)
	}
	return created, nil
}

// UpdateAttempt は受験記録の状態・回答・得点を更新します。
func (r *AssessmentRepository) UpdateAttempt(ctx context.Context, a *assessment.Attempt) (*assessment.Attempt, error) {
	answers, err := encodeAnswers(a.Answers)
	if err != nil {
		return nil, err
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE test_attempts
           SET status = $1,
               answers = $2,
               score = $3,
               manual_review_comment = $4,
               needs_review = $5,
               started_at = $6,
               completed_at = $7,
               updated_at = $8
         WHERE id = $9
        RETURNING `+attemptColumns,
		string(a.Status),
		answers,
		nullableInt(a.Score),
		nullableString(a.ManualReviewComment),
		a.NeedsReview,
		nullableTimestamp(a.StartedAt),
		nullableTimestamp(a.CompletedAt),
		a.UpdatedAt,
		a.ID,
	)

	updated, err := scanAttempt(row)
	if err != nil {
		return nil, translateAssessmentPgError(err)
	}
	return updated, nil
}

func scanAttempt(row pgx.Row) (*assessment.Attempt, error) {
	var (
		a           assessment.Attempt
		status      string
		answers     []byte
		score       sql.NullInt32
		comment     sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	if err := row.Scan(
		&a.ID,
		&a.CandidateID,
		&a.TestID,
		&status,
		&answers,
		&score,
		&comment,
		&a.NeedsReview,
		&startedAt,
		&completedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assessment.ErrAttemptNotFound
		}
		return nil, err
	}

	decoded, err := decodeAnswers(answers)
	if err != nil {
		return nil, err
	}

	a.Status = assessment.AttemptStatus(status)
	a.Answers = decoded
	if score.Valid {
		v := int(score.Int32)
		a.Score = &v
	}
	a.ManualReviewComment = stringPtr(comment)
	a.StartedAt = timePtr(startedAt)
	a.CompletedAt = timePtr(completedAt)
	return &a, nil
}

func encodeAnswers(answers []assessment.Answer) ([]byte, error) {
	records := make([]answerRecord, 0, len(answers))
	for _, a := range answers {
		records = append(records, answerRecord{QuestionID: a.QuestionID, Values: a.Values, Points: a.Points})
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode answers: %w", err)
	}
	return b, nil
}

func decodeAnswers(raw []byte) ([]assessment.Answer, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var records []answerRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("postgres: decode answers: %w", err)
	}
	answers := make([]assessment.Answer, 0, len(records))
	for _, rec := range records {
		answers = append(answers, assessment.Answer{QuestionID: rec.QuestionID, Values: rec.Values, Points: rec.Points})
	}
	return answers, nil
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func translateAssessmentPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, assessment.ErrAttemptNotFound) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return assessment.ErrAttemptAlreadyExists
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "test_attempts_candidate_id_fkey" {
				return candidate.ErrCandidateNotFound
			}
			return assessment.ErrTestNotFound
		}
	}
	return err
}

// DeleteOpenAttemptsByCandidate は候補者の未着手・受験中の受験を削除します。完了済みの受験は履歴として残します。
func (r *AssessmentRepository) DeleteOpenAttemptsByCandidate(ctx context.Context, candidateID string) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        DELETE FROM test_attempts
         WHERE candidate_id = $1
           AND status IN ('pending', 'in_progress')
    `, candidateID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
