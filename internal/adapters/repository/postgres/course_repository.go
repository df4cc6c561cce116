package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/course"
	pgdb "github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/db/postgres"
)

const enrollmentColumns = `id, candidate_id, course_id, progress, started_at, completed_at, updated_at`

// CourseRepository は PostgreSQL を利用した受講・レッスン進捗の実装です。
type CourseRepository struct {
	pool pgdb.Queryer
}

// NewCourseRepository は CourseRepository を生成します。
func NewCourseRepository(pool pgdb.Queryer) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// CreateEnrollment は受講情報を作成します。
func (r *CourseRepository) CreateEnrollment(ctx context.Context, e *course.Enrollment) (*course.Enrollment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO course_enrollments (candidate_id, course_id, progress, started_at, completed_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+enrollmentColumns,
		e.CandidateID,
		e.CourseID,
		e.Progress,
		e.StartedAt,
		nullableTimestamp(e.CompletedAt),
		e.UpdatedAt,
	)

	created, err := scanEnrollment(row)
	if err != nil {
		return nil, translateCoursePgError(err)
	}
	return created, nil
}

// FindEnrollment は ID で受講情報を取得します。
func (r *CourseRepository) FindEnrollment(ctx context.Context, id string) (*course.Enrollment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+enrollmentColumns+`
          FROM course_enrollments
         WHERE id = $1
    `, id)

	found, err := scanEnrollment(row)
	if err != nil {
		return nil, translateCoursePgError(err)
	}
	return found, nil
}

// LockEnrollment は受講情報の行をロックして取得します。
func (r *CourseRepository) LockEnrollment(ctx context.Context, id string) (*course.Enrollment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+enrollmentColumns+`
          FROM course_enrollments
         WHERE id = $1
           FOR UPDATE
    `, id)

	found, err := scanEnrollment(row)
	if err != nil {
		return nil, translateCoursePgError(err)
	}
	return found, nil
}

// UpdateEnrollment は進捗率と修了日時を更新します。修了日時は一度記録されると消去しません。
func (r *CourseRepository) UpdateEnrollment(ctx context.Context, e *course.Enrollment) (*course.Enrollment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE course_enrollments
           SET progress = $1,
               completed_at = COALESCE(completed_at, $2),
               updated_at = $3
         WHERE id = $4
        RETURNING `+enrollmentColumns,
		e.Progress,
		nullableTimestamp(e.CompletedAt),
		e.UpdatedAt,
		e.ID,
	)

	updated, err := scanEnrollment(row)
	if err != nil {
		return nil, translateCoursePgError(err)
	}
	return updated, nil
}

// ListEnrollmentsByCandidate は候補者の受講情報を開始日時順に返します。
func (r *CourseRepository) ListEnrollmentsByCandidate(ctx context.Context, candidateID string) ([]*course.Enrollment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+enrollmentColumns+`
          FROM course_enrollments
         WHERE candidate_id = $1
         ORDER BY started_at, id
    `, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := make([]*course.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// DeleteEnrollmentsByCandidate は候補者の受講情報を削除します。レッスン進捗は外部キーの CASCADE で削除されます。
func (r *CourseRepository) DeleteEnrollmentsByCandidate(ctx context.Context, candidateID string) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM course_enrollments WHERE candidate_id = $1`, candidateID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListLessonIDs はコースのレッスン ID を並び順で返します。コースが存在しない場合は ErrCourseNotFound です。
func (r *CourseRepository) ListLessonIDs(ctx context.Context, courseID string) ([]string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT c.id, l.id
          FROM courses c
          LEFT JOIN lessons l ON l.course_id = c.id
         WHERE c.id = $1
         ORDER BY l.position, l.id
    `, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := false
	ids := make([]string, 0)
	for rows.Next() {
		var (
			id       string
			lessonID sql.NullString
		)
		if err := rows.Scan(&id, &lessonID); err != nil {
			return nil, err
		}
		found = true
		if lessonID.Valid {
			ids = append(ids, lessonID.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, course.ErrCourseNotFound
	}
	return ids, nil
}

// FindLessonProgress はレッスン進捗を返します。記録がない場合は nil を返します。
func (r *CourseRepository) FindLessonProgress(ctx context.Context, enrollmentID, lessonID string) (*course.LessonProgress, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT enrollment_id, lesson_id, is_completed, completed_at
          FROM lesson_progress
         WHERE enrollment_id = $1 AND lesson_id = $2
    `, enrollmentID, lessonID)

	var (
		p           course.LessonProgress
		completedAt sql.NullTime
	)
	if err := row.Scan(&p.EnrollmentID, &p.LessonID, &p.IsCompleted, &completedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.CompletedAt = timePtr(completedAt)
	return &p, nil
}

// UpsertLessonProgress はレッスン進捗を作成または更新します。
func (r *CourseRepository) UpsertLessonProgress(ctx context.Context, p *course.LessonProgress) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO lesson_progress (enrollment_id, lesson_id, is_completed, completed_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (enrollment_id, lesson_id)
        DO UPDATE SET is_completed = EXCLUDED.is_completed,
                      completed_at = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at)
    `, p.EnrollmentID, p.LessonID, p.IsCompleted, nullableTimestamp(p.CompletedAt))
	if err != nil {
		return translateCoursePgError(err)
	}
	return nil
}

// CountCompletedLessons はコースに現存するレッスンのうち完了済みの数を返します。
func (r *CourseRepository) CountCompletedLessons(ctx context.Context, enrollmentID, courseID string) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT COUNT(*)
          FROM lesson_progress lp
          JOIN lessons l ON l.id = lp.lesson_id
         WHERE lp.enrollment_id = $1
           AND l.course_id = $2
           AND lp.is_completed
    `, enrollmentID, courseID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanEnrollment(row pgx.Row) (*course.Enrollment, error) {
	var (
		e           course.Enrollment
		completedAt sql.NullTime
	)

	if err := row.Scan(&e.ID, &e.CandidateID, &e.CourseID, &e.Progress, &e.StartedAt, &completedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, course.ErrEnrollmentNotFound
		}
		return nil, err
	}
	e.CompletedAt = timePtr(completedAt)
	return &e, nil
}

func translateCoursePgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
		switch pgErr.ConstraintName {
		case "course_enrollments_candidate_id_fkey":
			return candidate.ErrCandidateNotFound
		case "course_enrollments_course_id_fkey":
			return course.ErrCourseNotFound
		case "lesson_progress_lesson_id_fkey":
			return course.ErrLessonNotInCourse
		case "lesson_progress_enrollment_id_fkey":
			return course.ErrEnrollmentNotFound
		}
	}
	return err
}
