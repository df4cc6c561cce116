package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/vacancy"
	pgdb "github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/db/postgres"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
)

const candidateColumns = `id, user_id, status, offer_status, vacancy_id, mentor_id, created_at, updated_at`

// CandidateRepository は PostgreSQL を利用した候補者永続化の実装です。
type CandidateRepository struct {
	pool pgdb.Queryer
}

// NewCandidateRepository は CandidateRepository を生成します。
func NewCandidateRepository(pool pgdb.Queryer) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// FindByID は ID で候補者を取得します。
func (r *CandidateRepository) FindByID(ctx context.Context, id string) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+candidateColumns+`
          FROM candidates
         WHERE id = $1
    `, id)

	found, err := scanCandidate(row)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return found, nil
}

// LockByID は候補者の行をロックして取得します。トランザクション外では通常の参照と同じです。
func (r *CandidateRepository) LockByID(ctx context.Context, id string) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+candidateColumns+`
          FROM candidates
         WHERE id = $1
           FOR UPDATE
    `, id)

	found, err := scanCandidate(row)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return found, nil
}

// Update は候補者の状態・求人・担当メンターを更新します。
func (r *CandidateRepository) Update(ctx context.Context, c *candidate.Candidate) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE candidates
           SET status = $1,
               offer_status = $2,
               vacancy_id = $3,
               mentor_id = $4,
               updated_at = $5
         WHERE id = $6
        RETURNING `+candidateColumns,
		string(c.Status),
		string(c.OfferStatus),
		nullableString(c.VacancyID),
		nullableString(c.MentorID),
		c.UpdatedAt,
		c.ID,
	)

	updated, err := scanCandidate(row)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return updated, nil
}

func scanCandidate(row pgx.Row) (*candidate.Candidate, error) {
	var (
		id          string
		userID      string
		status      string
		offerStatus string
		vacancyID   sql.NullString
		mentorID    sql.NullString
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := row.Scan(&id, &userID, &status, &offerStatus, &vacancyID, &mentorID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, candidate.ErrCandidateNotFound
		}
		return nil, err
	}

	parsed, err := candidate.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	return &candidate.Candidate{
		ID:          id,
		UserID:      userID,
		Status:      parsed,
		OfferStatus: candidate.OfferStatus(offerStatus),
		VacancyID:   stringPtr(vacancyID),
		MentorID:    stringPtr(mentorID),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

func translateCandidatePgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
		if pgErr.ConstraintName == "candidates_vacancy_id_fkey" {
			return vacancy.ErrVacancyNotFound
		}
		return candidate.ErrCandidateNotFound
	}
	return err
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTimestamp(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
