package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/offer"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/vacancy"
	pgdb "github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/db/postgres"
)

const offerColumns = `id, type, status, candidate_id, vacancy_id, test_id, content, created_at, updated_at, responded_at`

// OfferRepository は PostgreSQL を利用したオファー永続化の実装です。
type OfferRepository struct {
	pool pgdb.Queryer
}

// NewOfferRepository は OfferRepository を生成します。
func NewOfferRepository(pool pgdb.Queryer) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// Create はオファーを作成します。
// 個人宛ての回答待ちオファーは部分ユニークインデックスで 1 件に制限され、
// 競合時は行を返さずトランザクションを継続できるよう ON CONFLICT DO NOTHING で挿入します。
func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) (*offer.Offer, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO offers (type, status, candidate_id, vacancy_id, test_id, content, created_at, updated_at, responded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (candidate_id) WHERE status = 'sent' AND type = 'personal' DO NOTHING
        RETURNING `+offerColumns,
		string(o.Type),
		string(o.Status),
		nullableString(o.CandidateID),
		nullableString(o.VacancyID),
		nullableString(o.TestID),
		o.Content,
		o.CreatedAt,
		o.UpdatedAt,
		nullableTimestamp(o.RespondedAt),
	)

	created, err := scanOffer(row)
	if errors.Is(err, offer.ErrOfferNotFound) {
		return nil, offer.ErrActiveOfferExists
	}
	if err != nil {
		return nil, translateOfferPgError(err)
	}
	return created, nil
}

// FindByID は ID でオファーを取得します。
func (r *OfferRepository) FindByID(ctx context.Context, id string) (*offer.Offer, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+offerColumns+`
          FROM offers
         WHERE id = $1
    `, id)
	return scanOffer(row)
}

// LockByID はオファーの行をロックして取得します。
func (r *OfferRepository) LockByID(ctx context.Context, id string) (*offer.Offer, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+offerColumns+`
          FROM offers
         WHERE id = $1
           FOR UPDATE
    `, id)
	return scanOffer(row)
}

// FindActiveByCandidate は候補者宛ての回答待ちオファーを返します。
func (r *OfferRepository) FindActiveByCandidate(ctx context.Context, candidateID string) (*offer.Offer, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+offerColumns+`
          FROM offers
         WHERE candidate_id = $1
           AND type = 'personal'
           AND status = 'sent'
         LIMIT 1
    `, candidateID)
	return scanOffer(row)
}

// FindTemplate は求人に紐づく最新の汎用オファーを返します。
// testID に一致するものを優先し、なければテストに紐づかない求人全体のものを返します。
func (r *OfferRepository) FindTemplate(ctx context.Context, vacancyID string, testID *string) (*offer.Offer, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+offerColumns+`
          FROM offers
         WHERE type = 'general'
           AND vacancy_id = $1
           AND (test_id IS NULL OR test_id = $2::uuid)
         ORDER BY test_id IS NULL, created_at DESC, id DESC
         LIMIT 1
    `, vacancyID, nullableString(testID))
	return scanOffer(row)
}

// MarkResponded は回答待ちの個人宛てオファーのみを条件付きで更新します。
// 同時に回答した場合、後から更新した側は ErrOfferAlreadyResponded を受け取ります。
func (r *OfferRepository) MarkResponded(ctx context.Context, id string, status offer.Status, respondedAt time.Time) (*offer.Offer, error) {
	if !status.IsTerminal() {
		return nil, offer.ErrInvalidDecision
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE offers
           SET status = $1,
               responded_at = $2,
               updated_at = $2
         WHERE id = $3
           AND type = 'personal'
           AND status = 'sent'
        RETURNING `+offerColumns,
		string(status), respondedAt, id)

	updated, err := scanOffer(row)
	if !errors.Is(err, offer.ErrOfferNotFound) {
		return updated, err
	}

	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM offers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, offer.ErrOfferNotFound
	}
	return nil, offer.ErrOfferAlreadyResponded
}

func scanOffer(row pgx.Row) (*offer.Offer, error) {
	var (
		o           offer.Offer
		typ         string
		status      string
		candidateID sql.NullString
		vacancyID   sql.NullString
		testID      sql.NullString
		respondedAt sql.NullTime
	)

	if err := row.Scan(&o.ID, &typ, &status, &candidateID, &vacancyID, &testID, &o.Content, &o.CreatedAt, &o.UpdatedAt, &respondedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, offer.ErrOfferNotFound
		}
		return nil, err
	}

	o.Type = offer.Type(typ)
	o.Status = offer.Status(status)
	o.CandidateID = stringPtr(candidateID)
	o.VacancyID = stringPtr(vacancyID)
	o.TestID = stringPtr(testID)
	o.RespondedAt = timePtr(respondedAt)
	return &o, nil
}

func translateOfferPgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return offer.ErrActiveOfferExists
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "offers_vacancy_id_fkey" {
				return vacancy.ErrVacancyNotFound
			}
			return offer.ErrOfferNotFound
		case checkViolationCode:
			return offer.ErrInvalidContent
		}
	}
	return err
}
