package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/vacancy"
	pgdb "github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/db/postgres"
)

// VacancyRepository は PostgreSQL を利用した求人参照の実装です。
type VacancyRepository struct {
	pool pgdb.Queryer
}

// NewVacancyRepository は VacancyRepository を生成します。
func NewVacancyRepository(pool pgdb.Queryer) *VacancyRepository {
	return &VacancyRepository{pool: pool}
}

// FindByID は ID で求人を取得します。
func (r *VacancyRepository) FindByID(ctx context.Context, id string) (*vacancy.Vacancy, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, title, start_course_id, default_offer_content, is_active, created_at, updated_at
          FROM vacancies
         WHERE id = $1
    `, id)

	return scanVacancy(row)
}

func scanVacancy(row pgx.Row) (*vacancy.Vacancy, error) {
	var (
		id             string
		title          string
		startCourseID  sql.NullString
		defaultContent string
		isActive       bool
		createdAt      time.Time
		updatedAt      time.Time
	)

	if err := row.Scan(&id, &title, &startCourseID, &defaultContent, &isActive, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vacancy.ErrVacancyNotFound
		}
		return nil, err
	}

	return &vacancy.Vacancy{
		ID:                  id,
		Title:               title,
		StartCourseID:       stringPtr(startCourseID),
		DefaultOfferContent: defaultContent,
		IsActive:            isActive,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
	}, nil
}
