package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/user"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

type stubRow struct {
	scanFn func(dest ...interface{}) error
}

func (s stubRow) Scan(dest ...interface{}) error {
	return s.scanFn(dest...)
}

func TestScanUser_Success(t *testing.T) {
	t.Parallel()

	createdAt := time.Now().UTC()
	updatedAt := createdAt.Add(time.Minute)

	row := stubRow{scanFn: func(dest ...interface{}) error {
		if len(dest) != 6 {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*string)) = "user-1"
		*(dest[1].(*string)) = "user@example.com"
		*(dest[2].(*string)) = "User"
		*(dest[3].(*string)) = string(shared.RoleHR)
		*(dest[4].(*time.Time)) = createdAt
		*(dest[5].(*time.Time)) = updatedAt
		return nil
	}}

	u, err := scanUser(row)
	if err != nil {
		t.Fatalf("scanUser returned error: %v", err)
	}

	if u.ID != "user-1" || u.Role != shared.RoleHR {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestScanUser_NoRows(t *testing.T) {
	t.Parallel()

	row := stubRow{scanFn: func(dest ...interface{}) error {
		return pgx.ErrNoRows
	}}

	_, err := scanUser(row)
	if !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_UpdateRole(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("employee", now, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET role = $1`)).
		WithArgs("employee", now, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateRole(context.Background(), "user-1", shared.RoleEmployee, now); err != nil {
		t.Fatalf("UpdateRole returned error: %v", err)
	}
	if err := repo.UpdateRole(context.Background(), "missing", shared.RoleEmployee, now); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := repo.UpdateRole(context.Background(), "user-1", shared.Role("owner"), now); !errors.Is(err, user.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_ListIDsByRole(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	rows := pgxmock.NewRows([]string{"id"}).AddRow("hr-1").AddRow("admin-1")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE role = ANY($1)`)).
		WithArgs([]string{"hr", "admin"}).
		WillReturnRows(rows)

	ids, err := repo.ListIDsByRole(context.Background(), shared.RoleHR, shared.RoleAdmin)
	if err != nil {
		t.Fatalf("ListIDsByRole returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "hr-1" {
		t.Fatalf("unexpected ids %v", ids)
	}

	empty, err := repo.ListIDsByRole(context.Background())
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no query for empty roles, got %v %v", empty, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
