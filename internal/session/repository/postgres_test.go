package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newPostgresWithMock(t *testing.T, now time.Time) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	repo := NewPostgresRepository(db)
	repo.now = func() time.Time { return now }
	return repo, mock, db
}

func TestPostgres_Persist(t *testing.T) {
	now := time.Now().UTC()
	repo, mock, db := newPostgresWithMock(t, now)
	defer db.Close()

	exp := now.Add(365 * 24 * time.Hour)
	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s+\(user_id,\s*expires_at\)\s+VALUES\s*\(\$1,\s*\$2\)\s+RETURNING\s+id,\s*created_at$`).
		WithArgs(int64(4), exp).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(77), now))

	got, err := repo.Persist(context.Background(), 4, exp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 77 || got.UserID != 4 || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgres_PersistDBError(t *testing.T) {
	repo, mock, db := newPostgresWithMock(t, time.Now())
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+refresh_tokens`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Persist(context.Background(), 1, time.Now().Add(time.Hour))
	if err == nil || !regexp.MustCompile(`error performing sql request: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgres_FindActive(t *testing.T) {
	now := time.Now().UTC()
	repo, mock, db := newPostgresWithMock(t, now)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+id,\s*user_id,\s*expires_at,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s+AND\s+expires_at\s*>\s*\$3$`
	mock.ExpectQuery(q).
		WithArgs(int64(77), int64(4), now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "created_at"}).
			AddRow(int64(77), int64(4), now.Add(time.Hour), now))

	got, err := repo.FindActive(context.Background(), 77, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != 77 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestPostgres_FindActiveMissing(t *testing.T) {
	repo, mock, db := newPostgresWithMock(t, time.Now())
	defer db.Close()

	mock.ExpectQuery(`FROM\s+refresh_tokens`).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.FindActive(context.Background(), 1, 2)
	if err != nil || got != nil {
		t.Fatalf("want (nil, nil), got (%+v, %v)", got, err)
	}
}

func TestPostgres_FindActiveDBError(t *testing.T) {
	repo, mock, db := newPostgresWithMock(t, time.Now())
	defer db.Close()

	mock.ExpectQuery(`FROM\s+refresh_tokens`).
		WillReturnError(errors.New("db err"))

	_, err := repo.FindActive(context.Background(), 1, 2)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgres_DeleteIsIdempotent(t *testing.T) {
	repo, mock, db := newPostgresWithMock(t, time.Now())
	defer db.Close()

	q := `^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), 9)
	if err != nil || !removed {
		t.Fatalf("first delete = %v, %v; want true, nil", removed, err)
	}
	removed, err = repo.Delete(context.Background(), 9)
	if err != nil || removed {
		t.Fatalf("second delete = %v, %v; want false, nil", removed, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgres_DeleteExpired(t *testing.T) {
	now := time.Now().UTC()
	repo, mock, db := newPostgresWithMock(t, now)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+expires_at\s*<=\s*\$1$`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("removed = %d, want 3", n)
	}
}
