package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userCols = []string{"id", "google_id", "name", "email", "photo", "dt_reg", "dt_modify"}

func TestUpsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*google_id,\s*name,\s*email,\s*photo,\s*dt_reg,\s*dt_modify\).*ON\s+CONFLICT\s+\(id\)\s+DO\s+UPDATE.*RETURNING\s+dt_reg,\s*dt_modify\s*$`

	mock.ExpectQuery(q).
		WithArgs("u1", "g1", "Ann", "ann@example.com", "", int64(200)).
		WillReturnRows(sqlmock.NewRows([]string{"dt_reg", "dt_modify"}).AddRow(int64(100), int64(200)))

	u := &models.User{ID: "u1", GoogleID: "g1", Name: "Ann", Email: "ann@example.com", DtModify: 200}
	got, err := repo.Upsert(context.Background(), u)
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if got.DtReg != 100 || got.DtModify != 200 {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Upsert(context.Background(), &models.User{ID: "u1"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*COALESCE\(google_id,\s*''\).*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectQuery(q).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "", "Ann", "ann@example.com", "p.png", int64(1), int64(2)))

	got, err := repo.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Email != "ann@example.com" || got.Photo != "p.png" || got.DtModify != 2 {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "ghost")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestGetByGoogleID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+google_id\s*=\s*\$1`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "g1", "Ann", "a@x.io", "", int64(1), int64(1)))

	got, err := repo.GetByGoogleID(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetByGoogleID error: %v", err)
	}
	if got.ID != "u1" || got.GoogleID != "g1" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestListRelated(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^WITH\s+visible\s+AS.*FROM\s+users.*ORDER\s+BY\s+id`
	mock.ExpectQuery(q).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "g1", "Ann", "a@x.io", "", int64(1), int64(1)).
			AddRow("u2", "", "Bob", "b@x.io", "", int64(1), int64(1)))

	got, err := repo.ListRelated(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListRelated error: %v", err)
	}
	if len(got) != 2 || got[1].Name != "Bob" {
		t.Fatalf("unexpected users: %+v", got)
	}
}

func TestListRelated_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WITH\s+visible`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "", "Ann", "a@x.io", "", "not-a-number", int64(1)))

	if _, err := repo.ListRelated(context.Background(), "u1"); err == nil {
		t.Fatal("expected scan error")
	}
}
