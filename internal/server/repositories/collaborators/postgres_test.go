package collaborators

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

var collabCols = []string{"id", "folder_id", "email", "token_hash", "user_id", "dt_invite"}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+collaborators.*WHERE\s+collaborators\.user_id\s+IS\s+NULL`
	c := &models.Collaborator{ID: "c1", FolderID: "f1", Email: "bob@example.com", TokenHash: "h", DtInvite: 7}

	mock.ExpectExec(q).
		WithArgs("c1", "f1", "bob@example.com", "h", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WillReturnError(errors.New("boom"))

	ok, err := repo.Upsert(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Upsert(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, ok, "redeemed invitation is kept")

	_, err = repo.Upsert(context.Background(), c)
	assert.ErrorContains(t, err, "db error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingByEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE\s+lower\(c\.email\)\s*=\s*lower\(\$1\)\s+AND\s+c\.user_id\s+IS\s+NULL`).
		WithArgs("Bob@Example.com").
		WillReturnRows(sqlmock.NewRows(collabCols).
			AddRow("c2", "f2", "bob@example.com", "h2", "", int64(9)).
			AddRow("c1", "f1", "bob@example.com", "h1", "", int64(7)))

	got, err := repo.ListPendingByEmail(context.Background(), "Bob@Example.com")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Pending())
	assert.Equal(t, "h1", got[1].TokenHash)
}

func TestAccept(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+collaborators\s+SET\s+user_id\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s+IS\s+NULL$`
	mock.ExpectExec(q).WithArgs("c1", "u2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("c1", "u3").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Accept(context.Background(), "c1", "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Accept(context.Background(), "c1", "u3")
	require.NoError(t, err)
	assert.False(t, ok, "already redeemed")
}

func TestListVisible(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+collaborators\s+c\s+JOIN\s+folders\s+f`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(collabCols).AddRow("c1", "f1", "bob@example.com", "h1", "u2", int64(7)))

	got, err := repo.ListVisible(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0].UserID)
	assert.False(t, got[0].Pending())
}
