package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func stubMigrate(t *testing.T, fn func(ctx context.Context, db *sql.DB) (int, error)) {
	t.Helper()
	orig := migrate
	migrate = fn
	t.Cleanup(func() { migrate = orig })
}

func TestRepositoriesBindToHandle(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewPostgresRepositoryManager()
	require.NotNil(t, m.Users(db))
	require.NotNil(t, m.Folders(db))
	require.NotNil(t, m.Notes(db))
	require.NotNil(t, m.Collaborators(db))
}

func TestRunMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var got *sql.DB
	stubMigrate(t, func(_ context.Context, d *sql.DB) (int, error) {
		got = d
		return 1, nil
	})
	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
	require.Same(t, db, got)
}

func TestRunMigrations_Error(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	stubMigrate(t, func(context.Context, *sql.DB) (int, error) { return 0, boom })

	err = NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "migrate")
}
