package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDocs(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE docs (id TEXT PRIMARY KEY, doc TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func docCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM docs`).Scan(&n))
	return n
}

func insertDoc(ctx context.Context, tx DBTX, id string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO docs (id, doc) VALUES (?, '{}')`, id)
	return err
}

func TestWithTx(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(ctx context.Context, tx DBTX) error
		wantErr bool
		want    int
	}{
		{
			name: "commit",
			fn: func(ctx context.Context, tx DBTX) error {
				if err := insertDoc(ctx, tx, "a"); err != nil {
					return err
				}
				return insertDoc(ctx, tx, "b")
			},
			want: 2,
		},
		{
			name: "rollback on error",
			fn: func(ctx context.Context, tx DBTX) error {
				if err := insertDoc(ctx, tx, "a"); err != nil {
					return err
				}
				return errors.New("boom")
			},
			wantErr: true,
		},
		{
			name: "rollback on failed statement",
			fn: func(ctx context.Context, tx DBTX) error {
				if err := insertDoc(ctx, tx, "a"); err != nil {
					return err
				}
				return insertDoc(ctx, tx, "a")
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go < 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			db := openDocs(t)
			err := WithTx(context.Background(), db, nil, tt.fn)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, docCount(t, db))
		})
	}
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	db := openDocs(t)

	require.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insertDoc(ctx, tx, "a"))
			panic("kaput")
		})
	})
	assert.Equal(t, 0, docCount(t, db))
}

func TestWithTx_BeginFails(t *testing.T) {
	db := openDocs(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
		called = true
		return nil
	})
	require.ErrorContains(t, err, "begin tx")
	assert.False(t, called)
}

func TestExecAffected(t *testing.T) {
	db := openDocs(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, insertDoc(ctx, db, id))
	}

	n, err := ExecAffected(ctx, db, `UPDATE docs SET doc = '{"x":1}' WHERE id <> ?`, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	err = WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
		n, err = ExecAffected(ctx, tx, `DELETE FROM docs WHERE id = ?`, "a")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, docCount(t, db))

	_, err = ExecAffected(ctx, db, `UPDATE missing SET doc = '{}'`)
	assert.Error(t, err)
}
