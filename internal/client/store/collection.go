package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/dbx"
	"github.com/google/uuid"
)

// Doc is a schemaless document. The "id" key is the primary key.
type Doc map[string]any

// ID returns the document id or "" when it is missing.
func (d Doc) ID() string {
	id, _ := d["id"].(string)
	return id
}

// UpdateOptions mirror the document-database flags of the same names.
type UpdateOptions struct {
	// Multi updates every match instead of the first one.
	Multi bool
	// Upsert inserts the query's equality terms merged with the patch when
	// nothing matches.
	Upsert bool
}

// UpdateResult reports what an Update touched.
type UpdateResult struct {
	Matched    int64
	Affected   int64
	Upserted   bool
	UpsertedID string
}

// RemoveOptions controls Remove.
type RemoveOptions struct {
	Multi bool
}

// Collection is one named document set persisted in its own SQLite table.
// Every method fails with an error matching common.ErrStorage when the
// database does.
type Collection struct {
	name string
	db   *sql.DB
}

func newCollection(name string, db *sql.DB) *Collection {
	return &Collection{name: name, db: db}
}

// Name returns the collection (table) name.
func (c *Collection) Name() string {
	return c.name
}

// Find returns all documents matching q in insertion order.
func (c *Collection) Find(ctx context.Context, q Query) ([]Doc, error) {
	return c.find(ctx, c.db, q, 0)
}

// FindOne returns the first document matching q, or nil when there is none.
func (c *Collection) FindOne(ctx context.Context, q Query) (Doc, error) {
	docs, err := c.find(ctx, c.db, q, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Count returns the number of documents matching q.
func (c *Collection) Count(ctx context.Context, q Query) (int64, error) {
	where, args, err := q.compile()
	if err != nil {
		return 0, err
	}
	var n int64
	err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.name+` WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, common.StorageErr("count "+c.name, err)
	}
	return n, nil
}

// Insert stores doc, generating an id when it has none, and returns the
// stored copy.
func (c *Collection) Insert(ctx context.Context, doc Doc) (Doc, error) {
	out := make(Doc, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	if out.ID() == "" {
		out["id"] = uuid.NewString()
	}
	if err := c.insert(ctx, c.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies patch to documents matching q. Patch keys replace the
// corresponding top-level fields; other fields are kept. The id is never
// changed by a patch.
func (c *Collection) Update(ctx context.Context, q Query, patch Doc, opts UpdateOptions) (UpdateResult, error) {
	var res UpdateResult

	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		limit := 1
		if opts.Multi {
			limit = 0
		}
		docs, err := c.find(ctx, tx, q, limit)
		if err != nil {
			return err
		}
		res.Matched = int64(len(docs))

		for _, d := range docs {
			before, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("encode %s document: %w", c.name, err)
			}
			for k, v := range patch {
				if k == "id" {
					continue
				}
				d[k] = v
			}
			after, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("encode %s document: %w", c.name, err)
			}
			if bytes.Equal(before, after) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE `+c.name+` SET doc = ? WHERE id = ?`, string(after), d.ID()); err != nil {
				return common.StorageErr("update "+c.name, err)
			}
			res.Affected++
		}

		if res.Matched > 0 || !opts.Upsert {
			return nil
		}

		d := q.equalityTerms()
		for k, v := range patch {
			d[k] = v
		}
		if d.ID() == "" {
			d["id"] = uuid.NewString()
		}
		if err := c.insert(ctx, tx, d); err != nil {
			return err
		}
		res.Affected = 1
		res.Upserted = true
		res.UpsertedID = d.ID()
		return nil
	})
	if err != nil {
		return UpdateResult{}, err
	}
	return res, nil
}

// Remove physically deletes matching documents and returns how many were
// removed. Sync never calls it; tombstones are set through Update instead.
func (c *Collection) Remove(ctx context.Context, q Query, opts RemoveOptions) (int64, error) {
	where, args, err := q.compile()
	if err != nil {
		return 0, err
	}
	query := `DELETE FROM ` + c.name + ` WHERE ` + where
	if !opts.Multi {
		query = `DELETE FROM ` + c.name + ` WHERE id IN (SELECT id FROM ` + c.name + ` WHERE ` + where + ` ORDER BY rowid LIMIT 1)`
	}
	n, err := dbx.ExecAffected(ctx, c.db, query, args...)
	if err != nil {
		return 0, common.StorageErr("remove "+c.name, err)
	}
	return n, nil
}

func (c *Collection) find(ctx context.Context, db dbx.DBTX, q Query, limit int) ([]Doc, error) {
	where, args, err := q.compile()
	if err != nil {
		return nil, err
	}
	query := `SELECT doc FROM ` + c.name + ` WHERE ` + where + ` ORDER BY rowid`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.StorageErr("find "+c.name, err)
	}
	defer rows.Close()

	var result []Doc
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, common.StorageErr("scan "+c.name, err)
		}
		d, err := decodeDoc([]byte(raw))
		if err != nil {
			return nil, common.StorageErr("decode "+c.name, err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageErr("iterate "+c.name, err)
	}
	return result, nil
}

func (c *Collection) insert(ctx context.Context, db dbx.DBTX, d Doc) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.name, err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO `+c.name+` (id, doc) VALUES (?, ?)`, d.ID(), string(b)); err != nil {
		return common.StorageErr("insert "+c.name, err)
	}
	return nil
}

func decodeDoc(b []byte) (Doc, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var d Doc
	if err := dec.Decode(&d); err != nil {
		return nil, err
	}
	return d, nil
}
