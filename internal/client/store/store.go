// Package store is the local document store of the desktop client.
//
// # Overview
//
// Four named collections (users, folders, notes, collaborators) each hold
// schemaless JSON documents keyed by an opaque id. Every collection supports
// Find, FindOne, Insert, Update (with Multi/Upsert) and Remove with
// structural queries: field equality plus $gt/$gte/$lt/$lte/$ne/$in.
//
// # Storage
//
// Documents live in SQLite (modernc.org/sqlite, pure Go), one table per
// collection, and queries compile to json_extract predicates. The schema is
// owned by goose migrations embedded in internal/client/migrations. Reset
// migrates all the way down and back up, so collections are recreated empty
// rather than patched.
//
// # Consistency
//
// There are no cross-document transactions. A read issued after a completed
// write observes that write; nothing else is promised about concurrent
// operations on the same collection.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/client/migrations"
	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Collection names.
const (
	Users         = "users"
	Folders       = "folders"
	Notes         = "notes"
	Collaborators = "collaborators"
)

// Store owns the database handle and the four collections.
type Store struct {
	db       *sql.DB
	migrator *goose.Provider

	collections map[string]*Collection
}

// Open opens (creating if needed) the SQLite database at dsn and brings its
// schema up to date.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, common.StorageErr("open database", err)
	}
	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database. The store is single-writer, so the
// pool is capped at one connection; this also keeps ":memory:" databases
// coherent across calls.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	db.SetMaxOpenConns(1)

	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return nil, common.StorageErr("run migrations", err)
	}

	s := &Store{db: db, migrator: p, collections: make(map[string]*Collection, 4)}
	for _, name := range []string{Users, Folders, Notes, Collaborators} {
		s.collections[name] = newCollection(name, db)
	}
	return s, nil
}

// Reset drops and recreates every collection empty.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.migrator.DownTo(ctx, 0); err != nil {
		return common.StorageErr("drop collections", err)
	}
	if _, err := s.migrator.Up(ctx); err != nil {
		return common.StorageErr("recreate collections", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Collection returns the named collection or nil for an unknown name.
func (s *Store) Collection(name string) *Collection {
	return s.collections[name]
}

func (s *Store) Users() Repo[models.User] {
	return NewRepo[models.User](s.collections[Users])
}

func (s *Store) Folders() Repo[models.Folder] {
	return NewRepo[models.Folder](s.collections[Folders])
}

func (s *Store) Notes() Repo[models.Note] {
	return NewRepo[models.Note](s.collections[Notes])
}

func (s *Store) Collaborators() Repo[models.Collaborator] {
	return NewRepo[models.Collaborator](s.collections[Collaborators])
}

// RootFolder returns the live root folder or nil when there is none yet.
func (s *Store) RootFolder(ctx context.Context) (*models.Folder, error) {
	return s.Folders().FindOne(ctx, Query{"isRoot": true, "isRemoved": false})
}

// EnsureRootFolder returns the live root folder, creating it with
// dtCreate = dtModify = now when absent. created tells which happened.
func (s *Store) EnsureRootFolder(ctx context.Context, ownerID string, now int64) (root models.Folder, created bool, err error) {
	existing, err := s.RootFolder(ctx)
	if err != nil {
		return models.Folder{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	root, err = s.Folders().Insert(ctx, models.Folder{
		Title:           common.RootFolderTitle,
		OwnerID:         ownerID,
		IsRoot:          true,
		CollaboratorIDs: []string{},
		DtCreate:        now,
		DtModify:        now,
	})
	if err != nil {
		return models.Folder{}, false, err
	}
	return root, true, nil
}

// Changes is the set of folders and notes modified since a cursor.
type Changes struct {
	Folders []models.Folder
	Notes   []models.Note
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Folders) == 0 && len(c.Notes) == 0
}

// ModifiedSince selects folders and notes by dtModify, tombstones included.
// inclusive picks >= over >.
func (s *Store) ModifiedSince(ctx context.Context, cursor int64, inclusive bool) (Changes, error) {
	cond := Gt(cursor)
	if inclusive {
		cond = Gte(cursor)
	}

	folders, err := s.Folders().Find(ctx, Query{"dtModify": cond})
	if err != nil {
		return Changes{}, err
	}
	notes, err := s.Notes().Find(ctx, Query{"dtModify": cond})
	if err != nil {
		return Changes{}, err
	}
	return Changes{Folders: folders, Notes: notes}, nil
}

// Compact physically removes tombstoned folders and notes whose last
// modification is strictly older than before. Returns the number removed.
func (s *Store) Compact(ctx context.Context, before int64) (int64, error) {
	q := Query{"isRemoved": true, "dtModify": Lt(before)}

	nf, err := s.collections[Folders].Remove(ctx, q, RemoveOptions{Multi: true})
	if err != nil {
		return 0, err
	}
	nn, err := s.collections[Notes].Remove(ctx, q, RemoveOptions{Multi: true})
	if err != nil {
		return nf, err
	}
	return nf + nn, nil
}
