package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/dbx"
	"github.com/dmitrijs2005/codexnotes/internal/server/models"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/collaborators"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/folders"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/notes"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/users"
)

// --- in-memory repositories ---

type memDB struct {
	users   map[string]models.User
	folders map[string]models.Folder
	notes   map[string]models.Note
	collabs map[string]models.Collaborator

	upserts int
	failOn  string
}

func newMemDB() *memDB {
	return &memDB{
		users:   map[string]models.User{},
		folders: map[string]models.Folder{},
		notes:   map[string]models.Note{},
		collabs: map[string]models.Collaborator{},
	}
}

func (m *memDB) fail(op string) error {
	if m.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (m *memDB) visible(folderID, userID string) bool {
	f, ok := m.folders[folderID]
	if !ok {
		return false
	}
	if f.OwnerID == userID {
		return true
	}
	for _, c := range m.collabs {
		if c.FolderID == folderID && c.UserID == userID {
			return true
		}
	}
	return false
}

type memUsers struct{ m *memDB }

func (r memUsers) Upsert(_ context.Context, u *models.User) (*models.User, error) {
	if err := r.m.fail("users.upsert"); err != nil {
		return nil, err
	}
	r.m.upserts++
	if old, ok := r.m.users[u.ID]; ok {
		u.DtReg = old.DtReg
		if u.GoogleID == "" {
			u.GoogleID = old.GoogleID
		}
	} else {
		u.DtReg = u.DtModify
	}
	r.m.users[u.ID] = *u
	return u, nil
}

func (r memUsers) Get(_ context.Context, id string) (*models.User, error) {
	if err := r.m.fail("users.get"); err != nil {
		return nil, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByGoogleID(_ context.Context, gid string) (*models.User, error) {
	for _, u := range r.m.users {
		u := u // per-iteration copy (go < 1.22 loop semantics)
		if u.GoogleID == gid {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memUsers) ListRelated(_ context.Context, userID string) ([]models.User, error) {
	ids := map[string]bool{userID: true}
	for _, f := range r.m.folders {
		if r.m.visible(f.ID, userID) {
			ids[f.OwnerID] = true
		}
	}
	for _, n := range r.m.notes {
		if r.m.visible(n.FolderID, userID) {
			ids[n.AuthorID] = true
		}
	}
	for _, c := range r.m.collabs {
		if c.UserID != "" && r.m.visible(c.FolderID, userID) {
			ids[c.UserID] = true
		}
	}
	var out []models.User
	for id := range ids {
		if u, ok := r.m.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memFolders struct{ m *memDB }

func (r memFolders) Get(_ context.Context, id string) (*models.Folder, error) {
	f, ok := r.m.folders[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &f, nil
}

func (r memFolders) FindLiveRoot(_ context.Context, ownerID string) (*models.Folder, error) {
	for _, f := range r.m.folders {
		f := f // per-iteration copy (go < 1.22 loop semantics)
		if f.OwnerID == ownerID && f.IsRoot && !f.IsRemoved {
			return &f, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memFolders) Upsert(_ context.Context, f *models.Folder) (bool, error) {
	if err := r.m.fail("folders.upsert"); err != nil {
		return false, err
	}
	if old, ok := r.m.folders[f.ID]; ok {
		if old.DtModify > f.DtModify {
			return false, nil
		}
		f.OwnerID = old.OwnerID
	}
	r.m.folders[f.ID] = *f
	return true, nil
}

func (r memFolders) ListVisible(_ context.Context, userID string) ([]models.Folder, error) {
	var out []models.Folder
	for _, f := range r.m.folders {
		if r.m.visible(f.ID, userID) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memFolders) CanAccess(_ context.Context, folderID, userID string) (bool, error) {
	return r.m.visible(folderID, userID), nil
}

type memNotes struct{ m *memDB }

func (r memNotes) Get(_ context.Context, id string) (*models.Note, error) {
	n, ok := r.m.notes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &n, nil
}

func (r memNotes) Upsert(_ context.Context, n *models.Note) (bool, error) {
	if old, ok := r.m.notes[n.ID]; ok {
		if old.DtModify > n.DtModify {
			return false, nil
		}
		n.AuthorID = old.AuthorID
	}
	r.m.notes[n.ID] = *n
	return true, nil
}

func (r memNotes) ListVisible(_ context.Context, userID string) ([]models.Note, error) {
	var out []models.Note
	for _, n := range r.m.notes {
		if r.m.visible(n.FolderID, userID) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memCollabs struct{ m *memDB }

func (r memCollabs) Upsert(_ context.Context, c *models.Collaborator) (bool, error) {
	if old, ok := r.m.collabs[c.ID]; ok && (old.UserID != "" || old.FolderID != c.FolderID) {
		return false, nil
	}
	r.m.collabs[c.ID] = *c
	return true, nil
}

func (r memCollabs) ListPendingByEmail(_ context.Context, email string) ([]models.Collaborator, error) {
	var out []models.Collaborator
	for _, c := range r.m.collabs {
		if c.UserID == "" && strings.EqualFold(c.Email, email) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memCollabs) Accept(_ context.Context, id, userID string) (bool, error) {
	c, ok := r.m.collabs[id]
	if !ok || c.UserID != "" {
		return false, nil
	}
	c.UserID = userID
	r.m.collabs[id] = c
	return true, nil
}

func (r memCollabs) ListVisible(_ context.Context, userID string) ([]models.Collaborator, error) {
	var out []models.Collaborator
	for _, c := range r.m.collabs {
		if r.m.visible(c.FolderID, userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memManager struct{ m *memDB }

func (mm memManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (mm memManager) Users(dbx.DBTX) users.Repository                 { return memUsers(mm) }
func (mm memManager) Folders(dbx.DBTX) folders.Repository             { return memFolders(mm) }
func (mm memManager) Notes(dbx.DBTX) notes.Repository                 { return memNotes(mm) }
func (mm memManager) Collaborators(dbx.DBTX) collaborators.Repository { return memCollabs(mm) }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}
