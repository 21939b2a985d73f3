package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/dmitrijs2005/codexnotes/internal/client/notify"
	"github.com/dmitrijs2005/codexnotes/internal/client/store"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
	"github.com/google/uuid"
)

// DefaultEditorVersion tags notes created by this client.
const DefaultEditorVersion = "2.0"

// NotesService edits folders and notes. Every write stamps dtModify with the
// current time, which is what makes it eligible for the next push, and asks
// the session for a background sync. dtModify never moves backwards, even when
// a pulled version is dated ahead of the local clock.
//
// Folders can only be renamed or removed by their owner; collaborators edit
// the notes inside.
type NotesService interface {
	CreateFolder(ctx context.Context, title string) (models.Folder, error)
	RenameFolder(ctx context.Context, id, title string) error
	DeleteFolder(ctx context.Context, id string) error
	CreateNote(ctx context.Context, folderID, title, content string) (models.Note, error)
	UpdateNote(ctx context.Context, id, title, content string) error
	DeleteNote(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.FolderWithNotes, error)
	Compact(ctx context.Context) (int64, error)
}

// Session is the part of the session the command layer needs.
type Session interface {
	UserID() string
	LastSyncAt() int64
	RequestSync(ctx context.Context)
}

type notesService struct {
	store   *store.Store
	session Session
	pub     notify.Publisher
	clock   timex.Clock
}

func NewNotesService(st *store.Store, sess Session, pub notify.Publisher, clock timex.Clock) NotesService {
	if clock == nil {
		clock = timex.System
	}
	return &notesService{store: st, session: sess, pub: pub, clock: clock}
}

func (s *notesService) changed(ctx context.Context, ev notify.Event) {
	if s.pub != nil {
		s.pub.Publish(ctx, ev)
	}
	s.session.RequestSync(ctx)
}

func requireTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", common.NewValidationError("title", "title is required")
	}
	return title, nil
}

func (s *notesService) liveFolder(ctx context.Context, id string) (*models.Folder, error) {
	f, err := s.store.Folders().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil || f.IsRemoved {
		return nil, fmt.Errorf("folder %s: %w", id, common.ErrNotFound)
	}
	return f, nil
}

// ownedFolder is liveFolder restricted to folders the current user owns.
func (s *notesService) ownedFolder(ctx context.Context, id string) (*models.Folder, error) {
	f, err := s.liveFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.IsRoot {
		return nil, common.ErrRootFolderImmutable
	}
	if f.OwnerID != s.session.UserID() {
		return nil, common.NewValidationError("folder", "only the owner can change a shared folder")
	}
	return f, nil
}

// touch returns the dtModify for a local write over a version stamped prev.
func (s *notesService) touch(prev int64) int64 {
	return max(s.clock.Unix(), prev)
}

func (s *notesService) liveNote(ctx context.Context, id string) (*models.Note, error) {
	n, err := s.store.Notes().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil || n.IsRemoved {
		return nil, fmt.Errorf("note %s: %w", id, common.ErrNotFound)
	}
	return n, nil
}

func (s *notesService) CreateFolder(ctx context.Context, title string) (models.Folder, error) {
	title, err := requireTitle(title)
	if err != nil {
		return models.Folder{}, err
	}
	now := s.clock.Unix()
	f, err := s.store.Folders().Insert(ctx, models.Folder{
		ID:              uuid.NewString(),
		Title:           title,
		OwnerID:         s.session.UserID(),
		CollaboratorIDs: []string{},
		DtCreate:        now,
		DtModify:        now,
	})
	if err != nil {
		return models.Folder{}, err
	}
	s.changed(ctx, notify.FolderEvent(f))
	return f, nil
}

func (s *notesService) RenameFolder(ctx context.Context, id, title string) error {
	title, err := requireTitle(title)
	if err != nil {
		return err
	}
	f, err := s.ownedFolder(ctx, id)
	if err != nil {
		return err
	}
	f.Title = title
	f.DtModify = s.touch(f.DtModify)
	if _, err := s.store.Folders().Upsert(ctx, f.ID, *f); err != nil {
		return err
	}
	s.changed(ctx, notify.FolderEvent(*f))
	return nil
}

// DeleteFolder tombstones the folder and every live note in it.
func (s *notesService) DeleteFolder(ctx context.Context, id string) error {
	f, err := s.ownedFolder(ctx, id)
	if err != nil {
		return err
	}

	notes := s.store.Notes()
	live, err := notes.Find(ctx, store.Query{"folderId": id, "isRemoved": false})
	if err != nil {
		return err
	}
	for _, n := range live {
		n.IsRemoved = true
		n.DtModify = s.touch(n.DtModify)
		if _, err := notes.Upsert(ctx, n.ID, n); err != nil {
			return err
		}
	}
	f.IsRemoved = true
	f.DtModify = s.touch(f.DtModify)
	if _, err := s.store.Folders().Upsert(ctx, f.ID, *f); err != nil {
		return err
	}
	s.changed(ctx, notify.FolderEvent(*f))
	return nil
}

// CreateNote files the note under folderID, or under the root folder when
// folderID is empty.
func (s *notesService) CreateNote(ctx context.Context, folderID, title, content string) (models.Note, error) {
	var folder *models.Folder
	var err error
	if folderID == "" {
		folder, err = s.store.RootFolder(ctx)
		if err == nil && folder == nil {
			err = fmt.Errorf("root folder: %w", common.ErrNotFound)
		}
	} else {
		folder, err = s.liveFolder(ctx, folderID)
	}
	if err != nil {
		return models.Note{}, err
	}

	now := s.clock.Unix()
	n, err := s.store.Notes().Insert(ctx, models.Note{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(title),
		FolderID:      folder.ID,
		AuthorID:      s.session.UserID(),
		Content:       content,
		EditorVersion: DefaultEditorVersion,
		DtCreate:      now,
		DtModify:      now,
	})
	if err != nil {
		return models.Note{}, err
	}
	s.changed(ctx, notify.NoteEvent(n, folder.IsRoot))
	return n, nil
}

func (s *notesService) UpdateNote(ctx context.Context, id, title, content string) error {
	n, err := s.liveNote(ctx, id)
	if err != nil {
		return err
	}
	n.Title = strings.TrimSpace(title)
	n.Content = content
	n.DtModify = s.touch(n.DtModify)
	if _, err := s.store.Notes().Upsert(ctx, n.ID, *n); err != nil {
		return err
	}
	s.changed(ctx, notify.NoteEvent(*n, s.inRoot(ctx, n.FolderID)))
	return nil
}

func (s *notesService) DeleteNote(ctx context.Context, id string) error {
	n, err := s.liveNote(ctx, id)
	if err != nil {
		return err
	}
	n.IsRemoved = true
	n.DtModify = s.touch(n.DtModify)
	if _, err := s.store.Notes().Upsert(ctx, n.ID, *n); err != nil {
		return err
	}
	s.changed(ctx, notify.NoteEvent(*n, s.inRoot(ctx, n.FolderID)))
	return nil
}

func (s *notesService) inRoot(ctx context.Context, folderID string) bool {
	root, err := s.store.RootFolder(ctx)
	return err == nil && root != nil && root.ID == folderID
}

// List returns live folders with their live notes, root first.
func (s *notesService) List(ctx context.Context) ([]models.FolderWithNotes, error) {
	folders, err := s.store.Folders().Find(ctx, store.Query{"isRemoved": false})
	if err != nil {
		return nil, err
	}
	notes, err := s.store.Notes().Find(ctx, store.Query{"isRemoved": false})
	if err != nil {
		return nil, err
	}

	byFolder := make(map[string][]models.Note, len(folders))
	for _, n := range notes {
		byFolder[n.FolderID] = append(byFolder[n.FolderID], n)
	}

	out := make([]models.FolderWithNotes, 0, len(folders))
	for _, f := range folders {
		item := models.FolderWithNotes{Folder: f, Notes: byFolder[f.ID]}
		if item.Notes == nil {
			item.Notes = []models.Note{}
		}
		if f.IsRoot {
			out = append([]models.FolderWithNotes{item}, out...)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// Compact drops tombstones that the backend has already seen, i.e. those
// older than the last completed sync.
func (s *notesService) Compact(ctx context.Context) (int64, error) {
	cursor := s.session.LastSyncAt()
	if cursor == 0 {
		return 0, nil
	}
	return s.store.Compact(ctx, cursor)
}
