// Package models defines the documents kept in the local store: the single
// active User, Folders, Notes and Collaborators. Field names double as the
// JSON keys the store queries on.
package models

// User is the one active account on this device. A fresh install starts with
// an anonymous stub (empty AuthToken) that is filled in after OAuth.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Photo      string `json:"photo"`
	ExternalID string `json:"externalId"`
	AuthToken  string `json:"authToken"`
	LastSyncAt int64  `json:"lastSyncAt"`
}

// Anonymous reports whether the user has never completed a login.
func (u *User) Anonymous() bool {
	return u.AuthToken == ""
}

// Folder groups notes. Exactly one live folder per account has IsRoot set.
type Folder struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	OwnerID         string   `json:"ownerId"`
	IsRoot          bool     `json:"isRoot"`
	CollaboratorIDs []string `json:"collaboratorIds"`
	DtCreate        int64    `json:"dtCreate"`
	DtModify        int64    `json:"dtModify"`
	IsRemoved       bool     `json:"isRemoved"`
}

// Note is a single document. Content is an opaque editor payload.
type Note struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	FolderID      string `json:"folderId"`
	AuthorID      string `json:"authorId"`
	Content       string `json:"content"`
	EditorVersion string `json:"editorVersion"`
	DtCreate      int64  `json:"dtCreate"`
	DtModify      int64  `json:"dtModify"`
	IsRemoved     bool   `json:"isRemoved"`
}

// Collaborator is an invitation to share a folder. UserID stays empty until
// the invited person accepts.
type Collaborator struct {
	ID          string `json:"id"`
	FolderID    string `json:"folderId"`
	Email       string `json:"email"`
	UserID      string `json:"userId"`
	InviteToken string `json:"inviteToken"`
	DtInvite    int64  `json:"dtInvite"`
}

// Pending reports whether the invitation has not been accepted yet.
func (c *Collaborator) Pending() bool {
	return c.UserID == ""
}

// FolderWithNotes is the listing shape handed to the presentation layer.
type FolderWithNotes struct {
	Folder Folder `json:"folder"`
	Notes  []Note `json:"notes"`
}
