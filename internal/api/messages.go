package api

// SyncRequest asks for the whole graph visible to UserID.
type SyncRequest struct {
	UserID string `json:"userId"`
}

// SyncResponse is the authoritative snapshot: User → Folders → Notes and
// Collaborators.
type SyncResponse struct {
	User *UserNode `json:"user"`
}

type UserNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Photo    string       `json:"photo"`
	GoogleID string       `json:"googleId"`
	DtReg    int64        `json:"dtReg"`
	DtModify int64        `json:"dtModify"`
	Folders  []FolderNode `json:"folders"`
}

type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Photo string `json:"photo,omitempty"`
}

type FolderNode struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Owner         UserRef            `json:"owner"`
	IsRoot        bool               `json:"isRoot"`
	DtCreate      int64              `json:"dtCreate"`
	DtModify      int64              `json:"dtModify"`
	IsRemoved     bool               `json:"isRemoved"`
	Notes         []NoteNode         `json:"notes"`
	Collaborators []CollaboratorNode `json:"collaborators"`
}

type NoteNode struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	EditorVersion string  `json:"editorVersion"`
	DtCreate      int64   `json:"dtCreate"`
	DtModify      int64   `json:"dtModify"`
	Author        UserRef `json:"author"`
	IsRemoved     bool    `json:"isRemoved"`
}

type CollaboratorNode struct {
	ID       string   `json:"id"`
	Token    string   `json:"token"`
	Email    string   `json:"email"`
	User     *UserRef `json:"user"`
	DtInvite int64    `json:"dtInvite"`
}

type FolderMutationRequest struct {
	OwnerID   string `json:"ownerId"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	DtModify  int64  `json:"dtModify"`
	DtCreate  int64  `json:"dtCreate"`
	IsRoot    bool   `json:"isRoot"`
	IsRemoved bool   `json:"isRemoved"`
}

// FolderMutationResponse echoes the stored version. Applied is false when the
// backend already held a newer dtModify and kept it.
type FolderMutationResponse struct {
	ID       string `json:"id"`
	DtModify int64  `json:"dtModify"`
	Applied  bool   `json:"applied"`
}

type NoteMutationRequest struct {
	AuthorID      string `json:"authorId"`
	ID            string `json:"id"`
	FolderID      string `json:"folderId"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	EditorVersion string `json:"editorVersion"`
	DtModify      int64  `json:"dtModify"`
	DtCreate      int64  `json:"dtCreate"`
	IsRemoved     bool   `json:"isRemoved"`
}

type NoteMutationResponse struct {
	ID       string `json:"id"`
	DtModify int64  `json:"dtModify"`
	Applied  bool   `json:"applied"`
}

type InviteCollaboratorRequest struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FolderID string `json:"folderId"`
	OwnerID  string `json:"ownerId"`
	DtInvite int64  `json:"dtInvite"`
}

// InviteCollaboratorResponse carries the single-use token. The backend keeps
// only a hash of it.
type InviteCollaboratorResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type VerifyCollaboratorRequest struct {
	Email  string `json:"email"`
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type VerifyCollaboratorResponse struct {
	Success        bool   `json:"success"`
	CollaboratorID string `json:"collaboratorId"`
	FolderID       string `json:"folderId"`
	UserID         string `json:"userId"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
