package models

// Collaborator is an invitation to a folder. UserID stays empty until the
// invited person redeems the token; only the bcrypt hash of the token is kept.
type Collaborator struct {
	ID        string
	FolderID  string
	Email     string
	TokenHash string
	UserID    string
	DtInvite  int64
}

// Pending reports whether the invitation has not been redeemed yet.
func (c *Collaborator) Pending() bool { return c.UserID == "" }
