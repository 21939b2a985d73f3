package models

type Folder struct {
	ID        string
	OwnerID   string
	Title     string
	IsRoot    bool
	DtCreate  int64
	DtModify  int64
	IsRemoved bool
}

// Live reports whether the folder is not tombstoned.
func (f *Folder) Live() bool { return f != nil && !f.IsRemoved }
