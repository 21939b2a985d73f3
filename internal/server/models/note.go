package models

type Note struct {
	ID            string
	FolderID      string
	AuthorID      string
	Title         string
	Content       string
	EditorVersion string
	DtCreate      int64
	DtModify      int64
	IsRemoved     bool
}
