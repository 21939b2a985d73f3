package sync

import "github.com/dmitrijs2005/codexnotes/internal/client/models"

// Reconciler decides what gets written locally when the pulled snapshot
// carries an entity. local is nil when the id is new to this device.
type Reconciler interface {
	Folder(local *models.Folder, remote models.Folder) models.Folder
	Note(local *models.Note, remote models.Note) models.Note
}

// OverwriteReconciler is the default: the backend is authoritative and its
// copy replaces every local field. An edit made after the push snapshot was
// read and before the pull lands is lost.
type OverwriteReconciler struct{}

func (OverwriteReconciler) Folder(_ *models.Folder, remote models.Folder) models.Folder {
	return remote
}

func (OverwriteReconciler) Note(_ *models.Note, remote models.Note) models.Note {
	return remote
}

// LastWriteWinsReconciler keeps the local copy when it is strictly newer.
// The kept copy stays dirty and is pushed by the next pass.
type LastWriteWinsReconciler struct{}

func (LastWriteWinsReconciler) Folder(local *models.Folder, remote models.Folder) models.Folder {
	if local != nil && local.DtModify > remote.DtModify {
		return *local
	}
	return remote
}

func (LastWriteWinsReconciler) Note(local *models.Note, remote models.Note) models.Note {
	if local != nil && local.DtModify > remote.DtModify {
		return *local
	}
	return remote
}

// ReconcilerByName maps a config value to a Reconciler. Unknown names fall
// back to OverwriteReconciler.
func ReconcilerByName(name string) Reconciler {
	switch name {
	case "lww", "last-write-wins":
		return LastWriteWinsReconciler{}
	default:
		return OverwriteReconciler{}
	}
}
