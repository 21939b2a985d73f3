package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/codexnotes/internal/client/notify"
	"github.com/dmitrijs2005/codexnotes/internal/client/store"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"golang.org/x/sync/errgroup"
)

func (e *Engine) pass(ctx context.Context) (Report, error) {
	if !e.state.CanSync() {
		return Report{Skipped: true}, nil
	}

	rep := Report{StartedAt: e.clock.Unix()}
	userID := e.state.UserID()
	cursor := e.state.LastSyncAt()

	e.setPhase(Pushing, "")
	changes, err := e.store.ModifiedSince(ctx, cursor, true)
	if err != nil {
		e.setPhase(Failed, err.Error())
		return rep, err
	}

	pushErr := e.push(ctx, changes, &rep)
	if errors.Is(pushErr, common.ErrUnauthorized) {
		return rep, e.fail(ctx, pushErr)
	}

	// The pull runs whether or not every mutation went through.
	e.setPhase(Pulling, "")
	resp, err := e.remote.Sync(ctx, userID)
	if err != nil {
		return rep, e.fail(ctx, err)
	}
	snap, err := decodeSnapshot(resp, userID)
	if err != nil {
		return rep, e.fail(ctx, err)
	}
	applied, err := e.apply(ctx, snap, rep.StartedAt, toSet(rep.PushFailed))
	if err != nil {
		e.setPhase(Failed, err.Error())
		return rep, err
	}
	rep.Pulled = true
	rep.Applied = applied

	if pushErr != nil {
		return rep, e.fail(ctx, pushErr)
	}

	if err := e.state.SetLastSyncAt(ctx, rep.StartedAt); err != nil {
		e.setPhase(Failed, err.Error())
		return rep, err
	}
	rep.CursorAdvanced = true

	e.setPhase(Idle, "")
	if e.pub != nil {
		e.pub.Publish(ctx, notify.Event{Kind: notify.SyncCompleted})
	}
	e.log.Info(ctx, "sync pass done",
		"pushed", rep.Pushed, "rejected", len(rep.Rejected), "stale", len(rep.Stale),
		"applied", rep.Applied, "cursor", rep.StartedAt)
	return rep, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// fail parks the engine in Failed. An auth failure also suspends remote sync
// on the session so later triggers are no-ops until the user logs in again.
func (e *Engine) fail(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrUnauthorized) {
		e.state.Suspend(ctx, err)
	}
	e.setPhase(Failed, err.Error())
	e.log.Warn(ctx, "sync pass failed", "error", err)
	return err
}

// rejected reports errors the backend will give again for the same entity.
// Retrying them cannot help; the pull restores the backend's version.
func rejected(err error) bool {
	return errors.Is(err, common.ErrForbidden) || errors.Is(err, common.ErrValidation)
}

// push sends every dirty folder, then every dirty note. Folders go first so
// that a note never reaches the backend ahead of a folder created in the same
// batch. Failures are collected, not returned early.
//
// Only transport-level failures leave an entity in PushFailed. Entities the
// backend refused for this caller go to Rejected, and those it did not store
// because it already had a newer version go to Stale.
func (e *Engine) push(ctx context.Context, ch store.Changes, rep *Report) error {
	var (
		mu      sync.Mutex
		authErr error
		lastErr error
	)
	record := func(kind, id string, applied bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil && applied:
			rep.Pushed++
		case err == nil:
			e.log.Info(ctx, "backend kept a newer version", "kind", kind, "id", id)
			rep.Stale = append(rep.Stale, id)
		case rejected(err):
			e.log.Warn(ctx, "push rejected", "kind", kind, "id", id, "error", err)
			rep.Rejected = append(rep.Rejected, id)
		default:
			e.log.Warn(ctx, "push failed", "kind", kind, "id", id, "error", err)
			rep.PushFailed = append(rep.PushFailed, id)
			lastErr = err
			if authErr == nil && errors.Is(err, common.ErrUnauthorized) {
				authErr = err
			}
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(e.pushLimit)
	for _, f := range ch.Folders {
		f := f // per-iteration copy (go < 1.22 loop semantics)
		g.Go(func() error {
			resp, err := e.remote.FolderMutation(ctx, folderMutation(f))
			record("folder", f.ID, err == nil && resp != nil && resp.Applied, err)
			return nil
		})
	}
	_ = g.Wait()

	if authErr == nil {
		g = new(errgroup.Group)
		g.SetLimit(e.pushLimit)
		for _, n := range ch.Notes {
			n := n // per-iteration copy (go < 1.22 loop semantics)
			g.Go(func() error {
				resp, err := e.remote.NoteMutation(ctx, noteMutation(n))
				record("note", n.ID, err == nil && resp != nil && resp.Applied, err)
				return nil
			})
		}
		_ = g.Wait()
	}

	sort.Strings(rep.PushFailed)
	sort.Strings(rep.Rejected)
	sort.Strings(rep.Stale)
	switch {
	case authErr != nil:
		return authErr
	case len(rep.PushFailed) > 0:
		return fmt.Errorf("push: %d of %d mutations failed: %w",
			len(rep.PushFailed), len(ch.Folders)+len(ch.Notes), lastErr)
	}
	return nil
}

// pending collects at most one event per entity for the pass, last write
// wins, and publishes them in first-seen order.
type pending struct {
	order []string
	byKey map[string]notify.Event
}

func (p *pending) add(key string, ev notify.Event) {
	if p.byKey == nil {
		p.byKey = make(map[string]notify.Event)
	}
	if _, ok := p.byKey[key]; !ok {
		p.order = append(p.order, key)
	}
	p.byKey[key] = ev
}

func (p *pending) publish(ctx context.Context, pub notify.Publisher) {
	if pub == nil {
		return
	}
	for _, k := range p.order {
		pub.Publish(ctx, p.byKey[k])
	}
}

// apply writes the snapshot. Entities in keep failed to push this pass and
// keep their local version so they stay dirty. It returns the number of
// documents changed.
func (e *Engine) apply(ctx context.Context, s *snapshot, now int64, keep map[string]bool) (int, error) {
	var (
		events  pending
		applied int
	)

	rootID, err := e.adoptRoot(ctx, s, now, &events)
	if err != nil {
		return 0, err
	}

	folders := e.store.Folders()
	for _, rf := range s.folders {
		if keep[rf.ID] {
			continue
		}
		local, err := folders.Get(ctx, rf.ID)
		if err != nil {
			return applied, err
		}
		f := e.reconciler.Folder(local, rf)
		res, err := folders.Upsert(ctx, f.ID, f)
		if err != nil {
			return applied, err
		}
		if res.Upserted || res.Affected > 0 {
			applied++
			events.add("folder:"+f.ID, notify.FolderEvent(f))
		}
	}

	notes := e.store.Notes()
	for _, rn := range s.notes {
		if keep[rn.ID] {
			continue
		}
		local, err := notes.Get(ctx, rn.ID)
		if err != nil {
			return applied, err
		}
		n := e.reconciler.Note(local, rn)
		res, err := notes.Upsert(ctx, n.ID, n)
		if err != nil {
			return applied, err
		}
		if res.Upserted || res.Affected > 0 {
			applied++
			events.add("note:"+n.ID, notify.NoteEvent(n, n.FolderID == rootID))
		}
	}

	collaborators := e.store.Collaborators()
	for _, c := range s.collaborators {
		res, err := collaborators.Upsert(ctx, c.ID, c)
		if err != nil {
			return applied, err
		}
		if res.Upserted {
			applied++
			events.add("collaborator:"+c.ID, notify.CollaboratorEvent(c))
		} else if res.Affected > 0 {
			applied++
		}
	}

	events.publish(ctx, e.pub)
	return applied, nil
}

// adoptRoot makes the snapshot's root the only live root. A different local
// root, typically created on this device before login, is tombstoned and its
// live notes move to the adopted root. Both changes are dirty and reach the
// backend with the next pass. Returns the id of the live root.
func (e *Engine) adoptRoot(ctx context.Context, s *snapshot, now int64, events *pending) (string, error) {
	local, err := e.store.RootFolder(ctx)
	if err != nil {
		return "", err
	}
	if s.root == nil {
		if local == nil {
			return "", nil
		}
		return local.ID, nil
	}
	if local == nil || local.ID == s.root.ID {
		return s.root.ID, nil
	}

	notes := e.store.Notes()
	moved, err := notes.Find(ctx, store.Query{"folderId": local.ID, "isRemoved": false})
	if err != nil {
		return "", err
	}
	for _, n := range moved {
		n.FolderID = s.root.ID
		n.DtModify = max(now, n.DtModify)
		if _, err := notes.Upsert(ctx, n.ID, n); err != nil {
			return "", err
		}
		events.add("note:"+n.ID, notify.NoteEvent(n, true))
	}

	old := *local
	old.IsRemoved = true
	old.DtModify = max(now, old.DtModify)
	if _, err := e.store.Folders().Upsert(ctx, old.ID, old); err != nil {
		return "", err
	}
	events.add("folder:"+old.ID, notify.FolderEvent(old))

	e.log.Info(ctx, "adopted remote root folder",
		"local_root", local.ID, "remote_root", s.root.ID, "moved_notes", len(moved))
	return s.root.ID, nil
}
