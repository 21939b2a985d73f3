package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/client/invite"
	"github.com/dmitrijs2005/codexnotes/internal/client/services"
	"github.com/dmitrijs2005/codexnotes/internal/common"
)

func (a *App) report(res services.Result) {
	if res.OK {
		printlnFn(res.Message)
		return
	}
	printlnFn("error:", res.Message)
}

// done reports err (or the formatted success message) and passes err on.
func (a *App) done(err error, format string, args ...any) error {
	a.report(services.ResultOf(err, format, args...))
	return err
}

func usage(text string) error {
	printlnFn("Usage:", text)
	return common.NewValidationError("", "usage: "+text)
}

// confirmLoss is the logout prompt for unsynced work.
func (a *App) confirmLoss(ctx context.Context, dirty int) bool {
	return Confirm(a.reader, fmt.Sprintf("%d unsynced change(s) will be lost. Log out anyway?", dirty), a.out)
}

func (a *App) Login(ctx context.Context) error {
	printlnFn("Opening the browser to sign in...")
	u, err := a.auth.Login(ctx)
	who := u.Email
	if who == "" {
		who = u.Name
	}
	return a.done(err, "Logged in as %s", who)
}

func (a *App) Logout(ctx context.Context) error {
	return a.done(a.auth.Logout(ctx, a.confirmLoss), "Logged out")
}

func (a *App) Sync(ctx context.Context) error {
	rep, err := a.engine.Sync(ctx)
	if err == nil && rep.Skipped {
		printlnFn("Nothing to sync: log in first")
		return nil
	}
	return a.done(err, "Synced: %d pushed, %d applied", rep.Pushed, rep.Applied)
}

func (a *App) List(ctx context.Context) error {
	tree, err := a.notes.List(ctx)
	if err != nil {
		return a.done(err, "")
	}
	for _, item := range tree {
		f := item.Folder
		label := f.Title
		if f.IsRoot {
			label = "[root] " + label
		}
		if n := len(f.CollaboratorIDs); n > 0 {
			label = fmt.Sprintf("%s (shared with %d)", label, n)
		}
		printlnFn(fmt.Sprintf("%s  %s", f.ID, label))
		for _, n := range item.Notes {
			printlnFn(fmt.Sprintf("    %s  %s", n.ID, n.Title))
		}
	}
	return nil
}

func (a *App) MakeFolder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("mkfolder <title>")
	}
	f, err := a.notes.CreateFolder(ctx, strings.Join(args, " "))
	return a.done(err, "Created folder %s", f.ID)
}

func (a *App) RenameFolder(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("rename <folder id> <title>")
	}
	return a.done(a.notes.RenameFolder(ctx, args[0], strings.Join(args[1:], " ")), "Renamed")
}

func (a *App) RemoveFolder(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rmfolder <folder id>")
	}
	return a.done(a.notes.DeleteFolder(ctx, args[0]), "Removed folder %s", args[0])
}

// AddNote prompts for the title and body; without a folder id the note goes
// to the root folder.
func (a *App) AddNote(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return usage("note [folder id]")
	}
	folderID := ""
	if len(args) == 1 {
		folderID = args[0]
	}
	title, err := GetSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return a.done(err, "")
	}
	body, err := GetMultiline(a.reader, "Content", "", a.out)
	if err != nil {
		return a.done(err, "")
	}
	n, err := a.notes.CreateNote(ctx, folderID, title, body)
	return a.done(err, "Created note %s", n.ID)
}

func (a *App) EditNote(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("edit <note id>")
	}
	title, err := GetSimpleText(a.reader, "New title", a.out)
	if err != nil {
		return a.done(err, "")
	}
	body, err := GetMultiline(a.reader, "New content", "", a.out)
	if err != nil {
		return a.done(err, "")
	}
	return a.done(a.notes.UpdateNote(ctx, args[0], title, body), "Saved")
}

func (a *App) RemoveNote(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rm <note id>")
	}
	return a.done(a.notes.DeleteNote(ctx, args[0]), "Removed note %s", args[0])
}

func (a *App) Invite(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("invite <folder id> <email>")
	}
	c, err := a.invites.Invite(ctx, args[0], args[1])
	if err != nil {
		return a.done(err, "")
	}
	return a.done(nil, "Invited %s. Send them this link:\n%s", c.Email, a.invites.JoinURI(c))
}

func (a *App) Join(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage(fmt.Sprintf("join <%s://join/...>", a.config.AppProtocol))
	}
	email, token, err := invite.ParseJoinURI(a.config.AppProtocol, args[0])
	if err != nil {
		return a.done(err, "")
	}
	res, err := a.invites.AcceptInvite(ctx, email, token)
	if err != nil {
		return a.done(err, "")
	}
	return a.done(nil, "Joined folder %s", res.FolderID)
}

func (a *App) Compact(ctx context.Context) error {
	n, err := a.notes.Compact(ctx)
	return a.done(err, "Removed %d synced tombstone(s)", n)
}

func (a *App) Status(ctx context.Context) error {
	s := a.statusSnapshot()
	printlnFn("user:     ", s.UserID)
	if s.Email != "" {
		printlnFn("email:    ", s.Email)
	}
	printlnFn("mode:     ", s.Mode)
	printlnFn("sync:     ", s.Phase, s.Reason)
	if s.LastSyncAt > 0 {
		printlnFn("last sync:", time.Unix(s.LastSyncAt, 0).Format(time.DateTime))
	} else {
		printlnFn("last sync: never")
	}
	if s.Suspended != "" {
		printlnFn("suspended:", s.Suspended)
	}
	return nil
}

// reportJoin prints the outcome of a join link delivered by the OS.
func (a *App) reportJoin(o invite.Outcome) {
	if o.Err != nil {
		a.report(services.Fail(o.Err))
		return
	}
	printlnFn(fmt.Sprintf("Joined folder %s as %s", o.Result.FolderID, o.Email))
}
