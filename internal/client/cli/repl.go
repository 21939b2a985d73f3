package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Sync(ctx context.Context) error
	List(ctx context.Context) error
	MakeFolder(ctx context.Context, args []string) error
	RenameFolder(ctx context.Context, args []string) error
	RemoveFolder(ctx context.Context, args []string) error
	AddNote(ctx context.Context, args []string) error
	EditNote(ctx context.Context, args []string) error
	RemoveNote(ctx context.Context, args []string) error
	Invite(ctx context.Context, args []string) error
	Join(ctx context.Context, args []string) error
	Compact(ctx context.Context) error
	Status(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: login, (l)ist, mkfolder, rename, rmfolder, note, edit, rm, compact, status, exit"
	helpLoggedIn  = "Available commands: (l)ist, mkfolder, rename, rmfolder, note, edit, rm, invite, join, sync, compact, status, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the CodeX Notes CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a' with the remaining tokens as arguments.
// Unknown commands are reported back to the user. The loop exits on EOF,
// when ctx is done, or when the user types "exit" or "quit".
//
// Editing works without an account; login, sync, invite and join need the
// backend. Errors returned by command handlers are ignored here; handlers
// report their own outcome.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("cn %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "mkfolder":
			_ = a.MakeFolder(ctx, args)

		case "rename":
			_ = a.RenameFolder(ctx, args)

		case "rmfolder":
			_ = a.RemoveFolder(ctx, args)

		case "note":
			_ = a.AddNote(ctx, args)

		case "edit":
			_ = a.EditNote(ctx, args)

		case "rm":
			_ = a.RemoveNote(ctx, args)

		case "invite":
			_ = a.Invite(ctx, args)

		case "join":
			_ = a.Join(ctx, args)

		case "compact":
			_ = a.Compact(ctx)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
