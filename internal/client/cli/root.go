package cli

import (
	"context"
	"errors"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if u := a.session.User(); u.AuthToken != "" && u.Email != "" {
		s = u.Email + " "
	}
	s += string(a.mode())
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root starts the background workers (connectivity watcher, join links,
// UI bridge), runs the REPL until the user exits, then stops the workers.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn("Welcome to CodeX Notes (type 'help' for commands)")

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	if a.links != nil {
		go func() {
			if err := a.invites.Listen(ctx, a.links.Run(ctx), a.reportJoin); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn(ctx, "join link listener stopped", "error", err)
			}
		}()
	}

	if a.config.BridgeAddr != "" {
		go func() {
			if err := a.bridge.ListenAndServe(ctx, a.config.BridgeAddr); err != nil {
				a.log.Error(ctx, "ui bridge stopped", "error", err)
			}
		}()
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Run is Root followed by Close.
func (a *App) Run(ctx context.Context) error {
	a.Root(ctx)
	return a.Close()
}
