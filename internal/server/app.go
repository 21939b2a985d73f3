// Package server wires the CodeX Notes backend: PostgreSQL storage with
// embedded migrations, the gRPC notes API and the development identity
// provider.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/codexnotes/internal/cryptox"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/dmitrijs2005/codexnotes/internal/server/config"
	"github.com/dmitrijs2005/codexnotes/internal/server/identity"
	"github.com/dmitrijs2005/codexnotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/codexnotes/internal/server/services"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/codexnotes/internal/server/grpc"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	userService  *services.UserService
	notesService *services.NotesService
}

// NewLogger returns the JSON logger the server writes to w.
func NewLogger(w io.Writer, level string) logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logging.ParseLevel(level)})))
}

func NewApp(c *config.Config) (*App, error) {
	logger := NewLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	us := services.NewUserService(db, rm, timex.System)
	ns := services.NewNotesService(db, rm, cryptox.NewTokenHasher(c.InviteHashCost), timex.System)

	return &App{config: c, logger: logger, db: db, repomanager: rm, userService: us, notesService: ns}, nil
}

// Run migrates the schema and serves until ctx is done or a server fails.
func (app *App) Run(ctx context.Context) error {
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.notesService, app.config.SecretKey)
		return s.Run(ctx)
	})

	if app.config.EndpointAddrHTTP != "" {
		g.Go(func() error {
			p := identity.NewProvider(app.userService, app.config.SecretKey, app.config.TokenValidityDuration, app.logger)
			return p.ListenAndServe(ctx, app.config.EndpointAddrHTTP)
		})
	}

	err := g.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return err
}
