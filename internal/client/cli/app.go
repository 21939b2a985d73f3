package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/api"
	"github.com/dmitrijs2005/codexnotes/internal/client/config"
	"github.com/dmitrijs2005/codexnotes/internal/client/deeplink"
	"github.com/dmitrijs2005/codexnotes/internal/client/invite"
	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/dmitrijs2005/codexnotes/internal/client/notify"
	"github.com/dmitrijs2005/codexnotes/internal/client/oauth"
	"github.com/dmitrijs2005/codexnotes/internal/client/remote"
	"github.com/dmitrijs2005/codexnotes/internal/client/services"
	"github.com/dmitrijs2005/codexnotes/internal/client/session"
	"github.com/dmitrijs2005/codexnotes/internal/client/store"
	clientsync "github.com/dmitrijs2005/codexnotes/internal/client/sync"
	"github.com/dmitrijs2005/codexnotes/internal/client/uibridge"
	"github.com/dmitrijs2005/codexnotes/internal/filex"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// syncer is the engine as seen by the commands.
type syncer interface {
	Sync(ctx context.Context) (clientsync.Report, error)
	Trigger(ctx context.Context)
	Status() clientsync.Status
	Wait()
}

// inviter is the sharing flow as seen by the commands.
type inviter interface {
	Invite(ctx context.Context, folderID, email string) (models.Collaborator, error)
	JoinURI(c models.Collaborator) string
	AcceptInvite(ctx context.Context, email, token string) (*api.VerifyCollaboratorResponse, error)
	Listen(ctx context.Context, links <-chan string, report func(invite.Outcome)) error
}

// sessionView is what the status line and the commands read from the session.
type sessionView interface {
	User() models.User
	LastSyncAt() int64
	CanSync() bool
	Suspended() error
}

type App struct {
	config  *config.Config
	log     logging.Logger
	session sessionView
	notes   services.NotesService
	auth    services.AuthService
	invites inviter
	engine  syncer
	bridge  *uibridge.Bridge
	links   *deeplink.Watcher
	online  func(ctx context.Context) bool

	reader *bufio.Reader
	out    io.Writer

	modeMu sync.RWMutex
	Mode   Mode

	closers []io.Closer
}

// NewApp opens the local store in cfg.DataDir and wires every client
// component together. The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}
	dataDir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	a := &App{
		config: cfg,
		log:    log.With("module", "cli"),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	st, err := store.Open(ctx, cfg.DatabasePath())
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}
	a.closers = append(a.closers, st)

	// The token source reads the session, which is built after the client.
	var sess *session.Session
	rc, err := remote.NewGRPCClient(cfg.ServerEndpointAddr,
		remote.TokenFunc(func() string { return sess.AuthToken() }),
		remote.WithCallTimeout(cfg.CallTimeout),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rc)

	prober := remote.NewProber(rc, remote.DefaultProbeTimeout)
	a.online = prober.Online

	flow := oauth.NewFlow(oauth.Config{
		AuthURL:      cfg.AuthURL,
		CallbackAddr: cfg.CallbackAddr,
		Timeout:      cfg.OAuthTimeout,
	}, oauth.OpenBrowser, log)

	sess = session.New(st, flow, prober, timex.System, log)
	if err := sess.Init(ctx); err != nil {
		return nil, err
	}

	notifier := notify.New(log)
	engine := clientsync.NewEngine(st, rc, sess, notifier, log, clientsync.Options{
		PushConcurrency: cfg.PushConcurrency,
		Reconciler:      clientsync.ReconcilerByName(cfg.Reconciler),
	})
	sess.SetSyncer(engine)

	a.session = sess
	a.engine = engine
	a.notes = services.NewNotesService(st, sess, notifier, timex.System)
	a.auth = services.NewAuthService(sess, prober)
	a.invites = invite.NewService(st, rc, sess, notifier, cfg.AppProtocol, timex.System, log)

	a.bridge = uibridge.New(uibridge.Hooks{
		Status: func(ctx context.Context) any { return a.statusSnapshot() },
		Refresh: func(ctx context.Context) error {
			_, err := a.engine.Sync(ctx)
			return err
		},
	}, log)
	notifier.Subscribe(a.bridge)
	notifier.Subscribe(notify.SubscriberFunc(func(ctx context.Context, ev notify.Event) {
		a.log.Debug(ctx, "change", "kind", ev.Kind)
	}))

	spool, err := filex.EnsureDir(cfg.LinkSpoolDir())
	if err != nil {
		return nil, err
	}
	a.links, err = deeplink.NewWatcher(spool, log)
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// Close waits for a running sync pass and releases the store and the
// backend connection.
func (a *App) Close() error {
	if a.engine != nil {
		a.engine.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) isLoggedIn() bool {
	return a.session.User().AuthToken != ""
}

func (a *App) mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.Mode
}

// setMode records the connectivity mode and reports whether this call
// moved the client from offline (or unknown) to online.
func (a *App) setMode(ctx context.Context, mode Mode) (cameOnline bool) {
	a.modeMu.Lock()
	prev := a.Mode
	a.Mode = mode
	a.modeMu.Unlock()

	if prev == mode {
		return false
	}
	a.log.Info(ctx, "switched mode", "mode", mode)
	return mode == ModeOnline
}

// StartOnlineStatusWatcher probes the backend every interval until ctx is
// done. Coming back online starts a sync pass.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		mode := ModeOffline
		if a.online(ctx) {
			mode = ModeOnline
		}
		if a.setMode(ctx, mode) && a.session.CanSync() {
			a.engine.Trigger(ctx)
		}
	}

	check()
	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}

// StatusSnapshot is what GET /status on the UI bridge returns.
type StatusSnapshot struct {
	UserID     string `json:"userId"`
	Email      string `json:"email,omitempty"`
	LoggedIn   bool   `json:"loggedIn"`
	Mode       Mode   `json:"mode"`
	Phase      string `json:"phase"`
	Reason     string `json:"reason,omitempty"`
	LastSyncAt int64  `json:"lastSyncAt"`
	Suspended  string `json:"suspended,omitempty"`
}

func (a *App) statusSnapshot() StatusSnapshot {
	u := a.session.User()
	st := a.engine.Status()
	s := StatusSnapshot{
		UserID:     u.ID,
		Email:      u.Email,
		LoggedIn:   u.AuthToken != "",
		Mode:       a.mode(),
		Phase:      st.Phase.String(),
		Reason:     st.Reason,
		LastSyncAt: a.session.LastSyncAt(),
	}
	if err := a.session.Suspended(); err != nil {
		s.Suspended = err.Error()
	}
	return s
}
