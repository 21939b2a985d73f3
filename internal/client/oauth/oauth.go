// Package oauth runs the interactive login. It starts a loopback HTTP server,
// opens the identity provider in the user's browser and waits for the
// provider to redirect back with a signed identity token.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/auth"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultTimeout bounds a whole login when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Minute

// Profile is what a successful login yields.
type Profile struct {
	UserID     string
	ExternalID string
	Name       string
	Email      string
	Photo      string
	Token      string
}

// ProfileFromToken reads the profile out of an identity token without
// verifying it.
func ProfileFromToken(token string) (Profile, error) {
	c, err := auth.ParseUnverified(token)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		UserID:     c.UserID,
		ExternalID: c.GoogleID,
		Name:       c.Name,
		Email:      c.Email,
		Photo:      c.Photo,
		Token:      token,
	}, nil
}

// Opener shows url to the user, normally in the system browser.
type Opener func(url string) error

type Config struct {
	// AuthURL is the provider's authorize endpoint.
	AuthURL string
	// CallbackAddr is where the loopback server listens, e.g. "127.0.0.1:0".
	CallbackAddr string
	Timeout      time.Duration
}

type Flow struct {
	cfg  Config
	open Opener
	log  logging.Logger
}

func NewFlow(cfg Config, open Opener, log logging.Logger) *Flow {
	if cfg.CallbackAddr == "" {
		cfg.CallbackAddr = "127.0.0.1:0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if open == nil {
		open = OpenBrowser
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Flow{cfg: cfg, open: open, log: log.With("module", "oauth")}
}

type outcome struct {
	profile Profile
	err     error
}

// Login blocks until the provider calls back, the user hits /cancel, ctx is
// done or the timeout passes. The last three yield common.ErrCancelled.
func (f *Flow) Login(ctx context.Context) (Profile, error) {
	state, err := common.MakeRandHexString(16)
	if err != nil {
		return Profile{}, err
	}

	ln, err := net.Listen("tcp", f.cfg.CallbackAddr)
	if err != nil {
		return Profile{}, fmt.Errorf("oauth callback listener: %w", err)
	}

	results := make(chan outcome, 1)
	deliver := func(o outcome) {
		select {
		case results <- o:
		default:
		}
	}

	srv := &http.Server{
		Handler:           f.router(state, deliver),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.log.Error(ctx, "oauth callback server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	loginURL, err := f.loginURL("http://"+ln.Addr().String()+"/callback", state)
	if err != nil {
		return Profile{}, err
	}
	if err := f.open(loginURL); err != nil {
		return Profile{}, fmt.Errorf("open browser: %w", err)
	}
	f.log.Info(ctx, "waiting for login", "url", loginURL)

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	select {
	case o := <-results:
		return o.profile, o.err
	case <-ctx.Done():
		return Profile{}, fmt.Errorf("%w: %w", common.ErrCancelled, ctx.Err())
	}
}

func (f *Flow) loginURL(redirect, state string) (string, error) {
	u, err := url.Parse(f.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("auth url: %w", err)
	}
	q := u.Query()
	q.Set("redirect_uri", redirect)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Flow) router(state string, deliver func(outcome)) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		p, err := ProfileFromToken(r.URL.Query().Get("jwt"))
		if err != nil {
			deliver(outcome{err: err})
			http.Error(w, "login failed, you can close this window", http.StatusBadRequest)
			return
		}
		deliver(outcome{profile: p})
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Logged in as " + p.Email + ". You can close this window."))
	})

	r.Get("/cancel", func(w http.ResponseWriter, r *http.Request) {
		deliver(outcome{err: common.ErrCancelled})
		_, _ = w.Write([]byte("Login cancelled."))
	})

	return r
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
