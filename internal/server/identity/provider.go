// Package identity is a development identity provider. It stands in for the
// external OAuth provider: /oauth/authorize asks for an email address, maps
// it to a backend account and redirects to the client's loopback callback
// with a signed identity token.
package identity

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/auth"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AuthorizePath is where clients send the browser to log in.
const AuthorizePath = "/oauth/authorize"

// ExternalIDPrefix marks accounts created through this provider.
const ExternalIDPrefix = "dev:"

// Resolver maps an external account to a backend identity.
type Resolver interface {
	Resolve(ctx context.Context, googleID, name, email, photo string) (auth.Identity, error)
}

type Provider struct {
	users  Resolver
	secret []byte
	ttl    time.Duration
	log    logging.Logger
}

func NewProvider(users Resolver, secretKey string, ttl time.Duration, log logging.Logger) *Provider {
	if log == nil {
		log = logging.Nop()
	}
	return &Provider{users: users, secret: []byte(secretKey), ttl: ttl, log: log.With("module", "identity")}
}

var loginPage = template.Must(template.New("login").Parse(`<!doctype html>
<html><head><title>CodeX Notes login</title></head>
<body>
<form method="get" action="{{.Action}}">
<input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
<input type="hidden" name="state" value="{{.State}}">
<p><label>Email <input type="email" name="email" required></label></p>
<p><label>Name <input type="text" name="name"></label></p>
<p><button type="submit">Log in</button></p>
</form>
</body></html>
`))

func (p *Provider) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(AuthorizePath, p.handleAuthorize)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (p *Provider) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirect, err := loopbackRedirect(q.Get("redirect_uri"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state := q.Get("state")

	email := strings.TrimSpace(q.Get("email"))
	if email == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = loginPage.Execute(w, map[string]string{
			"Action":      AuthorizePath,
			"RedirectURI": redirect.String(),
			"State":       state,
		})
		return
	}
	if err := common.ValidateEmail(email); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}

	id, err := p.users.Resolve(r.Context(), ExternalIDPrefix+strings.ToLower(email), name, email, q.Get("photo"))
	if err != nil {
		p.log.Error(r.Context(), "failed to resolve user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	token, err := auth.GenerateToken(id, p.secret, p.ttl)
	if err != nil {
		p.log.Error(r.Context(), "failed to sign token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	rq := redirect.Query()
	rq.Set("jwt", token)
	rq.Set("state", state)
	redirect.RawQuery = rq.Encode()

	p.log.Info(r.Context(), "issued identity token", "user_id", id.UserID)
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

// loopbackRedirect accepts only plain http callbacks on this machine.
func loopbackRedirect(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("redirect_uri is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return nil, errors.New("redirect_uri must be an http url")
	}
	host := u.Hostname()
	if host == "localhost" {
		return u, nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return u, nil
	}
	return nil, errors.New("redirect_uri must point to a loopback address")
}

// ListenAndServe serves on addr until ctx is done.
func (p *Provider) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: p.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	p.log.Info(ctx, "identity provider listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
