// Package uibridge exposes the client to a separate UI process over local
// HTTP: change events stream over a websocket at /events, /status reports
// the sync state and POST /sync asks for a manual refresh.
package uibridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/dmitrijs2005/codexnotes/internal/client/notify"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	clientBuffer = 64
	writeTimeout = 5 * time.Second
)

// Hooks connect the bridge to the rest of the client. Either may be nil.
type Hooks struct {
	Status  func(ctx context.Context) any
	Refresh func(ctx context.Context) error
}

type Bridge struct {
	hooks Hooks
	log   logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	send chan []byte
}

func New(hooks Hooks, log logging.Logger) *Bridge {
	if log == nil {
		log = logging.Nop()
	}
	return &Bridge{hooks: hooks, log: log.With("module", "uibridge"), clients: map[*client]struct{}{}}
}

// Notify queues ev for every connected UI. It never blocks: a client that
// has fallen behind loses the event.
func (b *Bridge) Notify(ctx context.Context, ev notify.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.log.Error(ctx, "failed to encode event", "error", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			b.log.Warn(ctx, "ui client is too slow, dropping event", "kind", string(ev.Kind))
		}
	}
}

// ClientCount reports the number of connected websocket clients.
func (b *Bridge) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Bridge) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/events", b.handleEvents)
	r.Get("/status", b.handleStatus)
	r.Post("/sync", b.handleSync)
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (b *Bridge) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return b.Serve(ctx, ln)
}

func (b *Bridge) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: b.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	b.log.Info(ctx, "ui bridge listening", "addr", ln.Addr().String())

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

func (b *Bridge) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		b.log.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	c := &client{send: make(chan []byte, clientBuffer)}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.clients, c)
		b.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	// The UI never sends anything; CloseRead notices when it goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				b.log.Debug(ctx, "ui client write failed", "error", err)
				return
			}
		}
	}
}

func (b *Bridge) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body any = map[string]any{}
	if b.hooks.Status != nil {
		body = b.hooks.Status(r.Context())
	}
	writeJSON(w, http.StatusOK, body)
}

func (b *Bridge) handleSync(w http.ResponseWriter, r *http.Request) {
	if b.hooks.Refresh == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "sync is not available"})
		return
	}
	if err := b.hooks.Refresh(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
