// Package sync is the offline-first synchronization engine.
//
// A pass pushes every folder and note whose dtModify is at or after the
// session cursor, then pulls the authoritative graph for the user and writes
// it into the local store through a Reconciler. The pull runs even when some
// mutations failed; those entities keep their local version. The cursor only
// moves when every push was delivered and the pull was applied, so anything
// that failed is simply pushed again by a later pass.
//
// At most one pass runs at a time. Sync calls that arrive while a pass is in
// flight are coalesced into one follow-up pass whose outcome every coalesced
// caller receives.
package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/codexnotes/internal/client/notify"
	"github.com/dmitrijs2005/codexnotes/internal/client/remote"
	"github.com/dmitrijs2005/codexnotes/internal/client/store"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
)

// DefaultPushConcurrency bounds in-flight mutations of one push batch.
const DefaultPushConcurrency = 4

// State is the part of the session the engine reads and advances.
type State interface {
	// CanSync is false without an auth token or while remote sync is
	// suspended after an auth failure.
	CanSync() bool
	UserID() string
	LastSyncAt() int64
	SetLastSyncAt(ctx context.Context, at int64) error
	// Suspend stops remote sync until a new identity is adopted.
	Suspend(ctx context.Context, cause error)
}

type Phase int

const (
	Idle Phase = iota
	Pushing
	Pulling
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pushing:
		return "pushing"
	case Pulling:
		return "pulling"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Status is the engine state. Reason is set only in Failed. Failed is kept
// after the pass so the UI can show why; it does not block anything and the
// next Sync starts a fresh pass.
type Status struct {
	Phase  Phase
	Reason string
}

// Report describes one pass.
type Report struct {
	// Skipped is set when the entry guard turned the pass into a no-op.
	Skipped   bool
	StartedAt int64

	Pushed int

	// PushFailed lists entities that could not be delivered. They stay dirty
	// and keep their local version through the pull.
	PushFailed []string

	// Rejected lists entities the backend refused for this user, and Stale
	// those it left alone because it held a newer version. The pull
	// overwrites both with the backend's copy.
	Rejected []string
	Stale    []string

	Pulled         bool
	Applied        int
	CursorAdvanced bool
}

type Options struct {
	PushConcurrency int
	Reconciler      Reconciler
	Clock           timex.Clock
}

type Engine struct {
	store      *store.Store
	remote     remote.Client
	state      State
	pub        notify.Publisher
	reconciler Reconciler
	clock      timex.Clock
	pushLimit  int
	log        logging.Logger

	mu      sync.Mutex
	status  Status
	running bool
	next    *followUp
	wg      sync.WaitGroup
}

// followUp is the single queued pass shared by coalesced callers.
type followUp struct {
	done    chan struct{}
	waiters int
	report  Report
	err     error
}

func NewEngine(st *store.Store, rc remote.Client, state State, pub notify.Publisher, log logging.Logger, opts Options) *Engine {
	if opts.PushConcurrency <= 0 {
		opts.PushConcurrency = DefaultPushConcurrency
	}
	if opts.Reconciler == nil {
		opts.Reconciler = OverwriteReconciler{}
	}
	if opts.Clock == nil {
		opts.Clock = timex.System
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{
		store:      st,
		remote:     rc,
		state:      state,
		pub:        pub,
		reconciler: opts.Reconciler,
		clock:      opts.Clock,
		pushLimit:  opts.PushConcurrency,
		log:        log.With("module", "sync"),
	}
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) setPhase(p Phase, reason string) {
	e.mu.Lock()
	e.status = Status{Phase: p, Reason: reason}
	e.mu.Unlock()
}

// Sync runs a pass, or joins the follow-up of the pass already running.
// Passes are never cancelled: ctx only bounds how long this caller waits.
func (e *Engine) Sync(ctx context.Context) (Report, error) {
	e.mu.Lock()
	if e.running {
		if e.next == nil {
			e.next = &followUp{done: make(chan struct{})}
		}
		f := e.next
		f.waiters++
		e.mu.Unlock()

		select {
		case <-f.done:
			return f.report, f.err
		case <-ctx.Done():
			return Report{}, ctx.Err()
		}
	}
	e.running = true
	e.wg.Add(1)
	e.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	rep, err := e.pass(bg)
	e.finish(bg)
	return rep, err
}

// Trigger starts a pass without waiting for it. Wait covers the pass from
// the moment Trigger returns.
func (e *Engine) Trigger(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.Sync(context.WithoutCancel(ctx)); err != nil {
			e.log.Warn(ctx, "background sync failed", "error", err)
		}
	}()
}

// finish hands the engine to a queued follow-up, if any, or marks it idle.
func (e *Engine) finish(ctx context.Context) {
	e.mu.Lock()
	f := e.next
	e.next = nil
	if f == nil {
		e.running = false
		e.mu.Unlock()
		e.wg.Done()
		return
	}
	e.mu.Unlock()

	go func() {
		f.report, f.err = e.pass(ctx)
		close(f.done)
		e.finish(ctx)
	}()
}

// Wait blocks until no pass is running or queued.
func (e *Engine) Wait() {
	e.wg.Wait()
}
