package remote

import (
	"context"
	"time"
)

// DefaultProbeTimeout bounds a single reachability check.
const DefaultProbeTimeout = 3 * time.Second

// Pinger is the subset of Client a Prober needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober answers "is the backend reachable right now".
type Prober struct {
	p       Pinger
	timeout time.Duration
}

func NewProber(p Pinger, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{p: p, timeout: timeout}
}

// Online never returns an error: any failure, including a slow backend,
// reads as offline.
func (p *Prober) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.p.Ping(ctx) == nil
}
