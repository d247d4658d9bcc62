package bootstrap

import (
	"context"
	"errors"
	"time"

	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

// ProbeResult is the outcome of a capability probe.
type ProbeResult struct {
	Available bool
	Backend   statestore.Backend
	// Reason is set when the backend is unavailable.
	Reason   string
	Err      error
	Duration time.Duration
}

// Available wraps a usable backend.
func Available(b statestore.Backend) ProbeResult {
	return ProbeResult{Available: true, Backend: b}
}

// Unavailable records why a backend cannot be used.
func Unavailable(reason string, err error) ProbeResult {
	return ProbeResult{Reason: reason, Err: err}
}

var errNoOpener = errors.New("no backend configured")

// Probe opens a backend and, when it implements statestore.Prober, checks it.
// A timeout bounds the whole attempt. The backend is closed again on failure.
func Probe(ctx context.Context, open statestore.Opener, timeout time.Duration) ProbeResult {
	start := time.Now()
	if open == nil {
		return Unavailable(errNoOpener.Error(), errNoOpener)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	b, err := open(ctx)
	if err != nil {
		r := Unavailable(err.Error(), err)
		r.Duration = time.Since(start)
		return r
	}
	if p, ok := b.(statestore.Prober); ok {
		if err := p.Probe(ctx); err != nil {
			_ = b.Close()
			r := Unavailable(err.Error(), err)
			r.Duration = time.Since(start)
			return r
		}
	}
	r := Available(b)
	r.Duration = time.Since(start)
	return r
}
