package webhook

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aimylabs/aimy/internal/logging"
)

// PingTimeout bounds a single reachability probe, independent of the main
// request timeout.
const PingTimeout = 5 * time.Second

// PingResult encodes a probe outcome. Probes never return errors; failures
// are part of the result.
type PingResult struct {
	OK      bool
	Status  int
	Method  string
	Timeout bool
}

// Prober checks webhook reachability with an OPTIONS request, falling back
// to GET. Overlapping probes are resolved last-request-wins: a stale probe
// reports Stale(seq) true once a newer one has started.
type Prober struct {
	client *http.Client
	log    *logging.Logger
	seq    atomic.Uint64
}

// NewProber creates a reachability prober.
func NewProber(log *logging.Logger) *Prober {
	return &Prober{
		client: &http.Client{Timeout: PingTimeout},
		log:    log.Sub("ping"),
	}
}

// Begin claims a probe sequence number. The latest Begin wins.
func (p *Prober) Begin() uint64 {
	return p.seq.Add(1)
}

// Stale reports whether a newer probe has started since seq was claimed.
func (p *Prober) Stale(seq uint64) bool {
	return p.seq.Load() != seq
}

// Ping probes the endpoint. It tries OPTIONS first; on a network failure
// or a non-2xx status it retries once with GET.
func (p *Prober) Ping(ctx context.Context, url, headerName, headerValue string) PingResult {
	result := p.attempt(ctx, http.MethodOptions, url, headerName, headerValue)
	if result.OK {
		return result
	}
	fallback := p.attempt(ctx, http.MethodGet, url, headerName, headerValue)
	if fallback.OK {
		return fallback
	}
	// report the GET outcome; it is the more meaningful of the two
	return fallback
}

func (p *Prober) attempt(ctx context.Context, method, url, headerName, headerValue string) PingResult {
	attemptCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, method, url, nil)
	if err != nil {
		return PingResult{Method: method}
	}
	req.Header.Set("Accept", "application/json")
	if headerValue != "" {
		req.Header.Set(headerName, headerValue)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		timedOut := attemptCtx.Err() == context.DeadlineExceeded
		if timedOut {
			p.log.Debug().Str("method", method).Msg("probe timed out")
		}
		return PingResult{Method: method, Timeout: timedOut}
	}
	defer resp.Body.Close()

	return PingResult{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Method: method,
	}
}
