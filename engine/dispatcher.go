package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Mode selects which engines a dispatch may use.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeHTTP    Mode = "http"
	ModeBrowser Mode = "browser"
)

// ErrNoEngine is returned when the requested mode has no registered engine,
// e.g. "browser" while the browser is disabled.
var ErrNoEngine = errors.New("dispatcher: no engine available for mode")

// Observer receives the outcome of every engine attempt.
type Observer interface {
	ObserveFetch(engine string, elapsed time.Duration, err error)
}

// Dispatcher coordinates multi-engine racing with staged escalation.
// It starts the fastest engine first and progressively escalates to heavier
// engines if earlier ones fail or are slow.
type Dispatcher struct {
	engines          []Engine
	escalationDelays []time.Duration
	memory           *DomainMemory
	observer         Observer
}

// NewDispatcher creates a Dispatcher. engines[i] starts escalationDelays[i]
// after the race begins; missing delays default to 0. memory may be nil.
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory) *Dispatcher {
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	return &Dispatcher{
		engines:          engines,
		escalationDelays: delays,
		memory:           memory,
	}
}

// SetObserver installs o to receive per-engine attempt outcomes.
func (d *Dispatcher) SetObserver(o Observer) {
	d.observer = o
}

// Engines returns the names of the registered engines in escalation order.
func (d *Dispatcher) Engines() []string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return names
}

// Dispatch retrieves req.URL with the engines allowed by mode and returns
// the first success. If all engines fail, the most informative error is
// returned: a *StatusError if any engine got a response, otherwise the
// last error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest, mode Mode) (*FetchResult, error) {
	engines, delays := d.selectEngines(mode)
	if len(engines) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoEngine, mode)
	}

	domain := extractDomain(req.URL)

	if remembered := d.memory.Get(domain); remembered != "" && len(engines) > 1 {
		for _, eng := range engines {
			if eng.Name() != remembered {
				continue
			}
			slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
			result, err := d.attempt(ctx, eng, req)
			if err == nil {
				return result, nil
			}
			if ctx.Err() != nil {
				return nil, err
			}
			slog.Info("domain memory miss (engine failed), running full race",
				"domain", domain, "engine", remembered, "error", err)
			d.memory.Delete(domain)
			break
		}
	}

	return d.race(ctx, req, domain, engines, delays)
}

func (d *Dispatcher) selectEngines(mode Mode) ([]Engine, []time.Duration) {
	if mode == "" || mode == ModeAuto {
		return d.engines, d.escalationDelays
	}
	var (
		engines []Engine
		delays  []time.Duration
	)
	for i, e := range d.engines {
		browser := strings.HasPrefix(e.Name(), "rod")
		if (mode == ModeBrowser) == browser {
			engines = append(engines, e)
			delays = append(delays, d.escalationDelays[i])
		}
	}
	// A single-mode dispatch starts immediately.
	if len(delays) > 0 {
		offset := delays[0]
		for i := range delays {
			delays[i] -= offset
		}
	}
	return engines, delays
}

func (d *Dispatcher) attempt(ctx context.Context, e Engine, req *FetchRequest) (*FetchResult, error) {
	start := time.Now()
	result, err := e.Fetch(ctx, req)
	if d.observer != nil {
		d.observer.ObserveFetch(e.Name(), time.Since(start), err)
	}
	return result, err
}

// race runs engines with staged delays and returns the first success.
func (d *Dispatcher) race(ctx context.Context, req *FetchRequest, domain string, engines []Engine, delays []time.Duration) (*FetchResult, error) {
	type raceResult struct {
		result *FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	results := make(chan raceResult, len(engines))
	var wg sync.WaitGroup

	for i, eng := range engines {
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				}
			}

			if raceCtx.Err() != nil {
				return
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := d.attempt(raceCtx, e, req)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
			}
			results <- raceResult{result: result, err: err}
		}(eng, delays[i])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr, statusErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = rr.err
			var se *StatusError
			if statusErr == nil && errors.As(rr.err, &se) {
				statusErr = rr.err
			}
			continue
		}
		raceCancel()
		slog.Info("engine won race", "engine", rr.result.EngineName, "url", req.URL)
		d.memory.Set(domain, rr.result.EngineName)
		return rr.result, nil
	}

	if err := ctx.Err(); err != nil {
		if lastErr != nil {
			return nil, fmt.Errorf("dispatcher: %w: %w", err, lastErr)
		}
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	if statusErr != nil {
		return nil, statusErr
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
	}
	return nil, lastErr
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
