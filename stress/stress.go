// Package stress hammers a multicast.Registry from many goroutines at once
// and checks that every invocation stays consistent while observers are
// added, removed, replaced and garbage collected underneath it.
//
//	cfg := stress.DefaultConfig()
//	report, err := stress.Run(ctx, &cfg)
package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/multicast/multicast"
	"github.com/tailored-agentic-units/multicast/observability"
)

// ErrViolation is returned by Run when an invocation broke a registry
// guarantee.
var ErrViolation = errors.New("registry invariant violated")

// Subscriber is the capability interface registered during a run.
type Subscriber interface {
	Notify(seq uint64)
}

type probe struct {
	id    int
	calls atomic.Int64
	last  atomic.Uint64
}

func (p *probe) Notify(seq uint64) {
	p.calls.Add(1)
	p.last.Store(seq)
}

// Report summarizes a finished run.
type Report struct {
	RunID         string
	Seed          uint64 // seed actually used; pass it back to repeat the run
	Duration      time.Duration
	Mutations     int64
	Invocations   int64
	ObserverCalls int64
	Violations    int64
	Released      int   // pool observers dropped halfway through
	ReleasedIDs   []int // pool indexes of the released observers, ascending
	Alive         int   // observers still registered after the final collection
	Pruned        int64 // slots the registry reclaimed on its own
}

// Option configures a run.
type Option func(*runner)

// WithLogger logs harness events to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) { r.observers = append(r.observers, observability.NewSlogObserver(logger)) }
}

// WithObserver routes harness events to o. Registry events follow the
// registry section of the config instead.
func WithObserver(o observability.Observer) Option {
	return func(r *runner) { r.observers = append(r.observers, o) }
}

type runner struct {
	cfg       Config
	id        string
	observers []observability.Observer
	observer  observability.Observer
	registry  *multicast.Registry[Subscriber]

	poolMu sync.RWMutex
	pool   []*probe

	// mainMu orders main slot changes against invocations so an invoker
	// knows which observer must be called first.
	mainMu sync.RWMutex

	seq         atomic.Uint64
	mutations   atomic.Int64
	violations  atomic.Int64
	releasedIDs []int
}

// Run executes a stress run described by cfg merged over DefaultConfig. It
// returns the report together with ErrViolation if any invocation misbehaved,
// or ctx.Err() if ctx ended first.
func Run(ctx context.Context, cfg *Config, opts ...Option) (*Report, error) {
	merged := DefaultConfig()
	if cfg != nil {
		merged.Merge(cfg)
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stress config: %w", err)
	}
	if merged.Seed == 0 {
		merged.Seed = rand.Uint64()
	}

	r := &runner{
		cfg: merged,
		id:  uuid.Must(uuid.NewV7()).String(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.observer = observability.NoOpObserver{}
	if multi := observability.NewMultiObserver(r.observers...); multi.Len() > 0 {
		r.observer = multi
	}

	registry, err := multicast.NewFromConfig[Subscriber](&merged.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	r.registry = registry

	r.pool = make([]*probe, merged.Observers)
	for i := range r.pool {
		r.pool[i] = &probe{id: i}
	}

	return r.run(ctx)
}

func (r *runner) run(ctx context.Context) (*Report, error) {
	r.emit(ctx, EventRunStart, observability.LevelInfo, map[string]any{
		"mutators":   r.cfg.Mutators,
		"invokers":   r.cfg.Invokers,
		"observers":  r.cfg.Observers,
		"iterations": r.cfg.Iterations,
		"seed":       r.cfg.Seed,
	})

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	for i := range r.cfg.Mutators {
		rng := rand.New(rand.NewPCG(r.cfg.Seed, uint64(i)))
		g.Go(func() error { return r.mutate(gctx, i, rng) })
	}
	for i := range r.cfg.Invokers {
		rng := rand.New(rand.NewPCG(r.cfg.Seed, uint64(r.cfg.Mutators+i)))
		g.Go(func() error { return r.invoke(gctx, rng) })
	}

	runErr := g.Wait()
	duration := time.Since(start)

	runtime.GC()
	alive := r.registry.Len()
	metrics := r.registry.Metrics()

	report := &Report{
		RunID:         r.id,
		Seed:          r.cfg.Seed,
		Duration:      duration,
		Mutations:     r.mutations.Load(),
		Invocations:   metrics.Invocations,
		ObserverCalls: metrics.ObserverCalls,
		Violations:    r.violations.Load(),
		Released:      len(r.releasedIDs),
		ReleasedIDs:   r.releasedIDs,
		Alive:         alive,
		Pruned:        metrics.Pruned,
	}

	r.emit(ctx, EventRunComplete, observability.LevelInfo, map[string]any{
		"duration_ms":    duration.Milliseconds(),
		"mutations":      report.Mutations,
		"invocations":    report.Invocations,
		"observer_calls": report.ObserverCalls,
		"violations":     report.Violations,
		"alive":          report.Alive,
		"pruned":         report.Pruned,
	})

	if runErr != nil {
		return report, runErr
	}
	if report.Violations > 0 {
		return report, fmt.Errorf("%w: %d violations", ErrViolation, report.Violations)
	}
	return report, nil
}

// mutate performs random registry mutations. Mutator 0 releases part of
// the pool halfway through unless the release ratio is 0.
func (r *runner) mutate(ctx context.Context, id int, rng *rand.Rand) error {
	for i := range r.cfg.Iterations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if id == 0 && i == r.cfg.Iterations/2 && r.cfg.releaseRatio() > 0 {
			r.release(ctx, rng)
		}

		switch op := rng.IntN(100); {
		case op < 35:
			r.registry.Add(r.pick(rng, 1+rng.IntN(3))...)
		case op < 65:
			r.registry.Remove(r.pick(rng, 1+rng.IntN(3))...)
		case op < 80:
			if s := r.pick(rng, 1); len(s) == 1 {
				r.mainMu.Lock()
				r.registry.SetMain(s[0])
				r.mainMu.Unlock()
			}
		case op < 95:
			r.registry.SetAdditional(r.pick(rng, rng.IntN(r.cfg.Observers+1))...)
		case op < 98:
			r.mainMu.Lock()
			r.registry.ClearMain()
			r.mainMu.Unlock()
		default:
			r.mainMu.Lock()
			r.registry.Clear()
			r.mainMu.Unlock()
		}
		r.mutations.Add(1)
	}
	return nil
}

// invoke calls Invoke repeatedly and checks every call sequence against
// the main observer seen just before it.
func (r *runner) invoke(ctx context.Context, rng *rand.Rand) error {
	for range r.cfg.Iterations {
		if err := ctx.Err(); err != nil {
			return err
		}

		seq := r.seq.Add(1)
		reenter := rng.IntN(10) == 0
		var calls []Subscriber

		r.mainMu.RLock()
		main, hasMain := r.registry.Main()
		r.registry.Invoke(func(s Subscriber) {
			calls = append(calls, s)
			s.Notify(seq)
			if reenter {
				reenter = false
				r.registry.Add(r.pick(rng, 1)...)
			}
		})
		r.mainMu.RUnlock()

		for _, v := range checkInvocation(main, hasMain, calls, r.cfg.Observers) {
			r.reportViolation(ctx, v.reason, v.observer, len(calls))
		}
	}
	return nil
}

type violation struct {
	reason   string
	observer Subscriber
}

// checkInvocation validates one call sequence: main, when set, comes first,
// no additional observer repeats, and the additional observers fit in the
// pool.
func checkInvocation(main Subscriber, hasMain bool, calls []Subscriber, pool int) []violation {
	var found []violation

	additional := calls
	if hasMain {
		if len(calls) == 0 || calls[0] != main {
			found = append(found, violation{reason: "main observer not called first", observer: main})
		} else {
			additional = calls[1:]
		}
	}

	seen := make(map[Subscriber]bool, len(additional))
	for _, s := range additional {
		if seen[s] {
			found = append(found, violation{reason: "additional observer called twice", observer: s})
		}
		seen[s] = true
	}

	if len(additional) > pool {
		found = append(found, violation{reason: "snapshot larger than the observer pool"})
	}
	return found
}

// pick returns up to n random live observers from the pool.
func (r *runner) pick(rng *rand.Rand, n int) []Subscriber {
	r.poolMu.RLock()
	defer r.poolMu.RUnlock()

	out := make([]Subscriber, 0, n)
	for range n {
		if p := r.pool[rng.IntN(len(r.pool))]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

// release drops the harness's references to a fraction of the pool so that
// only the registry's weak references remain.
func (r *runner) release(ctx context.Context, rng *rand.Rand) {
	target := int(float64(len(r.pool)) * r.cfg.releaseRatio())

	r.poolMu.Lock()
	var released []int
	for _, i := range rng.Perm(len(r.pool)) {
		if len(released) == target {
			break
		}
		if r.pool[i] != nil {
			r.pool[i] = nil
			released = append(released, i)
		}
	}
	slices.Sort(released)
	r.releasedIDs = released
	r.poolMu.Unlock()

	runtime.GC()
	r.emit(ctx, EventRelease, observability.LevelInfo, map[string]any{"released": len(released)})
}

func (r *runner) reportViolation(ctx context.Context, reason string, s Subscriber, n int) {
	r.violations.Add(1)

	data := map[string]any{"reason": reason, "count": n}
	if p, ok := s.(*probe); ok {
		data["observer"] = p.id
	}
	r.emit(ctx, EventViolation, observability.LevelError, data)
}

func (r *runner) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	if observability.IsNoOp(r.observer) {
		return
	}
	data["run_id"] = r.id
	r.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "stress",
		Data:      data,
	})
}
