package multicast

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/multicast/observability"
)

// Registry holds a main observer and a set of additional observers of type
// T without keeping any of them alive. It is safe for concurrent use.
//
// A Registry must not be copied after first use; share the *Registry
// instead, and every holder of the pointer sees the same observers.
type Registry[T any] struct {
	id       string
	name     string
	observer observability.Observer
	metrics  *Metrics

	mu         sync.Mutex
	main       slot[T]
	hasMain    bool
	additional []slot[T]
}

// New creates an empty Registry.
func New[T any](opts ...Option) *Registry[T] {
	s := settings{
		name:     "multicast",
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.observer == nil {
		s.observer = observability.NoOpObserver{}
	}

	return &Registry[T]{
		id:       uuid.Must(uuid.NewV7()).String(),
		name:     s.name,
		observer: s.observer,
		metrics:  s.metrics,
	}
}

// ID returns the unique identifier of the registry.
func (r *Registry[T]) ID() string { return r.id }

// Name returns the registry name used as event source.
func (r *Registry[T]) Name() string { return r.name }

// Metrics returns a snapshot of the registry counters.
func (r *Registry[T]) Metrics() MetricsSnapshot { return r.metrics.Snapshot() }

// Main returns the main observer, or false if none is set or it has been
// collected.
func (r *Registry[T]) Main() (T, bool) {
	r.mu.Lock()
	o, ok, pruned := r.mainLocked()
	r.mu.Unlock()

	r.reportPruned(context.Background(), pruned)
	return o, ok
}

// Additional returns the live additional observers in collection order.
// The returned slice is owned by the caller.
func (r *Registry[T]) Additional() []T {
	r.mu.Lock()
	out, pruned := r.additionalLocked(nil)
	r.mu.Unlock()

	r.reportPruned(context.Background(), pruned)
	return out
}

// Len returns the number of live observers, main included.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	_, hasMain, mainPruned := r.mainLocked()
	live, pruned := r.additionalLocked(nil)
	r.mu.Unlock()

	r.reportPruned(context.Background(), mainPruned+pruned)

	n := len(live)
	if hasMain {
		n++
	}
	return n
}

// Contains reports whether o is registered as the main observer or as an
// additional observer.
func (r *Registry[T]) Contains(o T) bool {
	k, ok, _ := keyOf(o)
	if !ok {
		return false
	}

	r.mu.Lock()
	pruned := r.pruneLocked()
	found := (r.hasMain && r.main.key == k) || containsKey(r.additional, k)
	r.mu.Unlock()

	r.reportPruned(context.Background(), pruned)
	return found
}

// SetMain replaces the main observer. A nil o clears it.
func (r *Registry[T]) SetMain(o T) {
	s, ok := makeSlot(o)

	r.mu.Lock()
	r.main, r.hasMain = s, ok
	r.mu.Unlock()

	r.emit(context.Background(), EventMainSet, map[string]any{"set": ok})
}

// ClearMain removes the main observer, leaving additional observers intact.
func (r *Registry[T]) ClearMain() {
	r.mu.Lock()
	r.main, r.hasMain = slot[T]{}, false
	r.mu.Unlock()

	r.emit(context.Background(), EventMainSet, map[string]any{"set": false})
}

// SetAdditional replaces all additional observers with observers. Repeated
// and nil values are ignored.
func (r *Registry[T]) SetAdditional(observers ...T) {
	slots := make([]slot[T], 0, len(observers))
	for _, o := range observers {
		s, ok := makeSlot(o)
		if !ok || containsKey(slots, s.key) {
			continue
		}
		slots = append(slots, s)
	}

	r.mu.Lock()
	r.additional = slots
	r.mu.Unlock()

	r.emit(context.Background(), EventAdditionalSet, map[string]any{"observers": len(slots)})
}

// Add registers each observer as an additional observer unless it is
// already registered. Nil values are ignored.
func (r *Registry[T]) Add(observers ...T) {
	slots := make([]slot[T], 0, len(observers))
	for _, o := range observers {
		if s, ok := makeSlot(o); ok {
			slots = append(slots, s)
		}
	}

	r.mu.Lock()
	pruned := r.pruneLocked()
	added := 0
	for _, s := range slots {
		if containsKey(r.additional, s.key) {
			continue
		}
		r.additional = append(r.additional, s)
		added++
	}
	r.mu.Unlock()

	r.reportPruned(context.Background(), pruned)
	r.emit(context.Background(), EventAdditionalAdd, map[string]any{"added": added})
}

// Remove unregisters each observer from the additional observers. Observers
// that are not registered are ignored, and the main observer is never
// affected.
func (r *Registry[T]) Remove(observers ...T) {
	keys := make([]key, 0, len(observers))
	for _, o := range observers {
		if k, ok, _ := keyOf(o); ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}

	r.mu.Lock()
	pruned := r.pruneLocked()
	before := len(r.additional)
	r.additional = slices.DeleteFunc(r.additional, func(s slot[T]) bool {
		return slices.Contains(keys, s.key)
	})
	removed := before - len(r.additional)
	r.mu.Unlock()

	r.reportPruned(context.Background(), pruned)
	r.emit(context.Background(), EventAdditionalRemove, map[string]any{"removed": removed})
}

// Clear removes the main observer and all additional observers at once.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	r.main, r.hasMain = slot[T]{}, false
	r.additional = nil
	r.mu.Unlock()

	r.emit(context.Background(), EventClear, nil)
}

// Invoke calls action for the main observer and then for each additional
// observer, on the calling goroutine.
//
// The observers are resolved under the lock into a private snapshot of
// strong references and the lock is released before the first call, so
// action may add, remove or clear observers on this registry. Such changes
// apply to the next Invoke; observers added during the call are not
// invoked by it, and observers removed during the call may still be.
//
// A nil action panics.
func (r *Registry[T]) Invoke(action func(T)) {
	if action == nil {
		panic("multicast: Invoke called with nil action")
	}

	observers := r.snapshot(context.Background())
	for _, o := range observers {
		action(o)
	}
	r.metrics.RecordObserverCalls(len(observers))
}

// InvokeContext is Invoke for actions that take a context. It stops before
// the next observer once ctx is done and returns ctx.Err(); the observers
// already called are not rolled back.
func (r *Registry[T]) InvokeContext(ctx context.Context, action func(context.Context, T)) error {
	if action == nil {
		panic("multicast: InvokeContext called with nil action")
	}

	called := 0
	defer func() { r.metrics.RecordObserverCalls(called) }()

	for _, o := range r.snapshot(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		action(ctx, o)
		called++
	}
	return nil
}

// snapshot resolves the live observers, main first, and records the
// invocation.
func (r *Registry[T]) snapshot(ctx context.Context) []T {
	r.mu.Lock()
	var observers []T
	o, ok, mainPruned := r.mainLocked()
	if ok {
		observers = make([]T, 1, len(r.additional)+1)
		observers[0] = o
	}
	observers, pruned := r.additionalLocked(observers)
	r.mu.Unlock()

	r.reportPruned(ctx, mainPruned+pruned)
	r.metrics.RecordInvocation()
	r.emit(ctx, EventInvoke, map[string]any{"observers": len(observers)})
	return observers
}

// mainLocked resolves the main slot, dropping it if its observer is gone.
// r.mu must be held.
func (r *Registry[T]) mainLocked() (o T, ok bool, pruned int) {
	if !r.hasMain {
		return o, false, 0
	}
	if o, ok = r.main.resolve(); !ok {
		r.main, r.hasMain = slot[T]{}, false
		return o, false, 1
	}
	return o, true, 0
}

// pruneLocked drops the main slot and any additional slots whose observer
// is gone, without resolving the live ones. r.mu must be held.
func (r *Registry[T]) pruneLocked() int {
	n := 0
	if r.hasMain && r.main.key.ptr.Value() == nil {
		r.main, r.hasMain = slot[T]{}, false
		n++
	}
	before := len(r.additional)
	r.additional = slices.DeleteFunc(r.additional, func(s slot[T]) bool {
		return s.key.ptr.Value() == nil
	})
	return n + before - len(r.additional)
}

// additionalLocked appends the live additional observers to dst and
// compacts away dead slots. r.mu must be held.
func (r *Registry[T]) additionalLocked(dst []T) ([]T, int) {
	kept := r.additional[:0]
	for _, s := range r.additional {
		o, ok := s.resolve()
		if !ok {
			continue
		}
		kept = append(kept, s)
		dst = append(dst, o)
	}

	pruned := len(r.additional) - len(kept)
	clear(r.additional[len(kept):])
	r.additional = kept
	return dst, pruned
}

func (r *Registry[T]) reportPruned(ctx context.Context, n int) {
	if n == 0 {
		return
	}
	r.metrics.RecordPruned(n)
	r.emit(ctx, EventPrune, map[string]any{"pruned": n})
}

func (r *Registry[T]) emit(ctx context.Context, t observability.EventType, data map[string]any) {
	if observability.IsNoOp(r.observer) {
		return
	}
	if data == nil {
		data = make(map[string]any, 1)
	}
	data["registry_id"] = r.id

	r.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    r.name,
		Data:      data,
	})
}

func containsKey[T any](slots []slot[T], k key) bool {
	return slices.ContainsFunc(slots, func(s slot[T]) bool { return s.key == k })
}
