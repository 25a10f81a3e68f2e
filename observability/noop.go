package observability

import "context"

// NoOpObserver discards all events. Emitters detect it with IsNoOp and skip
// building event payloads.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}

// IsNoOp reports whether events sent to o are discarded, so that callers can
// avoid allocating them.
func IsNoOp(o Observer) bool {
	switch o.(type) {
	case nil, NoOpObserver, *NoOpObserver:
		return true
	}
	return false
}
