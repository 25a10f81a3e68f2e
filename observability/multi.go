package observability

import "context"

// MultiObserver fans events out to a fixed list of observers. Unlike a
// multicast registry it holds its observers strongly, which is what an
// event sink wants: a logger configured once must not vanish because the
// caller dropped its reference.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver that forwards events to every
// observer that is neither nil nor a NoOpObserver.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if IsNoOp(obs) {
			continue
		}
		filtered = append(filtered, obs)
	}
	return &MultiObserver{observers: filtered}
}

// Len returns the number of forwarding targets.
func (m *MultiObserver) Len() int { return len(m.observers) }

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
