package multicast

import "github.com/tailored-agentic-units/multicast/observability"

// Registry lifecycle events. All are emitted at LevelVerbose after the
// registry lock has been released.
const (
	EventMainSet          observability.EventType = "multicast.main.set"
	EventAdditionalSet    observability.EventType = "multicast.additional.set"
	EventAdditionalAdd    observability.EventType = "multicast.additional.add"
	EventAdditionalRemove observability.EventType = "multicast.additional.remove"
	EventClear            observability.EventType = "multicast.clear"
	EventInvoke           observability.EventType = "multicast.invoke"
	EventPrune            observability.EventType = "multicast.prune"
)
