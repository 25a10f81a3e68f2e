package stress

import "github.com/tailored-agentic-units/multicast/observability"

// Harness event types.
const (
	EventRunStart    observability.EventType = "stress.run.start"
	EventRelease     observability.EventType = "stress.release"
	EventViolation   observability.EventType = "stress.violation"
	EventRunComplete observability.EventType = "stress.run.complete"
)
