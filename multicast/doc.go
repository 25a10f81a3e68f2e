// Package multicast provides Registry, a concurrency-safe multicast
// delegate that observes without owning.
//
// A publisher keeps one Registry per capability interface. The registry
// holds a main observer, invoked first, and a duplicate-free set of
// additional observers. It stores only weak references: once the rest of
// the program drops an observer, the registry forgets it and never calls
// it again, without an explicit Remove.
//
//	type Listener interface{ DidDispatch() }
//
//	delegates := multicast.New[Listener]()
//	delegates.SetMain(screen)
//	delegates.Add(analytics, audit)
//	delegates.Invoke(func(l Listener) { l.DidDispatch() })
//
// # Identity
//
// Observers are compared by identity (dynamic type and address), never by
// value. Adding the same pointer twice registers it once; two distinct
// values that are equal are two observers. Because identity is an address,
// observers must be non-nil pointers to non-zero-size values; Weakable
// reports whether a value qualifies. Registering anything else panics.
//
// # Concurrency
//
// Every operation takes one mutex for the duration of a slice update or a
// snapshot copy, never while running observer code. Invoke snapshots the
// live observers as strong references, unlocks, then calls the action for
// each of them on the calling goroutine. Actions may therefore mutate the
// registry, from the same goroutine or another one. An observer that is
// part of a snapshot stays alive until that Invoke returns.
//
// # Events
//
// A Registry built with WithObserver, WithLogger or NewFromConfig reports
// its lifecycle (sets, adds, removes, clears, invocations, pruning of
// collected observers) as observability events.
package multicast
