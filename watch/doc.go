// Package watch is the change-detection engine.
//
// A Poller ticks on a fixed interval. Each tick first asks the DayTracker whether
// the local calendar day rolled over (and if so resets every daily counter), then
// fetches each catalog resource in order, runs the Engine diff against the Store
// and hands emitted events to a Notifier. Fetch failures leave stored state
// untouched and never abort the tick for other resources.
//
// Query serves on-demand reports: it fetches independently of the Poller and only
// reads the Store, so it never changes snapshots or counters.
package watch
