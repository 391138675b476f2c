// Package sources defines the adapter contract shared by the Docker,
// Kubernetes and file sources: every adapter normalizes whatever it reads
// into the same LabelBundle shape (§4.2).
package sources

import "context"

// LabelBundle is one source's view of one monitored object: its dotted,
// prefix-stripped labels plus the template context they render against.
type LabelBundle struct {
	SourceKind string
	SourceID   string
	Labels     map[string]string
	Context    map[string]any
}

// ChangeKind distinguishes a targeted update from a full resync request.
type ChangeKind int

const (
	// ChangeUpdate signals that one object changed; the reconciler may
	// still choose to re-collect every adapter on the next tick.
	ChangeUpdate ChangeKind = iota
	// ChangeResync signals that the adapter lost track of incremental
	// state (e.g. a bounded channel overflowed, §5 "Backpressure") and a
	// full resync is required.
	ChangeResync
)

// ChangeEvent is pushed onto a Source's notification channel to wake the
// reconciliation loop.
type ChangeEvent struct {
	Kind   ChangeKind
	Source string
}

// Source is implemented by every adapter kind (Docker containers/services,
// Kubernetes CRs, files).
type Source interface {
	// Name identifies the adapter in logs ("docker", "kubernetes", "files").
	Name() string
	// Collect returns a full snapshot of the adapter's current bundles.
	// Called once per reconcile tick.
	Collect(ctx context.Context) ([]LabelBundle, error)
	// Watch runs until ctx is cancelled, pushing a ChangeEvent to notify
	// whenever the adapter observes a change. Implementations must not
	// block sends indefinitely: a full channel means coalesce into a
	// ChangeResync rather than stalling (§5 "Backpressure").
	Watch(ctx context.Context, notify chan<- ChangeEvent)
}
