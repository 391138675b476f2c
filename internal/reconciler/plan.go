// Package reconciler implements the §4.6 reconcile loop: diffing the
// synthesized desired entity set against the remote server's actual
// state, ordering and executing the resulting plan, and driving the
// delete-grace-period and cyclic-reference bookkeeping across ticks.
package reconciler

import (
	"github.com/autokuma/autokuma/internal/entity"
	"github.com/autokuma/autokuma/internal/kuma"
)

// ActionKind distinguishes the RPC a plan step performs.
type ActionKind int

const (
	ActionCreate ActionKind = iota
	ActionUpdate
	ActionPause
	ActionResume
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionPause:
		return "pause"
	case ActionResume:
		return "resume"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Action is one planned RPC against one entity.
type Action struct {
	Kind       ActionKind
	EntityKind kuma.Kind
	AutokumaID string
	ServerID   string // known for update/pause/resume/delete, empty for create
	Desired    entity.Desired
}

// Plan is the ordered set of actions for one tick, already sorted for
// §4.6.3: creates parents-first, updates/deletes children-first, all
// within §4.6.1's per-kind dependency order.
type Plan struct {
	Actions []Action
}
