package reconciler

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/autokuma/autokuma/internal/entity"
	"github.com/autokuma/autokuma/internal/kuma"
	"github.com/autokuma/autokuma/internal/store"
)

// Actual is one entity as currently held by the remote server, keyed by
// its server-assigned ID.
type Actual struct {
	ServerID string
	Fields   kuma.Fields
}

// identityLookup is the subset of *store.Store the differ needs; it
// exists so tests can fake it without a real bbolt file.
type identityLookup interface {
	Get(kind kuma.Kind, autokumaID string) (string, error)
	List(kind kuma.Kind) ([]store.Mapping, error)
	GetMissingSince(kind kuma.Kind, autokumaID string) (time.Time, error)
	MarkMissing(kind kuma.Kind, autokumaID string, now time.Time) error
	ClearMissing(kind kuma.Kind, autokumaID string) error
}

// DeleteCandidate is a mapping whose desired counterpart is absent this
// tick; Diff reports it separately from Plan so the caller can apply
// §4.6.2's grace period before turning it into a delete Action.
type DeleteCandidate struct {
	EntityKind kuma.Kind
	AutokumaID string
	ServerID   string
}

// Diff computes this tick's plan per §4.6.1. actual is keyed by kind
// then server ID. now is injected so grace-period math is deterministic
// in tests.
func Diff(desired []entity.Desired, actual map[kuma.Kind]map[string]Actual, st identityLookup, gracePeriod time.Duration, onDeleteKeep bool, now time.Time) (Plan, []DeleteCandidate, error) {
	byKind := make(map[kuma.Kind][]entity.Desired)
	for _, d := range desired {
		byKind[d.Kind] = append(byKind[d.Kind], d)
	}

	var plan Plan
	var deletes []DeleteCandidate

	for _, kind := range kuma.DependencyOrder {
		kindDesired := byKind[kind]
		mappings, err := st.List(kind)
		if err != nil {
			return Plan{}, nil, err
		}
		mapped := make(map[string]string, len(mappings)) // autokumaID -> serverID
		for _, m := range mappings {
			mapped[m.AutokumaID] = m.ServerID
		}

		wantIDs := make(map[string]bool, len(kindDesired))
		for _, d := range kindDesired {
			wantIDs[d.AutokumaID] = true
		}

		creates, updates, err := diffKind(kind, kindDesired, mapped, actual[kind])
		if err != nil {
			return Plan{}, nil, err
		}

		if kind == kuma.KindMonitor {
			creates = orderMonitorCreates(creates)
			updates = reverseOrder(orderMonitorCreates(updates))
		}
		for _, a := range creates {
			plan.Actions = append(plan.Actions, a)
		}
		for _, a := range updates {
			plan.Actions = append(plan.Actions, a)
		}

		var kindDeleteIDs []string
		for autokumaID, serverID := range mapped {
			if wantIDs[autokumaID] {
				continue
			}
			cand := DeleteCandidate{EntityKind: kind, AutokumaID: autokumaID, ServerID: serverID}
			since, err := st.GetMissingSince(kind, autokumaID)
			if err != nil {
				return Plan{}, nil, err
			}
			if since.IsZero() {
				if err := st.MarkMissing(kind, autokumaID, now); err != nil {
					return Plan{}, nil, err
				}
				deletes = append(deletes, cand)
				continue
			}
			if now.Sub(since) < gracePeriod {
				deletes = append(deletes, cand)
				continue
			}
			if onDeleteKeep {
				deletes = append(deletes, cand)
				continue
			}
			kindDeleteIDs = append(kindDeleteIDs, autokumaID)
		}
		for _, autokumaID := range orderDeletesChildrenFirst(kind, kindDeleteIDs, mapped, actual[kind]) {
			plan.Actions = append(plan.Actions, Action{
				Kind: ActionDelete, EntityKind: kind, AutokumaID: autokumaID, ServerID: mapped[autokumaID],
			})
		}
		for autokumaID := range wantIDs {
			if _, stillMissing := mapped[autokumaID]; !stillMissing {
				continue
			}
			if err := st.ClearMissing(kind, autokumaID); err != nil {
				return Plan{}, nil, err
			}
		}
	}

	return plan, deletes, nil
}

// orderDeletesChildrenFirst reorders a kind's delete candidates so a
// monitor is deleted before the parent group it references, using the
// actual entity's server-assigned "parent" field (§4.6.3 "updates and
// deletes proceed children-first"). Kinds other than Monitor have no
// parent/child relationship and are returned sorted for determinism.
func orderDeletesChildrenFirst(kind kuma.Kind, ids []string, mapped map[string]string, actual map[string]Actual) []string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	if kind != kuma.KindMonitor {
		return sorted
	}

	parentOf := make(map[string]string, len(sorted)) // autokumaID -> parent autokumaID
	serverIDToAutokumaID := make(map[string]string, len(mapped))
	for id, sid := range mapped {
		serverIDToAutokumaID[sid] = id
	}
	candidate := make(map[string]bool, len(sorted))
	for _, id := range sorted {
		candidate[id] = true
	}
	for _, id := range sorted {
		act, ok := actual[mapped[id]]
		if !ok {
			continue
		}
		if parentServerID, ok := act.Fields.GetString("parent"); ok && parentServerID != "" {
			if parentID, ok := serverIDToAutokumaID[parentServerID]; ok && candidate[parentID] {
				parentOf[id] = parentID
			}
		}
	}

	var order []string
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if visited[id] || visiting[id] {
			return
		}
		visiting[id] = true
		if parent, ok := parentOf[id]; ok {
			visit(parent)
		}
		visiting[id] = false
		visited[id] = true
		order = append(order, id) // parents-first; reversed below
	}
	for _, id := range sorted {
		visit(id)
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// diffKind computes creates and updates for one kind, leaving deletes to
// the caller (which needs cross-kind grace-period state).
func diffKind(kind kuma.Kind, desired []entity.Desired, mapped map[string]string, actual map[string]Actual) ([]Action, []Action, error) {
	var creates, updates []Action
	for _, d := range desired {
		serverID, hasMapping := mapped[d.AutokumaID]
		var act Actual
		var exists bool
		if hasMapping {
			act, exists = actual[serverID]
		}
		if !hasMapping || !exists {
			creates = append(creates, Action{Kind: ActionCreate, EntityKind: kind, AutokumaID: d.AutokumaID, Desired: d})
			continue
		}
		if activeTransition, ok := pauseResumeAction(kind, d, act); ok {
			updates = append(updates, Action{
				Kind: activeTransition, EntityKind: kind, AutokumaID: d.AutokumaID, ServerID: serverID, Desired: d,
			})
		}
		if !fieldsEqual(d.Fields, act.Fields) {
			updates = append(updates, Action{
				Kind: ActionUpdate, EntityKind: kind, AutokumaID: d.AutokumaID, ServerID: serverID, Desired: d,
			})
		}
	}
	return creates, updates, nil
}

// pauseResumeAction detects an `active` field transition that the server
// requires a dedicated verb for (§4.6.1 "Pause/resume"), rather than
// folding it into the general field-wise update.
func pauseResumeAction(kind kuma.Kind, d entity.Desired, act Actual) (ActionKind, bool) {
	if kind != kuma.KindMonitor {
		return 0, false
	}
	wantActive, wantOK := d.Fields.GetBool("active")
	haveActive, haveOK := act.Fields.GetBool("active")
	if !wantOK || !haveOK || wantActive == haveActive {
		return 0, false
	}
	if wantActive {
		return ActionResume, true
	}
	return ActionPause, true
}

// fieldsEqual compares two field sets ignoring server-only keys and
// normalizing set-semantic list order (§4.6.1).
func fieldsEqual(desired, actual kuma.Fields) bool {
	dn := normalizeFields(desired)
	an := normalizeFields(actual)
	db, err1 := json.Marshal(dn)
	ab, err2 := json.Marshal(an)
	if err1 != nil || err2 != nil {
		return false
	}
	return string(db) == string(ab)
}

func normalizeFields(f kuma.Fields) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		if kuma.ServerOnlyKeys[k] {
			continue
		}
		if kuma.SetSemanticKeys[k] {
			out[k] = normalizeSet(v)
			continue
		}
		out[k] = v
	}
	return out
}

func normalizeSet(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	encoded := make([]string, 0, len(list))
	for _, item := range list {
		b, err := json.Marshal(item)
		if err != nil {
			return v
		}
		encoded = append(encoded, string(b))
	}
	sort.Strings(encoded)
	out := make([]json.RawMessage, len(encoded))
	for i, s := range encoded {
		out[i] = json.RawMessage(s)
	}
	return out
}

// orderMonitorCreates sorts create actions so a group is created before
// any monitor naming it as parent_name, and more generally topologically
// by the parent_name chain (§4.6.3 "creates proceed parents-first").
func orderMonitorCreates(actions []Action) []Action {
	byID := make(map[string][]Action, len(actions))
	for _, a := range actions {
		byID[a.AutokumaID] = append(byID[a.AutokumaID], a)
	}
	var order []Action
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		if visited[id] || visiting[id] {
			return
		}
		as, ok := byID[id]
		if !ok {
			return
		}
		visiting[id] = true
		if parent, ok := as[0].Desired.Fields.GetString("parent_name"); ok && parent != "" {
			visit(parent)
		}
		visiting[id] = false
		visited[id] = true
		order = append(order, as...)
	}

	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		ids = append(ids, a.AutokumaID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		visit(id)
	}
	return order
}

func reverseOrder(actions []Action) []Action {
	out := make([]Action, len(actions))
	for i, a := range actions {
		out[len(actions)-1-i] = a
	}
	return out
}

