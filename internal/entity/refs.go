package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/autokuma/autokuma/internal/kuma"
)

// breakParentCycles implements §4.6.4: walks each monitor's parent_name
// chain and drops an edge that would close a cycle, logging a warning
// for each one dropped. The surviving names are not resolved to
// server-side numeric IDs: the reconciler sends parent_name and the
// other name-reference fields to the server as synthesized, and sets no
// "parent" field. This pass only guarantees the parent graph
// synthesized this tick is acyclic.
//
// Which edge gets dropped is independent of traversal order: once a
// cycle's member set is known, the edge cleared is always the one
// owned by the lexicographically largest AutokumaID in that cycle, so
// an unchanged source set produces the same break on every tick
// (§8 idempotence) regardless of which node the walk happened to start
// from.
func breakParentCycles(entities []Desired) []string {
	byID := make(map[string]*Desired, len(entities))
	ids := make([]string, 0, len(entities))
	for i := range entities {
		if entities[i].Kind == kuma.KindMonitor {
			id := entities[i].AutokumaID
			byID[id] = &entities[i]
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(byID))
	var warnings []string

	var visit func(id string, path []string)
	visit = func(id string, path []string) {
		if color[id] != white {
			return
		}
		color[id] = gray
		defer func() { color[id] = black }()

		e, ok := byID[id]
		if !ok {
			return
		}
		parent, _ := e.Fields.GetString("parent_name")
		if parent == "" {
			return
		}
		walk := append(append([]string{}, path...), id)
		for i, p := range walk {
			if p == parent {
				cycle := walk[i:]
				victim := lexicographicMax(cycle)
				warnings = append(warnings, fmt.Sprintf(
					"monitor parent_name cycle detected (%s), dropping parent_name on %q",
					strings.Join(cycle, " -> "), victim))
				delete(byID[victim].Fields, "parent_name")
				return
			}
		}
		visit(parent, append(path, id))
	}

	for _, id := range ids {
		visit(id, nil)
	}
	return warnings
}

// lexicographicMax returns the greatest string in ids by ordinary
// string comparison. ids is always non-empty: it is built from a
// detected cycle, which has at least one member.
func lexicographicMax(ids []string) string {
	max := ids[0]
	for _, id := range ids[1:] {
		if id > max {
			max = id
		}
	}
	return max
}

// validateNameRefs checks that monitor_names/tag_names/
// notification_name_list/docker_host_name/parent_name point at an ID
// that either exists in this tick's desired set or already has an
// identity-store mapping (checked by the caller via knownIDs); a
// dangling reference is logged, not fatal — the reconciler's execution
// phase is the final authority, since a referenced entity from another
// source might simply not have synthesized yet this tick.
func validateNameRefs(entities []Desired, knownIDs map[kuma.Kind]map[string]bool) []string {
	var warnings []string
	exists := func(kind kuma.Kind, name string) bool {
		return knownIDs[kind] != nil && knownIDs[kind][name]
	}

	for _, e := range entities {
		if parent, ok := e.Fields.GetString("parent_name"); ok && parent != "" {
			if !exists(kuma.KindMonitor, parent) {
				warnings = append(warnings, fmt.Sprintf("%s %q: parent_name %q not found (yet)", e.Kind, e.AutokumaID, parent))
			}
		}
		if host, ok := e.Fields.GetString("docker_host_name"); ok && host != "" {
			if !exists(kuma.KindDockerHost, host) {
				warnings = append(warnings, fmt.Sprintf("%s %q: docker_host_name %q not found (yet)", e.Kind, e.AutokumaID, host))
			}
		}
		for _, name := range stringListField(e.Fields, "notification_name_list") {
			if !exists(kuma.KindNotification, name) {
				warnings = append(warnings, fmt.Sprintf("%s %q: notification_name_list entry %q not found (yet)", e.Kind, e.AutokumaID, name))
			}
		}
		for _, name := range stringListField(e.Fields, "monitor_names") {
			if !exists(kuma.KindMonitor, name) {
				warnings = append(warnings, fmt.Sprintf("%s %q: monitor_names entry %q not found (yet)", e.Kind, e.AutokumaID, name))
			}
		}
		for _, name := range tagNameField(e.Fields) {
			if !exists(kuma.KindTag, name) {
				warnings = append(warnings, fmt.Sprintf("%s %q: tag_names entry %q not found (yet)", e.Kind, e.AutokumaID, name))
			}
		}
	}
	return warnings
}

// tagNameField reads tag_names, which is a list of {name, value?}
// objects rather than bare strings (§3).
func tagNameField(f kuma.Fields) []string {
	v, ok := f["tag_names"]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				out = append(out, name)
			}
		}
	}
	return out
}

func stringListField(f kuma.Fields, key string) []string {
	v, ok := f[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// KnownIDs builds the kind->id existence set used by validateNameRefs,
// folding in both this tick's desired entities and whatever the
// identity store already knows about.
func KnownIDs(entities []Desired, storeIDs map[kuma.Kind][]string) map[kuma.Kind]map[string]bool {
	out := make(map[kuma.Kind]map[string]bool)
	add := func(k kuma.Kind, id string) {
		if out[k] == nil {
			out[k] = make(map[string]bool)
		}
		out[k][id] = true
	}
	for _, e := range entities {
		add(e.Kind, e.AutokumaID)
	}
	for k, ids := range storeIDs {
		for _, id := range ids {
			add(k, id)
		}
	}
	return out
}
