package entity

import (
	"fmt"
	"strings"

	"github.com/autokuma/autokuma/internal/kuma"
)

// grouped is one id's labels after the first pass of parsing: its type
// segment plus the nested settings tree built from the remaining dotted
// segments (§6.1 "Nested sub-keys map to JSON object nesting").
type grouped struct {
	typ      string
	settings map[string]any
}

// groupByID implements §4.3 step 4's grouping: "Labels are grouped by
// their first dotted segment (the ID). For each ID, the second segment
// is the entity type; the remaining segments address nested fields."
func groupByID(labels map[string]string) (map[string]*grouped, error) {
	out := make(map[string]*grouped)
	for key, value := range labels {
		segs := strings.Split(key, ".")
		if len(segs) < 2 {
			return nil, fmt.Errorf("label %q has no <id>.<type> prefix", key)
		}
		id, typ, rest := segs[0], segs[1], segs[2:]

		g, ok := out[id]
		if !ok {
			g = &grouped{typ: typ, settings: map[string]any{}}
			out[id] = g
		} else if g.typ != typ {
			return nil, fmt.Errorf("id %q mixes types %q and %q", id, g.typ, typ)
		}

		if err := assignNested(g.settings, rest, value); err != nil {
			return nil, fmt.Errorf("id %q: %w", id, err)
		}
	}
	return out, nil
}

// assignNested sets value at the dotted path segs within m, building
// intermediate maps as needed.
func assignNested(m map[string]any, segs []string, value string) error {
	if len(segs) == 0 {
		return fmt.Errorf("label has no setting name")
	}
	if len(segs) == 1 {
		m[segs[0]] = value
		return nil
	}
	head, tail := segs[0], segs[1:]
	child, ok := m[head]
	if !ok {
		childMap := map[string]any{}
		m[head] = childMap
		return assignNested(childMap, tail, value)
	}
	childMap, ok := child.(map[string]any)
	if !ok {
		return fmt.Errorf("setting %q is used both as a scalar and as a nested object", head)
	}
	return assignNested(childMap, tail, value)
}

// kindForType resolves a label's type segment to an entity kind, and,
// for Monitor, the monitor-type tag itself (§6.1, §3).
func kindForType(typ string) (kuma.Kind, string, bool) {
	switch typ {
	case "tag":
		return kuma.KindTag, "", true
	case "notification":
		return kuma.KindNotification, "", true
	case "docker_host":
		return kuma.KindDockerHost, "", true
	case "status_page":
		return kuma.KindStatusPage, "", true
	case "maintenance":
		return kuma.KindMaintenance, "", true
	default:
		if _, ok := kuma.MonitorTypeFields[typ]; ok {
			return kuma.KindMonitor, typ, true
		}
		return "", "", false
	}
}
