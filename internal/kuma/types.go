package kuma

import "sort"

// Fields is an entity's field set as it travels over the wire: a plain
// JSON object. Using a map rather than per-kind structs is what makes
// "unknown fields are preserved on round-trip" (§4.5) free — a field the
// schema table doesn't recognize is carried through untouched instead of
// being dropped by a strict struct's json tags.
type Fields map[string]any

// ServerOnlyKeys are populated by the server and never compared when
// diffing desired vs. actual (§4.6.1: "ignores server-assigned-only
// fields").
var ServerOnlyKeys = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
	"pathName":  true,
}

// SetSemanticKeys identifies fields whose list order carries no meaning;
// the differ normalizes order before comparing them.
var SetSemanticKeys = map[string]bool{
	"tag_names":               true,
	"notification_name_list":  true,
	"monitor_names":           true,
	"accepted_statuscodes":    true,
}

func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return x
	}
}

func (f Fields) GetString(key string) (string, bool) {
	v, ok := f[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (f Fields) GetBool(key string) (bool, bool) {
	v, ok := f[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// TagRef is a monitor's reference to a tag, with an optional per-monitor
// value (§3, §9 open question: value is included by default here because
// the server does preserve it).
type TagRef struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

func SortedStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
