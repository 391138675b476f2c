package filesource

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// decodeFile parses a file's bytes into either a single object (returned
// as the first and only element) or an array of objects, per §4.2.3.
func decodeFile(ext string, data []byte) ([]map[string]string, error) {
	switch ext {
	case ".json":
		return decodeJSON(data)
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".toml":
		return decodeTOML(data)
	case ".labels":
		obj, err := decodeRaw(data)
		if err != nil {
			return nil, err
		}
		return []map[string]string{obj}, nil
	default:
		return nil, fmt.Errorf("unsupported extension %q", ext)
	}
}

func decodeJSON(data []byte) ([]map[string]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var arr []map[string]any
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, err
		}
		return flattenAll(arr), nil
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	return []map[string]string{flatten("", obj)}, nil
}

func decodeYAML(data []byte) ([]map[string]string, error) {
	var probe any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch v := probe.(type) {
	case []any:
		out := make([]map[string]string, 0, len(v))
		for _, item := range v {
			m, ok := toStringAnyMap(item)
			if !ok {
				continue
			}
			out = append(out, flatten("", m))
		}
		return out, nil
	default:
		m, ok := toStringAnyMap(v)
		if !ok {
			return nil, fmt.Errorf("yaml document is not an object or array")
		}
		return []map[string]string{flatten("", m)}, nil
	}
}

func decodeTOML(data []byte) ([]map[string]string, error) {
	var obj map[string]any
	if err := toml.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return []map[string]string{flatten("", obj)}, nil
}

// decodeRaw parses "key = value" / "key: value" lines, one label per
// line, blank lines and "#"-prefixed comments ignored.
func decodeRaw(data []byte) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sep := "="
		idx := strings.Index(line, sep)
		if colonIdx := strings.Index(line, ":"); idx == -1 || (colonIdx != -1 && colonIdx < idx) {
			sep = ":"
			idx = colonIdx
		}
		if idx == -1 {
			return nil, fmt.Errorf("malformed line %q: expected key=value or key: value", line)
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+len(sep):])
		out[key] = val
	}
	return out, scanner.Err()
}

// flatten turns a decoded document's values into the string-valued map a
// LabelBundle expects. String/number/bool scalars are stringified;
// anything else (nested objects, arrays) is re-encoded as JSON, since
// the entity synthesizer's FieldJSON fields expect to parse JSON text.
func flatten(prefix string, m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case nil:
			out[key] = ""
		case bool, int, int64, float64:
			out[key] = fmt.Sprintf("%v", val)
		case map[string]any:
			for nk, nv := range flatten(key, val) {
				out[nk] = nv
			}
		default:
			if encoded, err := json.Marshal(val); err == nil {
				out[key] = string(encoded)
			}
		}
	}
	return out
}

func flattenAll(items []map[string]any) []map[string]string {
	out := make([]map[string]string, 0, len(items))
	for _, m := range items {
		out = append(out, flatten("", m))
	}
	return out
}

func toStringAnyMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprintf("%v", k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
