package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/autokuma/autokuma/internal/kuma"
)

// coerceField converts a raw synthesized value (either a scalar string
// or, for nested settings, an already-built map[string]any) into the
// shape its FieldSpec.Kind expects (§4.3 step 4).
func coerceField(spec kuma.FieldSpec, raw any) (any, error) {
	switch spec.Kind {
	case kuma.FieldString:
		s, ok := raw.(string)
		if !ok {
			return raw, nil
		}
		return s, nil
	case kuma.FieldInt:
		return coerceInt(raw)
	case kuma.FieldBool:
		return coerceBool(raw)
	case kuma.FieldJSON:
		return coerceJSON(raw)
	case kuma.FieldStringList:
		return coerceStringList(raw)
	case kuma.FieldIntRangeList:
		return coerceIntRangeList(raw)
	default:
		return raw, nil
	}
}

func coerceInt(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number: %w", v, err)
		}
		return f, nil
	case float64:
		return v, nil
	default:
		return nil, fmt.Errorf("expected a number, got %T", raw)
	}
}

func coerceBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1", "y":
			return true, nil
		case "false", "no", "off", "0", "n", "":
			return false, nil
		default:
			return nil, fmt.Errorf("%q is not a recognized boolean spelling", v)
		}
	default:
		return nil, fmt.Errorf("expected a boolean, got %T", raw)
	}
}

func coerceJSON(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]any{}, nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return parsed, nil
	default:
		// already structured (built from nested sub-key labels).
		return v, nil
	}
}

func coerceStringList(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return []any{}, nil
		}
		parts := strings.Split(v, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out, nil
	case []any:
		return v, nil
	default:
		return nil, fmt.Errorf("expected a list or comma-separated string, got %T", raw)
	}
}

// coerceIntRangeList implements the "a-b" inclusive-range expansion for
// status-code-like lists, alongside lenient comma-separated scalars
// (§4.3 step 4).
func coerceIntRangeList(raw any) (any, error) {
	var entries []string
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return []any{}, nil
		}
		entries = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			entries = append(entries, fmt.Sprintf("%v", item))
		}
	default:
		return nil, fmt.Errorf("expected a list or comma-separated string, got %T", raw)
	}

	var out []any
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(e, "-"); ok && lo != "" && hi != "" {
			loN, loErr := strconv.Atoi(strings.TrimSpace(lo))
			hiN, hiErr := strconv.Atoi(strings.TrimSpace(hi))
			if loErr == nil && hiErr == nil && loN <= hiN {
				for n := loN; n <= hiN; n++ {
					out = append(out, float64(n))
				}
				continue
			}
		}
		n, err := strconv.Atoi(e)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer or a-b range", e)
		}
		out = append(out, float64(n))
	}
	return out, nil
}
