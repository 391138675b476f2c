package expr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/sprig/v3"
)

type filterFunc func(base Value, args []Value) (Value, error)

// sprigFuncs exposes the teacher pack's Helm-derived string/function
// library (Masterminds/sprig, already vendored transitively via Helm in
// the teacher's go.mod) as filters in the template pipeline, instead of
// hand-rolling equivalents of functions the ecosystem already provides.
var sprigFuncs = sprig.TxtFuncMap()

var slugifyPattern = regexp.MustCompile(`[^a-z0-9]+`)

// filters holds the pipeline filter table. slugify has no ecosystem
// equivalent in the retrieved pack (sprig doesn't ship one), so it is
// hand-rolled against stdlib regexp.
var filters = map[string]filterFunc{
	"upper": func(b Value, _ []Value) (Value, error) {
		return sprigFuncs["upper"].(func(string) string)(toString(b)), nil
	},
	"lower": func(b Value, _ []Value) (Value, error) {
		return sprigFuncs["lower"].(func(string) string)(toString(b)), nil
	},
	"trim": func(b Value, _ []Value) (Value, error) {
		return sprigFuncs["trim"].(func(string) string)(toString(b)), nil
	},
	"title": func(b Value, _ []Value) (Value, error) {
		return sprigFuncs["title"].(func(string) string)(toString(b)), nil
	},
	"nospace": func(b Value, _ []Value) (Value, error) {
		return sprigFuncs["nospace"].(func(string) string)(toString(b)), nil
	},
	"trunc": func(b Value, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("trunc requires one argument")
		}
		n, _ := toFloat(args[0])
		return sprigFuncs["trunc"].(func(int, string) string)(int(n), toString(b)), nil
	},
	"indent": func(b Value, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("indent requires one argument")
		}
		n, _ := toFloat(args[0])
		return sprigFuncs["indent"].(func(int, string) string)(int(n), toString(b)), nil
	},
	"replace": func(b Value, args []Value) (Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("replace requires two arguments")
		}
		fn := sprigFuncs["replace"].(func(string, string, string) string)
		return fn(toString(args[0]), toString(args[1]), toString(b)), nil
	},
	"default": func(b Value, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("default requires one argument")
		}
		if !truthy(b) {
			return args[0], nil
		}
		return b, nil
	},
	"slugify": func(b Value, _ []Value) (Value, error) {
		s := strings.ToLower(toString(b))
		s = slugifyPattern.ReplaceAllString(s, "-")
		return strings.Trim(s, "-"), nil
	},
	"join": func(b Value, args []Value) (Value, error) {
		sep := ","
		if len(args) == 1 {
			sep = toString(args[0])
		}
		list, ok := b.([]Value)
		if !ok {
			return toString(b), nil
		}
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = toString(v)
		}
		return strings.Join(parts, sep), nil
	},
	"first": func(b Value, _ []Value) (Value, error) {
		if list, ok := b.([]Value); ok && len(list) > 0 {
			return list[0], nil
		}
		return nil, nil
	},
	"last": func(b Value, _ []Value) (Value, error) {
		if list, ok := b.([]Value); ok && len(list) > 0 {
			return list[len(list)-1], nil
		}
		return nil, nil
	},
	"length": func(b Value, _ []Value) (Value, error) {
		switch v := b.(type) {
		case []Value:
			return float64(len(v)), nil
		case map[string]Value:
			return float64(len(v)), nil
		case string:
			return float64(len(v)), nil
		default:
			return float64(0), nil
		}
	},
	"contains": func(b Value, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("contains requires one argument")
		}
		switch v := b.(type) {
		case string:
			return strings.Contains(v, toString(args[0])), nil
		case []Value:
			for _, item := range v {
				if equalValues(item, args[0]) {
					return true, nil
				}
			}
			return false, nil
		}
		return false, nil
	},
	"quote": func(b Value, _ []Value) (Value, error) {
		return strconvQuote(toString(b)), nil
	},
	"toJson": func(b Value, _ []Value) (Value, error) {
		out, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		return string(out), nil
	},
}

func strconvQuote(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}
