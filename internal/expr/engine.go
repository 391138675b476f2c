// Package expr implements the deterministic template/expression language
// used to render label values against a per-bundle context: variable
// substitution, statements, comments, filters, conditionals, loops and a
// raw escape. It has no access to the wall clock or randomness; the only
// data available to a template is whatever the caller puts in the context
// map, which keeps evaluation reproducible across ticks.
package expr

// Template is a parsed, reusable template.
type Template struct {
	nodes []Node
	src   string
}

// Parse compiles template source into a reusable Template.
func Parse(src string) (*Template, error) {
	nodes, err := parseTemplate(src)
	if err != nil {
		return nil, err
	}
	return &Template{nodes: nodes, src: src}, nil
}

// Execute renders the template against ctx. ctx values should be built
// from plain Go maps/slices/scalars (as produced by encoding/json); they
// are converted to the engine's internal Value representation.
func (t *Template) Execute(ctx map[string]any) (string, error) {
	vars := make(map[string]Value, len(ctx))
	for k, v := range ctx {
		vars[k] = ToValue(v)
	}
	out, err := renderNodes(t.nodes, &evalCtx{vars: vars})
	if err != nil {
		return "", &RenderError{Expr: t.src, Cause: err}
	}
	return out, nil
}

// Render is a convenience one-shot helper equivalent to Parse then Execute.
func Render(src string, ctx map[string]any) (string, error) {
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return t.Execute(ctx)
}

// ToValue converts a plain Go value (string, bool, float64/int, nil,
// []any, map[string]any — the shapes produced by encoding/json.Unmarshal
// or hand-built Go literals) into the engine's internal Value shape.
func ToValue(v any) Value {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, val := range x {
			m[k] = ToValue(val)
		}
		return m
	case []any:
		s := make([]Value, len(x))
		for i, val := range x {
			s[i] = ToValue(val)
		}
		return s
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return x
	}
}
