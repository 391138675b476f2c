package expr

import (
	"fmt"
	"strings"
)

// evalCtx is the rendering context: the bundle's variables (container,
// service, system_info, env, custom, args, ...) plus the loop stack.
type evalCtx struct {
	vars map[string]Value
}

func renderNodes(nodes []Node, ctx *evalCtx) (string, error) {
	var sb strings.Builder
	for _, n := range nodes {
		if err := renderNode(n, ctx, &sb); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func renderNode(n Node, ctx *evalCtx, sb *strings.Builder) error {
	switch node := n.(type) {
	case textNode:
		sb.WriteString(node.text)
	case outputNode:
		v, err := evalExpr(node.expr, ctx)
		if err != nil {
			return err
		}
		sb.WriteString(toString(v))
	case ifNode:
		for _, b := range node.branches {
			v, err := evalExpr(b.cond, ctx)
			if err != nil {
				return err
			}
			if truthy(v) {
				out, err := renderNodes(b.body, ctx)
				if err != nil {
					return err
				}
				sb.WriteString(out)
				return nil
			}
		}
		out, err := renderNodes(node.els, ctx)
		if err != nil {
			return err
		}
		sb.WriteString(out)
	case forNode:
		coll, err := evalExpr(node.coll, ctx)
		if err != nil {
			return err
		}
		if err := renderFor(node, coll, ctx, sb); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unhandled node type %T", n)
	}
	return nil
}

func renderFor(node forNode, coll Value, ctx *evalCtx, sb *strings.Builder) error {
	iterate := func(key, val Value) error {
		child := &evalCtx{vars: cloneVars(ctx.vars)}
		if node.keyVar != "" {
			child.vars[node.keyVar] = key
			child.vars[node.valVar] = val
		} else {
			child.vars[node.valVar] = val
		}
		out, err := renderNodes(node.body, child)
		if err != nil {
			return err
		}
		sb.WriteString(out)
		return nil
	}
	switch c := coll.(type) {
	case []Value:
		for i, v := range c {
			if err := iterate(float64(i), v); err != nil {
				return err
			}
		}
	case map[string]Value:
		for k, v := range c {
			if err := iterate(k, v); err != nil {
				return err
			}
		}
	case nil:
		return nil
	default:
		return fmt.Errorf("cannot iterate over %T", coll)
	}
	return nil
}

func cloneVars(v map[string]Value) map[string]Value {
	n := make(map[string]Value, len(v)+1)
	for k, val := range v {
		n[k] = val
	}
	return n
}

func evalExpr(e Expr, ctx *evalCtx) (Value, error) {
	switch ex := e.(type) {
	case literalExpr:
		return ex.value, nil
	case varExpr:
		return evalVar(ex, ctx)
	case unaryNotExpr:
		v, err := evalExpr(ex.e, ctx)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	case binOpExpr:
		return evalBinOp(ex, ctx)
	case filterCallExpr:
		return evalFilter(ex, ctx)
	case listExpr:
		items := make([]Value, 0, len(ex.items))
		for _, it := range ex.items {
			v, err := evalExpr(it, ctx)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	}
	return nil, fmt.Errorf("unhandled expr type %T", e)
}

func evalVar(ex varExpr, ctx *evalCtx) (Value, error) {
	if len(ex.segs) == 0 {
		return nil, nil
	}
	first := ex.segs[0]
	cur, ok := ctx.vars[first.field]
	if !ok {
		cur = nil
	}
	for _, seg := range ex.segs[1:] {
		if seg.index != nil {
			idxVal, err := evalExpr(seg.index, ctx)
			if err != nil {
				return nil, err
			}
			cur = indexInto(cur, idxVal)
			continue
		}
		cur = indexInto(cur, seg.field)
	}
	return cur, nil
}

func indexInto(cur Value, key Value) Value {
	switch c := cur.(type) {
	case map[string]Value:
		return c[toString(key)]
	case []Value:
		if f, ok := toFloat(key); ok {
			i := int(f)
			if i >= 0 && i < len(c) {
				return c[i]
			}
		}
		return nil
	default:
		return nil
	}
}

func evalBinOp(ex binOpExpr, ctx *evalCtx) (Value, error) {
	if ex.op == "and" {
		l, err := evalExpr(ex.l, ctx)
		if err != nil {
			return nil, err
		}
		if !truthy(l) {
			return false, nil
		}
		r, err := evalExpr(ex.r, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}
	if ex.op == "or" {
		l, err := evalExpr(ex.l, ctx)
		if err != nil {
			return nil, err
		}
		if truthy(l) {
			return true, nil
		}
		r, err := evalExpr(ex.r, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}
	l, err := evalExpr(ex.l, ctx)
	if err != nil {
		return nil, err
	}
	r, err := evalExpr(ex.r, ctx)
	if err != nil {
		return nil, err
	}
	switch ex.op {
	case "==":
		return equalValues(l, r), nil
	case "!=":
		return !equalValues(l, r), nil
	case "<", "<=", ">", ">=":
		lf, lok := toFloat(l)
		rf, rok := toFloat(r)
		if lok && rok {
			switch ex.op {
			case "<":
				return lf < rf, nil
			case "<=":
				return lf <= rf, nil
			case ">":
				return lf > rf, nil
			case ">=":
				return lf >= rf, nil
			}
		}
		ls, rs := toString(l), toString(r)
		switch ex.op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		default:
			return ls >= rs, nil
		}
	}
	return nil, fmt.Errorf("unknown operator %q", ex.op)
}

func evalFilter(ex filterCallExpr, ctx *evalCtx) (Value, error) {
	base, err := evalExpr(ex.base, ctx)
	if err != nil {
		return nil, err
	}
	fn, ok := filters[ex.name]
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", ex.name)
	}
	args := make([]Value, 0, len(ex.args))
	for _, a := range ex.args {
		v, err := evalExpr(a, ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return fn(base, args)
}
