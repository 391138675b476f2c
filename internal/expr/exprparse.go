package expr

import "fmt"

type eparser struct {
	toks []etoken
	pos  int
}

func parseExpr(src string) (Expr, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &eparser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != etEOF {
		return nil, fmt.Errorf("unexpected trailing tokens in %q", src)
	}
	return e, nil
}

func (p *eparser) cur() etoken  { return p.toks[p.pos] }
func (p *eparser) advance()     { p.pos++ }
func (p *eparser) isIdent(s string) bool {
	return p.cur().kind == etIdent && p.cur().text == s
}
func (p *eparser) isOp(s string) bool {
	return p.cur().kind == etOp && p.cur().text == s
}

func (p *eparser) parseOr() (Expr, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isIdent("or") {
		p.advance()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = binOpExpr{op: "or", l: l, r: r}
	}
	return l, nil
}

func (p *eparser) parseAnd() (Expr, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isIdent("and") {
		p.advance()
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l = binOpExpr{op: "and", l: l, r: r}
	}
	return l, nil
}

func (p *eparser) parseNot() (Expr, error) {
	if p.isIdent("not") {
		p.advance()
		e, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return unaryNotExpr{e: e}, nil
	}
	return p.parseCompare()
}

var compareOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *eparser) parseCompare() (Expr, error) {
	l, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == etOp && compareOps[p.cur().text] {
		op := p.cur().text
		p.advance()
		r, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		return binOpExpr{op: op, l: l, r: r}, nil
	}
	return l, nil
}

func (p *eparser) parsePipeline() (Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.isOp("|") {
		p.advance()
		if p.cur().kind != etIdent {
			return nil, fmt.Errorf("expected filter name after |")
		}
		name := p.cur().text
		p.advance()
		var args []Expr
		if p.isOp(":") {
			p.advance()
			for {
				a, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.isOp(",") {
					p.advance()
					continue
				}
				break
			}
		}
		base = filterCallExpr{base: base, name: name, args: args}
	}
	return base, nil
}

func (p *eparser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch {
	case t.kind == etNumber:
		p.advance()
		return literalExpr{value: t.num}, nil
	case t.kind == etString:
		p.advance()
		return literalExpr{value: t.str}, nil
	case t.kind == etIdent && t.text == "true":
		p.advance()
		return literalExpr{value: true}, nil
	case t.kind == etIdent && t.text == "false":
		p.advance()
		return literalExpr{value: false}, nil
	case t.kind == etIdent:
		return p.parseVar()
	case t.kind == etOp && t.text == "(":
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.isOp(")") {
			return nil, fmt.Errorf("expected )")
		}
		p.advance()
		return e, nil
	case t.kind == etOp && t.text == "[":
		p.advance()
		var items []Expr
		for !p.isOp("]") {
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			items = append(items, e)
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
		if !p.isOp("]") {
			return nil, fmt.Errorf("expected ]")
		}
		p.advance()
		return listExpr{items: items}, nil
	}
	return nil, fmt.Errorf("unexpected token %q", t.text)
}

func (p *eparser) parseVar() (Expr, error) {
	segs := []pathSeg{{field: p.cur().text}}
	p.advance()
	for {
		if p.isOp(".") {
			p.advance()
			if p.cur().kind != etIdent && p.cur().kind != etNumber {
				return nil, fmt.Errorf("expected field name after .")
			}
			if p.cur().kind == etIdent {
				segs = append(segs, pathSeg{field: p.cur().text})
			} else {
				segs = append(segs, pathSeg{field: fmt.Sprintf("%v", p.cur().num)})
			}
			p.advance()
			continue
		}
		if p.isOp("[") {
			p.advance()
			idx, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if !p.isOp("]") {
				return nil, fmt.Errorf("expected ]")
			}
			p.advance()
			segs = append(segs, pathSeg{index: idx})
			continue
		}
		break
	}
	return varExpr{segs: segs}, nil
}
