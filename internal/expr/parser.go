package expr

import (
	"fmt"
	"strings"
)

type blockParser struct {
	toks []token
	pos  int
}

func parseTemplate(src string) ([]Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &blockParser{toks: toks}
	nodes, err := p.parseNodes()
	if err != nil {
		return nil, &ParseError{Source: src, Cause: err}
	}
	if p.pos != len(p.toks) {
		return nil, &ParseError{Source: src, Cause: fmt.Errorf("unexpected trailing block %q", p.cur().text)}
	}
	return nodes, nil
}

func (p *blockParser) cur() token { return p.toks[p.pos] }
func (p *blockParser) atEnd() bool { return p.pos >= len(p.toks) }

// parseNodes consumes nodes until EOF or a closing/else/elif statement,
// which is left unconsumed for the caller to inspect.
func (p *blockParser) parseNodes() ([]Node, error) {
	var nodes []Node
	for !p.atEnd() {
		t := p.cur()
		if t.kind == tokStmt {
			word := firstWord(t.text)
			if word == "elif" || word == "else" || word == "endif" || word == "endfor" {
				return nodes, nil
			}
		}
		switch t.kind {
		case tokText:
			nodes = append(nodes, textNode{text: t.text})
			p.pos++
		case tokOutput:
			e, err := parseExpr(t.text)
			if err != nil {
				return nil, fmt.Errorf("in {{ %s }}: %w", t.text, err)
			}
			nodes = append(nodes, outputNode{expr: e})
			p.pos++
		case tokStmt:
			node, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, " \t"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func (p *blockParser) parseStmt() (Node, error) {
	t := p.cur()
	word := firstWord(t.text)
	rest := strings.TrimSpace(strings.TrimPrefix(t.text, word))
	switch word {
	case "if":
		return p.parseIf()
	case "for":
		return p.parseFor(rest)
	default:
		return nil, fmt.Errorf("unknown or misplaced statement %q", t.text)
	}
}

func (p *blockParser) parseIf() (Node, error) {
	var n ifNode
	for {
		t := p.cur()
		word := firstWord(t.text)
		rest := strings.TrimSpace(strings.TrimPrefix(t.text, word))
		p.pos++
		if word == "else" {
			body, err := p.parseNodes()
			if err != nil {
				return nil, err
			}
			n.els = body
			if firstWord(p.cur().text) != "endif" {
				return nil, fmt.Errorf("expected endif")
			}
			p.pos++
			return n, nil
		}
		cond, err := parseExpr(rest)
		if err != nil {
			return nil, fmt.Errorf("in {%% %s %%}: %w", t.text, err)
		}
		body, err := p.parseNodes()
		if err != nil {
			return nil, err
		}
		n.branches = append(n.branches, ifBranch{cond: cond, body: body})
		next := firstWord(p.cur().text)
		if next == "endif" {
			p.pos++
			return n, nil
		}
		if next != "elif" && next != "else" {
			return nil, fmt.Errorf("expected elif/else/endif, got %q", p.cur().text)
		}
	}
}

func (p *blockParser) parseFor(rest string) (Node, error) {
	p.pos++
	inIdx := findTopLevelWord(rest, "in")
	if inIdx < 0 {
		return nil, fmt.Errorf("malformed for statement: %q", rest)
	}
	vars := strings.TrimSpace(rest[:inIdx])
	collSrc := strings.TrimSpace(rest[inIdx+2:])
	coll, err := parseExpr(collSrc)
	if err != nil {
		return nil, fmt.Errorf("in for-loop collection %q: %w", collSrc, err)
	}
	var keyVar, valVar string
	if parts := strings.Split(vars, ","); len(parts) == 2 {
		keyVar = strings.TrimSpace(parts[0])
		valVar = strings.TrimSpace(parts[1])
	} else {
		valVar = strings.TrimSpace(vars)
	}
	body, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if firstWord(p.cur().text) != "endfor" {
		return nil, fmt.Errorf("expected endfor")
	}
	p.pos++
	return forNode{keyVar: keyVar, valVar: valVar, coll: coll, body: body}, nil
}

func findTopLevelWord(s, word string) int {
	fields := strings.Fields(s)
	offset := 0
	for _, f := range fields {
		idx := strings.Index(s[offset:], f)
		start := offset + idx
		if f == word {
			return start
		}
		offset = start + len(f)
	}
	return -1
}
