package expr

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokOutput
	tokStmt
	tokComment
)

type token struct {
	kind tokenKind
	text string
}

// lex splits a template source into text, {{ output }}, {% statement %} and
// {# comment #} tokens. Comment tokens are dropped from the returned stream.
// A {% raw %}...{% endraw %} span is emitted as a single verbatim text
// token: its contents are never interpreted, per the "raw escape" capability.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		next, kind := findNextDelim(src[i:])
		if next < 0 {
			toks = append(toks, token{kind: tokText, text: src[i:]})
			break
		}
		if next > 0 {
			toks = append(toks, token{kind: tokText, text: src[i : i+next]})
		}
		i += next

		var open, close string
		switch kind {
		case tokOutput:
			open, close = "{{", "}}"
		case tokStmt:
			open, close = "{%", "%}"
		default:
			open, close = "{#", "#}"
		}
		end := strings.Index(src[i+len(open):], close)
		if end < 0 {
			return nil, &ParseError{Source: src, Cause: fmt.Errorf("unterminated %s", open)}
		}
		body := src[i+len(open) : i+len(open)+end]
		i = i + len(open) + end + len(close)

		if kind == tokStmt && strings.TrimSpace(body) == "raw" {
			rawBody, newPos, err := consumeRaw(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokText, text: rawBody})
			i = newPos
			continue
		}

		if kind == tokComment {
			continue
		}
		toks = append(toks, token{kind: kind, text: strings.TrimSpace(body)})
	}
	return toks, nil
}

// consumeRaw reads verbatim text starting at pos until the next
// {% endraw %} tag (tolerating arbitrary whitespace inside the tag) and
// returns the raw text plus the position right after the closing tag.
func consumeRaw(src string, pos int) (string, int, error) {
	rest := src[pos:]
	idx := 0
	for {
		tagStart := strings.Index(rest[idx:], "{%")
		if tagStart < 0 {
			return "", 0, &ParseError{Source: src, Cause: fmt.Errorf("unterminated raw block")}
		}
		tagStart += idx
		tagEnd := strings.Index(rest[tagStart:], "%}")
		if tagEnd < 0 {
			return "", 0, &ParseError{Source: src, Cause: fmt.Errorf("unterminated raw block")}
		}
		tagEnd += tagStart
		tagBody := strings.TrimSpace(rest[tagStart+2 : tagEnd])
		if tagBody == "endraw" {
			return rest[:tagStart], pos + tagEnd + len("%}"), nil
		}
		idx = tagEnd + len("%}")
	}
}

// findNextDelim returns the index of the next {{, {% or {# and its kind.
func findNextDelim(s string) (int, tokenKind) {
	best := -1
	bestKind := tokText
	for _, d := range []struct {
		marker string
		kind   tokenKind
	}{
		{"{{", tokOutput},
		{"{%", tokStmt},
		{"{#", tokComment},
	} {
		if idx := strings.Index(s, d.marker); idx >= 0 && (best == -1 || idx < best) {
			best = idx
			bestKind = d.kind
		}
	}
	return best, bestKind
}
