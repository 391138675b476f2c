package entity

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/autokuma/autokuma/internal/expr"
)

var snippetInvocationRE = regexp.MustCompile(`^(.+)\.__([A-Za-z0-9_-]+)$`)

const maxSnippetPasses = 8

// expandSnippets implements §4.3 step 1. It resolves both invocation
// forms — `<id>.__<snippet>` and a literal key matching a snippet whose
// configured name starts with "!" — repeatedly, so a snippet's own
// output may itself invoke another snippet, until no invocations
// remain or maxSnippetPasses is hit (a snippet cycle is a configuration
// bug, not something the synthesizer should spin on forever).
func expandSnippets(labels map[string]string, snippets map[string]string, ctx map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}

	bangSnippets := make(map[string]string) // literal label key -> snippet body
	for name, body := range snippets {
		if strings.HasPrefix(name, "!") {
			bangSnippets[strings.TrimPrefix(name, "!")] = body
		}
	}

	for pass := 0; pass < maxSnippetPasses; pass++ {
		invocation, idBase, snippetName, argRaw, found := findInvocation(out, snippets, bangSnippets)
		if !found {
			return out, nil
		}
		delete(out, invocation)

		body, ok := snippets[snippetName]
		if !ok {
			body, ok = snippets["!"+snippetName]
		}
		if !ok {
			return nil, fmt.Errorf("label %q invokes unknown snippet %q", invocation, snippetName)
		}

		args := parseSnippetArgs(argRaw)
		snipCtx := make(map[string]any, len(ctx)+2)
		for k, v := range ctx {
			snipCtx[k] = v
		}
		snipCtx["args"] = args
		if idBase != "" {
			snipCtx["id_base"] = idBase
		}

		rendered, err := expr.Render(body, snipCtx)
		if err != nil {
			return nil, fmt.Errorf("snippet %q: %w", snippetName, err)
		}
		for _, line := range strings.Split(rendered, "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			key, val, ok := splitKeyValue(line)
			if !ok {
				return nil, fmt.Errorf("snippet %q produced malformed line %q, want \"key: value\"", snippetName, line)
			}
			out[key] = val
		}
	}
	return nil, fmt.Errorf("snippet expansion did not converge after %d passes (possible snippet cycle)", maxSnippetPasses)
}

// findInvocation returns the first snippet invocation found in labels,
// in sorted key order for determinism.
func findInvocation(labels map[string]string, snippets, bangSnippets map[string]string) (key, idBase, snippetName, argRaw string, found bool) {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sortStrings(keys)

	for _, k := range keys {
		if m := snippetInvocationRE.FindStringSubmatch(k); m != nil {
			if _, ok := snippets[m[2]]; ok {
				return k, m[1], m[2], labels[k], true
			}
		}
		if _, ok := bangSnippets[k]; ok {
			return k, "", k, labels[k], true
		}
	}
	return "", "", "", "", false
}

// parseSnippetArgs implements "parsed as JSON first, fallback to raw
// string" (§4.3 step 1): a JSON array/object/scalar is passed through
// as-is; anything that fails to parse becomes a single-element list
// containing the raw string.
func parseSnippetArgs(raw string) any {
	var direct any
	if err := json.Unmarshal([]byte(raw), &direct); err == nil {
		return direct
	}
	// Convenience form used by unbracketed comma lists, e.g.
	// `"example.com", 443` meant as a two-element args array.
	var list any
	if err := json.Unmarshal([]byte("["+raw+"]"), &list); err == nil {
		return list
	}
	return []any{raw}
}

func splitKeyValue(line string) (key, val string, ok bool) {
	idx := strings.Index(line, ":")
	if idx == -1 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
