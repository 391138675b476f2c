package entity

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/autokuma/autokuma/internal/kuma"
	"github.com/autokuma/autokuma/internal/sources"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return logrus.NewEntry(l)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSynthesizeSimpleHTTPMonitor(t *testing.T) {
	bundle := sources.LabelBundle{
		SourceID: "c1",
		Labels: map[string]string{
			"demo.http.name": "Demo",
			"demo.http.url":  "https://example.com",
		},
		Context: map[string]any{},
	}
	result := Synthesize([]sources.LabelBundle{bundle}, Config{}, nil, testLog())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(result.Entities))
	}
	e := result.Entities[0]
	if e.Kind != kuma.KindMonitor || e.AutokumaID != "demo" {
		t.Fatalf("unexpected entity: %+v", e)
	}
	if e.Fields["name"] != "Demo" || e.Fields["url"] != "https://example.com" {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
	if e.Fields["type"] != "http" {
		t.Fatalf("expected type=http, got %v", e.Fields["type"])
	}
}

func TestSynthesizeGroupAndChildMonitor(t *testing.T) {
	bundle := sources.LabelBundle{
		SourceID: "c1",
		Labels: map[string]string{
			"grp.group.name":   "Apps",
			"m.http.name":      "M",
			"m.http.url":       "https://x",
			"m.http.parent_name": "grp",
		},
	}
	result := Synthesize([]sources.LabelBundle{bundle}, Config{}, nil, testLog())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	byID := map[string]Desired{}
	for _, e := range result.Entities {
		byID[e.AutokumaID] = e
	}
	if byID["grp"].Fields["type"] != "group" {
		t.Fatalf("expected grp to be a group, got %+v", byID["grp"])
	}
	if byID["m"].Fields["parent_name"] != "grp" {
		t.Fatalf("expected m.parent_name = grp, got %+v", byID["m"].Fields)
	}
}

func TestSynthesizeSnippetInvocation(t *testing.T) {
	cfg := Config{
		Snippets: map[string]string{
			"web": "{{id_base}}.http.url: https://{{args[0]}}:{{args[1]}}\n{{id_base}}.http.name: {{args[0]}}",
		},
	}
	bundle := sources.LabelBundle{
		SourceID: "c1",
		Labels: map[string]string{
			`site.__web`: `"example.com", 443`,
		},
	}
	result := Synthesize([]sources.LabelBundle{bundle}, cfg, nil, testLog())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d: %+v", len(result.Entities), result.Entities)
	}
	e := result.Entities[0]
	if e.AutokumaID != "site" {
		t.Fatalf("expected id site, got %q", e.AutokumaID)
	}
	if e.Fields["url"] != "https://example.com:443" {
		t.Fatalf("unexpected url: %v", e.Fields["url"])
	}
	if e.Fields["name"] != "example.com" {
		t.Fatalf("unexpected name: %v", e.Fields["name"])
	}
}

func TestSynthesizeMissingRequiredFieldIsolates(t *testing.T) {
	bad := sources.LabelBundle{
		SourceID: "bad",
		Labels:   map[string]string{"broken.http.method": "GET"}, // missing required url
	}
	good := sources.LabelBundle{
		SourceID: "good",
		Labels: map[string]string{
			"ok.http.name": "OK",
			"ok.http.url":  "https://ok",
		},
	}
	result := Synthesize([]sources.LabelBundle{bad, good}, Config{}, nil, testLog())
	if len(result.Entities) != 1 || result.Entities[0].AutokumaID != "ok" {
		t.Fatalf("expected only 'ok' to synthesize, got %+v", result.Entities)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 isolated error, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestBreakParentCyclesDropsClosingEdge(t *testing.T) {
	entities := []Desired{
		{Kind: kuma.KindMonitor, AutokumaID: "a", Fields: kuma.Fields{"parent_name": "b"}},
		{Kind: kuma.KindMonitor, AutokumaID: "b", Fields: kuma.Fields{"parent_name": "c"}},
		{Kind: kuma.KindMonitor, AutokumaID: "c", Fields: kuma.Fields{"parent_name": "a"}},
	}
	warnings := breakParentCycles(entities)
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", warnings)
	}
	// "c" is the lexicographically largest AutokumaID in the cycle, so
	// its edge is always the one dropped, regardless of traversal order.
	for _, e := range entities {
		_, hasParent := e.Fields["parent_name"]
		wantDropped := e.AutokumaID == "c"
		if hasParent == wantDropped {
			t.Fatalf("%q parent_name present=%v, want dropped=%v", e.AutokumaID, hasParent, wantDropped)
		}
	}
}

// TestBreakParentCyclesIsOrderIndependent asserts the dropped edge does
// not depend on slice order — rebuilding the same cycle's entities in
// every rotation must always clear "c"'s edge, matching the
// lexicographically-largest-wins rule (§8 idempotence: an unchanged
// source set must break the same edge on every tick).
func TestBreakParentCyclesIsOrderIndependent(t *testing.T) {
	base := []Desired{
		{Kind: kuma.KindMonitor, AutokumaID: "a", Fields: kuma.Fields{"parent_name": "b"}},
		{Kind: kuma.KindMonitor, AutokumaID: "b", Fields: kuma.Fields{"parent_name": "c"}},
		{Kind: kuma.KindMonitor, AutokumaID: "c", Fields: kuma.Fields{"parent_name": "a"}},
	}
	for rot := 0; rot < len(base); rot++ {
		entities := make([]Desired, len(base))
		for i := range base {
			src := base[(i+rot)%len(base)]
			entities[i] = Desired{
				Kind:       src.Kind,
				AutokumaID: src.AutokumaID,
				Fields:     kuma.Fields{"parent_name": src.Fields["parent_name"]},
			}
		}
		breakParentCycles(entities)
		for _, e := range entities {
			_, hasParent := e.Fields["parent_name"]
			wantDropped := e.AutokumaID == "c"
			if hasParent == wantDropped {
				t.Fatalf("rotation %d: %q parent_name present=%v, want dropped=%v", rot, e.AutokumaID, hasParent, wantDropped)
			}
		}
	}
}

func TestAcceptedStatusCodesRangeExpansion(t *testing.T) {
	bundle := sources.LabelBundle{
		SourceID: "c1",
		Labels: map[string]string{
			"m.http.name":                 "M",
			"m.http.url":                  "https://x",
			"m.http.accepted_statuscodes": "200-202,418",
		},
	}
	result := Synthesize([]sources.LabelBundle{bundle}, Config{}, nil, testLog())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	codes, ok := result.Entities[0].Fields["accepted_statuscodes"].([]any)
	if !ok {
		t.Fatalf("expected a list, got %T", result.Entities[0].Fields["accepted_statuscodes"])
	}
	want := []float64{200, 201, 202, 418}
	if len(codes) != len(want) {
		t.Fatalf("expected %v, got %v", want, codes)
	}
	for i, c := range codes {
		if c.(float64) != want[i] {
			t.Fatalf("expected %v, got %v", want, codes)
		}
	}
}
