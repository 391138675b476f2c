package expr

import "testing"

func TestRenderVariable(t *testing.T) {
	out, err := Render("hello {{ name }}", map[string]any{"name": "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderFilterPipeline(t *testing.T) {
	out, err := Render("{{ name | upper | slugify }}", map[string]any{"name": "My Demo Site"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "my-demo-site" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderConditional(t *testing.T) {
	tpl := "{% if active %}on{% else %}off{% endif %}"
	out, err := Render(tpl, map[string]any{"active": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "on" {
		t.Fatalf("got %q", out)
	}
	out, err = Render(tpl, map[string]any{"active": false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "off" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderLoop(t *testing.T) {
	tpl := "{% for name in names %}{{ name }},{% endfor %}"
	out, err := Render(tpl, map[string]any{"names": []any{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a,b,c," {
		t.Fatalf("got %q", out)
	}
}

func TestRenderMapLoop(t *testing.T) {
	tpl := "{% for k, v in labels %}{{ k }}={{ v }};{% endfor %}"
	out, err := Render(tpl, map[string]any{"labels": map[string]any{"a": "1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a=1;" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderIndexing(t *testing.T) {
	out, err := Render("{{ args[0] }}:{{ args[1] }}", map[string]any{"args": []any{"example.com", float64(443)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "example.com:443" {
		t.Fatalf("got %q", out)
	}
}

func TestRawBlockSuppressesInterpretation(t *testing.T) {
	tpl := "{% raw %}{{ not a var }}{% endraw %}"
	out, err := Render(tpl, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "{{ not a var }}" {
		t.Fatalf("got %q", out)
	}
}

func TestCommentsAreDropped(t *testing.T) {
	out, err := Render("a{# comment #}b", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ab" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderErrorCarriesExpression(t *testing.T) {
	_, err := Render("{{ name | nosuchfilter }}", map[string]any{"name": "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var rerr *RenderError
	if !asRenderError(err, &rerr) {
		t.Fatalf("expected *RenderError, got %T", err)
	}
}

func asRenderError(err error, target **RenderError) bool {
	if re, ok := err.(*RenderError); ok {
		*target = re
		return true
	}
	return false
}

func TestNestedFieldAccess(t *testing.T) {
	ctx := map[string]any{
		"container": map[string]any{"name": "web-1"},
	}
	out, err := Render("{{ container.name }}", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "web-1" {
		t.Fatalf("got %q", out)
	}
}
