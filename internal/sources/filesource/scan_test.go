package filesource

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanObjectAndArrayFiles(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "single.json"), `{"mon.type":"http"}`)
	mustWrite(t, filepath.Join(root, "nested", "many.json"), `[{"a.type":"http"},{"b.type":"port"}]`)
	mustWrite(t, filepath.Join(root, ".hidden.json"), `{"x.type":"http"}`)
	mustWrite(t, filepath.Join(root, "ignored.ini"), `not a label file`)

	bundles, err := scan(Config{Root: root})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	ids := make(map[string]bool)
	for _, b := range bundles {
		ids[b.SourceID] = true
	}
	for _, want := range []string{"single", "nested/many[0]", "nested/many[1]"} {
		if !ids[want] {
			t.Errorf("expected bundle id %q, got ids %v", want, ids)
		}
	}
	if ids[".hidden"] {
		t.Error("hidden file should have been skipped")
	}
	if len(bundles) != 3 {
		t.Errorf("expected 3 bundles, got %d", len(bundles))
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
