package filesource

import "testing"

func TestDecodeFileJSONObject(t *testing.T) {
	objs, err := decodeFile(".json", []byte(`{"mon.type":"http","mon.url":"https://x"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
	if objs[0]["mon.type"] != "http" {
		t.Errorf("mon.type = %q, want http", objs[0]["mon.type"])
	}
}

func TestDecodeFileJSONArray(t *testing.T) {
	objs, err := decodeFile(".json", []byte(`[{"a.type":"http"},{"b.type":"port"}]`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objs))
	}
}

func TestDecodeFileYAMLNested(t *testing.T) {
	objs, err := decodeFile(".yaml", []byte("mon:\n  type: http\n  url: https://x\n"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if objs[0]["mon.type"] != "http" {
		t.Errorf("mon.type = %q, want http", objs[0]["mon.type"])
	}
}

func TestDecodeRawLabelFile(t *testing.T) {
	objs, err := decodeFile(".labels", []byte("# comment\nmon.type=http\nmon.url: https://x\n\n"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if objs[0]["mon.type"] != "http" || objs[0]["mon.url"] != "https://x" {
		t.Errorf("unexpected parse result: %#v", objs[0])
	}
}

func TestDecodeFileUnsupportedExtension(t *testing.T) {
	if _, err := decodeFile(".ini", []byte("x")); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
