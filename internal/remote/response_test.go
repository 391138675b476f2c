package remote

import (
	"encoding/json"
	"testing"
)

func TestDecodeAckFailureMapsToRemoteError(t *testing.T) {
	_, _, err := decodeAck(json.RawMessage(`[{"ok":false,"msg":"name already exists"}]`))
	if err == nil {
		t.Fatal("expected an error for ok:false")
	}
}

func TestScalarIDFromAddMonitorAck(t *testing.T) {
	env, rest, err := decodeAck(json.RawMessage(`[{"ok":true,"msg":"Added Successfully.","monitorID":7}]`))
	if err != nil {
		t.Fatalf("decodeAck failed: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no further ack elements, got %d", len(rest))
	}
	id, ok := env.scalarID("monitorID")
	if !ok || id != "7" {
		t.Fatalf("scalarID(monitorID) = (%q, %v), want (7, true)", id, ok)
	}
}

func TestScalarIDMissingField(t *testing.T) {
	env, _, err := decodeAck(json.RawMessage(`[{"ok":true,"msg":"Added Successfully."}]`))
	if err != nil {
		t.Fatalf("decodeAck failed: %v", err)
	}
	if _, ok := env.scalarID("monitorID"); ok {
		t.Fatal("expected scalarID to report absent field")
	}
}

func TestScalarIDPerKindFieldNames(t *testing.T) {
	cases := map[string]string{
		"tagID":          `{"ok":true,"tagID":1}`,
		"notificationID": `{"ok":true,"notificationID":2}`,
		"dockerHostID":   `{"ok":true,"dockerHostID":3}`,
		"statusPageID":   `{"ok":true,"statusPageID":4}`,
		"maintenanceID":  `{"ok":true,"maintenanceID":5}`,
	}
	for field, body := range cases {
		env, _, err := decodeAck(json.RawMessage("[" + body + "]"))
		if err != nil {
			t.Fatalf("decodeAck(%s) failed: %v", field, err)
		}
		if _, ok := env.scalarID(field); !ok {
			t.Fatalf("scalarID(%s) not found in %s", field, body)
		}
	}
}
