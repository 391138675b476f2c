package remote

import (
	"testing"

	"github.com/autokuma/autokuma/internal/kuma"
)

func TestEventNameAddVerbs(t *testing.T) {
	cases := []struct {
		kind kuma.Kind
		want string
	}{
		{kuma.KindTag, "addTag"},
		{kuma.KindNotification, "addNotification"},
		{kuma.KindDockerHost, "addDockerHost"},
		{kuma.KindMonitor, "addMonitor"},
		{kuma.KindStatusPage, "addStatusPage"},
		{kuma.KindMaintenance, "addMaintenance"},
	}
	for _, c := range cases {
		got, err := eventName(c.kind, "add")
		if err != nil {
			t.Fatalf("eventName(%s) failed: %v", c.kind, err)
		}
		if got != c.want {
			t.Errorf("eventName(%s, add) = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestEventNameUnsupportedKind(t *testing.T) {
	if _, err := eventName(kuma.Kind("bogus"), "add"); err == nil {
		t.Fatal("expected an error for an unrecognized kind")
	}
}

// eventNames' values are exactly the scalar-ID field prefixes the real
// server's add* ack uses (monitorID, tagID, ...); Add relies on that
// correspondence directly rather than a separate lookup table.
func TestEventNamesMatchScalarIDFieldPrefixes(t *testing.T) {
	want := map[kuma.Kind]string{
		kuma.KindTag:          "tag",
		kuma.KindNotification: "notification",
		kuma.KindDockerHost:   "dockerHost",
		kuma.KindMonitor:      "monitor",
		kuma.KindStatusPage:   "statusPage",
		kuma.KindMaintenance:  "maintenance",
	}
	for kind, prefix := range want {
		if eventNames[kind] != prefix {
			t.Errorf("eventNames[%s] = %q, want %q", kind, eventNames[kind], prefix)
		}
	}
}
