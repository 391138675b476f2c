package store

import (
	"context"
	"testing"

	"github.com/autokuma/autokuma/internal/kuma"
)

type fakeLister struct {
	monitors []kuma.Fields
}

func (f *fakeLister) List(ctx context.Context, kind kuma.Kind) ([]kuma.Fields, error) {
	return f.monitors, nil
}

func TestMigrateLegacyImportsTaggedMonitors(t *testing.T) {
	s := openTestStore(t)
	lister := &fakeLister{monitors: []kuma.Fields{
		{
			"id":          float64(7),
			"description": "managed by autokuma, autokuma_id:demo",
			"tags":        []any{map[string]any{"name": "autokuma"}},
		},
		{
			"id":          float64(9),
			"description": "not managed",
			"tags":        []any{},
		},
	}}

	count, err := s.MigrateLegacy(context.Background(), lister, "autokuma")
	if err != nil {
		t.Fatalf("MigrateLegacy failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 import, got %d", count)
	}
	serverID, err := s.Get(kuma.KindMonitor, "demo")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if serverID != "7" {
		t.Fatalf("expected server id 7, got %q", serverID)
	}

	if _, err := s.MigrateLegacy(context.Background(), lister, "autokuma"); err == nil {
		t.Fatal("expected second migration to refuse")
	}
}
