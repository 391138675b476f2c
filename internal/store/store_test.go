package store

import (
	"testing"
	"time"

	"github.com/autokuma/autokuma/internal/kuma"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)

	if got, err := s.Get(kuma.KindMonitor, "web"); err != nil || got != "" {
		t.Fatalf("expected empty/no-error for missing key, got %q, %v", got, err)
	}

	if err := s.Put(kuma.KindMonitor, "web", "42"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(kuma.KindMonitor, "web")
	if err != nil || got != "42" {
		t.Fatalf("Get = %q, %v, want 42, nil", got, err)
	}

	if err := s.Delete(kuma.KindMonitor, "web"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := s.Get(kuma.KindMonitor, "web"); got != "" {
		t.Fatalf("expected empty after delete, got %q", got)
	}
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put(kuma.KindMonitor, "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(kuma.KindMonitor, "b", "2"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(kuma.KindTag, "c", "3"); err != nil {
		t.Fatal(err)
	}

	mappings, err := s.List(kuma.KindMonitor)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("expected 2 monitor mappings, got %d: %#v", len(mappings), mappings)
	}
}

func TestMissingMarkers(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	if ts, err := s.GetMissingSince(kuma.KindMonitor, "web"); err != nil || !ts.IsZero() {
		t.Fatalf("expected zero time for unmarked entity, got %v, %v", ts, err)
	}

	if err := s.MarkMissing(kuma.KindMonitor, "web", now); err != nil {
		t.Fatalf("MarkMissing failed: %v", err)
	}
	ts, err := s.GetMissingSince(kuma.KindMonitor, "web")
	if err != nil {
		t.Fatalf("GetMissingSince failed: %v", err)
	}
	if !ts.Equal(now) {
		t.Fatalf("GetMissingSince = %v, want %v", ts, now)
	}

	if err := s.ClearMissing(kuma.KindMonitor, "web"); err != nil {
		t.Fatalf("ClearMissing failed: %v", err)
	}
	if ts, _ := s.GetMissingSince(kuma.KindMonitor, "web"); !ts.IsZero() {
		t.Fatalf("expected zero time after clear, got %v", ts)
	}
}

func TestRefusesLegacyStateWithoutMigrate(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, false)
	if err != nil {
		t.Fatalf("initial open failed: %v", err)
	}
	if err := s.MarkLegacyStateDetected(); err != nil {
		t.Fatalf("MarkLegacyStateDetected failed: %v", err)
	}
	s.Close()

	if _, err := Open(dir, false); err == nil {
		t.Fatal("expected Open to refuse starting with undetected-but-marked legacy state and migrate=false")
	}

	s2, err := Open(dir, true)
	if err != nil {
		t.Fatalf("Open with migrate=true should succeed: %v", err)
	}
	if err := s2.ClearLegacyState(); err != nil {
		t.Fatalf("ClearLegacyState failed: %v", err)
	}
	s2.Close()

	s3, err := Open(dir, false)
	if err != nil {
		t.Fatalf("Open after ClearLegacyState should succeed: %v", err)
	}
	s3.Close()
}
