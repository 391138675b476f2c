package reconciler

import (
	"testing"
	"time"

	"github.com/autokuma/autokuma/internal/entity"
	"github.com/autokuma/autokuma/internal/kuma"
	"github.com/autokuma/autokuma/internal/store"
)

// fakeStore implements identityLookup in memory for diff tests.
type fakeStore struct {
	mapped  map[kuma.Kind]map[string]string
	missing map[kuma.Kind]map[string]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		mapped:  make(map[kuma.Kind]map[string]string),
		missing: make(map[kuma.Kind]map[string]time.Time),
	}
}

func (f *fakeStore) put(kind kuma.Kind, autokumaID, serverID string) {
	if f.mapped[kind] == nil {
		f.mapped[kind] = make(map[string]string)
	}
	f.mapped[kind][autokumaID] = serverID
}

func (f *fakeStore) Get(kind kuma.Kind, autokumaID string) (string, error) {
	return f.mapped[kind][autokumaID], nil
}

func (f *fakeStore) List(kind kuma.Kind) ([]store.Mapping, error) {
	var out []store.Mapping
	for id, sid := range f.mapped[kind] {
		out = append(out, store.Mapping{AutokumaID: id, ServerID: sid})
	}
	return out, nil
}

func (f *fakeStore) GetMissingSince(kind kuma.Kind, autokumaID string) (time.Time, error) {
	if f.missing[kind] == nil {
		return time.Time{}, nil
	}
	return f.missing[kind][autokumaID], nil
}

func (f *fakeStore) MarkMissing(kind kuma.Kind, autokumaID string, now time.Time) error {
	if f.missing[kind] == nil {
		f.missing[kind] = make(map[string]time.Time)
	}
	if _, ok := f.missing[kind][autokumaID]; !ok {
		f.missing[kind][autokumaID] = now
	}
	return nil
}

func (f *fakeStore) ClearMissing(kind kuma.Kind, autokumaID string) error {
	delete(f.missing[kind], autokumaID)
	return nil
}

func TestDiffCreatesNewEntity(t *testing.T) {
	st := newFakeStore()
	desired := []entity.Desired{
		{Kind: kuma.KindMonitor, AutokumaID: "demo", Fields: kuma.Fields{"type": "http", "name": "Demo", "url": "https://example.com"}},
	}
	plan, deletes, err := Diff(desired, nil, st, time.Minute, false, time.Now())
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(deletes) != 0 {
		t.Fatalf("unexpected delete candidates: %+v", deletes)
	}
	if len(plan.Actions) != 1 || plan.Actions[0].Kind != ActionCreate {
		t.Fatalf("expected one create action, got %+v", plan.Actions)
	}
}

func TestDiffNoOpWhenFieldsMatch(t *testing.T) {
	st := newFakeStore()
	st.put(kuma.KindMonitor, "demo", "1")
	fields := kuma.Fields{"type": "http", "name": "Demo", "url": "https://example.com"}
	actual := map[kuma.Kind]map[string]Actual{
		kuma.KindMonitor: {"1": {ServerID: "1", Fields: fields}},
	}
	desired := []entity.Desired{{Kind: kuma.KindMonitor, AutokumaID: "demo", Fields: fields}}

	plan, _, err := Diff(desired, actual, st, time.Minute, false, time.Now())
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(plan.Actions) != 0 {
		t.Fatalf("expected idempotent no-op, got %+v", plan.Actions)
	}
}

func TestDiffUpdateOnFieldChange(t *testing.T) {
	st := newFakeStore()
	st.put(kuma.KindMonitor, "demo", "1")
	actual := map[kuma.Kind]map[string]Actual{
		kuma.KindMonitor: {"1": {ServerID: "1", Fields: kuma.Fields{"type": "http", "name": "Old", "url": "https://example.com", "active": true}}},
	}
	desired := []entity.Desired{
		{Kind: kuma.KindMonitor, AutokumaID: "demo", Fields: kuma.Fields{"type": "http", "name": "New", "url": "https://example.com", "active": true}},
	}
	plan, _, err := Diff(desired, actual, st, time.Minute, false, time.Now())
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(plan.Actions) != 1 || plan.Actions[0].Kind != ActionUpdate {
		t.Fatalf("expected one update action, got %+v", plan.Actions)
	}
}

func TestDiffPauseOnActiveFalse(t *testing.T) {
	st := newFakeStore()
	st.put(kuma.KindMonitor, "demo", "1")
	actual := map[kuma.Kind]map[string]Actual{
		kuma.KindMonitor: {"1": {ServerID: "1", Fields: kuma.Fields{"type": "http", "name": "Demo", "url": "https://example.com", "active": true}}},
	}
	desired := []entity.Desired{
		{Kind: kuma.KindMonitor, AutokumaID: "demo", Fields: kuma.Fields{"type": "http", "name": "Demo", "url": "https://example.com", "active": false}},
	}
	plan, _, err := Diff(desired, actual, st, time.Minute, false, time.Now())
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	var sawPause bool
	for _, a := range plan.Actions {
		if a.Kind == ActionPause {
			sawPause = true
		}
	}
	if !sawPause {
		t.Fatalf("expected a pause action, got %+v", plan.Actions)
	}
}

func TestDiffDeleteGracePeriod(t *testing.T) {
	st := newFakeStore()
	st.put(kuma.KindMonitor, "demo", "1")
	actual := map[kuma.Kind]map[string]Actual{
		kuma.KindMonitor: {"1": {ServerID: "1", Fields: kuma.Fields{"type": "http", "name": "Demo"}}},
	}
	start := time.Now()

	// t=0: desired set no longer includes "demo" -> marked missing, no delete yet.
	plan, deletes, err := Diff(nil, actual, st, 60*time.Second, false, start)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(plan.Actions) != 0 || len(deletes) != 1 {
		t.Fatalf("expected a grace-period delete candidate and no action, got plan=%+v deletes=%+v", plan.Actions, deletes)
	}

	// t=30s: still within the grace period.
	plan, deletes, err = Diff(nil, actual, st, 60*time.Second, false, start.Add(30*time.Second))
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(plan.Actions) != 0 || len(deletes) != 1 {
		t.Fatalf("expected still within grace period, got plan=%+v deletes=%+v", plan.Actions, deletes)
	}

	// t=90s: grace period elapsed, delete issued.
	plan, deletes, err = Diff(nil, actual, st, 60*time.Second, false, start.Add(90*time.Second))
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(plan.Actions) != 1 || plan.Actions[0].Kind != ActionDelete {
		t.Fatalf("expected a delete action after grace period, got %+v", plan.Actions)
	}
	if len(deletes) != 0 {
		t.Fatalf("expected no remaining delete candidates once issued, got %+v", deletes)
	}
}

func TestDiffMissingClearedOnReappearance(t *testing.T) {
	st := newFakeStore()
	st.put(kuma.KindMonitor, "demo", "1")
	actual := map[kuma.Kind]map[string]Actual{
		kuma.KindMonitor: {"1": {ServerID: "1", Fields: kuma.Fields{"type": "http", "name": "Demo"}}},
	}
	start := time.Now()
	if _, _, err := Diff(nil, actual, st, 60*time.Second, false, start); err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if _, ok := st.missing[kuma.KindMonitor]["demo"]; !ok {
		t.Fatalf("expected demo to be marked missing")
	}

	desired := []entity.Desired{{Kind: kuma.KindMonitor, AutokumaID: "demo", Fields: kuma.Fields{"type": "http", "name": "Demo"}}}
	if _, _, err := Diff(desired, actual, st, 60*time.Second, false, start.Add(10*time.Second)); err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if _, ok := st.missing[kuma.KindMonitor]["demo"]; ok {
		t.Fatalf("expected missing marker cleared on reappearance")
	}
}

func TestDiffCreatesGroupBeforeChildMonitor(t *testing.T) {
	st := newFakeStore()
	desired := []entity.Desired{
		{Kind: kuma.KindMonitor, AutokumaID: "m", Fields: kuma.Fields{"type": "http", "name": "M", "url": "https://x", "parent_name": "grp"}},
		{Kind: kuma.KindMonitor, AutokumaID: "grp", Fields: kuma.Fields{"type": "group", "name": "Apps"}},
	}
	plan, _, err := Diff(desired, nil, st, time.Minute, false, time.Now())
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(plan.Actions) != 2 {
		t.Fatalf("expected 2 creates, got %+v", plan.Actions)
	}
	if plan.Actions[0].AutokumaID != "grp" || plan.Actions[1].AutokumaID != "m" {
		t.Fatalf("expected group created before monitor, got order %q, %q", plan.Actions[0].AutokumaID, plan.Actions[1].AutokumaID)
	}
}
