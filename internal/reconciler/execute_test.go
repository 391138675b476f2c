package reconciler

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/autokuma/autokuma/internal/kuma"
)

type fakeRemote struct {
	addResult kuma.Fields
	addErr    error
	editErr   error
	deleteErr error
	pauseErr  error
	resumeErr error

	added   []kuma.Fields
	edited  []string
	deleted []string
	paused  []string
	resumed []string
}

func (f *fakeRemote) Add(ctx context.Context, kind kuma.Kind, fields kuma.Fields) (kuma.Fields, error) {
	f.added = append(f.added, fields)
	if f.addErr != nil {
		return nil, f.addErr
	}
	if f.addResult != nil {
		return f.addResult, nil
	}
	return kuma.Fields{"id": float64(1)}, nil
}

func (f *fakeRemote) Edit(ctx context.Context, kind kuma.Kind, serverID string, fields kuma.Fields) error {
	f.edited = append(f.edited, serverID)
	return f.editErr
}

func (f *fakeRemote) Delete(ctx context.Context, kind kuma.Kind, serverID string) error {
	f.deleted = append(f.deleted, serverID)
	return f.deleteErr
}

func (f *fakeRemote) Pause(ctx context.Context, kind kuma.Kind, serverID string) error {
	f.paused = append(f.paused, serverID)
	return f.pauseErr
}

func (f *fakeRemote) Resume(ctx context.Context, kind kuma.Kind, serverID string) error {
	f.resumed = append(f.resumed, serverID)
	return f.resumeErr
}

type fakeWriter struct {
	put     map[string]string
	deleted []string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{put: make(map[string]string)}
}

func (w *fakeWriter) Put(kind kuma.Kind, autokumaID, serverID string) error {
	w.put[string(kind)+"/"+autokumaID] = serverID
	return nil
}

func (w *fakeWriter) Delete(kind kuma.Kind, autokumaID string) error {
	w.deleted = append(w.deleted, string(kind)+"/"+autokumaID)
	return nil
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func TestExecuteCreateStoresServerID(t *testing.T) {
	client := &fakeRemote{addResult: kuma.Fields{"id": float64(42)}}
	w := newFakeWriter()
	plan := Plan{Actions: []Action{
		{Kind: ActionCreate, EntityKind: kuma.KindMonitor, AutokumaID: "demo"},
	}}
	res := Execute(context.Background(), plan, client, w, testLogger())
	if res.Applied != 1 || len(res.Failed) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if w.put["monitor/demo"] != "42" {
		t.Fatalf("expected server id 42 stored, got %q", w.put["monitor/demo"])
	}
}

func TestExecuteIsolatesOneFailure(t *testing.T) {
	client := &fakeRemote{addErr: errors.New("boom")}
	w := newFakeWriter()
	plan := Plan{Actions: []Action{
		{Kind: ActionCreate, EntityKind: kuma.KindMonitor, AutokumaID: "bad"},
		{Kind: ActionDelete, EntityKind: kuma.KindMonitor, AutokumaID: "good", ServerID: "7"},
	}}
	res := Execute(context.Background(), plan, client, w, testLogger())
	if res.Applied != 1 {
		t.Fatalf("expected the delete to still apply, got %+v", res)
	}
	if len(res.Failed) != 1 || res.Failed[0].Action.AutokumaID != "bad" {
		t.Fatalf("expected the create to be isolated as a failure, got %+v", res.Failed)
	}
	if len(w.deleted) != 1 || w.deleted[0] != "monitor/good" {
		t.Fatalf("expected good's mapping deleted, got %+v", w.deleted)
	}
}

func TestExecutePauseResume(t *testing.T) {
	client := &fakeRemote{}
	w := newFakeWriter()
	plan := Plan{Actions: []Action{
		{Kind: ActionPause, EntityKind: kuma.KindMonitor, AutokumaID: "a", ServerID: "1"},
		{Kind: ActionResume, EntityKind: kuma.KindMonitor, AutokumaID: "b", ServerID: "2"},
	}}
	res := Execute(context.Background(), plan, client, w, testLogger())
	if res.Applied != 2 {
		t.Fatalf("expected both actions applied, got %+v", res)
	}
	if len(client.paused) != 1 || client.paused[0] != "1" {
		t.Fatalf("expected pause on server id 1, got %+v", client.paused)
	}
	if len(client.resumed) != 1 || client.resumed[0] != "2" {
		t.Fatalf("expected resume on server id 2, got %+v", client.resumed)
	}
}
