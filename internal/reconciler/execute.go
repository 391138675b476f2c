package reconciler

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/autokuma/autokuma/internal/kuma"
)

// remoteClient is the subset of *remote.Session the executor needs,
// kept narrow so tests can substitute a fake.
type remoteClient interface {
	Add(ctx context.Context, kind kuma.Kind, fields kuma.Fields) (kuma.Fields, error)
	Edit(ctx context.Context, kind kuma.Kind, serverID string, fields kuma.Fields) error
	Delete(ctx context.Context, kind kuma.Kind, serverID string) error
	Pause(ctx context.Context, kind kuma.Kind, serverID string) error
	Resume(ctx context.Context, kind kuma.Kind, serverID string) error
}

// identityWriter is the subset of *store.Store the executor mutates.
type identityWriter interface {
	Put(kind kuma.Kind, autokumaID, serverID string) error
	Delete(kind kuma.Kind, autokumaID string) error
}

// ExecResult summarizes one tick's execution: successes applied to the
// identity store, and the per-entity failures that did not block the
// rest of the plan (§4.6.3 "a single failure is recorded against that
// entity and the remainder of the plan proceeds").
type ExecResult struct {
	Applied int
	Failed  []ActionFailure
}

// ActionFailure pairs a plan action with the error executing it hit.
type ActionFailure struct {
	Action Action
	Err    error
}

// Execute runs plan's actions best-effort sequentially in order
// (§4.6.3). Each action's outcome is applied to the identity store
// immediately so a newly created parent's server ID is available to
// whatever the reconciler plans next tick.
func Execute(ctx context.Context, plan Plan, client remoteClient, st identityWriter, log *logrus.Entry) ExecResult {
	var res ExecResult
	for _, action := range plan.Actions {
		if err := execOne(ctx, action, client, st); err != nil {
			log.WithFields(logrus.Fields{
				"kind":        action.EntityKind,
				"autokuma_id": action.AutokumaID,
				"server_id":   action.ServerID,
				"op":          action.Kind.String(),
			}).WithError(err).Error("plan action failed")
			res.Failed = append(res.Failed, ActionFailure{Action: action, Err: err})
			continue
		}
		res.Applied++
	}
	return res
}

func execOne(ctx context.Context, action Action, client remoteClient, st identityWriter) error {
	switch action.Kind {
	case ActionCreate:
		created, err := client.Add(ctx, action.EntityKind, action.Desired.Fields)
		if err != nil {
			return err
		}
		serverID := serverIDOf(created)
		if serverID == "" {
			serverID = action.ServerID
		}
		return st.Put(action.EntityKind, action.AutokumaID, serverID)
	case ActionUpdate:
		if err := client.Edit(ctx, action.EntityKind, action.ServerID, action.Desired.Fields); err != nil {
			return err
		}
		return st.Put(action.EntityKind, action.AutokumaID, action.ServerID)
	case ActionPause:
		return client.Pause(ctx, action.EntityKind, action.ServerID)
	case ActionResume:
		return client.Resume(ctx, action.EntityKind, action.ServerID)
	case ActionDelete:
		if err := client.Delete(ctx, action.EntityKind, action.ServerID); err != nil {
			return err
		}
		return st.Delete(action.EntityKind, action.AutokumaID)
	default:
		return nil
	}
}

// serverIDOf extracts the entity's "id" field regardless of whether the
// server encoded it as a JSON number or a string.
func serverIDOf(f kuma.Fields) string {
	switch v := f["id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int64(v))
	default:
		return ""
	}
}
