package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/autokuma/autokuma/internal/kuma"
)

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-('a'-'A')) + s[1:]
}

// eventNames maps an entity kind to the Socket.IO event name prefixes
// this client emits for it. Group is not distinct from Monitor at the
// wire level (§3): a group is a monitor whose type field is "group".
var eventNames = map[kuma.Kind]string{
	kuma.KindTag:          "tag",
	kuma.KindNotification: "notification",
	kuma.KindDockerHost:   "dockerHost",
	kuma.KindMonitor:      "monitor",
	kuma.KindStatusPage:   "statusPage",
	kuma.KindMaintenance:  "maintenance",
}

func eventName(kind kuma.Kind, verb string) (string, error) {
	base, ok := eventNames[kind]
	if !ok {
		return "", fmt.Errorf("unsupported entity kind %q", kind)
	}
	return verb + capitalize(base), nil
}

// List returns every entity of kind currently on the server.
func (s *Session) List(ctx context.Context, kind kuma.Kind) ([]kuma.Fields, error) {
	event, err := eventName(kind, "get")
	if err != nil {
		return nil, err
	}
	raw, err := s.Emit(ctx, event+"List")
	if err != nil {
		return nil, err
	}
	_, rest, err := decodeAck(raw)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, nil
	}
	var list []kuma.Fields
	if err := json.Unmarshal(rest[0], &list); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", kind, err)
	}
	return list, nil
}

// Get fetches one entity by its server-assigned ID.
func (s *Session) Get(ctx context.Context, kind kuma.Kind, serverID string) (kuma.Fields, error) {
	event, err := eventName(kind, "get")
	if err != nil {
		return nil, err
	}
	raw, err := s.Emit(ctx, event, serverID)
	if err != nil {
		return nil, err
	}
	_, rest, err := decodeAck(raw)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("%s %s: empty response", kind, serverID)
	}
	var fields kuma.Fields
	if err := json.Unmarshal(rest[0], &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return fields, nil
}

// Add creates an entity and returns its server-assigned fields
// (including the new numeric ID), per §4.6.3: "a newly created parent's
// server ID is fetched from the response".
//
// The real server's add* ack carries the new ID as a kind-specific
// scalar field (monitorID, tagID, notificationID, dockerHostID,
// statusPageID, maintenanceID) alongside ok/msg, not nested under a
// second ack element or a "monitor" object - those two shapes are kept
// below only as leniency for server variants that do nest the entity,
// but the scalar field always wins when present.
func (s *Session) Add(ctx context.Context, kind kuma.Kind, fields kuma.Fields) (kuma.Fields, error) {
	event, err := eventName(kind, "add")
	if err != nil {
		return nil, err
	}
	raw, err := s.Emit(ctx, event, fields)
	if err != nil {
		return nil, err
	}
	env, rest, err := decodeAck(raw)
	if err != nil {
		return nil, err
	}

	out := fields.Clone()
	if len(rest) > 0 {
		var fromRest kuma.Fields
		if err := json.Unmarshal(rest[0], &fromRest); err == nil {
			out = fromRest
		}
	} else if len(env.Monitor) > 0 {
		var fromMonitor kuma.Fields
		if err := json.Unmarshal(env.Monitor, &fromMonitor); err == nil {
			out = fromMonitor
		}
	}

	base, ok := eventNames[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported entity kind %q", kind)
	}
	if id, found := env.scalarID(base + "ID"); found {
		out["id"] = id
	}
	return out, nil
}

// Edit updates an existing entity's fields.
func (s *Session) Edit(ctx context.Context, kind kuma.Kind, serverID string, fields kuma.Fields) error {
	event, err := eventName(kind, "edit")
	if err != nil {
		return err
	}
	raw, err := s.Emit(ctx, event, serverID, fields)
	if err != nil {
		return err
	}
	_, _, err = decodeAck(raw)
	return err
}

// Delete removes an entity by its server-assigned ID.
func (s *Session) Delete(ctx context.Context, kind kuma.Kind, serverID string) error {
	event, err := eventName(kind, "delete")
	if err != nil {
		return err
	}
	raw, err := s.Emit(ctx, event, serverID)
	if err != nil {
		return err
	}
	_, _, err = decodeAck(raw)
	return err
}

// Pause issues the dedicated pause verb rather than a general edit,
// where the server requires it (§4.6.1 "Pause/resume").
func (s *Session) Pause(ctx context.Context, kind kuma.Kind, serverID string) error {
	raw, err := s.Emit(ctx, "pauseMonitor", serverID)
	if err != nil {
		return err
	}
	_, _, err = decodeAck(raw)
	return err
}

// Resume reactivates a paused entity.
func (s *Session) Resume(ctx context.Context, kind kuma.Kind, serverID string) error {
	raw, err := s.Emit(ctx, "resumeMonitor", serverID)
	if err != nil {
		return err
	}
	_, _, err = decodeAck(raw)
	return err
}
