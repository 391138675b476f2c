package remote

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/autokuma/autokuma/internal/errs"
)

// ackEnvelope is the common shape of a Kuma socket.io ack: the first
// array element always carries ok/msg; further elements (if any) carry
// the call-specific payload. A successful add* ack additionally carries
// the new entity's server ID as a kind-specific scalar field
// (monitorID, tagID, notificationID, dockerHostID, statusPageID,
// maintenanceID) rather than a nested object, so the raw first element
// is kept around for scalarID to pick that field out by name.
type ackEnvelope struct {
	OK      bool            `json:"ok"`
	Msg     string          `json:"msg"`
	MsgI18n string          `json:"msgi18n"`
	Token   string          `json:"token"`
	Monitor json.RawMessage `json:"monitor"`

	raw json.RawMessage
}

// decodeAck unmarshals an ack array's first element and maps a
// server-reported failure to a typed RemoteError (§4.5 "Error mapping").
func decodeAck(raw json.RawMessage) (ackEnvelope, []json.RawMessage, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return ackEnvelope{}, nil, fmt.Errorf("decode ack array: %w", err)
	}
	if len(arr) == 0 {
		return ackEnvelope{}, nil, fmt.Errorf("empty ack array")
	}
	var env ackEnvelope
	if err := json.Unmarshal(arr[0], &env); err != nil {
		return ackEnvelope{}, nil, fmt.Errorf("decode ack envelope: %w", err)
	}
	env.raw = arr[0]
	if !env.OK {
		msg := env.Msg
		if msg == "" {
			msg = env.MsgI18n
		}
		return env, nil, &errs.RemoteError{Message: msg}
	}
	return env, arr[1:], nil
}

// scalarID extracts a kind-specific ID field (e.g. "monitorID") from
// the ack's first element. Returns false if the field is absent or not
// a number/string.
func (e ackEnvelope) scalarID(fieldName string) (string, bool) {
	if len(e.raw) == 0 {
		return "", false
	}
	var m map[string]any
	if err := json.Unmarshal(e.raw, &m); err != nil {
		return "", false
	}
	switch v := m[fieldName].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case string:
		return v, v != ""
	default:
		return "", false
	}
}
