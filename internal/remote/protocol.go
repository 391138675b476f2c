// Package remote implements the §4.5 remote client: a Socket.IO RPC
// façade over gorilla/websocket, with session lifecycle, keep-alive,
// request/response pairing by ack callback, and typed per-kind entity
// methods.
package remote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// engine.io packet types (the outer framing Socket.IO rides on).
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// socket.io packet types, carried inside an engine.io "message" packet.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioAck          = '3'
	sioConnectError = '4'
)

// eioFrame is one engine.io packet.
type eioFrame struct {
	typ     byte
	payload string
}

func decodeEIOFrame(raw string) (eioFrame, error) {
	if raw == "" {
		return eioFrame{}, fmt.Errorf("empty engine.io frame")
	}
	return eioFrame{typ: raw[0], payload: raw[1:]}, nil
}

// sioFrame is one socket.io packet decoded from an engine.io message
// frame's payload: an optional numeric ack id followed by a JSON array.
type sioFrame struct {
	typ   byte
	ackID int // -1 if absent
	data  json.RawMessage
}

func decodeSIOFrame(payload string) (sioFrame, error) {
	if payload == "" {
		return sioFrame{}, fmt.Errorf("empty socket.io frame")
	}
	f := sioFrame{typ: payload[0], ackID: -1}
	rest := payload[1:]

	// Skip an optional namespace path ("/admin,") before the ack id.
	if idx := strings.Index(rest, ","); idx != -1 && strings.HasPrefix(rest, "/") {
		rest = rest[idx+1:]
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i > 0 {
		id, err := strconv.Atoi(rest[:i])
		if err != nil {
			return sioFrame{}, err
		}
		f.ackID = id
		rest = rest[i:]
	}
	if rest != "" {
		f.data = json.RawMessage(rest)
	}
	return f, nil
}

func encodeSIOEvent(event string, ackID int, args []any) (string, error) {
	payload := append([]any{event}, args...)
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteByte(sioEvent)
	if ackID >= 0 {
		b.WriteString(strconv.Itoa(ackID))
	}
	b.Write(body)
	return string(eioMessage) + b.String(), nil
}

func encodeSIOConnect() string {
	return string(eioMessage) + string(sioConnect)
}

func encodeEIOPong() string {
	return string(eioPong)
}
