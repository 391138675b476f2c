package remote

import "testing"

func TestDecodeEIOFrame(t *testing.T) {
	f, err := decodeEIOFrame("4" + string(sioConnect))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.typ != eioMessage {
		t.Fatalf("typ = %c, want %c", f.typ, eioMessage)
	}
}

func TestDecodeSIOFrameWithAckID(t *testing.T) {
	f, err := decodeSIOFrame(`3` + `12` + `[{"ok":true}]`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.typ != sioAck || f.ackID != 12 {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestDecodeSIOFrameNoAckID(t *testing.T) {
	f, err := decodeSIOFrame(`2["ping"]`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.typ != sioEvent || f.ackID != -1 {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestEncodeSIOEventRoundTrips(t *testing.T) {
	frame, err := encodeSIOEvent("login", 3, []any{map[string]any{"username": "a"}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	eio, err := decodeEIOFrame(frame)
	if err != nil || eio.typ != eioMessage {
		t.Fatalf("unexpected outer frame: %v, %v", eio, err)
	}
	sio, err := decodeSIOFrame(eio.payload)
	if err != nil {
		t.Fatalf("decode inner frame: %v", err)
	}
	if sio.typ != sioEvent || sio.ackID != 3 {
		t.Fatalf("unexpected sio frame: %+v", sio)
	}
}

func TestToWebsocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:3001":  "ws://localhost:3001/socket.io/?EIO=4&transport=websocket",
		"https://kuma.example":   "wss://kuma.example/socket.io/?EIO=4&transport=websocket",
		"http://x/socket.io/":    "ws://x/socket.io/?EIO=4&transport=websocket",
	}
	for in, want := range cases {
		got, err := toWebsocketURL(in)
		if err != nil {
			t.Fatalf("toWebsocketURL(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("toWebsocketURL(%q) = %q, want %q", in, got, want)
		}
	}
}
