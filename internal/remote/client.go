package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autokuma/autokuma/internal/errs"
)

// Config configures one remote client instance (§6.2 kuma.*).
type Config struct {
	URL            string
	Headers        http.Header
	TLSConfig      *tls.Config
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
}

func (c Config) effectiveConnectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return 30 * time.Second
	}
	return c.ConnectTimeout
}

func (c Config) effectiveCallTimeout() time.Duration {
	if c.CallTimeout <= 0 {
		return 30 * time.Second
	}
	return c.CallTimeout
}

// Client is a connected Socket.IO session against one Uptime Kuma
// server. Concurrent callers are safe: frame writes are serialized, and
// each Emit waits for the ack carrying its own ack id, so several calls
// may be in flight on the connection at once (§4.5).
type Client struct {
	cfg Config

	mu        sync.Mutex
	conn      *websocket.Conn
	nextAckID int
	pending   map[int]chan ackResult
	writeMu   sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

type ackResult struct {
	data json.RawMessage
	err  error
}

// Connect dials the Socket.IO endpoint and completes the engine.io/
// socket.io handshake. The returned Client is authenticated at the
// transport level only; call Login or LoginByToken next (§4.5).
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	wsURL, err := toWebsocketURL(cfg.URL)
	if err != nil {
		return nil, &errs.ConfigError{Key: "kuma.url", Cause: err}
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.effectiveConnectTimeout())
	defer cancel()

	dialer := websocket.Dialer{
		TLSClientConfig:  cfg.TLSConfig,
		HandshakeTimeout: cfg.effectiveConnectTimeout(),
	}
	conn, _, err := dialer.DialContext(dialCtx, wsURL, cfg.Headers)
	if err != nil {
		return nil, &errs.TransportError{Op: "connect", Cause: err}
	}

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		pending: make(map[int]chan ackResult),
		done:    make(chan struct{}),
	}

	if err := c.handshake(dialCtx); err != nil {
		conn.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

// toWebsocketURL appends the §4.5 "/socket.io/" suffix if absent and
// rewrites the scheme to ws/wss.
func toWebsocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/socket.io/") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) handshake(ctx context.Context) error {
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return &errs.TransportError{Op: "handshake", Cause: err}
	}
	frame, err := decodeEIOFrame(string(raw))
	if err != nil || frame.typ != eioOpen {
		return &errs.TransportError{Op: "handshake", Cause: fmt.Errorf("unexpected engine.io open frame: %q", raw)}
	}

	if err := c.writeRaw(encodeSIOConnect()); err != nil {
		return &errs.TransportError{Op: "handshake", Cause: err}
	}
	_, raw, err = c.conn.ReadMessage()
	if err != nil {
		return &errs.TransportError{Op: "handshake", Cause: err}
	}
	eio, err := decodeEIOFrame(string(raw))
	if err != nil || eio.typ != eioMessage {
		return &errs.TransportError{Op: "handshake", Cause: fmt.Errorf("unexpected socket.io connect ack: %q", raw)}
	}
	sio, err := decodeSIOFrame(eio.payload)
	if err != nil || sio.typ != sioConnect {
		return &errs.TransportError{Op: "handshake", Cause: fmt.Errorf("socket.io connect refused: %q", raw)}
	}
	return nil
}

func (c *Client) writeRaw(s string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// readLoop dispatches incoming frames: acks are routed to the waiting
// Emit call, pings are answered immediately so the server's keep-alive
// heartbeat never times out while a long reconcile tick is running.
func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.failAllPending(&errs.TransportError{Op: "read", Cause: err})
			return
		}
		eio, err := decodeEIOFrame(string(raw))
		if err != nil {
			continue
		}
		switch eio.typ {
		case eioPing:
			_ = c.writeRaw(encodeEIOPong())
		case eioMessage:
			c.handleMessage(eio.payload)
		case eioClose:
			c.failAllPending(&errs.TransportError{Op: "read", Cause: fmt.Errorf("server closed the connection")})
			return
		}
	}
}

func (c *Client) handleMessage(payload string) {
	sio, err := decodeSIOFrame(payload)
	if err != nil {
		return
	}
	switch sio.typ {
	case sioAck:
		if sio.ackID < 0 {
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[sio.ackID]
		delete(c.pending, sio.ackID)
		c.mu.Unlock()
		if ok {
			ch <- ackResult{data: sio.data}
		}
	case sioConnectError, sioDisconnect:
		c.failAllPending(&errs.TransportError{Op: "session", Cause: fmt.Errorf("server reported: %s", sio.data)})
	}
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- ackResult{err: err}
		delete(c.pending, id)
	}
}

// Emit sends a Socket.IO event and waits for its ack callback, bounded
// by cfg.CallTimeout (§4.5 "per-call timeout").
func (c *Client) Emit(ctx context.Context, event string, args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	id := c.nextAckID
	c.nextAckID++
	ch := make(chan ackResult, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	frame, err := encodeSIOEvent(event, id, args)
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("encode event %q: %w", event, err)
	}
	if err := c.writeRaw(frame); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, &errs.TransportError{Op: "emit:" + event, Cause: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.effectiveCallTimeout())
	defer cancel()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.data, nil
	case <-callCtx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, &errs.TransportError{Op: "emit:" + event, Timeout: true}
	case <-c.done:
		return nil, &errs.TransportError{Op: "emit:" + event, Cause: fmt.Errorf("connection closed")}
	}
}

// Close terminates the session cleanly (§5 "closes the remote session
// cleanly").
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}
