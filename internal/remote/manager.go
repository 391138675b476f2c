package remote

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Manager holds a single Session open across reconciliation ticks and
// transparently reconnects it with backoff when the connection drops
// (§4.5 "Connection is held across reconciliation ticks; a ping/
// activity heuristic reconnects with backoff on drop").
type Manager struct {
	cfg     Config
	creds   Credentials
	dataDir string

	minBackoff time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	session *Session
}

// NewManager constructs a Manager. Backoff defaults to 1s..30s if zero.
func NewManager(cfg Config, creds Credentials, dataDir string, minBackoff, maxBackoff time.Duration) *Manager {
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	return &Manager{cfg: cfg, creds: creds, dataDir: dataDir, minBackoff: minBackoff, maxBackoff: maxBackoff}
}

// Session returns the current live session, opening or reconnecting one
// as needed. Callers should re-request it before each use rather than
// caching it across a reconnect boundary.
func (m *Manager) Session(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && !m.session.closed() {
		return m.session, nil
	}

	backoff := m.minBackoff
	for {
		s, err := Open(ctx, m.cfg, m.creds, m.dataDir)
		if err == nil {
			m.session = s
			return s, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jitter(backoff)):
		}
		backoff *= 2
		if backoff > m.maxBackoff {
			backoff = m.maxBackoff
		}
	}
}

// Close shuts down the current session, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Close()
	m.session = nil
	return err
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// closed reports whether the underlying connection's read loop has
// exited, i.e. the session can no longer serve requests.
func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
