package client

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"github.com/omochice/relay-chat-client/pkg/protocol"
)

const defaultDialTimeout = 10 * time.Second

// Options configures a Manager.
type Options struct {
	// Host is the relay's host[:port][/path].
	Host string
	// Secure selects wss instead of ws.
	Secure bool

	Dialer      Dialer
	Policy      *ReconnectPolicy
	Clock       clockwork.Clock
	DialTimeout time.Duration

	// OnFrame receives every inbound frame in arrival order, on the reader
	// goroutine.
	OnFrame func(data []byte)
	// OnStatus is called on every status change with the manager's lock held;
	// it must not call back into the Manager.
	OnStatus func(status Status, attempt int)
}

// Manager holds the one live socket for a username and reconnects it when it
// drops. It is safe for concurrent use.
type Manager struct {
	host        string
	secure      bool
	dialer      Dialer
	policy      *ReconnectPolicy
	clock       clockwork.Clock
	dialTimeout time.Duration
	onFrame     func([]byte)
	onStatus    func(Status, int)

	mu       sync.Mutex
	username string
	gen      uint64
	socket   Socket
	status   Status
	attempt  int
	timer    clockwork.Timer
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewManager creates an idle Manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		host:        opts.Host,
		secure:      opts.Secure,
		dialer:      opts.Dialer,
		policy:      opts.Policy,
		clock:       opts.Clock,
		dialTimeout: opts.DialTimeout,
		onFrame:     opts.OnFrame,
		onStatus:    opts.OnStatus,
	}
	if m.dialer == nil {
		m.dialer = NewGorillaDialer()
	}
	if m.policy == nil {
		m.policy = DefaultPolicy()
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.dialTimeout <= 0 {
		m.dialTimeout = defaultDialTimeout
	}
	return m
}

// URL returns the relay URL for username.
func URL(host string, secure bool, username string) (string, error) {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	u, err := url.Parse(scheme + "://" + host)
	if err != nil {
		return "", fmt.Errorf("invalid relay host %q: %w", host, err)
	}
	u.RawQuery = url.Values{"userId": {username}}.Encode()
	return u.String(), nil
}

// Connect starts connecting as username and returns immediately. Calling it
// again for the same live username is a no-op; a different username replaces
// the current connection.
func (m *Manager) Connect(username string) error {
	if _, err := URL(m.host, m.secure, username); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.username == username && m.status != StatusIdle && m.status != StatusDisconnected {
		return nil
	}
	m.stopLocked()
	m.username = username
	m.attempt = 0
	m.policy.BackOff.Reset()
	m.startLocked()
	return nil
}

// Close drops the connection, cancels any pending reconnect and waits for
// the reader to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopLocked()
	m.setStatusLocked(StatusIdle)
	m.mu.Unlock()

	m.wg.Wait()
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Username returns the identity the manager connects as.
func (m *Manager) Username() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.username
}

// IsConnected reports whether the socket is open.
func (m *Manager) IsConnected() bool {
	return m.Status() == StatusOpen
}

// Send encodes d and writes it as one text frame. Nothing is queued when the
// socket is not open.
func (m *Manager) Send(ctx context.Context, d protocol.ChatData) error {
	m.mu.Lock()
	sock := m.socket
	open := m.status == StatusOpen
	m.mu.Unlock()

	if sock == nil || !open {
		log.Printf("Dropping %s frame: %v", d.Action, ErrNotConnected)
		return ErrNotConnected
	}

	data, err := d.Encode()
	if err != nil {
		return err
	}
	if err := sock.WriteMessage(ctx, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// startLocked launches a connection attempt for the current generation.
func (m *Manager) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	gen := m.gen
	username := m.username
	m.setStatusLocked(StatusConnecting)

	m.wg.Add(1)
	go m.run(ctx, gen, username)
}

// stopLocked invalidates the current generation so that its reader and
// timers become no-ops.
func (m *Manager) stopLocked() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.socket != nil {
		_ = m.socket.Close()
		m.socket = nil
	}
}

func (m *Manager) setStatusLocked(s Status) {
	m.status = s
	if m.onStatus != nil {
		m.onStatus(s, m.attempt)
	}
}

func (m *Manager) run(ctx context.Context, gen uint64, username string) {
	defer m.wg.Done()

	addr, _ := URL(m.host, m.secure, username)
	dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	sock, err := m.dialer.Dial(dialCtx, addr)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Failed to connect to %s: %v", m.host, err)
		}
		m.handleClose(gen)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		_ = sock.Close()
		return
	}
	m.socket = sock
	m.attempt = 0
	m.policy.BackOff.Reset()
	m.setStatusLocked(StatusOpen)
	m.mu.Unlock()

	log.Printf("WebSocket connection established as %s", username)

	for {
		data, err := sock.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("WebSocket closed: %v", err)
			}
			break
		}
		if m.onFrame != nil {
			m.onFrame(data)
		}
	}

	m.handleClose(gen)
}

// handleClose schedules exactly one reconnect for a dropped generation, or
// gives up when the policy is exhausted.
func (m *Manager) handleClose(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}
	if m.socket != nil {
		_ = m.socket.Close()
		m.socket = nil
	}

	m.attempt++
	delay := m.policy.BackOff.NextBackOff()
	if m.policy.exhausted(m.attempt) || delay == backoff.Stop {
		log.Printf("Giving up on %s after %d attempts", m.host, m.attempt-1)
		m.setStatusLocked(StatusDisconnected)
		return
	}

	username := m.username
	m.timer = m.clock.AfterFunc(delay, func() {
		m.reconnect(gen, username)
	})
	m.setStatusLocked(StatusReconnecting)
}

func (m *Manager) reconnect(gen uint64, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.username != username {
		return
	}
	// Already fired.
	m.timer = nil
	log.Printf("Reconnecting to %s as %s (attempt %d)", m.host, username, m.attempt)
	m.stopLocked()
	m.startLocked()
}
