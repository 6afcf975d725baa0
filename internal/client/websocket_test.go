package client

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/omochice/relay-chat-client/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type fakeSocket struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{frames: make(chan []byte, 8), closed: make(chan struct{})}
}

func (s *fakeSocket) ReadMessage() ([]byte, error) {
	select {
	case data := <-s.frames:
		return data, nil
	case <-s.closed:
		return nil, io.EOF
	}
}

func (s *fakeSocket) WriteMessage(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, data)
	return nil
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSocket) Written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.written...)
}

type fakeDialer struct {
	mu      sync.Mutex
	urls    []string
	sockets []*fakeSocket
	err     error
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	s := newFakeSocket()
	d.sockets = append(d.sockets, s)
	return s, nil
}

func (d *fakeDialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

func (d *fakeDialer) Socket(i int) *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sockets[i]
}

type statusLog struct {
	mu       sync.Mutex
	statuses []Status
}

func (l *statusLog) record(s Status, _ int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) All() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Status(nil), l.statuses...)
}

func newTestManager(t *testing.T, dialer Dialer, policy *ReconnectPolicy, onFrame func([]byte)) (*Manager, *clockwork.FakeClock, *statusLog) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	log := &statusLog{}
	m := NewManager(Options{
		Host:     "localhost:3000",
		Dialer:   dialer,
		Policy:   policy,
		Clock:    clock,
		OnFrame:  onFrame,
		OnStatus: log.record,
	})
	t.Cleanup(m.Close)
	return m, clock, log
}

func hasStatus(m *Manager, s Status) func() bool {
	return func() bool { return m.Status() == s }
}

func TestURL(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		secure   bool
		username string
		want     string
	}{
		{"plain", "localhost:3000", false, "bob", "ws://localhost:3000?userId=bob"},
		{"secure", "chat.example.com", true, "bob", "wss://chat.example.com?userId=bob"},
		{"escapes username", "localhost:3000", false, "Alex Chen", "ws://localhost:3000?userId=Alex+Chen"},
		{"keeps path", "localhost:3000/ws", false, "bob", "ws://localhost:3000/ws?userId=bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := URL(tt.host, tt.secure, tt.username)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "open", StatusOpen.String())
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestManager_SendNotConnected(t *testing.T) {
	m, _, _ := newTestManager(t, &fakeDialer{}, FixedDelay(DefaultReconnectDelay), nil)

	err := m.Send(context.Background(), protocol.ChatData{Action: protocol.ActionTyping})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, m.IsConnected())
}

func TestManager_ConnectDeliversFramesInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string
	dialer := &fakeDialer{}
	m, _, statuses := newTestManager(t, dialer, FixedDelay(DefaultReconnectDelay), func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(data))
	})

	require.NoError(t, m.Connect("bob"))
	require.Eventually(t, hasStatus(m, StatusOpen), waitFor, tick)
	assert.Equal(t, []string{"ws://localhost:3000?userId=bob"}, dialer.URLs())
	assert.Equal(t, "bob", m.Username())

	sock := dialer.Socket(0)
	sock.frames <- []byte("one")
	sock.frames <- []byte("two")
	sock.frames <- []byte("three")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, waitFor, tick)
	assert.Equal(t, []string{"one", "two", "three"}, got)
	assert.Equal(t, []Status{StatusConnecting, StatusOpen}, statuses.All())
}

func TestManager_SendWritesJSONFrame(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(t, dialer, FixedDelay(DefaultReconnectDelay), nil)
	require.NoError(t, m.Connect("bob"))
	require.Eventually(t, hasStatus(m, StatusOpen), waitFor, tick)

	err := m.Send(context.Background(), protocol.ChatData{
		Message:  "hi",
		To:       "Sarah",
		Action:   protocol.ActionSendMessage,
		Username: "bob",
	})
	require.NoError(t, err)

	written := dialer.Socket(0).Written()
	require.Len(t, written, 1)
	assert.JSONEq(t, `{"message":"hi","to":"Sarah","action":"send_message","username":"bob"}`, string(written[0]))
}

func TestManager_ReconnectsOnceAfterFixedDelay(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock, _ := newTestManager(t, dialer, FixedDelay(5*time.Second), nil)
	require.NoError(t, m.Connect("alice"))
	require.Eventually(t, hasStatus(m, StatusOpen), waitFor, tick)

	dialer.Socket(0).Close()
	require.Eventually(t, hasStatus(m, StatusReconnecting), waitFor, tick)

	clock.Advance(4 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, dialer.URLs(), 1, "reconnect must wait for the full delay")

	clock.Advance(time.Second)
	require.Eventually(t, hasStatus(m, StatusOpen), waitFor, tick)

	urls := dialer.URLs()
	require.Len(t, urls, 2)
	assert.Equal(t, urls[0], urls[1], "reconnect must reuse the username")

	clock.Advance(time.Minute)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, dialer.URLs(), 2, "exactly one reconnect per close")
}

func TestManager_GivesUpAfterMaxAttempts(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	policy := FixedDelay(time.Second)
	policy.MaxAttempts = 2
	m, clock, statuses := newTestManager(t, dialer, policy, nil)

	require.NoError(t, m.Connect("alice"))
	for attempt := 1; attempt <= 2; attempt++ {
		require.Eventually(t, func() bool {
			return m.Status() == StatusReconnecting && len(dialer.URLs()) == attempt
		}, waitFor, tick)
		clock.Advance(time.Second)
	}

	require.Eventually(t, hasStatus(m, StatusDisconnected), waitFor, tick)
	assert.Len(t, dialer.URLs(), 3)
	all := statuses.All()
	assert.Equal(t, StatusDisconnected, all[len(all)-1])

	clock.Advance(time.Hour)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, dialer.URLs(), 3)
}

func TestManager_ExponentialPolicyWaitsLonger(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	m, clock, _ := newTestManager(t, dialer, ExponentialBackoff(time.Second, time.Minute, 0, 5), nil)

	require.NoError(t, m.Connect("alice"))
	require.Eventually(t, hasStatus(m, StatusReconnecting), waitFor, tick)

	clock.Advance(1100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return m.Status() == StatusReconnecting && len(dialer.URLs()) == 2
	}, waitFor, tick)

	clock.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, dialer.URLs(), 2, "second delay should have doubled")

	clock.Advance(1100 * time.Millisecond)
	require.Eventually(t, func() bool { return len(dialer.URLs()) == 3 }, waitFor, tick)
}

func TestManager_CloseCancelsPendingReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock, _ := newTestManager(t, dialer, FixedDelay(5*time.Second), nil)
	require.NoError(t, m.Connect("alice"))
	require.Eventually(t, hasStatus(m, StatusOpen), waitFor, tick)

	dialer.Socket(0).Close()
	require.Eventually(t, hasStatus(m, StatusReconnecting), waitFor, tick)

	m.Close()
	clock.Advance(10 * time.Second)
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, dialer.URLs(), 1)
	assert.Equal(t, StatusIdle, m.Status())
}

func TestManager_ConnectSameUsernameIsNoop(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(t, dialer, FixedDelay(DefaultReconnectDelay), nil)

	require.NoError(t, m.Connect("alice"))
	require.Eventually(t, hasStatus(m, StatusOpen), waitFor, tick)
	require.NoError(t, m.Connect("alice"))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, dialer.URLs(), 1)
}

func TestManager_ConnectNewUsernameReplacesSocket(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(t, dialer, FixedDelay(DefaultReconnectDelay), nil)

	require.NoError(t, m.Connect("alice"))
	require.Eventually(t, hasStatus(m, StatusOpen), waitFor, tick)
	require.NoError(t, m.Connect("carol"))
	require.Eventually(t, func() bool {
		return m.Status() == StatusOpen && len(dialer.URLs()) == 2
	}, waitFor, tick)

	urls := dialer.URLs()
	assert.True(t, strings.HasSuffix(urls[1], "userId=carol"))
	select {
	case <-dialer.Socket(0).closed:
	default:
		t.Error("previous socket should be closed")
	}
	assert.Equal(t, "carol", m.Username())
}
