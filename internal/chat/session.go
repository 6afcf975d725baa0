// Package chat composes the connection manager, router, session store and
// auto-responder into the API a user interface drives.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/omochice/relay-chat-client/internal/autoreply"
	"github.com/omochice/relay-chat-client/internal/client"
	"github.com/omochice/relay-chat-client/internal/router"
	"github.com/omochice/relay-chat-client/internal/session"
)

var ErrEmptyUsername = errors.New("username is empty")

// Options configures a Session.
type Options struct {
	Host   string
	Secure bool

	// Demo runs without a relay: sends are appended locally and answered by
	// the auto-responder.
	Demo bool

	Roster        []session.Contact
	ResetOnSelect bool

	Policy *client.ReconnectPolicy
	Dialer client.Dialer
	Clock  clockwork.Clock
}

// Session is one user's chat session.
type Session struct {
	demo      bool
	clock     clockwork.Clock
	store     *session.Store
	manager   *client.Manager
	router    *router.Router
	responder *autoreply.Responder
}

// New creates a session with the roster loaded and the first contact
// selected. No connection is made until Login.
func New(opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Session{
		demo:  opts.Demo,
		clock: clock,
		store: session.NewStore(session.NewState(opts.Roster), session.WithResetOnSelect(opts.ResetOnSelect)),
	}

	if s.demo {
		s.responder = autoreply.New(s.store, clock)
		return s
	}

	s.manager = client.NewManager(client.Options{
		Host:   opts.Host,
		Secure: opts.Secure,
		Dialer: opts.Dialer,
		Policy: opts.Policy,
		Clock:  clock,
		OnFrame: func(data []byte) {
			s.router.HandleFrame(data)
		},
		OnStatus: func(status client.Status, attempt int) {
			s.store.SetConnection(connectionStatus(status), attempt)
		},
	})
	s.router = router.New(s.store, s.manager, router.WithNow(clock.Now))
	return s
}

// Demo reports whether the session runs offline.
func (s *Session) Demo() bool {
	return s.demo
}

// Login sets the local identity and, outside demo mode, connects to the relay.
func (s *Session) Login(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}
	s.store.SetUsername(username)
	if s.demo {
		return nil
	}
	if err := s.manager.Connect(username); err != nil {
		return fmt.Errorf("connect as %s: %w", username, err)
	}
	return nil
}

// Send sends text to the selected conversation. Blank text is ignored.
func (s *Session) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !s.demo {
		return s.router.SendText(ctx, text)
	}

	st := s.store.State()
	if st.Selected == "" {
		return router.ErrNoSelection
	}
	s.store.Dispatch(session.AppendMessage{
		Key:     st.Selected,
		Message: session.NewMessage(text, st.Username, true, s.clock.Now()),
	})
	s.responder.OnOwnMessage()
	return nil
}

// SelectContact switches the selected conversation.
func (s *Session) SelectContact(name string) error {
	return s.store.SelectContact(name)
}

// CreateGroup creates a group from existing contact names and selects it.
func (s *Session) CreateGroup(name string, memberNames []string) (session.Contact, error) {
	st := s.store.State()
	members := make([]session.Contact, 0, len(memberNames))
	for _, n := range memberNames {
		c, ok := st.Contact(n)
		if !ok {
			return session.Contact{}, fmt.Errorf("group member %q: %w", n, session.ErrContactNotFound)
		}
		members = append(members, c)
	}
	return s.store.CreateGroup(name, members)
}

// UpdateContactStatus sets a contact's online flag.
func (s *Session) UpdateContactStatus(id string, online bool) error {
	return s.store.UpdateContactStatus(id, online)
}

// Focus notifies the selected conversation that the user is typing.
func (s *Session) Focus(ctx context.Context) error {
	if s.demo {
		return nil
	}
	return s.router.Focus(ctx)
}

// Blur notifies the conversation last focused that the user stopped typing.
func (s *Session) Blur(ctx context.Context) error {
	if s.demo {
		return nil
	}
	return s.router.Blur(ctx)
}

// State returns the current snapshot.
func (s *Session) State() session.State {
	return s.store.State()
}

// Subscribe streams snapshots after every change.
func (s *Session) Subscribe(buffer int) (<-chan session.State, func()) {
	return s.store.Subscribe(buffer)
}

// Close tears down the connection.
func (s *Session) Close() {
	if s.demo {
		return
	}
	if err := s.router.Blur(context.Background()); err != nil {
		log.Printf("Failed to send stop_typing on close: %v", err)
	}
	s.manager.Close()
}

func connectionStatus(status client.Status) session.ConnectionStatus {
	switch status {
	case client.StatusConnecting:
		return session.ConnectionConnecting
	case client.StatusOpen:
		return session.ConnectionOpen
	case client.StatusReconnecting:
		return session.ConnectionReconnecting
	case client.StatusDisconnected:
		return session.ConnectionDisconnected
	default:
		return session.ConnectionIdle
	}
}
