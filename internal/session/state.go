// Package session holds the client's session state: contacts, per-conversation
// message history, the selected conversation and the typing flag.
//
// All mutation goes through tagged Action values reduced by Reduce. A State
// value is never modified in place; every reduction returns a new State that
// may share unchanged slices with the previous one, so readers must treat
// snapshots as read-only.
package session

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// MessageKind is the content type of a message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// Message is one entry in a conversation.
type Message struct {
	ID        string
	Content   string
	Timestamp time.Time
	IsOwn     bool
	Sender    string
	Kind      MessageKind
}

// NewMessage creates a text message with a fresh id.
func NewMessage(content, sender string, own bool, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: at,
		IsOwn:     own,
		Sender:    sender,
		Kind:      KindText,
	}
}

// Contact is a direct-chat counterpart or a group. Name doubles as the
// conversation key.
type Contact struct {
	ID          string
	Name        string
	Avatar      string
	Online      bool
	LastMessage string
	Timestamp   string
	IsGroup     bool
	Members     []Contact
}

// ConnectionStatus mirrors the connection manager's lifecycle.
type ConnectionStatus string

const (
	ConnectionIdle         ConnectionStatus = "idle"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionOpen         ConnectionStatus = "open"
	ConnectionReconnecting ConnectionStatus = "reconnecting"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// Connection is the connection status as seen by the presentation layer.
type Connection struct {
	Status  ConnectionStatus
	Attempt int
}

// State is a snapshot of the session.
type State struct {
	Username      string
	Contacts      []Contact
	Selected      string
	Conversations map[string][]Message
	Typing        bool
	Connection    Connection
	Notice        string
}

// NewState returns the bootstrap state for a roster. The first contact is
// selected, as the contact list opens on it.
func NewState(roster []Contact) State {
	s := State{
		Contacts:      slices.Clone(roster),
		Conversations: map[string][]Message{},
		Connection:    Connection{Status: ConnectionIdle},
	}
	if len(s.Contacts) > 0 {
		s.Selected = s.Contacts[0].Name
	}
	return s
}

// Contact returns the contact with the given name.
func (s State) Contact(name string) (Contact, bool) {
	i := s.indexByName(name)
	if i < 0 {
		return Contact{}, false
	}
	return s.Contacts[i], true
}

// SelectedContact returns the currently selected contact.
func (s State) SelectedContact() (Contact, bool) {
	if s.Selected == "" {
		return Contact{}, false
	}
	return s.Contact(s.Selected)
}

// Messages returns the history of a conversation.
func (s State) Messages(key string) []Message {
	return s.Conversations[key]
}

func (s State) indexByName(name string) int {
	return slices.IndexFunc(s.Contacts, func(c Contact) bool { return c.Name == name })
}

func (s State) indexByID(id string) int {
	return slices.IndexFunc(s.Contacts, func(c Contact) bool { return c.ID == id })
}
