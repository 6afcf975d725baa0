package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// groupCreatedPreview is the preview text of a freshly created group.
const groupCreatedPreview = "Group created"

// Store is the single owner of the session state. Dispatches are serialized;
// each one commits a complete new State before subscribers are notified.
type Store struct {
	mu            sync.Mutex
	state         State
	subs          map[uint64]chan State
	nextSub       uint64
	resetOnSelect bool
}

// Option configures a Store.
type Option func(*Store)

// WithResetOnSelect makes SelectContact clear the selected conversation's
// history.
func WithResetOnSelect(reset bool) Option {
	return func(s *Store) {
		s.resetOnSelect = reset
	}
}

// NewStore creates a Store holding initial.
func NewStore(initial State, opts ...Option) *Store {
	if initial.Conversations == nil {
		initial.Conversations = map[string][]Message{}
	}
	s := &Store{
		state: initial,
		subs:  make(map[uint64]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel that receives a snapshot after every dispatch.
// A slow subscriber only misses intermediate snapshots, never the latest one.
// The returned func cancels the subscription and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(a)
}

// apply must be called with s.mu held.
func (s *Store) apply(a Action) State {
	s.state = Reduce(s.state, a)
	for _, ch := range s.subs {
		publish(ch, s.state)
	}
	return s.state
}

func publish(ch chan State, st State) {
	select {
	case ch <- st:
		return
	default:
	}
	// Full: drop the oldest pending snapshot so the latest always lands.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

// SetUsername sets the local identity.
func (s *Store) SetUsername(name string) {
	s.Dispatch(SetUsername{Name: name})
}

// SelectContact selects the conversation with the named contact.
func (s *Store) SelectContact(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.indexByName(name) < 0 {
		return fmt.Errorf("select %q: %w", name, ErrContactNotFound)
	}
	s.apply(SelectContact{Name: name, Reset: s.resetOnSelect})
	return nil
}

// AppendMessage appends msg to the conversation keyed by key.
func (s *Store) AppendMessage(key string, msg Message) {
	s.Dispatch(AppendMessage{Key: key, Message: msg})
}

// AddContact prepends c to the contact list. A missing id is generated.
func (s *Store) AddContact(c Contact) (Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Contact{}, ErrInvalidContact
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.indexByName(c.Name) >= 0 {
		return Contact{}, fmt.Errorf("add %q: %w", c.Name, ErrDuplicateContact)
	}
	s.apply(AddContact{Contact: c})
	return c, nil
}

// RemoveContact drops the contact with the given id.
func (s *Store) RemoveContact(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.indexByID(id) < 0 {
		return fmt.Errorf("remove %q: %w", id, ErrContactNotFound)
	}
	s.apply(RemoveContact{ID: id})
	return nil
}

// CreateGroup adds a group contact for members and selects it.
func (s *Store) CreateGroup(name string, members []Contact) (Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(members) == 0 {
		return Contact{}, ErrInvalidGroup
	}
	group := Contact{
		ID:          uuid.NewString(),
		Name:        name,
		Online:      true,
		LastMessage: groupCreatedPreview,
		Timestamp:   previewLabel,
		IsGroup:     true,
		Members:     append([]Contact(nil), members...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.indexByName(name) >= 0 {
		return Contact{}, fmt.Errorf("create group %q: %w", name, ErrDuplicateContact)
	}
	s.apply(CreateGroup{Group: group})
	return group, nil
}

// UpdateContactStatus sets the online flag of the contact with the given id.
func (s *Store) UpdateContactStatus(id string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.indexByID(id) < 0 {
		return fmt.Errorf("update %q: %w", id, ErrContactNotFound)
	}
	s.apply(UpdateContactStatus{ID: id, Online: online})
	return nil
}

// SetTyping sets the typing flag.
func (s *Store) SetTyping(typing bool) {
	s.Dispatch(SetTyping{Typing: typing})
}

// SetConnection records the connection status.
func (s *Store) SetConnection(status ConnectionStatus, attempt int) {
	s.Dispatch(SetConnection{Connection: Connection{Status: status, Attempt: attempt}})
}

// SetNotice records a user-facing error.
func (s *Store) SetNotice(text string) {
	s.Dispatch(SetNotice{Text: text})
}
