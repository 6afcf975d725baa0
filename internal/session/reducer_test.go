package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster() []Contact {
	return []Contact{
		{ID: "1", Name: "Quigiaosu", Online: true, LastMessage: "That sounds awesome!", Timestamp: "2 min"},
		{ID: "2", Name: "Alex Chen", Online: true, LastMessage: "Let's catch up soon!", Timestamp: "1 hour"},
		{ID: "3", Name: "Maya Rodriguez", LastMessage: "Thanks for the help!", Timestamp: "3 hours"},
	}
}

func TestNewStateSelectsFirstContact(t *testing.T) {
	s := NewState(testRoster())
	assert.Equal(t, "Quigiaosu", s.Selected)
	assert.Equal(t, ConnectionIdle, s.Connection.Status)

	empty := NewState(nil)
	assert.Empty(t, empty.Selected)
	_, ok := empty.SelectedContact()
	assert.False(t, ok)
}

func TestReduceAppendPreservesOrder(t *testing.T) {
	s := NewState(testRoster())
	for i := range 25 {
		s = Reduce(s, AppendMessage{Key: "fresh", Message: Message{ID: fmt.Sprint(i), Content: fmt.Sprint(i)}})
	}

	msgs := s.Messages("fresh")
	require.Len(t, msgs, 25)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprint(i), m.ID)
	}
}

func TestReduceDoesNotMutatePreviousState(t *testing.T) {
	before := NewState(testRoster())
	before = Reduce(before, AppendMessage{Key: "Alex Chen", Message: Message{ID: "a"}})

	after := Reduce(before, AppendMessage{Key: "Alex Chen", Message: Message{ID: "b"}})
	after = Reduce(after, UpdateContactStatus{ID: "3", Online: true})
	after = Reduce(after, SetUsername{Name: "Alex Chen"})

	assert.Len(t, before.Messages("Alex Chen"), 1)
	assert.Len(t, after.Messages("Alex Chen"), 2)
	assert.False(t, before.Contacts[2].Online)
	assert.Len(t, before.Contacts, 3)
	assert.Empty(t, before.Username)
}

func TestReduceAppendSharedPrefixDoesNotAlias(t *testing.T) {
	base := Reduce(NewState(nil), AppendMessage{Key: "k", Message: Message{ID: "1"}})
	left := Reduce(base, AppendMessage{Key: "k", Message: Message{ID: "left"}})
	right := Reduce(base, AppendMessage{Key: "k", Message: Message{ID: "right"}})

	assert.Equal(t, "left", left.Messages("k")[1].ID)
	assert.Equal(t, "right", right.Messages("k")[1].ID)
}

func TestReduceAppendUpdatesPreviewAndClearsTyping(t *testing.T) {
	s := NewState(testRoster())
	s = Reduce(s, SetTyping{Typing: true})
	s = Reduce(s, AppendMessage{
		Key:         "Maya Rodriguez",
		Message:     NewMessage("see you", "Maya Rodriguez", false, time.Now()),
		ClearTyping: true,
	})

	c, ok := s.Contact("Maya Rodriguez")
	require.True(t, ok)
	assert.Equal(t, "see you", c.LastMessage)
	assert.Equal(t, "now", c.Timestamp)
	assert.False(t, s.Typing)
}

func TestReduceSetUsernameFiltersSelf(t *testing.T) {
	s := Reduce(NewState(testRoster()), SetUsername{Name: "Quigiaosu"})

	assert.Equal(t, "Quigiaosu", s.Username)
	_, ok := s.Contact("Quigiaosu")
	assert.False(t, ok)
	assert.Len(t, s.Contacts, 2)
	assert.Equal(t, "Alex Chen", s.Selected, "selection must move off the removed contact")
}

func TestReduceSelectContact(t *testing.T) {
	s := NewState(testRoster())
	s = Reduce(s, AppendMessage{Key: "Alex Chen", Message: Message{ID: "1"}})

	kept := Reduce(s, SelectContact{Name: "Alex Chen"})
	assert.Equal(t, "Alex Chen", kept.Selected)
	assert.Len(t, kept.Messages("Alex Chen"), 1)

	reset := Reduce(s, SelectContact{Name: "Alex Chen", Reset: true})
	assert.Equal(t, "Alex Chen", reset.Selected)
	assert.NotNil(t, reset.Messages("Alex Chen"))
	assert.Empty(t, reset.Messages("Alex Chen"))
	assert.Len(t, s.Messages("Alex Chen"), 1)

	unknown := Reduce(s, SelectContact{Name: "Nobody"})
	assert.Equal(t, s.Selected, unknown.Selected)
}

func TestReduceCreateGroupPrependsAndSelects(t *testing.T) {
	group := Contact{ID: "g", Name: "Trip Planning", IsGroup: true}
	s := Reduce(NewState(testRoster()), CreateGroup{Group: group})

	require.Len(t, s.Contacts, 4)
	assert.Equal(t, "Trip Planning", s.Contacts[0].Name)
	assert.Equal(t, "Trip Planning", s.Selected)
}

func TestReduceRemoveContactRepairsSelection(t *testing.T) {
	s := Reduce(NewState(testRoster()), RemoveContact{ID: "1"})
	assert.Len(t, s.Contacts, 2)
	assert.Equal(t, "Alex Chen", s.Selected)

	s = Reduce(s, SetContacts{Contacts: nil})
	assert.Empty(t, s.Selected)
}

func TestReduceConnectionAndNotice(t *testing.T) {
	s := Reduce(NewState(nil), SetConnection{Connection: Connection{Status: ConnectionReconnecting, Attempt: 2}})
	s = Reduce(s, SetNotice{Text: "relay unavailable"})

	assert.Equal(t, Connection{Status: ConnectionReconnecting, Attempt: 2}, s.Connection)
	assert.Equal(t, "relay unavailable", s.Notice)
}
