package session

import (
	"maps"
	"slices"
)

// previewLabel is the timestamp label shown next to a fresh preview.
const previewLabel = "now"

// Reduce returns the state that results from applying a to s. It never
// modifies s or anything reachable from it.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetUsername:
		s.Username = a.Name
		s.Contacts = slices.DeleteFunc(slices.Clone(s.Contacts), func(c Contact) bool {
			return c.Name == a.Name
		})
		s = repairSelection(s)
	case SetContacts:
		s.Contacts = slices.Clone(a.Contacts)
		s = repairSelection(s)
	case AddContact:
		s.Contacts = prepend(s.Contacts, a.Contact)
	case RemoveContact:
		s.Contacts = slices.DeleteFunc(slices.Clone(s.Contacts), func(c Contact) bool {
			return c.ID == a.ID
		})
		s = repairSelection(s)
	case UpdateContactStatus:
		i := s.indexByID(a.ID)
		if i < 0 {
			return s
		}
		s.Contacts = slices.Clone(s.Contacts)
		s.Contacts[i].Online = a.Online
	case SelectContact:
		if s.indexByName(a.Name) < 0 {
			return s
		}
		s.Selected = a.Name
		if a.Reset {
			s.Conversations = maps.Clone(s.Conversations)
			s.Conversations[a.Name] = []Message{}
		}
	case CreateGroup:
		s.Contacts = prepend(s.Contacts, a.Group)
		s.Selected = a.Group.Name
	case AppendMessage:
		s.Conversations = maps.Clone(s.Conversations)
		if s.Conversations == nil {
			s.Conversations = map[string][]Message{}
		}
		s.Conversations[a.Key] = append(slices.Clip(s.Conversations[a.Key]), a.Message)
		if i := s.indexByName(a.Key); i >= 0 {
			s.Contacts = slices.Clone(s.Contacts)
			s.Contacts[i].LastMessage = a.Message.Content
			s.Contacts[i].Timestamp = previewLabel
		}
		if a.ClearTyping {
			s.Typing = false
		}
	case SetTyping:
		s.Typing = a.Typing
	case SetConnection:
		s.Connection = a.Connection
	case SetNotice:
		s.Notice = a.Text
	}
	return s
}

func prepend(contacts []Contact, c Contact) []Contact {
	out := make([]Contact, 0, len(contacts)+1)
	out = append(out, c)
	return append(out, contacts...)
}

// repairSelection keeps the selection pointing at an existing contact. An
// empty selection is left alone.
func repairSelection(s State) State {
	if s.Selected == "" || s.indexByName(s.Selected) >= 0 {
		return s
	}
	s.Selected = ""
	if len(s.Contacts) > 0 {
		s.Selected = s.Contacts[0].Name
	}
	return s
}
