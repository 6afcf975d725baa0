package session

// Action is a tagged state transition understood by Reduce.
type Action interface {
	action()
}

// SetUsername sets the local identity and drops the contact carrying the same
// name so the user cannot open a chat with themselves.
type SetUsername struct{ Name string }

// SetContacts replaces the contact list.
type SetContacts struct{ Contacts []Contact }

// AddContact prepends a contact.
type AddContact struct{ Contact Contact }

// RemoveContact drops the contact with the given id.
type RemoveContact struct{ ID string }

// UpdateContactStatus changes a contact's online flag.
type UpdateContactStatus struct {
	ID     string
	Online bool
}

// SelectContact moves the selection. Reset also clears the conversation's history.
type SelectContact struct {
	Name  string
	Reset bool
}

// CreateGroup prepends a group contact and selects it.
type CreateGroup struct{ Group Contact }

// AppendMessage appends a message to a conversation.
type AppendMessage struct {
	Key         string
	Message     Message
	ClearTyping bool
}

// SetTyping sets the global typing flag.
type SetTyping struct{ Typing bool }

// SetConnection records the connection status.
type SetConnection struct{ Connection Connection }

// SetNotice records a user-facing error. An empty text clears it.
type SetNotice struct{ Text string }

func (SetUsername) action()         {}
func (SetContacts) action()         {}
func (AddContact) action()          {}
func (RemoveContact) action()       {}
func (UpdateContactStatus) action() {}
func (SelectContact) action()       {}
func (CreateGroup) action()         {}
func (AppendMessage) action()       {}
func (SetTyping) action()           {}
func (SetConnection) action()       {}
func (SetNotice) action()           {}
