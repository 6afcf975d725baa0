// Package autoreply simulates the remote side of a conversation in demo mode.
package autoreply

import (
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/omochice/relay-chat-client/internal/session"
)

const (
	TypingDelay = 500 * time.Millisecond
	ReplyDelay  = 2000 * time.Millisecond
)

// Replies are the canned responses.
var Replies = []string{
	"That's really interesting! 😊",
	"I totally agree with you!",
	"Thanks for sharing that with me ✨",
	"Wow, that's amazing!",
	"I'd love to know more about that 🤔",
}

// Responder answers every locally authored message with a canned reply.
// Pending replies are never cancelled; a reply lands in whichever conversation
// is selected when it fires.
type Responder struct {
	store   *session.Store
	clock   clockwork.Clock
	pick    func(n int) int
	replies []string
}

// Option configures a Responder.
type Option func(*Responder)

// WithPicker replaces the uniform random reply choice.
func WithPicker(pick func(n int) int) Option {
	return func(r *Responder) {
		r.pick = pick
	}
}

// WithReplies replaces the canned replies.
func WithReplies(replies []string) Option {
	return func(r *Responder) {
		if len(replies) > 0 {
			r.replies = replies
		}
	}
}

// New creates a Responder. A nil clock uses the real one.
func New(store *session.Store, clock clockwork.Clock, opts ...Option) *Responder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &Responder{
		store:   store,
		clock:   clock,
		pick:    rand.IntN,
		replies: Replies,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnOwnMessage schedules the typing indicator and the reply.
func (r *Responder) OnOwnMessage() {
	r.clock.AfterFunc(TypingDelay, func() {
		r.store.SetTyping(true)
	})
	r.clock.AfterFunc(ReplyDelay, r.reply)
}

func (r *Responder) reply() {
	contact, ok := r.store.State().SelectedContact()
	if !ok {
		r.store.SetTyping(false)
		return
	}
	content := r.replies[r.pick(len(r.replies))]
	r.store.Dispatch(session.AppendMessage{
		Key:         contact.Name,
		Message:     session.NewMessage(content, contact.Name, false, r.clock.Now()),
		ClearTyping: true,
	})
}
