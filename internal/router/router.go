// Package router translates relay frames into session mutations and user
// actions into relay frames.
package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/omochice/relay-chat-client/internal/session"
	"github.com/omochice/relay-chat-client/pkg/protocol"
)

// ErrNoSelection is returned by outbound actions when no conversation is selected.
var ErrNoSelection = errors.New("no conversation selected")

// Sender delivers outbound frames. *client.Manager implements it.
type Sender interface {
	Send(ctx context.Context, d protocol.ChatData) error
}

// Router routes frames between the relay connection and the session store.
type Router struct {
	store  *session.Store
	sender Sender
	now    func() time.Time

	mu       sync.Mutex
	typingTo string
}

// Option configures a Router.
type Option func(*Router)

// WithNow overrides the clock used to timestamp inbound messages.
func WithNow(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// New creates a Router.
func New(store *session.Store, sender Sender, opts ...Option) *Router {
	r := &Router{
		store:  store,
		sender: sender,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleFrame decodes one inbound frame and applies it. Malformed frames are
// logged and dropped without touching the store.
func (r *Router) HandleFrame(data []byte) {
	var resp protocol.Response
	if err := resp.Decode(data); err != nil {
		log.Printf("Failed to decode frame: %v", err)
		return
	}
	r.Route(resp)
}

// Route applies a decoded frame as at most one store mutation.
func (r *Router) Route(resp protocol.Response) {
	if resp.Data == nil {
		return
	}
	d := *resp.Data
	local := r.store.State().Username

	switch d.Action {
	case protocol.ActionTyping:
		if d.Username == local {
			return
		}
		r.store.SetTyping(true)
	case protocol.ActionStopTyping:
		if d.Username == local {
			return
		}
		r.store.SetTyping(false)
	case protocol.ActionSendMessage:
		r.store.Dispatch(session.AppendMessage{
			Key:         ConversationKey(d, local),
			Message:     session.NewMessage(d.Message, d.Username, d.Username == local, r.now()),
			ClearTyping: true,
		})
	case protocol.ActionJoinRoom, protocol.ActionLeaveRoom:
		log.Printf("Ignoring %s for room %q", d.Action, d.Room)
	default:
		if resp.Type == protocol.ResponseError {
			log.Printf("Relay error: %s", d.Message)
			r.store.SetNotice(d.Message)
			return
		}
		log.Printf("Ignoring %s frame with unknown action %q", resp.Type, d.Action)
	}
}

// ConversationKey files a message under the other party's name regardless of
// direction. A message addressed to oneself is filed under the sender.
func ConversationKey(d protocol.ChatData, local string) string {
	if d.To == local {
		return d.Username
	}
	return d.To
}

// SendText sends text to the selected conversation. The message is not
// appended locally; it appears once the relay echoes it back.
func (r *Router) SendText(ctx context.Context, text string) error {
	st := r.store.State()
	if st.Selected == "" {
		return ErrNoSelection
	}
	return r.send(ctx, protocol.ChatData{
		Message:  text,
		To:       st.Selected,
		Action:   protocol.ActionSendMessage,
		Username: st.Username,
	})
}

// Focus tells the selected conversation that the local user is typing. Repeated
// calls for the same conversation send a single frame.
func (r *Router) Focus(ctx context.Context) error {
	st := r.store.State()
	if st.Selected == "" {
		return ErrNoSelection
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.typingTo == st.Selected {
		return nil
	}
	if r.typingTo != "" {
		if err := r.sendTyping(ctx, protocol.ActionStopTyping, r.typingTo, st.Username); err != nil {
			log.Printf("Failed to send stop_typing to %s: %v", r.typingTo, err)
		}
		r.typingTo = ""
	}
	if err := r.sendTyping(ctx, protocol.ActionTyping, st.Selected, st.Username); err != nil {
		return err
	}
	r.typingTo = st.Selected
	return nil
}

// Blur tells the conversation last focused that the local user stopped typing.
func (r *Router) Blur(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.typingTo == "" {
		return nil
	}
	to := r.typingTo
	r.typingTo = ""
	return r.sendTyping(ctx, protocol.ActionStopTyping, to, r.store.State().Username)
}

func (r *Router) sendTyping(ctx context.Context, action protocol.Action, to, username string) error {
	return r.send(ctx, protocol.ChatData{
		To:       to,
		Action:   action,
		Username: username,
	})
}

func (r *Router) send(ctx context.Context, d protocol.ChatData) error {
	if err := r.sender.Send(ctx, d); err != nil {
		return fmt.Errorf("send %s to %s: %w", d.Action, d.To, err)
	}
	return nil
}
