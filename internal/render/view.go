// Package render draws session snapshots for a terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/omochice/relay-chat-client/internal/session"
)

const timeLayout = "15:04"

// Renderer turns snapshots into printable text.
type Renderer struct {
	styles styles
}

func New() *Renderer {
	return &Renderer{styles: newStyles()}
}

// Contacts renders the contact list with previews and the selection marker.
func (r *Renderer) Contacts(st session.State) string {
	s := r.styles
	lines := []string{s.title.Render("Contacts")}
	if len(st.Contacts) == 0 {
		lines = append(lines, s.empty.Render("No contacts."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, c := range st.Contacts {
		lines = append(lines, r.contactLine(c, c.Name == st.Selected))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (r *Renderer) contactLine(c session.Contact, selected bool) string {
	s := r.styles
	marker := "  "
	name := s.contact.Render(c.Name)
	if selected {
		marker = "> "
		name = s.selected.Render(c.Name)
	}

	dot := s.offline.Render("○")
	if c.Online {
		dot = s.online.Render("●")
	}

	label := name
	if c.IsGroup {
		label += s.header.Render(fmt.Sprintf(" (group, %d members)", len(c.Members)))
	}

	line := fmt.Sprintf("%s%s %s", marker, dot, label)
	if c.LastMessage != "" {
		line += "  " + s.preview.Render(fmt.Sprintf("%s · %s", c.LastMessage, c.Timestamp))
	}
	return line
}

// Thread renders the selected conversation.
func (r *Renderer) Thread(st session.State) string {
	s := r.styles
	if st.Selected == "" {
		return s.empty.Render("No conversation selected.")
	}

	lines := []string{s.title.Render(st.Selected)}
	msgs := st.Messages(st.Selected)
	if len(msgs) == 0 {
		lines = append(lines, s.empty.Render("No messages yet."))
	}
	for _, m := range msgs {
		lines = append(lines, r.Message(m))
	}
	if st.Typing {
		lines = append(lines, s.typing.Render(fmt.Sprintf("%s is typing...", st.Selected)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Message renders a single message line.
func (r *Renderer) Message(m session.Message) string {
	s := r.styles
	stamp := s.meta.Render(formatTime(m.Timestamp))
	if m.IsOwn {
		return fmt.Sprintf("%s %s %s", stamp, s.own.Render("[you]"), m.Content)
	}
	return fmt.Sprintf("%s %s %s", stamp, s.other.Render("["+m.Sender+"]"), m.Content)
}

// Status renders the identity, connection state and any pending notice.
func (r *Renderer) Status(st session.State) string {
	s := r.styles
	user := st.Username
	if user == "" {
		user = "(not logged in)"
	}
	parts := []string{s.header.Render(fmt.Sprintf("user: %s", user))}

	conn := string(st.Connection.Status)
	if conn == "" {
		conn = string(session.ConnectionIdle)
	}
	if st.Connection.Status == session.ConnectionReconnecting {
		conn = fmt.Sprintf("%s (attempt %d)", conn, st.Connection.Attempt)
	}
	connLine := s.header.Render("connection: " + conn)
	if st.Connection.Status == session.ConnectionDisconnected {
		connLine = s.warning.Render("connection: " + conn)
	}
	parts = append(parts, connLine)

	if st.Notice != "" {
		parts = append(parts, s.warning.Render("error: "+st.Notice))
	}
	return strings.Join(parts, "  ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.Local().Format(timeLayout)
}
