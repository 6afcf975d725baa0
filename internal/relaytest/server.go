// Package relaytest runs an in-process chat relay speaking the client's wire
// protocol. It exists for tests; it is not a production relay.
package relaytest

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/omochice/relay-chat-client/pkg/protocol"
)

// Server is a running test relay.
//
// send_message frames are delivered to the recipient and echoed to the
// sender; typing frames go to the recipient only.
type Server struct {
	srv *httptest.Server
	hub *hub

	mu       sync.Mutex
	received []protocol.ChatData
	wg       sync.WaitGroup
}

// NewServer starts a relay on a loopback port.
func NewServer() *Server {
	s := &Server{hub: newHub()}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	return s
}

// Host returns host:port suitable for client.URL.
func (s *Server) Host() string {
	return strings.TrimPrefix(s.srv.URL, "http://")
}

// Close disconnects every peer and stops the listener.
func (s *Server) Close() {
	for _, p := range s.hub.all() {
		p.conn.close()
	}
	s.srv.Close()
	s.wg.Wait()
}

// Dials returns how many connections username has opened so far.
func (s *Server) Dials(username string) int {
	return s.hub.dialCount(username)
}

// Online reports whether username has an open connection.
func (s *Server) Online(username string) bool {
	return len(s.hub.lookup(username)) > 0
}

// Kick closes every connection of username.
func (s *Server) Kick(username string) {
	for _, p := range s.hub.lookup(username) {
		p.conn.close()
	}
}

// Received returns the frames the relay has accepted, in arrival order.
func (s *Server) Received() []protocol.ChatData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ChatData(nil), s.received...)
}

// Push sends resp to every connection of username.
func (s *Server) Push(username string, resp protocol.Response) error {
	data, err := resp.Encode()
	if err != nil {
		return err
	}
	return s.PushRaw(username, data)
}

// PushRaw sends an arbitrary text frame to every connection of username.
func (s *Server) PushRaw(username string, data []byte) error {
	peers := s.hub.lookup(username)
	if len(peers) == 0 {
		return fmt.Errorf("relaytest: %s is not connected", username)
	}
	for _, p := range peers {
		s.enqueue(p, data)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("userId")
	if username == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	raw, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("relaytest: failed to upgrade connection: %v", err)
		return
	}

	p := &peer{
		conn:     &conn{raw: raw},
		username: username,
		outgoing: make(chan []byte, 16),
	}
	s.hub.register(p)

	s.wg.Add(2)
	go s.handleClient(p)
	go s.writeLoop(p)
}

func (s *Server) handleClient(p *peer) {
	defer s.wg.Done()
	defer func() {
		s.hub.unregister(p)
		p.shutdown()
		p.conn.close()
	}()

	for {
		data, err := p.conn.read()
		if err != nil {
			return
		}

		var frame protocol.ChatData
		if err := frame.Decode(data); err != nil || !frame.Action.Valid() {
			s.reply(p, protocol.ResponseError, protocol.ChatData{Message: "invalid frame"})
			continue
		}

		s.mu.Lock()
		s.received = append(s.received, frame)
		s.mu.Unlock()

		s.route(p, frame)
	}
}

func (s *Server) route(from *peer, frame protocol.ChatData) {
	switch frame.Action {
	case protocol.ActionSendMessage:
		s.forward(frame.To, protocol.Response{Type: protocol.ResponseMessage, Data: &frame})
		if frame.To != from.username {
			s.reply(from, protocol.ResponseEcho, frame)
		}
	case protocol.ActionTyping, protocol.ActionStopTyping:
		s.forward(frame.To, protocol.Response{Type: protocol.ResponseMessage, Data: &frame})
	case protocol.ActionJoinRoom, protocol.ActionLeaveRoom:
		s.reply(from, protocol.ResponseInfo, frame)
	}
}

func (s *Server) forward(to string, resp protocol.Response) {
	data, err := resp.Encode()
	if err != nil {
		return
	}
	for _, p := range s.hub.lookup(to) {
		s.enqueue(p, data)
	}
}

func (s *Server) reply(p *peer, typ protocol.ResponseType, d protocol.ChatData) {
	resp := protocol.Response{Type: typ, Data: &d}
	data, err := resp.Encode()
	if err != nil {
		return
	}
	s.enqueue(p, data)
}

func (s *Server) enqueue(p *peer, data []byte) {
	if !p.send(data) {
		log.Printf("relaytest: cannot queue frame for %s, dropping", p.username)
	}
}

func (s *Server) writeLoop(p *peer) {
	defer s.wg.Done()
	for data := range p.outgoing {
		if err := p.conn.write(data); err != nil {
			return
		}
	}
}
