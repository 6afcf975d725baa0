package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// GorillaDialer dials with gorilla/websocket.
type GorillaDialer struct {
	Dialer *websocket.Dialer
}

// NewGorillaDialer returns a dialer using gorilla's default settings.
func NewGorillaDialer() *GorillaDialer {
	d := *websocket.DefaultDialer
	return &GorillaDialer{Dialer: &d}
}

// Dial implements Dialer.
func (d *GorillaDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, resp, err := d.Dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return &gorillaSocket{conn: conn}, nil
}

// gorillaSocket serializes writes; gorilla allows one concurrent reader and
// one concurrent writer.
type gorillaSocket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *gorillaSocket) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *gorillaSocket) WriteMessage(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *gorillaSocket) Close() error {
	s.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	s.mu.Unlock()
	return s.conn.Close()
}
