package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// GobwasDialer dials with gobwas/ws, a lower-level alternative to gorilla.
type GobwasDialer struct {
	Dialer ws.Dialer
}

// NewGobwasDialer returns a dialer using gobwas' default settings.
func NewGobwasDialer() *GobwasDialer {
	return &GobwasDialer{Dialer: ws.DefaultDialer}
}

// Dial implements Dialer.
func (d *GobwasDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, br, _, err := d.Dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	// Frames sent right after the handshake may already sit in br.
	var r io.Reader = conn
	if br != nil {
		r = br
	}
	return &gobwasSocket{
		conn: conn,
		rw: struct {
			io.Reader
			io.Writer
		}{r, conn},
	}, nil
}

type gobwasSocket struct {
	conn net.Conn
	rw   io.ReadWriter
	mu   sync.Mutex
}

func (s *gobwasSocket) ReadMessage() ([]byte, error) {
	data, _, err := wsutil.ReadServerData(s.rw)
	return data, err
}

func (s *gobwasSocket) WriteMessage(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return wsutil.WriteClientText(s.conn, data)
}

func (s *gobwasSocket) Close() error {
	s.mu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = wsutil.WriteClientMessage(s.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
	s.mu.Unlock()
	return s.conn.Close()
}
