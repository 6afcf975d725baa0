package relaytest

import (
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// conn wraps a server-side WebSocket connection upgraded by gobwas/ws.
type conn struct {
	raw       net.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *conn) read() ([]byte, error) {
	data, _, err := wsutil.ReadClientData(c.raw)
	return data, err
}

func (c *conn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerText(c.raw, data)
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = wsutil.WriteServerMessage(c.raw, ws.OpClose, ws.NewCloseFrameBody(ws.StatusGoingAway, ""))
		c.writeMu.Unlock()
		_ = c.raw.Close()
	})
}
