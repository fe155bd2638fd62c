package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// clientConn is the relay.Outbox of one websocket. Frames are queued and
// written by a single writer goroutine; a full queue closes the socket.
type clientConn struct {
	rawConn *websocket.Conn
	send    chan []byte
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

func newClientConn(raw *websocket.Conn, buffer int) *clientConn {
	return &clientConn{
		rawConn: raw,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
}

func (c *clientConn) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		// Slow consumer; the reader sees the closed socket and disconnects.
		c.closeLocked()
		return false
	}
}

func (c *clientConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *clientConn) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	_ = c.rawConn.Close()
}

func (c *clientConn) write(mt int, data []byte) error {
	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data) // Text/Binary only
}

func (c *clientConn) ping() error {
	return c.rawConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}
