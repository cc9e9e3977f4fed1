package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"meshpeer/internal/transport"
)

// Client implements transport.ClientTransport, dialing at most one
// outgoing WebSocket connection per call.
type Client struct{}

// NewClient returns a Client ready to Connect.
func NewClient() *Client {
	return &Client{}
}

type clientConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (c *clientConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("ws: send on closed connection")
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *clientConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// Connect dials host:port/path, blocking until the handshake
// completes, ctx expires, or the dial fails. On success, a goroutine
// pumps inbound frames to cb.OnData until the connection closes.
func (c *Client) Connect(ctx context.Context, host string, port uint16, path string, cb transport.ClientCallbacks) (transport.ClientHandle, error) {
	url := fmt.Sprintf("ws://%s:%d%s", host, port, path)

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s failed: %w", url, err)
	}

	cc := &clientConn{conn: conn}

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if cb.OnData != nil {
				cb.OnData(data)
			}
		}
		_ = cc.Close()
		if cb.OnClose != nil {
			cb.OnClose()
		}
	}()

	return cc, nil
}
