// Package ws is the gorilla/websocket reference implementation of
// transport.ServerTransport and transport.ClientTransport (spec.md
// §4.8), grounded on peder1981-p2p-irc's internal/ui/web_ui.go
// upgrade-and-pump idiom.
package ws

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"meshpeer/internal/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server implements transport.ServerTransport over a single HTTP
// server hosting one upgraded WebSocket route.
type Server struct{}

// NewServer returns a Server ready to Listen.
func NewServer() *Server {
	return &Server{}
}

type serverConn struct {
	id   transport.ConnID
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *serverConn) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// handle is the live ServerHandle returned by Listen.
type handle struct {
	mu      sync.Mutex
	conns   map[transport.ConnID]*serverConn
	httpSrv *http.Server
}

func (h *handle) Send(id transport.ConnID, data []byte) error {
	h.mu.Lock()
	c, ok := h.conns[id]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("ws: unknown connection %s", id)
	}
	return c.send(data)
}

func (h *handle) Broadcast(data []byte) error {
	h.mu.Lock()
	targets := make([]*serverConn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	var firstErr error
	for _, c := range targets {
		if err := c.send(data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *handle) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *handle) Close() error {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[transport.ConnID]*serverConn)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.Close()
	}
	return h.httpSrv.Close()
}

func (h *handle) remove(id transport.ConnID) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

func (h *handle) add(c *serverConn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

// Listen starts an HTTP server on port, upgrading connections to
// path. Callbacks fire on per-connection goroutines owned by this
// handle.
func (s *Server) Listen(port uint16, path string, cb transport.ServerCallbacks) (transport.ServerHandle, error) {
	h := &handle{conns: make(map[transport.ConnID]*serverConn)}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		id := newConnID()
		sc := &serverConn{id: id, conn: conn}
		h.add(sc)

		if cb.OnConnect != nil {
			cb.OnConnect(id)
		}
		if cb.OnReady != nil {
			cb.OnReady(id)
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if cb.OnData != nil {
				cb.OnData(id, data)
			}
		}

		h.remove(id)
		_ = conn.Close()
		if cb.OnClose != nil {
			cb.OnClose(id)
		}
	})

	h.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", h.httpSrv.Addr)
	if err != nil {
		return nil, fmt.Errorf("ws: listen failed: %w", err)
	}
	go func() {
		_ = h.httpSrv.Serve(ln)
	}()

	return h, nil
}

func newConnID() transport.ConnID {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return transport.ConnID(hex.EncodeToString(b))
}
