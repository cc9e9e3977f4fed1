package peer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshpeer/internal/config"
	"meshpeer/internal/registry"
	"meshpeer/internal/transport"
)

type fakeServerHandle struct {
	mu        sync.Mutex
	broadcast [][]byte
	sent      map[transport.ConnID][][]byte
	closed    bool
}

func (h *fakeServerHandle) Send(id transport.ConnID, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent[id] = append(h.sent[id], data)
	return nil
}
func (h *fakeServerHandle) Broadcast(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast = append(h.broadcast, data)
	return nil
}
func (h *fakeServerHandle) Size() int { return len(h.sent) }
func (h *fakeServerHandle) Close() error {
	h.closed = true
	return nil
}

type fakeServerTransport struct {
	listens int
	handle  *fakeServerHandle
}

func (t *fakeServerTransport) Listen(port uint16, path string, cb transport.ServerCallbacks) (transport.ServerHandle, error) {
	t.listens++
	t.handle = &fakeServerHandle{sent: make(map[transport.ConnID][][]byte)}
	return t.handle, nil
}

type fakeClientHandle struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (h *fakeClientHandle) Send(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, data)
	return nil
}
func (h *fakeClientHandle) Close() error {
	h.closed = true
	return nil
}

type fakeClientTransport struct {
	fail   bool
	handle *fakeClientHandle
}

func (t *fakeClientTransport) Connect(ctx context.Context, host string, port uint16, path string, cb transport.ClientCallbacks) (transport.ClientHandle, error) {
	if t.fail {
		return nil, assert.AnError
	}
	t.handle = &fakeClientHandle{}
	return t.handle, nil
}

type fakeAdvertiser struct {
	running bool
}

func (a *fakeAdvertiser) Start() error                                { a.running = true; return nil }
func (a *fakeAdvertiser) Stop() error                                 { a.running = false; return nil }
func (a *fakeAdvertiser) Running() bool                                { return a.running }
func (a *fakeAdvertiser) Browse() ([]transport.BrowseResult, error)    { return nil, nil }
func (a *fakeAdvertiser) Resolve(name string) error                   { return nil }
func (a *fakeAdvertiser) LocalHostname() (string, error)              { return "node-a.local.", nil }

func newTestPeer() (*NetworkPeer, *fakeServerTransport, *fakeClientTransport, *fakeAdvertiser) {
	st := &fakeServerTransport{}
	ct := &fakeClientTransport{}
	adv := &fakeAdvertiser{}
	cfg := config.DefaultPeerConfig()
	p := New(cfg, registry.Host{Name: "node-a.local.", Port: 8001}, st, ct, adv)
	return p, st, ct, adv
}

func TestStartListeningIsIdempotent(t *testing.T) {
	p, st, _, _ := newTestPeer()

	require.NoError(t, p.StartListening(transport.ServerCallbacks{}))
	require.NoError(t, p.StartListening(transport.ServerCallbacks{}))

	assert.True(t, p.IsListening())
	assert.Equal(t, 1, st.listens)
}

func TestStopListeningClosesHandleOnce(t *testing.T) {
	p, st, _, _ := newTestPeer()
	require.NoError(t, p.StartListening(transport.ServerCallbacks{}))

	require.NoError(t, p.StopListening())
	assert.False(t, p.IsListening())
	assert.True(t, st.handle.closed)

	require.NoError(t, p.StopListening())
}

func TestStartStopAdvertisingTracksState(t *testing.T) {
	p, _, _, adv := newTestPeer()

	assert.False(t, p.IsAdvertising())
	require.NoError(t, p.StartAdvertising())
	assert.True(t, p.IsAdvertising())
	assert.True(t, adv.running)

	require.NoError(t, p.StopAdvertising())
	assert.False(t, p.IsAdvertising())
	assert.False(t, adv.running)
}

func TestConnectFailurePropagatesError(t *testing.T) {
	p, _, ct, _ := newTestPeer()
	ct.fail = true

	_, err := p.Connect("node-b.local.", 8001, transport.ClientCallbacks{})
	assert.Error(t, err)
}

func TestSendToServerIsNoopWithoutConnection(t *testing.T) {
	p, _, _, _ := newTestPeer()
	assert.NoError(t, p.SendToServer([]byte("hi")))
}

func TestSendToServerDeliversOverActiveConnection(t *testing.T) {
	p, _, ct, _ := newTestPeer()

	_, err := p.Connect("node-b.local.", 8001, transport.ClientCallbacks{})
	require.NoError(t, err)

	require.NoError(t, p.SendToServer([]byte("ping")))
	assert.Equal(t, [][]byte{[]byte("ping")}, ct.handle.sent)
}

func TestBroadcastToFollowersIsNoopWithoutListener(t *testing.T) {
	p, _, _, _ := newTestPeer()
	assert.NoError(t, p.BroadcastToFollowers([]byte("hi")))
}

func TestBroadcastToFollowersDeliversOverListener(t *testing.T) {
	p, st, _, _ := newTestPeer()
	require.NoError(t, p.StartListening(transport.ServerCallbacks{}))

	require.NoError(t, p.BroadcastToFollowers([]byte("peers")))
	assert.Equal(t, [][]byte{[]byte("peers")}, st.handle.broadcast)
}

func TestCloseStopsAdvertisingAndListening(t *testing.T) {
	p, st, _, adv := newTestPeer()
	require.NoError(t, p.StartListening(transport.ServerCallbacks{}))
	require.NoError(t, p.StartAdvertising())

	require.NoError(t, p.Close())

	assert.False(t, adv.running)
	assert.False(t, p.IsListening())
	assert.True(t, st.handle.closed)
}

func TestDisconnectClientClosesHandle(t *testing.T) {
	p, _, ct, _ := newTestPeer()
	_, err := p.Connect("node-b.local.", 8001, transport.ClientCallbacks{})
	require.NoError(t, err)

	require.NoError(t, p.DisconnectClient())
	assert.True(t, ct.handle.closed)

	require.NoError(t, p.DisconnectClient())
}
