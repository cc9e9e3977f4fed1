package discovery

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshpeer/internal/config"
	"meshpeer/internal/election"
	"meshpeer/internal/logging"
	"meshpeer/internal/peer"
	"meshpeer/internal/registry"
	"meshpeer/internal/transport"
)

type fakeServerHandle struct {
	mu  sync.Mutex
	out map[transport.ConnID][][]byte
}

func (h *fakeServerHandle) Send(id transport.ConnID, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.out[id] = append(h.out[id], data)
	return nil
}
func (h *fakeServerHandle) Broadcast(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.out {
		h.out[id] = append(h.out[id], data)
	}
	return nil
}
func (h *fakeServerHandle) Size() int { return len(h.out) }
func (h *fakeServerHandle) Close() error { return nil }

type fakeServerTransport struct {
	handle *fakeServerHandle
	cb     transport.ServerCallbacks
}

func (t *fakeServerTransport) Listen(port uint16, path string, cb transport.ServerCallbacks) (transport.ServerHandle, error) {
	t.handle = &fakeServerHandle{out: make(map[transport.ConnID][][]byte)}
	t.cb = cb
	return t.handle, nil
}

type fakeClientHandle struct {
	mu  sync.Mutex
	out [][]byte
}

func (h *fakeClientHandle) Send(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.out = append(h.out, data)
	return nil
}
func (h *fakeClientHandle) Close() error { return nil }

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
	results []transport.BrowseResult
}

func (a *fakeAdvertiser) Start() error                  { a.running = true; return nil }
func (a *fakeAdvertiser) Stop() error                   { a.running = false; return nil }
func (a *fakeAdvertiser) Running() bool                 { return a.running }
func (a *fakeAdvertiser) Browse() ([]transport.BrowseResult, error) { return a.results, nil }
func (a *fakeAdvertiser) Resolve(name string) error     { return nil }
func (a *fakeAdvertiser) LocalHostname() (string, error) { return "node-a.local.", nil }

func newTestDriver() (*Driver, *fakeServerTransport, *fakeClientTransport, *fakeAdvertiser) {
	logging.ConfigureTests()
	st := &fakeServerTransport{}
	ct := &fakeClientTransport{}
	adv := &fakeAdvertiser{}
	cfg := config.DefaultPeerConfig()
	cfg.DiscoverIntervalMS = 1000
	cfg.MaxPeerTimeMS = 3000
	p := peer.New(cfg, registry.Host{Name: "node-a", Port: 8001}, st, ct, adv)
	d := NewDriver(p, nil, logging.Component("discovery_test"))
	return d, st, ct, adv
}

func TestTickDefaultBranchStartsListenerAndAdvertiser(t *testing.T) {
	d, _, _, adv := newTestDriver()

	d.Tick()

	assert.True(t, d.Peer.IsListening())
	assert.True(t, adv.running)
}

func TestTickAttemptsConnectionToDiscoveredPeer(t *testing.T) {
	d, _, ct, _ := newTestDriver()
	d.Peer.Registry.Add(registry.Peer{Host: registry.Host{Name: "node-b", Port: 8001}, Source: registry.Discovered})

	d.Tick()

	require.NotNil(t, ct.handle)
	require.Len(t, ct.handle.out, 1)
	assert.Equal(t, election.Unconfirmed, d.Peer.Election.ClientState.Load())
}

func TestTickSkipsClientSourcedAndSelfPeers(t *testing.T) {
	d, _, ct, _ := newTestDriver()
	d.Peer.Registry.Add(registry.Peer{Host: registry.Host{Name: "node-a", Port: 8001}, Source: registry.Discovered})
	d.Peer.Registry.Add(registry.Peer{Host: registry.Host{Name: "node-b", Port: 8001}, Source: registry.Client})
	d.Peer.Registry.Add(registry.Peer{Host: registry.Host{Name: "node-c", Port: 8001}, Source: registry.Unresolved})

	d.Tick()

	assert.Nil(t, ct.handle)
}

func TestTickNextServerActiveTriesDirectHandoff(t *testing.T) {
	d, _, ct, _ := newTestDriver()
	d.Peer.Election.NextServer.Set(registry.Host{Name: "node-z", Port: 9001})

	d.Tick()

	require.NotNil(t, ct.handle)
	// tryConnect's direct path runs ClientConnectionConfirmed synchronously,
	// so by the time Tick returns the handoff has already completed.
	assert.Equal(t, election.Connected, d.Peer.Election.ClientState.Load())
}

func TestTickFailedStateDisconnectsAndFallsThrough(t *testing.T) {
	d, st, _, adv := newTestDriver()
	d.Peer.Election.BeginClientConnection(registry.Host{Name: "node-b", Port: 8001})
	d.Peer.Election.ClientState.Transition(election.Failed)

	d.Tick()

	_, connected := d.Peer.Election.ServerHost()
	assert.False(t, connected)
	assert.True(t, adv.running)
	_ = st
}

func TestRefreshBrowseResultsReconstitutesDashLocalNames(t *testing.T) {
	d, _, _, adv := newTestDriver()
	adv.results = []transport.BrowseResult{
		{Name: "node-b-local", Host: ""},
		{Name: "node-c", Host: "10.0.0.5", Port: 8001},
	}

	d.refreshBrowseResults()

	unresolved, ok := d.Peer.Registry.Lookup("node-b.local.")
	require.True(t, ok)
	assert.Equal(t, registry.Unresolved, unresolved.Source)

	resolved, ok := d.Peer.Registry.Lookup("node-c")
	require.True(t, ok)
	assert.Equal(t, registry.Discovered, resolved.Source)
}

func TestIsSelf(t *testing.T) {
	d, _, _, _ := newTestDriver()
	assert.True(t, d.isSelf("node-a"))
	assert.False(t, d.isSelf("node-b"))
}
