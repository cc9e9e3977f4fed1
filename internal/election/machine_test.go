package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meshpeer/internal/registry"
	"meshpeer/internal/transport"
)

// TestTwoNodeElection models S1: A < B, both with zero followers. B's
// Negotiate should be accepted by A.
func TestTwoNodeElection(t *testing.T) {
	a := NewMachine(registry.Host{Name: "a.local.", Port: 8001})

	accepted := a.HandleNegotiate("b.local.", 8001, 0)
	require.True(t, accepted, "a.local. < b.local. on a tie must keep A as coordinator")

	_, ok := a.NextServer.Get()
	require.False(t, ok, "an accepting node must not record a handoff target")
}

// TestConcessionRecordsNextServer models S2's reverse case: B concedes
// to A and must reconnect directly on its next tick.
func TestConcessionRecordsNextServer(t *testing.T) {
	b := NewMachine(registry.Host{Name: "b.local.", Port: 8001})

	accepted := b.HandleNegotiate("a.local.", 8001, 2)
	require.False(t, accepted, "fewer followers than the candidate must concede")

	host, ok := b.NextServer.Get()
	require.True(t, ok)
	require.Equal(t, registry.Host{Name: "a.local.", Port: 8001}, host)
}

// TestHandoffSequence models the conceding node's side of S3: it
// confirms to the new coordinator, switches its own followers, waits,
// then steps down.
func TestHandoffSequence(t *testing.T) {
	c := NewMachine(registry.Host{Name: "c.local.", Port: 8001})
	c.ConfirmedClients.Add(transport.ConnID("f1"))
	c.ConfirmedClients.Add(transport.ConnID("f2"))

	c.BeginDirectClientConnection(registry.Host{Name: "cprime.local.", Port: 8001})
	require.Equal(t, Confirmed, c.ClientState.Load())

	var confirmSent bool
	var switched registry.Host
	var slept time.Duration
	var advertisingStopped, listeningStopped bool

	err := c.ClientConnectionConfirmed(HandoffDeps{
		SendConfirmToServer: func() error { confirmSent = true; return nil },
		BroadcastSwitch: func(host registry.Host) error { switched = host; return nil },
		StopAdvertising: func() { advertisingStopped = true },
		StopListening:   func() { listeningStopped = true },
		Sleep:           func(d time.Duration) { slept = d },
	})

	require.NoError(t, err)
	require.True(t, confirmSent)
	require.Equal(t, registry.Host{Name: "cprime.local.", Port: 8001}, switched)
	require.Equal(t, 500*time.Millisecond, slept)
	require.True(t, advertisingStopped)
	require.True(t, listeningStopped)
	require.Equal(t, Connected, c.ClientState.Load())
	require.Equal(t, 0, c.ConfirmedClients.Size())
}

func TestHandoffIsANoOpBroadcastWithoutFollowers(t *testing.T) {
	b := NewMachine(registry.Host{Name: "b.local.", Port: 8001})
	b.BeginClientConnection(registry.Host{Name: "a.local.", Port: 8001})
	b.ClientState.Transition(Confirmed)

	var broadcastCalls int
	err := b.ClientConnectionConfirmed(HandoffDeps{
		SendConfirmToServer: func() error { return nil },
		BroadcastSwitch: func(registry.Host) error { broadcastCalls++; return nil },
		StopAdvertising: func() {},
		StopListening:   func() {},
		Sleep:           func(time.Duration) {},
	})

	require.NoError(t, err)
	require.Equal(t, 1, broadcastCalls, "broadcast is still invoked even with zero followers")
	require.True(t, b.IsConnectedAsClient())
}

func TestFailedClientDisconnects(t *testing.T) {
	b := NewMachine(registry.Host{Name: "b.local.", Port: 8001})
	b.BeginClientConnection(registry.Host{Name: "a.local.", Port: 8001})
	b.HandleConfirmFromServer(false)
	require.Equal(t, Failed, b.ClientState.Load())

	b.Disconnect()
	require.True(t, b.IsDisconnected())
}
