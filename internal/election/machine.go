package election

import (
	"sync"
	"time"

	"meshpeer/internal/registry"
)

// HandoffDeps are the side-effecting collaborators ClientConnectionConfirmed
// needs from the discovery driver and transport layer. They are passed
// in rather than stored so Machine stays a pure state holder that is
// easy to drive from tests.
type HandoffDeps struct {
	// SendConfirmToServer acknowledges our admission as a follower.
	SendConfirmToServer func() error
	// BroadcastSwitch tells our own current followers to become
	// clients of newCoordinator instead.
	BroadcastSwitch func(newCoordinator registry.Host) error
	StopAdvertising func()
	StopListening   func()
	Sleep           func(time.Duration)
}

// Machine holds one node's election state: its outgoing ClientState,
// the NextServer handoff target, the set of ConfirmedClients following
// it as server, and which host (if any) it is a client of.
type Machine struct {
	localHost registry.Host

	ClientState      *AtomicClientState
	NextServer       *NextServer
	ConfirmedClients *ConfirmedClients

	mu                 sync.Mutex
	serverHost         registry.Host
	connectedAsClient  bool
}

// NewMachine returns a Machine for a node identified by localHost.
func NewMachine(localHost registry.Host) *Machine {
	return &Machine{
		localHost:        localHost,
		ClientState:      NewAtomicClientState(Unconfirmed),
		NextServer:       &NextServer{},
		ConfirmedClients: NewConfirmedClients(),
	}
}

// LocalHost returns this node's own host identity.
func (m *Machine) LocalHost() registry.Host {
	return m.localHost
}

// BeginClientConnection records a fresh outgoing connection to server,
// as happens on Connect success (spec.md §4.5.3 "init").
func (m *Machine) BeginClientConnection(server registry.Host) {
	m.mu.Lock()
	m.serverHost = server
	m.connectedAsClient = true
	m.mu.Unlock()
	m.ClientState.Reset(Unconfirmed)
}

// BeginDirectClientConnection records a fresh outgoing connection made
// with direct=true (a handoff target), bypassing negotiation.
func (m *Machine) BeginDirectClientConnection(server registry.Host) {
	m.mu.Lock()
	m.serverHost = server
	m.connectedAsClient = true
	m.mu.Unlock()
	m.ClientState.Reset(Confirmed)
}

// ServerHost returns the host this node is currently a client of, and
// whether it is connected as a client at all.
func (m *Machine) ServerHost() (registry.Host, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.serverHost, m.connectedAsClient
}

// Disconnect tears down the outgoing connection, returning this node
// to disconnected (pending a fresh BeginClientConnection).
func (m *Machine) Disconnect() {
	m.mu.Lock()
	m.serverHost = registry.Host{}
	m.connectedAsClient = false
	m.mu.Unlock()
	m.ClientState.Reset(Unconfirmed)
}

// IsConnectedAsClient reports the protocol-level client status of
// spec.md §4.5: a live outgoing connection whose handshake completed.
func (m *Machine) IsConnectedAsClient() bool {
	m.mu.Lock()
	connected := m.connectedAsClient
	m.mu.Unlock()
	return connected && m.ClientState.Load() == Connected
}

// IsConnectedAsServer reports whether at least one client has
// confirmed (spec.md §9, open question 3 — distinct from whether the
// listener is merely running).
func (m *Machine) IsConnectedAsServer() bool {
	return m.ConfirmedClients.IsConnectedAsServer()
}

// IsDisconnected reports neither connected-as-client nor
// connected-as-server.
func (m *Machine) IsDisconnected() bool {
	return !m.IsConnectedAsClient() && !m.IsConnectedAsServer()
}

// HandleNegotiate evaluates an inbound Negotiate from a candidate
// trying to connect to us as a client. confirm mirrors the wire
// Confirm value this node should reply with; if confirm is false it
// also records the candidate as NextServer, and the caller is
// responsible for driving this node's own eventual handoff.
func (m *Machine) HandleNegotiate(remoteHost string, remotePort uint16, remoteConfirmedCount int32) (confirm bool) {
	local := int32(m.ConfirmedClients.Size())
	accepted := Confirm(local, remoteConfirmedCount, m.localHost.Name, remoteHost)
	if !accepted {
		m.NextServer.Set(registry.Host{Name: remoteHost, Port: remotePort})
	}
	return accepted
}

// HandleConfirmFromServer applies the client-side transition on
// receipt of the server's admission decision.
func (m *Machine) HandleConfirmFromServer(accepted bool) {
	if accepted {
		m.ClientState.Transition(Confirmed)
	} else {
		m.ClientState.Transition(Failed)
	}
}

// HandleSwitch records the handoff target announced by our current
// coordinator.
func (m *Machine) HandleSwitch(host registry.Host) {
	m.NextServer.Set(host)
}

// ClientConnectionConfirmed runs the handoff sequence of spec.md
// §4.5.3/§4.5.4: acknowledge the new coordinator, redirect our own
// followers to it, drain briefly, then step down as server.
func (m *Machine) ClientConnectionConfirmed(deps HandoffDeps) error {
	if err := deps.SendConfirmToServer(); err != nil {
		return err
	}

	newCoordinator, _ := m.ServerHost()
	if err := deps.BroadcastSwitch(newCoordinator); err != nil {
		return err
	}

	m.ClientState.Transition(Connected)

	deps.Sleep(500 * time.Millisecond)
	deps.StopAdvertising()
	deps.StopListening()
	m.ConfirmedClients.Clear()
	return nil
}
