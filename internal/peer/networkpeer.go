// Package peer assembles the peer registry (C4) and election state
// machine (C5) into the NetworkPeer aggregate the discovery driver
// (C6) drives, plus the server/client transport handles it owns. This
// is the "NetworkPeer" lifecycle object of spec.md §3: created with a
// service-type registration name and preferred port, destroyed by
// stopping advertisement then the listener, in that order.
package peer

import (
	"context"
	"time"

	"meshpeer/internal/config"
	"meshpeer/internal/election"
	"meshpeer/internal/registry"
	"meshpeer/internal/syncutil"
	"meshpeer/internal/transport"
)

const wirePath = "/peerclock"

// NetworkPeer owns one node's registry, election state, and live
// transport handles. All mutable shared state is guarded by a single
// upgradeable lock (spec.md §4.3/§5).
type NetworkPeer struct {
	Config   config.PeerConfig
	Registry *registry.PeerRegistry
	Election *election.Machine

	serverTransport transport.ServerTransport
	clientTransport transport.ClientTransport
	Advertiser      transport.Advertiser

	lock *syncutil.RWLock

	serverHandle     transport.ServerHandle
	clientHandle     transport.ClientHandle
	advertising      bool
	advertiseStarted time.Time
	listening        bool
}

// New returns a NetworkPeer for localHost, with no listener running
// and no client connection, ready for the discovery driver to tick.
func New(cfg config.PeerConfig, localHost registry.Host, st transport.ServerTransport, ct transport.ClientTransport, adv transport.Advertiser) *NetworkPeer {
	return &NetworkPeer{
		Config:          cfg,
		Registry:        registry.NewPeerRegistry(),
		Election:        election.NewMachine(localHost),
		serverTransport: st,
		clientTransport: ct,
		Advertiser:      adv,
		lock:            &syncutil.RWLock{},
	}
}

// LocalHost returns this node's own host identity.
func (p *NetworkPeer) LocalHost() registry.Host {
	return p.Election.LocalHost()
}

// IsListening reports whether the server transport is currently
// accepting connections. Distinct from Election.IsConnectedAsServer,
// which additionally requires a confirmed follower (spec.md §9, open
// question 3).
func (p *NetworkPeer) IsListening() bool {
	g := p.lock.Acquire()
	defer g.Destroy()
	return p.listening
}

// IsAdvertising reports whether the advertisement driver is running.
func (p *NetworkPeer) IsAdvertising() bool {
	g := p.lock.Acquire()
	defer g.Destroy()
	return p.advertising
}

// AdvertisingDuration reports how long advertising has been running.
func (p *NetworkPeer) AdvertisingDuration() time.Duration {
	g := p.lock.Acquire()
	defer g.Destroy()
	if !p.advertising {
		return 0
	}
	return time.Since(p.advertiseStarted)
}

// StartListening starts the server transport if it is not already
// running. The shared-state lock is taken exclusive for the mutation
// of serverHandle, per spec.md §5's serialization requirement.
func (p *NetworkPeer) StartListening(cb transport.ServerCallbacks) error {
	g := p.lock.AcquireExclusive()
	defer g.Destroy()
	if p.listening {
		return nil
	}
	handle, err := p.serverTransport.Listen(uint16(p.Config.Port), wirePath, cb)
	if err != nil {
		return err
	}
	p.serverHandle = handle
	p.listening = true
	return nil
}

// StopListening closes and zeroes the server handle.
func (p *NetworkPeer) StopListening() error {
	g := p.lock.AcquireExclusive()
	defer g.Destroy()
	if !p.listening {
		return nil
	}
	err := p.serverHandle.Close()
	p.serverHandle = nil
	p.listening = false
	return err
}

// StartAdvertising starts the advertisement driver if it is not
// already running and arms the 15s restart timer (spec.md §4.6).
func (p *NetworkPeer) StartAdvertising() error {
	g := p.lock.AcquireExclusive()
	defer g.Destroy()
	if p.advertising {
		return nil
	}
	if err := p.Advertiser.Start(); err != nil {
		return err
	}
	p.advertising = true
	p.advertiseStarted = time.Now()
	return nil
}

// StopAdvertising stops the advertisement driver.
func (p *NetworkPeer) StopAdvertising() error {
	g := p.lock.AcquireExclusive()
	defer g.Destroy()
	if !p.advertising {
		return nil
	}
	err := p.Advertiser.Stop()
	p.advertising = false
	return err
}

// Connect opens an outgoing connection to host:port, returning the
// live handle. It is synchronous-with-timeout and never blocks the
// caller beyond that (spec.md §5).
func (p *NetworkPeer) Connect(host string, port uint16, cb transport.ClientCallbacks) (transport.ClientHandle, error) {
	timeout := transport.DefaultConnectTimeout
	if p.Config.ConnectTimeoutMS > 0 {
		timeout = time.Duration(p.Config.ConnectTimeoutMS) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	handle, err := p.clientTransport.Connect(ctx, host, port, wirePath, cb)
	if err != nil {
		return nil, err
	}

	g := p.lock.AcquireExclusive()
	p.clientHandle = handle
	g.Destroy()
	return handle, nil
}

// DisconnectClient closes and zeroes the outgoing connection handle.
func (p *NetworkPeer) DisconnectClient() error {
	g := p.lock.AcquireExclusive()
	defer g.Destroy()
	if p.clientHandle == nil {
		return nil
	}
	err := p.clientHandle.Close()
	p.clientHandle = nil
	return err
}

// SendToServer sends data over the current outgoing connection, a
// no-op if none is open.
func (p *NetworkPeer) SendToServer(data []byte) error {
	g := p.lock.Acquire()
	handle := p.clientHandle
	g.Destroy()
	if handle == nil {
		return nil
	}
	return handle.Send(data)
}

// BroadcastToFollowers sends data to every connection open on the
// server transport, confirmed or not, a no-op if the listener is not
// running.
func (p *NetworkPeer) BroadcastToFollowers(data []byte) error {
	g := p.lock.Acquire()
	handle := p.serverHandle
	g.Destroy()
	if handle == nil {
		return nil
	}
	return handle.Broadcast(data)
}

// SendToFollower sends data to one specific connection on the server
// transport, confirmed or not (e.g. a Confirm reply to a candidate).
func (p *NetworkPeer) SendToFollower(id transport.ConnID, data []byte) error {
	g := p.lock.Acquire()
	handle := p.serverHandle
	g.Destroy()
	if handle == nil {
		return nil
	}
	return handle.Send(id, data)
}

// Close tears the NetworkPeer down: stop advertisement, then the
// listener, in that order (spec.md §3 Lifecycles).
func (p *NetworkPeer) Close() error {
	if err := p.StopAdvertising(); err != nil {
		return err
	}
	return p.StopListening()
}
