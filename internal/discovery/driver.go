// Package discovery implements the periodic cooperative tick (spec
// component C6) that drives a peer.NetworkPeer: starting/stopping the
// listener and advertisement, attempting outgoing connections, and
// feeding the election state machine and peer registry.
package discovery

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"meshpeer/internal/election"
	"meshpeer/internal/observability"
	"meshpeer/internal/peer"
	"meshpeer/internal/registry"
	"meshpeer/internal/timesync"
)

// clientStateLabels enumerates every ClientState for the one-hot
// election_client_state gauge.
var clientStateLabels = []string{
	election.Unconfirmed.String(),
	election.Confirmed.String(),
	election.Failed.String(),
	election.Connected.String(),
}

// advertiseRestartAfter forces a periodic advertisement refresh.
const advertiseRestartAfter = 15 * time.Second

// Driver owns the mutable state a single tick needs beyond what
// peer.NetworkPeer already tracks: nothing, by design — Driver is
// stateless between ticks so its Tick method can be called from any
// timer without synchronization of its own.
type Driver struct {
	Peer  *peer.NetworkPeer
	Timer *timesync.PrecisionTimer
	Log   zerolog.Logger
}

// NewDriver returns a Driver for p, tagging its log lines with the
// "discovery" component.
func NewDriver(p *peer.NetworkPeer, timer *timesync.PrecisionTimer, log zerolog.Logger) *Driver {
	return &Driver{Peer: p, Timer: timer, Log: log.With().Str("component", "discovery").Logger()}
}

// Tick runs exactly one of the labelled branches of spec.md §4.6, then
// the common prune epilogue (except where a branch already pruned and
// returned).
func (d *Driver) Tick() {
	defer d.publishMetrics()

	m := d.Peer.Election
	interval := uint32(d.Peer.Config.DiscoverInterval().Milliseconds())
	maxTime := uint32(d.Peer.Config.MaxPeerTime().Milliseconds())

	serverHost, hasConn := m.ServerHost()
	state := m.ClientState.Load()

	if hasConn && state != election.Failed {
		d.runConnectedAsClient(state, serverHost)
		d.Peer.Registry.Prune(maxTime, interval)
		return
	}

	if state == election.Failed {
		m.Disconnect()
		_ = d.Peer.DisconnectClient()
		// fall through: a Failed connection may have left next_server set
	}

	if next, ok := m.NextServer.Get(); ok && !d.isSelf(next.Name) {
		d.tryConnect(next, true)
		d.Peer.Registry.Prune(maxTime, interval)
		return
	}

	d.runDefault()
	d.Peer.Registry.Prune(maxTime, interval)
}

// publishMetrics refreshes the gauges observability exposes over
// /metrics; cheap enough to run on every tick rather than only when
// the admin surface is polled.
func (d *Driver) publishMetrics() {
	m := d.Peer.Election
	observability.SetRegistrySize(d.Peer.Registry.Size())
	observability.SetConfirmedClients(m.ConfirmedClients.Size())
	observability.SetElectionState(m.ClientState.Load().String(), clientStateLabels)
}

// runConnectedAsClient handles branch 1: a live, non-Failed outgoing
// connection.
func (d *Driver) runConnectedAsClient(state election.ClientState, serverHost registry.Host) {
	m := d.Peer.Election

	if state == election.Connected && d.Timer != nil {
		if wire := d.Timer.Sync(true); wire != nil {
			if err := d.Peer.SendToServer(wire); err != nil {
				d.Log.Debug().Err(err).Msg("send Sync failed")
			}
		}
	}

	if state == election.Confirmed {
		deps := election.HandoffDeps{
			SendConfirmToServer: func() error {
				return d.Peer.SendToServer(election.EncodeConfirmFromClient())
			},
			BroadcastSwitch: func(newCoordinator registry.Host) error {
				return d.Peer.BroadcastToFollowers(election.EncodeSwitch(newCoordinator))
			},
			StopAdvertising: func() {
				if err := d.Peer.StopAdvertising(); err != nil {
					d.Log.Warn().Err(err).Msg("stop advertising during handoff")
				}
			},
			StopListening: func() {
				if err := d.Peer.StopListening(); err != nil {
					d.Log.Warn().Err(err).Msg("stop listening during handoff")
				}
			},
			Sleep: time.Sleep,
		}
		if err := m.ClientConnectionConfirmed(deps); err != nil {
			d.Log.Warn().Err(err).Msg("handoff sequence failed")
		}
	}

	d.Peer.Registry.Add(registry.Peer{Host: serverHost, Source: registry.Server, Time: 0})
}

// runDefault handles branch 4: the steady-state discovery logic.
func (d *Driver) runDefault() {
	p := d.Peer
	m := p.Election

	if !p.IsListening() {
		cb := ServerCallbacks(d)
		if err := p.StartListening(cb); err != nil {
			d.Log.Warn().Err(err).Msg("start listening failed")
		}
	}
	if !p.IsAdvertising() {
		if err := p.StartAdvertising(); err != nil {
			d.Log.Warn().Err(err).Msg("start advertising failed")
		}
	}

	d.refreshBrowseResults()
	d.attemptOneConnection()

	if p.IsAdvertising() && p.AdvertisingDuration() > advertiseRestartAfter {
		if err := p.StopAdvertising(); err != nil {
			d.Log.Warn().Err(err).Msg("stop advertising for refresh failed")
		}
	}

	if m.IsConnectedAsServer() {
		d.sendPeerList()
		if err := p.BroadcastToFollowers(election.EncodePingFromServer()); err != nil {
			d.Log.Warn().Err(err).Msg("broadcast ping failed")
		}
	}
}

// refreshBrowseResults pulls fresh mDNS browse results into the
// registry, reconstituting the dotted hostname for unresolved entries
// whose raw name ends in "-local" (spec.md §4.6).
func (d *Driver) refreshBrowseResults() {
	results, err := d.Peer.Advertiser.Browse()
	if err != nil {
		d.Log.Debug().Err(err).Msg("browse failed")
		return
	}

	for _, r := range results {
		if r.Host != "" {
			d.Peer.Registry.Add(registry.Peer{
				Host:   registry.Host{Name: r.Name, Port: r.Port},
				Source: registry.Discovered,
				Time:   0,
			})
			continue
		}
		name := r.Name
		if strings.HasSuffix(name, "-local") {
			name = strings.TrimSuffix(name, "-local") + ".local."
		}
		d.Peer.Registry.Add(registry.Peer{
			Host:   registry.Host{Name: name},
			Source: registry.Unresolved,
			Time:   0,
		})
	}
}

// attemptOneConnection tries the first eligible peer in registry
// order, resolving it instead if the attempt fails.
func (d *Driver) attemptOneConnection() {
	for _, pe := range d.Peer.Registry.Get() {
		if pe.Source == registry.Client || pe.Source == registry.Unresolved {
			continue
		}
		if d.isSelf(pe.Host.Name) {
			continue
		}

		if d.tryConnect(pe.Host, false) {
			return
		}
		if err := d.Peer.Advertiser.Resolve(pe.Host.Name); err != nil {
			d.Log.Debug().Err(err).Str("peer", pe.Host.Name).Msg("resolve failed")
		}
		return
	}
}

// tryConnect implements spec.md §4.6.2. direct bypasses negotiation
// for an authoritative handoff target.
func (d *Driver) tryConnect(host registry.Host, direct bool) bool {
	p := d.Peer
	m := p.Election

	if _, err := p.Connect(host.Name, host.Port, ClientCallbacks(d)); err != nil {
		d.Log.Debug().Err(err).Str("peer", host.Name).Msg("connect failed")
		return false
	}

	if direct {
		m.BeginDirectClientConnection(host)
		deps := election.HandoffDeps{
			SendConfirmToServer: func() error {
				return p.SendToServer(election.EncodeConfirmFromClient())
			},
			BroadcastSwitch: func(newCoordinator registry.Host) error {
				return p.BroadcastToFollowers(election.EncodeSwitch(newCoordinator))
			},
			StopAdvertising: func() {
				if err := p.StopAdvertising(); err != nil {
					d.Log.Warn().Err(err).Msg("stop advertising during direct handoff")
				}
			},
			StopListening: func() {
				if err := p.StopListening(); err != nil {
					d.Log.Warn().Err(err).Msg("stop listening during direct handoff")
				}
			},
			Sleep: time.Sleep,
		}
		if err := m.ClientConnectionConfirmed(deps); err != nil {
			d.Log.Warn().Err(err).Msg("immediate handoff completion failed")
		}
		return true
	}

	m.BeginClientConnection(host)
	local := p.LocalHost()
	msg := election.NegotiateMsg{
		ClientHost:           local.Name,
		ClientPort:           local.Port,
		ClientConfirmedCount: int32(m.ConfirmedClients.Size()),
	}
	if err := p.SendToServer(election.EncodeNegotiate(msg)); err != nil {
		d.Log.Warn().Err(err).Msg("send negotiate failed")
	}
	return true
}

// sendPeerList implements spec.md §4.6.1.
func (d *Driver) sendPeerList() {
	entries := make([]election.PeerEntry, 0)
	for _, pe := range d.Peer.Registry.Get() {
		if pe.Source == registry.Unresolved {
			continue
		}
		entries = append(entries, election.PeerEntry{Name: pe.Host.Name, Port: pe.Host.Port, Time: pe.Time})
	}
	if err := d.Peer.BroadcastToFollowers(election.EncodePeers(entries)); err != nil {
		d.Log.Warn().Err(err).Msg("broadcast peer list failed")
	}
}

// isSelf implements spec.md §4.6.3.
func (d *Driver) isSelf(name string) bool {
	return name == d.Peer.LocalHost().Name
}
