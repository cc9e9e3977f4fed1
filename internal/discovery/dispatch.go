package discovery

import (
	"meshpeer/internal/codec"
	"meshpeer/internal/election"
	"meshpeer/internal/observability"
	"meshpeer/internal/registry"
	"meshpeer/internal/timesync"
	"meshpeer/internal/transport"
)

// ServerCallbacks builds the transport.ServerCallbacks that route
// inbound bytes on the listener side through the control/application
// tag dispatcher (spec.md §4.1/§7).
func ServerCallbacks(d *Driver) transport.ServerCallbacks {
	return transport.ServerCallbacks{
		OnConnect: func(id transport.ConnID) {
			d.Log.Debug().Str("conn", string(id)).Msg("server: connect")
		},
		OnReady: func(id transport.ConnID) {
			d.Log.Debug().Str("conn", string(id)).Msg("server: ready")
		},
		OnData: func(id transport.ConnID, data []byte) {
			d.dispatchAsServer(id, data)
		},
		OnClose: func(id transport.ConnID) {
			d.Peer.Election.ConfirmedClients.Remove(id)
		},
	}
}

// ClientCallbacks builds the transport.ClientCallbacks that route
// inbound bytes on the outgoing connection through the same dispatcher.
func ClientCallbacks(d *Driver) transport.ClientCallbacks {
	return transport.ClientCallbacks{
		OnData: func(data []byte) {
			d.dispatchAsClient(data)
		},
		OnClose: func() {
			d.Peer.Election.Disconnect()
		},
	}
}

// dispatchAsServer implements the §7 UnknownFrame / ProtocolSubtagMismatch
// recovery rules: unrecognized frames are logged and dropped, never
// treated as a protocol error that tears down the connection.
func (d *Driver) dispatchAsServer(id transport.ConnID, data []byte) {
	s := codec.NewStream(data)

	switch {
	case s.IsNextTag(codec.TagControl):
		d.dispatchControlAsServer(id, s)
	case s.IsNextTag(codec.TagApplication):
		d.dispatchApplicationAsServer(id, s)
	default:
		d.Log.Debug().Msg("unknown frame tag from client, dropping")
	}
}

func (d *Driver) dispatchControlAsServer(id transport.ConnID, s *codec.Stream) {
	m := d.Peer.Election

	subtag, err := election.DispatchSubtag(s)
	if err != nil {
		d.Log.Debug().Err(err).Msg("short read on control sub-tag, dropping")
		return
	}

	switch subtag {
	case election.SubtagNegotiate:
		msg, err := election.DecodeNegotiate(s)
		if err != nil {
			d.Log.Debug().Err(err).Msg("bad Negotiate payload, dropping")
			return
		}
		accepted := m.HandleNegotiate(msg.ClientHost, msg.ClientPort, msg.ClientConfirmedCount)
		if err := d.Peer.SendToFollower(id, election.EncodeConfirmFromServer(accepted)); err != nil {
			d.Log.Warn().Err(err).Msg("send Confirm to candidate failed")
		}

	case election.SubtagConfirm:
		// No payload: the client's ack that it is now a follower. Only a
		// client that was itself told confirm=1 ever sends this.
		m.ConfirmedClients.Add(id)

	case election.SubtagPing:
		pong, err := election.DecodePingPong(s)
		if err != nil {
			d.Log.Debug().Err(err).Msg("bad Ping pong payload, dropping")
			return
		}
		d.Peer.Registry.Add(registry.Peer{
			Host:   registry.Host{Name: pong.ClientHost, Port: pong.ClientPort},
			Source: registry.Client,
			Time:   0,
		})

	default:
		d.Log.Debug().Str("subtag", subtag).Msg("unexpected control sub-tag at server, dropping")
	}
}

func (d *Driver) dispatchApplicationAsServer(id transport.ConnID, s *codec.Stream) {
	subtag, err := s.ReadString()
	if err != nil {
		d.Log.Debug().Err(err).Msg("short read on application sub-tag, dropping")
		return
	}

	if subtag == timesync.SubtagSync && d.Timer != nil {
		t1, err := timesync.DecodeSync(s)
		if err != nil {
			d.Log.Debug().Err(err).Msg("bad Sync payload, dropping")
			return
		}
		respond := d.Timer.HandleSync(t1)
		if err := d.Peer.SendToFollower(id, respond); err != nil {
			d.Log.Warn().Err(err).Msg("send Respond failed")
		}
		return
	}

	d.Log.Debug().Str("subtag", subtag).Msg("unhandled application message at server, dropping")
}

func (d *Driver) dispatchAsClient(data []byte) {
	s := codec.NewStream(data)

	switch {
	case s.IsNextTag(codec.TagControl):
		d.dispatchControlAsClient(s)
	case s.IsNextTag(codec.TagApplication):
		d.dispatchApplicationAsClient(s)
	default:
		d.Log.Debug().Msg("unknown frame tag from server, dropping")
	}
}

func (d *Driver) dispatchControlAsClient(s *codec.Stream) {
	m := d.Peer.Election

	subtag, err := election.DispatchSubtag(s)
	if err != nil {
		d.Log.Debug().Err(err).Msg("short read on control sub-tag, dropping")
		return
	}

	switch subtag {
	case election.SubtagConfirm:
		accepted, err := election.DecodeConfirmFromServer(s)
		if err != nil {
			d.Log.Debug().Err(err).Msg("bad Confirm payload, dropping")
			return
		}
		m.HandleConfirmFromServer(accepted)

	case election.SubtagSwitch:
		msg, err := election.DecodeSwitch(s)
		if err != nil {
			d.Log.Debug().Err(err).Msg("bad Switch payload, dropping")
			return
		}
		m.HandleSwitch(msg.Host)

	case election.SubtagPing:
		local := d.Peer.LocalHost()
		pong := election.EncodePingPong(election.PingPongMsg{ClientHost: local.Name, ClientPort: local.Port})
		if err := d.Peer.SendToServer(pong); err != nil {
			d.Log.Warn().Err(err).Msg("send Ping pong failed")
		}

	case election.SubtagPeers:
		entries, err := election.DecodePeers(s)
		if err != nil {
			d.Log.Debug().Err(err).Msg("bad Peers payload, dropping")
			return
		}
		for _, e := range entries {
			d.Peer.Registry.Add(registry.Peer{
				Host:   registry.Host{Name: e.Name, Port: e.Port},
				Source: registry.Remote,
				Time:   e.Time,
			})
		}

	default:
		d.Log.Debug().Str("subtag", subtag).Msg("unexpected control sub-tag at client, dropping")
	}
}

func (d *Driver) dispatchApplicationAsClient(s *codec.Stream) {
	subtag, err := s.ReadString()
	if err != nil {
		d.Log.Debug().Err(err).Msg("short read on application sub-tag, dropping")
		return
	}

	if subtag == timesync.SubtagRespond && d.Timer != nil {
		t1, t2, err := timesync.DecodeRespond(s)
		if err != nil {
			d.Log.Debug().Err(err).Msg("bad Respond payload, dropping")
			return
		}
		applied := d.Timer.HandleRespond(t1, t2)
		observability.ObserveSyncOffset(applied)
		return
	}

	d.Log.Debug().Str("subtag", subtag).Msg("unhandled application message at client, dropping")
}
