package election

import (
	"fmt"

	"meshpeer/internal/codec"
	"meshpeer/internal/registry"
)

// Sub-tags of the connection-control vocabulary (spec.md §4.5.1),
// exchanged as the second item of every "~" message.
const (
	SubtagNegotiate = "Negotiate"
	SubtagConfirm   = "Confirm"
	SubtagSwitch    = "Switch"
	SubtagPing      = "Ping"
	SubtagPeers     = "Peers"
)

// ErrUnknownSubtag names the error kind for a "~" message whose second
// item does not match any known sub-tag (spec.md §7,
// ProtocolSubtagMismatch). DispatchSubtag does not return it: it hands
// back whatever string it read, and the dispatchers log and drop an
// unknown sub-tag in their default case.
var ErrUnknownSubtag = fmt.Errorf("election: unknown control sub-tag")

// NegotiateMsg is sent client -> server to request admission.
type NegotiateMsg struct {
	ClientHost           string
	ClientPort           uint16
	ClientConfirmedCount int32
}

// EncodeNegotiate builds the wire bytes for a Negotiate message.
func EncodeNegotiate(m NegotiateMsg) []byte {
	c := codec.NewChunk()
	_ = c.AppendAll(codec.TagControl, SubtagNegotiate, m.ClientHost, m.ClientPort, m.ClientConfirmedCount)
	return c.Bytes()
}

// DecodeNegotiate reads a Negotiate payload after the control+sub-tag
// have already been consumed from s.
func DecodeNegotiate(s *codec.Stream) (NegotiateMsg, error) {
	host, err := s.ReadString()
	if err != nil {
		return NegotiateMsg{}, err
	}
	var port uint16
	if err := s.ReadValue(&port); err != nil {
		return NegotiateMsg{}, err
	}
	var count int32
	if err := s.ReadValue(&count); err != nil {
		return NegotiateMsg{}, err
	}
	return NegotiateMsg{ClientHost: host, ClientPort: port, ClientConfirmedCount: count}, nil
}

// EncodeConfirmFromServer builds the server -> client Confirm(1|0)
// response. accepted=true encodes confirm=1.
func EncodeConfirmFromServer(accepted bool) []byte {
	confirm := int32(0)
	if accepted {
		confirm = 1
	}
	c := codec.NewChunk()
	_ = c.AppendAll(codec.TagControl, SubtagConfirm, confirm)
	return c.Bytes()
}

// DecodeConfirmFromServer reads the confirm flag after the control+
// sub-tag have been consumed from s.
func DecodeConfirmFromServer(s *codec.Stream) (accepted bool, err error) {
	var confirm int32
	if err := s.ReadValue(&confirm); err != nil {
		return false, err
	}
	return confirm != 0, nil
}

// EncodeConfirmFromClient builds the client -> server acknowledgment
// that carries no payload.
func EncodeConfirmFromClient() []byte {
	c := codec.NewChunk()
	_ = c.AppendAll(codec.TagControl, SubtagConfirm)
	return c.Bytes()
}

// SwitchMsg instructs a follower to become a client of a different
// host (handoff).
type SwitchMsg struct {
	Host registry.Host
}

// EncodeSwitch builds the server -> client Switch message.
func EncodeSwitch(host registry.Host) []byte {
	c := codec.NewChunk()
	_ = c.AppendAll(codec.TagControl, SubtagSwitch, host.Name, host.Port)
	return c.Bytes()
}

// DecodeSwitch reads a Switch payload after the control+sub-tag have
// been consumed from s.
func DecodeSwitch(s *codec.Stream) (SwitchMsg, error) {
	name, err := s.ReadString()
	if err != nil {
		return SwitchMsg{}, err
	}
	var port uint16
	if err := s.ReadValue(&port); err != nil {
		return SwitchMsg{}, err
	}
	return SwitchMsg{Host: registry.Host{Name: name, Port: port}}, nil
}

// EncodePingFromServer builds the server -> client liveness probe,
// which carries no payload.
func EncodePingFromServer() []byte {
	c := codec.NewChunk()
	_ = c.AppendAll(codec.TagControl, SubtagPing)
	return c.Bytes()
}

// PingPongMsg is the client -> server pong, asserting the client's
// identity so the server can register it as a Client-sourced peer.
type PingPongMsg struct {
	ClientHost string
	ClientPort uint16
}

// EncodePingPong builds the client -> server pong response.
func EncodePingPong(m PingPongMsg) []byte {
	c := codec.NewChunk()
	_ = c.AppendAll(codec.TagControl, SubtagPing, m.ClientHost, m.ClientPort)
	return c.Bytes()
}

// DecodePingPong reads a pong payload after the control+sub-tag have
// been consumed from s.
func DecodePingPong(s *codec.Stream) (PingPongMsg, error) {
	host, err := s.ReadString()
	if err != nil {
		return PingPongMsg{}, err
	}
	var port uint16
	if err := s.ReadValue(&port); err != nil {
		return PingPongMsg{}, err
	}
	return PingPongMsg{ClientHost: host, ClientPort: port}, nil
}

// PeerEntry is one gossiped peer within a Peers message.
type PeerEntry struct {
	Name string
	Port uint16
	Time uint32
}

// EncodePeers builds the server -> client peer-list gossip message.
func EncodePeers(entries []PeerEntry) []byte {
	c := codec.NewChunk()
	_ = c.AppendAll(codec.TagControl, SubtagPeers, int32(len(entries)))
	for _, e := range entries {
		_ = c.AppendAll(e.Name, e.Port, e.Time)
	}
	return c.Bytes()
}

// DecodePeers reads a Peers payload after the control+sub-tag have
// been consumed from s.
func DecodePeers(s *codec.Stream) ([]PeerEntry, error) {
	var n int32
	if err := s.ReadValue(&n); err != nil {
		return nil, err
	}
	entries := make([]PeerEntry, 0, n)
	for i := int32(0); i < n; i++ {
		name, err := s.ReadString()
		if err != nil {
			return nil, err
		}
		var port uint16
		if err := s.ReadValue(&port); err != nil {
			return nil, err
		}
		var t uint32
		if err := s.ReadValue(&t); err != nil {
			return nil, err
		}
		entries = append(entries, PeerEntry{Name: name, Port: port, Time: t})
	}
	return entries, nil
}

// DispatchSubtag reads the next string item as a control sub-tag. The
// caller has already consumed the "~" top-level tag.
func DispatchSubtag(s *codec.Stream) (string, error) {
	return s.ReadString()
}
