package election

import (
	"testing"

	"github.com/stretchr/testify/require"

	"meshpeer/internal/codec"
	"meshpeer/internal/registry"
)

func readControlSubtag(t *testing.T, wire []byte) (*codec.Stream, string) {
	s := codec.NewStream(wire)
	require.True(t, s.IsNextTag(codec.TagControl))
	sub, err := DispatchSubtag(s)
	require.NoError(t, err)
	return s, sub
}

func TestNegotiateRoundTrip(t *testing.T) {
	wire := EncodeNegotiate(NegotiateMsg{ClientHost: "b.local.", ClientPort: 8001, ClientConfirmedCount: 2})
	s, sub := readControlSubtag(t, wire)
	require.Equal(t, SubtagNegotiate, sub)

	got, err := DecodeNegotiate(s)
	require.NoError(t, err)
	require.Equal(t, NegotiateMsg{ClientHost: "b.local.", ClientPort: 8001, ClientConfirmedCount: 2}, got)
}

func TestConfirmFromServerRoundTrip(t *testing.T) {
	for _, accepted := range []bool{true, false} {
		wire := EncodeConfirmFromServer(accepted)
		s, sub := readControlSubtag(t, wire)
		require.Equal(t, SubtagConfirm, sub)

		got, err := DecodeConfirmFromServer(s)
		require.NoError(t, err)
		require.Equal(t, accepted, got)
	}
}

func TestConfirmFromClientHasNoPayload(t *testing.T) {
	wire := EncodeConfirmFromClient()
	s, sub := readControlSubtag(t, wire)
	require.Equal(t, SubtagConfirm, sub)
	require.Empty(t, s.Remaining())
}

func TestSwitchRoundTrip(t *testing.T) {
	wire := EncodeSwitch(registry.Host{Name: "c.local.", Port: 8001})
	s, sub := readControlSubtag(t, wire)
	require.Equal(t, SubtagSwitch, sub)

	got, err := DecodeSwitch(s)
	require.NoError(t, err)
	require.Equal(t, registry.Host{Name: "c.local.", Port: 8001}, got.Host)
}

func TestPingPongRoundTrip(t *testing.T) {
	wire := EncodePingPong(PingPongMsg{ClientHost: "a.local.", ClientPort: 9001})
	s, sub := readControlSubtag(t, wire)
	require.Equal(t, SubtagPing, sub)

	got, err := DecodePingPong(s)
	require.NoError(t, err)
	require.Equal(t, PingPongMsg{ClientHost: "a.local.", ClientPort: 9001}, got)
}

func TestPeersRoundTrip(t *testing.T) {
	entries := []PeerEntry{
		{Name: "a.local.", Port: 8001, Time: 10},
		{Name: "b.local.", Port: 8002, Time: 20},
	}
	wire := EncodePeers(entries)
	s, sub := readControlSubtag(t, wire)
	require.Equal(t, SubtagPeers, sub)

	got, err := DecodePeers(s)
	require.NoError(t, err)
	require.Equal(t, entries, got)
}

func TestPeersRoundTripEmpty(t *testing.T) {
	wire := EncodePeers(nil)
	s, sub := readControlSubtag(t, wire)
	require.Equal(t, SubtagPeers, sub)

	got, err := DecodePeers(s)
	require.NoError(t, err)
	require.Empty(t, got)
}
