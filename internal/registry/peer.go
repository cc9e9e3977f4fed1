package registry

// PeerSource tags how a Peer entry was learned.
type PeerSource int

const (
	// Unresolved is a browse result whose address has not yet been
	// resolved.
	Unresolved PeerSource = iota
	// Discovered is a browse result with a resolved host.
	Discovered
	// Client is a peer that connected to us as a client (ping).
	Client
	// Server is a peer we are currently connected to as a client.
	Server
	// Remote is a peer learned transitively via another peer's gossip.
	Remote
)

// String renders the source tag for logging.
func (s PeerSource) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Discovered:
		return "discovered"
	case Client:
		return "client"
	case Server:
		return "server"
	case Remote:
		return "remote"
	default:
		return "unknown"
	}
}

// Peer is one entry in the registry. Time is a linger counter in
// milliseconds since the last refresh; it is pruned when it reaches a
// configured maximum, minimized (not overwritten) on update so the
// freshest observation always wins, and incremented every tick by the
// tick interval.
type Peer struct {
	Host   Host
	Source PeerSource
	Time   uint32
}
