// Package registry implements the peer registry: an ordered, source-
// tagged set of known peers with linger-based staleness pruning and
// cross-peer gossip merging.
package registry

// Host identifies a peer by DNS-style hostname and port. An empty Name
// denotes "no host".
type Host struct {
	Name string
	Port uint16
}

// Empty reports whether this Host denotes "no host".
func (h Host) Empty() bool {
	return h.Name == ""
}
