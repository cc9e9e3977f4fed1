package election

// Confirm evaluates the negotiation predicate of spec.md §4.5.2: given
// this node's confirmed-follower count L and a candidate's claimed
// count R, decide whether this node remains coordinator (true) or
// concedes (false). On an exact tie, the strict lexicographic
// comparison of hostnames gives a total, antisymmetric order so
// exactly one side prefers itself.
func Confirm(localConfirmedCount, remoteConfirmedCount int32, localHost, remoteHost string) bool {
	if remoteConfirmedCount != localConfirmedCount {
		return remoteConfirmedCount < localConfirmedCount
	}
	return localHost < remoteHost
}
