package cascade

// DispatchGroups returns the per-axis thread-group count covering work with groups of the given
// size: ceil(work / group). A zero group size on an axis is treated as one.
//
// Parameters:
//   - work: the number of work items along x, y and z
//   - group: the kernel's thread-group size along x, y and z
//
// Returns:
//   - [3]uint32: the number of thread groups to dispatch
func DispatchGroups(work, group [3]uint32) [3]uint32 {
	var out [3]uint32
	for i := range 3 {
		g := uint64(max(group[i], 1))
		out[i] = uint32((uint64(work[i]) + g - 1) / g)
	}
	return out
}
