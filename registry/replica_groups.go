package registry

// GroupEntry is one weighted node inside a replica group.
type GroupEntry struct {
	Weight   float64
	NodeSlot int
}

// ReplicaGroups partitions the registered nodes into 1+replicas groups,
// one per replica position, drawing each group from a different zone
// wherever the zone count allows. Zones are enumerated in zone slot
// order and nodes within a zone in owned-slot order, so the result is a
// pure function of the registry's operation history:
//
//   - with at least as many zones as groups, zone index z lands in
//     group z mod (1+replicas); zones beyond the group count are folded
//     round-robin into the existing groups, appended after the nodes
//     already there;
//   - with fewer zones than groups, group g reuses zone g mod zoneCount,
//     and the groups past the last distinct zone take its nodes in
//     reverse order so consecutive groups do not start on the same node.
//
// Groups may come back empty when there are no usable nodes.
func (r *Registry) ReplicaGroups(replicas int) [][]GroupEntry {
	groupCount := 1 + replicas
	groups := make([][]GroupEntry, groupCount)

	var zones []*zoneRecord
	for _, z := range r.zones {
		if z != nil {
			zones = append(zones, z)
		}
	}
	if len(zones) == 0 {
		return groups
	}

	if len(zones) >= groupCount {
		for zi, zone := range zones {
			g := zi % groupCount
			groups[g] = append(groups[g], r.zoneEntries(zone)...)
		}
		return groups
	}

	for g := range groups {
		entries := r.zoneEntries(zones[g%len(zones)])
		if g >= len(zones) {
			reverseEntries(entries)
		}
		groups[g] = entries
	}
	return groups
}

func (r *Registry) zoneEntries(zone *zoneRecord) []GroupEntry {
	entries := make([]GroupEntry, 0, len(zone.nodeSlots))
	for _, slot := range zone.nodeSlots {
		entries = append(entries, GroupEntry{Weight: r.nodes[slot].weight, NodeSlot: slot})
	}
	return entries
}

func reverseEntries(entries []GroupEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
