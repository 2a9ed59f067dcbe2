package registry

import "fmt"

// ZoneState is the serializable form of one occupied zone slot.
type ZoneState struct {
	Name      string `cbor:"name"`
	NodeSlots []int  `cbor:"node_slots"`
}

// NodeState is the serializable form of one occupied node slot.
type NodeState struct {
	ID       string            `cbor:"id"`
	ZoneSlot int               `cbor:"zone_slot"`
	Weight   float64           `cbor:"weight"`
	Meta     map[string]string `cbor:"meta,omitempty"`
}

// State is the registry's complete internal state, suitable for an
// external persistence collaborator to serialize verbatim. The zone and
// node tables are dense: index = slot, nil = free slot.
type State struct {
	RingPower  int          `cbor:"ring_power"`
	Replicas   int          `cbor:"replicas"`
	ZoneCursor int          `cbor:"zone_cursor"`
	NodeCursor int          `cbor:"node_cursor"`
	Zones      []*ZoneState `cbor:"zones"`
	Nodes      []*NodeState `cbor:"nodes"`
}

// State captures a deep copy of the registry's internal state.
func (r *Registry) State() *State {
	s := &State{
		RingPower:  r.ringPower,
		Replicas:   r.replicas,
		ZoneCursor: r.zoneCursor,
		NodeCursor: r.nodeCursor,
		Zones:      make([]*ZoneState, len(r.zones)),
		Nodes:      make([]*NodeState, len(r.nodes)),
	}
	for i, z := range r.zones {
		if z == nil {
			continue
		}
		s.Zones[i] = &ZoneState{
			Name:      z.name,
			NodeSlots: append([]int(nil), z.nodeSlots...),
		}
	}
	for i, n := range r.nodes {
		if n == nil {
			continue
		}
		s.Nodes[i] = &NodeState{
			ID:       n.id,
			ZoneSlot: n.zoneSlot,
			Weight:   n.weight,
			Meta:     copyMeta(n.meta),
		}
	}
	return s
}

// FromState rebuilds a registry from previously captured state. The
// index maps are re-derived and the cross-invariants between the zone
// and node tables are verified; any violation means the persisted blob
// is corrupt and the restore fails.
func FromState(s *State) (*Registry, error) {
	r, err := New(s.RingPower, s.Replicas)
	if err != nil {
		return nil, err
	}
	if len(s.Zones) != r.maxZones {
		return nil, fmt.Errorf("registry: state has %d zone slots, ring power %d requires %d",
			len(s.Zones), s.RingPower, r.maxZones)
	}
	if len(s.Nodes) != r.maxNodes {
		return nil, fmt.Errorf("registry: state has %d node slots, ring power %d requires %d",
			len(s.Nodes), s.RingPower, r.maxNodes)
	}
	if s.ZoneCursor < 0 || s.ZoneCursor >= r.maxZones || s.NodeCursor < 0 || s.NodeCursor >= r.maxNodes {
		return nil, fmt.Errorf("registry: state cursors out of range (zone %d, node %d)", s.ZoneCursor, s.NodeCursor)
	}
	r.zoneCursor = s.ZoneCursor
	r.nodeCursor = s.NodeCursor

	for slot, z := range s.Zones {
		if z == nil {
			continue
		}
		if _, dup := r.zonesByName[z.Name]; dup {
			return nil, fmt.Errorf("registry: state repeats zone name %q", z.Name)
		}
		r.zones[slot] = &zoneRecord{name: z.Name}
		r.zonesByName[z.Name] = slot
	}
	for slot, n := range s.Nodes {
		if n == nil {
			continue
		}
		if _, dup := r.nodesByID[n.ID]; dup {
			return nil, fmt.Errorf("registry: state repeats node id %q", n.ID)
		}
		if n.ZoneSlot < 0 || n.ZoneSlot >= r.maxZones || r.zones[n.ZoneSlot] == nil {
			return nil, fmt.Errorf("registry: node %q references free zone slot %d", n.ID, n.ZoneSlot)
		}
		if err := checkWeight(n.Weight); err != nil {
			return nil, fmt.Errorf("registry: node %q: %w", n.ID, err)
		}
		r.nodes[slot] = &nodeRecord{
			id:       n.ID,
			zoneSlot: n.ZoneSlot,
			weight:   n.Weight,
			slot:     slot,
			meta:     copyMeta(n.Meta),
		}
		r.nodesByID[n.ID] = slot
	}

	// The owned-slot lists must agree with the node table exactly.
	claimed := make(map[int]bool)
	for slot, z := range s.Zones {
		if z == nil {
			continue
		}
		for _, ns := range z.NodeSlots {
			if ns < 0 || ns >= r.maxNodes || r.nodes[ns] == nil {
				return nil, fmt.Errorf("registry: zone %q lists free node slot %d", z.Name, ns)
			}
			if r.nodes[ns].zoneSlot != slot {
				return nil, fmt.Errorf("registry: zone %q lists node slot %d owned by another zone", z.Name, ns)
			}
			if claimed[ns] {
				return nil, fmt.Errorf("registry: node slot %d listed twice", ns)
			}
			claimed[ns] = true
		}
		r.zones[slot].nodeSlots = append([]int(nil), z.NodeSlots...)
	}
	for slot, n := range r.nodes {
		if n != nil && !claimed[slot] {
			return nil, fmt.Errorf("registry: node %q not listed by its zone", n.id)
		}
	}
	return r, nil
}
