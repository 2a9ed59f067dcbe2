package ring

import (
	"fmt"

	"slotring/registry"
)

// State is the ring's complete internal state for the persistence
// boundary. Snapshots are ordered newest first, exactly as held in
// memory.
type State struct {
	RingPower int         `cbor:"ring_power"`
	Replicas  int         `cbor:"replicas"`
	Version   uint64      `cbor:"version"`
	Snapshots [][][]int32 `cbor:"snapshots"`
}

// State captures a deep copy of the ring's snapshots and version.
func (r *Ring) State() *State {
	s := &State{
		RingPower: r.ringPower,
		Replicas:  r.replicas,
		Version:   r.version,
		Snapshots: make([][][]int32, len(r.snapshots)),
	}
	for i, snap := range r.snapshots {
		copied := make([][]int32, len(snap))
		for j, slots := range snap {
			if slots != nil {
				copied[j] = append([]int32(nil), slots...)
			}
		}
		s.Snapshots[i] = copied
	}
	return s
}

// Restore rebuilds a ring over reg from previously captured state. The
// state must match the registry's ring power and replica count, and
// every snapshot must have the expected shape; a mismatch means the
// persisted blob is corrupt and the restore fails.
func Restore(reg *registry.Registry, s *State) (*Ring, error) {
	if s.RingPower != reg.RingPower() || s.Replicas != reg.Replicas() {
		return nil, fmt.Errorf("ring: state was built for ring power %d / %d replicas, registry has %d / %d",
			s.RingPower, s.Replicas, reg.RingPower(), reg.Replicas())
	}
	if len(s.Snapshots) > SnapshotRetention {
		return nil, fmt.Errorf("ring: state holds %d snapshots, at most %d are retained", len(s.Snapshots), SnapshotRetention)
	}

	size := 1 << uint(s.RingPower)
	r := New(reg)
	r.version = s.Version
	r.snapshots = make([]snapshot, len(s.Snapshots))
	for i, stored := range s.Snapshots {
		if len(stored) != 1+s.Replicas {
			return nil, fmt.Errorf("ring: snapshot %d holds %d replica arrays, want %d", i, len(stored), 1+s.Replicas)
		}
		snap := make(snapshot, len(stored))
		for j, slots := range stored {
			if slots == nil {
				continue
			}
			if len(slots) != size {
				return nil, fmt.Errorf("ring: snapshot %d replica %d has %d slots, want %d", i, j, len(slots), size)
			}
			snap[j] = append([]int32(nil), slots...)
		}
		r.snapshots[i] = snap
	}
	return r, nil
}
