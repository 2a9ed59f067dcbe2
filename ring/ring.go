package ring

import (
	"errors"
	"fmt"

	"slotring/registry"
	"slotring/slothash"
)

// SnapshotRetention is how many completed builds the ring keeps
// queryable, newest first. Retaining a few generations lets lookups
// chase data that an external mover has not migrated yet.
const SnapshotRetention = 4

var (
	ErrEmpty    = errors.New("ring: no usable nodes to build from")
	ErrNotBuilt = errors.New("ring: not built")
)

// Assignment is one node returned by a placement query, annotated with
// the replica position it serves and its composite slot
// (ringSlot + replica*2^ringPower), which addresses the exact
// (slot, replica) pair across the whole structure.
type Assignment struct {
	registry.Node
	Replica  int
	RingSlot int
}

// snapshot is the immutable output of one build: one dense array per
// replica position, nil where the replica group was empty.
type snapshot [][]int32

// Ring computes and stores placement snapshots for one registry. The
// ring power and replica count are taken from the registry at creation
// and fixed for the ring's lifetime.
type Ring struct {
	reg       *registry.Registry
	ringPower int
	replicas  int
	version   uint64
	snapshots []snapshot // newest first, at most SnapshotRetention
}

// New returns an unbuilt ring over reg. Queries fail with ErrNotBuilt
// until the first successful Build.
func New(reg *registry.Registry) *Ring {
	return &Ring{
		reg:       reg,
		ringPower: reg.RingPower(),
		replicas:  reg.Replicas(),
	}
}

// RingPower returns the ring power.
func (r *Ring) RingPower() int { return r.ringPower }

// Replicas returns the replica count.
func (r *Ring) Replicas() int { return r.replicas }

// Version returns the number of successful builds.
func (r *Ring) Version() uint64 { return r.version }

// SnapshotCount returns the number of retained snapshots.
func (r *Ring) SnapshotCount() int { return len(r.snapshots) }

// Build reads the registry, lays out one array per replica group and
// installs the result as the newest snapshot, discarding the oldest
// beyond SnapshotRetention. Prior snapshots are never touched, so
// queries against them stay valid throughout. Build fails with ErrEmpty
// and changes nothing when the registry holds no usable nodes.
func (r *Ring) Build() error {
	groups := r.reg.ReplicaGroups(r.replicas)
	snap := make(snapshot, len(groups))
	usable := false
	for i, group := range groups {
		snap[i] = FillRing(group, r.ringPower)
		if snap[i] != nil {
			usable = true
		}
	}
	if !usable {
		return ErrEmpty
	}

	r.snapshots = append([]snapshot{snap}, r.snapshots...)
	if len(r.snapshots) > SnapshotRetention {
		r.snapshots = r.snapshots[:SnapshotRetention]
	}
	r.version++
	return nil
}

// Get hashes id to a slot and returns the nodes responsible for it, one
// list per retained snapshot, newest first. See GetBySlot.
func (r *Ring) Get(id string, allowDuplicates bool) ([][]Assignment, error) {
	return r.GetBySlot(slothash.Slot(r.ringPower, id), allowDuplicates)
}

// GetBySlot resolves the owners of one ring slot across all retained
// snapshots, newest first. An owner already reported by a newer
// snapshot for the same replica position is skipped unless duplicates
// are requested; entries whose node has been deleted from the registry
// since that snapshot was built are skipped as well.
func (r *Ring) GetBySlot(slot uint32, allowDuplicates bool) ([][]Assignment, error) {
	if len(r.snapshots) == 0 {
		return nil, ErrNotBuilt
	}
	size := 1 << uint(r.ringPower)
	if int64(slot) >= int64(size) {
		return nil, fmt.Errorf("ring: slot %d out of range [0, %d)", slot, size)
	}

	type ownerKey struct {
		id      string
		replica int
	}
	seen := make(map[ownerKey]bool)

	results := make([][]Assignment, 0, len(r.snapshots))
	for _, snap := range r.snapshots {
		var nodes []Assignment
		for replica, slots := range snap {
			if slots == nil {
				continue
			}
			node, err := r.reg.NodeBySlot(int(slots[slot]))
			if err != nil {
				continue
			}
			if !allowDuplicates {
				key := ownerKey{id: node.ID, replica: replica}
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			nodes = append(nodes, Assignment{
				Node:     node,
				Replica:  replica,
				RingSlot: int(slot) + replica*size,
			})
		}
		results = append(results, nodes)
	}
	return results, nil
}
