package registry

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Node is the external view of a registered node: the zone slot is
// resolved to the zone name and the metadata is copied, so mutating the
// returned value never touches registry state.
type Node struct {
	ID     string
	Zone   string
	Weight float64
	Slot   int
	Meta   map[string]string
}

// NodeUpdate describes a partial update for UpdateNode. Zero values
// leave the corresponding field unchanged; Meta entries are merged into
// the node's existing metadata.
type NodeUpdate struct {
	Zone   string
	Weight float64
	Meta   map[string]string
}

type zoneRecord struct {
	name      string
	nodeSlots []int // node slots owned by this zone, in assignment order
}

type nodeRecord struct {
	id       string
	zoneSlot int
	weight   float64
	slot     int
	meta     map[string]string
}

// Registry holds zones and nodes in fixed-capacity slot tables.
type Registry struct {
	ringPower int
	replicas  int
	maxNodes  int
	maxZones  int

	zones       []*zoneRecord // indexed by zone slot, nil = free
	nodes       []*nodeRecord // indexed by node slot, nil = free
	zoneCursor  int
	nodeCursor  int
	zonesByName map[string]int
	nodesByID   map[string]int
}

// New creates an empty registry for a ring of 2^ringPower slots and the
// given replica count. Capacity is derived from the ring power: one
// node slot per 16 ring slots, and at least one zone slot per 1024 node
// slots (never fewer than 2*replicas). The ring power must leave room
// for 1+replicas nodes.
func New(ringPower, replicas int) (*Registry, error) {
	if ringPower < 1 || ringPower > 32 {
		return nil, fmt.Errorf("registry: ring power must be in [1, 32], got %d", ringPower)
	}
	if replicas < 0 {
		return nil, fmt.Errorf("registry: replica count must be >= 0, got %d", replicas)
	}

	maxNodes := ceilDiv(1<<uint(ringPower), 16)
	if maxNodes < 1+replicas {
		return nil, fmt.Errorf("registry: ring power %d allows only %d nodes, need at least %d for %d replicas",
			ringPower, maxNodes, 1+replicas, replicas)
	}
	maxZones := ceilDiv(maxNodes, 1024)
	if 2*replicas > maxZones {
		maxZones = 2 * replicas
	}

	return &Registry{
		ringPower:   ringPower,
		replicas:    replicas,
		maxNodes:    maxNodes,
		maxZones:    maxZones,
		zones:       make([]*zoneRecord, maxZones),
		nodes:       make([]*nodeRecord, maxNodes),
		zonesByName: make(map[string]int),
		nodesByID:   make(map[string]int),
	}, nil
}

// RingPower returns the ring power the registry was created with.
func (r *Registry) RingPower() int { return r.ringPower }

// Replicas returns the replica count the registry was created with.
func (r *Registry) Replicas() int { return r.replicas }

// MaxNodes returns the node slot table capacity.
func (r *Registry) MaxNodes() int { return r.maxNodes }

// MaxZones returns the zone slot table capacity.
func (r *Registry) MaxZones() int { return r.maxZones }

// AddZone registers a new zone under the lowest free zone slot found
// scanning forward from the rotating cursor.
func (r *Registry) AddZone(name string) error {
	if _, exists := r.zonesByName[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateZone, name)
	}
	slot, ok := freeSlot(len(r.zones), r.zoneCursor, func(i int) bool { return r.zones[i] == nil })
	if !ok {
		return fmt.Errorf("%w: no free zone slot for %q (max %d zones)", ErrCapacityExceeded, name, r.maxZones)
	}
	r.zones[slot] = &zoneRecord{name: name}
	r.zonesByName[name] = slot
	r.zoneCursor = (slot + 1) % r.maxZones
	return nil
}

// RenameZone changes a zone's name in place; node assignments keep
// pointing at the same zone slot.
func (r *Registry) RenameZone(oldName, newName string) error {
	if _, exists := r.zonesByName[newName]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateZone, newName)
	}
	slot, exists := r.zonesByName[oldName]
	if !exists {
		return fmt.Errorf("%w: zone %q", ErrNotFound, oldName)
	}
	r.zones[slot].name = newName
	delete(r.zonesByName, oldName)
	r.zonesByName[newName] = slot
	return nil
}

// DeleteZone frees a zone slot. The zone must not own any node slots.
func (r *Registry) DeleteZone(name string) error {
	slot, exists := r.zonesByName[name]
	if !exists {
		return fmt.Errorf("%w: zone %q", ErrNotFound, name)
	}
	if len(r.zones[slot].nodeSlots) > 0 {
		return fmt.Errorf("%w: zone %q still owns %d node slots", ErrZoneNotEmpty, name, len(r.zones[slot].nodeSlots))
	}
	r.zones[slot] = nil
	delete(r.zonesByName, name)
	return nil
}

// AddNode registers a node in the named zone. An empty id asks the
// registry to generate one. The returned record reflects the assigned
// slot and, for generated ids, the id the node ended up with.
func (r *Registry) AddNode(zone string, weight float64, id string, meta map[string]string) (Node, error) {
	zoneSlot, exists := r.zonesByName[zone]
	if !exists {
		return Node{}, fmt.Errorf("%w: zone %q", ErrNotFound, zone)
	}
	if err := checkWeight(weight); err != nil {
		return Node{}, err
	}
	if id == "" {
		id = r.generateID()
	} else if _, taken := r.nodesByID[id]; taken {
		return Node{}, fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}
	slot, ok := freeSlot(len(r.nodes), r.nodeCursor, func(i int) bool { return r.nodes[i] == nil })
	if !ok {
		return Node{}, fmt.Errorf("%w: no free node slot (max %d nodes)", ErrCapacityExceeded, r.maxNodes)
	}

	rec := &nodeRecord{
		id:       id,
		zoneSlot: zoneSlot,
		weight:   weight,
		slot:     slot,
		meta:     copyMeta(meta),
	}
	r.nodes[slot] = rec
	r.nodesByID[id] = slot
	r.zones[zoneSlot].nodeSlots = append(r.zones[zoneSlot].nodeSlots, slot)
	r.nodeCursor = (slot + 1) % r.maxNodes
	return r.format(rec), nil
}

// UpdateNode applies a partial update. A zone change re-homes the node:
// it is removed from the old zone's owned-slot list, its old node slot
// is freed, and it is assigned a fresh slot in the new zone. Weight
// changes happen in place; metadata entries are merged. The update is
// validated completely before any state changes, so a failed call has
// no visible side effect.
func (r *Registry) UpdateNode(id string, update NodeUpdate) (Node, error) {
	slot, exists := r.nodesByID[id]
	if !exists {
		return Node{}, fmt.Errorf("%w: node %q", ErrNotFound, id)
	}
	rec := r.nodes[slot]

	newZoneSlot := rec.zoneSlot
	moveZone := false
	if update.Zone != "" && update.Zone != r.zones[rec.zoneSlot].name {
		zs, ok := r.zonesByName[update.Zone]
		if !ok {
			return Node{}, fmt.Errorf("%w: zone %q", ErrNotFound, update.Zone)
		}
		newZoneSlot = zs
		moveZone = true
	}
	if update.Weight != 0 {
		if err := checkWeight(update.Weight); err != nil {
			return Node{}, err
		}
	}

	if moveZone {
		// The old slot is still occupied while we look, so the fresh
		// slot is guaranteed to differ from it.
		freshSlot, ok := freeSlot(len(r.nodes), r.nodeCursor, func(i int) bool { return r.nodes[i] == nil })
		if !ok {
			return Node{}, fmt.Errorf("%w: no free node slot to re-home %q", ErrCapacityExceeded, id)
		}
		oldZone := r.zones[rec.zoneSlot]
		oldZone.nodeSlots = removeValue(oldZone.nodeSlots, rec.slot)
		r.nodes[rec.slot] = nil

		rec.slot = freshSlot
		rec.zoneSlot = newZoneSlot
		r.nodes[freshSlot] = rec
		r.nodesByID[id] = freshSlot
		r.zones[newZoneSlot].nodeSlots = append(r.zones[newZoneSlot].nodeSlots, freshSlot)
		r.nodeCursor = (freshSlot + 1) % r.maxNodes
	}
	if update.Weight != 0 {
		rec.weight = update.Weight
	}
	if len(update.Meta) > 0 {
		if rec.meta == nil {
			rec.meta = make(map[string]string, len(update.Meta))
		}
		for k, v := range update.Meta {
			rec.meta[k] = v
		}
	}
	return r.format(rec), nil
}

// DeleteNode frees the node's slot and removes it from its zone's
// owned-slot list.
func (r *Registry) DeleteNode(id string) error {
	slot, exists := r.nodesByID[id]
	if !exists {
		return fmt.Errorf("%w: node %q", ErrNotFound, id)
	}
	rec := r.nodes[slot]
	zone := r.zones[rec.zoneSlot]
	zone.nodeSlots = removeValue(zone.nodeSlots, slot)
	r.nodes[slot] = nil
	delete(r.nodesByID, id)
	return nil
}

// NodeByID returns the node registered under id.
func (r *Registry) NodeByID(id string) (Node, error) {
	slot, exists := r.nodesByID[id]
	if !exists {
		return Node{}, fmt.Errorf("%w: node %q", ErrNotFound, id)
	}
	return r.format(r.nodes[slot]), nil
}

// NodeBySlot returns the node occupying the given node slot.
func (r *Registry) NodeBySlot(slot int) (Node, error) {
	if slot < 0 || slot >= r.maxNodes || r.nodes[slot] == nil {
		return Node{}, fmt.Errorf("%w: node slot %d", ErrNotFound, slot)
	}
	return r.format(r.nodes[slot]), nil
}

// Nodes returns all registered nodes in node slot order.
func (r *Registry) Nodes() []Node {
	nodes := make([]Node, 0, len(r.nodesByID))
	for _, rec := range r.nodes {
		if rec != nil {
			nodes = append(nodes, r.format(rec))
		}
	}
	return nodes
}

// Zones returns all zone names in zone slot order.
func (r *Registry) Zones() []string {
	zones := make([]string, 0, len(r.zonesByName))
	for _, z := range r.zones {
		if z != nil {
			zones = append(zones, z.name)
		}
	}
	return zones
}

// ZoneNodes returns the nodes owned by the named zone, in owned-slot
// order.
func (r *Registry) ZoneNodes(name string) ([]Node, error) {
	slot, exists := r.zonesByName[name]
	if !exists {
		return nil, fmt.Errorf("%w: zone %q", ErrNotFound, name)
	}
	zone := r.zones[slot]
	nodes := make([]Node, 0, len(zone.nodeSlots))
	for _, ns := range zone.nodeSlots {
		nodes = append(nodes, r.format(r.nodes[ns]))
	}
	return nodes, nil
}

func (r *Registry) format(rec *nodeRecord) Node {
	return Node{
		ID:     rec.id,
		Zone:   r.zones[rec.zoneSlot].name,
		Weight: rec.weight,
		Slot:   rec.slot,
		Meta:   copyMeta(rec.meta),
	}
}

func (r *Registry) generateID() string {
	id := uuid.NewString()
	for {
		if _, taken := r.nodesByID[id]; !taken {
			return id
		}
		id = uuid.NewString()
	}
}

// freeSlot scans forward from cursor, wrapping, and returns the first
// free slot. The scan does not mutate the cursor; callers advance it
// only after committing, so failed operations leave allocation order
// untouched.
func freeSlot(size, cursor int, free func(int) bool) (int, bool) {
	for i := 0; i < size; i++ {
		slot := (cursor + i) % size
		if free(slot) {
			return slot, true
		}
	}
	return 0, false
}

func checkWeight(weight float64) error {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight <= 0 {
		return fmt.Errorf("%w: must be a positive finite number, got %v", ErrInvalidWeight, weight)
	}
	return nil
}

// removeValue removes the first occurrence of v. Owned-slot lists are
// searched by value rather than indexed positionally, so a re-home can
// never clobber an unrelated entry.
func removeValue(slots []int, v int) []int {
	for i, s := range slots {
		if s == v {
			return append(slots[:i], slots[i+1:]...)
		}
	}
	return slots
}

func copyMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
