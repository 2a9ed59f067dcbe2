package ring

import (
	"math"

	"slotring/registry"
)

// FillRing lays one replica group out as a dense array of 2^ringPower
// node slots. Each node receives ceil(totalSlots/totalWeight*weight)
// contiguous entries in group order, and filling stops the moment the
// array is full, so rounding excess is absorbed by whichever nodes come
// last. That makes the layout order-sensitive on purpose: callers that
// want a particular node to soak up rounding error order the group
// accordingly. An empty group produces no array.
func FillRing(group []registry.GroupEntry, ringPower int) []int32 {
	if len(group) == 0 {
		return nil
	}
	totalSlots := 1 << uint(ringPower)

	var totalWeight float64
	for _, entry := range group {
		totalWeight += entry.Weight
	}

	slots := make([]int32, 0, totalSlots)
	for _, entry := range group {
		want := int(math.Ceil(float64(totalSlots) / totalWeight * entry.Weight))
		for i := 0; i < want && len(slots) < totalSlots; i++ {
			slots = append(slots, int32(entry.NodeSlot))
		}
		if len(slots) == totalSlots {
			break
		}
	}
	// Float rounding can leave a shortfall of a slot or two; the last
	// node takes the remainder.
	for len(slots) < totalSlots {
		slots = append(slots, int32(group[len(group)-1].NodeSlot))
	}
	return slots
}
