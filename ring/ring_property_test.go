package ring

import (
	"fmt"
	"reflect"
	"testing"

	"slotring/registry"
)

// TestRing_Property_Determinism: identical registry histories build
// byte-identical snapshots.
func TestRing_Property_Determinism(t *testing.T) {
	build := func() *Ring {
		reg, err := registry.New(12, 2)
		if err != nil {
			t.Fatal(err)
		}
		for _, zone := range []string{"dc1", "dc2", "dc3"} {
			if err := reg.AddZone(zone); err != nil {
				t.Fatal(err)
			}
		}
		weights := []float64{1, 2, 0.5, 1.5, 3, 1}
		for i, w := range weights {
			zone := []string{"dc1", "dc2", "dc3"}[i%3]
			if _, err := reg.AddNode(zone, w, fmt.Sprintf("node-%d", i), nil); err != nil {
				t.Fatal(err)
			}
		}
		if err := reg.DeleteNode("node-3"); err != nil {
			t.Fatal(err)
		}
		if _, err := reg.AddNode("dc2", 2.5, "node-6", nil); err != nil {
			t.Fatal(err)
		}
		ring := New(reg)
		if err := ring.Build(); err != nil {
			t.Fatal(err)
		}
		return ring
	}

	ring1, ring2 := build(), build()
	if !reflect.DeepEqual(ring1.State().Snapshots, ring2.State().Snapshots) {
		t.Error("identical histories produced different replica arrays")
	}
}

// TestRing_Property_RebuildIdempotent: building twice over an unchanged
// registry yields bit-identical arrays both times.
func TestRing_Property_RebuildIdempotent(t *testing.T) {
	reg, err := registry.New(12, 2)
	if err != nil {
		t.Fatal(err)
	}
	for z := 0; z < 3; z++ {
		zone := fmt.Sprintf("dc%d", z)
		if err := reg.AddZone(zone); err != nil {
			t.Fatal(err)
		}
		for n := 0; n < 4; n++ {
			if _, err := reg.AddNode(zone, float64(n+1), fmt.Sprintf("%s-n%d", zone, n), nil); err != nil {
				t.Fatal(err)
			}
		}
	}

	ring := New(reg)
	if err := ring.Build(); err != nil {
		t.Fatal(err)
	}
	if err := ring.Build(); err != nil {
		t.Fatal(err)
	}
	snapshots := ring.State().Snapshots
	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snapshots))
	}
	if !reflect.DeepEqual(snapshots[0], snapshots[1]) {
		t.Error("rebuild over unchanged registry produced a different snapshot")
	}
}

// TestRing_Property_WeightedProportionality: a node's slot share tracks
// weight/totalWeight within the rounding tolerance the contiguous-block
// layout allows.
func TestRing_Property_WeightedProportionality(t *testing.T) {
	const power = 16
	reg, err := registry.New(power, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.AddZone("dc1"); err != nil {
		t.Fatal(err)
	}
	weights := map[string]float64{"n1": 1, "n2": 2, "n3": 4, "n4": 0.5, "n5": 2.5}
	var totalWeight float64
	for _, id := range []string{"n1", "n2", "n3", "n4", "n5"} {
		if _, err := reg.AddNode("dc1", weights[id], id, nil); err != nil {
			t.Fatal(err)
		}
		totalWeight += weights[id]
	}

	ring := New(reg)
	if err := ring.Build(); err != nil {
		t.Fatal(err)
	}

	totalSlots := 1 << power
	counts := make(map[string]int)
	for slot := 0; slot < totalSlots; slot++ {
		res, err := ring.GetBySlot(uint32(slot), false)
		if err != nil {
			t.Fatal(err)
		}
		for _, a := range res[0] {
			counts[a.ID]++
		}
	}

	for id, weight := range weights {
		exact := float64(totalSlots) / totalWeight * weight
		got := float64(counts[id])
		// Every node before the last gets its ceil share; the last one
		// absorbs the accumulated rounding, at most one slot per node.
		if got < exact-float64(len(weights)) || got > exact+1 {
			t.Errorf("node %s owns %v slots, want about %v", id, got, exact)
		}
	}
}
