package systems

import (
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"
)

func newTestSupply(t *testing.T, params SupplyParams) *FoodSupply {
	t.Helper()
	w := ecs.NewWorld()
	return NewFoodSupply(w, params, rand.New(rand.NewSource(1)))
}

func defaultSupplyParams() SupplyParams {
	return SupplyParams{
		Capacity:    3,
		IntervalMin: 1.0,
		IntervalMax: 2.0,
		EdgeMargin:  0.5,
		DropHeight:  0.8,
	}
}

func testSurface() SpawnSurface {
	return SpawnSurface{MinX: 10, MinY: 10, MaxX: 16, MaxY: 12, TopHeight: 0.75}
}

func TestSpawnRequiresSurfacesAndArchetypes(t *testing.T) {
	tests := []struct {
		name         string
		addSurface   bool
		addArchetype bool
		wantOK       bool
	}{
		{"neither registered", false, false, false},
		{"surface only", true, false, false},
		{"archetype only", false, true, false},
		{"both registered", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newTestSupply(t, defaultSupplyParams())
			if tt.addSurface {
				fs.RegisterSurface(testSurface())
			}
			if tt.addArchetype {
				fs.RegisterArchetype(FoodArchetype{Name: "crumb", Nutrition: 8})
			}

			_, ok := fs.SpawnOne()
			if ok != tt.wantOK {
				t.Errorf("SpawnOne() ok = %v, want %v", ok, tt.wantOK)
			}
			wantCount := 0
			if tt.wantOK {
				wantCount = 1
			}
			if fs.Count() != wantCount {
				t.Errorf("Count() = %d, want %d", fs.Count(), wantCount)
			}
		})
	}
}

func TestSpawnPlacementOnEdge(t *testing.T) {
	fs := newTestSupply(t, defaultSupplyParams())
	surf := testSurface()
	fs.RegisterSurface(surf)
	fs.RegisterArchetype(FoodArchetype{Name: "crumb"})

	margin := fs.params.EdgeMargin

	for i := 0; i < 50; i++ {
		id, ok := fs.SpawnOne()
		if !ok {
			t.Fatal("spawn failed")
		}
		x, y, ok := fs.PositionOf(id)
		if !ok {
			t.Fatal("spawned food not in registry")
		}

		onNS := (y == surf.MinY-margin || y == surf.MaxY+margin) && x >= surf.MinX && x <= surf.MaxX
		onEW := (x == surf.MinX-margin || x == surf.MaxX+margin) && y >= surf.MinY && y <= surf.MaxY
		if !onNS && !onEW {
			t.Errorf("food %d at (%f, %f) not on a footprint edge", id, x, y)
		}

		fs.Remove(id)
	}
}

func TestTickCapacityBound(t *testing.T) {
	fs := newTestSupply(t, defaultSupplyParams())
	fs.RegisterSurface(testSurface())
	fs.RegisterArchetype(FoodArchetype{Name: "crumb"})

	// Run long enough for many countdown elapses.
	for i := 0; i < 10000; i++ {
		fs.Tick(0.1)
		if fs.Count() > fs.params.Capacity {
			t.Fatalf("active count %d exceeds capacity %d", fs.Count(), fs.params.Capacity)
		}
	}
	if fs.Count() != fs.params.Capacity {
		t.Errorf("expected supply to fill to capacity %d, got %d", fs.params.Capacity, fs.Count())
	}
}

func TestTickOutcomes(t *testing.T) {
	fs := newTestSupply(t, defaultSupplyParams())
	fs.RegisterSurface(testSurface())
	fs.RegisterArchetype(FoodArchetype{Name: "crumb"})

	if got := fs.Tick(0.01); got != SpawnIdle {
		t.Errorf("early tick outcome = %v, want SpawnIdle", got)
	}

	// Force the countdown to elapse.
	if got := fs.Tick(10); got != SpawnOK {
		t.Errorf("elapsed tick outcome = %v, want SpawnOK", got)
	}

	// Fill to capacity, then an elapse must refuse.
	for fs.HasCapacity() {
		fs.ForceSpawnAt(0, 0)
	}
	if got := fs.Tick(10); got != SpawnSkipped {
		t.Errorf("at-capacity tick outcome = %v, want SpawnSkipped", got)
	}
}

func TestForceSpawnOverageNotCulled(t *testing.T) {
	fs := newTestSupply(t, defaultSupplyParams())
	fs.RegisterSurface(testSurface())
	fs.RegisterArchetype(FoodArchetype{Name: "crumb"})

	over := fs.params.Capacity + 3
	for i := 0; i < over; i++ {
		fs.ForceSpawnAt(float32(i), 0)
	}

	if fs.Count() != over {
		t.Fatalf("force-spawned count = %d, want %d", fs.Count(), over)
	}

	// Automatic spawning is suppressed, existing overage stays.
	fs.Tick(10)
	if fs.Count() != over {
		t.Errorf("overage was modified by tick: count = %d, want %d", fs.Count(), over)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	fs := newTestSupply(t, defaultSupplyParams())
	id := fs.ForceSpawnAt(5, 5)

	if !fs.Remove(id) {
		t.Error("first Remove should report true")
	}
	if fs.Remove(id) {
		t.Error("second Remove should be a no-op reporting false")
	}
	if fs.Remove(9999) {
		t.Error("removing an unknown id should be a no-op")
	}
}

func TestClearAll(t *testing.T) {
	fs := newTestSupply(t, defaultSupplyParams())
	for i := 0; i < 4; i++ {
		fs.ForceSpawnAt(float32(i), 0)
	}

	if n := fs.ClearAll(); n != 4 {
		t.Errorf("ClearAll removed %d, want 4", n)
	}
	if fs.Count() != 0 {
		t.Errorf("Count() after ClearAll = %d, want 0", fs.Count())
	}
	if _, ok := fs.Lookup(1); ok {
		t.Error("cleared food still resolves in registry")
	}
}

func TestNearbyClosestFirst(t *testing.T) {
	fs := newTestSupply(t, defaultSupplyParams())
	far := fs.ForceSpawnAt(8, 0)
	near := fs.ForceSpawnAt(2, 0)
	fs.ForceSpawnAt(30, 0) // outside the query radius

	ns := fs.Nearby(0, 0, 10)
	if len(ns) != 2 {
		t.Fatalf("Nearby returned %d items, want 2", len(ns))
	}
	if id, _ := fs.IDOf(ns[0].E); id != near {
		t.Errorf("closest item = %d, want %d", id, near)
	}
	if id, _ := fs.IDOf(ns[1].E); id != far {
		t.Errorf("second item = %d, want %d", id, far)
	}

	if got := fs.Nearby(100, 100, 5); len(got) != 0 {
		t.Errorf("out-of-range query returned %d items, want none", len(got))
	}

	fs.Remove(near)
	if ns := fs.Nearby(0, 0, 10); len(ns) != 1 {
		t.Errorf("removed item still visible: %d results, want 1", len(ns))
	}
}

func TestBeginEatingSingleEater(t *testing.T) {
	fs := newTestSupply(t, defaultSupplyParams())
	id := fs.ForceSpawnAt(5, 5)

	if !fs.BeginEating(id, 1) {
		t.Fatal("first eater should be admitted")
	}
	if fs.BeginEating(id, 2) {
		t.Error("second eater must be refused while the first holds the item")
	}
	if !fs.BeginEating(id, 1) {
		t.Error("repeated admission by the current eater should stay true")
	}
	if fs.Eater(id) != 1 {
		t.Errorf("Eater() = %d, want 1", fs.Eater(id))
	}

	fs.ReleaseEater(id, 2)
	if fs.Eater(id) != 1 {
		t.Error("ReleaseEater by a non-holder must not clear the admission")
	}
	fs.ReleaseEater(id, 1)
	if fs.Eater(id) != 0 {
		t.Error("ReleaseEater by the holder should clear the admission")
	}

	if fs.BeginEating(999, 1) {
		t.Error("admission on an unknown food id should fail")
	}
}

func TestIntervalResetRange(t *testing.T) {
	fs := newTestSupply(t, defaultSupplyParams())
	fs.RegisterSurface(testSurface())
	fs.RegisterArchetype(FoodArchetype{Name: "crumb"})

	for i := 0; i < 100; i++ {
		fs.Tick(100) // force an elapse every call
		if fs.countdown < fs.params.IntervalMin || fs.countdown > fs.params.IntervalMax {
			t.Fatalf("countdown %f outside [%f, %f]", fs.countdown, fs.params.IntervalMin, fs.params.IntervalMax)
		}
		fs.ClearAll()
	}
}
