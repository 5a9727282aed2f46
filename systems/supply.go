package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/roost/components"
)

// SpawnSurface is a registered placement area (a table footprint). Surfaces
// are registered once at startup and static thereafter.
type SpawnSurface struct {
	ID                     uint8
	MinX, MinY, MaxX, MaxY float32 // footprint on the ground plane
	TopHeight              float32 // table top height
}

// FoodArchetype is a registered food template.
type FoodArchetype struct {
	ID        uint8
	Name      string
	Nutrition float32
}

// SupplyParams configures spawn cadence and placement.
type SupplyParams struct {
	Capacity    int     // global ceiling across all surfaces
	IntervalMin float32 // spawn countdown range, seconds
	IntervalMax float32
	EdgeMargin  float32 // outward offset from the chosen footprint edge
	DropHeight  float32 // added to surface top for the recorded food height
}

// SpawnOutcome reports what a supply tick did.
type SpawnOutcome uint8

const (
	SpawnIdle    SpawnOutcome = iota // countdown still running
	SpawnOK                          // countdown elapsed, one item spawned
	SpawnSkipped                     // countdown elapsed, spawn refused (capacity/surfaces/archetypes)
)

// FoodSupply owns the set of active food items. It is the only writer of the
// shared food collection; all mutations happen through its methods within a
// single tick. Active items are kept in a typed registry keyed by stable id,
// so "does this claim still exist" is a registry lookup, never a dangling
// reference check.
type FoodSupply struct {
	mapper  *ecs.Map2[components.Position, components.Food]
	posMap  *ecs.Map1[components.Position]
	foodMap *ecs.Map1[components.Food]

	active     map[uint32]ecs.Entity
	surfaces   []SpawnSurface
	archetypes []FoodArchetype

	params    SupplyParams
	countdown float32
	clock     float32
	nextID    uint32
	rng       *rand.Rand
}

// NewFoodSupply creates a food supply manager backed by the given world.
func NewFoodSupply(w *ecs.World, params SupplyParams, rng *rand.Rand) *FoodSupply {
	fs := &FoodSupply{
		mapper:  ecs.NewMap2[components.Position, components.Food](w),
		posMap:  ecs.NewMap1[components.Position](w),
		foodMap: ecs.NewMap1[components.Food](w),
		active:  make(map[uint32]ecs.Entity),
		params:  params,
		rng:     rng,
	}
	fs.countdown = fs.nextInterval()
	return fs
}

// RegisterSurface adds a spawn surface. Setup-time only.
func (fs *FoodSupply) RegisterSurface(s SpawnSurface) {
	s.ID = uint8(len(fs.surfaces))
	fs.surfaces = append(fs.surfaces, s)
}

// RegisterArchetype adds a food archetype. Setup-time only.
func (fs *FoodSupply) RegisterArchetype(a FoodArchetype) {
	a.ID = uint8(len(fs.archetypes))
	fs.archetypes = append(fs.archetypes, a)
}

// Count returns the number of active food items.
func (fs *FoodSupply) Count() int {
	return len(fs.active)
}

// HasCapacity reports whether the active count is below the ceiling.
// Checked only at spawn-decision time: overage from forced spawns is never
// retroactively culled, it only suppresses future automatic spawns.
func (fs *FoodSupply) HasCapacity() bool {
	return len(fs.active) < fs.params.Capacity
}

// Tick advances the spawn countdown. When it elapses, one spawn is attempted
// and the countdown resets to a fresh random interval either way.
func (fs *FoodSupply) Tick(dt float32) SpawnOutcome {
	fs.clock += dt
	fs.countdown -= dt
	if fs.countdown > 0 {
		return SpawnIdle
	}
	fs.countdown = fs.nextInterval()

	if !fs.HasCapacity() {
		return SpawnSkipped
	}
	if _, ok := fs.SpawnOne(); !ok {
		return SpawnSkipped
	}
	return SpawnOK
}

// SpawnOne creates one food item on a random edge of a random surface.
// Returns false without spawning if no surfaces or archetypes are
// registered; this is a recoverable condition, not an error.
func (fs *FoodSupply) SpawnOne() (uint32, bool) {
	if len(fs.surfaces) == 0 || len(fs.archetypes) == 0 {
		return 0, false
	}

	surf := fs.surfaces[fs.rng.Intn(len(fs.surfaces))]
	arch := fs.archetypes[fs.rng.Intn(len(fs.archetypes))]

	x, y := fs.edgePoint(surf)

	fs.nextID++
	id := fs.nextID

	pos := components.Position{X: x, Y: y}
	food := components.Food{
		ID:          id,
		ArchetypeID: arch.ID,
		SurfaceID:   surf.ID,
		Height:      surf.TopHeight + fs.params.DropHeight,
		SpawnedAt:   fs.clock,
	}
	e := fs.mapper.NewEntity(&pos, &food)
	fs.active[id] = e

	return id, true
}

// ForceSpawnAt creates a food item at an explicit position, bypassing the
// capacity check and surface placement. External overage is tolerated: it
// only suppresses future automatic spawns, never triggers retroactive culls.
func (fs *FoodSupply) ForceSpawnAt(x, y float32) uint32 {
	fs.nextID++
	id := fs.nextID

	pos := components.Position{X: x, Y: y}
	food := components.Food{ID: id, SpawnedAt: fs.clock}
	e := fs.mapper.NewEntity(&pos, &food)
	fs.active[id] = e
	return id
}

// edgePoint picks a uniform point on one of the four footprint edges,
// offset outward by the configured margin.
func (fs *FoodSupply) edgePoint(surf SpawnSurface) (float32, float32) {
	t := fs.rng.Float32()
	m := fs.params.EdgeMargin

	switch fs.rng.Intn(4) {
	case 0: // north edge
		return lerp(surf.MinX, surf.MaxX, t), surf.MinY - m
	case 1: // south edge
		return lerp(surf.MinX, surf.MaxX, t), surf.MaxY + m
	case 2: // west edge
		return surf.MinX - m, lerp(surf.MinY, surf.MaxY, t)
	default: // east edge
		return surf.MaxX + m, lerp(surf.MinY, surf.MaxY, t)
	}
}

// Lookup resolves a food id to its live entity.
func (fs *FoodSupply) Lookup(id uint32) (ecs.Entity, bool) {
	e, ok := fs.active[id]
	return e, ok
}

// PositionOf returns the position of an active food item.
func (fs *FoodSupply) PositionOf(id uint32) (float32, float32, bool) {
	e, ok := fs.active[id]
	if !ok {
		return 0, 0, false
	}
	pos := fs.posMap.Get(e)
	if pos == nil {
		return 0, 0, false
	}
	return pos.X, pos.Y, true
}

// IDOf returns the food id for an entity returned by a proximity query.
func (fs *FoodSupply) IDOf(e ecs.Entity) (uint32, bool) {
	food := fs.foodMap.Get(e)
	if food == nil {
		return 0, false
	}
	return food.ID, true
}

// NearbyInto appends the active food items within radius of the point to
// dst, closest first. Read-only; an empty result is a normal outcome. The
// active set is capacity-bounded, so a registry scan beats maintaining a
// second spatial structure.
func (fs *FoodSupply) NearbyInto(dst []Neighbor, x, y, radius float32) []Neighbor {
	radiusSq := radius * radius
	for _, e := range fs.active {
		pos := fs.posMap.Get(e)
		if pos == nil {
			continue
		}
		dx := pos.X - x
		dy := pos.Y - y
		dSq := dx*dx + dy*dy
		if dSq <= radiusSq {
			dst = append(dst, Neighbor{E: e, DX: dx, DY: dy, DistSq: dSq})
		}
	}
	SortNearest(dst)
	return dst
}

// Nearby is the allocating convenience form of NearbyInto.
func (fs *FoodSupply) Nearby(x, y, radius float32) []Neighbor {
	return fs.NearbyInto(nil, x, y, radius)
}

// BeginEating admits a pigeon as the single eater of a food item.
// The first caller wins; later callers get false until the item is removed.
// A repeated call by the current eater stays true.
func (fs *FoodSupply) BeginEating(foodID, pigeonID uint32) bool {
	e, ok := fs.active[foodID]
	if !ok {
		return false
	}
	food := fs.foodMap.Get(e)
	if food == nil {
		return false
	}
	if food.EatenBy != 0 && food.EatenBy != pigeonID {
		return false
	}
	food.EatenBy = pigeonID
	return true
}

// ReleaseEater clears the eater admission if held by the given pigeon.
// Called when an eating pigeon is despawned mid-meal so the item does not
// stay locked to a dead agent.
func (fs *FoodSupply) ReleaseEater(foodID, pigeonID uint32) {
	e, ok := fs.active[foodID]
	if !ok {
		return
	}
	food := fs.foodMap.Get(e)
	if food != nil && food.EatenBy == pigeonID {
		food.EatenBy = 0
	}
}

// Eater returns the pigeon id currently eating the item, 0 if none.
func (fs *FoodSupply) Eater(foodID uint32) uint32 {
	e, ok := fs.active[foodID]
	if !ok {
		return 0
	}
	food := fs.foodMap.Get(e)
	if food == nil {
		return 0
	}
	return food.EatenBy
}

// Remove deletes a food item from the active set. Idempotent: removing an
// absent id is a no-op, required because consumption and external clearing
// can race within a tick.
func (fs *FoodSupply) Remove(id uint32) bool {
	e, ok := fs.active[id]
	if !ok {
		return false
	}
	delete(fs.active, id)
	fs.mapper.Remove(e)
	return true
}

// ClearAll empties the active set and returns how many items were removed.
// Claim holders are not notified synchronously; they observe the dangling id
// on their next perception tick.
func (fs *FoodSupply) ClearAll() int {
	n := len(fs.active)
	for id, e := range fs.active {
		fs.mapper.Remove(e)
		delete(fs.active, id)
	}
	return n
}

func (fs *FoodSupply) nextInterval() float32 {
	if fs.params.IntervalMax <= fs.params.IntervalMin {
		return fs.params.IntervalMin
	}
	return fs.params.IntervalMin + fs.rng.Float32()*(fs.params.IntervalMax-fs.params.IntervalMin)
}
