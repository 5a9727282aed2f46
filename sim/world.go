// Package sim wires the simulation world together and drives the tick loop.
package sim

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/roost/components"
	"github.com/pthm-cable/roost/config"
	"github.com/pthm-cable/roost/events"
	"github.com/pthm-cable/roost/systems"
	"github.com/pthm-cable/roost/telemetry"
)

// Simulation constants
const (
	DT           = 1.0 / 30.0 // seconds per tick
	GridCellSize = 4.0        // spatial grid cell size
)

// Options holds run-level settings supplied by the driver.
type Options struct {
	Seed           int64   // 0 = use config seed
	StatsWindowSec float64 // 0 = use config stats window
	OutputDir      string  // empty = no CSV output
	LogStats       bool
}

// World owns the entity store, the systems, and the tick loop. One logical
// simulation tick advances the food supply, every pigeon's state machine,
// and the movement executor exactly once; there is no parallelism, so the
// shared food set is only ever mutated from within the tick.
type World struct {
	cfg  *config.Config
	opts Options

	world *ecs.World
	rng   *rand.Rand

	pigeonMapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Heading,
		components.Personality,
		components.Pigeon,
		components.Intent,
		components.Locomotion,
	]
	pigeonFilter *ecs.Filter2[components.Position, components.Pigeon]
	posMap       *ecs.Map1[components.Position]
	pigeonMap    *ecs.Map1[components.Pigeon]

	supply   *systems.FoodSupply
	behavior *systems.BehaviorSystem
	movement *systems.MovementSystem
	bus      *events.Bus

	pigeonGrid *systems.SpatialGrid

	collector *telemetry.Collector
	output    *telemetry.OutputManager

	pigeons map[uint32]ecs.Entity
	nextID  uint32
	tick    int32
	clock   float32
}

// NewWorld builds a world from validated config, registers surfaces and
// archetypes, and spawns the initial population.
func NewWorld(cfg *config.Config, opts Options) (*World, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = cfg.World.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	bounds := systems.Bounds{
		MinX: 0, MinY: 0,
		MaxX: cfg.Derived.WorldW32,
		MaxY: cfg.Derived.WorldH32,
	}

	world := ecs.NewWorld()

	w := &World{
		cfg:   cfg,
		opts:  opts,
		world: world,
		rng:   rng,
		pigeonMapper: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Heading,
			components.Personality,
			components.Pigeon,
			components.Intent,
			components.Locomotion,
		](world),
		pigeonFilter: ecs.NewFilter2[components.Position, components.Pigeon](world),
		posMap:       ecs.NewMap1[components.Position](world),
		pigeonMap:    ecs.NewMap1[components.Pigeon](world),
		bus:          events.NewBus(),
		pigeons:      make(map[uint32]ecs.Entity),
	}

	w.supply = systems.NewFoodSupply(world, systems.SupplyParams{
		Capacity:    cfg.Food.Capacity,
		IntervalMin: float32(cfg.Food.IntervalMin),
		IntervalMax: float32(cfg.Food.IntervalMax),
		EdgeMargin:  float32(cfg.Food.EdgeMargin),
		DropHeight:  float32(cfg.Food.DropHeight),
	}, rng)

	for _, s := range cfg.Food.Surfaces {
		w.supply.RegisterSurface(systems.SpawnSurface{
			MinX:      float32(s.X),
			MinY:      float32(s.Y),
			MaxX:      float32(s.X + s.Width),
			MaxY:      float32(s.Y + s.Height),
			TopHeight: float32(s.Top),
		})
	}
	for _, a := range cfg.Food.Archetypes {
		w.supply.RegisterArchetype(systems.FoodArchetype{
			Name:      a.Name,
			Nutrition: float32(a.Nutrition),
		})
	}

	w.behavior = systems.NewBehaviorSystem(world, w.supply, w.bus, systems.BehaviorParams{
		EatingRange:      float32(cfg.Behavior.EatingRange),
		ContentionRadius: float32(cfg.Behavior.ContentionRadius),
		InteractionRange: float32(cfg.Behavior.InteractionRange),
		DominanceFactor:  float32(cfg.Behavior.DominanceFactor),
		EatDuration:      float32(cfg.Behavior.EatDuration),
		RetreatDistance:  float32(cfg.Behavior.RetreatDistance),
		WanderRadius:     float32(cfg.Behavior.WanderRadius),
		WanderTimeoutMin: float32(cfg.Behavior.WanderTimeoutMin),
		WanderTimeoutMax: float32(cfg.Behavior.WanderTimeoutMax),
	}, bounds, rng)

	w.movement = systems.NewMovementSystem(world, systems.MovementParams{
		ArriveEpsilon: float32(cfg.Behavior.ArriveEpsilon),
	}, bounds)

	w.pigeonGrid = systems.NewSpatialGrid(bounds.MaxX, bounds.MaxY, GridCellSize)

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}
	w.collector = telemetry.NewCollector(statsWindow, DT)
	w.bus.Subscribe(w.collector.Observe)

	outputDir := cfg.Telemetry.OutputDir
	if opts.OutputDir != "" {
		outputDir = opts.OutputDir
	}
	output, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return nil, err
	}
	w.output = output
	if err := w.output.WriteConfig(cfg); err != nil {
		return nil, err
	}

	w.spawnInitialPopulation()

	return w, nil
}

// spawnInitialPopulation places the starting pigeons, cycling through the
// configured personality profiles.
func (w *World) spawnInitialPopulation() {
	numProfiles := len(w.cfg.Population.Profiles)
	for i := 0; i < w.cfg.Population.InitialPigeons; i++ {
		x := w.rng.Float32() * w.cfg.Derived.WorldW32
		y := w.rng.Float32() * w.cfg.Derived.WorldH32
		w.SpawnPigeon(x, y, uint8(i%numProfiles))
	}
}

// SpawnPigeon creates a pigeon with the given personality profile and
// returns its id.
func (w *World) SpawnPigeon(x, y float32, profileID uint8) uint32 {
	prof := w.cfg.Population.Profiles[int(profileID)%len(w.cfg.Population.Profiles)]

	w.nextID++
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	head := components.Heading{Angle: w.rng.Float32() * 2 * math.Pi}
	pers := components.Personality{
		ProfileID:       profileID,
		Aggressiveness:  float32(prof.Aggressiveness),
		DetectionRadius: float32(prof.DetectionRadius),
		WalkSpeed:       float32(prof.WalkSpeed),
		RunSpeed:        float32(prof.RunSpeed),
		BeakOffset:      float32(prof.BeakOffset),
	}
	pg := components.Pigeon{ID: w.nextID, State: components.StateWandering, StateSince: w.clock}
	intent := components.Intent{}
	loco := components.Locomotion{}

	e := w.pigeonMapper.NewEntity(&pos, &vel, &head, &pers, &pg, &intent, &loco)
	w.pigeons[w.nextID] = e
	return w.nextID
}

// DespawnPigeon removes a pigeon, releasing any held claim and all of its
// bus subscriptions. Pigeons are never silently orphaned.
func (w *World) DespawnPigeon(id uint32) bool {
	e, ok := w.pigeons[id]
	if !ok {
		return false
	}

	if pg := w.pigeonMap.Get(e); pg != nil && pg.Claim != 0 {
		w.supply.ReleaseEater(pg.Claim, pg.ID)
	}

	delete(w.pigeons, id)
	w.pigeonMapper.Remove(e)
	w.bus.ReleaseAgent(id)
	return true
}

// Tick advances the simulation by one step: food supply first, then a fresh
// spatial snapshot, then every state machine, then the movement executor.
func (w *World) Tick(dt float32) {
	w.tick++
	w.clock += dt

	switch w.supply.Tick(dt) {
	case systems.SpawnOK:
		w.collector.RecordSpawn()
	case systems.SpawnSkipped:
		w.collector.RecordSpawnSkipped()
	}

	w.rebuildPigeonGrid()
	w.behavior.Update(w.pigeonGrid, dt)
	w.movement.Update(dt)

	w.flushTelemetry()
}

// rebuildPigeonGrid refreshes the spatial snapshot from the live population.
// Food proximity needs no grid: the supply registry answers it directly.
func (w *World) rebuildPigeonGrid() {
	w.pigeonGrid.Clear()
	query := w.pigeonFilter.Query()
	for query.Next() {
		pos, _ := query.Get()
		w.pigeonGrid.Insert(query.Entity(), pos.X, pos.Y)
	}
}

func (w *World) flushTelemetry() {
	if !w.collector.ShouldFlush(w.tick) {
		return
	}

	stats := w.collector.Flush(w.tick, w.supply.Count(), len(w.pigeons), w.stateCounts())
	if err := w.output.WriteWindow(stats); err != nil {
		slog.Warn("telemetry write failed", "error", err)
	}
	if w.opts.LogStats {
		slog.Info("stats window",
			"tick", stats.Tick,
			"pigeons", stats.Pigeons,
			"active_food", stats.ActiveFood,
			"eats_finished", stats.EatsFinished,
			"competitions", stats.Competitions,
			"displacements", stats.Displacements,
			"mean_time_to_eat", stats.MeanTimeToEat,
		)
	}
}

// stateCounts tallies the population by behavioral state.
func (w *World) stateCounts() [components.NumStates]int {
	var counts [components.NumStates]int
	query := w.pigeonFilter.Query()
	for query.Next() {
		_, pg := query.Get()
		if int(pg.State) < len(counts) {
			counts[pg.State]++
		}
	}
	return counts
}

// Bus returns the world's notification bus for observers.
func (w *World) Bus() *events.Bus {
	return w.bus
}

// Supply returns the food supply manager.
func (w *World) Supply() *systems.FoodSupply {
	return w.supply
}

// Clock returns accumulated simulation time in seconds.
func (w *World) Clock() float32 {
	return w.clock
}

// TickCount returns the number of completed ticks.
func (w *World) TickCount() int32 {
	return w.tick
}

// PigeonCount returns the live population size.
func (w *World) PigeonCount() int {
	return len(w.pigeons)
}

// Close flushes run output.
func (w *World) Close() error {
	return w.output.Close()
}
