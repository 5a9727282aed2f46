// Package telemetry provides windowed simulation statistics and CSV output.
package telemetry

import (
	"math"

	"github.com/pthm-cable/roost/components"
	"github.com/pthm-cable/roost/events"
)

// Collector accumulates bus events within time windows and produces
// WindowStats. It subscribes to the population-wide channel and is fed the
// spawner outcome by the world each tick.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	windowStartTick int32

	// Event counters for current window
	spawns        int
	spawnsSkipped int
	eatsStarted   int
	eatsFinished  int
	foodDetected  int
	foodLost      int
	competitions  int
	displacements int

	// Time from detecting a food to finishing it, sampled per completed
	// meal within the window.
	detectedAt map[uint32]float32
	timeToEat  []float64
}

// NewCollector creates a stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds.
// dt: seconds per tick (used for tick-to-time conversion).
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	// dt is float32: a 1s window over float32(1.0/30) is 29.999998 ticks in
	// float64, so the count must round, not truncate.
	ticksPerWindow := int32(math.Round(windowDurationSec / float64(dt)))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		detectedAt:          make(map[uint32]float32),
	}
}

// Observe is the bus handler feeding the collector. Subscribe it on the
// population-wide channel.
func (c *Collector) Observe(ev events.Event) {
	switch ev.Kind {
	case events.KindStateChanged:
		if ev.NewState == components.StateRetreating {
			c.displacements++
		}
	case events.KindEating:
		switch ev.Eating {
		case events.FoodDetected:
			c.foodDetected++
			c.detectedAt[ev.AgentID] = ev.Time
		case events.FoodLost:
			c.foodLost++
			delete(c.detectedAt, ev.AgentID)
		case events.CompetingForFood:
			c.competitions++
		case events.StartedEating:
			c.eatsStarted++
		case events.FinishedEating:
			c.eatsFinished++
			if t0, ok := c.detectedAt[ev.AgentID]; ok {
				c.timeToEat = append(c.timeToEat, float64(ev.Time-t0))
				delete(c.detectedAt, ev.AgentID)
			}
		}
	}
}

// RecordSpawn records one automatic food spawn.
func (c *Collector) RecordSpawn() {
	c.spawns++
}

// RecordSpawnSkipped records a spawn attempt refused at capacity or for
// missing surfaces/archetypes.
func (c *Collector) RecordSpawnSkipped() {
	c.spawnsSkipped++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces the window's stats and resets the counters. The caller
// supplies the point-in-time population snapshot.
func (c *Collector) Flush(currentTick int32, activeFood, pigeons int, stateCounts [components.NumStates]int) WindowStats {
	mean, p50, p90 := Summarize(c.timeToEat)

	stats := WindowStats{
		Tick:          currentTick,
		Time:          float64(currentTick) * float64(c.dt),
		Pigeons:       pigeons,
		ActiveFood:    activeFood,
		Wandering:     stateCounts[components.StateWandering],
		Investigating: stateCounts[components.StateInvestigating],
		Competing:     stateCounts[components.StateCompeting],
		Eating:        stateCounts[components.StateEating],
		Retreating:    stateCounts[components.StateRetreating],
		Spawns:        c.spawns,
		SpawnsSkipped: c.spawnsSkipped,
		EatsStarted:   c.eatsStarted,
		EatsFinished:  c.eatsFinished,
		FoodDetected:  c.foodDetected,
		FoodLost:      c.foodLost,
		Competitions:  c.competitions,
		Displacements: c.displacements,
		MeanTimeToEat: mean,
		P50TimeToEat:  p50,
		P90TimeToEat:  p90,
	}

	c.windowStartTick = currentTick
	c.spawns = 0
	c.spawnsSkipped = 0
	c.eatsStarted = 0
	c.eatsFinished = 0
	c.foodDetected = 0
	c.foodLost = 0
	c.competitions = 0
	c.displacements = 0
	c.timeToEat = c.timeToEat[:0]

	return stats
}

// WindowStats is one row of windowed telemetry, serialized to CSV.
type WindowStats struct {
	Tick          int32   `csv:"tick"`
	Time          float64 `csv:"time_sec"`
	Pigeons       int     `csv:"pigeons"`
	ActiveFood    int     `csv:"active_food"`
	Wandering     int     `csv:"wandering"`
	Investigating int     `csv:"investigating"`
	Competing     int     `csv:"competing"`
	Eating        int     `csv:"eating"`
	Retreating    int     `csv:"retreating"`
	Spawns        int     `csv:"spawns"`
	SpawnsSkipped int     `csv:"spawns_skipped"`
	EatsStarted   int     `csv:"eats_started"`
	EatsFinished  int     `csv:"eats_finished"`
	FoodDetected  int     `csv:"food_detected"`
	FoodLost      int     `csv:"food_lost"`
	Competitions  int     `csv:"competitions"`
	Displacements int     `csv:"displacements"`
	MeanTimeToEat float64 `csv:"mean_time_to_eat"`
	P50TimeToEat  float64 `csv:"p50_time_to_eat"`
	P90TimeToEat  float64 `csv:"p90_time_to_eat"`
}
