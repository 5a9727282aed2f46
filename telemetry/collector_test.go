package telemetry

import (
	"testing"

	"github.com/pthm-cable/roost/components"
	"github.com/pthm-cable/roost/events"
)

const dt = float32(1.0 / 30.0)

func TestCollectorWindowTickRounding(t *testing.T) {
	tests := []struct {
		name      string
		windowSec float64
		wantTicks int32
	}{
		{"one second", 1.0, 30},
		{"ten seconds", 10.0, 300},
		{"sub-tick window clamps to one tick", 0.0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(tt.windowSec, dt)
			if c.windowDurationTicks != tt.wantTicks {
				t.Errorf("windowDurationTicks = %d, want %d", c.windowDurationTicks, tt.wantTicks)
			}
		})
	}
}

func TestCollectorWindowFlush(t *testing.T) {
	c := NewCollector(1.0, dt) // 30 ticks per window

	if c.ShouldFlush(29) {
		t.Error("should not flush before the window elapses")
	}
	if !c.ShouldFlush(30) {
		t.Error("should flush once the window elapses")
	}

	c.RecordSpawn()
	c.RecordSpawn()
	c.RecordSpawnSkipped()
	c.Observe(events.NewEating(1, 0.5, 0, 0, events.FoodDetected, 7))
	c.Observe(events.NewEating(1, 1.0, 0, 0, events.StartedEating, 7))
	c.Observe(events.NewEating(1, 3.0, 0, 0, events.FinishedEating, 7))
	c.Observe(events.NewEating(2, 1.1, 0, 0, events.CompetingForFood, 7))
	c.Observe(events.NewStateChanged(3, 1.2, 0, 0, components.StateCompeting, components.StateRetreating))

	var counts [components.NumStates]int
	counts[components.StateWandering] = 4
	stats := c.Flush(30, 2, 4, counts)

	if stats.Spawns != 2 || stats.SpawnsSkipped != 1 {
		t.Errorf("spawns = %d/%d skipped, want 2/1", stats.Spawns, stats.SpawnsSkipped)
	}
	if stats.EatsStarted != 1 || stats.EatsFinished != 1 {
		t.Errorf("eats = %d started %d finished, want 1/1", stats.EatsStarted, stats.EatsFinished)
	}
	if stats.Competitions != 1 {
		t.Errorf("competitions = %d, want 1", stats.Competitions)
	}
	if stats.Displacements != 1 {
		t.Errorf("displacements = %d, want 1", stats.Displacements)
	}
	if stats.FoodDetected != 1 {
		t.Errorf("food detected = %d, want 1", stats.FoodDetected)
	}
	// Detect at 0.5s, finish at 3.0s.
	if stats.MeanTimeToEat < 2.4 || stats.MeanTimeToEat > 2.6 {
		t.Errorf("mean time to eat = %f, want 2.5", stats.MeanTimeToEat)
	}
	if stats.Wandering != 4 {
		t.Errorf("wandering count = %d, want 4", stats.Wandering)
	}

	// Flush resets counters and starts a new window.
	if c.ShouldFlush(31) {
		t.Error("window should restart after flush")
	}
	next := c.Flush(60, 0, 4, [components.NumStates]int{})
	if next.Spawns != 0 || next.EatsFinished != 0 || next.MeanTimeToEat != 0 {
		t.Error("counters not reset by flush")
	}
}

func TestCollectorFoodLostDropsSample(t *testing.T) {
	c := NewCollector(1.0, dt)

	c.Observe(events.NewEating(1, 0.5, 0, 0, events.FoodDetected, 7))
	c.Observe(events.NewEating(1, 1.0, 0, 0, events.FoodLost, 7))
	// A later meal without a fresh detection must not produce a bogus
	// time-to-eat sample.
	c.Observe(events.NewEating(1, 5.0, 0, 0, events.FinishedEating, 9))

	stats := c.Flush(30, 0, 1, [components.NumStates]int{})
	if stats.MeanTimeToEat != 0 {
		t.Errorf("mean time to eat = %f, want 0 (no complete detect-finish pair)", stats.MeanTimeToEat)
	}
	if stats.FoodLost != 1 {
		t.Errorf("food lost = %d, want 1", stats.FoodLost)
	}
}
