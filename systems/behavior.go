package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/roost/components"
	"github.com/pthm-cable/roost/events"
)

// Wander noise shaping. Each pigeon samples its own noise line so flock
// drift stays smooth without being synchronized.
const (
	noiseIDStride  = 0.137
	noiseTimeScale = 0.15
	noiseDriftGain = 0.8
)

// BehaviorParams configures the state machine thresholds.
type BehaviorParams struct {
	EatingRange      float32 // beak-to-food distance to start eating
	ContentionRadius float32 // agents within this distance of a food are competitors
	InteractionRange float32 // agent-to-agent distance for competitive resolution
	DominanceFactor  float32 // rival displaced when rival.agg < self.agg * factor
	EatDuration      float32 // seconds spent eating
	RetreatDistance  float32 // displacement away from contested food
	WanderRadius     float32 // max distance of a fresh wander target
	WanderTimeoutMin float32 // re-pick timeout range, seconds
	WanderTimeoutMax float32
}

// BehaviorSystem runs the per-pigeon decision state machine: food perception
// through the supply registry, rival lookups through the pigeon grid, state
// transitions, competition resolution, and intent emission. It mutates only pigeon state and, through FoodSupply,
// the shared food set; positions belong to the movement executor.
type BehaviorSystem struct {
	filter    ecs.Filter4[components.Position, components.Heading, components.Personality, components.Pigeon]
	posMap    *ecs.Map1[components.Position]
	pigeonMap *ecs.Map1[components.Pigeon]
	persMap   *ecs.Map1[components.Personality]
	intentMap *ecs.Map1[components.Intent]
	locoMap   *ecs.Map1[components.Locomotion]

	supply *FoodSupply
	bus    *events.Bus
	params BehaviorParams
	bounds Bounds
	rng    *rand.Rand
	noise  opensimplex.Noise

	clock float32

	// Reused query buffers.
	foodBuf  []Neighbor
	rivalBuf []Neighbor
	entBuf   []ecs.Entity

	// Food finished this tick. Entity removal is structural and must wait
	// until query iteration completes.
	finished []uint32
}

// NewBehaviorSystem creates the state machine system.
func NewBehaviorSystem(w *ecs.World, supply *FoodSupply, bus *events.Bus, params BehaviorParams, bounds Bounds, rng *rand.Rand) *BehaviorSystem {
	return &BehaviorSystem{
		filter:    *ecs.NewFilter4[components.Position, components.Heading, components.Personality, components.Pigeon](w),
		posMap:    ecs.NewMap1[components.Position](w),
		pigeonMap: ecs.NewMap1[components.Pigeon](w),
		persMap:   ecs.NewMap1[components.Personality](w),
		intentMap: ecs.NewMap1[components.Intent](w),
		locoMap:   ecs.NewMap1[components.Locomotion](w),
		supply:    supply,
		bus:       bus,
		params:    params,
		bounds:    bounds,
		rng:       rng,
		noise:     opensimplex.New(rng.Int63()),
	}
}

// Clock returns the system's accumulated simulation time.
func (s *BehaviorSystem) Clock() float32 {
	return s.clock
}

// Update advances every pigeon's state machine by one tick against a
// point-in-time pigeon grid snapshot. Food proximity goes through the supply
// registry directly.
func (s *BehaviorSystem) Update(pigeonGrid *SpatialGrid, dt float32) {
	s.clock += dt

	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, head, pers, pg := query.Get()

		intent := s.intentMap.Get(entity)
		loco := s.locoMap.Get(entity)
		if intent == nil || loco == nil {
			continue
		}

		// Intents are per-tick directives, rewritten from scratch.
		*intent = components.Intent{}

		switch pg.State {
		case components.StateWandering:
			s.wander(pos, pers, pg, intent, loco)
		case components.StateInvestigating:
			s.investigate(entity, pos, head, pers, pg, intent, pigeonGrid)
		case components.StateCompeting:
			s.compete(entity, pos, head, pers, pg, intent, pigeonGrid)
		case components.StateEating:
			s.eat(pos, pg, intent)
		case components.StateRetreating:
			s.retreat(pos, pg, intent, loco)
		}
	}

	for _, id := range s.finished {
		s.supply.Remove(id)
	}
	s.finished = s.finished[:0]
}

// wander picks and follows random targets while scanning for food.
func (s *BehaviorSystem) wander(pos *components.Position, pers *components.Personality, pg *components.Pigeon, intent *components.Intent, loco *components.Locomotion) {
	// Perception first: closest food within detection radius wins.
	s.foodBuf = s.supply.NearbyInto(s.foodBuf[:0], pos.X, pos.Y, pers.DetectionRadius)
	if len(s.foodBuf) > 0 {
		if id, ok := s.supply.IDOf(s.foodBuf[0].E); ok {
			pg.Claim = id
			s.transition(pg, pos, components.StateInvestigating)
			s.bus.Publish(events.NewEating(pg.ID, s.clock, pos.X, pos.Y, events.FoodDetected, id))
			if fx, fy, ok := s.supply.PositionOf(id); ok {
				setDest(intent, fx, fy)
			}
			return
		}
	}

	if !pg.HasWander || loco.Arrived || s.clock >= pg.WanderDeadline {
		s.pickWanderTarget(pos, pg)
		s.bus.Publish(events.NewMovementChanged(pg.ID, s.clock, pos.X, pos.Y, pg.WanderX, pg.WanderY))
	}
	setDest(intent, pg.WanderX, pg.WanderY)
}

// investigate steers toward the claimed food and decides between eating and
// competing once the beak is in range.
func (s *BehaviorSystem) investigate(entity ecs.Entity, pos *components.Position, head *components.Heading, pers *components.Personality, pg *components.Pigeon, intent *components.Intent, pigeonGrid *SpatialGrid) {
	fx, fy, ok := s.supply.PositionOf(pg.Claim)
	if pg.Claim == 0 || !ok {
		s.loseClaim(pg, pos)
		return
	}

	setDest(intent, fx, fy)

	bx, by := beakPoint(pos, head, pers)
	if distanceSq(bx, by, fx, fy) > s.params.EatingRange*s.params.EatingRange {
		return
	}

	rivals := s.claimants(entity, pg.Claim, fx, fy, pigeonGrid)
	if len(rivals) == 0 && s.supply.BeginEating(pg.Claim, pg.ID) {
		s.enterEating(pg, pos, fx, fy, intent)
		return
	}

	s.transition(pg, pos, components.StateCompeting)
	s.bus.Publish(events.NewEating(pg.ID, s.clock, pos.X, pos.Y, events.CompetingForFood, pg.Claim))
}

// compete keeps steering toward the contested food and, once in range,
// displaces sufficiently weaker rivals until the claimant set empties.
func (s *BehaviorSystem) compete(entity ecs.Entity, pos *components.Position, head *components.Heading, pers *components.Personality, pg *components.Pigeon, intent *components.Intent, pigeonGrid *SpatialGrid) {
	fx, fy, ok := s.supply.PositionOf(pg.Claim)
	if pg.Claim == 0 || !ok {
		s.loseClaim(pg, pos)
		return
	}

	setDest(intent, fx, fy)

	bx, by := beakPoint(pos, head, pers)
	if distanceSq(bx, by, fx, fy) > s.params.EatingRange*s.params.EatingRange {
		return
	}

	displaced := false
	for _, rival := range s.claimants(entity, pg.Claim, fx, fy, pigeonGrid) {
		rPos := s.posMap.Get(rival)
		rPg := s.pigeonMap.Get(rival)
		rPers := s.persMap.Get(rival)
		if rPos == nil || rPg == nil || rPers == nil {
			continue
		}
		if rPg.State == components.StateEating {
			continue
		}
		if distanceSq(pos.X, pos.Y, rPos.X, rPos.Y) > s.params.InteractionRange*s.params.InteractionRange {
			continue
		}
		// Asymmetric push, strict inequality: equals never displace each
		// other, so matched pairs cannot oscillate.
		if rPers.Aggressiveness < pers.Aggressiveness*s.params.DominanceFactor {
			s.displace(rival, rPos, rPg, fx, fy)
			displaced = true
		}
	}

	if displaced {
		intent.Action = components.ActionAttack
		s.bus.Publish(events.NewAnimationChanged(pg.ID, s.clock, pos.X, pos.Y, components.ActionAttack))
	}

	// Claimant set is recomputed fresh, never cached: eating starts only
	// once no other claimant remains near the food.
	if len(s.claimants(entity, pg.Claim, fx, fy, pigeonGrid)) == 0 && s.supply.BeginEating(pg.Claim, pg.ID) {
		s.enterEating(pg, pos, fx, fy, intent)
	}
}

// eat suppresses movement, keeps the beak on the food, and finishes the
// claim when the eat deadline passes.
func (s *BehaviorSystem) eat(pos *components.Position, pg *components.Pigeon, intent *components.Intent) {
	fx, fy, ok := s.supply.PositionOf(pg.Claim)
	if pg.Claim == 0 || !ok {
		// Food cleared externally mid-meal. Degrade silently.
		s.loseClaim(pg, pos)
		return
	}

	intent.Action = components.ActionEat
	intent.HasFace = true
	intent.FaceX, intent.FaceY = fx, fy

	if s.clock >= pg.EatDeadline {
		id := pg.Claim
		s.finished = append(s.finished, id)
		pg.Claim = 0
		pg.HasWander = false
		s.bus.Publish(events.NewEating(pg.ID, s.clock, pos.X, pos.Y, events.FinishedEating, id))
		s.transition(pg, pos, components.StateWandering)
	}
}

// retreat walks to the displacement target and drops back to wandering.
func (s *BehaviorSystem) retreat(pos *components.Position, pg *components.Pigeon, intent *components.Intent, loco *components.Locomotion) {
	setDest(intent, pg.RetreatX, pg.RetreatY)

	// Reached, or the target is off the navigable area (no path).
	if loco.Arrived || !s.bounds.Contains(pg.RetreatX, pg.RetreatY) {
		pg.Claim = 0
		s.transition(pg, pos, components.StateWandering)
	}
}

// displace forces a weaker rival into Retreating, away from the contested
// food, with a fresh wander target for afterwards.
func (s *BehaviorSystem) displace(rival ecs.Entity, rPos *components.Position, rPg *components.Pigeon, fx, fy float32) {
	dx := rPos.X - fx
	dy := rPos.Y - fy
	d := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if d < 1e-4 {
		angle := s.rng.Float32() * 2 * math.Pi
		dx, dy = float32(math.Cos(float64(angle))), float32(math.Sin(float64(angle)))
		d = 1
	}
	rx := rPos.X + dx/d*s.params.RetreatDistance
	ry := rPos.Y + dy/d*s.params.RetreatDistance
	rx, ry = s.bounds.ClampPoint(rx, ry)

	if rPg.Claim != 0 {
		s.bus.Publish(events.NewEating(rPg.ID, s.clock, rPos.X, rPos.Y, events.FoodLost, rPg.Claim))
		rPg.Claim = 0
	}
	rPg.RetreatX, rPg.RetreatY = rx, ry
	s.transition(rPg, rPos, components.StateRetreating)
	s.pickWanderTarget(rPos, rPg)
	s.bus.Publish(events.NewMovementChanged(rPg.ID, s.clock, rPos.X, rPos.Y, rx, ry))

	// The rival may already have moved this tick; stale arrival flags must
	// not short-circuit the retreat.
	if loco := s.locoMap.Get(rival); loco != nil {
		loco.Arrived = false
	}
}

// enterEating transitions into Eating with a fixed-duration deadline.
// Callers must have passed the BeginEating admission gate.
func (s *BehaviorSystem) enterEating(pg *components.Pigeon, pos *components.Position, fx, fy float32, intent *components.Intent) {
	pg.EatDeadline = s.clock + s.params.EatDuration
	s.transition(pg, pos, components.StateEating)

	intent.HasDest = false
	intent.Action = components.ActionEat
	intent.HasFace = true
	intent.FaceX, intent.FaceY = fx, fy

	s.bus.Publish(events.NewEating(pg.ID, s.clock, pos.X, pos.Y, events.StartedEating, pg.Claim))
	s.bus.Publish(events.NewAnimationChanged(pg.ID, s.clock, pos.X, pos.Y, components.ActionEat))
}

// claimants returns the other agents whose claim matches foodID and whose
// distance to the food is within the contention radius.
func (s *BehaviorSystem) claimants(self ecs.Entity, foodID uint32, fx, fy float32, pigeonGrid *SpatialGrid) []ecs.Entity {
	s.rivalBuf = pigeonGrid.QueryRadiusInto(s.rivalBuf[:0], fx, fy, s.params.ContentionRadius, self, s.posMap)
	s.entBuf = s.entBuf[:0]
	for _, n := range s.rivalBuf {
		other := s.pigeonMap.Get(n.E)
		if other != nil && other.Claim == foodID {
			s.entBuf = append(s.entBuf, n.E)
		}
	}
	return s.entBuf
}

// pickWanderTarget assigns a fresh random destination within the wander
// radius, biased by smooth noise, and resets the re-pick timeout.
func (s *BehaviorSystem) pickWanderTarget(pos *components.Position, pg *components.Pigeon) {
	drift := s.noise.Eval2(float64(pg.ID)*noiseIDStride, float64(s.clock)*noiseTimeScale)
	angle := s.rng.Float32()*2*math.Pi + float32(drift)*noiseDriftGain
	dist := s.params.WanderRadius * (0.3 + 0.7*s.rng.Float32())

	x := pos.X + float32(math.Cos(float64(angle)))*dist
	y := pos.Y + float32(math.Sin(float64(angle)))*dist
	x, y = s.bounds.ClampPoint(x, y)

	pg.HasWander = true
	pg.WanderX, pg.WanderY = x, y
	pg.WanderDeadline = s.clock + s.params.WanderTimeoutMin +
		s.rng.Float32()*(s.params.WanderTimeoutMax-s.params.WanderTimeoutMin)
}

// loseClaim clears a stale claim and degrades to Wandering. A stale claim is
// a normal outcome of supply churn, not an error.
func (s *BehaviorSystem) loseClaim(pg *components.Pigeon, pos *components.Position) {
	if pg.Claim != 0 {
		s.bus.Publish(events.NewEating(pg.ID, s.clock, pos.X, pos.Y, events.FoodLost, pg.Claim))
		pg.Claim = 0
	}
	s.transition(pg, pos, components.StateWandering)
}

// transition moves a pigeon to a new state and publishes the change.
func (s *BehaviorSystem) transition(pg *components.Pigeon, pos *components.Position, next components.PigeonState) {
	if pg.State == next {
		return
	}
	old := pg.State
	pg.State = next
	pg.StateSince = s.clock
	s.bus.Publish(events.NewStateChanged(pg.ID, s.clock, pos.X, pos.Y, old, next))
}

// beakPoint is the effector point used for eating-range checks, offset from
// the body origin along the current heading.
func beakPoint(pos *components.Position, head *components.Heading, pers *components.Personality) (float32, float32) {
	return pos.X + float32(math.Cos(float64(head.Angle)))*pers.BeakOffset,
		pos.Y + float32(math.Sin(float64(head.Angle)))*pers.BeakOffset
}

func setDest(intent *components.Intent, x, y float32) {
	intent.HasDest = true
	intent.DestX, intent.DestY = x, y
}
