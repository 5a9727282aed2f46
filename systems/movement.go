package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/roost/components"
)

// MovementParams configures the kinematic executor.
type MovementParams struct {
	ArriveEpsilon float32 // distance at which a destination counts as reached
}

// MovementSystem is the in-process movement/animation executor: it consumes
// the per-tick intents the state machine emits and reports arrival back
// through Locomotion. Swapping in a real navigation/animation backend means
// replacing this system, not touching the behavior code.
type MovementSystem struct {
	filter ecs.Filter7[
		components.Position,
		components.Velocity,
		components.Heading,
		components.Personality,
		components.Pigeon,
		components.Intent,
		components.Locomotion,
	]
	params MovementParams
	bounds Bounds
}

// NewMovementSystem creates the kinematic executor.
func NewMovementSystem(w *ecs.World, params MovementParams, bounds Bounds) *MovementSystem {
	return &MovementSystem{
		filter: *ecs.NewFilter7[
			components.Position,
			components.Velocity,
			components.Heading,
			components.Personality,
			components.Pigeon,
			components.Intent,
			components.Locomotion,
		](w),
		params: params,
		bounds: bounds,
	}
}

// Update advances positions toward intent destinations and applies instant
// face snaps. Movement is fully suppressed while an Eat action is active.
func (s *MovementSystem) Update(dt float32) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel, head, pers, pg, intent, loco := query.Get()

		vel.X, vel.Y = 0, 0

		if intent.HasFace {
			head.Angle = float32(math.Atan2(float64(intent.FaceY-pos.Y), float64(intent.FaceX-pos.X)))
		}

		if intent.Action == components.ActionEat {
			loco.Arrived = false
			continue
		}
		if !intent.HasDest {
			loco.Arrived = false
			continue
		}

		dx := intent.DestX - pos.X
		dy := intent.DestY - pos.Y
		dist := float32(math.Sqrt(float64(dx*dx + dy*dy)))

		if dist <= s.params.ArriveEpsilon {
			loco.Arrived = true
			continue
		}

		speed := pers.WalkSpeed
		switch pg.State {
		case components.StateInvestigating, components.StateCompeting, components.StateRetreating:
			speed = pers.RunSpeed
		}

		step := speed * dt
		if step >= dist {
			pos.X, pos.Y = intent.DestX, intent.DestY
			loco.Arrived = true
		} else {
			pos.X += dx / dist * step
			pos.Y += dy / dist * step
			loco.Arrived = false
		}
		pos.X, pos.Y = s.bounds.ClampPoint(pos.X, pos.Y)

		vel.X = dx / dist * speed
		vel.Y = dy / dist * speed

		if !intent.HasFace {
			head.Angle = float32(math.Atan2(float64(dy), float64(dx)))
		}
	}
}
