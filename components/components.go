// Package components defines ECS components for the simulation.
package components

// Position represents an entity's world position on the ground plane.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity.
type Velocity struct {
	X, Y float32
}

// Heading is an entity's facing orientation in radians.
type Heading struct {
	Angle float32
}

// PigeonState enumerates the behavioral states of the forage cycle.
type PigeonState uint8

const (
	StateWandering PigeonState = iota
	StateInvestigating
	StateCompeting
	StateEating
	StateRetreating

	// NumStates is the number of behavioral states (for histograms).
	NumStates = 5
)

// String returns a human-readable state name.
func (s PigeonState) String() string {
	switch s {
	case StateWandering:
		return "wandering"
	case StateInvestigating:
		return "investigating"
	case StateCompeting:
		return "competing"
	case StateEating:
		return "eating"
	case StateRetreating:
		return "retreating"
	}
	return "unknown"
}

// ActionKind is the discrete action a pigeon requests from the
// movement/animation executor alongside its destination.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionEat
	ActionAttack
)

// String returns the action name used for animation mapping lookups.
func (a ActionKind) String() string {
	switch a {
	case ActionEat:
		return "eat"
	case ActionAttack:
		return "attack"
	}
	return "idle"
}

// Personality holds the immutable behavioral profile assigned at spawn.
type Personality struct {
	ProfileID       uint8
	Aggressiveness  float32 // 0..1, drives competition dominance
	DetectionRadius float32 // food perception range
	WalkSpeed       float32 // wander speed
	RunSpeed        float32 // approach/retreat speed
	BeakOffset      float32 // effector point distance from body origin
}

// Pigeon holds the per-agent state machine data.
// Claim is a weak reference: a food id, never ownership. Zero means no claim.
type Pigeon struct {
	ID         uint32
	State      PigeonState
	StateSince float32 // world clock at state entry

	Claim       uint32  // claimed food id, 0 = none
	EatDeadline float32 // world clock at which eating completes

	// Wander target, persisted across ticks until reached or timed out.
	HasWander        bool
	WanderX, WanderY float32
	WanderDeadline   float32 // re-pick timeout

	// Retreat target, set when displaced by a dominant rival.
	RetreatX, RetreatY float32
}

// Intent is the per-tick directive emitted to the movement/animation
// executor. It is rewritten every tick; the core never mutates transforms.
type Intent struct {
	HasDest      bool
	DestX, DestY float32
	Action       ActionKind
	HasFace      bool // instant orientation snap toward FaceX/FaceY
	FaceX, FaceY float32
}

// Locomotion is the executor's per-tick report back to the state machine.
type Locomotion struct {
	Arrived bool // within arrival threshold of the current destination
}
