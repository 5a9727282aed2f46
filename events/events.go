package events

import "github.com/pthm-cable/roost/components"

// Kind identifies the payload carried by an Event.
type Kind uint8

const (
	KindStateChanged Kind = iota
	KindAnimationChanged
	KindMovementChanged
	KindEating
)

// EatingKind identifies eating-related notifications.
type EatingKind uint8

const (
	StartedEating EatingKind = iota
	FinishedEating
	FoodDetected
	FoodLost
	CompetingForFood
)

// String returns the eating event name.
func (k EatingKind) String() string {
	switch k {
	case StartedEating:
		return "started_eating"
	case FinishedEating:
		return "finished_eating"
	case FoodDetected:
		return "food_detected"
	case FoodLost:
		return "food_lost"
	case CompetingForFood:
		return "competing_for_food"
	}
	return "unknown"
}

// Event is a single notification. Fields beyond Kind/AgentID/Time/X/Y are
// populated depending on Kind.
type Event struct {
	Kind    Kind
	AgentID uint32
	Time    float32
	X, Y    float32

	// KindStateChanged
	OldState components.PigeonState
	NewState components.PigeonState

	// KindAnimationChanged
	Action components.ActionKind

	// KindMovementChanged
	DestX, DestY float32

	// KindEating
	Eating EatingKind
	FoodID uint32
}

// NewStateChanged creates a state transition event.
func NewStateChanged(agentID uint32, t, x, y float32, old, next components.PigeonState) Event {
	return Event{
		Kind:     KindStateChanged,
		AgentID:  agentID,
		Time:     t,
		X:        x,
		Y:        y,
		OldState: old,
		NewState: next,
	}
}

// NewAnimationChanged creates an animation/action change event.
func NewAnimationChanged(agentID uint32, t, x, y float32, action components.ActionKind) Event {
	return Event{
		Kind:    KindAnimationChanged,
		AgentID: agentID,
		Time:    t,
		X:       x,
		Y:       y,
		Action:  action,
	}
}

// NewMovementChanged creates a destination change event.
func NewMovementChanged(agentID uint32, t, x, y, destX, destY float32) Event {
	return Event{
		Kind:    KindMovementChanged,
		AgentID: agentID,
		Time:    t,
		X:       x,
		Y:       y,
		DestX:   destX,
		DestY:   destY,
	}
}

// NewEating creates an eating-related event referencing a food id.
func NewEating(agentID uint32, t, x, y float32, kind EatingKind, foodID uint32) Event {
	return Event{
		Kind:    KindEating,
		AgentID: agentID,
		Time:    t,
		X:       x,
		Y:       y,
		Eating:  kind,
		FoodID:  foodID,
	}
}
