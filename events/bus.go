// Package events provides the in-process notification bus that decouples
// state, animation and eating transitions from observers such as camera
// framing or telemetry. One Bus is constructed per simulation world and
// passed to the systems that publish into it; there is no package-global
// channel.
package events

// Handler receives published events. Handlers run inline during Publish:
// dispatch is synchronous, fire-and-forget, with no queuing.
type Handler func(Event)

type subscriber struct {
	id      int
	handler Handler
}

// Bus is the mediator carrying per-agent and population-wide channels.
type Bus struct {
	nextID   int
	global   []subscriber
	perAgent map[uint32][]subscriber
	owners   map[int]uint32 // subscription id -> agent, for Unsubscribe
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		perAgent: make(map[uint32][]subscriber),
		owners:   make(map[int]uint32),
	}
}

// Subscribe registers a handler on the population-wide channel and returns
// a subscription id for Unsubscribe.
func (b *Bus) Subscribe(h Handler) int {
	b.nextID++
	b.global = append(b.global, subscriber{id: b.nextID, handler: h})
	return b.nextID
}

// SubscribeAgent registers a handler for one agent's events only.
func (b *Bus) SubscribeAgent(agentID uint32, h Handler) int {
	b.nextID++
	b.perAgent[agentID] = append(b.perAgent[agentID], subscriber{id: b.nextID, handler: h})
	b.owners[b.nextID] = agentID
	return b.nextID
}

// Unsubscribe removes a subscription by id. Unknown ids are a no-op.
func (b *Bus) Unsubscribe(id int) {
	if agentID, ok := b.owners[id]; ok {
		b.perAgent[agentID] = dropSubscriber(b.perAgent[agentID], id)
		if len(b.perAgent[agentID]) == 0 {
			delete(b.perAgent, agentID)
		}
		delete(b.owners, id)
		return
	}
	b.global = dropSubscriber(b.global, id)
}

// ReleaseAgent removes every subscription bound to an agent. Called on
// despawn so no handler can be invoked for a dead agent.
func (b *Bus) ReleaseAgent(agentID uint32) {
	for _, s := range b.perAgent[agentID] {
		delete(b.owners, s.id)
	}
	delete(b.perAgent, agentID)
}

// Publish dispatches an event to the agent's subscribers, then to the
// population-wide subscribers, inline in registration order. A handler may
// Unsubscribe (itself included) during dispatch; the current event still
// reaches every subscriber registered when Publish began.
func (b *Bus) Publish(ev Event) {
	for _, s := range b.perAgent[ev.AgentID] {
		s.handler(ev)
	}
	for _, s := range b.global {
		s.handler(ev)
	}
}

// dropSubscriber removes by id into a fresh slice. The old backing array is
// left untouched so an in-flight Publish ranging over it sees no shift.
func dropSubscriber(subs []subscriber, id int) []subscriber {
	for i, s := range subs {
		if s.id == id {
			out := make([]subscriber, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			return append(out, subs[i+1:]...)
		}
	}
	return subs
}
