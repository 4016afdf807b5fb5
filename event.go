package hfsm

import "github.com/google/uuid"

// Subscription identifies a registered event listener
type Subscription struct {
	ID    uuid.UUID
	Event string
}

type listener[ID comparable] struct {
	id uuid.UUID
	fn Callback[ID]
}

// listenerTable keeps listeners per event name in subscription order
type listenerTable[ID comparable] struct {
	byEvent map[string][]listener[ID]
}

func newListenerTable[ID comparable]() *listenerTable[ID] {
	return &listenerTable[ID]{byEvent: make(map[string][]listener[ID])}
}

func (lt *listenerTable[ID]) add(event string, fn Callback[ID]) Subscription {
	sub := Subscription{ID: uuid.New(), Event: event}
	lt.byEvent[event] = append(lt.byEvent[event], listener[ID]{id: sub.ID, fn: fn})
	return sub
}

func (lt *listenerTable[ID]) remove(sub Subscription) bool {
	list := lt.byEvent[sub.Event]
	for i, l := range list {
		if l.id == sub.ID {
			lt.byEvent[sub.Event] = append(list[:i:i], list[i+1:]...)
			if len(lt.byEvent[sub.Event]) == 0 {
				delete(lt.byEvent, sub.Event)
			}
			return true
		}
	}
	return false
}

// snapshot returns the listeners for event, safe against changes made by
// the listeners themselves
func (lt *listenerTable[ID]) snapshot(event string) []listener[ID] {
	list := lt.byEvent[event]
	if len(list) == 0 {
		return nil
	}
	out := make([]listener[ID], len(list))
	copy(out, list)
	return out
}

func (lt *listenerTable[ID]) count(event string) int {
	return len(lt.byEvent[event])
}

// SendEvent queues an event. Queued events are drained during the next
// Process call that updates the current leaf: listeners run first, then the
// highest-priority eligible transition bound to the event fires.
func (m *Machine[ID]) SendEvent(name string) {
	if name == "" {
		m.logger.LogWarning("ignoring event with empty name", "machine", m.config.Name)
		return
	}
	if !m.lifecycle.is(StatusRunning) && !m.lifecycle.is(StatusPaused) {
		m.logger.LogWarning("dropping event sent to a machine that is not started",
			"machine", m.config.Name, "event", name)
		return
	}
	m.events = append(m.events, name)
}

// PendingEvents returns the number of queued events
func (m *Machine[ID]) PendingEvents() int {
	return len(m.events)
}

// OnEvent registers a listener for an event name. Listeners for the same
// event run in the order they were registered, before event transitions are
// evaluated.
func (m *Machine[ID]) OnEvent(name string, fn Callback[ID]) Subscription {
	return m.listeners.add(name, fn)
}

// Unsubscribe removes a listener. It reports whether the subscription was found.
func (m *Machine[ID]) Unsubscribe(sub Subscription) bool {
	return m.listeners.remove(sub)
}

// ListenerCount returns the number of listeners registered for an event
func (m *Machine[ID]) ListenerCount(name string) int {
	return m.listeners.count(name)
}

// drainEvents runs listeners and event transitions for queued events
func (m *Machine[ID]) drainEvents() {
	if m.scanningEvents {
		return
	}
	m.scanningEvents = true
	defer func() { m.scanningEvents = false }()

	drained := 0
	for len(m.events) > 0 {
		if drained == m.config.MaxEventsPerTick {
			m.logger.LogWarning("event drain limit reached, deferring remaining events",
				"machine", m.config.Name, "pending", len(m.events))
			break
		}
		name := m.events[0]
		m.events = m.events[1:]
		drained++

		for _, l := range m.listeners.snapshot(name) {
			m.safeCall("event:"+name, m.current, l.fn)
		}
		if m.current == nil || !m.lifecycle.is(StatusRunning) {
			m.observers.NotifyEventDispatched(name, false)
			continue
		}

		handled := false
		if m.current.lockMode == LockNone {
			if t := m.findEventTransition(name); t != nil {
				handled = true
				m.fire(t)
			}
		}
		m.observers.NotifyEventDispatched(name, handled)
	}
	if len(m.events) == 0 {
		m.events = nil
	}
}

func (m *Machine[ID]) findEventTransition(name string) *Transition[ID] {
	leaf := m.current
	for _, t := range m.candidates() {
		if m.current != leaf {
			return nil
		}
		if t.removed || t.event != name {
			continue
		}
		reason := m.gate(t)
		if m.current != leaf {
			return nil
		}
		if reason != BlockNone {
			continue
		}
		if m.skipGlobalSelf(t) {
			continue
		}
		return t
	}
	return nil
}
