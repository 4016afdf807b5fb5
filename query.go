package hfsm

// Status returns the machine's lifecycle status
func (m *Machine[ID]) Status() string {
	return m.lifecycle.status()
}

// IsRunning reports whether the machine is started and not paused
func (m *Machine[ID]) IsRunning() bool {
	return m.lifecycle.is(StatusRunning)
}

// IsPaused reports whether the machine is paused
func (m *Machine[ID]) IsPaused() bool {
	return m.lifecycle.is(StatusPaused)
}

// State returns the state registered under id
func (m *Machine[ID]) State(id ID) (*State[ID], bool) {
	s, ok := m.states[id]
	return s, ok
}

// StateIDs returns every registered id in registration order
func (m *Machine[ID]) StateIDs() []ID {
	out := make([]ID, len(m.order))
	copy(out, m.order)
	return out
}

// StateCount returns the number of registered states
func (m *Machine[ID]) StateCount() int {
	return len(m.states)
}

// CurrentState returns the active leaf, nil before Start
func (m *Machine[ID]) CurrentState() *State[ID] {
	return m.current
}

// CurrentID returns the id of the active leaf
func (m *Machine[ID]) CurrentID() (ID, bool) {
	if m.current == nil {
		var zero ID
		return zero, false
	}
	return m.current.id, true
}

// PreviousID returns the id of the leaf active before the current one
func (m *Machine[ID]) PreviousID() (ID, bool) {
	return m.previousID, m.hasPrevious
}

// IsCurrentState reports whether id is the active leaf
func (m *Machine[ID]) IsCurrentState(id ID) bool {
	return m.current != nil && m.current.id == id
}

// IsInState reports whether id is the active leaf or one of its ancestors
func (m *Machine[ID]) IsInState(id ID) bool {
	for s := m.current; s != nil; s = s.parent {
		if s.id == id {
			return true
		}
	}
	return false
}

// IsInStateWithTag reports whether any state of the active hierarchy carries tag
func (m *Machine[ID]) IsInStateWithTag(tag string) bool {
	for s := m.current; s != nil; s = s.parent {
		if s.HasTag(tag) {
			return true
		}
	}
	return false
}

// ActiveHierarchy returns the active states from the root down to the leaf
func (m *Machine[ID]) ActiveHierarchy() []ID {
	if m.current == nil {
		return nil
	}
	path := m.current.path()
	out := make([]ID, len(path))
	for i, s := range path {
		out[i] = s.id
	}
	return out
}

// StateTime returns the seconds spent in the active leaf
func (m *Machine[ID]) StateTime() float64 {
	return m.stateTime
}

// RemainingTime returns the seconds left before the active leaf times out,
// or -1 when it has no timeout.
func (m *Machine[ID]) RemainingTime() float64 {
	if m.current == nil || m.current.timeout <= 0 {
		return -1
	}
	remaining := m.current.timeout - m.stateTime
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TimeoutProgress returns how far the active leaf is towards its timeout in
// [0,1], or 0 when it has no timeout.
func (m *Machine[ID]) TimeoutProgress() float64 {
	if m.current == nil || m.current.timeout <= 0 {
		return 0
	}
	return clamp01(m.stateTime / m.current.timeout)
}

// CurrentMinTime returns the active leaf's minimum time. Calling it before
// Start is a programming error and panics.
func (m *Machine[ID]) CurrentMinTime() float64 {
	if m.current == nil {
		panic("hfsm: CurrentMinTime called on machine " + m.config.Name + " with no current state")
	}
	return m.current.minTime
}

// HasTransition reports whether from has an outgoing transition to to
func (m *Machine[ID]) HasTransition(from, to ID) bool {
	s, ok := m.states[from]
	if !ok {
		return false
	}
	for _, t := range s.transitions {
		if t.To() == to {
			return true
		}
	}
	return false
}

// HasGlobalTransition reports whether a global transition targets to
func (m *Machine[ID]) HasGlobalTransition(to ID) bool {
	for _, t := range m.globals {
		if t.to == to {
			return true
		}
	}
	return false
}

// AvailableTransitions returns, in evaluation order, the transitions that
// currently pass every gate except their trigger. Guards are evaluated.
func (m *Machine[ID]) AvailableTransitions() []*Transition[ID] {
	if m.current == nil || m.current.lockMode != LockNone {
		return nil
	}
	leaf := m.current
	var out []*Transition[ID]
	for _, t := range m.candidates() {
		if m.current != leaf {
			return nil
		}
		if t.removed || m.skipGlobalSelf(t) {
			continue
		}
		if m.gate(t) == BlockNone {
			out = append(out, t)
		}
	}
	return out
}
