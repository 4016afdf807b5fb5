package hfsm

// Transition is a directed edge between states. Transitions are created by
// the Machine (or a State) and configured fluently:
//
//	t, _ := m.AddTransition("walk", "run")
//	t.When(isSprinting).WithPriority(10).WithCooldown(0.5)
type Transition[ID comparable] struct {
	machine *Machine[ID]

	from      ID
	to        ID
	global    bool
	toInitial bool

	guard     Predicate[ID]
	condition Predicate[ID]
	event     string

	priority int
	index    uint64

	minTime      float64
	hasMinTime   bool
	forceInstant bool

	cooldown    Cooldown
	onTriggered Callback[ID]
	payload     *Data

	removed bool
}

// From returns the source state. It is meaningless for global transitions.
func (t *Transition[ID]) From() ID {
	return t.from
}

// To returns the declared target. Reset transitions report the initial state
// at the time of the call.
func (t *Transition[ID]) To() ID {
	if t.toInitial && t.machine != nil {
		return t.machine.initialID
	}
	return t.to
}

// IsGlobal reports whether the transition applies from any state
func (t *Transition[ID]) IsGlobal() bool {
	return t.global
}

// IsReset reports whether the transition targets the initial state
func (t *Transition[ID]) IsReset() bool {
	return t.toInitial
}

// Index returns the insertion stamp used to break priority ties
func (t *Transition[ID]) Index() uint64 {
	return t.index
}

// When sets the condition that triggers the transition
func (t *Transition[ID]) When(condition Predicate[ID]) *Transition[ID] {
	t.condition = condition
	return t
}

// Guard sets a cheap prerequisite evaluated before timing and cooldown gates
func (t *Transition[ID]) Guard(guard Predicate[ID]) *Transition[ID] {
	t.guard = guard
	return t
}

// OnEvent binds the transition to an event name. Event transitions ignore
// their condition and fire when a matching event is drained.
func (t *Transition[ID]) OnEvent(name string) *Transition[ID] {
	t.event = name
	return t
}

// Event returns the bound event name, empty for condition transitions
func (t *Transition[ID]) Event() string {
	return t.event
}

// WithPriority sets the priority; higher fires first
func (t *Transition[ID]) WithPriority(priority int) *Transition[ID] {
	if t.priority != priority {
		t.priority = priority
		if t.machine != nil {
			t.machine.invalidateOrder()
		}
	}
	return t
}

// Priority returns the transition's priority
func (t *Transition[ID]) Priority() int {
	return t.priority
}

// WithCooldown prevents the transition from firing again for the given seconds
func (t *Transition[ID]) WithCooldown(seconds float64) *Transition[ID] {
	t.cooldown.SetDuration(seconds)
	return t
}

// Cooldown returns the transition's cooldown
func (t *Transition[ID]) Cooldown() *Cooldown {
	return &t.cooldown
}

// WithMinTime overrides the source state's minimum time for this transition
func (t *Transition[ID]) WithMinTime(seconds float64) *Transition[ID] {
	if seconds < 0 {
		seconds = 0
	}
	t.minTime = seconds
	t.hasMinTime = true
	return t
}

// Instant lets the transition fire regardless of time spent in the state
func (t *Transition[ID]) Instant() *Transition[ID] {
	t.forceInstant = true
	return t
}

// IsInstant reports whether the min-time gate is bypassed
func (t *Transition[ID]) IsInstant() bool {
	return t.forceInstant
}

// OnTriggered sets a callback invoked when the transition fires, before exits
func (t *Transition[ID]) OnTriggered(fn Callback[ID]) *Transition[ID] {
	t.onTriggered = fn
	return t
}

// Payload returns the transition's data store. Its contents are exposed
// through Machine.TransitionData while the transition is in flight.
func (t *Transition[ID]) Payload() *Data {
	if t.payload == nil {
		t.payload = NewData()
	}
	return t.payload
}

// effectiveMinTime returns the override or the given state's min time
func (t *Transition[ID]) effectiveMinTime(current *State[ID]) float64 {
	if t.hasMinTime {
		return t.minTime
	}
	if current == nil {
		return 0
	}
	return current.minTime
}

// Compare orders transitions by priority (descending), then by insertion
// (ascending). It returns a negative number when a must be evaluated first.
func Compare[ID comparable](a, b *Transition[ID]) int {
	if a.priority != b.priority {
		if a.priority > b.priority {
			return -1
		}
		return 1
	}
	switch {
	case a.index < b.index:
		return -1
	case a.index > b.index:
		return 1
	default:
		return 0
	}
}
