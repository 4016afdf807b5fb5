package hfsm

// Callback is invoked on state entry, exit, timeout and transition firing
type Callback[ID comparable] func(m *Machine[ID])

// UpdateFunc is invoked every tick for the active leaf
type UpdateFunc[ID comparable] func(m *Machine[ID], delta float64)

// Predicate is used for guards and conditions
type Predicate[ID comparable] func(m *Machine[ID]) bool

// State is a node of the hierarchy. States are created and owned by a
// Machine; the returned handle is used to configure them fluently:
//
//	idle, _ := m.AddState("idle")
//	idle.SetMinTime(0.2).OnEnter(playIdle).AddTag("grounded")
type State[ID comparable] struct {
	id      ID
	machine *Machine[ID]

	parent          *State[ID]
	children        []*State[ID]
	defaultChild    ID
	hasDefaultChild bool

	minTime       float64
	timeout       float64
	timeoutTarget ID
	timeoutEdge   *Transition[ID]

	processMode ProcessMode
	lockMode    LockMode
	cooldown    Cooldown

	tags        []string
	data        *Data
	transitions []*Transition[ID]

	onUpdate        UpdateFunc[ID]
	onEnter         Callback[ID]
	onExit          Callback[ID]
	onTimeout       Callback[ID]
	onTimeoutLocked Callback[ID]
}

func newState[ID comparable](m *Machine[ID], id ID) *State[ID] {
	return &State[ID]{
		id:      id,
		machine: m,
		timeout: -1,
		data:    NewData(),
	}
}

// ID returns the state's identifier
func (s *State[ID]) ID() ID {
	return s.id
}

// Parent returns the parent state, or nil for a root state
func (s *State[ID]) Parent() *State[ID] {
	return s.parent
}

// Children returns the child states in insertion order
func (s *State[ID]) Children() []*State[ID] {
	out := make([]*State[ID], len(s.children))
	copy(out, s.children)
	return out
}

// IsLeaf reports whether the state has no children
func (s *State[ID]) IsLeaf() bool {
	return len(s.children) == 0
}

// DefaultChild returns the child entered when this state is targeted
func (s *State[ID]) DefaultChild() (ID, bool) {
	return s.defaultChild, s.hasDefaultChild
}

// SetDefaultChild selects which child is entered when this state is targeted.
// The id must name an existing child.
func (s *State[ID]) SetDefaultChild(id ID) error {
	if s.childByID(id) == nil {
		err := NewConfigurationError("State",
			"default child '"+formatID(id)+"' is not a child of '"+formatID(s.id)+"'")
		s.machine.reportConfigError(err)
		return err
	}
	s.defaultChild = id
	s.hasDefaultChild = true
	return nil
}

func (s *State[ID]) childByID(id ID) *State[ID] {
	for _, child := range s.children {
		if child.id == id {
			return child
		}
	}
	return nil
}

// OnUpdate sets the per-tick callback. Only leaves are updated.
func (s *State[ID]) OnUpdate(fn UpdateFunc[ID]) *State[ID] {
	s.onUpdate = fn
	return s
}

// OnEnter sets the entry callback
func (s *State[ID]) OnEnter(fn Callback[ID]) *State[ID] {
	s.onEnter = fn
	return s
}

// OnExit sets the exit callback
func (s *State[ID]) OnExit(fn Callback[ID]) *State[ID] {
	s.onExit = fn
	return s
}

// OnTimeout sets the callback invoked when the timeout fires, before the jump
func (s *State[ID]) OnTimeout(fn Callback[ID]) *State[ID] {
	s.onTimeout = fn
	return s
}

// OnTimeoutLocked sets the callback invoked when the timeout expires while
// the state is fully locked
func (s *State[ID]) OnTimeoutLocked(fn Callback[ID]) *State[ID] {
	s.onTimeoutLocked = fn
	return s
}

// SetMinTime sets how long the state must be active before non-instant
// outgoing transitions become eligible. Negative values are treated as zero.
func (s *State[ID]) SetMinTime(seconds float64) *State[ID] {
	if seconds < 0 {
		seconds = 0
	}
	s.minTime = seconds
	return s
}

// MinTime returns the configured minimum time
func (s *State[ID]) MinTime() float64 {
	return s.minTime
}

// SetTimeout makes the state jump to target once it has been active for the
// given number of seconds. A non-positive value disables the timeout.
func (s *State[ID]) SetTimeout(seconds float64, target ID) *State[ID] {
	if seconds <= 0 {
		return s.ClearTimeout()
	}
	s.timeout = seconds
	s.timeoutTarget = target
	if s.timeoutEdge == nil {
		s.timeoutEdge = s.machine.newTransition(s.id, target, false)
	} else {
		s.timeoutEdge.to = target
	}
	return s
}

// ClearTimeout disables the timeout
func (s *State[ID]) ClearTimeout() *State[ID] {
	s.timeout = -1
	s.timeoutEdge = nil
	return s
}

// Timeout returns the timeout in seconds, -1 when disabled
func (s *State[ID]) Timeout() float64 {
	return s.timeout
}

// TimeoutTarget returns the state the timeout jumps to
func (s *State[ID]) TimeoutTarget() (ID, bool) {
	return s.timeoutTarget, s.timeout > 0
}

// TimeoutTransition returns the dedicated timeout edge, or nil when no
// timeout is configured. Use it to give the timeout its own cooldown.
func (s *State[ID]) TimeoutTransition() *Transition[ID] {
	return s.timeoutEdge
}

// SetProcessMode selects which host loop updates this state
func (s *State[ID]) SetProcessMode(mode ProcessMode) *State[ID] {
	s.processMode = mode
	return s
}

// ProcessMode returns the state's process mode
func (s *State[ID]) ProcessMode() ProcessMode {
	return s.processMode
}

// SetLockMode restricts outgoing transitions
func (s *State[ID]) SetLockMode(mode LockMode) *State[ID] {
	if s.lockMode != mode {
		s.lockMode = mode
		if s.machine != nil {
			s.machine.lastTimeoutBlock = BlockNone
		}
	}
	return s
}

// LockMode returns the state's lock mode
func (s *State[ID]) LockMode() LockMode {
	return s.lockMode
}

// SetCooldown sets how long the state cannot be re-entered after it is exited
func (s *State[ID]) SetCooldown(seconds float64) *State[ID] {
	s.cooldown.SetDuration(seconds)
	return s
}

// Cooldown returns the state's re-entry cooldown
func (s *State[ID]) Cooldown() *Cooldown {
	return &s.cooldown
}

// AddTag attaches tags to the state
func (s *State[ID]) AddTag(tags ...string) *State[ID] {
	for _, tag := range tags {
		if !s.HasTag(tag) {
			s.tags = append(s.tags, tag)
		}
	}
	return s
}

// RemoveTag detaches a tag
func (s *State[ID]) RemoveTag(tag string) *State[ID] {
	for i, t := range s.tags {
		if t == tag {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			break
		}
	}
	return s
}

// HasTag reports whether the state carries tag
func (s *State[ID]) HasTag(tag string) bool {
	for _, t := range s.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Tags returns the state's tags in insertion order
func (s *State[ID]) Tags() []string {
	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}

// Data returns the state's data store
func (s *State[ID]) Data() *Data {
	return s.data
}

// AddTransition creates an outgoing transition to the given state
func (s *State[ID]) AddTransition(to ID) (*Transition[ID], error) {
	return s.machine.AddTransition(s.id, to)
}

// RemoveTransition deletes every outgoing transition to the given state and
// returns how many were removed
func (s *State[ID]) RemoveTransition(to ID) int {
	kept := s.transitions[:0]
	removed := 0
	for _, t := range s.transitions {
		if t.to == to && !t.toInitial {
			t.removed = true
			removed++
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(s.transitions); i++ {
		s.transitions[i] = nil
	}
	s.transitions = kept
	if removed > 0 {
		s.machine.invalidateOrder()
	}
	return removed
}

// Transitions returns the state's outgoing transitions in insertion order
func (s *State[ID]) Transitions() []*Transition[ID] {
	out := make([]*Transition[ID], len(s.transitions))
	copy(out, s.transitions)
	return out
}

// path returns the states from the root down to s
func (s *State[ID]) path() []*State[ID] {
	depth := 0
	for cur := s; cur != nil; cur = cur.parent {
		depth++
	}
	out := make([]*State[ID], depth)
	for cur := s; cur != nil; cur = cur.parent {
		depth--
		out[depth] = cur
	}
	return out
}

func (s *State[ID]) isDescendantOf(ancestor *State[ID]) bool {
	for cur := s.parent; cur != nil; cur = cur.parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}
