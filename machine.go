package hfsm

import (
	"fmt"

	"github.com/google/uuid"
)

// Machine is a hierarchical state machine driven by Process ticks
type Machine[ID comparable] struct {
	instanceID uuid.UUID
	config     Config
	logger     Logger
	lifecycle  *lifecycle
	observers  *ObserverManager[ID]

	states     map[ID]*State[ID]
	order      []ID
	initialID  ID
	hasInitial bool
	globals    []*Transition[ID]
	nextIndex  uint64

	current     *State[ID]
	previousID  ID
	hasPrevious bool
	stateTime   float64

	transitioning  bool
	pending        []transitionRequest[ID]
	events         []string
	scanningEvents bool
	listeners      *listenerTable[ID]

	orderCache       []*Transition[ID]
	orderCacheLeaf   *State[ID]
	orderCacheValid  bool
	lastTimeoutBlock BlockReason

	data     *Data
	inFlight *Data
	history  *historyBuffer[ID]
}

// NewMachine creates an empty machine. States and transitions can be added
// before or after Start.
func NewMachine[ID comparable](opts ...Option) *Machine[ID] {
	o := &options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.config
	var cfgErr error
	if err := cfg.Validate(); err != nil {
		cfgErr = err
		name := cfg.Name
		cfg = DefaultConfig()
		if name != "" {
			cfg.Name = name
		}
	}

	logger := o.logger
	if logger == nil {
		logger = NewZapLogger(NewDefaultLogger(cfg.Name, cfg.LogLevel, cfg.LogFormat))
	}

	m := &Machine[ID]{
		instanceID: uuid.New(),
		config:     cfg,
		logger:     logger,
		lifecycle:  newLifecycle(),
		observers:  NewObserverManager[ID](),
		states:     make(map[ID]*State[ID]),
		listeners:  newListenerTable[ID](),
		data:       NewData(),
		history:    newHistoryBuffer[ID](cfg.HistoryCapacity, cfg.HistoryActive),
	}

	if cfgErr != nil {
		m.logger.LogError("invalid machine config, using defaults", "machine", cfg.Name, "error", cfgErr)
	}
	return m
}

// Name returns the configured machine name
func (m *Machine[ID]) Name() string {
	return m.config.Name
}

// InstanceID returns the unique id of this machine instance
func (m *Machine[ID]) InstanceID() uuid.UUID {
	return m.instanceID
}

// Config returns the machine's configuration
func (m *Machine[ID]) Config() Config {
	return m.config
}

// AddObserver registers an observer
func (m *Machine[ID]) AddObserver(observer Observer[ID]) {
	m.observers.AddObserver(observer)
}

// RemoveObserver unregisters an observer
func (m *Machine[ID]) RemoveObserver(observer Observer[ID]) {
	m.observers.RemoveObserver(observer)
}

// AddState registers a root state. The first root state added becomes the
// initial state unless SetInitialState says otherwise.
func (m *Machine[ID]) AddState(id ID) (*State[ID], error) {
	if err := m.checkConfigurable("AddState"); err != nil {
		return nil, err
	}
	if _, exists := m.states[id]; exists {
		err := NewDuplicateStateError(id)
		m.reportConfigError(err)
		return nil, err
	}

	s := newState(m, id)
	m.register(s)
	if !m.hasInitial {
		m.initialID = id
		m.hasInitial = true
	}
	return s, nil
}

// AddChildState registers a state under parentID. The first child of a
// parent becomes its default child.
func (m *Machine[ID]) AddChildState(parentID, id ID) (*State[ID], error) {
	if err := m.checkConfigurable("AddChildState"); err != nil {
		return nil, err
	}
	parent, ok := m.states[parentID]
	if !ok {
		err := NewStateNotFoundError(parentID)
		m.reportConfigError(err)
		return nil, err
	}
	if _, exists := m.states[id]; exists {
		err := NewDuplicateStateError(id)
		m.reportConfigError(err)
		return nil, err
	}
	if parent == m.current {
		err := NewConfigurationError("State",
			fmt.Sprintf("cannot add child '%s' to the active leaf '%s'", formatID(id), formatID(parentID)))
		m.reportConfigError(err)
		return nil, err
	}

	s := newState(m, id)
	s.parent = parent
	parent.children = append(parent.children, s)
	if !parent.hasDefaultChild {
		parent.defaultChild = id
		parent.hasDefaultChild = true
	}
	m.register(s)
	return s, nil
}

func (m *Machine[ID]) register(s *State[ID]) {
	m.states[s.id] = s
	m.order = append(m.order, s.id)
	if m.lifecycle.can(eventConfigure) {
		_ = m.lifecycle.fire("AddState", eventConfigure)
	}
	m.invalidateOrder()
}

// RemoveState unregisters a state together with every transition that
// targets it. Removing the last state, an active state, a state with
// children, or doing so mid-transition is rejected.
func (m *Machine[ID]) RemoveState(id ID) error {
	if err := m.checkConfigurable("RemoveState"); err != nil {
		return err
	}
	s, ok := m.states[id]
	if !ok {
		err := NewStateNotFoundError(id)
		m.reportConfigError(err)
		return err
	}
	if len(m.states) == 1 {
		err := NewStateError(ErrCodeInvalidConfiguration, id, "cannot remove the last state")
		m.reportConfigError(err)
		return err
	}
	if len(s.children) > 0 {
		err := NewStateError(ErrCodeInvalidConfiguration, id, "cannot remove a state that has children")
		m.reportConfigError(err)
		return err
	}
	if m.current == s {
		err := NewStateError(ErrCodeInvalidConfiguration, id, "cannot remove the active state")
		m.reportConfigError(err)
		return err
	}

	if parent := s.parent; parent != nil {
		for i, child := range parent.children {
			if child == s {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
		if parent.hasDefaultChild && parent.defaultChild == id {
			parent.hasDefaultChild = false
			if len(parent.children) > 0 {
				parent.defaultChild = parent.children[0].id
				parent.hasDefaultChild = true
			}
		}
	}

	for _, t := range s.transitions {
		t.removed = true
	}
	for _, other := range m.states {
		if other == s {
			continue
		}
		other.RemoveTransition(id)
		if other.timeout > 0 && other.timeoutTarget == id {
			m.logger.LogWarning("clearing timeout that targeted a removed state",
				"machine", m.config.Name, "state", formatID(other.id), "target", formatID(id))
			other.ClearTimeout()
		}
	}
	m.RemoveGlobalTransition(id)

	delete(m.states, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.hasInitial && m.initialID == id {
		m.hasInitial = false
		for _, oid := range m.order {
			if m.states[oid].parent == nil {
				m.initialID = oid
				m.hasInitial = true
				break
			}
		}
	}
	m.history.purge(id)
	m.invalidateOrder()
	return nil
}

// SetInitialState selects the state entered by Start and Reset. A parent
// resolves to its default leaf.
func (m *Machine[ID]) SetInitialState(id ID) error {
	if _, ok := m.states[id]; !ok {
		err := NewStateNotFoundError(id)
		m.reportConfigError(err)
		return err
	}
	m.initialID = id
	m.hasInitial = true
	return nil
}

// InitialID returns the initial state
func (m *Machine[ID]) InitialID() (ID, bool) {
	return m.initialID, m.hasInitial
}

// AddTransition creates a transition between two registered states
func (m *Machine[ID]) AddTransition(from, to ID) (*Transition[ID], error) {
	src, ok := m.states[from]
	if !ok {
		err := NewTransitionError(ErrCodeStateNotFound, from, to, "source state not found")
		m.reportConfigError(err)
		return nil, err
	}
	if _, ok := m.states[to]; !ok {
		err := NewTransitionError(ErrCodeStateNotFound, from, to, "target state not found")
		m.reportConfigError(err)
		return nil, err
	}

	t := m.newTransition(from, to, false)
	src.transitions = append(src.transitions, t)
	m.invalidateOrder()
	return t, nil
}

// AddSelfTransition creates a transition that exits and re-enters its source
func (m *Machine[ID]) AddSelfTransition(id ID) (*Transition[ID], error) {
	return m.AddTransition(id, id)
}

// AddResetTransition creates a transition from a state to whatever the
// initial state is when it fires
func (m *Machine[ID]) AddResetTransition(from ID) (*Transition[ID], error) {
	src, ok := m.states[from]
	if !ok {
		err := NewTransitionError(ErrCodeStateNotFound, from, "<initial>", "source state not found")
		m.reportConfigError(err)
		return nil, err
	}

	var zero ID
	t := m.newTransition(from, zero, false)
	t.toInitial = true
	src.transitions = append(src.transitions, t)
	m.invalidateOrder()
	return t, nil
}

// AddGlobalTransition creates a transition evaluated from whichever state is
// active. It never fires when its target resolves to the active leaf.
func (m *Machine[ID]) AddGlobalTransition(to ID) (*Transition[ID], error) {
	if _, ok := m.states[to]; !ok {
		err := NewTransitionError(ErrCodeStateNotFound, "<global>", to, "target state not found")
		m.reportConfigError(err)
		return nil, err
	}

	var zero ID
	t := m.newTransition(zero, to, true)
	m.globals = append(m.globals, t)
	m.invalidateOrder()
	return t, nil
}

// RemoveTransition deletes every transition from one state to another
func (m *Machine[ID]) RemoveTransition(from, to ID) int {
	src, ok := m.states[from]
	if !ok {
		return 0
	}
	return src.RemoveTransition(to)
}

// RemoveGlobalTransition deletes every global transition to a state
func (m *Machine[ID]) RemoveGlobalTransition(to ID) int {
	kept := m.globals[:0]
	removed := 0
	for _, t := range m.globals {
		if t.to == to {
			t.removed = true
			removed++
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(m.globals); i++ {
		m.globals[i] = nil
	}
	m.globals = kept
	if removed > 0 {
		m.invalidateOrder()
	}
	return removed
}

// GlobalTransitions returns the global transitions in insertion order
func (m *Machine[ID]) GlobalTransitions() []*Transition[ID] {
	out := make([]*Transition[ID], len(m.globals))
	copy(out, m.globals)
	return out
}

func (m *Machine[ID]) newTransition(from, to ID, global bool) *Transition[ID] {
	m.nextIndex++
	return &Transition[ID]{
		machine: m,
		from:    from,
		to:      to,
		global:  global,
		index:   m.nextIndex,
	}
}

func (m *Machine[ID]) invalidateOrder() {
	m.orderCacheValid = false
}

// Start validates the configuration and enters the initial leaf, shallowest
// state first. Exit callbacks and history are bypassed.
func (m *Machine[ID]) Start() error {
	if m.transitioning {
		return m.transitionInProgress("Start")
	}
	if m.lifecycle.is(StatusUninitialized) {
		err := NewConfigurationError("Machine", "no states defined")
		m.reportConfigError(err)
		return err
	}
	if !m.lifecycle.is(StatusStopped) {
		return NewMachineError(ErrCodeInvalidStatus, "Start", "machine is already started")
	}
	if err := m.Validate(); err != nil {
		m.reportConfigError(err)
		return err
	}
	if err := m.lifecycle.fire("Start", eventStart); err != nil {
		return err
	}

	m.stateTime = 0
	m.hasPrevious = false
	initial, err := m.resolveLeaf(m.states[m.initialID])
	if err != nil {
		_ = m.lifecycle.fire("Start", eventStop)
		return err
	}
	if err := m.performTransition(transitionRequest[ID]{
		target:        m.initialID,
		bypassExit:    true,
		bypassHistory: true,
	}); err != nil {
		_ = m.lifecycle.fire("Start", eventStop)
		return err
	}
	if m.current != nil {
		m.observers.NotifyMachineStarted(initial.id)
	}
	return nil
}

// Stop exits the active hierarchy, deepest state first, and discards queued
// events and transitions. The machine can be started again.
func (m *Machine[ID]) Stop() error {
	if m.transitioning {
		return m.transitionInProgress("Stop")
	}
	if !m.lifecycle.can(eventStop) {
		return NewMachineNotStartedError("Stop")
	}

	if m.current != nil {
		path := m.current.path()
		for i := len(path) - 1; i >= 0; i-- {
			m.safeCall("exit", path[i], path[i].onExit)
			m.observers.NotifyStateExit(path[i].id)
		}
	}
	m.current = nil
	m.stateTime = 0
	m.pending = nil
	m.events = nil
	m.invalidateOrder()

	if err := m.lifecycle.fire("Stop", eventStop); err != nil {
		return err
	}
	m.observers.NotifyMachineStopped()
	return nil
}

// Clear removes every state and transition from a stopped machine, returning
// it to the uninitialized status. Listeners and observers are kept.
func (m *Machine[ID]) Clear() error {
	if err := m.lifecycle.fire("Clear", eventClear); err != nil {
		return err
	}
	for _, t := range m.globals {
		t.removed = true
	}
	m.states = make(map[ID]*State[ID])
	m.order = nil
	m.globals = nil
	var zero ID
	m.initialID = zero
	m.hasInitial = false
	m.previousID = zero
	m.hasPrevious = false
	m.history.clear()
	m.invalidateOrder()
	return nil
}

// Pause suspends Process without touching any state
func (m *Machine[ID]) Pause() error {
	return m.lifecycle.fire("Pause", eventPause)
}

// Resume continues a paused machine
func (m *Machine[ID]) Resume() error {
	return m.lifecycle.fire("Resume", eventResume)
}

// Reset re-enters the initial leaf and clears history, previous-state
// tracking, cooldowns and queued events.
func (m *Machine[ID]) Reset() error {
	if m.transitioning {
		return m.transitionInProgress("Reset")
	}
	if m.current == nil || !(m.lifecycle.is(StatusRunning) || m.lifecycle.is(StatusPaused)) {
		return NewMachineNotStartedError("Reset")
	}

	m.events = nil
	m.pending = nil
	m.history.clear()
	var zero ID
	m.previousID = zero
	m.hasPrevious = false
	m.resetCooldowns()

	// transitions queued by the initial leaf's enter callbacks run after
	// this and keep their history, previous id and cooldowns
	return m.performTransition(transitionRequest[ID]{
		target:        m.initialID,
		bypassHistory: true,
		forget:        true,
	})
}

func (m *Machine[ID]) resetCooldowns() {
	for _, id := range m.order {
		s := m.states[id]
		s.cooldown.Reset()
		for _, t := range s.transitions {
			t.cooldown.Reset()
		}
		if s.timeoutEdge != nil {
			s.timeoutEdge.cooldown.Reset()
		}
	}
	for _, t := range m.globals {
		t.cooldown.Reset()
	}
}

// Data returns the machine-wide data store
func (m *Machine[ID]) Data() *Data {
	return m.data
}

// SetData stores a value in the machine-wide data store
func (m *Machine[ID]) SetData(key string, value any) {
	m.data.Set(key, value)
}

// GetData returns a value from the machine-wide data store, nil when missing
func (m *Machine[ID]) GetData(key string) any {
	value, _ := m.data.Get(key)
	return value
}

// TryGetData returns a value from the machine-wide data store
func (m *Machine[ID]) TryGetData(key string) (any, bool) {
	return m.data.Get(key)
}

// TransitionData returns the payload of the transition in flight. Outside
// a transition it returns an empty, detached store.
func (m *Machine[ID]) TransitionData() *Data {
	if m.inFlight == nil {
		return NewData()
	}
	return m.inFlight
}

func (m *Machine[ID]) checkConfigurable(operation string) error {
	if m.transitioning {
		return m.transitionInProgress(operation)
	}
	return nil
}

func (m *Machine[ID]) transitionInProgress(operation string) error {
	err := NewMachineError(ErrCodeTransitionInProgress, operation, "not allowed while a transition is in progress")
	m.logger.LogError(err.Error(), "machine", m.config.Name)
	m.observers.NotifyError(err)
	return err
}

func (m *Machine[ID]) reportConfigError(err error) {
	m.logger.LogError(err.Error(), "machine", m.config.Name)
	m.observers.NotifyError(err)
}

// safeCall runs a user callback, converting a panic into a logged CallbackError
func (m *Machine[ID]) safeCall(name string, s *State[ID], fn Callback[ID]) {
	if fn == nil {
		return
	}
	defer m.recoverCallback(name, s)
	fn(m)
}

func (m *Machine[ID]) safeUpdate(s *State[ID], delta float64) {
	if s.onUpdate == nil {
		return
	}
	defer m.recoverCallback("update", s)
	s.onUpdate(m, delta)
}

func (m *Machine[ID]) safePredicate(name string, s *State[ID], fn Predicate[ID]) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			result = false
			m.reportCallbackPanic(name, s, r)
		}
	}()
	return fn(m)
}

func (m *Machine[ID]) recoverCallback(name string, s *State[ID]) {
	if r := recover(); r != nil {
		m.reportCallbackPanic(name, s, r)
	}
}

func (m *Machine[ID]) reportCallbackPanic(name string, s *State[ID], r any) {
	stateName := ""
	if s != nil {
		stateName = formatID(s.id)
	}
	err := &CallbackError{Callback: name, State: stateName, Value: r}
	m.logger.LogError(err.Error(), "machine", m.config.Name)
	m.observers.NotifyError(err)
}

func formatID(id any) string {
	return fmt.Sprint(id)
}
