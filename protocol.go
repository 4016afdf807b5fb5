package hfsm

import "fmt"

type transitionRequest[ID comparable] struct {
	target        ID
	bypassExit    bool
	bypassHistory bool
	// checkGate re-evaluates lock and cooldown when a queued explicit
	// request finally runs
	checkGate bool
	// forget leaves no trace of the outgoing leaf: no previous id and no
	// cooldown
	forget  bool
	payload *Data
}

// performTransition moves the machine to the leaf that target resolves to.
// Requests made while another transition is in flight are queued and run,
// in order, once it completes.
func (m *Machine[ID]) performTransition(req transitionRequest[ID]) error {
	s, ok := m.states[req.target]
	if !ok {
		err := NewStateNotFoundError(req.target)
		m.reportConfigError(err)
		return err
	}
	leaf, err := m.resolveLeaf(s)
	if err != nil {
		m.reportConfigError(err)
		return err
	}

	if m.transitioning {
		if len(m.pending) >= m.config.PendingQueueCapacity {
			err := NewMachineError(ErrCodeQueueOverflow, "transition",
				fmt.Sprintf("pending transition queue is full (%d), dropping request to '%s'; this usually means transitions are requesting each other in a loop",
					m.config.PendingQueueCapacity, formatID(req.target)))
			m.logger.LogError(err.Error(), "machine", m.config.Name, "target", formatID(req.target))
			m.observers.NotifyError(err)
			return err
		}
		m.pending = append(m.pending, req)
		return nil
	}

	if req.checkGate && m.requestGate(leaf) != BlockNone {
		m.drainPending()
		return nil
	}

	m.runTransition(req, leaf)
	m.drainPending()
	return nil
}

// runTransition performs the exit/enter sequence. Exits run from the
// current leaf up to, but excluding, the deepest common ancestor; entries
// run from just below it down to the target leaf.
func (m *Machine[ID]) runTransition(req transitionRequest[ID], leaf *State[ID]) {
	m.transitioning = true
	m.inFlight = req.payload
	defer func() {
		m.transitioning = false
		m.inFlight = nil
	}()

	from := m.current
	var fromPath []*State[ID]
	if from != nil {
		fromPath = from.path()
	}
	toPath := leaf.path()

	common := 0
	for common < len(fromPath) && common < len(toPath) && fromPath[common] == toPath[common] {
		common++
	}
	if common == len(toPath) {
		// self transition: leave and re-enter the leaf itself
		common = len(toPath) - 1
	}

	exits := !req.bypassExit && from != nil
	if exits && from.lockMode != LockFull {
		if m.history.active && !req.bypassHistory {
			m.history.record(from.id, m.stateTime)
		}
		for i := len(fromPath) - 1; i >= common; i-- {
			m.safeCall("exit", fromPath[i], fromPath[i].onExit)
			m.observers.NotifyStateExit(fromPath[i].id)
		}
	}

	m.stateTime = 0
	if from != nil && !req.forget {
		m.previousID = from.id
		m.hasPrevious = true
	}
	if exits && !req.forget {
		from.cooldown.Start()
	}

	for i := common; i < len(toPath); i++ {
		m.safeCall("enter", toPath[i], toPath[i].onEnter)
		m.observers.NotifyStateEnter(toPath[i].id)
	}

	m.current = leaf
	m.invalidateOrder()
	m.lastTimeoutBlock = BlockNone
	if from != nil {
		m.observers.NotifyStateChanged(from.id, leaf.id)
	}
}

// drainPending runs queued requests one at a time, oldest first
func (m *Machine[ID]) drainPending() {
	for len(m.pending) > 0 && !m.transitioning {
		if m.current == nil {
			m.pending = nil
			return
		}
		req := m.pending[0]
		m.pending = m.pending[1:]
		_ = m.performTransition(req)
	}
	if len(m.pending) == 0 {
		m.pending = nil
	}
}

// resolveLeaf follows default children down to a leaf
func (m *Machine[ID]) resolveLeaf(s *State[ID]) (*State[ID], error) {
	cur := s
	for steps := 0; !cur.IsLeaf(); steps++ {
		if steps > len(m.states) {
			return nil, NewConfigurationError("State",
				fmt.Sprintf("default child chain of '%s' does not terminate", formatID(s.id)))
		}
		if !cur.hasDefaultChild {
			return nil, NewConfigurationError("State",
				fmt.Sprintf("parent '%s' has no default child", formatID(cur.id)))
		}
		next := cur.childByID(cur.defaultChild)
		if next == nil {
			return nil, NewConfigurationError("State",
				fmt.Sprintf("default child '%s' of '%s' is not one of its children", formatID(cur.defaultChild), formatID(cur.id)))
		}
		cur = next
	}
	return cur, nil
}

// requestGate decides whether an explicit request may leave the current
// leaf for target
func (m *Machine[ID]) requestGate(target *State[ID]) BlockReason {
	if m.current == nil {
		return BlockNotRunning
	}
	if m.current.lockMode != LockNone {
		return BlockLocked
	}
	if target.cooldown.IsActive() {
		return BlockTargetCooldown
	}
	return BlockNone
}

// TransitionTo requests a move to id, bypassing transition conditions. It
// reports whether the request was performed or queued. Requests from a
// locked state or into a state on cooldown are declined without error; an
// unknown id is an error.
func (m *Machine[ID]) TransitionTo(id ID) (bool, error) {
	return m.TransitionToWithData(id, nil)
}

// TransitionToWithData is TransitionTo with a payload exposed through
// TransitionData while the transition runs. The payload is copied.
func (m *Machine[ID]) TransitionToWithData(id ID, payload *Data) (bool, error) {
	s, ok := m.states[id]
	if !ok {
		err := NewStateNotFoundError(id)
		m.reportConfigError(err)
		return false, err
	}
	leaf, err := m.resolveLeaf(s)
	if err != nil {
		m.reportConfigError(err)
		return false, err
	}

	req := transitionRequest[ID]{target: id, payload: payload.clone()}
	if m.transitioning {
		// Start and Reset enter the initial leaf before current is set, so
		// requests from those callbacks are queued like any other and gated
		// when they run
		req.checkGate = true
	} else {
		if m.current == nil || !(m.lifecycle.is(StatusRunning) || m.lifecycle.is(StatusPaused)) {
			return false, nil
		}
		if m.requestGate(leaf) != BlockNone {
			return false, nil
		}
	}

	if err := m.performTransition(req); err != nil {
		return false, err
	}
	return true, nil
}

// CanTransitionTo reports whether TransitionTo(id) would currently be
// performed, and if not, why.
func (m *Machine[ID]) CanTransitionTo(id ID) (bool, BlockReason) {
	if m.current == nil || !(m.lifecycle.is(StatusRunning) || m.lifecycle.is(StatusPaused)) {
		return false, BlockNotRunning
	}
	s, ok := m.states[id]
	if !ok {
		return false, BlockUnknownState
	}
	leaf, err := m.resolveLeaf(s)
	if err != nil {
		return false, BlockUnknownState
	}
	if reason := m.requestGate(leaf); reason != BlockNone {
		return false, reason
	}
	return true, BlockNone
}

// IsTransitioning reports whether a transition is in flight
func (m *Machine[ID]) IsTransitioning() bool {
	return m.transitioning
}

// PendingTransitions returns the number of queued transition requests
func (m *Machine[ID]) PendingTransitions() int {
	return len(m.pending)
}
