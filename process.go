package hfsm

import (
	"fmt"
	"slices"
)

// Process advances the machine by one tick of the given loop.
//
// When mode matches Config.CooldownMode every cooldown (states and
// transitions, active or not) and the history clock advance by delta. When
// mode matches the current leaf's process mode, the leaf's time advances,
// its update callback runs and transitions are checked: queued events
// first, then the timeout, then condition transitions in priority order.
func (m *Machine[ID]) Process(mode ProcessMode, delta float64) {
	if !m.lifecycle.is(StatusRunning) || m.current == nil {
		return
	}
	if delta < 0 {
		delta = 0
	}

	if mode == m.config.CooldownMode {
		m.advanceCooldowns(delta)
	}

	leaf := m.current
	if leaf.processMode != mode {
		return
	}

	m.stateTime += delta
	m.safeUpdate(leaf, delta)

	// The update callback may have moved or paused the machine
	if m.current != leaf || !m.lifecycle.is(StatusRunning) {
		return
	}
	m.checkTransitions()
}

func (m *Machine[ID]) advanceCooldowns(delta float64) {
	for _, id := range m.order {
		s := m.states[id]
		s.cooldown.Update(delta)
		for _, t := range s.transitions {
			t.cooldown.Update(delta)
		}
		if s.timeoutEdge != nil {
			s.timeoutEdge.cooldown.Update(delta)
		}
	}
	for _, t := range m.globals {
		t.cooldown.Update(delta)
	}
	m.history.advance(delta)
}

func (m *Machine[ID]) checkTransitions() {
	m.drainEvents()
	if m.current == nil || !m.lifecycle.is(StatusRunning) {
		return
	}

	// an event may have moved the machine; the remaining checks run
	// against whichever leaf is current now
	leaf := m.current
	if leaf.timeout > 0 && m.stateTime >= leaf.timeout {
		m.handleTimeout(leaf)
		return
	}

	if leaf.lockMode != LockNone {
		return
	}

	for _, t := range m.candidates() {
		if m.current != leaf {
			return
		}
		if t.removed || t.event != "" || t.condition == nil {
			continue
		}
		// guards and conditions may request transitions of their own
		reason := m.gate(t)
		if m.current != leaf {
			return
		}
		if reason != BlockNone || m.skipGlobalSelf(t) {
			continue
		}
		ok := m.safePredicate("condition", leaf, t.condition)
		if m.current != leaf {
			return
		}
		if !ok {
			continue
		}
		m.fire(t)
		return
	}
}

// candidates returns the transitions of the current leaf, its ancestors and
// the global transitions, ordered by Compare. The order is cached per leaf.
func (m *Machine[ID]) candidates() []*Transition[ID] {
	if m.orderCacheValid && m.orderCacheLeaf == m.current {
		return m.orderCache
	}

	list := make([]*Transition[ID], 0, len(m.orderCache))
	for s := m.current; s != nil; s = s.parent {
		list = append(list, s.transitions...)
	}
	list = append(list, m.globals...)
	slices.SortStableFunc(list, Compare[ID])

	m.orderCache = list
	m.orderCacheLeaf = m.current
	m.orderCacheValid = true
	return list
}

// gate evaluates everything except the trigger: guard, min time, the
// transition's cooldown and the resolved target's cooldown
func (m *Machine[ID]) gate(t *Transition[ID]) BlockReason {
	if t.guard != nil && !m.safePredicate("guard", m.current, t.guard) {
		return BlockGuard
	}
	if !t.forceInstant {
		minTime := t.effectiveMinTime(m.current)
		if minTime > 0 && m.stateTime <= minTime {
			return BlockMinTime
		}
	}
	if t.cooldown.IsActive() {
		return BlockTransitionCooldown
	}
	target, err := m.resolveTransitionTarget(t)
	if err != nil {
		return BlockUnknownState
	}
	if target.cooldown.IsActive() {
		return BlockTargetCooldown
	}
	return BlockNone
}

// skipGlobalSelf keeps global transitions from re-entering the leaf they target
func (m *Machine[ID]) skipGlobalSelf(t *Transition[ID]) bool {
	if !t.global {
		return false
	}
	target, err := m.resolveTransitionTarget(t)
	return err == nil && target == m.current
}

func (m *Machine[ID]) resolveTransitionTarget(t *Transition[ID]) (*State[ID], error) {
	id := t.To()
	s, ok := m.states[id]
	if !ok {
		return nil, NewStateNotFoundError(id)
	}
	return m.resolveLeaf(s)
}

// fire runs a transition that passed its gates
func (m *Machine[ID]) fire(t *Transition[ID]) {
	from := m.current
	target := t.To()

	t.cooldown.Start()
	m.safeCall("triggered", from, t.onTriggered)
	if m.current != from {
		return
	}
	m.observers.NotifyTransitionTriggered(from.id, target)
	_ = m.performTransition(transitionRequest[ID]{
		target:  target,
		payload: t.payload.clone(),
	})
}

// handleTimeout runs the timeout protocol for an expired leaf
func (m *Machine[ID]) handleTimeout(leaf *State[ID]) {
	if leaf.lockMode == LockFull {
		m.timeoutBlocked(leaf, BlockLocked)
		return
	}

	target, ok := m.states[leaf.timeoutTarget]
	if !ok {
		m.timeoutBlocked(leaf, BlockUnknownState)
		return
	}
	targetLeaf, err := m.resolveLeaf(target)
	if err != nil {
		m.timeoutBlocked(leaf, BlockUnknownState)
		return
	}

	edge := leaf.timeoutEdge
	if edge != nil && edge.cooldown.IsActive() {
		m.timeoutBlocked(leaf, BlockTransitionCooldown)
		return
	}
	if targetLeaf.cooldown.IsActive() {
		m.timeoutBlocked(leaf, BlockTargetCooldown)
		return
	}

	m.lastTimeoutBlock = BlockNone
	var payload *Data
	if edge != nil {
		edge.cooldown.Start()
		payload = edge.payload.clone()
	}
	m.safeCall("timeout", leaf, leaf.onTimeout)
	if m.current != leaf {
		return
	}
	m.observers.NotifyStateTimeout(leaf.id)
	m.observers.NotifyTransitionTriggered(leaf.id, target.id)
	_ = m.performTransition(transitionRequest[ID]{
		target:  target.id,
		payload: payload,
	})
}

// timeoutBlocked handles a timeout that cannot jump. The timer is not reset,
// so the timeout is retried on every tick until it can jump. The
// timeout-while-locked callback runs on every such tick; the TimeoutBlocked
// notification and the configuration error are reported once per reason.
func (m *Machine[ID]) timeoutBlocked(leaf *State[ID], reason BlockReason) {
	if reason == BlockLocked {
		m.safeCall("timeoutLocked", leaf, leaf.onTimeoutLocked)
	}
	if m.lastTimeoutBlock == reason || m.current != leaf {
		return
	}
	m.lastTimeoutBlock = reason

	if reason == BlockUnknownState {
		err := NewConfigurationError("State",
			fmt.Sprintf("timeout target '%s' of '%s' cannot be resolved", formatID(leaf.timeoutTarget), formatID(leaf.id)))
		m.reportConfigError(err)
	}
	m.observers.NotifyTimeoutBlocked(leaf.id, reason)
}
