package hfsm

// HistoryEntry records one exited leaf
type HistoryEntry[ID comparable] struct {
	StateID   ID
	TimeSpent float64
	// Timestamp is the machine's history clock at exit time
	Timestamp float64
}

// historyBuffer is a bounded log of exited leaves, oldest first
type historyBuffer[ID comparable] struct {
	entries  []HistoryEntry[ID]
	capacity int
	clock    float64
	active   bool
}

func newHistoryBuffer[ID comparable](capacity int, active bool) *historyBuffer[ID] {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &historyBuffer[ID]{
		entries:  make([]HistoryEntry[ID], 0, capacity),
		capacity: capacity,
		active:   active,
	}
}

func (h *historyBuffer[ID]) advance(delta float64) {
	h.clock += delta
}

func (h *historyBuffer[ID]) record(id ID, timeSpent float64) {
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, HistoryEntry[ID]{StateID: id, TimeSpent: timeSpent, Timestamp: h.clock})
}

// peek returns the entry steps back from the newest (1 = newest)
func (h *historyBuffer[ID]) peek(steps int) (HistoryEntry[ID], bool) {
	if steps <= 0 || steps > len(h.entries) {
		return HistoryEntry[ID]{}, false
	}
	return h.entries[len(h.entries)-steps], true
}

// truncate drops the entry steps back and everything newer
func (h *historyBuffer[ID]) truncate(steps int) {
	if steps <= 0 {
		return
	}
	if steps > len(h.entries) {
		steps = len(h.entries)
	}
	h.entries = h.entries[:len(h.entries)-steps]
}

// find returns how many steps back the most recent entry for id is
func (h *historyBuffer[ID]) find(id ID) (int, bool) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].StateID == id {
			return len(h.entries) - i, true
		}
	}
	return 0, false
}

// purge removes every entry for id
func (h *historyBuffer[ID]) purge(id ID) {
	kept := h.entries[:0]
	for _, e := range h.entries {
		if e.StateID != id {
			kept = append(kept, e)
		}
	}
	h.entries = kept
}

func (h *historyBuffer[ID]) clear() {
	h.entries = h.entries[:0]
}

func (h *historyBuffer[ID]) snapshot() []HistoryEntry[ID] {
	out := make([]HistoryEntry[ID], len(h.entries))
	copy(out, h.entries)
	return out
}

// SetHistoryActive turns history recording on or off. Existing entries are kept.
func (m *Machine[ID]) SetHistoryActive(active bool) {
	m.history.active = active
}

// HistoryActive reports whether exited leaves are being recorded
func (m *Machine[ID]) HistoryActive() bool {
	return m.history.active
}

// GoBack returns to the leaf exited steps transitions ago (1 = the most
// recent) and discards that entry and every newer one. The move is not
// recorded. It is declined when the current leaf is locked.
func (m *Machine[ID]) GoBack(steps int) bool {
	if !m.transitioning {
		if m.current == nil || !(m.lifecycle.is(StatusRunning) || m.lifecycle.is(StatusPaused)) {
			return false
		}
		if m.current.lockMode != LockNone {
			return false
		}
	}
	entry, ok := m.history.peek(steps)
	if !ok {
		return false
	}
	s, exists := m.states[entry.StateID]
	if !exists {
		return false
	}
	if _, err := m.resolveLeaf(s); err != nil {
		return false
	}

	req := transitionRequest[ID]{
		target:        entry.StateID,
		bypassHistory: true,
	}
	if m.transitioning {
		// queued: the history only changes once the request is accepted
		if err := m.performTransition(req); err != nil {
			return false
		}
		m.history.truncate(steps)
		return true
	}

	// the move may cascade into transitions that record new entries, so the
	// buffer is cut before it starts
	m.history.truncate(steps)
	return m.performTransition(req) == nil
}

// GoBackToState goes back to the most recent history entry for id
func (m *Machine[ID]) GoBackToState(id ID) bool {
	steps, ok := m.history.find(id)
	if !ok {
		return false
	}
	return m.GoBack(steps)
}

// PeekBack returns the state exited steps transitions ago without moving
func (m *Machine[ID]) PeekBack(steps int) (ID, bool) {
	entry, ok := m.history.peek(steps)
	return entry.StateID, ok
}

// FindInHistory returns how many steps back the most recent entry for id is
func (m *Machine[ID]) FindInHistory(id ID) (int, bool) {
	return m.history.find(id)
}

// History returns a copy of the recorded entries, oldest first
func (m *Machine[ID]) History() []HistoryEntry[ID] {
	return m.history.snapshot()
}

// ClearHistory discards every recorded entry
func (m *Machine[ID]) ClearHistory() {
	m.history.clear()
}
