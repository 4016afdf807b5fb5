// Package hfsm provides a hierarchical finite state machine engine for
// real-time, tick-driven applications such as game characters, UI flows and
// controllers.
//
// A Machine owns a table of states arranged in a parent/child forest. Exactly
// one leaf state is active at a time. The host calls Process once per tick;
// the machine advances cooldowns, runs the active leaf's update callback and
// then decides on its own whether to move to another state, based on
// declarative transitions: guards, conditions, events, timeouts, priorities
// and cooldowns.
//
// The engine is single-threaded. Callbacks may call back into the machine;
// transitions requested while another transition is in flight are queued and
// executed strictly afterwards. Callers embedding a Machine in a
// multithreaded host must serialize all calls to one instance.
package hfsm

// ProcessMode selects which host loop drives a state's update and timers
type ProcessMode int

const (
	// ProcessIdle is the per-frame (variable delta) loop
	ProcessIdle ProcessMode = iota
	// ProcessFixed is the fixed-step (physics) loop
	ProcessFixed
)

// String returns the lower-case name of the mode
func (p ProcessMode) String() string {
	switch p {
	case ProcessIdle:
		return "idle"
	case ProcessFixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (p ProcessMode) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *ProcessMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle", "Idle", "IDLE", "":
		*p = ProcessIdle
	case "fixed", "Fixed", "FIXED", "physics":
		*p = ProcessFixed
	default:
		return NewConfigurationError("ProcessMode", "unknown process mode '"+string(text)+"'")
	}
	return nil
}

// LockMode restricts which transitions may leave a state
type LockMode int

const (
	// LockNone places no restriction on outgoing transitions
	LockNone LockMode = iota
	// LockTransition blocks condition, event and requested transitions but still honours timeouts
	LockTransition
	// LockFull blocks every outgoing transition, including timeouts
	LockFull
)

// String returns the lower-case name of the lock mode
func (l LockMode) String() string {
	switch l {
	case LockNone:
		return "none"
	case LockTransition:
		return "transition"
	case LockFull:
		return "full"
	default:
		return "unknown"
	}
}

// BlockReason explains why a transition did not or could not happen.
// Blocked transitions are expected outcomes, not errors.
type BlockReason int

const (
	// BlockNone means nothing prevents the transition
	BlockNone BlockReason = iota
	// BlockNotRunning means the machine is not started, paused or has no current state
	BlockNotRunning
	// BlockUnknownState means the target id is not registered
	BlockUnknownState
	// BlockLocked means the current state's lock mode forbids leaving it
	BlockLocked
	// BlockTargetCooldown means the resolved target state is cooling down
	BlockTargetCooldown
	// BlockTransitionCooldown means the transition itself is cooling down
	BlockTransitionCooldown
	// BlockGuard means the transition's guard rejected it
	BlockGuard
	// BlockMinTime means the current state has not been active long enough
	BlockMinTime
)

// String returns a short description of the reason
func (r BlockReason) String() string {
	switch r {
	case BlockNone:
		return "none"
	case BlockNotRunning:
		return "not running"
	case BlockUnknownState:
		return "unknown state"
	case BlockLocked:
		return "locked"
	case BlockTargetCooldown:
		return "target on cooldown"
	case BlockTransitionCooldown:
		return "transition on cooldown"
	case BlockGuard:
		return "guard failed"
	case BlockMinTime:
		return "min time not reached"
	default:
		return "unknown"
	}
}
