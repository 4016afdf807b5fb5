package hfsm

import (
	"fmt"
	"sync"
	"testing"
)

// TestObserver records every notification for assertions
type TestObserver struct {
	mutex          sync.RWMutex
	Changes        []string
	Triggered      []string
	Enters         []string
	Exits          []string
	Timeouts       []string
	TimeoutBlocks  []BlockReason
	Events         []string
	Errors         []error
	Started        []string
	StoppedCount   int
}

func NewTestObserver() *TestObserver {
	return &TestObserver{}
}

func (o *TestObserver) OnStateChanged(from, to string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Changes = append(o.Changes, from+"->"+to)
}

func (o *TestObserver) OnTransitionTriggered(from, to string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Triggered = append(o.Triggered, from+"->"+to)
}

func (o *TestObserver) OnStateEnter(state string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Enters = append(o.Enters, state)
}

func (o *TestObserver) OnStateExit(state string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Exits = append(o.Exits, state)
}

func (o *TestObserver) OnStateTimeout(state string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Timeouts = append(o.Timeouts, state)
}

func (o *TestObserver) OnTimeoutBlocked(state string, reason BlockReason) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.TimeoutBlocks = append(o.TimeoutBlocks, reason)
}

func (o *TestObserver) OnEventDispatched(event string, handled bool) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Events = append(o.Events, fmt.Sprintf("%s:%t", event, handled))
}

func (o *TestObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Errors = append(o.Errors, err)
}

func (o *TestObserver) OnMachineStarted(initial string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Started = append(o.Started, initial)
}

func (o *TestObserver) OnMachineStopped() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.StoppedCount++
}

// newTestMachine builds a machine that logs nowhere
func newTestMachine(opts ...Option) *Machine[string] {
	return NewMachine[string](append([]Option{WithLogger(NopLogger())}, opts...)...)
}

// CreateSimpleMachine builds idle -> walk -> run driven by the "moving" and
// "sprint" data flags
func CreateSimpleMachine() *Machine[string] {
	m := newTestMachine(WithName("simple"))
	_, _ = m.AddState("idle")
	_, _ = m.AddState("walk")
	_, _ = m.AddState("run")

	t1, _ := m.AddTransition("idle", "walk")
	t1.When(flag("moving"))
	t2, _ := m.AddTransition("walk", "idle")
	t2.When(not(flag("moving")))
	t3, _ := m.AddTransition("walk", "run")
	t3.When(flag("sprint"))
	return m
}

func flag(key string) Predicate[string] {
	return func(m *Machine[string]) bool {
		v, _ := TryGetAs[bool](m.Data(), key)
		return v
	}
}

func not(p Predicate[string]) Predicate[string] {
	return func(m *Machine[string]) bool { return !p(m) }
}

// tick calls Process n times on the idle loop
func tick(m *Machine[string], n int, delta float64) {
	for i := 0; i < n; i++ {
		m.Process(ProcessIdle, delta)
	}
}

// AssertState checks the active leaf
func AssertState(t *testing.T, m *Machine[string], expected string) {
	t.Helper()
	current, ok := m.CurrentID()
	if !ok {
		t.Fatalf("Expected state %s, machine has no current state", expected)
	}
	if current != expected {
		t.Errorf("Expected state %s, got %s", expected, current)
	}
}

// recorder returns a callback that appends label to log
func recorder(log *[]string, label string) Callback[string] {
	return func(*Machine[string]) { *log = append(*log, label) }
}
