package observers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/anggasct/hfsm"
)

// ValidationObserver checks observed behaviour against expectations: which
// states should be visited and which state changes are allowed. It is meant
// for tests and soak runs.
type ValidationObserver[ID comparable] struct {
	hfsm.BaseObserver[ID]

	expectedStates     map[ID]bool
	visitedStates      map[ID]bool
	allowedTransitions map[ID]map[ID]bool
	violations         []string
	mutex              sync.RWMutex
}

// NewValidationObserver creates a new validation observer
func NewValidationObserver[ID comparable]() *ValidationObserver[ID] {
	return &ValidationObserver[ID]{
		expectedStates:     make(map[ID]bool),
		visitedStates:      make(map[ID]bool),
		allowedTransitions: make(map[ID]map[ID]bool),
		violations:         make([]string, 0),
	}
}

// AddExpectedState adds a state that should be entered at least once
func (o *ValidationObserver[ID]) AddExpectedState(state ID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.expectedStates[state] = true
}

// AddAllowedTransition allows a state change. Once any change from a state
// is allowed, every other change from it is a violation.
func (o *ValidationObserver[ID]) AddAllowedTransition(from, to ID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, exists := o.allowedTransitions[from]; !exists {
		o.allowedTransitions[from] = make(map[ID]bool)
	}
	o.allowedTransitions[from][to] = true
}

func (o *ValidationObserver[ID]) OnStateEnter(state ID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.visitedStates[state] = true
}

func (o *ValidationObserver[ID]) OnStateChanged(from, to ID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if allowed, exists := o.allowedTransitions[from]; exists && !allowed[to] {
		o.violations = append(o.violations, fmt.Sprintf(
			"invalid transition from '%v' to '%v'", from, to))
	}
}

func (o *ValidationObserver[ID]) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.violations = append(o.violations, fmt.Sprintf("error occurred: %v", err))
}

// GetViolations returns all validation violations
func (o *ValidationObserver[ID]) GetViolations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make([]string, len(o.violations))
	copy(result, o.violations)
	return result
}

// GetUnvisitedStates returns expected states that were never entered,
// sorted by their printed form
func (o *ValidationObserver[ID]) GetUnvisitedStates() []ID {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	var unvisited []ID
	for state := range o.expectedStates {
		if !o.visitedStates[state] {
			unvisited = append(unvisited, state)
		}
	}
	sort.Slice(unvisited, func(i, j int) bool {
		return label(unvisited[i]) < label(unvisited[j])
	})
	return unvisited
}

// HasViolations returns whether any violations occurred
func (o *ValidationObserver[ID]) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset forgets visited states and violations, keeping the expectations
func (o *ValidationObserver[ID]) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.visitedStates = make(map[ID]bool)
	o.violations = make([]string, 0)
}
