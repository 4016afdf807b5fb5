package hfsm

import (
	"errors"
	"fmt"
)

// Validate checks the hierarchy and transition targets. It returns every
// problem found, joined, or nil. Start refuses to run an invalid machine.
func (m *Machine[ID]) Validate() error {
	if len(m.states) == 0 {
		return NewConfigurationError("Machine", "no states defined")
	}

	var errs []error
	if !m.hasInitial {
		errs = append(errs, NewConfigurationError("Machine", "no initial state"))
	} else if _, ok := m.states[m.initialID]; !ok {
		errs = append(errs, NewConfigurationError("Machine",
			fmt.Sprintf("initial state '%s' is not registered", formatID(m.initialID))))
	}

	for _, id := range m.order {
		s := m.states[id]
		if err := m.validateParentChain(s); err != nil {
			errs = append(errs, err)
			continue
		}
		if !s.IsLeaf() {
			if _, err := m.resolveLeaf(s); err != nil {
				errs = append(errs, err)
			}
		}

		if s.timeout > 0 {
			target, ok := m.states[s.timeoutTarget]
			if !ok {
				errs = append(errs, NewConfigurationError("State",
					fmt.Sprintf("timeout target '%s' of '%s' is not registered", formatID(s.timeoutTarget), formatID(id))))
			} else if _, err := m.resolveLeaf(target); err != nil {
				errs = append(errs, err)
			}
		}

		for _, t := range s.transitions {
			if t.toInitial {
				continue
			}
			if _, ok := m.states[t.to]; !ok {
				errs = append(errs, NewTransitionError(ErrCodeStateNotFound, id, t.to, "target state not found"))
			}
		}
	}

	for _, t := range m.globals {
		if _, ok := m.states[t.to]; !ok {
			errs = append(errs, NewTransitionError(ErrCodeStateNotFound, "<global>", t.to, "target state not found"))
		}
	}

	return errors.Join(errs...)
}

// validateParentChain walks up from s and fails on a cycle or on a parent
// that does not list its child
func (m *Machine[ID]) validateParentChain(s *State[ID]) error {
	steps := 0
	for cur := s; cur.parent != nil; cur = cur.parent {
		steps++
		if steps > len(m.states) {
			return NewConfigurationError("State",
				fmt.Sprintf("parent chain of '%s' is cyclic", formatID(s.id)))
		}
		if cur.parent.childByID(cur.id) == nil {
			return NewConfigurationError("State",
				fmt.Sprintf("'%s' is not listed among the children of '%s'", formatID(cur.id), formatID(cur.parent.id)))
		}
	}
	return nil
}
