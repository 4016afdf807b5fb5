package hfsm

import "fmt"

// Observer receives the machine's core notifications
type Observer[ID comparable] interface {
	// OnStateChanged is called after a transition completes, with the
	// previous and the new leaf. It is not called for the initial entry on Start.
	OnStateChanged(from, to ID)

	// OnTransitionTriggered is called when a transition or timeout fires,
	// before any exit callback runs
	OnTransitionTriggered(from, to ID)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver[ID comparable] interface {
	Observer[ID]

	// OnStateEnter is called after a state's enter callback
	OnStateEnter(state ID)

	// OnStateExit is called after a state's exit callback
	OnStateExit(state ID)

	// OnStateTimeout is called when a state's timeout fires
	OnStateTimeout(state ID)

	// OnTimeoutBlocked is called when a timeout expires but cannot jump
	OnTimeoutBlocked(state ID, reason BlockReason)

	// OnEventDispatched is called after a drained event was offered to the
	// transitions; handled reports whether it fired one
	OnEventDispatched(event string, handled bool)

	// OnError is called for configuration errors, invariant violations and
	// recovered callback panics
	OnError(err error)

	// OnMachineStarted is called with the initial leaf once Start has entered
	// it and run any transitions its enter callbacks requested
	OnMachineStarted(initial ID)

	// OnMachineStopped is called after Stop exits the active hierarchy
	OnMachineStopped()
}

// BaseObserver provides a default implementation with no-op methods.
// Embed it to implement only the notifications you need.
type BaseObserver[ID comparable] struct{}

// OnStateChanged implements Observer
func (o *BaseObserver[ID]) OnStateChanged(from, to ID) {}

// OnTransitionTriggered implements Observer
func (o *BaseObserver[ID]) OnTransitionTriggered(from, to ID) {}

// OnStateEnter implements ExtendedObserver
func (o *BaseObserver[ID]) OnStateEnter(state ID) {}

// OnStateExit implements ExtendedObserver
func (o *BaseObserver[ID]) OnStateExit(state ID) {}

// OnStateTimeout implements ExtendedObserver
func (o *BaseObserver[ID]) OnStateTimeout(state ID) {}

// OnTimeoutBlocked implements ExtendedObserver
func (o *BaseObserver[ID]) OnTimeoutBlocked(state ID, reason BlockReason) {}

// OnEventDispatched implements ExtendedObserver
func (o *BaseObserver[ID]) OnEventDispatched(event string, handled bool) {}

// OnError implements ExtendedObserver
func (o *BaseObserver[ID]) OnError(err error) {}

// OnMachineStarted implements ExtendedObserver
func (o *BaseObserver[ID]) OnMachineStarted(initial ID) {}

// OnMachineStopped implements ExtendedObserver
func (o *BaseObserver[ID]) OnMachineStopped() {}

// ObserverManager manages a collection of observers. A panicking observer
// is isolated: the panic is reported to extended observers through OnError
// and the remaining observers are still notified.
type ObserverManager[ID comparable] struct {
	observers []Observer[ID]
}

// NewObserverManager creates a new observer manager
func NewObserverManager[ID comparable]() *ObserverManager[ID] {
	return &ObserverManager[ID]{
		observers: make([]Observer[ID], 0),
	}
}

// AddObserver adds an observer to the manager
func (om *ObserverManager[ID]) AddObserver(observer Observer[ID]) {
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager[ID]) RemoveObserver(observer Observer[ID]) {
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered observers
func (om *ObserverManager[ID]) Len() int {
	return len(om.observers)
}

func (om *ObserverManager[ID]) each(name string, fn func(Observer[ID])) {
	if len(om.observers) == 0 {
		return
	}
	observers := make([]Observer[ID], len(om.observers))
	copy(observers, om.observers)

	for _, observer := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					om.reportPanic(observer, name, r)
				}
			}()
			fn(observer)
		}()
	}
}

func (om *ObserverManager[ID]) eachExtended(name string, fn func(ExtendedObserver[ID])) {
	om.each(name, func(o Observer[ID]) {
		if ext, ok := o.(ExtendedObserver[ID]); ok {
			fn(ext)
		}
	})
}

func (om *ObserverManager[ID]) reportPanic(source Observer[ID], name string, r any) {
	err := fmt.Errorf("observer panic in %s: %v", name, r)
	for _, observer := range om.observers {
		if observer == source {
			continue
		}
		if ext, ok := observer.(ExtendedObserver[ID]); ok {
			func() {
				defer func() { _ = recover() }()
				ext.OnError(err)
			}()
		}
	}
}

// NotifyStateChanged notifies all observers of a completed transition
func (om *ObserverManager[ID]) NotifyStateChanged(from, to ID) {
	om.each("OnStateChanged", func(o Observer[ID]) { o.OnStateChanged(from, to) })
}

// NotifyTransitionTriggered notifies all observers that a transition fired
func (om *ObserverManager[ID]) NotifyTransitionTriggered(from, to ID) {
	om.each("OnTransitionTriggered", func(o Observer[ID]) { o.OnTransitionTriggered(from, to) })
}

// NotifyStateEnter notifies extended observers of a state entry
func (om *ObserverManager[ID]) NotifyStateEnter(state ID) {
	om.eachExtended("OnStateEnter", func(o ExtendedObserver[ID]) { o.OnStateEnter(state) })
}

// NotifyStateExit notifies extended observers of a state exit
func (om *ObserverManager[ID]) NotifyStateExit(state ID) {
	om.eachExtended("OnStateExit", func(o ExtendedObserver[ID]) { o.OnStateExit(state) })
}

// NotifyStateTimeout notifies extended observers of a fired timeout
func (om *ObserverManager[ID]) NotifyStateTimeout(state ID) {
	om.eachExtended("OnStateTimeout", func(o ExtendedObserver[ID]) { o.OnStateTimeout(state) })
}

// NotifyTimeoutBlocked notifies extended observers of a blocked timeout
func (om *ObserverManager[ID]) NotifyTimeoutBlocked(state ID, reason BlockReason) {
	om.eachExtended("OnTimeoutBlocked", func(o ExtendedObserver[ID]) { o.OnTimeoutBlocked(state, reason) })
}

// NotifyEventDispatched notifies extended observers of a drained event
func (om *ObserverManager[ID]) NotifyEventDispatched(event string, handled bool) {
	om.eachExtended("OnEventDispatched", func(o ExtendedObserver[ID]) { o.OnEventDispatched(event, handled) })
}

// NotifyError notifies extended observers of an error
func (om *ObserverManager[ID]) NotifyError(err error) {
	om.eachExtended("OnError", func(o ExtendedObserver[ID]) { o.OnError(err) })
}

// NotifyMachineStarted notifies extended observers that the machine started
func (om *ObserverManager[ID]) NotifyMachineStarted(initial ID) {
	om.eachExtended("OnMachineStarted", func(o ExtendedObserver[ID]) { o.OnMachineStarted(initial) })
}

// NotifyMachineStopped notifies extended observers that the machine stopped
func (om *ObserverManager[ID]) NotifyMachineStopped() {
	om.eachExtended("OnMachineStopped", func(o ExtendedObserver[ID]) { o.OnMachineStopped() })
}
