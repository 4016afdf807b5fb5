package hfsm

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// Machine statuses
const (
	StatusUninitialized = "uninitialized"
	StatusStopped       = "stopped"
	StatusRunning       = "running"
	StatusPaused        = "paused"
)

// Lifecycle events
const (
	eventConfigure = "configure"
	eventStart     = "start"
	eventPause     = "pause"
	eventResume    = "resume"
	eventStop      = "stop"
	eventClear     = "clear"
)

// lifecycle tracks the machine's own status. It is independent of the user
// state graph: pausing or stopping never touches the current leaf.
type lifecycle struct {
	fsm *fsm.FSM
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		fsm: fsm.NewFSM(
			StatusUninitialized,
			fsm.Events{
				{Name: eventConfigure, Src: []string{StatusUninitialized}, Dst: StatusStopped},
				{Name: eventStart, Src: []string{StatusStopped}, Dst: StatusRunning},
				{Name: eventPause, Src: []string{StatusRunning}, Dst: StatusPaused},
				{Name: eventResume, Src: []string{StatusPaused}, Dst: StatusRunning},
				{Name: eventStop, Src: []string{StatusRunning, StatusPaused}, Dst: StatusStopped},
				{Name: eventClear, Src: []string{StatusStopped}, Dst: StatusUninitialized},
			},
			fsm.Callbacks{},
		),
	}
}

func (l *lifecycle) status() string {
	return l.fsm.Current()
}

func (l *lifecycle) is(status string) bool {
	return l.fsm.Is(status)
}

func (l *lifecycle) can(event string) bool {
	return l.fsm.Can(event)
}

// fire moves the lifecycle, translating looplab errors into MachineError
func (l *lifecycle) fire(operation, event string) error {
	err := l.fsm.Event(context.Background(), event)
	if err == nil {
		return nil
	}
	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		return NewMachineError(ErrCodeInvalidStatus, operation,
			fmt.Sprintf("cannot %s while %s", event, l.status()))
	}
	return NewMachineError(ErrCodeInvalidStatus, operation, err.Error())
}
