// Package observers provides observers for monitoring state machine events
package observers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/anggasct/hfsm"
)

// LoggingObserver logs state machine notifications to a zap logger.
// State changes, timeouts and machine start/stop are logged at info level,
// enter/exit and events at debug, blocked timeouts at warn and errors at error.
type LoggingObserver[ID comparable] struct {
	hfsm.BaseObserver[ID]
	log *zap.SugaredLogger
}

// NewLoggingObserver creates a logging observer. A nil logger logs nothing.
func NewLoggingObserver[ID comparable](logger *zap.Logger, machineName string) *LoggingObserver[ID] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingObserver[ID]{
		log: logger.Sugar().With("machine", machineName),
	}
}

func (o *LoggingObserver[ID]) OnStateChanged(from, to ID) {
	o.log.Infow("state changed", "from", label(from), "to", label(to))
}

func (o *LoggingObserver[ID]) OnTransitionTriggered(from, to ID) {
	o.log.Debugw("transition triggered", "from", label(from), "to", label(to))
}

func (o *LoggingObserver[ID]) OnStateEnter(state ID) {
	o.log.Debugw("entering state", "state", label(state))
}

func (o *LoggingObserver[ID]) OnStateExit(state ID) {
	o.log.Debugw("exiting state", "state", label(state))
}

func (o *LoggingObserver[ID]) OnStateTimeout(state ID) {
	o.log.Infow("state timed out", "state", label(state))
}

func (o *LoggingObserver[ID]) OnTimeoutBlocked(state ID, reason hfsm.BlockReason) {
	o.log.Warnw("timeout blocked", "state", label(state), "reason", reason.String())
}

func (o *LoggingObserver[ID]) OnEventDispatched(event string, handled bool) {
	o.log.Debugw("event dispatched", "event", event, "handled", handled)
}

func (o *LoggingObserver[ID]) OnError(err error) {
	o.log.Errorw("state machine error", "error", err)
}

func (o *LoggingObserver[ID]) OnMachineStarted(initial ID) {
	o.log.Infow("machine started", "initial", label(initial))
}

func (o *LoggingObserver[ID]) OnMachineStopped() {
	o.log.Infow("machine stopped")
}

func label(id any) string {
	return fmt.Sprint(id)
}
