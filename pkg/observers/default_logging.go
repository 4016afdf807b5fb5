package observers

import "github.com/anggasct/hfsm"

// NewDefaultLoggingObserver creates a logging observer on the engine's
// default console logger at info level
func NewDefaultLoggingObserver[ID comparable](machineName string) *LoggingObserver[ID] {
	return NewLoggingObserver[ID](hfsm.NewDefaultLogger(machineName, "INFO", hfsm.FormatConsole), machineName)
}
