package hfsm

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the state machine
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// State was not found in the machine
	ErrCodeStateNotFound
	// State id is already registered
	ErrCodeDuplicateState
	// Machine configuration is invalid
	ErrCodeInvalidConfiguration
	// Machine is not in a status that allows the operation
	ErrCodeInvalidStatus
	// Machine is not started
	ErrCodeMachineNotStarted
	// Operation is not allowed while a transition is in flight
	ErrCodeTransitionInProgress
	// Pending transition queue is full
	ErrCodeQueueOverflow
	// A user callback panicked
	ErrCodeCallbackPanic
)

// String returns the name of the code
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNone:
		return "none"
	case ErrCodeStateNotFound:
		return "state_not_found"
	case ErrCodeDuplicateState:
		return "duplicate_state"
	case ErrCodeInvalidConfiguration:
		return "invalid_configuration"
	case ErrCodeInvalidStatus:
		return "invalid_status"
	case ErrCodeMachineNotStarted:
		return "machine_not_started"
	case ErrCodeTransitionInProgress:
		return "transition_in_progress"
	case ErrCodeQueueOverflow:
		return "queue_overflow"
	case ErrCodeCallbackPanic:
		return "callback_panic"
	default:
		return "unknown"
	}
}

// StateError represents state-related errors
type StateError struct {
	Code    ErrorCode
	StateID string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error [%s]: %s", e.StateID, e.Message)
}

// NewStateNotFoundError creates a new state not found error
func NewStateNotFoundError(stateID any) *StateError {
	id := fmt.Sprint(stateID)
	return &StateError{
		Code:    ErrCodeStateNotFound,
		StateID: id,
		Message: fmt.Sprintf("state '%s' not found", id),
	}
}

// NewDuplicateStateError creates an error for an id that is already registered
func NewDuplicateStateError(stateID any) *StateError {
	id := fmt.Sprint(stateID)
	return &StateError{
		Code:    ErrCodeDuplicateState,
		StateID: id,
		Message: fmt.Sprintf("state '%s' already exists", id),
	}
}

// NewStateError creates a new state error with custom values
func NewStateError(code ErrorCode, stateID any, message string) *StateError {
	return &StateError{
		Code:    code,
		StateID: fmt.Sprint(stateID),
		Message: message,
	}
}

// TransitionError represents transition-related errors
type TransitionError struct {
	Code   ErrorCode
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition error [%s->%s]: %s", e.From, e.To, e.Reason)
}

// NewTransitionError creates a new transition error with custom values
func NewTransitionError(code ErrorCode, from, to any, reason string) *TransitionError {
	return &TransitionError{
		Code:   code,
		From:   fmt.Sprint(from),
		To:     fmt.Sprint(to),
		Reason: reason,
	}
}

// ConfigurationError represents machine configuration issues
type ConfigurationError struct {
	Component string
	Issue     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component, issue string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Issue:     issue,
	}
}

// MachineError represents state machine operation errors
type MachineError struct {
	Code      ErrorCode
	Operation string
	Message   string
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("machine error during %s: %s", e.Operation, e.Message)
}

// NewMachineNotStartedError creates a new machine not started error
func NewMachineNotStartedError(operation string) *MachineError {
	return &MachineError{
		Code:      ErrCodeMachineNotStarted,
		Operation: operation,
		Message:   "state machine is not started",
	}
}

// NewMachineError creates a new machine error
func NewMachineError(code ErrorCode, operation string, message string) *MachineError {
	return &MachineError{
		Code:      code,
		Operation: operation,
		Message:   message,
	}
}

// CallbackError wraps a panic recovered from a user callback
type CallbackError struct {
	Callback string
	State    string
	Value    any
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback '%s' panicked in state '%s': %v", e.Callback, e.State, e.Value)
}

// IsStateError checks if an error is a StateError
func IsStateError(err error) bool {
	var target *StateError
	return errors.As(err, &target)
}

// IsTransitionError checks if an error is a TransitionError
func IsTransitionError(err error) bool {
	var target *TransitionError
	return errors.As(err, &target)
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsMachineError checks if an error is a MachineError
func IsMachineError(err error) bool {
	var target *MachineError
	return errors.As(err, &target)
}

// IsCallbackError checks if an error is a CallbackError
func IsCallbackError(err error) bool {
	var target *CallbackError
	return errors.As(err, &target)
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	var (
		stateErr      *StateError
		transitionErr *TransitionError
		machineErr    *MachineError
		configErr     *ConfigurationError
		callbackErr   *CallbackError
	)
	switch {
	case errors.As(err, &stateErr):
		return stateErr.Code
	case errors.As(err, &transitionErr):
		return transitionErr.Code
	case errors.As(err, &machineErr):
		return machineErr.Code
	case errors.As(err, &configErr):
		return ErrCodeInvalidConfiguration
	case errors.As(err, &callbackErr):
		return ErrCodeCallbackPanic
	default:
		return ErrCodeNone
	}
}
