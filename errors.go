package stepflow

import "fmt"

// ErrorCode classifies the failure modes a machine run can produce.
type ErrorCode int

const (
	// ErrCodeNone means no error occurred.
	ErrCodeNone ErrorCode = iota
	// ErrCodeStateNotFound means a state name has no matching registered state.
	ErrCodeStateNotFound
	// ErrCodeStateExecution means a state's handler failed or panicked.
	ErrCodeStateExecution
	// ErrCodeStateTimeout means a single state exceeded its own timeout.
	ErrCodeStateTimeout
	// ErrCodeExecutionTimeout means the whole run exceeded the machine timeout,
	// or a parallel state's branches exceeded its aggregate timeout.
	ErrCodeExecutionTimeout
	// ErrCodeChoiceInitialization means a choice state's expressions failed to compile.
	ErrCodeChoiceInitialization
	// ErrCodeHandlerNotFound means a task state names a handler absent from the registry.
	ErrCodeHandlerNotFound
	// ErrCodeHandlerBinding means a handler was found but could not be bound at build time.
	ErrCodeHandlerBinding
	// ErrCodeMalformedStatement means a choice statement violates the expression grammar.
	ErrCodeMalformedStatement
	// ErrCodeUnknownTag means a choice statement references a #tag with no matching state.
	ErrCodeUnknownTag
	// ErrCodeInvalidOperator means a choice statement uses an operator outside the supported set.
	ErrCodeInvalidOperator
	// ErrCodeSubMachineError means a parallel branch failed; non-fatal to the parent.
	ErrCodeSubMachineError
)

// StateNotFoundError reports that the driver tried to enter a state name
// absent from the machine's state table.
type StateNotFoundError struct {
	MachineName string
	StateName   string
}

func (e *StateNotFoundError) Error() string {
	return fmt.Sprintf("stepflow: state %q does not exist in machine %q", e.StateName, e.MachineName)
}

// NewStateNotFoundError creates a new StateNotFoundError.
func NewStateNotFoundError(machineName, stateName string) *StateNotFoundError {
	return &StateNotFoundError{MachineName: machineName, StateName: stateName}
}

// IsStateNotFoundError reports whether err is a *StateNotFoundError.
func IsStateNotFoundError(err error) bool {
	_, ok := err.(*StateNotFoundError)
	return ok
}

// StateExecutionError wraps a failure returned by a state's handler.
type StateExecutionError struct {
	StateName string
	Cause     error
}

func (e *StateExecutionError) Error() string {
	return fmt.Sprintf("stepflow: error in state %q: %v", e.StateName, e.Cause)
}

func (e *StateExecutionError) Unwrap() error { return e.Cause }

// NewStateExecutionError creates a new StateExecutionError.
func NewStateExecutionError(stateName string, cause error) *StateExecutionError {
	return &StateExecutionError{StateName: stateName, Cause: cause}
}

// IsStateExecutionError reports whether err is a *StateExecutionError.
func IsStateExecutionError(err error) bool {
	_, ok := err.(*StateExecutionError)
	return ok
}

// StateTimeoutError reports that a single state ran longer than its timeout.
type StateTimeoutError struct {
	StateName string
	Timeout   string
}

func (e *StateTimeoutError) Error() string {
	return fmt.Sprintf("stepflow: state %q timed out after %s", e.StateName, e.Timeout)
}

// NewStateTimeoutError creates a new StateTimeoutError.
func NewStateTimeoutError(stateName, timeout string) *StateTimeoutError {
	return &StateTimeoutError{StateName: stateName, Timeout: timeout}
}

// IsStateTimeoutError reports whether err is a *StateTimeoutError.
func IsStateTimeoutError(err error) bool {
	_, ok := err.(*StateTimeoutError)
	return ok
}

// ExecutionTimeoutError reports that an entire run exceeded the machine's
// overall timeout, or that a parallel state's branches did not all finish
// within its aggregate timeout.
type ExecutionTimeoutError struct {
	ExecutionID string
	Timeout     string
}

func (e *ExecutionTimeoutError) Error() string {
	return fmt.Sprintf("stepflow: execution %s timed out after %s", e.ExecutionID, e.Timeout)
}

// NewExecutionTimeoutError creates a new ExecutionTimeoutError.
func NewExecutionTimeoutError(executionID, timeout string) *ExecutionTimeoutError {
	return &ExecutionTimeoutError{ExecutionID: executionID, Timeout: timeout}
}

// IsExecutionTimeoutError reports whether err is an *ExecutionTimeoutError.
func IsExecutionTimeoutError(err error) bool {
	_, ok := err.(*ExecutionTimeoutError)
	return ok
}

// ChoiceInitializationError wraps a failure to compile a choice state's
// statements into a runnable decision function.
type ChoiceInitializationError struct {
	ChoiceName string
	Cause      error
}

func (e *ChoiceInitializationError) Error() string {
	return fmt.Sprintf("stepflow: choice %q failed to initialize: %v", e.ChoiceName, e.Cause)
}

func (e *ChoiceInitializationError) Unwrap() error { return e.Cause }

// NewChoiceInitializationError creates a new ChoiceInitializationError.
func NewChoiceInitializationError(choiceName string, cause error) *ChoiceInitializationError {
	return &ChoiceInitializationError{ChoiceName: choiceName, Cause: cause}
}

// IsChoiceInitializationError reports whether err is a *ChoiceInitializationError.
func IsChoiceInitializationError(err error) bool {
	_, ok := err.(*ChoiceInitializationError)
	return ok
}

// HandlerNotFoundError reports that a task state names a handler the
// registry does not have.
type HandlerNotFoundError struct {
	StateName   string
	HandlerName string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("stepflow: handler %q for state %q is not registered", e.HandlerName, e.StateName)
}

// NewHandlerNotFoundError creates a new HandlerNotFoundError.
func NewHandlerNotFoundError(stateName, handlerName string) *HandlerNotFoundError {
	return &HandlerNotFoundError{StateName: stateName, HandlerName: handlerName}
}

// IsHandlerNotFoundError reports whether err is a *HandlerNotFoundError.
func IsHandlerNotFoundError(err error) bool {
	_, ok := err.(*HandlerNotFoundError)
	return ok
}

// HandlerBindingError reports that a handler exists but could not be bound
// to its state at build time.
type HandlerBindingError struct {
	StateName string
	Reason    string
}

func (e *HandlerBindingError) Error() string {
	return fmt.Sprintf("stepflow: handler for state %q could not be bound: %s", e.StateName, e.Reason)
}

// NewHandlerBindingError creates a new HandlerBindingError.
func NewHandlerBindingError(stateName, reason string) *HandlerBindingError {
	return &HandlerBindingError{StateName: stateName, Reason: reason}
}

// IsHandlerBindingError reports whether err is a *HandlerBindingError.
func IsHandlerBindingError(err error) bool {
	_, ok := err.(*HandlerBindingError)
	return ok
}

// MalformedStatementError reports a choice statement that violates the
// expression grammar.
type MalformedStatementError struct {
	Statement string
	Reason    string
}

func (e *MalformedStatementError) Error() string {
	return fmt.Sprintf("stepflow: malformed statement %q: %s", e.Statement, e.Reason)
}

// NewMalformedStatementError creates a new MalformedStatementError.
func NewMalformedStatementError(statement, reason string) *MalformedStatementError {
	return &MalformedStatementError{Statement: statement, Reason: reason}
}

// IsMalformedStatementError reports whether err is a *MalformedStatementError.
func IsMalformedStatementError(err error) bool {
	_, ok := err.(*MalformedStatementError)
	return ok
}

// UnknownTagError reports a #tag reference with no matching state.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("stepflow: unknown tag %q", e.Tag)
}

// NewUnknownTagError creates a new UnknownTagError.
func NewUnknownTagError(tag string) *UnknownTagError {
	return &UnknownTagError{Tag: tag}
}

// IsUnknownTagError reports whether err is an *UnknownTagError.
func IsUnknownTagError(err error) bool {
	_, ok := err.(*UnknownTagError)
	return ok
}

// InvalidOperatorError reports an operator token outside the supported set.
type InvalidOperatorError struct {
	Operator string
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("stepflow: invalid operator %q", e.Operator)
}

// NewInvalidOperatorError creates a new InvalidOperatorError.
func NewInvalidOperatorError(operator string) *InvalidOperatorError {
	return &InvalidOperatorError{Operator: operator}
}

// IsInvalidOperatorError reports whether err is an *InvalidOperatorError.
func IsInvalidOperatorError(err error) bool {
	_, ok := err.(*InvalidOperatorError)
	return ok
}

// SubMachineError wraps a failure from one branch of a parallel state. It is
// non-fatal to the parent machine unless the parallel state's aggregate
// timeout also elapses.
type SubMachineError struct {
	Branch string
	Cause  error
}

func (e *SubMachineError) Error() string {
	return fmt.Sprintf("stepflow: branch %q failed: %v", e.Branch, e.Cause)
}

func (e *SubMachineError) Unwrap() error { return e.Cause }

// NewSubMachineError creates a new SubMachineError.
func NewSubMachineError(branch string, cause error) *SubMachineError {
	return &SubMachineError{Branch: branch, Cause: cause}
}

// IsSubMachineError reports whether err is a *SubMachineError.
func IsSubMachineError(err error) bool {
	_, ok := err.(*SubMachineError)
	return ok
}

// GetErrorCode returns the ErrorCode for any of the typed errors above, or
// ErrCodeNone for anything else.
func GetErrorCode(err error) ErrorCode {
	switch err.(type) {
	case *StateNotFoundError:
		return ErrCodeStateNotFound
	case *StateExecutionError:
		return ErrCodeStateExecution
	case *StateTimeoutError:
		return ErrCodeStateTimeout
	case *ExecutionTimeoutError:
		return ErrCodeExecutionTimeout
	case *ChoiceInitializationError:
		return ErrCodeChoiceInitialization
	case *HandlerNotFoundError:
		return ErrCodeHandlerNotFound
	case *HandlerBindingError:
		return ErrCodeHandlerBinding
	case *MalformedStatementError:
		return ErrCodeMalformedStatement
	case *UnknownTagError:
		return ErrCodeUnknownTag
	case *InvalidOperatorError:
		return ErrCodeInvalidOperator
	case *SubMachineError:
		return ErrCodeSubMachineError
	default:
		return ErrCodeNone
	}
}
