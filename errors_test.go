package stepflow

import (
	"errors"
	"testing"
)

func TestErrorConstructorsAndPredicates(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		is    func(error) bool
		code  ErrorCode
	}{
		{"state not found", NewStateNotFoundError("m", "s"), IsStateNotFoundError, ErrCodeStateNotFound},
		{"state execution", NewStateExecutionError("s", errors.New("boom")), IsStateExecutionError, ErrCodeStateExecution},
		{"state timeout", NewStateTimeoutError("s", "5s"), IsStateTimeoutError, ErrCodeStateTimeout},
		{"execution timeout", NewExecutionTimeoutError("exec-1", "30s"), IsExecutionTimeoutError, ErrCodeExecutionTimeout},
		{"choice init", NewChoiceInitializationError("c", errors.New("bad")), IsChoiceInitializationError, ErrCodeChoiceInitialization},
		{"handler not found", NewHandlerNotFoundError("s", "h"), IsHandlerNotFoundError, ErrCodeHandlerNotFound},
		{"handler binding", NewHandlerBindingError("s", "why"), IsHandlerBindingError, ErrCodeHandlerBinding},
		{"malformed statement", NewMalformedStatementError("when", "bad"), IsMalformedStatementError, ErrCodeMalformedStatement},
		{"unknown tag", NewUnknownTagError("foo"), IsUnknownTagError, ErrCodeUnknownTag},
		{"invalid operator", NewInvalidOperatorError("xx"), IsInvalidOperatorError, ErrCodeInvalidOperator},
		{"sub machine", NewSubMachineError("b", errors.New("fail")), IsSubMachineError, ErrCodeSubMachineError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.err.Error() == "" {
				t.Errorf("%s: Error() should not be empty", c.name)
			}
			if !c.is(c.err) {
				t.Errorf("%s: predicate returned false for its own constructor", c.name)
			}
			if GetErrorCode(c.err) != c.code {
				t.Errorf("%s: got code %v, want %v", c.name, GetErrorCode(c.err), c.code)
			}
		})
	}
}

func TestGetErrorCodeUnknownErrorIsNone(t *testing.T) {
	if GetErrorCode(errors.New("plain")) != ErrCodeNone {
		t.Errorf("expected ErrCodeNone for a plain error")
	}
}

func TestStateExecutionErrorUnwraps(t *testing.T) {
	cause := errors.New("root cause")
	err := NewStateExecutionError("s", cause)
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}
}
