package stepflow

import (
	"fmt"
	"time"

	"github.com/anggasct/stepflow/choice"
)

// ChoiceState evaluates a compiled decision tree against the document and
// returns the state name it resolves to. Unlike the original design, the
// resolved successor is never stored on the struct; Handle returns it as a
// pure function of (ctx, doc), per spec.md's Design Notes recommendation.
type ChoiceState struct {
	name    string
	timeout time.Duration
	program *choice.Program
}

// NewChoiceState compiles statements against stateRefs (a tag -> state name
// map) using cache for on-disk memoization, and returns a ready ChoiceState.
// Any compilation failure is reported as a *ChoiceInitializationError
// wrapping this package's *MalformedStatementError, *UnknownTagError, or
// *InvalidOperatorError, translated from the choice package's own error
// types by translateChoiceError.
func NewChoiceState(name string, timeout time.Duration, statements []string, stateRefs map[string]string, cache *choice.Cache, opts choice.Options) (*ChoiceState, error) {
	prog, err := choice.Compile(name, statements, stateRefs, cache, opts)
	if err != nil {
		return nil, NewChoiceInitializationError(name, translateChoiceError(err))
	}
	return &ChoiceState{name: name, timeout: timeout, program: prog}, nil
}

// translateChoiceError maps the choice package's local error types onto
// this package's taxonomy so that callers only ever need to type-switch on
// stepflow's own error types.
func translateChoiceError(err error) error {
	switch e := err.(type) {
	case *choice.MalformedStatementError:
		return NewMalformedStatementError(e.Statement, e.Reason)
	case *choice.UnknownTagError:
		return NewUnknownTagError(e.Tag)
	case *choice.InvalidOperatorError:
		return NewInvalidOperatorError(e.Operator)
	default:
		return err
	}
}

// Name implements State.
func (s *ChoiceState) Name() string { return s.name }

// Timeout implements State.
func (s *ChoiceState) Timeout() time.Duration { return s.timeout }

// Handle implements State by evaluating the compiled program against doc.
// The document itself passes through unchanged; only the successor state
// name is computed here.
func (s *ChoiceState) Handle(ctx *ExecutionContext, doc any) (any, string, error) {
	ctx.touchTimestamp()
	result, err := s.program.Evaluate(doc)
	if err != nil {
		return nil, "", NewStateExecutionError(s.name, err)
	}
	if choice.IsAbsent(result) {
		// No statement produced a value (nothing matched under
		// AllowMissingDefault, or every statement failed at runtime and was
		// skipped): an unset next_state, so the machine terminates here.
		return doc, "", nil
	}
	next, ok := result.(string)
	if !ok {
		return nil, "", NewStateExecutionError(s.name, fmt.Errorf("choice resolved to a non-string value %v (%T); choice states must resolve to a state name", result, result))
	}
	return doc, next, nil
}
