package stepflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Machine is a compiled, runnable workflow: a named set of states reached
// starting from a head state, driven sequentially until a state reports no
// successor. The driver loop below is grounded line-for-line on
// `original_source/core/state_machine.py`'s `StateMachine.run`: per-state
// and whole-execution timeouts, a deterministic machine id derived from the
// machine's name, and a fresh execution id per run.
type Machine struct {
	name      string
	id        string
	head      string
	states    map[string]State
	timeout   time.Duration
	observers *ObserverManager
}

// NewMachine builds a Machine from a set of states and a head state name.
// declaredTimeout may be zero, meaning "derive it from the states"; if
// declaredTimeout is positive but smaller than the sum of every state's own
// timeout, it is raised to sum+1 second and, if observers is non-nil,
// reported via OnTimeoutAdjusted — the same rule spec.md applies to
// parallel states, applied here to the whole machine.
func NewMachine(name string, states []State, head string, declaredTimeout time.Duration, observers *ObserverManager) (*Machine, error) {
	if len(states) == 0 {
		return nil, NewHandlerBindingError(name, "a machine needs at least one state")
	}

	stateMap := make(map[string]State, len(states))
	var sum time.Duration
	for _, s := range states {
		stateMap[s.Name()] = s
		sum += s.Timeout()
	}

	if _, ok := stateMap[head]; !ok {
		return nil, NewStateNotFoundError(name, head)
	}

	timeout := declaredTimeout
	if timeout == 0 {
		timeout = sum
	} else if sum > timeout {
		adjusted := sum + time.Second
		if observers != nil {
			observers.NotifyTimeoutAdjusted(name, declaredTimeout.String(), adjusted.String())
		}
		timeout = adjusted
	}

	if observers == nil {
		observers = NewObserverManager()
	}

	namespace := uuid.NameSpaceURL
	id := uuid.NewSHA1(namespace, []byte(name)).String()

	return &Machine{
		name:      name,
		id:        id,
		head:      head,
		states:    stateMap,
		timeout:   timeout,
		observers: observers,
	}, nil
}

// Name returns the machine's name.
func (m *Machine) Name() string { return m.name }

// ID returns the machine's deterministic, name-derived identifier.
func (m *Machine) ID() string { return m.id }

// Timeout returns the machine's overall execution timeout.
func (m *Machine) Timeout() time.Duration { return m.timeout }

// AddObserver registers an observer for this machine's lifecycle events.
func (m *Machine) AddObserver(observer Observer) { m.observers.AddObserver(observer) }

// Run executes the machine against an entry-point document, starting a
// fresh execution with its own execution id and start time. parent may be
// nil, in which case context.Background() is used.
func (m *Machine) Run(parent context.Context, doc any) (any, error) {
	if parent == nil {
		parent = context.Background()
	}
	executionID := uuid.New().String()
	ec := NewExecutionContext(parent, m.name, m.id, executionID)
	return m.run(ec, doc)
}

// run is the internal driver loop, reused both by Run and by ParallelState
// to execute a branch machine with an execution context already linked to
// its parent run.
func (m *Machine) run(ec *ExecutionContext, doc any) (any, error) {
	m.observers.NotifyMachineStarted(ec)

	currentName := m.head
	event := doc

	for {
		if m.timeout > 0 && ec.Elapsed() > m.timeout {
			err := NewExecutionTimeoutError(ec.ExecutionID, m.timeout.String())
			m.observers.NotifyError(err, ec)
			m.observers.NotifyMachineStopped(ec, err)
			return nil, err
		}

		state, ok := m.states[currentName]
		if !ok {
			err := NewStateNotFoundError(m.name, currentName)
			m.observers.NotifyError(err, ec)
			m.observers.NotifyMachineStopped(ec, err)
			return nil, err
		}

		ec.enterState(currentName)
		m.observers.NotifyStateEnter(currentName, ec)

		next, nextState, err := runStateWithTimeout(state, ec, event)
		if err != nil {
			m.observers.NotifyError(err, ec)
			m.observers.NotifyMachineStopped(ec, err)
			return nil, err
		}

		m.observers.NotifyStateExit(currentName, ec)
		if _, ok := state.(*ChoiceState); ok {
			m.observers.NotifyChoiceEvaluated(currentName, nextState, ec)
		}

		event = next
		if nextState == "" {
			m.observers.NotifyMachineStopped(ec, nil)
			return event, nil
		}
		currentName = nextState
	}
}

type stateResult struct {
	next      any
	nextState string
	err       error
}

// runStateWithTimeout runs state.Handle on its own goroutine and races it
// against state.Timeout(), mirroring the original's
// `ThreadPoolExecutor`+`future.result(timeout=...)` pattern. A state with a
// zero timeout runs with no deadline. Nothing is cancelled when the
// timeout elapses: the handler's context is not cancelled, and the handler
// keeps running in the background after this function returns the timeout
// error.
func runStateWithTimeout(state State, ec *ExecutionContext, doc any) (any, string, error) {
	if state.Timeout() <= 0 {
		return safeHandle(state, ec, doc)
	}

	ch := make(chan stateResult, 1)
	go func() {
		next, nextState, err := safeHandle(state, ec, doc)
		ch <- stateResult{next: next, nextState: nextState, err: err}
	}()

	select {
	case r := <-ch:
		return r.next, r.nextState, r.err
	case <-time.After(state.Timeout()):
		return nil, "", NewStateTimeoutError(state.Name(), state.Timeout().String())
	}
}

// safeHandle runs state.Handle, recovering a panic and reporting it as a
// StateExecutionError rather than crashing the driver, the same way the
// teacher library's safeEvaluateGuard/safeExecuteAction isolate user-supplied
// callbacks.
func safeHandle(state State, ec *ExecutionContext, doc any) (next any, nextState string, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, nextState, err = nil, "", NewStateExecutionError(state.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	return state.Handle(ec, doc)
}
