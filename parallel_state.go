package stepflow

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ParallelState fans the current document out to a fixed set of
// independently-run sub-machines and joins on all of them before advancing.
// Each branch runs its own driver instance, grounded in spec.md section 4.3
// and the original's `ParallelHandler`
// (`original_source/core/blocks/parallel_handler.py`), which uses a
// `ThreadPoolExecutor` per branch and `as_completed(timeout=...)` to bound
// the whole fan-out; here a goroutine per branch and a `select` over
// `time.After` play the same role.
type ParallelState struct {
	name      string
	branches  map[string]*Machine
	order     []string
	timeout   time.Duration
	nextState string
	observers *ObserverManager
}

// NewParallelState builds a ParallelState. declaredTimeout may be zero, in
// which case the aggregate timeout is the sum of the branch machines'
// timeouts; if declaredTimeout is non-zero but smaller than that sum, it is
// raised to sum+1 second and observers are notified via OnTimeoutAdjusted,
// mirroring the machine-level timeout derivation rule in spec.md section 3.
func NewParallelState(name string, branches map[string]*Machine, nextState string, declaredTimeout time.Duration, observers *ObserverManager) *ParallelState {
	order := make([]string, 0, len(branches))
	var sum time.Duration
	for branchName, m := range branches {
		order = append(order, branchName)
		sum += m.Timeout()
	}
	sort.Strings(order)

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

	return &ParallelState{
		name:      name,
		branches:  branches,
		order:     order,
		timeout:   timeout,
		nextState: nextState,
		observers: observers,
	}
}

// Name implements State.
func (s *ParallelState) Name() string { return s.name }

// Timeout implements State.
func (s *ParallelState) Timeout() time.Duration { return s.timeout }

type branchResult struct {
	name string
	doc  any
	err  error
}

// Handle implements State by running every branch machine against doc
// concurrently and joining on all of them. A branch that fails contributes
// a SubMachineError-wrapped entry to the result map but does not fail the
// parallel state; only the aggregate timeout elapsing does.
func (s *ParallelState) Handle(ctx *ExecutionContext, doc any) (any, string, error) {
	runCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()

	results := make(chan branchResult, len(s.order))
	for _, branchName := range s.order {
		branchName := branchName
		machine := s.branches[branchName]
		go func() {
			executionID := uuid.New().String()
			// A branch is a distinct named machine, not a continuation of the
			// parent's own identity, so it gets its own MachineName/MachineID
			// instead of inheriting the parent's via ctx.WithParent.
			branchCtx := NewExecutionContext(runCtx, machine.Name(), machine.ID(), executionID)
			branchCtx.Parent = ctx
			out, err := machine.run(branchCtx, doc)
			results <- branchResult{name: branchName, doc: out, err: err}
		}()
	}

	aggregate := make(map[string]any, len(s.order))
	remaining := len(s.order)
	var deadline <-chan time.Time
	if s.timeout > 0 {
		deadline = time.After(s.timeout)
	}

	for remaining > 0 {
		select {
		case r := <-results:
			remaining--
			if r.err != nil {
				wrapped := NewSubMachineError(r.name, r.err)
				aggregate[r.name] = map[string]any{"error": wrapped.Error()}
				if s.observers != nil {
					s.observers.NotifyBranchCompleted(s.name, r.name, wrapped)
				}
			} else {
				aggregate[r.name] = r.doc
				if s.observers != nil {
					s.observers.NotifyBranchCompleted(s.name, r.name, nil)
				}
			}
		case <-deadline:
			return nil, "", NewExecutionTimeoutError(ctx.ExecutionID, s.timeout.String())
		}
	}

	return aggregate, s.nextState, nil
}

