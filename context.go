package stepflow

import (
	"context"
	"sync"
	"time"
)

// ExecutionContext carries the bookkeeping a single run needs: machine and
// execution identity, the name of the state
// currently executing, timing, and an optional link to the parent run when
// this execution is itself a branch of a parallel state. Handlers may also
// stash arbitrary values in it via Get/Set.
type ExecutionContext struct {
	context.Context

	MachineName string
	MachineID   string
	ExecutionID string
	StartTime   time.Time

	// Parent is set when this execution is a branch spawned by a parallel
	// state; nil for a top-level run.
	Parent *ExecutionContext

	mutex     sync.RWMutex
	stateName string
	timestamp time.Time
	data      map[string]any
}

// NewExecutionContext creates the root execution context for a run.
func NewExecutionContext(parent context.Context, machineName, machineID, executionID string) *ExecutionContext {
	now := time.Now()
	return &ExecutionContext{
		Context:     parent,
		MachineName: machineName,
		MachineID:   machineID,
		ExecutionID: executionID,
		StartTime:   now,
		timestamp:   now,
		data:        make(map[string]any),
	}
}

// WithParent returns a branch execution context for a parallel sub-machine,
// sharing the machine identity but carrying its own execution id and start
// time, and linking back to parent for introspection.
func (ec *ExecutionContext) WithParent(ctx context.Context, executionID string) *ExecutionContext {
	child := NewExecutionContext(ctx, ec.MachineName, ec.MachineID, executionID)
	child.Parent = ec
	return child
}

// StateName returns the name of the state currently executing.
func (ec *ExecutionContext) StateName() string {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return ec.stateName
}

// Timestamp returns the time the current state was entered or, inside a
// choice state, the time it last evaluated its statements.
func (ec *ExecutionContext) Timestamp() time.Time {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return ec.timestamp
}

// enterState records that a new state has been entered; called by the
// driver, not by handler code.
func (ec *ExecutionContext) enterState(stateName string) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.stateName = stateName
	ec.timestamp = time.Now()
}

// touchTimestamp refreshes the timestamp Timestamp() reports without
// changing the current state name; used by ChoiceState to record the
// moment it evaluated its statements, distinct from the moment the driver
// entered the state.
func (ec *ExecutionContext) touchTimestamp() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.timestamp = time.Now()
}

// Get retrieves a value previously stored with Set.
func (ec *ExecutionContext) Get(key string) (any, bool) {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	v, ok := ec.data[key]
	return v, ok
}

// Set stores a value visible to every subsequent state in this run.
func (ec *ExecutionContext) Set(key string, value any) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.data[key] = value
}

// GetAll returns a shallow copy of every value stored with Set.
func (ec *ExecutionContext) GetAll() map[string]any {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	out := make(map[string]any, len(ec.data))
	for k, v := range ec.data {
		out[k] = v
	}
	return out
}

// Elapsed returns the time elapsed since the run started.
func (ec *ExecutionContext) Elapsed() time.Duration {
	return time.Since(ec.StartTime)
}
