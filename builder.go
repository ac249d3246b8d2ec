package stepflow

import (
	"time"

	"github.com/anggasct/stepflow/choice"
)

// MachineBuilder provides the main fluent entry point for assembling a
// Machine, in the chained style of the teacher library's own builder: each
// state-kind method adds one state and returns the same builder, so calls
// chain up to a terminal Build.
type MachineBuilder struct {
	name      string
	timeout   time.Duration
	head      string
	states    []State
	registry  *HandlerRegistry
	cache     *choice.Cache
	observers *ObserverManager
	err       error
}

// NewMachineBuilder starts building a machine named name, resolving task
// handlers from registry and caching compiled choice programs under cache
// (which may be nil to disable on-disk caching).
func NewMachineBuilder(name string, registry *HandlerRegistry, cache *choice.Cache) *MachineBuilder {
	return &MachineBuilder{
		name:      name,
		registry:  registry,
		cache:     cache,
		observers: NewObserverManager(),
	}
}

// WithTimeout sets the machine's declared overall timeout.
func (b *MachineBuilder) WithTimeout(timeout time.Duration) *MachineBuilder {
	b.timeout = timeout
	return b
}

// WithObserver registers an observer on the machine under construction.
func (b *MachineBuilder) WithObserver(observer Observer) *MachineBuilder {
	b.observers.AddObserver(observer)
	return b
}

// Head marks stateName as the machine's entry point.
func (b *MachineBuilder) Head(stateName string) *MachineBuilder {
	b.head = stateName
	return b
}

// Task adds a task state bound to handlerName's function in the builder's
// registry, advancing to nextState (which may be "" to mark it terminal).
func (b *MachineBuilder) Task(name string, timeout time.Duration, handlerName, nextState string) *MachineBuilder {
	if b.err != nil {
		return b
	}
	st, err := NewTaskState(name, timeout, handlerName, nextState, b.registry)
	if err != nil {
		b.err = err
		return b
	}
	b.states = append(b.states, st)
	return b
}

// Choice adds a choice state compiling statements against stateRefs (a tag
// -> state name map).
func (b *MachineBuilder) Choice(name string, timeout time.Duration, statements []string, stateRefs map[string]string, opts choice.Options) *MachineBuilder {
	if b.err != nil {
		return b
	}
	st, err := NewChoiceState(name, timeout, statements, stateRefs, b.cache, opts)
	if err != nil {
		b.err = err
		return b
	}
	b.states = append(b.states, st)
	return b
}

// Parallel adds a parallel state fanning out to the given named branch
// machines before advancing to nextState.
func (b *MachineBuilder) Parallel(name string, branches map[string]*Machine, nextState string, declaredTimeout time.Duration) *MachineBuilder {
	if b.err != nil {
		return b
	}
	st := NewParallelState(name, branches, nextState, declaredTimeout, b.observers)
	b.states = append(b.states, st)
	return b
}

// Build assembles the collected states into a Machine, or returns the first
// error encountered while adding a state.
func (b *MachineBuilder) Build() (*Machine, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewMachine(b.name, b.states, b.head, b.timeout, b.observers)
}

// Err returns the first error encountered while adding a state, if any,
// without consuming it. Callers that need to attribute a state-construction
// failure to a specific declaration (e.g. the declare package) can check
// this immediately after each builder call instead of waiting for Build.
func (b *MachineBuilder) Err() error {
	return b.err
}

// BranchBuilder is a convenience for constructing the small sub-machines
// that feed a Parallel call. It resolves handlers and caches choice
// programs through the registry and cache it is given; passing the
// parent's makes branch task/choice states resolve against the same
// configuration.
type BranchBuilder struct {
	*MachineBuilder
}

// NewBranchBuilder starts building one named branch of a parallel state.
func NewBranchBuilder(name string, registry *HandlerRegistry, cache *choice.Cache) *BranchBuilder {
	return &BranchBuilder{MachineBuilder: NewMachineBuilder(name, registry, cache)}
}
