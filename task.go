package stepflow

import "time"

// HandlerFunc is a task's unit of work: given the execution context and the
// document flowing through the machine, it returns the document to pass to
// the next state. It mirrors the original system's
// `lambda_handler(event, context)` contract.
type HandlerFunc func(ctx *ExecutionContext, doc any) (any, error)

// HandlerRegistry resolves handler names to HandlerFunc values at machine
// build time. It stands in for the original's `{lambda_dir}/{state_name}`
// dynamic-import convention, which has no safe Go equivalent: handlers are
// registered by name up front instead of discovered on disk.
type HandlerRegistry struct {
	handlers map[string]HandlerFunc
}

// NewHandlerRegistry creates an empty HandlerRegistry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]HandlerFunc)}
}

// Register associates name with fn, overwriting any previous registration.
func (r *HandlerRegistry) Register(name string, fn HandlerFunc) *HandlerRegistry {
	r.handlers[name] = fn
	return r
}

// Lookup returns the handler registered under name, if any.
func (r *HandlerRegistry) Lookup(name string) (HandlerFunc, bool) {
	fn, ok := r.handlers[name]
	return fn, ok
}

// TaskState runs a single handler function and advances to a statically
// configured successor state.
type TaskState struct {
	name        string
	timeout     time.Duration
	handlerName string
	handler     HandlerFunc
	nextState   string
}

// NewTaskState builds a TaskState bound eagerly to handlerName's function in
// registry, per spec.md's Design Notes recommendation to resolve and bind
// handlers at build time rather than at run time. A nil registry, or a name
// registered with a nil function, is reported immediately as a
// *HandlerBindingError; a missing name as a *HandlerNotFoundError.
func NewTaskState(name string, timeout time.Duration, handlerName string, nextState string, registry *HandlerRegistry) (*TaskState, error) {
	if registry == nil {
		return nil, NewHandlerBindingError(name, "no handler registry supplied")
	}
	fn, ok := registry.Lookup(handlerName)
	if !ok {
		return nil, NewHandlerNotFoundError(name, handlerName)
	}
	if fn == nil {
		return nil, NewHandlerBindingError(name, "handler \""+handlerName+"\" is registered as nil")
	}
	return &TaskState{
		name:        name,
		timeout:     timeout,
		handlerName: handlerName,
		handler:     fn,
		nextState:   nextState,
	}, nil
}

// Name implements State.
func (s *TaskState) Name() string { return s.name }

// Timeout implements State.
func (s *TaskState) Timeout() time.Duration { return s.timeout }

// HandlerName returns the name this task's handler was registered under.
func (s *TaskState) HandlerName() string { return s.handlerName }

// NextState returns the statically configured successor state name, which
// may be empty to mark this task as the machine's terminal state.
func (s *TaskState) NextState() string { return s.nextState }

// Handle implements State by invoking the bound handler and advancing to
// the statically configured next state.
func (s *TaskState) Handle(ctx *ExecutionContext, doc any) (any, string, error) {
	out, err := s.handler(ctx, doc)
	if err != nil {
		return nil, "", NewStateExecutionError(s.name, err)
	}
	return out, s.nextState, nil
}
