package stepflow

import (
	"fmt"
	"log"
	"os"
)

// Observer receives lifecycle notifications from a running machine.
type Observer interface {
	// OnStateEnter is called immediately before a state's handler runs.
	OnStateEnter(stateName string, ctx *ExecutionContext)

	// OnStateExit is called after a state's handler returns successfully.
	OnStateExit(stateName string, ctx *ExecutionContext)
}

// ExtendedObserver adds optional notifications a caller can implement on
// top of Observer. Implementations that only care about a subset may embed
// BaseObserver and override the methods they need.
type ExtendedObserver interface {
	Observer

	// OnMachineStarted is called once, before the head state is entered.
	OnMachineStarted(ctx *ExecutionContext)

	// OnMachineStopped is called once, after the run returns a final
	// document (err is nil) or fails (err is non-nil).
	OnMachineStopped(ctx *ExecutionContext, err error)

	// OnChoiceEvaluated is called after a choice state resolves its
	// successor, naming the state it chose.
	OnChoiceEvaluated(choiceName, chosen string, ctx *ExecutionContext)

	// OnTimeoutAdjusted is called when a machine's or parallel state's
	// declared timeout was raised to accommodate its children's timeouts.
	OnTimeoutAdjusted(owner string, declared, adjusted string)

	// OnBranchCompleted is called once per completed branch of a parallel
	// state, whether it succeeded or failed.
	OnBranchCompleted(parallelName, branch string, err error)

	// OnError is called whenever the driver is about to return a non-nil
	// error from Run.
	OnError(err error, ctx *ExecutionContext)
}

// BaseObserver implements ExtendedObserver with no-op methods so that
// callers can embed it and override only what they need.
type BaseObserver struct{}

func (BaseObserver) OnStateEnter(string, *ExecutionContext)        {}
func (BaseObserver) OnStateExit(string, *ExecutionContext)         {}
func (BaseObserver) OnMachineStarted(*ExecutionContext)            {}
func (BaseObserver) OnMachineStopped(*ExecutionContext, error)     {}
func (BaseObserver) OnChoiceEvaluated(string, string, *ExecutionContext) {}
func (BaseObserver) OnTimeoutAdjusted(string, string, string)      {}
func (BaseObserver) OnBranchCompleted(string, string, error)       {}
func (BaseObserver) OnError(error, *ExecutionContext)              {}

// ObserverManager fans lifecycle notifications out to a set of registered
// observers, isolating each observer's panics so that one misbehaving
// observer cannot take down a run.
type ObserverManager struct {
	observers []Observer
}

// NewObserverManager creates an empty ObserverManager.
func NewObserverManager() *ObserverManager {
	return &ObserverManager{observers: make([]Observer, 0)}
}

// AddObserver registers an observer.
func (om *ObserverManager) AddObserver(observer Observer) {
	om.observers = append(om.observers, observer)
}

// RemoveObserver unregisters an observer previously added with AddObserver.
func (om *ObserverManager) RemoveObserver(observer Observer) {
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			return
		}
	}
}

func (om *ObserverManager) snapshot() []Observer {
	observers := make([]Observer, len(om.observers))
	copy(observers, om.observers)
	return observers
}

func (om *ObserverManager) guard(ctx *ExecutionContext, name string, fn func(Observer)) {
	for _, observer := range om.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if ext, ok := observer.(ExtendedObserver); ok {
						func() {
							defer func() { recover() }()
							ext.OnError(fmt.Errorf("observer panic in %s: %v", name, r), ctx)
						}()
					}
				}
			}()
			fn(observer)
		}()
	}
}

// NotifyStateEnter notifies all observers that a state is being entered.
func (om *ObserverManager) NotifyStateEnter(stateName string, ctx *ExecutionContext) {
	om.guard(ctx, "OnStateEnter", func(o Observer) { o.OnStateEnter(stateName, ctx) })
}

// NotifyStateExit notifies all observers that a state has exited.
func (om *ObserverManager) NotifyStateExit(stateName string, ctx *ExecutionContext) {
	om.guard(ctx, "OnStateExit", func(o Observer) { o.OnStateExit(stateName, ctx) })
}

// NotifyMachineStarted notifies ExtendedObserver implementations that a run started.
func (om *ObserverManager) NotifyMachineStarted(ctx *ExecutionContext) {
	om.guard(ctx, "OnMachineStarted", func(o Observer) {
		if ext, ok := o.(ExtendedObserver); ok {
			ext.OnMachineStarted(ctx)
		}
	})
}

// NotifyMachineStopped notifies ExtendedObserver implementations that a run finished.
func (om *ObserverManager) NotifyMachineStopped(ctx *ExecutionContext, err error) {
	om.guard(ctx, "OnMachineStopped", func(o Observer) {
		if ext, ok := o.(ExtendedObserver); ok {
			ext.OnMachineStopped(ctx, err)
		}
	})
}

// NotifyChoiceEvaluated notifies ExtendedObserver implementations of a choice outcome.
func (om *ObserverManager) NotifyChoiceEvaluated(choiceName, chosen string, ctx *ExecutionContext) {
	om.guard(ctx, "OnChoiceEvaluated", func(o Observer) {
		if ext, ok := o.(ExtendedObserver); ok {
			ext.OnChoiceEvaluated(choiceName, chosen, ctx)
		}
	})
}

// NotifyTimeoutAdjusted notifies ExtendedObserver implementations of a raised timeout.
func (om *ObserverManager) NotifyTimeoutAdjusted(owner, declared, adjusted string) {
	om.guard(nil, "OnTimeoutAdjusted", func(o Observer) {
		if ext, ok := o.(ExtendedObserver); ok {
			ext.OnTimeoutAdjusted(owner, declared, adjusted)
		}
	})
}

// NotifyBranchCompleted notifies ExtendedObserver implementations that a parallel branch finished.
func (om *ObserverManager) NotifyBranchCompleted(parallelName, branch string, err error) {
	om.guard(nil, "OnBranchCompleted", func(o Observer) {
		if ext, ok := o.(ExtendedObserver); ok {
			ext.OnBranchCompleted(parallelName, branch, err)
		}
	})
}

// NotifyError notifies ExtendedObserver implementations of a terminal run error.
func (om *ObserverManager) NotifyError(err error, ctx *ExecutionContext) {
	om.guard(ctx, "OnError", func(o Observer) {
		if ext, ok := o.(ExtendedObserver); ok {
			ext.OnError(err, ctx)
		}
	})
}

// LogObserver is the default ExtendedObserver, writing one line per event to
// a standard library *log.Logger. It is what the CLI registers when run
// with -verbose; the engine itself never writes to a logger directly.
type LogObserver struct {
	BaseObserver
	logger *log.Logger
}

// NewLogObserver creates a LogObserver writing to os.Stderr with a
// "stepflow: " prefix. Pass a custom *log.Logger to NewLogObserverWith to
// redirect output.
func NewLogObserver() *LogObserver {
	return NewLogObserverWith(log.New(os.Stderr, "stepflow: ", log.LstdFlags))
}

// NewLogObserverWith creates a LogObserver writing through logger.
func NewLogObserverWith(logger *log.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnStateEnter(stateName string, ctx *ExecutionContext) {
	o.logger.Printf("enter state=%s execution=%s", stateName, ctx.ExecutionID)
}

func (o *LogObserver) OnStateExit(stateName string, ctx *ExecutionContext) {
	o.logger.Printf("exit state=%s execution=%s", stateName, ctx.ExecutionID)
}

func (o *LogObserver) OnMachineStarted(ctx *ExecutionContext) {
	o.logger.Printf("machine started name=%s execution=%s", ctx.MachineName, ctx.ExecutionID)
}

func (o *LogObserver) OnMachineStopped(ctx *ExecutionContext, err error) {
	if err != nil {
		o.logger.Printf("machine stopped name=%s execution=%s error=%v", ctx.MachineName, ctx.ExecutionID, err)
		return
	}
	o.logger.Printf("machine stopped name=%s execution=%s", ctx.MachineName, ctx.ExecutionID)
}

func (o *LogObserver) OnChoiceEvaluated(choiceName, chosen string, ctx *ExecutionContext) {
	o.logger.Printf("choice=%s chose=%s execution=%s", choiceName, chosen, ctx.ExecutionID)
}

func (o *LogObserver) OnTimeoutAdjusted(owner, declared, adjusted string) {
	o.logger.Printf("timeout adjusted owner=%s declared=%s adjusted=%s", owner, declared, adjusted)
}

func (o *LogObserver) OnBranchCompleted(parallelName, branch string, err error) {
	if err != nil {
		o.logger.Printf("parallel=%s branch=%s failed: %v", parallelName, branch, err)
		return
	}
	o.logger.Printf("parallel=%s branch=%s completed", parallelName, branch)
}

func (o *LogObserver) OnError(err error, ctx *ExecutionContext) {
	if ctx == nil {
		o.logger.Printf("error: %v", err)
		return
	}
	o.logger.Printf("error execution=%s: %v", ctx.ExecutionID, err)
}
