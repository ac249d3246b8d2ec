package stepflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParallelStateBranchFailureIsCapturedNotFatal(t *testing.T) {
	registry := NewHandlerRegistry().
		Register("ok", func(ctx *ExecutionContext, doc any) (any, error) { return "fine", nil }).
		Register("boom", func(ctx *ExecutionContext, doc any) (any, error) { return nil, errors.New("kaboom") })

	okState, _ := NewTaskState("ok", time.Second, "ok", "", registry)
	failState, _ := NewTaskState("boom", time.Second, "boom", "", registry)

	okMachine, err := NewMachine("ok-branch", []State{okState}, "ok", 0, nil)
	if err != nil {
		t.Fatalf("NewMachine(ok): %v", err)
	}
	failMachine, err := NewMachine("fail-branch", []State{failState}, "boom", 0, nil)
	if err != nil {
		t.Fatalf("NewMachine(fail): %v", err)
	}

	fanOut := NewParallelState("fan-out", map[string]*Machine{
		"good": okMachine,
		"bad":  failMachine,
	}, "", 0, nil)

	ec := NewExecutionContext(context.Background(), "m", "mid", "eid")
	result, nextState, err := fanOut.Handle(ec, nil)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if nextState != "" {
		t.Errorf("got next state %q, want empty", nextState)
	}
	aggregate := result.(map[string]any)
	if aggregate["good"] != "fine" {
		t.Errorf("expected the successful branch's result to pass through, got %v", aggregate["good"])
	}
	failed, ok := aggregate["bad"].(map[string]any)
	if !ok {
		t.Fatalf("expected the failed branch to contribute a map entry, got %T", aggregate["bad"])
	}
	if _, ok := failed["error"]; !ok {
		t.Errorf("expected the failed branch's entry to carry an error field, got %v", failed)
	}
}

func TestParallelStateAggregateTimeoutFailsTheWholeState(t *testing.T) {
	registry := NewHandlerRegistry().Register("slow", func(ctx *ExecutionContext, doc any) (any, error) {
		time.Sleep(100 * time.Millisecond)
		return doc, nil
	})
	slowState, _ := NewTaskState("slow", 0, "slow", "", registry)
	slowMachine, err := NewMachine("slow-branch", []State{slowState}, "slow", 0, nil)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}

	fanOut := NewParallelState("fan-out", map[string]*Machine{"a": slowMachine}, "", 5*time.Millisecond, nil)

	ec := NewExecutionContext(context.Background(), "m", "mid", "eid")
	_, _, err = fanOut.Handle(ec, nil)
	if !IsExecutionTimeoutError(err) {
		t.Fatalf("got %v, want *ExecutionTimeoutError", err)
	}
}

