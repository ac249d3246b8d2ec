package declare_test

import (
	"context"
	"strings"
	"testing"

	"github.com/anggasct/stepflow"
	"github.com/anggasct/stepflow/declare"
)

const sampleYAML = `
entry: main
vars:
  approval_conditions:
    - "when $.amount lte 100 then #approved else #rejected"
machines:
  main:
    name: main
    head: gate
    states:
      gate:
        type: choice
        conditions: approval_conditions
        state_refs:
          approved: approved_state
          rejected: rejected_state
      approved_state:
        type: task
        handler: approve
        next: ""
      rejected_state:
        type: task
        handler: reject
        next: ""
`

func TestLoadParsesEntryAndMachines(t *testing.T) {
	doc, err := declare.Load(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Entry != "main" {
		t.Fatalf("got entry %q, want main", doc.Entry)
	}
	if _, ok := doc.Machines["main"]; !ok {
		t.Fatal("expected the main machine to be present")
	}
}

func TestLoadRejectsMissingEntry(t *testing.T) {
	_, err := declare.Load(strings.NewReader("machines:\n  main:\n    name: main\n"))
	if err == nil {
		t.Fatal("expected an error for a declaration with no entry")
	}
}

func TestLoadRejectsUndefinedEntryMachine(t *testing.T) {
	_, err := declare.Load(strings.NewReader("entry: ghost\nmachines:\n  main:\n    name: main\n"))
	if err == nil {
		t.Fatal("expected an error when entry names an undefined machine")
	}
}

func TestBuildConstructsARunnableMachine(t *testing.T) {
	doc, err := declare.Load(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	registry := stepflow.NewHandlerRegistry().
		Register("approve", func(ctx *stepflow.ExecutionContext, d any) (any, error) { return "approved", nil }).
		Register("reject", func(ctx *stepflow.ExecutionContext, d any) (any, error) { return "rejected", nil })

	m, err := declare.Build(doc, registry, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	result, err := m.Run(context.Background(), map[string]any{"amount": 50})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "approved" {
		t.Errorf("got %v, want approved", result)
	}

	result, err = m.Run(context.Background(), map[string]any{"amount": 5000})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "rejected" {
		t.Errorf("got %v, want rejected", result)
	}
}

func TestBuildReportsUndefinedConditions(t *testing.T) {
	doc, err := declare.Load(strings.NewReader(`
entry: main
machines:
  main:
    name: main
    head: gate
    states:
      gate:
        type: choice
        conditions: missing
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = declare.Build(doc, stepflow.NewHandlerRegistry(), nil)
	if err == nil {
		t.Fatal("expected an error for a choice state referencing undefined conditions")
	}
}

const parallelYAML = `
entry: main
machines:
  main:
    name: main
    head: fan-out
    states:
      fan-out:
        type: parallel
        next: ""
        branches:
          left: left-machine
          right: right-machine
  left-machine:
    name: left-machine
    head: left
    states:
      left:
        type: task
        handler: left
        next: ""
  right-machine:
    name: right-machine
    head: right
    states:
      right:
        type: task
        handler: right
        next: ""
`

func TestBuildWiresParallelBranches(t *testing.T) {
	doc, err := declare.Load(strings.NewReader(parallelYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	registry := stepflow.NewHandlerRegistry().
		Register("left", func(ctx *stepflow.ExecutionContext, d any) (any, error) { return "left-done", nil }).
		Register("right", func(ctx *stepflow.ExecutionContext, d any) (any, error) { return "right-done", nil })

	m, err := declare.Build(doc, registry, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	result, err := m.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	aggregate, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected a map result, got %T", result)
	}
	if aggregate["left"] != "left-done" || aggregate["right"] != "right-done" {
		t.Errorf("got %v", aggregate)
	}
}
