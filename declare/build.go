package declare

import (
	"fmt"
	"time"

	"github.com/anggasct/stepflow"
	"github.com/anggasct/stepflow/choice"
)

// Build compiles the document's entry machine into a runnable
// stepflow.Machine, resolving task handlers from registry and caching
// compiled choice programs under cache (which may be nil).
func Build(doc *Document, registry *stepflow.HandlerRegistry, cache *choice.Cache) (*stepflow.Machine, error) {
	return buildMachine(doc, doc.Entry, registry, cache)
}

func buildMachine(doc *Document, machineName string, registry *stepflow.HandlerRegistry, cache *choice.Cache) (*stepflow.Machine, error) {
	decl, ok := doc.Machines[machineName]
	if !ok {
		return nil, fmt.Errorf("declare: machine %q is not defined", machineName)
	}

	timeout, err := parseDuration(decl.Timeout)
	if err != nil {
		return nil, fmt.Errorf("declare: machine %q: %w", machineName, err)
	}

	builder := stepflow.NewMachineBuilder(machineName, registry, cache).
		WithTimeout(timeout).
		Head(decl.Head)

	for stateName, stateDecl := range decl.States {
		if err := addState(builder, doc, stateName, stateDecl, registry, cache); err != nil {
			return nil, fmt.Errorf("declare: machine %q, state %q: %w", machineName, stateName, err)
		}
	}

	return builder.Build()
}

func addState(builder *stepflow.MachineBuilder, doc *Document, stateName string, decl StateDecl, registry *stepflow.HandlerRegistry, cache *choice.Cache) error {
	stateTimeout, err := parseDuration(decl.Timeout)
	if err != nil {
		return err
	}

	switch decl.Type {
	case "task":
		builder.Task(stateName, stateTimeout, decl.Handler, decl.Next)
		return builder.Err()

	case "choice":
		statements, ok := doc.Vars[decl.Conditions]
		if !ok {
			return fmt.Errorf("conditions %q are not defined in vars", decl.Conditions)
		}
		builder.Choice(stateName, stateTimeout, statements, decl.StateRefs, choice.Options{
			AllowMissingDefault: decl.AllowMissingDefault,
		})
		return builder.Err()

	case "parallel":
		branches := make(map[string]*stepflow.Machine, len(decl.Branches))
		for branchName, branchMachine := range decl.Branches {
			m, err := buildMachine(doc, branchMachine, registry, cache)
			if err != nil {
				return fmt.Errorf("branch %q: %w", branchName, err)
			}
			branches[branchName] = m
		}
		builder.Parallel(stateName, branches, decl.Next, stateTimeout)
		return nil

	default:
		return fmt.Errorf("unknown state type %q", decl.Type)
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
