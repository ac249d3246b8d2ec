// Package declare loads YAML machine declarations into stepflow.Machine
// values, mirroring the role of `original_source/core/parser_machine.py`'s
// StateMachineParser/StateConfigurationProcessor: a file names one entry
// machine, a set of named machines, and per-machine state definitions plus
// a shared pool of choice condition lists.
package declare

// Document is the top-level shape of a machine declaration file. Entry
// names the machine in Machines that Build builds and returns.
type Document struct {
	Entry    string                 `yaml:"entry"`
	Vars     map[string][]string    `yaml:"vars"`
	Machines map[string]MachineDecl `yaml:"machines"`
}

// MachineDecl declares one machine: its head state and the set of states
// reachable from it, keyed by state name. A machine's name is the key it is
// declared under in Document.Machines, not a field of its own, so there is
// no way for the two to drift apart.
type MachineDecl struct {
	Timeout string               `yaml:"timeout"`
	Head    string               `yaml:"head"`
	States  map[string]StateDecl `yaml:"states"`
}

// StateDecl declares one state. Type selects which of the remaining fields
// apply: "task" uses Handler/Next, "choice" uses Conditions (a key into the
// document's Vars) and StateRefs, "parallel" uses Branches (names of other
// machines in the same document) and Next.
type StateDecl struct {
	Type       string            `yaml:"type"`
	Timeout    string            `yaml:"timeout"`
	Handler    string            `yaml:"handler"`
	Next       string            `yaml:"next"`
	Conditions string            `yaml:"conditions"`
	StateRefs  map[string]string `yaml:"state_refs"`
	Branches   map[string]string `yaml:"branches"`
	AllowMissingDefault bool      `yaml:"allow_missing_default"`
}
