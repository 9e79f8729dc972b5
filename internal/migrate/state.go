package migrate

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// AppliedMigration is one record in PersistedState.AppliedMigrations.
type AppliedMigration struct {
	Name string `yaml:"name"`
}

// State is the decoded form of the persisted blob (spec.md §3
// "PersistedState"). AppliedMigrations is ordered and must equal the
// forward-execution order (invariant 1).
type State struct {
	AppliedMigrations []AppliedMigration
}

// stateRoot is the on-wire, version-discriminated envelope. Decode must
// accept the current version and reject unknown ones; encode always writes
// the current version.
type stateRoot struct {
	Version           string             `yaml:"version"`
	AppliedMigrations []AppliedMigration `yaml:"applied_migrations"`
}

const currentStateVersion = "v1"

// DecodeState implements the codec of spec.md §4.1: empty bytes decode to
// the empty state; non-empty bytes must parse as the versioned root, and
// an unknown version or a parse failure returns a *StateDecodeError
// carrying the raw bytes for diagnostics.
func DecodeState(raw []byte) (State, error) {
	if len(raw) == 0 {
		return State{}, nil
	}

	var root stateRoot
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return State{}, &StateDecodeError{RawBytes: raw, Cause: err}
	}

	switch root.Version {
	case currentStateVersion:
		return State{AppliedMigrations: root.AppliedMigrations}, nil
	case "":
		return State{}, &StateDecodeError{RawBytes: raw, Cause: fmt.Errorf("missing version tag")}
	default:
		return State{}, &StateDecodeError{RawBytes: raw, Cause: fmt.Errorf("unknown state version %q", root.Version)}
	}
}

// EncodeState serializes the current version tag plus the applied list. It
// is the inverse of DecodeState on any state the codec itself produced.
func EncodeState(s State) ([]byte, error) {
	root := stateRoot{
		Version:           currentStateVersion,
		AppliedMigrations: s.AppliedMigrations,
	}
	out, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("migrate: failed to encode state: %w", err)
	}
	return out, nil
}

// Names returns the applied migration names in order, the form in which
// PlanBuilder hands persisted history to the diff algorithm.
func (s State) Names() []string {
	names := make([]string, len(s.AppliedMigrations))
	for i, m := range s.AppliedMigrations {
		names[i] = m.Name
	}
	return names
}
