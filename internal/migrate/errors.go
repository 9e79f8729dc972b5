package migrate

import (
	"errors"
	"fmt"
	"reflect"
)

// Build-time error kinds (spec.md §7 "PlanBuildError").
//
// Each is a distinct type rather than one struct with a "kind" field, so
// callers can discriminate with errors.As the same way the teacher's own
// code discriminates sql.ErrNoRows from other driver errors.

// InconsistentMigrationScriptsError is returned when the diff algorithm
// (§4.3) cannot reconcile the configured list against persisted history.
type InconsistentMigrationScriptsError struct {
	// ExpectedScript / ActualScript name the mismatch site when the lists
	// disagree at a position; MissingScript names a previously-applied
	// migration missing from the tail of the configured list. At most one
	// of these diagnostics is populated per failure.
	ExpectedScript string
	ActualScript   string
	MissingScript  string
}

func (e *InconsistentMigrationScriptsError) Error() string {
	if e.MissingScript != "" {
		return fmt.Sprintf("migrate: configured migrations are missing previously applied migration %q", e.MissingScript)
	}
	return fmt.Sprintf("migrate: configured migrations are inconsistent with applied history (expected %q, found %q)", e.ExpectedScript, e.ActualScript)
}

// StateDecodeError wraps a PersistedState codec failure, preserving the raw
// bytes for diagnostics per spec.md §4.1.
type StateDecodeError struct {
	RawBytes []byte
	Cause    error
}

func (e *StateDecodeError) Error() string {
	return fmt.Sprintf("migrate: failed to decode persisted state (%d bytes): %v", len(e.RawBytes), e.Cause)
}

func (e *StateDecodeError) Unwrap() error { return e.Cause }

// StateLockError wraps a StateLock.Lock failure.
type StateLockError struct{ Cause error }

func (e *StateLockError) Error() string { return fmt.Sprintf("migrate: failed to acquire state lock: %v", e.Cause) }
func (e *StateLockError) Unwrap() error { return e.Cause }

// StateFetchError wraps a StateClient.Fetch failure.
type StateFetchError struct{ Cause error }

func (e *StateFetchError) Error() string { return fmt.Sprintf("migrate: failed to fetch persisted state: %v", e.Cause) }
func (e *StateFetchError) Unwrap() error { return e.Cause }

// UnknownMigrationError is returned when a selection's bound name is not
// present in the relevant slice (pending for Up, completed for Down).
type UnknownMigrationError struct {
	Name      string
	Available []string
}

func (e *UnknownMigrationError) Error() string {
	return fmt.Sprintf("migrate: unknown migration %q (available: %v)", e.Name, e.Available)
}

// Execute-time error kinds (spec.md §7 "PlanExecError").

// ExecMigrationScriptError wraps a user Up/Down failure. It aborts the
// forward/reverse loop immediately.
type ExecMigrationScriptError struct {
	Name  string
	Dir   Direction
	Cause error
}

func (e *ExecMigrationScriptError) Error() string {
	return fmt.Sprintf("migrate: migration %q failed on %s: %v", e.Name, e.Dir, e.Cause)
}
func (e *ExecMigrationScriptError) Unwrap() error { return e.Cause }

// CreateMigrationCtxError wraps a MigrationCtxProvider construction failure.
type CreateMigrationCtxError struct {
	CtxType reflect.Type
	RunMode RunMode
	Cause   error
}

func (e *CreateMigrationCtxError) Error() string {
	return fmt.Sprintf("migrate: failed to construct %s context for %v: %v", e.RunMode, e.CtxType, e.Cause)
}
func (e *CreateMigrationCtxError) Unwrap() error { return e.Cause }

// ErrCtxLacksNoCommitMode is the recoverable sentinel described in
// spec.md §4.2/§7/§9: the script adapter returns it when the registry
// reports (via skipSentinel) that a provider declined no-commit mode, and
// the executor converts it into a logged skip. It is
// modeled inside this taxonomy for ergonomics but should never appear in a
// PlanExecError.Errors slice from a normal run.
var ErrCtxLacksNoCommitMode = errors.New("migrate: context provider has no no-commit mode")

// UpdateStateError wraps a StateClient.Update failure during exec's
// save-on-exit epilogue.
type UpdateStateError struct{ Cause error }

func (e *UpdateStateError) Error() string { return fmt.Sprintf("migrate: failed to persist state: %v", e.Cause) }
func (e *UpdateStateError) Unwrap() error { return e.Cause }

// UnlockStateError wraps a StateGuard.Unlock failure during exec's
// save-on-exit epilogue.
type UnlockStateError struct{ Cause error }

func (e *UnlockStateError) Error() string { return fmt.Sprintf("migrate: failed to release state lock: %v", e.Cause) }
func (e *UnlockStateError) Unwrap() error { return e.Cause }

// PlanExecError is the ordered error bundle produced by Plan.Exec. Errors[0]
// is always the primary cause (the first failure encountered); any
// remaining entries are epilogue failures (UpdateStateError/
// UnlockStateError) appended after the loop, never reordered.
type PlanExecError struct {
	Errors []error
}

func (e *PlanExecError) Error() string {
	if len(e.Errors) == 0 {
		return "migrate: exec failed with no recorded errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := e.Errors[0].Error()
	msg += fmt.Sprintf(" (%d additional errors:", len(e.Errors)-1)
	for i, err := range e.Errors[1:] {
		if i > 0 {
			msg += ";"
		}
		msg += " " + err.Error()
	}
	msg += ")"
	return msg
}

// Unwrap exposes the primary cause to errors.Is/errors.As.
func (e *PlanExecError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}
