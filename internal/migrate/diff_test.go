package migrate

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type noopMigration struct{}

func (noopMigration) Up(context.Context, struct{}) error   { return nil }
func (noopMigration) Down(context.Context, struct{}) error { return nil }

func entries(names ...string) []MigrationEntry {
	out := make([]MigrationEntry, len(names))
	for i, n := range names {
		out[i] = NewMigrationEntry[struct{}](n, noopMigration{})
	}
	return out
}

func names(entries []MigrationEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

// S2: first run, nothing persisted yet.
func TestDiffFirstRun(t *testing.T) {
	d, err := diff(entries("a", "b", "c"), nil)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(d.Pruned) != 0 {
		t.Errorf("Pruned = %v, want empty", d.Pruned)
	}
	if len(d.Completed) != 0 {
		t.Errorf("Completed = %v, want empty", d.Completed)
	}
	if got, want := names(d.Pending), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Pending = %v, want %v", got, want)
	}
}

// S3: no change, every configured migration already applied.
func TestDiffNoChange(t *testing.T) {
	d, err := diff(entries("a", "b"), []string{"a", "b"})
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(d.Pending) != 0 {
		t.Errorf("Pending = %v, want empty", d.Pending)
	}
	if got, want := names(d.Completed), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Completed = %v, want %v", got, want)
	}
}

// S1: smoke diff — some applied, some pending.
func TestDiffSmoke(t *testing.T) {
	d, err := diff(entries("a", "b", "c"), []string{"a"})
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if got, want := names(d.Completed), []string{"a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Completed = %v, want %v", got, want)
	}
	if got, want := names(d.Pending), []string{"b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Pending = %v, want %v", got, want)
	}
}

// S4: prune only — persisted history has a migration no longer configured,
// but it precedes everything still configured.
func TestDiffPruneOnly(t *testing.T) {
	d, err := diff(entries("b", "c"), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if got, want := d.Pruned, []string{"a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Pruned = %v, want %v", got, want)
	}
	if got, want := names(d.Completed), []string{"b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Completed = %v, want %v", got, want)
	}
	if len(d.Pending) != 0 {
		t.Errorf("Pending = %v, want empty", d.Pending)
	}
}

// S5: inconsistent — applied history disagrees with the configured order.
func TestDiffInconsistentMismatch(t *testing.T) {
	_, err := diff(entries("a", "x"), []string{"a", "b"})
	var ime *InconsistentMigrationScriptsError
	if !errors.As(err, &ime) {
		t.Fatalf("err = %v, want *InconsistentMigrationScriptsError", err)
	}
	if ime.ExpectedScript != "b" || ime.ActualScript != "x" {
		t.Errorf("got Expected=%q Actual=%q, want Expected=b Actual=x", ime.ExpectedScript, ime.ActualScript)
	}
}

// A previously-applied migration silently dropped from the tail of the
// configured list (never pruned) is also inconsistent.
func TestDiffInconsistentMissingTail(t *testing.T) {
	_, err := diff(entries("a"), []string{"a", "b"})
	var ime *InconsistentMigrationScriptsError
	if !errors.As(err, &ime) {
		t.Fatalf("err = %v, want *InconsistentMigrationScriptsError", err)
	}
	if ime.MissingScript != "b" {
		t.Errorf("MissingScript = %q, want %q", ime.MissingScript, "b")
	}
}

func TestDiffEmptyBoth(t *testing.T) {
	d, err := diff(nil, nil)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(d.Pruned) != 0 || len(d.Completed) != 0 || len(d.Pending) != 0 {
		t.Errorf("diff(nil, nil) = %+v, want all empty", d)
	}
}

func TestDiffAllPruned(t *testing.T) {
	d, err := diff(nil, []string{"a", "b"})
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if got, want := d.Pruned, []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Pruned = %v, want %v", got, want)
	}
}
