package migrate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/opsmigrate/migrate/internal/migratestate/memstate"
)

// controllableMigration fails on demand and records which direction ran.
type controllableMigration struct {
	failUp, failDown bool
	upRuns, downRuns *int
}

func (m controllableMigration) Up(context.Context, struct{}) error {
	if m.upRuns != nil {
		*m.upRuns++
	}
	if m.failUp {
		return errors.New("up failed")
	}
	return nil
}

func (m controllableMigration) Down(context.Context, struct{}) error {
	if m.downRuns != nil {
		*m.downRuns++
	}
	if m.failDown {
		return errors.New("down failed")
	}
	return nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Property: Up/Down symmetry — running an unbounded Up, then Down bounded
// at the first configured migration, restores the persisted state to empty.
func TestExecUpThenDownSymmetry(t *testing.T) {
	backend := memstate.New()

	build := func() *PlanBuilder {
		b := NewPlanBuilder(backend).
			Migration(NewMigrationEntry[struct{}]("a", controllableMigration{})).
			Migration(NewMigrationEntry[struct{}]("b", controllableMigration{}))
		CtxProvider[struct{}](b, &countingProvider{})
		return b
	}

	upPlan, err := build().Build(context.Background(), Up{})
	if err != nil {
		t.Fatalf("Build(Up): %v", err)
	}
	if err := upPlan.ExecWithLogger(context.Background(), RunModeCommit, silentLogger()); err != nil {
		t.Fatalf("Exec(Up): %v", err)
	}

	s, err := DecodeState(backend.Data())
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if got := s.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("after Up, Names() = %v, want [a b]", got)
	}

	downPlan, err := build().Build(context.Background(), Down{InclusiveBound: "a"})
	if err != nil {
		t.Fatalf("Build(Down): %v", err)
	}
	if err := downPlan.ExecWithLogger(context.Background(), RunModeCommit, silentLogger()); err != nil {
		t.Fatalf("Exec(Down): %v", err)
	}

	s, err = DecodeState(backend.Data())
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if len(s.Names()) != 0 {
		t.Errorf("after Down, Names() = %v, want empty", s.Names())
	}
}

// Property: state persistence on mid-loop failure — a migration that fails
// partway through Up still persists the attempt for the failed entry.
func TestExecUpFailureStillPersistsAttempt(t *testing.T) {
	backend := memstate.New()

	b := NewPlanBuilder(backend).
		Migration(NewMigrationEntry[struct{}]("a", controllableMigration{})).
		Migration(NewMigrationEntry[struct{}]("b", controllableMigration{failUp: true})).
		Migration(NewMigrationEntry[struct{}]("c", controllableMigration{}))
	CtxProvider[struct{}](b, &countingProvider{})

	plan, err := b.Build(context.Background(), Up{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	err = plan.ExecWithLogger(context.Background(), RunModeCommit, silentLogger())
	var pe *PlanExecError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PlanExecError", err)
	}
	var se *ExecMigrationScriptError
	if !errors.As(pe.Errors[0], &se) || se.Name != "b" {
		t.Fatalf("primary error = %v, want ExecMigrationScriptError for %q", pe.Errors[0], "b")
	}

	s, err := DecodeState(backend.Data())
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if got := s.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Names() = %v, want [a b] (c never reached, b's attempt still recorded)", got)
	}
}

// Property: the lock is always released, even when the loop fails.
func TestExecAlwaysReleasesLock(t *testing.T) {
	backend := memstate.New()

	b := NewPlanBuilder(backend).
		Migration(NewMigrationEntry[struct{}]("a", controllableMigration{failUp: true}))
	CtxProvider[struct{}](b, &countingProvider{})

	plan, err := b.Build(context.Background(), Up{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	_ = plan.ExecWithLogger(context.Background(), RunModeCommit, silentLogger())

	if backend.IsLocked() {
		t.Error("lock should be released after Exec, even on failure")
	}
}

// A NoCommit-declining context provider is skipped without aborting the
// plan, and Up does not record the skipped attempt.
func TestExecNoCommitSkipDoesNotPersistAttempt(t *testing.T) {
	backend := memstate.New()

	b := NewPlanBuilder(backend).
		Migration(NewMigrationEntry[struct{}]("a", controllableMigration{})).
		Migration(NewMigrationEntry[struct{}]("b", controllableMigration{}))
	CtxProvider[struct{}](b, &countingProvider{declineNoCommit: true})

	plan, err := b.Build(context.Background(), Up{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := plan.ExecWithLogger(context.Background(), RunModeNoCommit, silentLogger()); err != nil {
		t.Fatalf("Exec: %v", err)
	}

	s, err := DecodeState(backend.Data())
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if len(s.Names()) != 0 {
		t.Errorf("Names() = %v, want empty (no-commit declined, nothing actually ran)", s.Names())
	}
}

// epilogue failures (update/unlock) are appended after the primary cause,
// never reordered.
func TestExecEpilogueFailuresAppendAfterPrimary(t *testing.T) {
	backend := memstate.New()
	backend.UpdateErr = errors.New("disk full")
	backend.UnlockErr = errors.New("lock file vanished")

	b := NewPlanBuilder(backend).
		Migration(NewMigrationEntry[struct{}]("a", controllableMigration{failUp: true}))
	CtxProvider[struct{}](b, &countingProvider{})

	plan, err := b.Build(context.Background(), Up{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	err = plan.ExecWithLogger(context.Background(), RunModeCommit, silentLogger())
	var pe *PlanExecError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PlanExecError", err)
	}
	if len(pe.Errors) != 3 {
		t.Fatalf("Errors = %v, want 3 entries (primary, update, unlock)", pe.Errors)
	}
	var se *ExecMigrationScriptError
	var ue *UpdateStateError
	var ule *UnlockStateError
	if !errors.As(pe.Errors[0], &se) {
		t.Errorf("Errors[0] = %v, want *ExecMigrationScriptError", pe.Errors[0])
	}
	if !errors.As(pe.Errors[1], &ue) {
		t.Errorf("Errors[1] = %v, want *UpdateStateError", pe.Errors[1])
	}
	if !errors.As(pe.Errors[2], &ule) {
		t.Errorf("Errors[2] = %v, want *UnlockStateError", pe.Errors[2])
	}
}
