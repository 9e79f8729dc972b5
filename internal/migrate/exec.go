package migrate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// Exec runs the plan to completion using slog.Default() for per-entry
// observability. See ExecWithLogger for callers that want their own
// logger (e.g. the CLI driver, which passes internal/migratelog's
// rotating-file logger).
func (p *Plan) Exec(ctx context.Context, runMode RunMode) error {
	return p.ExecWithLogger(ctx, runMode, slog.Default())
}

// ExecWithLogger implements spec.md §4.5: it iterates the plan's
// migrations (forward for Up, reverse for Down), maintains the in-memory
// applied list, and always runs the save-on-exit epilogue (update + unlock)
// regardless of how the loop ended, aggregating epilogue failures after the
// primary cause (spec.md §7).
//
// Exec takes ownership of the plan: it must not be called twice on the
// same *Plan.
func (p *Plan) ExecWithLogger(ctx context.Context, runMode RunMode, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	applied := append([]AppliedMigration(nil), p.state.AppliedMigrations...)

	var primary error
	switch p.kind.Dir {
	case DirectionUp:
		applied, primary = p.execUp(ctx, runMode, logger, applied)
	case DirectionDown:
		applied, primary = p.execDown(ctx, runMode, logger, applied)
	}

	var errs []error
	if primary != nil {
		errs = append(errs, primary)
	}

	finalState := State{AppliedMigrations: applied}
	encoded, encErr := EncodeState(finalState)
	if encErr != nil {
		// EncodeState only fails on a programmer-supplied state the codec
		// cannot serialize; surface it the same way a backend Update
		// failure would be surfaced.
		errs = append(errs, &UpdateStateError{Cause: encErr})
	} else if err := p.guard.Client().Update(ctx, encoded); err != nil {
		errs = append(errs, &UpdateStateError{Cause: err})
	}

	if err := p.guard.Unlock(ctx); err != nil {
		errs = append(errs, &UnlockStateError{Cause: err})
	}

	if len(errs) == 0 {
		return nil
	}
	return &PlanExecError{Errors: errs}
}

func (p *Plan) execUp(ctx context.Context, runMode RunMode, logger *slog.Logger, applied []AppliedMigration) ([]AppliedMigration, error) {
	for _, entry := range p.kind.Entries {
		entryLogger := logger.With("migration_name", entry.Name, "direction", DirectionUp.String())

		// Append before invocation: a crash inside the script leaves the
		// state reflecting the attempt (spec.md §4.5, §7).
		applied = append(applied, AppliedMigration{Name: entry.Name})

		err := entry.script.exec(ctx, dispatchCtx{registry: p.registry, runMode: runMode, dir: DirectionUp})
		if errors.Is(err, ErrCtxLacksNoCommitMode) {
			// Declined before the script ran: undo the speculative append,
			// the attempt never actually happened.
			applied = applied[:len(applied)-1]
			entryLogger.Info("skipping (no-commit unsupported)")
			continue
		}
		if err != nil {
			return applied, &ExecMigrationScriptError{Name: entry.Name, Dir: DirectionUp, Cause: err}
		}
		entryLogger.Info("applied migration")
	}
	return applied, nil
}

func (p *Plan) execDown(ctx context.Context, runMode RunMode, logger *slog.Logger, applied []AppliedMigration) ([]AppliedMigration, error) {
	entries := p.kind.Entries
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		entryLogger := logger.With("migration_name", entry.Name, "direction", DirectionDown.String())

		if len(applied) == 0 || applied[len(applied)-1].Name != entry.Name {
			panic("migrate: in-memory applied list out of sync with plan during Down exec")
		}
		applied = applied[:len(applied)-1]

		err := entry.script.exec(ctx, dispatchCtx{registry: p.registry, runMode: runMode, dir: DirectionDown})
		if errors.Is(err, ErrCtxLacksNoCommitMode) {
			// The pop still stands: a declined rollback is still a rollback
			// of the persisted record for this entry.
			entryLogger.Info("skipping (no-commit unsupported)")
			continue
		}
		if err != nil {
			return applied, &ExecMigrationScriptError{Name: entry.Name, Dir: DirectionDown, Cause: err}
		}
		entryLogger.Info("rolled back migration")
	}
	return applied, nil
}
