package migrate

import (
	"context"
	"fmt"
	"reflect"
)

// Direction is the tagged union of execution directions a script adapter
// dispatches on, preferred over two parallel loops (spec design notes §9).
type Direction int

const (
	// DirectionUp runs a migration's forward step.
	DirectionUp Direction = iota
	// DirectionDown runs a migration's reverse step.
	DirectionDown
)

func (d Direction) String() string {
	if d == DirectionDown {
		return "down"
	}
	return "up"
}

// RunMode selects whether a migration receives a context that mutates the
// real resource (Commit) or a diagnostic-only context (NoCommit).
type RunMode int

const (
	// RunModeCommit constructs contexts via CommitModeCreate.
	RunModeCommit RunMode = iota
	// RunModeNoCommit constructs contexts via NoCommitModeCreate.
	RunModeNoCommit
)

func (m RunMode) String() string {
	if m == RunModeNoCommit {
		return "no-commit"
	}
	return "commit"
}

// Migration is the capability a user registers with the engine. Ctx is the
// compile-time-chosen context type the migration expects; the adapter
// erases it behind ctxType (a reflect.Type key) and recovers it at
// dispatch time via a type assertion.
type Migration[Ctx any] interface {
	Up(ctx context.Context, migCtx Ctx) error
	Down(ctx context.Context, migCtx Ctx) error
}

// MigrationCtxProvider constructs the context a Migration[Ctx] runs with.
// NoCommitModeCreate may decline by returning ErrNoCommitUnsupported: the
// registry turns that into the recoverable CtxLacksNoCommitMode sentinel.
type MigrationCtxProvider[Ctx any] interface {
	CommitModeCreate(ctx context.Context) (Ctx, error)
	NoCommitModeCreate(ctx context.Context) (Ctx, error)
}

// ErrNoCommitUnsupported is returned by NoCommitModeCreate to decline
// no-commit mode for a context type. It is a sentinel value, never wrapped.
var ErrNoCommitUnsupported = fmt.Errorf("migrate: no-commit mode unsupported for this context type")

// scriptHandle is the context-agnostic capability a MigrationEntry stores.
// It is the "uniform script handle" from spec design notes §9: migrations
// vary in Ctx, but every entry exposes the same exec(dispatchCtx) shape.
type scriptHandle interface {
	exec(ctx context.Context, dispatch dispatchCtx) error
	ctxType() reflect.Type
}

// dispatchCtx carries everything a script adapter needs at invocation time:
// the registry to resolve its context from, the run mode, and the direction.
type dispatchCtx struct {
	registry *ContextRegistry
	runMode  RunMode
	dir      Direction
}

// migrationAdapter wraps a Migration[Ctx], erasing Ctx behind scriptHandle.
// It holds no provider: the context is looked up in the registry on every
// exec.
type migrationAdapter[Ctx any] struct {
	mig  Migration[Ctx]
	typ  reflect.Type
}

func newMigrationAdapter[Ctx any](mig Migration[Ctx]) *migrationAdapter[Ctx] {
	var zero Ctx
	return &migrationAdapter[Ctx]{
		mig: mig,
		typ: reflect.TypeOf(&zero).Elem(),
	}
}

func (a *migrationAdapter[Ctx]) ctxType() reflect.Type {
	return a.typ
}

func (a *migrationAdapter[Ctx]) exec(ctx context.Context, d dispatchCtx) error {
	raw, err := getContext(d.registry, a.typ, ctx, d.runMode)
	if err != nil {
		return err
	}
	if raw == skipSentinel {
		return ErrCtxLacksNoCommitMode
	}
	migCtx, ok := raw.(Ctx)
	if !ok {
		// Programmer error: the provider registered under this type
		// produced a value of the wrong Go type.
		panic(fmt.Sprintf("migrate: context registered for %v does not satisfy the migration's Ctx type", a.typ))
	}
	switch d.dir {
	case DirectionDown:
		return a.mig.Down(ctx, migCtx)
	default:
		return a.mig.Up(ctx, migCtx)
	}
}

// MigrationEntry is the internal, one-per-configured-migration record
// (spec.md §3). It is owned by PlanBuilder until build(), then moved into
// one of the plan's sequences.
type MigrationEntry struct {
	Name   string
	script scriptHandle
}

// NewMigrationEntry wraps a user Migration behind the uniform script
// handle. Ctx is inferred from the Migration argument.
func NewMigrationEntry[Ctx any](name string, mig Migration[Ctx]) MigrationEntry {
	return MigrationEntry{
		Name:   name,
		script: newMigrationAdapter[Ctx](mig),
	}
}
