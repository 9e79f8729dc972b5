package migrate

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// ctxState is the per-type lifecycle state described in spec.md §3
// ("ContextRegistry entry").
type ctxState int

const (
	ctxUninit ctxState = iota
	ctxInit
	ctxUnavailableNoCommit
)

// typeErasedProvider lets ContextRegistry hold MigrationCtxProvider[Ctx]
// values of differing Ctx behind one map, the same erasure trick used by
// migrationAdapter for scriptHandle.
type typeErasedProvider interface {
	commitCreate(ctx context.Context) (any, error)
	noCommitCreate(ctx context.Context) (any, error)
	ctxType() reflect.Type
}

type providerAdapter[Ctx any] struct {
	p   MigrationCtxProvider[Ctx]
	typ reflect.Type
}

func (a *providerAdapter[Ctx]) commitCreate(ctx context.Context) (any, error) {
	return a.p.CommitModeCreate(ctx)
}

func (a *providerAdapter[Ctx]) noCommitCreate(ctx context.Context) (any, error) {
	return a.p.NoCommitModeCreate(ctx)
}

func (a *providerAdapter[Ctx]) ctxType() reflect.Type {
	return a.typ
}

type registryEntry struct {
	state    ctxState
	provider typeErasedProvider
	ctx      any
}

// skipSentinel is returned internally by getContext in place of a real
// context when the entry is (or just became) ctxUnavailableNoCommit; the
// script adapter turns it into ErrCtxLacksNoCommitMode.
var skipSentinel = &struct{ _ byte }{}

// ContextRegistry is the heterogeneous, lazily initialized context store
// described in spec.md §4.2. It is owned by a single Plan and never shared
// across plans (spec.md §5).
type ContextRegistry struct {
	mu      sync.Mutex
	entries map[reflect.Type]*registryEntry
}

// NewContextRegistry returns an empty registry.
func NewContextRegistry() *ContextRegistry {
	return &ContextRegistry{entries: make(map[reflect.Type]*registryEntry)}
}

// RegisterProvider inserts a new entry keyed by the provider's Ctx type in
// state Uninit. Re-registering the same type is a programmer error and
// panics, per spec.md §4.2.
func RegisterProvider[Ctx any](r *ContextRegistry, p MigrationCtxProvider[Ctx]) {
	var zero Ctx
	typ := reflect.TypeOf(&zero).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[typ]; exists {
		panic(fmt.Sprintf("migrate: context provider for %v registered twice", typ))
	}
	r.entries[typ] = &registryEntry{
		state:    ctxUninit,
		provider: &providerAdapter[Ctx]{p: p, typ: typ},
	}
}

// getContext resolves the context for typ under runMode, constructing it on
// first access. It returns skipSentinel (never an error) when the entry
// transitions to (or already is) ctxUnavailableNoCommit — callers surface
// that as the recoverable ErrCtxLacksNoCommitMode.
func getContext(r *ContextRegistry, typ reflect.Type, ctx context.Context, runMode RunMode) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[typ]
	if !ok {
		// Looking up a type with no registered provider is a programmer
		// error: fail fast with a diagnostic naming the missing type.
		panic(fmt.Sprintf("migrate: no context provider registered for %v", typ))
	}

	switch entry.state {
	case ctxInit:
		return entry.ctx, nil
	case ctxUnavailableNoCommit:
		return skipSentinel, nil
	}

	// ctxUninit: consume the provider, constructing the context exactly once.
	if runMode == RunModeNoCommit {
		v, err := entry.provider.noCommitCreate(ctx)
		if err == ErrNoCommitUnsupported {
			entry.state = ctxUnavailableNoCommit
			entry.provider = nil
			return skipSentinel, nil
		}
		if err != nil {
			return nil, &CreateMigrationCtxError{CtxType: typ, RunMode: runMode, Cause: err}
		}
		entry.state = ctxInit
		entry.ctx = v
		entry.provider = nil
		return v, nil
	}

	v, err := entry.provider.commitCreate(ctx)
	if err != nil {
		return nil, &CreateMigrationCtxError{CtxType: typ, RunMode: runMode, Cause: err}
	}
	entry.state = ctxInit
	entry.ctx = v
	entry.provider = nil
	return v, nil
}
