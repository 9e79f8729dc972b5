package migrate

import (
	"context"
	"fmt"
)

// Selection is the sealed union of spec.md §6.1 "MigrationsSelection".
type Selection interface {
	isSelection()
}

// Up selects a forward run. InclusiveBound, if non-nil, bounds the plan to
// pending[..=idx] where idx is the position of the named migration.
type Up struct {
	InclusiveBound *string
}

func (Up) isSelection() {}

// Down selects a reverse run. InclusiveBound is mandatory (spec.md §4.4)
// to guard against accidental full rollbacks.
type Down struct {
	InclusiveBound string
}

func (Down) isSelection() {}

// PlanKind is the tagged union of spec.md §3 "PlanKind". Entries is always
// stored in forward (persisted) order; the executor decides iteration
// direction from Dir.
type PlanKind struct {
	Dir     Direction
	Entries []MigrationEntry
}

// PlanBuilder is the configuration surface of spec.md §4.4. Zero value is
// not usable; construct with NewPlanBuilder.
type PlanBuilder struct {
	lock       StateLock
	registry   *ContextRegistry
	migrations []MigrationEntry
	force      bool
}

// NewPlanBuilder returns a builder bound to the given state-lock backend.
func NewPlanBuilder(lock StateLock) *PlanBuilder {
	return &PlanBuilder{lock: lock, registry: NewContextRegistry()}
}

// Migration appends a configured migration. Callers must not reorder or
// splice the list after appending (spec.md §4.4); names must be unique
// (spec.md §3 invariant 2, left to the caller to uphold).
func (b *PlanBuilder) Migration(entry MigrationEntry) *PlanBuilder {
	b.migrations = append(b.migrations, entry)
	return b
}

// ForceLock controls whether build() requests takeover of an existing
// (possibly abandoned) lock rather than waiting for it.
func (b *PlanBuilder) ForceLock(force bool) *PlanBuilder {
	b.force = force
	return b
}

// CtxProvider registers a MigrationCtxProvider[Ctx] with the builder's
// registry. It is a package-level function (not a PlanBuilder method)
// because Go methods cannot themselves be generic.
func CtxProvider[Ctx any](b *PlanBuilder, p MigrationCtxProvider[Ctx]) *PlanBuilder {
	RegisterProvider(b.registry, p)
	return b
}

// Display renders the configured migrations as a numbered listing
// (spec.md §4.6).
func (b *PlanBuilder) Display() string {
	out := ""
	for i, m := range b.migrations {
		out += fmt.Sprintf("%d. %s\n", i+1, m.Name)
	}
	return out
}

// Plan is the bounded selection returned by build(), owning the registry,
// the held lock, and enough context to render a diff/plan display.
type Plan struct {
	registry *ContextRegistry
	guard    StateGuard
	state    State
	pruned   []string

	kind PlanKind

	// leftover, non-selected entries, kept for display only.
	leftPending   []MigrationEntry
	leftCompleted []MigrationEntry
}

// Build acquires the state lock, loads and decodes state, reconciles it
// against the configured list, and slices a bounded plan for selection
// (spec.md §4.4). On any error after the lock is acquired, the lock is
// released best-effort before returning; a secondary unlock failure on
// this path is not surfaced (spec.md §4.4 step 4).
func (b *PlanBuilder) Build(ctx context.Context, selection Selection) (*Plan, error) {
	guard, err := b.lock.Lock(ctx, b.force)
	if err != nil {
		return nil, &StateLockError{Cause: err}
	}

	plan, err := b.buildLocked(ctx, guard, selection)
	if err != nil {
		_ = guard.Unlock(ctx)
		return nil, err
	}
	return plan, nil
}

func (b *PlanBuilder) buildLocked(ctx context.Context, guard StateGuard, selection Selection) (*Plan, error) {
	raw, err := guard.Client().Fetch(ctx)
	if err != nil {
		return nil, &StateFetchError{Cause: err}
	}

	state, err := DecodeState(raw)
	if err != nil {
		return nil, err
	}

	d, err := diff(b.migrations, state.Names())
	if err != nil {
		return nil, err
	}

	kind, leftPending, leftCompleted, err := resolveSelection(selection, d)
	if err != nil {
		return nil, err
	}

	return &Plan{
		registry:      b.registry,
		guard:         guard,
		state:         state,
		pruned:        d.Pruned,
		kind:          kind,
		leftPending:   leftPending,
		leftCompleted: leftCompleted,
	}, nil
}

func resolveSelection(selection Selection, d DiffResult) (PlanKind, []MigrationEntry, []MigrationEntry, error) {
	switch sel := selection.(type) {
	case Up:
		if sel.InclusiveBound == nil {
			return PlanKind{Dir: DirectionUp, Entries: d.Pending}, nil, nil, nil
		}
		idx, err := indexOf(d.Pending, *sel.InclusiveBound)
		if err != nil {
			return PlanKind{}, nil, nil, err
		}
		return PlanKind{Dir: DirectionUp, Entries: d.Pending[:idx+1]}, d.Pending[idx+1:], nil, nil

	case Down:
		idx, err := indexOf(d.Completed, sel.InclusiveBound)
		if err != nil {
			return PlanKind{}, nil, nil, err
		}
		return PlanKind{Dir: DirectionDown, Entries: d.Completed[idx:]}, nil, d.Completed[:idx], nil

	default:
		panic(fmt.Sprintf("migrate: unknown selection type %T", selection))
	}
}

// Display renders which migrations will be applied (forward) or rolled
// back (reverse order), and separately the pruned list, per spec.md §4.6.
func (p *Plan) Display() string {
	verb := "applied"
	names := entryNames(p.kind.Entries)
	if p.kind.Dir == DirectionDown {
		verb = "rolled back"
		names = reverseStrings(names)
	}

	out := ""
	if len(names) == 0 {
		out += "No migrations are planned to be " + verb + "\n"
	} else {
		for i, n := range names {
			out += fmt.Sprintf("%d. %s\n", i+1, n)
		}
	}

	if len(p.pruned) > 0 {
		out += "\nPruned (previously applied, no longer configured):\n"
		for i, n := range p.pruned {
			out += fmt.Sprintf("%d. %s\n", i+1, n)
		}
	}

	return out
}

// Kind exposes the resolved direction and ordered entries for callers
// that want to render their own display (e.g. internal/migrate/display).
func (p *Plan) Kind() PlanKind { return p.kind }

// Pruned exposes the pruned-from-history names for display purposes.
func (p *Plan) Pruned() []string { return append([]string(nil), p.pruned...) }

func entryNames(entries []MigrationEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func reverseStrings(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

// indexOf locates name's first occurrence in entries, failing with
// UnknownMigrationError listing the available names.
func indexOf(entries []MigrationEntry, name string) (int, error) {
	for i, e := range entries {
		if e.Name == name {
			return i, nil
		}
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return 0, &UnknownMigrationError{Name: name, Available: names}
}
