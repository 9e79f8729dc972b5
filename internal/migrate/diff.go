package migrate

// DiffResult is the transient classification of spec.md §3/§4.3.
type DiffResult struct {
	Pruned    []string
	Completed []MigrationEntry
	Pending   []MigrationEntry
}

// diff reconciles the configured list against persisted history, per
// spec.md §4.3. configured is ordered by the caller (PlanBuilder.Migration
// append order); persisted is the applied-migration name list in forward
// order.
func diff(configured []MigrationEntry, persisted []string) (DiffResult, error) {
	// Step 1: locate the pivot.
	k := 0
	switch {
	case len(configured) == 0:
		k = len(persisted)
	default:
		first := configured[0].Name
		found := false
		for i, name := range persisted {
			if name == first {
				k = i
				found = true
				break
			}
		}
		if !found {
			k = 0
		}
	}

	pruned := append([]string(nil), persisted[:k]...)
	rest := persisted[k:]

	// Step 2/3: walk rest against configured position-by-position.
	i := 0
	for ; i < len(rest) && i < len(configured); i++ {
		if rest[i] != configured[i].Name {
			return DiffResult{}, &InconsistentMigrationScriptsError{
				ExpectedScript: rest[i],
				ActualScript:   configured[i].Name,
			}
		}
	}

	completed := append([]MigrationEntry(nil), configured[:i]...)

	if i < len(rest) {
		// The configured list dropped a previously-applied tail that was
		// never pruned from the head: inconsistent.
		return DiffResult{}, &InconsistentMigrationScriptsError{
			MissingScript: rest[i],
		}
	}

	pending := append([]MigrationEntry(nil), configured[i:]...)

	return DiffResult{
		Pruned:    pruned,
		Completed: completed,
		Pending:   pending,
	}, nil
}
