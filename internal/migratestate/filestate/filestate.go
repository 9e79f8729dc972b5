// Package filestate is a file-backed StateLock implementation: the encoded
// PersistedState lives in a plain file, guarded by a sibling lock file via
// github.com/gofrs/flock — the same library and locking idiom the teacher
// repo uses for single-writer coordination (cmd/bd/sync.go's ".sync.lock").
//
// It provides mutual exclusion across processes on one machine (flock is a
// local, not a distributed, primitive) — the file analogue of the original
// implementation's migrate-file-state crate.
package filestate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/opsmigrate/migrate/internal/migrate"
)

// lockPollInterval is how often a non-forced Lock retries the flock while
// waiting out lockTimeout.
const lockPollInterval = 50 * time.Millisecond

// Backend stores state at StatePath, guarded by StatePath+".lock".
type Backend struct {
	StatePath   string
	lockPath    string
	lockTimeout time.Duration
}

// New returns a backend storing state at statePath. lockTimeout bounds how
// long a non-forced Lock waits for a contended lock before giving up; zero
// means wait indefinitely.
func New(statePath string, lockTimeout time.Duration) *Backend {
	return &Backend{StatePath: statePath, lockPath: statePath + ".lock", lockTimeout: lockTimeout}
}

// Lock implements migrate.StateLock. With force=false it waits up to
// lockTimeout for the flock (indefinitely if lockTimeout is zero); with
// force=true it skips the timeout and calls a blocking Lock(), logging
// nothing itself. flock offers no "break an abandoned lock" primitive: a
// lock left by an exited process is released by the OS, so a forced Lock
// acquires it at once, but a lock held by a live process is not taken
// over and the forced Lock waits (ignoring ctx) until that process
// releases it. This is the "best-effort" latitude spec.md §5 grants
// backends.
func (b *Backend) Lock(ctx context.Context, force bool) (migrate.StateGuard, error) {
	if err := os.MkdirAll(filepath.Dir(b.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("filestate: creating lock directory: %w", err)
	}

	fl := flock.New(b.lockPath)

	if force {
		if err := fl.Lock(); err != nil {
			return nil, fmt.Errorf("filestate: forcing lock: %w", err)
		}
		return &guard{backend: b, flock: fl}, nil
	}

	lockCtx := ctx
	if b.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, b.lockTimeout)
		defer cancel()
	}

	locked, err := fl.TryLockContext(lockCtx, lockPollInterval)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("filestate: state is locked by another process (timed out after %s)", b.lockTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("filestate: acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("filestate: state is locked by another process")
	}
	return &guard{backend: b, flock: fl}, nil
}

type guard struct {
	backend *Backend
	flock   *flock.Flock
}

func (g *guard) Client() migrate.StateClient { return &client{backend: g.backend} }

func (g *guard) Unlock(_ context.Context) error {
	if err := g.flock.Unlock(); err != nil {
		return fmt.Errorf("filestate: releasing lock: %w", err)
	}
	return nil
}

type client struct{ backend *Backend }

func (c *client) Fetch(_ context.Context) ([]byte, error) {
	raw, err := os.ReadFile(c.backend.StatePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestate: reading state file: %w", err)
	}
	return raw, nil
}

// Update overwrites the state file via write-to-temp-then-rename, giving a
// full-overwrite atomicity guarantee (the open question left to backends
// by spec.md §6.2/§9 is resolved here: whole-file replace, never a partial
// write visible to a concurrent Fetch).
func (c *client) Update(_ context.Context, raw []byte) error {
	dir := filepath.Dir(c.backend.StatePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filestate: creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".migrate-state-*.tmp")
	if err != nil {
		return fmt.Errorf("filestate: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestate: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestate: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.backend.StatePath); err != nil {
		return fmt.Errorf("filestate: renaming temp file into place: %w", err)
	}
	return nil
}
