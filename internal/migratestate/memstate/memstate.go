// Package memstate is an in-memory StateLock backend for tests and
// examples. It is the Go analogue of the original Rust implementation's
// migrate-state-test crate (_examples/original_source/migrate-state-test):
// a backend built specifically to exercise the engine's own error paths,
// via fault-injection knobs the core's tests flip on demand.
package memstate

import (
	"context"
	"errors"
	"sync"

	"github.com/opsmigrate/migrate/internal/migrate"
)

// ErrAlreadyLocked is returned by Lock when the backend is held and force
// is false.
var ErrAlreadyLocked = errors.New("memstate: already locked")

// Backend is a process-local StateLock/StateGuard/StateClient. It
// satisfies the distributed-lock contract only within a single process
// (spec.md §6.2 "backends without true distributed locking must document
// that").
type Backend struct {
	mu     sync.Mutex
	data   []byte
	locked bool

	// Fault injection: when set, the next corresponding call fails with
	// this error instead of performing its normal behavior. Each is reset
	// to nil after firing once.
	LockErr   error
	FetchErr  error
	UpdateErr error
	UnlockErr error
}

// New returns an empty, unlocked backend.
func New() *Backend {
	return &Backend{}
}

// Lock implements migrate.StateLock.
func (b *Backend) Lock(_ context.Context, force bool) (migrate.StateGuard, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.LockErr != nil {
		err := b.LockErr
		b.LockErr = nil
		return nil, err
	}
	if b.locked && !force {
		return nil, ErrAlreadyLocked
	}
	b.locked = true
	return &guard{b: b}, nil
}

// Data returns a copy of the currently stored bytes, for test assertions.
func (b *Backend) Data() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// IsLocked reports whether the backend currently holds a lock, for test
// assertions (spec.md §8 property 7, "lock always released").
func (b *Backend) IsLocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

type guard struct{ b *Backend }

func (g *guard) Client() migrate.StateClient { return &client{b: g.b} }

func (g *guard) Unlock(_ context.Context) error {
	g.b.mu.Lock()
	defer g.b.mu.Unlock()
	if g.b.UnlockErr != nil {
		err := g.b.UnlockErr
		g.b.UnlockErr = nil
		return err
	}
	g.b.locked = false
	return nil
}

type client struct{ b *Backend }

func (c *client) Fetch(_ context.Context) ([]byte, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.FetchErr != nil {
		err := c.b.FetchErr
		c.b.FetchErr = nil
		return nil, err
	}
	return append([]byte(nil), c.b.data...), nil
}

func (c *client) Update(_ context.Context, raw []byte) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.UpdateErr != nil {
		err := c.b.UpdateErr
		c.b.UpdateErr = nil
		return err
	}
	c.b.data = append([]byte(nil), raw...)
	return nil
}
