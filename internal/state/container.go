// Package state is the single update entry point for the application state.
//
// A Container holds the committed snapshot. Writers are serialized and each
// dispatch reduces the current snapshot to a new value, commits it and saves
// it. Readers get the committed value, which is never modified afterwards.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
)

// Persister is the durable side of the container.
type Persister interface {
	Save(ctx context.Context, st models.AppState)
	Put(ctx context.Context, st models.AppState) error
}

// Container holds the current application state.
type Container struct {
	mu      sync.Mutex
	current models.AppState
	store   Persister
	strict  bool
	log     *slog.Logger
}

// Option configures a Container.
type Option func(*Container)

// WithStrictDurability makes Dispatch write the candidate state first and
// commit it only if the write succeeds.
func WithStrictDurability(strict bool) Option {
	return func(c *Container) { c.strict = strict }
}

// New creates a container holding initial.
func New(initial models.AppState, store Persister, log *slog.Logger, opts ...Option) *Container {
	c := &Container{current: initial, store: store, log: log}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open loads the persisted state from store and returns a container over it.
func Open(ctx context.Context, store *storage.Store, log *slog.Logger, opts ...Option) *Container {
	return New(store.Load(ctx), store, log, opts...)
}

// Snapshot returns the committed state. Callers must not modify its slices.
func (c *Container) Snapshot() models.AppState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Dispatch applies a to the current state. Actions that change nothing are
// not saved. In best-effort mode a failed save is logged and the new state is
// kept; in strict mode the save error is returned and the state is unchanged.
func (c *Container) Dispatch(ctx context.Context, a Action) (models.AppState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, changed, err := Reduce(c.current, a)
	if err != nil {
		c.log.Debug("action rejected", "action", a.Name(), "error", err)
		return c.current, err
	}
	if !changed {
		c.log.Debug("action had no effect", "action", a.Name())
		return c.current, nil
	}

	if c.strict {
		if err := c.store.Put(ctx, next); err != nil {
			c.log.Error("state save failed, action not applied", "action", a.Name(), "error", err)
			return c.current, fmt.Errorf("saving state: %w", err)
		}
		c.current = next
		return next, nil
	}

	c.current = next
	c.store.Save(ctx, next)
	return next, nil
}
