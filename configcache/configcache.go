// Package configcache holds the in-process snapshot of actions and their
// conditions/operations that the condition and action evaluators run
// against (spec.md §4.1-§4.3 all take "the currently matching set of
// actions" as a given; this package is what produces and refreshes it).
//
// The snapshot-swap shape — build a fresh immutable snapshot off to the
// side, then atomically publish it under a lock held only for the
// pointer swap — mirrors acronis-db-bench/tenants-cache's TenantsCache,
// which guards its working-set slices with a sync.RWMutex rather than
// rebuilding them under a write lock held for the whole refresh.
package configcache

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/eventaction/core/model"
)

// Loader fetches the full actions/conditions/operations snapshot from
// durable storage. The db-backed implementation lives beside the action
// evaluator's caller (cmd/actionsd), not here, so this package has no
// direct db import and can be unit tested with a func literal.
type Loader func(ctx context.Context) ([]model.Action, error)

// Snapshot is an immutable, already-joined view of every enabled action,
// its conditions and its operations. Callers never mutate a Snapshot;
// Cache.Refresh always builds and publishes a new one.
type Snapshot struct {
	actionsBySource map[model.EventSource][]model.Action
}

func newSnapshot(actions []model.Action) *Snapshot {
	s := &Snapshot{actionsBySource: make(map[model.EventSource][]model.Action)}
	for _, a := range actions {
		s.actionsBySource[a.EventSource] = append(s.actionsBySource[a.EventSource], a)
	}
	return s
}

// ActionsFor returns the actions configured for the given event source.
// The returned slice is owned by the snapshot and must not be mutated.
func (s *Snapshot) ActionsFor(source model.EventSource) []model.Action {
	return s.actionsBySource[source]
}

// Cache holds the currently published Snapshot and refreshes it on
// demand. Reads never block on a refresh in progress: the old snapshot
// stays live until the new one is fully built.
type Cache struct {
	load Loader

	mu   sync.RWMutex
	live *Snapshot
}

// NewCache returns a Cache with an empty snapshot; call Refresh before
// first use (or let the first Refresh error surface at startup).
func NewCache(load Loader) *Cache {
	return &Cache{load: load, live: newSnapshot(nil)}
}

// Refresh loads a fresh action set and publishes it. Safe to call
// concurrently with Current from any number of goroutines.
func (c *Cache) Refresh(ctx context.Context) error {
	actions, err := c.load(ctx)
	if err != nil {
		return errors.Wrap(err, "configcache: loading action snapshot")
	}
	next := newSnapshot(actions)

	c.mu.Lock()
	c.live = next
	c.mu.Unlock()
	return nil
}

// Current returns the currently published snapshot.
func (c *Cache) Current() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live
}
