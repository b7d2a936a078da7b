package conditions

import (
	"context"

	"github.com/eventaction/core/topology"
)

// Cache wraps a topology.Repository with a batch-scoped memoization of
// the discovery/auto-registration object lookups (SPEC_FULL.md
// SUPPLEMENTED FEATURES: the original caches these per batch so a
// discovery host checked against several DHOST_IP/DRULE/DOBJECT
// conditions in one action, or across several actions, issues one query
// rather than N). It is a plain map, not concurrency-safe: spec.md §5
// processes one batch at a time, so a fresh Cache per process_actions
// call is all that's needed.
type Cache struct {
	topology.Repository

	dhosts    map[uint64]cachedDHost
	dservices map[uint64]cachedDService
	autoregs  map[uint64]cachedAutoreg
}

type cachedDHost struct {
	host  topology.DHost
	found bool
	err   error
}

type cachedDService struct {
	service topology.DService
	found   bool
	err     error
}

type cachedAutoreg struct {
	host  topology.AutoregHost
	found bool
	err   error
}

// NewCache wraps repo with per-batch discovery/auto-registration
// memoization. Pass the result to NewEvaluator instead of repo directly.
func NewCache(repo topology.Repository) *Cache {
	return &Cache{
		Repository: repo,
		dhosts:     make(map[uint64]cachedDHost),
		dservices:  make(map[uint64]cachedDService),
		autoregs:   make(map[uint64]cachedAutoreg),
	}
}

func (c *Cache) DiscoveryHost(ctx context.Context, dhostID uint64) (topology.DHost, bool, error) {
	if entry, ok := c.dhosts[dhostID]; ok {
		return entry.host, entry.found, entry.err
	}
	host, found, err := c.Repository.DiscoveryHost(ctx, dhostID)
	c.dhosts[dhostID] = cachedDHost{host: host, found: found, err: err}
	return host, found, err
}

func (c *Cache) DiscoveryService(ctx context.Context, dserviceID uint64) (topology.DService, bool, error) {
	if entry, ok := c.dservices[dserviceID]; ok {
		return entry.service, entry.found, entry.err
	}
	service, found, err := c.Repository.DiscoveryService(ctx, dserviceID)
	c.dservices[dserviceID] = cachedDService{service: service, found: found, err: err}
	return service, found, err
}

func (c *Cache) AutoregHost(ctx context.Context, autoregHostID uint64) (topology.AutoregHost, bool, error) {
	if entry, ok := c.autoregs[autoregHostID]; ok {
		return entry.host, entry.found, entry.err
	}
	host, found, err := c.Repository.AutoregHost(ctx, autoregHostID)
	c.autoregs[autoregHostID] = cachedAutoreg{host: host, found: found, err: err}
	return host, found, err
}
