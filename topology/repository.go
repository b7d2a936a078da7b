// Package topology is the thin relational-lookup layer the condition
// evaluator (package conditions) dispatches into for the condition types
// spec.md §4.1 describes as requiring "bespoke relational lookups":
// host-group membership, template inheritance chains, maintenance state,
// application names, and the discovery/auto-registration object tables.
//
// It is named separately from the configuration cache (package
// configcache, which owns actions/conditions snapshots) because in a real
// deployment these lookups are mostly DB round trips, while the actions
// snapshot is an in-process cache refreshed out of band — conflating the
// two would hide that distinction.
package topology

import "context"

// DHost is the subset of a discovery-host row the discovery conditions
// need (spec.md §6, table dhosts).
type DHost struct {
	DHostID uint64
	DRuleID uint64
	IP      string
}

// DService is the subset of a discovery-service row the discovery
// conditions need (spec.md §6, table dservices).
type DService struct {
	DServiceID uint64
	DHostID    uint64
	DCheckID   uint64
	Type       int
	Port       int
	Status     int // 0 = up, 1 = down (matches DUPTIME's "status=UP" test)
	LastUp     int64
	LastDown   int64
}

// AutoregHost is the subset of an autoreg_host row the auto-registration
// conditions need (spec.md §6, table autoreg_host).
type AutoregHost struct {
	AutoregHostID uint64
	Host          string
	ListenIP      string
	Metadata      string
	ProxyHostID   uint64
}

// Repository is the relational-lookup interface the condition evaluator
// depends on. The DB-backed implementation is DBRepository; tests use an
// in-memory fake (MemoryRepository) so the (very large) condition-type
// matrix can be exercised without a live database.
type Repository interface {
	// NestedHostGroupIDs expands rootGroupID into the transitive set of
	// sub-group ids, including rootGroupID itself (spec.md §4.1 HOST_GROUP,
	// and §6 get_nested_hostgroupids, which is actually owned by the
	// configuration cache — this module treats it as part of the same
	// relational-lookup seam since both are consumed, read-only snapshots).
	NestedHostGroupIDs(ctx context.Context, rootGroupID uint64) (map[uint64]struct{}, error)

	// TriggerHostGroupIDs returns the host-group ids of every host backing
	// triggerID (via items -> hosts -> hosts_groups).
	TriggerHostGroupIDs(ctx context.Context, triggerID uint64) ([]uint64, error)

	// TriggerHostIDs returns the host ids backing triggerID.
	TriggerHostIDs(ctx context.Context, triggerID uint64) ([]uint64, error)

	// TriggerTemplateID returns triggers.templateid for triggerID, and
	// false if it is zero/absent (the template chain ends here).
	TriggerTemplateID(ctx context.Context, triggerID uint64) (uint64, bool, error)

	// TriggerParentID returns trigger_discovery.parent_triggerid for
	// triggerID if triggerID is LLD-generated, false otherwise.
	TriggerParentID(ctx context.Context, triggerID uint64) (uint64, bool, error)

	// TriggerApplicationNames returns the distinct application names
	// joined through items -> items_applications -> applications ->
	// functions -> triggerID.
	TriggerApplicationNames(ctx context.Context, triggerID uint64) ([]string, error)

	// HostsInMaintenance reports, for each of hostIDs, whether the host is
	// currently in a maintenance window.
	HostsInMaintenance(ctx context.Context, hostIDs []uint64) (map[uint64]bool, error)

	// EventAcknowledged returns the events.acknowledged column for eventID.
	EventAcknowledged(ctx context.Context, eventID uint64) (int, error)

	// ItemIsDiscoveryCreated reports whether itemID has items.flags =
	// ITEM_FLAG_DISCOVERY_CREATED. The conditions package consults it for
	// HOST_TEMPLATE on internal ITEM/LLDRULE events, but walks no template
	// chain for such events whatever the answer: HOST_TEMPLATE never matches
	// them, discovery-created or not.
	ItemIsDiscoveryCreated(ctx context.Context, itemID uint64) (bool, error)

	// ItemHostID returns the single host id an item belongs to (items.hostid
	// directly, not via a trigger/function join). Internal-source events on
	// ITEM/LLDRULE objects carry an itemid, not a triggerid, so HOST_GROUP/
	// HOST/APPLICATION resolve through the item directly (actions.c
	// check_action_condition HOST_GROUP/HOST/APPLICATION cases, which join
	// straight off items.itemid regardless of how the item was created).
	ItemHostID(ctx context.Context, itemID uint64) (uint64, bool, error)

	// ItemHostGroupIDs returns the host-group ids of the host itemID
	// belongs to.
	ItemHostGroupIDs(ctx context.Context, itemID uint64) ([]uint64, error)

	// ItemApplicationNames returns the distinct application names joined
	// through items_applications for itemID.
	ItemApplicationNames(ctx context.Context, itemID uint64) ([]string, error)

	DiscoveryHost(ctx context.Context, dhostID uint64) (DHost, bool, error)
	DiscoveryService(ctx context.Context, dserviceID uint64) (DService, bool, error)
	AutoregHost(ctx context.Context, autoregHostID uint64) (AutoregHost, bool, error)
}
