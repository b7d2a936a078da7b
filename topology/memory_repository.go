package topology

import (
	"context"
	"sort"
)

// MemoryRepository is an in-memory Repository fake for condition-evaluator
// tests, populated directly by field assignment rather than through a
// query language — tests build exactly the graph shape a case needs.
type MemoryRepository struct {
	GroupParents map[uint64]uint64 // child groupid -> parent groupid
	TriggerHostGroups map[uint64][]uint64
	TriggerHosts      map[uint64][]uint64
	TriggerTemplateIDs map[uint64]uint64
	TriggerParentIDs   map[uint64]uint64
	TriggerApplications map[uint64][]string
	Maintenance         map[uint64]bool
	Acknowledged        map[uint64]int
	DiscoveryCreatedItems map[uint64]bool
	ItemHosts           map[uint64]uint64 // itemid -> hostid
	ItemHostGroups      map[uint64][]uint64
	ItemApplications    map[uint64][]string
	DHosts       map[uint64]DHost
	DServices    map[uint64]DService
	AutoregHosts map[uint64]AutoregHost
}

// NewMemoryRepository returns an empty fake ready for test setup.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		GroupParents:          map[uint64]uint64{},
		TriggerHostGroups:     map[uint64][]uint64{},
		TriggerHosts:          map[uint64][]uint64{},
		TriggerTemplateIDs:    map[uint64]uint64{},
		TriggerParentIDs:      map[uint64]uint64{},
		TriggerApplications:   map[uint64][]string{},
		Maintenance:           map[uint64]bool{},
		Acknowledged:          map[uint64]int{},
		DiscoveryCreatedItems: map[uint64]bool{},
		ItemHosts:             map[uint64]uint64{},
		ItemHostGroups:        map[uint64][]uint64{},
		ItemApplications:      map[uint64][]string{},
		DHosts:                map[uint64]DHost{},
		DServices:             map[uint64]DService{},
		AutoregHosts:          map[uint64]AutoregHost{},
	}
}

func (m *MemoryRepository) NestedHostGroupIDs(ctx context.Context, rootGroupID uint64) (map[uint64]struct{}, error) {
	result := map[uint64]struct{}{rootGroupID: {}}
	changed := true
	for changed {
		changed = false
		for child, parent := range m.GroupParents {
			if _, parentIncluded := result[parent]; parentIncluded {
				if _, already := result[child]; !already {
					result[child] = struct{}{}
					changed = true
				}
			}
		}
	}
	return result, nil
}

func (m *MemoryRepository) TriggerHostGroupIDs(ctx context.Context, triggerID uint64) ([]uint64, error) {
	return append([]uint64(nil), m.TriggerHostGroups[triggerID]...), nil
}

func (m *MemoryRepository) TriggerHostIDs(ctx context.Context, triggerID uint64) ([]uint64, error) {
	return append([]uint64(nil), m.TriggerHosts[triggerID]...), nil
}

func (m *MemoryRepository) TriggerTemplateID(ctx context.Context, triggerID uint64) (uint64, bool, error) {
	id, ok := m.TriggerTemplateIDs[triggerID]
	return id, ok && id != 0, nil
}

func (m *MemoryRepository) TriggerParentID(ctx context.Context, triggerID uint64) (uint64, bool, error) {
	id, ok := m.TriggerParentIDs[triggerID]
	return id, ok, nil
}

func (m *MemoryRepository) TriggerApplicationNames(ctx context.Context, triggerID uint64) ([]string, error) {
	names := append([]string(nil), m.TriggerApplications[triggerID]...)
	sort.Strings(names)
	return names, nil
}

func (m *MemoryRepository) HostsInMaintenance(ctx context.Context, hostIDs []uint64) (map[uint64]bool, error) {
	result := make(map[uint64]bool, len(hostIDs))
	for _, id := range hostIDs {
		result[id] = m.Maintenance[id]
	}
	return result, nil
}

func (m *MemoryRepository) EventAcknowledged(ctx context.Context, eventID uint64) (int, error) {
	return m.Acknowledged[eventID], nil
}

func (m *MemoryRepository) ItemIsDiscoveryCreated(ctx context.Context, itemID uint64) (bool, error) {
	return m.DiscoveryCreatedItems[itemID], nil
}

func (m *MemoryRepository) ItemHostID(ctx context.Context, itemID uint64) (uint64, bool, error) {
	hostID, ok := m.ItemHosts[itemID]
	return hostID, ok, nil
}

func (m *MemoryRepository) ItemHostGroupIDs(ctx context.Context, itemID uint64) ([]uint64, error) {
	return append([]uint64(nil), m.ItemHostGroups[itemID]...), nil
}

func (m *MemoryRepository) ItemApplicationNames(ctx context.Context, itemID uint64) ([]string, error) {
	names := append([]string(nil), m.ItemApplications[itemID]...)
	sort.Strings(names)
	return names, nil
}

func (m *MemoryRepository) DiscoveryHost(ctx context.Context, dhostID uint64) (DHost, bool, error) {
	h, ok := m.DHosts[dhostID]
	return h, ok, nil
}

func (m *MemoryRepository) DiscoveryService(ctx context.Context, dserviceID uint64) (DService, bool, error) {
	s, ok := m.DServices[dserviceID]
	return s, ok, nil
}

func (m *MemoryRepository) AutoregHost(ctx context.Context, autoregHostID uint64) (AutoregHost, bool, error) {
	a, ok := m.AutoregHosts[autoregHostID]
	return a, ok, nil
}
