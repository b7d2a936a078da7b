package topology

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eventaction/core/db"
)

// DBRepository implements Repository directly against the relational
// schema spec.md §6 lists (triggers, items, functions, hosts,
// hosts_groups, applications, items_applications, dhosts, dservices,
// drules, autoreg_host, trigger_discovery, item_discovery).
type DBRepository struct {
	accessor db.DatabaseAccessor
}

// NewDBRepository wraps a DatabaseAccessor (a Session or an in-flight
// transaction) as a Repository.
func NewDBRepository(accessor db.DatabaseAccessor) *DBRepository {
	return &DBRepository{accessor: accessor}
}

func (r *DBRepository) NestedHostGroupIDs(ctx context.Context, rootGroupID uint64) (map[uint64]struct{}, error) {
	result := map[uint64]struct{}{rootGroupID: {}}

	// hosts_groups groups form a tree via groups.groupid/parent groupid in
	// the real schema; this module's schema keeps it flat in a
	// group_hierarchy table of (groupid, parent_groupid) pairs, matching
	// how the configuration cache pre-flattens nested groups for O(1)
	// membership tests once cached (spec.md §6 get_nested_hostgroupids).
	frontier := []uint64{rootGroupID}
	for len(frontier) > 0 {
		var next []uint64
		for _, gid := range frontier {
			rows, err := r.accessor.Query(ctx, "SELECT groupid FROM group_hierarchy WHERE parent_groupid = ?", gid)
			if err != nil {
				return nil, fmt.Errorf("topology: expanding nested host group %d: %w", gid, err)
			}
			for rows.Next() {
				var child uint64
				if err := rows.Scan(&child); err != nil {
					rows.Close()
					return nil, err
				}
				if _, seen := result[child]; !seen {
					result[child] = struct{}{}
					next = append(next, child)
				}
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, err
			}
			rows.Close()
		}
		frontier = next
	}

	return result, nil
}

func (r *DBRepository) TriggerHostGroupIDs(ctx context.Context, triggerID uint64) ([]uint64, error) {
	rows, err := r.accessor.Query(ctx, `
		SELECT DISTINCT hg.groupid
		FROM functions f
		JOIN items i ON i.itemid = f.itemid
		JOIN hosts_groups hg ON hg.hostid = i.hostid
		WHERE f.triggerid = ?`, triggerID)
	if err != nil {
		return nil, fmt.Errorf("topology: host groups for trigger %d: %w", triggerID, err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *DBRepository) TriggerHostIDs(ctx context.Context, triggerID uint64) ([]uint64, error) {
	rows, err := r.accessor.Query(ctx, `
		SELECT DISTINCT i.hostid
		FROM functions f
		JOIN items i ON i.itemid = f.itemid
		WHERE f.triggerid = ?`, triggerID)
	if err != nil {
		return nil, fmt.Errorf("topology: hosts for trigger %d: %w", triggerID, err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *DBRepository) TriggerTemplateID(ctx context.Context, triggerID uint64) (uint64, bool, error) {
	var templateID sql.NullInt64
	err := r.accessor.SelectOneValue(ctx, &templateID, "SELECT templateid FROM triggers WHERE triggerid = ?", triggerID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("topology: template id for trigger %d: %w", triggerID, err)
	}
	if !templateID.Valid || templateID.Int64 == 0 {
		return 0, false, nil
	}
	return uint64(templateID.Int64), true, nil
}

func (r *DBRepository) TriggerParentID(ctx context.Context, triggerID uint64) (uint64, bool, error) {
	var parentID uint64
	err := r.accessor.SelectOneValue(ctx, &parentID, "SELECT parent_triggerid FROM trigger_discovery WHERE triggerid = ?", triggerID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("topology: parent trigger id for trigger %d: %w", triggerID, err)
	}
	return parentID, true, nil
}

func (r *DBRepository) TriggerApplicationNames(ctx context.Context, triggerID uint64) ([]string, error) {
	rows, err := r.accessor.Query(ctx, `
		SELECT DISTINCT a.name
		FROM functions f
		JOIN items_applications ia ON ia.itemid = f.itemid
		JOIN applications a ON a.applicationid = ia.applicationid
		WHERE f.triggerid = ?`, triggerID)
	if err != nil {
		return nil, fmt.Errorf("topology: application names for trigger %d: %w", triggerID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *DBRepository) HostsInMaintenance(ctx context.Context, hostIDs []uint64) (map[uint64]bool, error) {
	result := make(map[uint64]bool, len(hostIDs))
	if len(hostIDs) == 0 {
		return result, nil
	}

	values := make([]interface{}, len(hostIDs))
	for i, id := range hostIDs {
		values[i] = id
		result[id] = false
	}

	// In this schema hosts.maintenance_status is 1 while a maintenance
	// window actively covers the host (the maintenance-window expansion
	// itself, including period parsing, is the out-of-scope "time-period
	// parsing" collaborator named in spec.md §1).
	query := fmt.Sprintf("SELECT hostid FROM hosts WHERE maintenance_status = 1 AND hostid IN (%s)", placeholders(len(values)))
	rows, err := r.accessor.Query(ctx, query, values...)
	if err != nil {
		return nil, fmt.Errorf("topology: maintenance status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

func (r *DBRepository) EventAcknowledged(ctx context.Context, eventID uint64) (int, error) {
	var ack int
	err := r.accessor.SelectOneValue(ctx, &ack, "SELECT acknowledged FROM events WHERE eventid = ?", eventID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("topology: acknowledged flag for event %d: %w", eventID, err)
	}
	return ack, nil
}

func (r *DBRepository) ItemIsDiscoveryCreated(ctx context.Context, itemID uint64) (bool, error) {
	var flags int
	err := r.accessor.SelectOneValue(ctx, &flags, "SELECT flags FROM items WHERE itemid = ?", itemID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("topology: item flags for item %d: %w", itemID, err)
	}
	const itemFlagDiscoveryCreated = 4
	return flags&itemFlagDiscoveryCreated != 0, nil
}

func (r *DBRepository) ItemHostID(ctx context.Context, itemID uint64) (uint64, bool, error) {
	var hostID uint64
	err := r.accessor.SelectOneValue(ctx, &hostID, "SELECT hostid FROM items WHERE itemid = ?", itemID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("topology: host id for item %d: %w", itemID, err)
	}
	return hostID, true, nil
}

func (r *DBRepository) ItemHostGroupIDs(ctx context.Context, itemID uint64) ([]uint64, error) {
	rows, err := r.accessor.Query(ctx, `
		SELECT DISTINCT hg.groupid
		FROM items i
		JOIN hosts_groups hg ON hg.hostid = i.hostid
		WHERE i.itemid = ?`, itemID)
	if err != nil {
		return nil, fmt.Errorf("topology: host groups for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *DBRepository) ItemApplicationNames(ctx context.Context, itemID uint64) ([]string, error) {
	rows, err := r.accessor.Query(ctx, `
		SELECT DISTINCT a.name
		FROM items_applications ia
		JOIN applications a ON a.applicationid = ia.applicationid
		WHERE ia.itemid = ?`, itemID)
	if err != nil {
		return nil, fmt.Errorf("topology: application names for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *DBRepository) DiscoveryHost(ctx context.Context, dhostID uint64) (DHost, bool, error) {
	var h DHost
	h.DHostID = dhostID
	rows, err := r.accessor.Query(ctx, "SELECT druleid, ip FROM dhosts WHERE dhostid = ?", dhostID)
	if err != nil {
		return DHost{}, false, fmt.Errorf("topology: discovery host %d: %w", dhostID, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return DHost{}, false, rows.Err()
	}
	if err := rows.Scan(&h.DRuleID, &h.IP); err != nil {
		return DHost{}, false, err
	}
	return h, true, nil
}

func (r *DBRepository) DiscoveryService(ctx context.Context, dserviceID uint64) (DService, bool, error) {
	var s DService
	s.DServiceID = dserviceID
	rows, err := r.accessor.Query(ctx, `
		SELECT dhostid, dcheckid, type, port, status, lastup, lastdown
		FROM dservices WHERE dserviceid = ?`, dserviceID)
	if err != nil {
		return DService{}, false, fmt.Errorf("topology: discovery service %d: %w", dserviceID, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return DService{}, false, rows.Err()
	}
	if err := rows.Scan(&s.DHostID, &s.DCheckID, &s.Type, &s.Port, &s.Status, &s.LastUp, &s.LastDown); err != nil {
		return DService{}, false, err
	}
	return s, true, nil
}

func (r *DBRepository) AutoregHost(ctx context.Context, autoregHostID uint64) (AutoregHost, bool, error) {
	var a AutoregHost
	a.AutoregHostID = autoregHostID
	rows, err := r.accessor.Query(ctx, `
		SELECT host, listen_ip, host_metadata, proxy_hostid
		FROM autoreg_host WHERE autoreg_hostid = ?`, autoregHostID)
	if err != nil {
		return AutoregHost{}, false, fmt.Errorf("topology: autoreg host %d: %w", autoregHostID, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return AutoregHost{}, false, rows.Err()
	}
	if err := rows.Scan(&a.Host, &a.ListenIP, &a.Metadata, &a.ProxyHostID); err != nil {
		return AutoregHost{}, false, err
	}
	return a, true, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '?')
	}
	return string(buf)
}
