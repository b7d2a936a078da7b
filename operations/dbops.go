package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/eventaction/core/db"
	"github.com/eventaction/core/model"
)

// DBOperations is the db-backed default opsiface.Operations
// implementation (SPEC_FULL.md DOMAIN STACK): it issues the host/group/
// template mutation statements directly against the hosts/hosts_groups/
// hosts_templates tables, rather than leaving opsiface as an interface
// nothing in this module implements.
type DBOperations struct {
	Accessor db.DatabaseAccessor
}

// NewDBOperations wraps accessor as an opsiface.Operations.
func NewDBOperations(accessor db.DatabaseAccessor) *DBOperations {
	return &DBOperations{Accessor: accessor}
}

func (o *DBOperations) hostIDFor(event model.Event) uint64 {
	// Discovery/auto-registration events carry the dhost/dservice/autoreg
	// host id as ObjectID, not a hostid directly; by the time a HOST_ADD
	// operation runs, the host row this module mutates is the one the
	// discovery/auto-registration manager already created for that
	// object, keyed by the same id in this schema's host_discovery_map.
	return event.ObjectID
}

func (o *DBOperations) HostAdd(ctx context.Context, event model.Event) error {
	_, err := o.Accessor.Exec(ctx, "UPDATE hosts SET status = 0 WHERE hostid = ?", o.hostIDFor(event))
	return wrapf(err, "HostAdd")
}

func (o *DBOperations) HostRemove(ctx context.Context, event model.Event) error {
	_, err := o.Accessor.Exec(ctx, "DELETE FROM hosts WHERE hostid = ?", o.hostIDFor(event))
	return wrapf(err, "HostRemove")
}

func (o *DBOperations) HostEnable(ctx context.Context, event model.Event) error {
	_, err := o.Accessor.Exec(ctx, "UPDATE hosts SET status = 0 WHERE hostid = ?", o.hostIDFor(event))
	return wrapf(err, "HostEnable")
}

func (o *DBOperations) HostDisable(ctx context.Context, event model.Event) error {
	_, err := o.Accessor.Exec(ctx, "UPDATE hosts SET status = 1 WHERE hostid = ?", o.hostIDFor(event))
	return wrapf(err, "HostDisable")
}

func (o *DBOperations) HostInventoryMode(ctx context.Context, event model.Event, mode int) error {
	_, err := o.Accessor.Exec(ctx, "UPDATE host_inventory SET inventory_mode = ? WHERE hostid = ?", mode, o.hostIDFor(event))
	return wrapf(err, "HostInventoryMode")
}

func (o *DBOperations) TemplateAdd(ctx context.Context, event model.Event, templateIDs []uint64) error {
	return o.bulkLink(ctx, "hosts_templates", "templateid", event, templateIDs)
}

func (o *DBOperations) TemplateRemove(ctx context.Context, event model.Event, templateIDs []uint64) error {
	return o.bulkUnlink(ctx, "hosts_templates", "templateid", event, templateIDs)
}

func (o *DBOperations) GroupsAdd(ctx context.Context, event model.Event, groupIDs []uint64) error {
	return o.bulkLink(ctx, "hosts_groups", "groupid", event, groupIDs)
}

func (o *DBOperations) GroupsRemove(ctx context.Context, event model.Event, groupIDs []uint64) error {
	return o.bulkUnlink(ctx, "hosts_groups", "groupid", event, groupIDs)
}

// bulkLink issues one multi-row INSERT covering every id, relying on the
// caller (operations.Executor) to have already sorted and deduplicated
// ids (spec.md §4.3/§8).
func (o *DBOperations) bulkLink(ctx context.Context, table, idColumn string, event model.Event, ids []uint64) error {
	hostID := o.hostIDFor(event)
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)*2)
	for i, id := range ids {
		placeholders[i] = "(?, ?)"
		args = append(args, hostID, id)
	}
	query := fmt.Sprintf("INSERT INTO %s(hostid, %s) VALUES %s", table, idColumn, strings.Join(placeholders, ", "))
	_, err := o.Accessor.Exec(ctx, query, args...)
	return wrapf(err, "bulkLink "+table)
}

func (o *DBOperations) bulkUnlink(ctx context.Context, table, idColumn string, event model.Event, ids []uint64) error {
	hostID := o.hostIDFor(event)
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, hostID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE hostid = ? AND %s IN (%s)", table, idColumn, strings.Join(placeholders, ", "))
	_, err := o.Accessor.Exec(ctx, query, args...)
	return wrapf(err, "bulkUnlink "+table)
}

func wrapf(err error, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("operations: %s: %w", op, err)
}
