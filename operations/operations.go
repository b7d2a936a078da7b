// Package operations implements the immediate-operations executor
// (spec.md §4.3, execute_operations): for DISCOVERY/AUTO_REGISTRATION
// events whose action matched, it applies the action's operations
// through the opsiface.Operations collaborator.
package operations

import (
	"context"
	"sort"

	"github.com/eventaction/core/logger"
	"github.com/eventaction/core/model"
	"github.com/eventaction/core/opsiface"
)

// Executor runs an action's operations against an event.
type Executor struct {
	Ops opsiface.Operations
	Log logger.Logger
}

// NewExecutor returns an Executor backed by ops.
func NewExecutor(ops opsiface.Operations, log logger.Logger) *Executor {
	return &Executor{Ops: ops, Log: log}
}

// Execute is execute_operations: runs only for DISCOVERY and
// AUTO_REGISTRATION events (the caller is expected to have already
// checked this; Execute itself does not re-check event.Source so it can
// be unit tested without constructing a full batch). HOST_ADD/REMOVE/
// ENABLE/DISABLE/INVENTORY are applied once per occurrence in scan order.
// GROUP_ADD/REMOVE and TEMPLATE_ADD/REMOVE ids are accumulated across the
// whole scan, then sorted and deduplicated before one bulk call each
// (spec.md §4.3: "Deduplication is mandatory").
func (x *Executor) Execute(ctx context.Context, event model.Event, operations []model.Operation) error {
	var groupsToAdd, groupsToRemove, templatesToAdd, templatesToRemove []uint64

	for _, op := range operations {
		switch op.Type {
		case model.OperationHostAdd:
			if err := x.Ops.HostAdd(ctx, event); err != nil {
				return err
			}
		case model.OperationHostRemove:
			if err := x.Ops.HostRemove(ctx, event); err != nil {
				return err
			}
		case model.OperationHostEnable:
			if err := x.Ops.HostEnable(ctx, event); err != nil {
				return err
			}
		case model.OperationHostDisable:
			if err := x.Ops.HostDisable(ctx, event); err != nil {
				return err
			}
		case model.OperationHostInventory:
			if err := x.Ops.HostInventoryMode(ctx, event, op.InventoryMode); err != nil {
				return err
			}
		case model.OperationGroupAdd:
			groupsToAdd = append(groupsToAdd, op.GroupID)
		case model.OperationGroupRemove:
			groupsToRemove = append(groupsToRemove, op.GroupID)
		case model.OperationTemplateAdd:
			templatesToAdd = append(templatesToAdd, op.TemplateID)
		case model.OperationTemplateRemove:
			templatesToRemove = append(templatesToRemove, op.TemplateID)
		default:
			if x.Log != nil {
				x.Log.Error("operation type %v is not an immediate operation (message/command belong to the escalator)", op.Type)
			}
		}
	}

	if ids := sortDedup(groupsToAdd); len(ids) > 0 {
		if err := x.Ops.GroupsAdd(ctx, event, ids); err != nil {
			return err
		}
	}
	if ids := sortDedup(groupsToRemove); len(ids) > 0 {
		if err := x.Ops.GroupsRemove(ctx, event, ids); err != nil {
			return err
		}
	}
	if ids := sortDedup(templatesToAdd); len(ids) > 0 {
		if err := x.Ops.TemplateAdd(ctx, event, ids); err != nil {
			return err
		}
	}
	if ids := sortDedup(templatesToRemove); len(ids) > 0 {
		if err := x.Ops.TemplateRemove(ctx, event, ids); err != nil {
			return err
		}
	}

	return nil
}

// sortDedup returns nil for an empty input, otherwise a sorted,
// duplicate-free copy of ids (spec.md §8: "lists passed to
// op_groups_add/del and op_template_add/del are strictly ascending and
// duplicate-free").
func sortDedup(ids []uint64) []uint64 {
	if len(ids) == 0 {
		return nil
	}
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
