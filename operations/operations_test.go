package operations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventaction/core/model"
	"github.com/eventaction/core/operations"
)

type recordingOps struct {
	hostAdd, hostRemove, hostEnable, hostDisable int
	inventoryModes                               []int
	groupsAdded, groupsRemoved                    [][]uint64
	templatesAdded, templatesRemoved              [][]uint64
}

func (r *recordingOps) HostAdd(context.Context, model.Event) error      { r.hostAdd++; return nil }
func (r *recordingOps) HostRemove(context.Context, model.Event) error   { r.hostRemove++; return nil }
func (r *recordingOps) HostEnable(context.Context, model.Event) error   { r.hostEnable++; return nil }
func (r *recordingOps) HostDisable(context.Context, model.Event) error  { r.hostDisable++; return nil }
func (r *recordingOps) HostInventoryMode(_ context.Context, _ model.Event, mode int) error {
	r.inventoryModes = append(r.inventoryModes, mode)
	return nil
}
func (r *recordingOps) TemplateAdd(_ context.Context, _ model.Event, ids []uint64) error {
	r.templatesAdded = append(r.templatesAdded, ids)
	return nil
}
func (r *recordingOps) TemplateRemove(_ context.Context, _ model.Event, ids []uint64) error {
	r.templatesRemoved = append(r.templatesRemoved, ids)
	return nil
}
func (r *recordingOps) GroupsAdd(_ context.Context, _ model.Event, ids []uint64) error {
	r.groupsAdded = append(r.groupsAdded, ids)
	return nil
}
func (r *recordingOps) GroupsRemove(_ context.Context, _ model.Event, ids []uint64) error {
	r.groupsRemoved = append(r.groupsRemoved, ids)
	return nil
}

// TestExecuteDedupesAndSortsGroupAndTemplateIDs is spec.md §8 scenario 5.
func TestExecuteDedupesAndSortsGroupAndTemplateIDs(t *testing.T) {
	ops := &recordingOps{}
	x := operations.NewExecutor(ops, nil)

	operationsList := []model.Operation{
		{Type: model.OperationGroupAdd, GroupID: 7},
		{Type: model.OperationGroupAdd, GroupID: 3},
		{Type: model.OperationGroupAdd, GroupID: 7},
		{Type: model.OperationTemplateAdd, TemplateID: 5},
	}

	err := x.Execute(context.Background(), model.Event{EventID: 1}, operationsList)
	require.NoError(t, err)

	require.Len(t, ops.groupsAdded, 1)
	assert.Equal(t, []uint64{3, 7}, ops.groupsAdded[0])
	require.Len(t, ops.templatesAdded, 1)
	assert.Equal(t, []uint64{5}, ops.templatesAdded[0])
	assert.Empty(t, ops.groupsRemoved)
	assert.Empty(t, ops.templatesRemoved)
}

func TestExecuteRunsHostOperationsOncePerOccurrence(t *testing.T) {
	ops := &recordingOps{}
	x := operations.NewExecutor(ops, nil)

	operationsList := []model.Operation{
		{Type: model.OperationHostAdd},
		{Type: model.OperationHostDisable},
		{Type: model.OperationHostInventory, InventoryMode: 1},
	}

	err := x.Execute(context.Background(), model.Event{EventID: 1}, operationsList)
	require.NoError(t, err)

	assert.Equal(t, 1, ops.hostAdd)
	assert.Equal(t, 1, ops.hostDisable)
	assert.Equal(t, []int{1}, ops.inventoryModes)
}

func TestExecuteNoGroupOrTemplateOpsIssuesNoBulkCall(t *testing.T) {
	ops := &recordingOps{}
	x := operations.NewExecutor(ops, nil)

	err := x.Execute(context.Background(), model.Event{EventID: 1}, []model.Operation{{Type: model.OperationHostAdd}})
	require.NoError(t, err)
	assert.Empty(t, ops.groupsAdded)
	assert.Empty(t, ops.templatesAdded)
}
