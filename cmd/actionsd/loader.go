package main

import (
	"context"
	"fmt"

	"github.com/eventaction/core/db"
	"github.com/eventaction/core/model"
)

// loadActions is the configcache.Loader backing actionsd's Cache
// (configcache package docs: "the db-backed implementation lives beside
// the action evaluator's caller (cmd/actionsd)"). It loads every enabled
// action together with its conditions and operations, already sorted the
// way model.Action documents (conditions by conditiontype for AND_OR
// mode).
func loadActions(ctx context.Context, session db.DatabaseAccessor) ([]model.Action, error) {
	rows, err := session.Query(ctx, `
		SELECT actionid, eventsource, evaltype, formula, pause_in_maintenance
		FROM actions WHERE status = 0`)
	if err != nil {
		return nil, fmt.Errorf("actionsd: loading actions: %w", err)
	}

	var actions []model.Action
	for rows.Next() {
		var a model.Action
		var eventSource, evalType int
		var pauseInMaintenance int
		if err := rows.Scan(&a.ActionID, &eventSource, &evalType, &a.Formula, &pauseInMaintenance); err != nil {
			rows.Close()
			return nil, err
		}
		a.EventSource = model.EventSource(eventSource)
		a.EvalType = model.EvalType(evalType)
		a.PauseInMaintenance = pauseInMaintenance != 0
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range actions {
		conditions, err := loadConditions(ctx, session, actions[i].ActionID)
		if err != nil {
			return nil, err
		}
		actions[i].Conditions = conditions

		ops, err := loadOperations(ctx, session, actions[i].ActionID)
		if err != nil {
			return nil, err
		}
		actions[i].Operations = ops
	}

	return actions, nil
}

// loadConditions returns actionID's conditions ordered by conditiontype,
// the precondition model.Action documents for AND_OR mode (spec.md §3:
// "must be sorted by conditiontype").
func loadConditions(ctx context.Context, session db.DatabaseAccessor, actionID uint64) ([]model.Condition, error) {
	rows, err := session.Query(ctx, `
		SELECT conditionid, conditiontype, operator, value, value2
		FROM conditions WHERE actionid = ? ORDER BY conditiontype, conditionid`, actionID)
	if err != nil {
		return nil, fmt.Errorf("actionsd: loading conditions for action %d: %w", actionID, err)
	}
	defer rows.Close()

	var conditions []model.Condition
	for rows.Next() {
		var c model.Condition
		var conditionType, operator int
		if err := rows.Scan(&c.ConditionID, &conditionType, &operator, &c.Value, &c.Value2); err != nil {
			return nil, err
		}
		c.ActionID = actionID
		c.Type = model.ConditionType(conditionType)
		c.Operator = model.Operator(operator)
		conditions = append(conditions, c)
	}
	return conditions, rows.Err()
}

// loadOperations returns actionID's operations, left-joined with
// opgroup/optemplate/opinventory (spec.md §4.3).
func loadOperations(ctx context.Context, session db.DatabaseAccessor, actionID uint64) ([]model.Operation, error) {
	rows, err := session.Query(ctx, `
		SELECT o.operationtype,
		       COALESCE(og.groupid, 0),
		       COALESCE(ot.templateid, 0),
		       COALESCE(oi.inventory_mode, 0)
		FROM operations o
		LEFT JOIN opgroup og ON og.operationid = o.operationid
		LEFT JOIN optemplate ot ON ot.operationid = o.operationid
		LEFT JOIN opinventory oi ON oi.operationid = o.operationid
		WHERE o.actionid = ?`, actionID)
	if err != nil {
		return nil, fmt.Errorf("actionsd: loading operations for action %d: %w", actionID, err)
	}
	defer rows.Close()

	var ops []model.Operation
	for rows.Next() {
		var op model.Operation
		var operationType int
		if err := rows.Scan(&operationType, &op.GroupID, &op.TemplateID, &op.InventoryMode); err != nil {
			return nil, err
		}
		op.Type = model.OperationType(operationType)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
