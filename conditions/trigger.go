package conditions

import (
	"context"
	"strings"

	"github.com/eventaction/core/macro"
	"github.com/eventaction/core/model"
)

// checkTriggerCondition implements spec.md §4.1's trigger-source table.
func (e *Evaluator) checkTriggerCondition(ctx context.Context, event *model.Event, condition model.Condition) (bool, error) {
	if event.Trigger == nil {
		e.configError("trigger-source event %d has no trigger payload", event.EventID)
		return false, nil
	}
	triggerID := event.Trigger.TriggerID

	switch condition.Type {
	case model.ConditionHostGroup:
		return e.checkHostGroup(ctx, triggerID, condition)
	case model.ConditionHostTemplate:
		return e.checkHostTemplate(ctx, triggerID, condition)
	case model.ConditionHost:
		return e.checkHost(ctx, triggerID, condition)
	case model.ConditionTrigger:
		return e.checkTrigger(ctx, triggerID, condition)
	case model.ConditionTriggerName:
		return e.checkTriggerName(event, condition)
	case model.ConditionTriggerSeverity:
		return e.matchIntLogged("TRIGGER_SEVERITY", condition.Operator, int64(event.Trigger.Priority), mustParseIntOrZero(condition.Value)), nil
	case model.ConditionTimePeriod:
		return e.checkTimePeriod(ctx, event, condition)
	case model.ConditionMaintenance:
		return e.checkMaintenance(ctx, triggerID, condition)
	case model.ConditionEventAcknowledged:
		return e.checkEventAcknowledged(ctx, event, condition)
	case model.ConditionApplication:
		return e.checkApplication(ctx, triggerID, condition)
	case model.ConditionEventTag:
		return e.checkEventTag(event, condition)
	case model.ConditionEventTagValue:
		return e.checkEventTagValue(event, condition)
	default:
		e.configError("condition type %v is not valid for TRIGGERS-source events", condition.Type)
		return false, nil
	}
}

func mustParseIntOrZero(s string) int64 {
	v, err := parseInt(s)
	if err != nil {
		return 0
	}
	return v
}

func (e *Evaluator) checkHostGroup(ctx context.Context, triggerID uint64, condition model.Condition) (bool, error) {
	groupIDs, err := e.Repo.TriggerHostGroupIDs(ctx, triggerID)
	if err != nil {
		return false, err
	}
	return e.matchHostGroupIDs(ctx, groupIDs, condition)
}

// matchHostGroupIDs implements HOST_GROUP's matching rule against an
// already-resolved set of host-group ids, shared by the trigger-object
// and item/LLD-rule-object paths (spec.md §4.1 HOST_GROUP is defined the
// same way for both; only the host-group resolution differs).
func (e *Evaluator) matchHostGroupIDs(ctx context.Context, groupIDs []uint64, condition model.Condition) (bool, error) {
	rootGroupID, err := parseUint(condition.Value)
	if err != nil {
		e.configError("HOST_GROUP condition value %q is not a group id: %v", condition.Value, err)
		return false, nil
	}

	if condition.Operator == model.OperatorNotEqual {
		// spec.md §9 Open Questions: NOT_EQUAL deliberately does not expand
		// nested groups — a host in a nested subgroup of the excluded group
		// still reads as "not equal" to it.
		return !containsUint(groupIDs, rootGroupID), nil
	}
	if condition.Operator != model.OperatorEqual {
		e.configError("HOST_GROUP does not support operator %v", condition.Operator)
		return false, nil
	}

	nested, err := e.Repo.NestedHostGroupIDs(ctx, rootGroupID)
	if err != nil {
		return false, err
	}
	for _, gid := range groupIDs {
		if _, ok := nested[gid]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (e *Evaluator) checkHostTemplate(ctx context.Context, triggerID uint64, condition model.Condition) (bool, error) {
	if condition.Operator != model.OperatorEqual && condition.Operator != model.OperatorNotEqual {
		e.configError("HOST_TEMPLATE does not support operator %v", condition.Operator)
		return false, nil
	}
	hostID, err := parseUint(condition.Value)
	if err != nil {
		e.configError("HOST_TEMPLATE condition value %q is not a host id: %v", condition.Value, err)
		return false, nil
	}

	currentID := triggerID
	if parentID, ok, err := e.Repo.TriggerParentID(ctx, currentID); err != nil {
		return false, err
	} else if ok {
		currentID = parentID
	}

	matched, err := e.walkTemplateChainForHost(ctx, currentID, hostID)
	if err != nil {
		return false, err
	}
	if condition.Operator == model.OperatorNotEqual {
		return !matched, nil
	}
	return matched, nil
}

// walkTemplateChainForHost visits startTriggerID and every trigger
// reachable by following triggers.templateid, testing each visited
// trigger's host set for hostID. Terminates when no further template
// exists (spec.md §4.1 HOST_TEMPLATE).
func (e *Evaluator) walkTemplateChainForHost(ctx context.Context, startTriggerID, hostID uint64) (bool, error) {
	currentID := startTriggerID
	for {
		hostIDs, err := e.Repo.TriggerHostIDs(ctx, currentID)
		if err != nil {
			return false, err
		}
		if containsUint(hostIDs, hostID) {
			return true, nil
		}
		templateID, ok, err := e.Repo.TriggerTemplateID(ctx, currentID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		currentID = templateID
	}
}

func (e *Evaluator) checkHost(ctx context.Context, triggerID uint64, condition model.Condition) (bool, error) {
	hostIDs, err := e.Repo.TriggerHostIDs(ctx, triggerID)
	if err != nil {
		return false, err
	}
	return e.matchHostIDs(hostIDs, condition)
}

// matchHostIDs implements HOST's matching rule against an already-
// resolved set of host ids, shared by the trigger-object and item/LLD-
// rule-object paths.
func (e *Evaluator) matchHostIDs(hostIDs []uint64, condition model.Condition) (bool, error) {
	hostID, err := parseUint(condition.Value)
	if err != nil {
		e.configError("HOST condition value %q is not a host id: %v", condition.Value, err)
		return false, nil
	}
	matched := containsUint(hostIDs, hostID)
	switch condition.Operator {
	case model.OperatorEqual:
		return matched, nil
	case model.OperatorNotEqual:
		return !matched, nil
	default:
		e.configError("HOST does not support operator %v", condition.Operator)
		return false, nil
	}
}

func (e *Evaluator) checkTrigger(ctx context.Context, triggerID uint64, condition model.Condition) (bool, error) {
	targetID, err := parseUint(condition.Value)
	if err != nil {
		e.configError("TRIGGER condition value %q is not a trigger id: %v", condition.Value, err)
		return false, nil
	}

	currentID := triggerID
	matched := false
	for {
		if currentID == targetID {
			matched = true
			break
		}
		templateID, ok, err := e.Repo.TriggerTemplateID(ctx, currentID)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		currentID = templateID
	}

	switch condition.Operator {
	case model.OperatorEqual:
		return matched, nil
	case model.OperatorNotEqual:
		return !matched, nil
	default:
		e.configError("TRIGGER does not support operator %v", condition.Operator)
		return false, nil
	}
}

func (e *Evaluator) checkTriggerName(event *model.Event, condition model.Condition) (bool, error) {
	description := macro.Expand(event.Trigger.Description, e.macroResolver(event))
	return matchString(condition.Operator, description, condition.Value)
}

func (e *Evaluator) checkTimePeriod(ctx context.Context, event *model.Event, condition model.Condition) (bool, error) {
	if e.TimePeriod == nil {
		e.configError("TIME_PERIOD condition configured but no time-period checker is wired")
		return false, nil
	}
	inPeriod, err := e.TimePeriod.InPeriod(ctx, event.Clock, condition.Value)
	if err != nil {
		return false, err
	}
	switch condition.Operator {
	case model.OperatorIn:
		return inPeriod, nil
	case model.OperatorNotIn:
		return !inPeriod, nil
	default:
		e.configError("TIME_PERIOD does not support operator %v", condition.Operator)
		return false, nil
	}
}

func (e *Evaluator) checkMaintenance(ctx context.Context, triggerID uint64, condition model.Condition) (bool, error) {
	hostIDs, err := e.Repo.TriggerHostIDs(ctx, triggerID)
	if err != nil {
		return false, err
	}
	statuses, err := e.Repo.HostsInMaintenance(ctx, hostIDs)
	if err != nil {
		return false, err
	}
	anyInMaintenance := false
	for _, inMaintenance := range statuses {
		if inMaintenance {
			anyInMaintenance = true
			break
		}
	}
	switch condition.Operator {
	case model.OperatorIn:
		return anyInMaintenance, nil
	case model.OperatorNotIn:
		return !anyInMaintenance, nil
	default:
		e.configError("MAINTENANCE does not support operator %v", condition.Operator)
		return false, nil
	}
}

func (e *Evaluator) checkEventAcknowledged(ctx context.Context, event *model.Event, condition model.Condition) (bool, error) {
	want, err := parseInt(condition.Value)
	if err != nil {
		e.configError("EVENT_ACKNOWLEDGED condition value %q is not an integer: %v", condition.Value, err)
		return false, nil
	}
	ack, err := e.Repo.EventAcknowledged(ctx, event.EventID)
	if err != nil {
		return false, err
	}
	return e.matchIntLogged("EVENT_ACKNOWLEDGED", condition.Operator, int64(ack), want), nil
}

func (e *Evaluator) checkApplication(ctx context.Context, triggerID uint64, condition model.Condition) (bool, error) {
	names, err := e.Repo.TriggerApplicationNames(ctx, triggerID)
	if err != nil {
		return false, err
	}
	return e.matchApplicationNames(names, condition)
}

// matchApplicationNames implements APPLICATION's matching rule against
// an already-resolved set of application names, shared by the
// trigger-object and item/LLD-rule-object paths.
func (e *Evaluator) matchApplicationNames(names []string, condition model.Condition) (bool, error) {
	switch condition.Operator {
	case model.OperatorEqual:
		for _, name := range names {
			if name == condition.Value {
				return true, nil
			}
		}
		return false, nil
	case model.OperatorLike:
		for _, name := range names {
			if strings.Contains(name, condition.Value) {
				return true, nil
			}
		}
		return false, nil
	case model.OperatorNotLike:
		for _, name := range names {
			if strings.Contains(name, condition.Value) {
				return false, nil
			}
		}
		return true, nil
	default:
		e.configError("APPLICATION does not support operator %v", condition.Operator)
		return false, nil
	}
}

func (e *Evaluator) checkEventTag(event *model.Event, condition model.Condition) (bool, error) {
	test, negated, err := tagTestFor(condition.Operator)
	if err != nil {
		e.configError("EVENT_TAG does not support operator %v", condition.Operator)
		return false, nil
	}
	return tagLoopMatch(event.Tags, negated, func(t model.Tag) bool { return test(t.Tag, condition.Value) }), nil
}

func (e *Evaluator) checkEventTagValue(event *model.Event, condition model.Condition) (bool, error) {
	test, negated, err := tagTestFor(condition.Operator)
	if err != nil {
		e.configError("EVENT_TAG_VALUE does not support operator %v", condition.Operator)
		return false, nil
	}
	return tagLoopMatch(event.Tags, negated, func(t model.Tag) bool {
		return t.Tag == condition.Value2 && test(t.Value, condition.Value)
	}), nil
}

// tagTestFor returns the positive test (substring for LIKE/NOT_LIKE,
// exact equality for EQUAL/NOT_EQUAL) and whether the operator is the
// negated form, per spec.md §4.1 EVENT_TAG.
func tagTestFor(op model.Operator) (test func(value, pattern string) bool, negated bool, err error) {
	switch op {
	case model.OperatorEqual:
		return func(v, p string) bool { return v == p }, false, nil
	case model.OperatorNotEqual:
		return func(v, p string) bool { return v == p }, true, nil
	case model.OperatorLike:
		return strings.Contains, false, nil
	case model.OperatorNotLike:
		return strings.Contains, true, nil
	default:
		return nil, false, unsupportedOperatorErr
	}
}

// tagLoopMatch implements the "seed, first hit flips/confirms" loop
// spec.md §4.1 describes for EVENT_TAG/EVENT_TAG_VALUE.
func tagLoopMatch(tags []model.Tag, negated bool, hit func(model.Tag) bool) bool {
	result := negated
	for _, t := range tags {
		if hit(t) {
			if negated {
				return false
			}
			return true
		}
	}
	return result
}
