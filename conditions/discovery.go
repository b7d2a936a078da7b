package conditions

import (
	"context"
	"strconv"
	"strings"

	"github.com/eventaction/core/model"
	"github.com/eventaction/core/topology"
)

// checkDiscoveryCondition implements spec.md §4.1's discovery-source
// rules. Discovery conditions gate on event.Object ∈ {DHost, DService}.
func (e *Evaluator) checkDiscoveryCondition(ctx context.Context, event *model.Event, condition model.Condition) (bool, error) {
	switch event.Object {
	case model.ObjectDHost:
		dhost, ok, err := e.Repo.DiscoveryHost(ctx, event.ObjectID)
		if err != nil {
			return false, err
		}
		if !ok {
			e.configError("discovery host %d referenced by event %d no longer exists", event.ObjectID, event.EventID)
			return false, nil
		}
		return e.checkDHostCondition(dhost, event.Object, condition)
	case model.ObjectDService:
		dservice, ok, err := e.Repo.DiscoveryService(ctx, event.ObjectID)
		if err != nil {
			return false, err
		}
		if !ok {
			e.configError("discovery service %d referenced by event %d no longer exists", event.ObjectID, event.EventID)
			return false, nil
		}
		return e.checkDServiceCondition(dservice, event.Object, condition)
	default:
		e.configError("DISCOVERY-source event %d has unsupported object %v", event.EventID, event.Object)
		return false, nil
	}
}

func (e *Evaluator) checkDHostCondition(dhost topology.DHost, object model.EventObject, condition model.Condition) (bool, error) {
	switch condition.Type {
	case model.ConditionDRule:
		return e.matchIntLogged("DRULE", condition.Operator, int64(dhost.DRuleID), mustParseIntOrZero(condition.Value)), nil
	case model.ConditionDHostIP:
		return e.matchIPListLogged(condition.Operator, dhost.IP, condition.Value), nil
	case model.ConditionDObject:
		// DOBJECT compares against the event's own object code (spec.md
		// §4.1 DOBJECT; actions.c compares event->object ==
		// atoi(condition->value) directly), not a hardcoded literal.
		return e.matchIntLogged("DOBJECT", condition.Operator, int64(object), mustParseIntOrZero(condition.Value)), nil
	default:
		e.configError("condition type %v is not valid for a discovery host", condition.Type)
		return false, nil
	}
}

func (e *Evaluator) checkDServiceCondition(dservice topology.DService, object model.EventObject, condition model.Condition) (bool, error) {
	switch condition.Type {
	case model.ConditionDCheck:
		return e.matchIntLogged("DCHECK", condition.Operator, int64(dservice.DCheckID), mustParseIntOrZero(condition.Value)), nil
	case model.ConditionDServiceType:
		return e.matchIntLogged("DSERVICE_TYPE", condition.Operator, int64(dservice.Type), mustParseIntOrZero(condition.Value)), nil
	case model.ConditionDServicePort:
		return e.matchIntListLogged(condition.Operator, int64(dservice.Port), condition.Value), nil
	case model.ConditionDStatus:
		return e.matchIntLogged("DSTATUS", condition.Operator, int64(dservice.Status), mustParseIntOrZero(condition.Value)), nil
	case model.ConditionDUptime:
		const statusUp = 0
		var since int64
		if dservice.Status == statusUp {
			since = dservice.LastUp
		} else {
			since = dservice.LastDown
		}
		uptime := e.Now() - since
		return e.matchIntLogged("DUPTIME", condition.Operator, uptime, mustParseIntOrZero(condition.Value)), nil
	case model.ConditionDObject:
		return e.matchIntLogged("DOBJECT", condition.Operator, int64(object), mustParseIntOrZero(condition.Value)), nil
	case model.ConditionDValue:
		return e.matchIntLogged("DVALUE", condition.Operator, int64(dservice.Status), mustParseIntOrZero(condition.Value)), nil
	default:
		e.configError("condition type %v is not valid for a discovery service", condition.Type)
		return false, nil
	}
}

// matchIPListLogged treats pattern as a comma-separated list of IPv4
// addresses and "a.b.c.d-e.f.g.h" ranges (spec.md §4.1 DHOST_IP).
func (e *Evaluator) matchIPListLogged(op model.Operator, ip, pattern string) bool {
	target, err := ipToUint32(ip)
	if err != nil {
		return false
	}

	matched := false
	for _, entry := range strings.Split(pattern, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if lo, hi, ok := splitRange(entry); ok {
			loVal, errLo := ipToUint32(lo)
			hiVal, errHi := ipToUint32(hi)
			if errLo == nil && errHi == nil && target >= loVal && target <= hiVal {
				matched = true
				break
			}
			continue
		}
		if entry == ip {
			matched = true
			break
		}
	}

	switch op {
	case model.OperatorIn, model.OperatorEqual:
		return matched
	case model.OperatorNotIn, model.OperatorNotEqual:
		return !matched
	default:
		e.configError("DHOST_IP does not support operator %v", op)
		return false
	}
}

func splitRange(entry string) (lo, hi string, ok bool) {
	idx := strings.IndexByte(entry, '-')
	if idx < 0 {
		return "", "", false
	}
	return entry[:idx], entry[idx+1:], true
}

func ipToUint32(ip string) (uint32, error) {
	parts := strings.Split(strings.TrimSpace(ip), ".")
	if len(parts) != 4 {
		return 0, strconv.ErrSyntax
	}
	var value uint32
	for _, p := range parts {
		octet, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, err
		}
		value = value<<8 | uint32(octet)
	}
	return value, nil
}

// matchIntListLogged is matchIntList for call sites that must turn an
// unsupported-operator result into a class-1 configuration error.
func (e *Evaluator) matchIntListLogged(op model.Operator, value int64, pattern string) bool {
	result, err := matchIntList(op, value, pattern)
	if err != nil {
		e.configError("DSERVICE_PORT does not support operator %v", op)
		return false
	}
	return result
}

// matchIntList treats pattern as a comma-separated list of integers and
// "a-b" ranges (spec.md §4.1 DSERVICE_PORT).
func matchIntList(op model.Operator, value int64, pattern string) (bool, error) {
	matched := false
	for _, entry := range strings.Split(pattern, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if lo, hi, ok := splitRange(entry); ok {
			loVal, errLo := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
			hiVal, errHi := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
			if errLo == nil && errHi == nil && value >= loVal && value <= hiVal {
				matched = true
				break
			}
			continue
		}
		n, err := strconv.ParseInt(entry, 10, 64)
		if err == nil && n == value {
			matched = true
			break
		}
	}

	switch op {
	case model.OperatorIn, model.OperatorEqual:
		return matched, nil
	case model.OperatorNotIn, model.OperatorNotEqual:
		return !matched, nil
	default:
		return false, unsupportedOperatorErr
	}
}
