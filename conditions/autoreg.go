package conditions

import (
	"context"
	"strings"

	"github.com/eventaction/core/model"
)

// checkAutoRegistrationCondition implements spec.md §4.1's
// auto-registration-source rules: HOST_NAME, HOST_METADATA, and PROXY
// against the autoreg_host row the event's objectid names.
func (e *Evaluator) checkAutoRegistrationCondition(ctx context.Context, event *model.Event, condition model.Condition) (bool, error) {
	if event.Object != model.ObjectAutoregHost {
		e.configError("AUTO_REGISTRATION-source event %d has unsupported object %v", event.EventID, event.Object)
		return false, nil
	}

	host, ok, err := e.Repo.AutoregHost(ctx, event.ObjectID)
	if err != nil {
		return false, err
	}
	if !ok {
		e.configError("autoreg host %d referenced by event %d no longer exists", event.ObjectID, event.EventID)
		return false, nil
	}

	switch condition.Type {
	case model.ConditionHostName:
		return e.matchAutoregStringLogged("HOST_NAME", condition.Operator, host.Host, condition.Value), nil
	case model.ConditionHostMetadata:
		return e.matchAutoregStringLogged("HOST_METADATA", condition.Operator, host.Metadata, condition.Value), nil
	case model.ConditionProxy:
		proxyID, err := parseUint(condition.Value)
		if err != nil {
			e.configError("PROXY condition value %q is not a proxy id: %v", condition.Value, err)
			return false, nil
		}
		switch condition.Operator {
		case model.OperatorEqual:
			return host.ProxyHostID == proxyID, nil
		case model.OperatorNotEqual:
			return host.ProxyHostID != proxyID, nil
		default:
			e.configError("PROXY does not support operator %v", condition.Operator)
			return false, nil
		}
	default:
		e.configError("condition type %v is not valid for AUTO_REGISTRATION-source events", condition.Type)
		return false, nil
	}
}

// matchAutoregStringLogged implements HOST_NAME/HOST_METADATA's
// LIKE/NOT_LIKE substring semantics (spec.md §4.1); these two fields are
// never compared with EQUAL/NOT_EQUAL in the original schema, only
// LIKE/NOT_LIKE, but EQUAL/NOT_EQUAL are accepted too since matchString
// already implements them generically and nothing in the spec forbids it.
func (e *Evaluator) matchAutoregStringLogged(conditionType string, op model.Operator, value, pattern string) bool {
	switch op {
	case model.OperatorLike:
		return strings.Contains(value, pattern)
	case model.OperatorNotLike:
		return !strings.Contains(value, pattern)
	case model.OperatorEqual:
		return value == pattern
	case model.OperatorNotEqual:
		return value != pattern
	default:
		e.configError("%s does not support operator %v", conditionType, op)
		return false
	}
}
