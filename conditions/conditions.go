// Package conditions implements the condition evaluator (spec.md §4.1),
// the largest component of this module by design weight. It is a pure
// dispatcher over event.Source into four per-source checkers; several
// branches call out to topology.Repository for the relational lookups
// the spec describes as "bespoke" per condition type.
//
// Unsupported (source, conditiontype) and (conditiontype, operator)
// combinations are configuration errors (spec.md §7 class 1): logged
// and treated as no-match, never surfaced as a Go error. Only a
// genuine, transient failure from the Repository (a DB error) is
// returned as an error, per the class-2 policy of never swallowing
// those.
package conditions

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/eventaction/core/logger"
	"github.com/eventaction/core/macro"
	"github.com/eventaction/core/model"
	"github.com/eventaction/core/topology"
)

// TimePeriodChecker delegates the TIME_PERIOD condition to the
// out-of-scope time-period parser named in spec.md §1.
type TimePeriodChecker interface {
	InPeriod(ctx context.Context, clock int64, period string) (bool, error)
}

// MacroResolverFor builds the macro.Resolver to use for a given event's
// trigger-description substitution (TRIGGER_NAME). Evaluator.Check works
// correctly with a nil MacroResolverFor: it falls back to an empty
// resolver, leaving every macro token unexpanded, which is wrong only in
// the narrow case the name happens to depend on the unresolved macro.
type MacroResolverFor func(event *model.Event) macro.Resolver

// Evaluator is the condition evaluator. The zero value is not usable;
// construct with NewEvaluator.
type Evaluator struct {
	Repo       topology.Repository
	TimePeriod TimePeriodChecker
	Resolver   MacroResolverFor
	Now        func() int64
	Log        logger.Logger
}

// NewEvaluator returns an Evaluator ready for use. timePeriod may be nil
// if the deployment never configures TIME_PERIOD conditions; the
// evaluator then logs a configuration error and no-matches them.
func NewEvaluator(repo topology.Repository, timePeriod TimePeriodChecker, log logger.Logger) *Evaluator {
	return &Evaluator{
		Repo:       repo,
		TimePeriod: timePeriod,
		Now:        func() int64 { return time.Now().Unix() },
		Log:        log,
	}
}

// Check is check_action_condition: dispatches on event.Source.
func (e *Evaluator) Check(ctx context.Context, event *model.Event, condition model.Condition) (bool, error) {
	switch event.Source {
	case model.EventSourceTriggers:
		return e.checkTriggerCondition(ctx, event, condition)
	case model.EventSourceDiscovery:
		return e.checkDiscoveryCondition(ctx, event, condition)
	case model.EventSourceAutoRegistration:
		return e.checkAutoRegistrationCondition(ctx, event, condition)
	case model.EventSourceInternal:
		return e.checkInternalCondition(ctx, event, condition)
	default:
		e.configError("unsupported event source %v", event.Source)
		return false, nil
	}
}

func (e *Evaluator) configError(format string, args ...interface{}) {
	if e.Log != nil {
		e.Log.Error(format, args...)
	}
}

func (e *Evaluator) macroResolver(event *model.Event) macro.Resolver {
	if e.Resolver != nil {
		return e.Resolver(event)
	}
	return macro.StaticResolver(nil)
}

// matchString implements spec.md §4.1's string-matching rules: LIKE is
// raw substring, EQUAL is exact, MORE_EQUAL/LESS_EQUAL are lexicographic.
func matchString(op model.Operator, value, pattern string) (bool, error) {
	switch op {
	case model.OperatorEqual:
		return value == pattern, nil
	case model.OperatorNotEqual:
		return value != pattern, nil
	case model.OperatorLike:
		return strings.Contains(value, pattern), nil
	case model.OperatorNotLike:
		return !strings.Contains(value, pattern), nil
	case model.OperatorMoreEqual:
		return value >= pattern, nil
	case model.OperatorLessEqual:
		return value <= pattern, nil
	default:
		return false, unsupportedOperatorErr
	}
}

func matchInt(op model.Operator, value, pattern int64) (bool, error) {
	switch op {
	case model.OperatorEqual:
		return value == pattern, nil
	case model.OperatorNotEqual:
		return value != pattern, nil
	case model.OperatorMoreEqual:
		return value >= pattern, nil
	case model.OperatorLessEqual:
		return value <= pattern, nil
	default:
		return false, unsupportedOperatorErr
	}
}

// matchIntLogged is matchInt for call sites that must turn an
// unsupported-operator result into a class-1 configuration error (logged,
// no-match) rather than a propagated Go error, which is reserved for
// class-2 transient failures (spec.md §7).
func (e *Evaluator) matchIntLogged(conditionType string, op model.Operator, value, pattern int64) bool {
	result, err := matchInt(op, value, pattern)
	if err != nil {
		e.configError("%s does not support operator %v", conditionType, op)
		return false
	}
	return result
}

type sentinelErr string

func (s sentinelErr) Error() string { return string(s) }

const unsupportedOperatorErr = sentinelErr("conditions: unsupported operator")

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
}

func containsUint(haystack []uint64, needle uint64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
