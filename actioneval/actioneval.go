// Package actioneval implements the action evaluator (spec.md §4.2,
// check_action_conditions): it composes the per-condition verdicts the
// conditions package produces into one match/no-match result for an
// action, under whichever of the four evaluation modes the action
// carries.
package actioneval

import (
	"context"
	"strings"

	"github.com/eventaction/core/expreval"
	"github.com/eventaction/core/logger"
	"github.com/eventaction/core/model"
)

// ConditionChecker is the single-condition evaluator this package
// composes; conditions.Evaluator satisfies it.
type ConditionChecker interface {
	Check(ctx context.Context, event *model.Event, condition model.Condition) (bool, error)
}

// Evaluator composes condition verdicts into an action-level verdict.
type Evaluator struct {
	Conditions ConditionChecker
	Log        logger.Logger
}

// NewEvaluator returns an Evaluator backed by checker.
func NewEvaluator(checker ConditionChecker, log logger.Logger) *Evaluator {
	return &Evaluator{Conditions: checker, Log: log}
}

// Check is check_action_conditions: evaluates the conditions of action
// against event and combines the results per action.EvalType. AND, OR and
// AND_OR modes stop evaluating as soon as the verdict is decided.
func (e *Evaluator) Check(ctx context.Context, event *model.Event, action model.Action) (bool, error) {
	if e.Log != nil {
		e.Log.Debug("evaluating action %d: %d condition(s), mode %v", action.ActionID, len(action.Conditions), action.EvalType)
	}

	switch action.EvalType {
	case model.EvalTypeAnd:
		return e.checkAnd(ctx, event, action.Conditions)
	case model.EvalTypeOr:
		return e.checkOr(ctx, event, action.Conditions)
	case model.EvalTypeAndOr:
		return e.checkAndOr(ctx, event, action.Conditions)
	case model.EvalTypeExpression:
		return e.checkExpression(ctx, event, action)
	default:
		if e.Log != nil {
			e.Log.Error("action %d has unsupported eval type %v", action.ActionID, action.EvalType)
		}
		return false, nil
	}
}

func (e *Evaluator) checkAnd(ctx context.Context, event *model.Event, conditions []model.Condition) (bool, error) {
	for _, c := range conditions {
		matched, err := e.Conditions.Check(ctx, event, c)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) checkOr(ctx context.Context, event *model.Event, conditions []model.Condition) (bool, error) {
	for _, c := range conditions {
		matched, err := e.Conditions.Check(ctx, event, c)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// checkAndOr implements spec.md §4.2's AND_OR mode: conditions are
// assumed sorted by ConditionType (model.Action's documented precondition);
// adjacent equal types form an OR-group, distinct groups are ANDed. A
// running groupState resets at each type boundary; once a group is known
// true, remaining conditions of the same type are skipped (the
// short-circuit optimization spec.md calls out).
func (e *Evaluator) checkAndOr(ctx context.Context, event *model.Event, conditions []model.Condition) (bool, error) {
	if len(conditions) == 0 {
		return true, nil
	}

	groupType := conditions[0].Type
	groupState := false
	groupStarted := false

	for _, c := range conditions {
		if c.Type != groupType {
			if groupStarted && !groupState {
				return false, nil
			}
			groupType = c.Type
			groupState = false
			groupStarted = false
		}

		if groupState {
			// Short-circuit: this type's group is already true.
			continue
		}

		matched, err := e.Conditions.Check(ctx, event, c)
		if err != nil {
			return false, err
		}
		groupStarted = true
		if matched {
			groupState = true
		}
	}

	return groupState, nil
}

// checkExpression implements spec.md §4.2's EXPRESSION mode: substitute
// each condition's '1'/'0' verdict for every occurrence of its
// {conditionid} token in a mutable copy of action.Formula, padding with
// spaces to preserve byte positions (the position-preservation contract
// spec.md §8 calls a law: "the length of the formula string after
// substitution equals its length before substitution"), then hand the
// result to expreval.
func (e *Evaluator) checkExpression(ctx context.Context, event *model.Event, action model.Action) (bool, error) {
	formula := []byte(action.Formula)

	for _, c := range action.Conditions {
		matched, err := e.Conditions.Check(ctx, event, c)
		if err != nil {
			return false, err
		}
		formula = substituteToken(formula, c.ConditionID, matched)
	}

	result, err := expreval.Evaluate(string(formula))
	if err != nil {
		if e.Log != nil {
			e.Log.Error("action %d: expression %q failed to parse: %v", action.ActionID, string(formula), err)
		}
		return false, nil
	}
	return expreval.Matches(result), nil
}

// substituteToken replaces every occurrence of "{id}" in formula with
// "1" or "0", padding the remaining bytes of the token with spaces so the
// surrounding operator positions are unchanged.
func substituteToken(formula []byte, conditionID uint64, matched bool) []byte {
	token := tokenFor(conditionID)
	replacement := byte('0')
	if matched {
		replacement = '1'
	}

	text := string(formula)
	out := make([]byte, len(formula))
	copy(out, formula)

	searchFrom := 0
	for {
		idx := strings.Index(text[searchFrom:], token)
		if idx < 0 {
			break
		}
		pos := searchFrom + idx
		out[pos] = replacement
		for i := pos + 1; i < pos+len(token); i++ {
			out[i] = ' '
		}
		searchFrom = pos + len(token)
	}
	return out
}

func tokenFor(conditionID uint64) string {
	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(formatUint(conditionID))
	b.WriteByte('}')
	return b.String()
}

func formatUint(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
