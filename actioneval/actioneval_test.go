package actioneval_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventaction/core/actioneval"
	"github.com/eventaction/core/model"
)

// scriptedChecker returns a fixed verdict per conditionid, recording call
// order so tests can assert AND_OR's short-circuiting.
type scriptedChecker struct {
	verdicts map[uint64]bool
	calls    []uint64
}

func (s *scriptedChecker) Check(ctx context.Context, event *model.Event, condition model.Condition) (bool, error) {
	s.calls = append(s.calls, condition.ConditionID)
	return s.verdicts[condition.ConditionID], nil
}

func TestCheckAndOrGroupsByAdjacentType(t *testing.T) {
	// spec.md §8 scenario 1: [HOST=H1 (false), HOST=H2 (true),
	// TRIGGER_SEVERITY>=3 (true)] -> match.
	checker := &scriptedChecker{verdicts: map[uint64]bool{1: false, 2: true, 3: true}}
	e := actioneval.NewEvaluator(checker, nil)

	action := model.Action{
		EvalType: model.EvalTypeAndOr,
		Conditions: []model.Condition{
			{ConditionID: 1, Type: model.ConditionHost},
			{ConditionID: 2, Type: model.ConditionHost},
			{ConditionID: 3, Type: model.ConditionTriggerSeverity},
		},
	}

	matched, err := e.Check(context.Background(), &model.Event{}, action)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestCheckAndOrFalseGroupShortCircuits(t *testing.T) {
	checker := &scriptedChecker{verdicts: map[uint64]bool{1: false, 2: false, 3: true}}
	e := actioneval.NewEvaluator(checker, nil)

	action := model.Action{
		EvalType: model.EvalTypeAndOr,
		Conditions: []model.Condition{
			{ConditionID: 1, Type: model.ConditionHost},
			{ConditionID: 2, Type: model.ConditionHost},
			{ConditionID: 3, Type: model.ConditionTriggerSeverity},
		},
	}

	matched, err := e.Check(context.Background(), &model.Event{}, action)
	require.NoError(t, err)
	assert.False(t, matched, "both HOST conditions are false, so the group is false and the action short-circuits")
	assert.NotContains(t, checker.calls, uint64(3), "TRIGGER_SEVERITY must not be evaluated once the prior group failed")
}

func TestCheckAndOrSkipsRemainingConditionsOnceGroupTrue(t *testing.T) {
	checker := &scriptedChecker{verdicts: map[uint64]bool{1: true, 2: true}}
	e := actioneval.NewEvaluator(checker, nil)

	action := model.Action{
		EvalType: model.EvalTypeAndOr,
		Conditions: []model.Condition{
			{ConditionID: 1, Type: model.ConditionHost},
			{ConditionID: 2, Type: model.ConditionHost},
		},
	}

	matched, err := e.Check(context.Background(), &model.Event{}, action)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, []uint64{1}, checker.calls, "condition 2 is skipped once its group is already true")
}

func TestCheckAnd(t *testing.T) {
	checker := &scriptedChecker{verdicts: map[uint64]bool{1: true, 2: false}}
	e := actioneval.NewEvaluator(checker, nil)
	action := model.Action{EvalType: model.EvalTypeAnd, Conditions: []model.Condition{{ConditionID: 1}, {ConditionID: 2}}}

	matched, err := e.Check(context.Background(), &model.Event{}, action)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, []uint64{1, 2}, checker.calls)
}

func TestCheckOr(t *testing.T) {
	checker := &scriptedChecker{verdicts: map[uint64]bool{1: false, 2: true}}
	e := actioneval.NewEvaluator(checker, nil)
	action := model.Action{EvalType: model.EvalTypeOr, Conditions: []model.Condition{{ConditionID: 1}, {ConditionID: 2}}}

	matched, err := e.Check(context.Background(), &model.Event{}, action)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestCheckExpressionSubstitutesVerdictsAndMatches(t *testing.T) {
	// spec.md §8 scenario 2.
	checker := &scriptedChecker{verdicts: map[uint64]bool{100: true, 101: false, 102: true}}
	e := actioneval.NewEvaluator(checker, nil)

	action := model.Action{
		EvalType: model.EvalTypeExpression,
		Formula:  "{100} and ({101} or {102})",
		Conditions: []model.Condition{
			{ConditionID: 100},
			{ConditionID: 101},
			{ConditionID: 102},
		},
	}

	matched, err := e.Check(context.Background(), &model.Event{}, action)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestCheckExpressionNoMatch(t *testing.T) {
	checker := &scriptedChecker{verdicts: map[uint64]bool{1: false, 2: false}}
	e := actioneval.NewEvaluator(checker, nil)

	action := model.Action{
		EvalType:   model.EvalTypeExpression,
		Formula:    "{1} or {2}",
		Conditions: []model.Condition{{ConditionID: 1}, {ConditionID: 2}},
	}

	matched, err := e.Check(context.Background(), &model.Event{}, action)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestCheckExpressionMalformedFormulaIsNoMatch(t *testing.T) {
	checker := &scriptedChecker{verdicts: map[uint64]bool{1: true}}
	e := actioneval.NewEvaluator(checker, nil)

	action := model.Action{
		EvalType:   model.EvalTypeExpression,
		Formula:    "{1} and (",
		Conditions: []model.Condition{{ConditionID: 1}},
	}

	matched, err := e.Check(context.Background(), &model.Event{}, action)
	require.NoError(t, err, "spec.md §4.2: a parse failure from evaluate yields no-match, not an error")
	assert.False(t, matched)
}
