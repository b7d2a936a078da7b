package conditions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventaction/core/conditions"
	"github.com/eventaction/core/model"
	"github.com/eventaction/core/topology"
)

func triggerEvent(triggerID uint64, priority int, tags ...model.Tag) *model.Event {
	return &model.Event{
		EventID: 100,
		Source:  model.EventSourceTriggers,
		Object:  model.ObjectTrigger,
		Flags:   model.FlagCreate,
		Tags:    tags,
		Trigger: &model.Trigger{TriggerID: triggerID, Description: "CPU load on {HOST.NAME}", Priority: priority},
	}
}

func TestCheckHostGroupExpandsNestedGroups(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.TriggerHostGroups[1] = []uint64{30}
	repo.GroupParents[30] = 20 // 30 is nested under 20

	e := conditions.NewEvaluator(repo, nil, nil)
	cond := model.Condition{Type: model.ConditionHostGroup, Operator: model.OperatorEqual, Value: "20"}

	matched, err := e.Check(context.Background(), triggerEvent(1, 3), cond)
	require.NoError(t, err)
	assert.True(t, matched, "trigger's host group 30 is nested under the condition's root group 20")
}

func TestCheckHostGroupNotEqualDoesNotExpandNestedGroups(t *testing.T) {
	// spec.md §9 Open Questions: NOT_EQUAL deliberately skips nested
	// expansion, so a host in a nested subgroup still reads "not equal".
	repo := topology.NewMemoryRepository()
	repo.TriggerHostGroups[1] = []uint64{30}
	repo.GroupParents[30] = 20

	e := conditions.NewEvaluator(repo, nil, nil)
	cond := model.Condition{Type: model.ConditionHostGroup, Operator: model.OperatorNotEqual, Value: "20"}

	matched, err := e.Check(context.Background(), triggerEvent(1, 3), cond)
	require.NoError(t, err)
	assert.True(t, matched, "NOT_EQUAL must not expand nested groups")
}

func TestCheckTriggerSeverityMoreEqual(t *testing.T) {
	repo := topology.NewMemoryRepository()
	e := conditions.NewEvaluator(repo, nil, nil)
	cond := model.Condition{Type: model.ConditionTriggerSeverity, Operator: model.OperatorMoreEqual, Value: "3"}

	matched, err := e.Check(context.Background(), triggerEvent(1, 4), cond)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = e.Check(context.Background(), triggerEvent(1, 2), cond)
	require.NoError(t, err)
	assert.False(t, matched)
}

// scenario 1 from spec.md §8: AND-OR short-circuit over HOST/HOST/
// TRIGGER_SEVERITY, testing only the condition layer's individual results
// here (the action-level grouping is actioneval's job).
func TestScenario1TriggerOnSecondHostMatchesHostCondition(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.TriggerHosts[1] = []uint64{2} // trigger lives on host 2 (H2)
	e := conditions.NewEvaluator(repo, nil, nil)

	h1 := model.Condition{Type: model.ConditionHost, Operator: model.OperatorEqual, Value: "1"}
	h2 := model.Condition{Type: model.ConditionHost, Operator: model.OperatorEqual, Value: "2"}

	matched, err := e.Check(context.Background(), triggerEvent(1, 4), h1)
	require.NoError(t, err)
	assert.False(t, matched)

	matched, err = e.Check(context.Background(), triggerEvent(1, 4), h2)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestEventTagValueMatchesNameAndValue(t *testing.T) {
	// scenario 3 from spec.md §8.
	repo := topology.NewMemoryRepository()
	e := conditions.NewEvaluator(repo, nil, nil)
	event := triggerEvent(1, 2, model.Tag{Tag: "env", Value: "prod"}, model.Tag{Tag: "team", Value: "db"})

	cond := model.Condition{Type: model.ConditionEventTagValue, Operator: model.OperatorEqual, Value: "prod", Value2: "env"}
	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched)

	cond.Value = "stage"
	matched, err = e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEventTagNegatedRequiresNoTagMatches(t *testing.T) {
	repo := topology.NewMemoryRepository()
	e := conditions.NewEvaluator(repo, nil, nil)
	event := triggerEvent(1, 2, model.Tag{Tag: "env", Value: "prod"})

	cond := model.Condition{Type: model.ConditionEventTag, Operator: model.OperatorNotEqual, Value: "env"}
	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.False(t, matched, "a tag named env exists, so NOT_EQUAL must fail")

	cond.Value = "missing"
	matched, err = e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched, "no tag is named missing, so NOT_EQUAL over the whole set succeeds")
}

func TestApplicationNotLikeTrueOnEmptySet(t *testing.T) {
	repo := topology.NewMemoryRepository()
	e := conditions.NewEvaluator(repo, nil, nil)
	cond := model.Condition{Type: model.ConditionApplication, Operator: model.OperatorNotLike, Value: "db"}

	matched, err := e.Check(context.Background(), triggerEvent(1, 2), cond)
	require.NoError(t, err)
	assert.True(t, matched, "NOT_LIKE over zero applications has nothing to fail the match")
}

func TestHostTemplateWalksUpTemplateChain(t *testing.T) {
	repo := topology.NewMemoryRepository()
	// trigger 1 -> template trigger 2 -> template trigger 3 (host 5)
	repo.TriggerTemplateIDs[1] = 2
	repo.TriggerTemplateIDs[2] = 3
	repo.TriggerHosts[3] = []uint64{5}

	e := conditions.NewEvaluator(repo, nil, nil)
	cond := model.Condition{Type: model.ConditionHostTemplate, Operator: model.OperatorEqual, Value: "5"}

	matched, err := e.Check(context.Background(), triggerEvent(1, 2), cond)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestDiscoveryDHostIPRangeMatch(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.DHosts[1] = topology.DHost{DHostID: 1, IP: "10.0.0.5"}
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceDiscovery, Object: model.ObjectDHost, ObjectID: 1, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionDHostIP, Operator: model.OperatorIn, Value: "10.0.0.1-10.0.0.10"}

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestDiscoveryDServicePortList(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.DServices[7] = topology.DService{DServiceID: 7, Port: 443}
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceDiscovery, Object: model.ObjectDService, ObjectID: 7, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionDServicePort, Operator: model.OperatorIn, Value: "80,443,8000-8100"}

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestAutoRegistrationHostMetadataLike(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.AutoregHosts[9] = topology.AutoregHost{AutoregHostID: 9, Metadata: "linux;prod"}
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceAutoRegistration, Object: model.ObjectAutoregHost, ObjectID: 9, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionHostMetadata, Operator: model.OperatorLike, Value: "prod"}

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestInternalEventTypeItemNotSupported(t *testing.T) {
	repo := topology.NewMemoryRepository()
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceInternal, Object: model.ObjectItem, Value: model.ItemStateNotSupported, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionEventType, Operator: model.OperatorEqual, Value: "0"} // EventTypeItemNotSupported == 0

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestInternalHostGroupMatchesOnItemObjectDirectly(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.ItemHostGroups[55] = []uint64{20}
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceInternal, Object: model.ObjectItem, ObjectID: 55, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionHostGroup, Operator: model.OperatorEqual, Value: "20"}

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched, "HOST_GROUP on an internal ITEM event resolves via the item's own host, not a discovery gate")
}

func TestInternalHostMatchesOnLLDRuleObjectDirectly(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.ItemHosts[77] = 3
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceInternal, Object: model.ObjectLLDRule, ObjectID: 77, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionHost, Operator: model.OperatorEqual, Value: "3"}

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestInternalApplicationMatchesOnItemObjectDirectly(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.ItemApplications[55] = []string{"database"}
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceInternal, Object: model.ObjectItem, ObjectID: 55, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionApplication, Operator: model.OperatorEqual, Value: "database"}

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestInternalHostTemplateStillGatedOnDiscoveryCreatedItem(t *testing.T) {
	repo := topology.NewMemoryRepository()
	// Not marked discovery-created: HOST_TEMPLATE must still no-match, even
	// though HOST_GROUP/HOST/APPLICATION on the same item no longer do.
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceInternal, Object: model.ObjectItem, ObjectID: 55, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionHostTemplate, Operator: model.OperatorEqual, Value: "3"}

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestDiscoveryDObjectMatchesDHostObjectCode(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.DHosts[1] = topology.DHost{DHostID: 1}
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceDiscovery, Object: model.ObjectDHost, ObjectID: 1, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionDObject, Operator: model.OperatorEqual, Value: "3"} // model.ObjectDHost == 3

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestDiscoveryDObjectMatchesDServiceObjectCode(t *testing.T) {
	repo := topology.NewMemoryRepository()
	repo.DServices[7] = topology.DService{DServiceID: 7}
	e := conditions.NewEvaluator(repo, nil, nil)

	event := &model.Event{EventID: 1, Source: model.EventSourceDiscovery, Object: model.ObjectDService, ObjectID: 7, Flags: model.FlagCreate}
	cond := model.Condition{Type: model.ConditionDObject, Operator: model.OperatorEqual, Value: "4"} // model.ObjectDService == 4

	matched, err := e.Check(context.Background(), event, cond)
	require.NoError(t, err)
	assert.True(t, matched)

	mismatch := model.Condition{Type: model.ConditionDObject, Operator: model.OperatorEqual, Value: "3"}
	matched, err = e.Check(context.Background(), event, mismatch)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestUnsupportedConditionTypeIsNoMatchNotError(t *testing.T) {
	repo := topology.NewMemoryRepository()
	e := conditions.NewEvaluator(repo, nil, nil)
	cond := model.Condition{Type: model.ConditionDRule, Operator: model.OperatorEqual, Value: "1"}

	matched, err := e.Check(context.Background(), triggerEvent(1, 2), cond)
	require.NoError(t, err, "spec.md §7: unsupported combinations are logged, never returned as an error")
	assert.False(t, matched)
}
