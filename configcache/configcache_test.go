package configcache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventaction/core/configcache"
	"github.com/eventaction/core/model"
)

func TestRefreshPublishesNewSnapshot(t *testing.T) {
	calls := 0
	load := func(ctx context.Context) ([]model.Action, error) {
		calls++
		return []model.Action{
			{ActionID: 1, EventSource: model.EventSourceTriggers},
			{ActionID: 2, EventSource: model.EventSourceDiscovery},
		}, nil
	}

	c := configcache.NewCache(load)
	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Current()
	assert.Len(t, snap.ActionsFor(model.EventSourceTriggers), 1)
	assert.Len(t, snap.ActionsFor(model.EventSourceDiscovery), 1)
	assert.Len(t, snap.ActionsFor(model.EventSourceAutoRegistration), 0)
	assert.Equal(t, 1, calls)
}

func TestRefreshErrorLeavesPriorSnapshotLive(t *testing.T) {
	good := []model.Action{{ActionID: 1, EventSource: model.EventSourceTriggers}}
	first := true
	load := func(ctx context.Context) ([]model.Action, error) {
		if first {
			first = false
			return good, nil
		}
		return nil, errors.New("db unreachable")
	}

	c := configcache.NewCache(load)
	require.NoError(t, c.Refresh(context.Background()))
	require.Error(t, c.Refresh(context.Background()))

	assert.Len(t, c.Current().ActionsFor(model.EventSourceTriggers), 1, "a failed refresh must not clobber the live snapshot")
}
