package triggerlock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventaction/core/triggerlock"
)

func TestTryLockExcludesSecondHolder(t *testing.T) {
	l := triggerlock.NewLocker()

	token, ok := l.TryLock(100)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok = l.TryLock(100)
	assert.False(t, ok, "second TryLock on a held trigger must fail")

	_, ok = l.TryLock(200)
	assert.True(t, ok, "a different trigger id must not be blocked")
}

func TestUnlockThenRelock(t *testing.T) {
	l := triggerlock.NewLocker()

	token, _ := l.TryLock(1)
	l.Unlock(1, token)
	assert.False(t, l.Held(1))

	_, ok := l.TryLock(1)
	assert.True(t, ok)
}

func TestUnlockWithWrongTokenIsNoop(t *testing.T) {
	l := triggerlock.NewLocker()

	token, _ := l.TryLock(1)
	l.Unlock(1, triggerlock.Token("not-the-real-token"))
	assert.True(t, l.Held(1), "unlocking with a stale token must not release the lock")

	l.Unlock(1, token)
	assert.False(t, l.Held(1))
}
