package taskmanager_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventaction/core/db"
	"github.com/eventaction/core/taskmanager"
	"github.com/eventaction/core/triggerlock"
)

func openMemory(t *testing.T) db.Database {
	t.Helper()
	d, err := db.Open(db.Config{ConnString: "sqlite://file::memory:?cache=shared"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func createTaskSchema(t *testing.T, ctx context.Context, accessor db.DatabaseAccessor) {
	t.Helper()
	for _, stmt := range []string{
		"CREATE TABLE task (taskid INTEGER PRIMARY KEY, type INTEGER)",
		"CREATE TABLE task_close_problem (taskid INTEGER, acknowledgeid INTEGER)",
		"CREATE TABLE acknowledges (acknowledgeid INTEGER PRIMARY KEY, eventid INTEGER, userid INTEGER)",
		"CREATE TABLE events (eventid INTEGER PRIMARY KEY, objectid INTEGER)",
		"CREATE TABLE problem (eventid INTEGER, r_eventid INTEGER)",
	} {
		_, err := accessor.Exec(ctx, stmt)
		require.NoError(t, err)
	}
}

type recordingCloser struct {
	mu    sync.Mutex
	calls [][3]uint64
}

func (c *recordingCloser) CloseProblem(ctx context.Context, triggerID, eventID, userID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, [3]uint64{triggerID, eventID, userID})
	return nil
}

func (c *recordingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestProcessTasksClosesOpenProblemAndDeletesTask(t *testing.T) {
	ctx := context.Background()
	database := openMemory(t)
	session := database.NewSession(ctx)
	createTaskSchema(t, ctx, session)

	mustExec := func(q string, args ...interface{}) {
		_, err := session.Exec(ctx, q, args...)
		require.NoError(t, err)
	}
	mustExec("INSERT INTO task (taskid, type) VALUES (1, 0)")
	mustExec("INSERT INTO task_close_problem (taskid, acknowledgeid) VALUES (1, 10)")
	mustExec("INSERT INTO acknowledges (acknowledgeid, eventid, userid) VALUES (10, 200, 7)")
	mustExec("INSERT INTO events (eventid, objectid) VALUES (200, 500)")
	mustExec("INSERT INTO problem (eventid, r_eventid) VALUES (200, NULL)")

	closer := &recordingCloser{}
	m := taskmanager.NewManager(database, triggerlock.NewLocker(), closer, nil)

	n, err := m.ProcessTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, uint64(1), m.Processed())
	assert.Equal(t, 1, closer.count())
	assert.Equal(t, [3]uint64{500, 200, 7}, closer.calls[0])

	var remaining int
	err = session.SelectOneValue(ctx, &remaining, "SELECT COUNT(*) FROM task")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

// TestProcessTasksSkipsAlreadyClosedProblem is the idempotence law from
// spec.md §8: a second pass over a task whose problem row is already
// gone deletes the task without invoking close_problem again.
func TestProcessTasksSkipsAlreadyClosedProblem(t *testing.T) {
	ctx := context.Background()
	database := openMemory(t)
	session := database.NewSession(ctx)
	createTaskSchema(t, ctx, session)

	mustExec := func(q string, args ...interface{}) {
		_, err := session.Exec(ctx, q, args...)
		require.NoError(t, err)
	}
	mustExec("INSERT INTO task (taskid, type) VALUES (1, 0)")
	mustExec("INSERT INTO task_close_problem (taskid, acknowledgeid) VALUES (1, 10)")
	mustExec("INSERT INTO acknowledges (acknowledgeid, eventid, userid) VALUES (10, 200, 7)")
	mustExec("INSERT INTO events (eventid, objectid) VALUES (200, 500)")
	// no problem row: it was already closed by a prior pass.

	closer := &recordingCloser{}
	m := taskmanager.NewManager(database, triggerlock.NewLocker(), closer, nil)

	n, err := m.ProcessTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, 0, closer.count(), "problem already closed: close_problem must not run again")
}

func TestProcessTasksDeletesStaleTaskMissingAcknowledge(t *testing.T) {
	ctx := context.Background()
	database := openMemory(t)
	session := database.NewSession(ctx)
	createTaskSchema(t, ctx, session)

	_, err := session.Exec(ctx, "INSERT INTO task (taskid, type) VALUES (1, 0)")
	require.NoError(t, err)
	// No task_close_problem row at all: the join returns no row.

	closer := &recordingCloser{}
	m := taskmanager.NewManager(database, triggerlock.NewLocker(), closer, nil)

	n, err := m.ProcessTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, 0, closer.count())

	var remaining int
	err = session.SelectOneValue(ctx, &remaining, "SELECT COUNT(*) FROM task")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

// TestProcessTasksSkipsTaskWhenTriggerLockHeld is spec.md §8 scenario 6:
// a trigger lock already held by another worker leaves the task
// untouched for the next tick.
func TestProcessTasksSkipsTaskWhenTriggerLockHeld(t *testing.T) {
	ctx := context.Background()
	database := openMemory(t)
	session := database.NewSession(ctx)
	createTaskSchema(t, ctx, session)

	mustExec := func(q string, args ...interface{}) {
		_, err := session.Exec(ctx, q, args...)
		require.NoError(t, err)
	}
	mustExec("INSERT INTO task (taskid, type) VALUES (1, 0)")
	mustExec("INSERT INTO task_close_problem (taskid, acknowledgeid) VALUES (1, 10)")
	mustExec("INSERT INTO acknowledges (acknowledgeid, eventid, userid) VALUES (10, 200, 7)")
	mustExec("INSERT INTO events (eventid, objectid) VALUES (200, 500)")
	mustExec("INSERT INTO problem (eventid, r_eventid) VALUES (200, NULL)")

	locks := triggerlock.NewLocker()
	locks.TryLock(500) // another worker already owns trigger 500

	closer := &recordingCloser{}
	m := taskmanager.NewManager(database, locks, closer, nil)

	n, err := m.ProcessTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n, "the task is left for the next tick, not counted as processed")
	assert.Equal(t, 0, closer.count())

	var remaining int
	err = session.SelectOneValue(ctx, &remaining, "SELECT COUNT(*) FROM task")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining, "task row must survive when the lock could not be acquired")
}
