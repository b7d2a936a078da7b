// Package triggerlock provides the in-process advisory lock the task
// manager takes on a triggerid before closing a problem (spec.md §4.6
// tm_try_task_close_problem: "acquire the trigger lock ... skip this
// task for now" if already held), so two task-manager workers sharing a
// Locker never close the same trigger's problem at once. Only the task
// manager takes this lock; the escalations driver does not.
package triggerlock

import (
	"sync"

	"github.com/google/uuid"
)

// Token identifies one successful TryLock call; only the holder of the
// matching Token can release the lock. Using a random token rather than
// a bare bool catches a goroutine accidentally unlocking a lock it
// never acquired.
type Token string

// Locker is a keyed try-lock over triggerids.
type Locker struct {
	mu      sync.Mutex
	holders map[uint64]Token
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{holders: make(map[uint64]Token)}
}

// TryLock attempts to acquire the lock for triggerID, returning the
// token to present to Unlock and true on success, or false if another
// holder already has it.
func (l *Locker) TryLock(triggerID uint64) (Token, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.holders[triggerID]; held {
		return "", false
	}
	token := Token(uuid.NewString())
	l.holders[triggerID] = token
	return token, true
}

// Unlock releases triggerID if token matches the current holder. A
// mismatched or stale token is a no-op: the caller already lost the
// lock (or never had it) and has nothing left to release.
func (l *Locker) Unlock(triggerID uint64, token Token) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, held := l.holders[triggerID]; held && current == token {
		delete(l.holders, triggerID)
	}
}

// Held reports whether triggerID is currently locked, for tests and
// diagnostics.
func (l *Locker) Held(triggerID uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.holders[triggerID]
	return held
}
