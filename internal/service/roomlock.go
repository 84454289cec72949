package service

import (
	"sync"

	"github.com/google/uuid"
)

// roomLocks serializes check-then-act sections per room id. Concurrent joins
// racing a capacity check, or a start racing another start, take the same
// lock; operations on different rooms proceed in parallel.
type roomLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the room's mutex and returns the unlock func.
func (l *roomLocks) Lock(roomID uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[roomID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Forget drops the entry once the room is gone.
func (l *roomLocks) Forget(roomID uuid.UUID) {
	l.mu.Lock()
	delete(l.locks, roomID)
	l.mu.Unlock()
}
