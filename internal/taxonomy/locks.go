package taxonomy

import "sync"

// versionLocks serializes mutations per taxonomy version. Mutating
// operations hold the version's lock across their whole transaction so the
// cycle check and any cascading path rewrite observe a consistent snapshot.
// Reads never take these locks: they operate on committed rows only.
//
// Rollback spans every version above its target, so it takes the registry's
// write lock for global exclusivity while per-version mutations share the
// read side.
type versionLocks struct {
	global sync.RWMutex
	mu     sync.Mutex
	locks  map[int]*sync.Mutex
}

func newVersionLocks() *versionLocks {
	return &versionLocks{
		locks: make(map[int]*sync.Mutex),
	}
}

// acquire locks the given version and returns its release function.
func (v *versionLocks) acquire(version int) func() {
	v.global.RLock()

	v.mu.Lock()
	lock, ok := v.locks[version]
	if !ok {
		lock = &sync.Mutex{}
		v.locks[version] = lock
	}
	v.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		v.global.RUnlock()
	}
}

// acquireAll blocks all version mutations, used by rollback.
func (v *versionLocks) acquireAll() func() {
	v.global.Lock()
	return v.global.Unlock
}
