package scheduler

import "sync"

// InFlight is the process-local fence that keeps a cron tick and a
// manual publish-now request from processing the same item at once. It
// is owned by whoever wires the process (not a package singleton) and
// shared by reference between the dispatcher and the manual trigger
// paths. It gives no cross-process guarantee; the system runs a single
// scheduler instance.
type InFlight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{ids: make(map[string]struct{})}
}

// TryAcquire marks id as in-flight. It returns false without side
// effects when the id is already held.
func (f *InFlight) TryAcquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.ids[id]; held {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

// Release removes id unconditionally. Callers must release in a defer
// so an error path cannot leak a permanently-held id.
func (f *InFlight) Release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}
