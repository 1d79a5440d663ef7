package applier

import (
	"sync"
	"time"
)

// inflight tracks documents that are being processed. A notification for a
// document that is already held is recorded as pending instead of running
// concurrently; the holder runs once more before letting go.
type inflight struct {
	mu      sync.Mutex
	pending map[string]bool
}

func newInflight() *inflight {
	return &inflight{pending: make(map[string]bool)}
}

// acquire holds id. When id is already held it marks it pending and returns false.
func (f *inflight) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.pending[id]; held {
		f.pending[id] = true
		return false
	}
	f.pending[id] = false
	return true
}

// finish is called by the holder when it is done. It returns true, keeping id
// held, if a notification arrived meanwhile; otherwise it releases id.
func (f *inflight) finish(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending[id] {
		f.pending[id] = false
		return true
	}
	delete(f.pending, id)
	return false
}

// release lets go of id unconditionally.
func (f *inflight) release(id string) {
	f.mu.Lock()
	delete(f.pending, id)
	f.mu.Unlock()
}

func (f *inflight) held(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[id]
	return ok
}

const echoTTL = time.Minute

type echo struct {
	modTime time.Time
	added   time.Time
}

// echoes remembers files this process renamed so that the change
// notification caused by the rename itself is not treated as an edit.
type echoes struct {
	mu      sync.Mutex
	entries map[string]echo
	now     func() time.Time
}

func newEchoes() *echoes {
	return &echoes{entries: make(map[string]echo), now: time.Now}
}

func (e *echoes) add(path string, modTime time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	for p, ent := range e.entries {
		if now.Sub(ent.added) > echoTTL {
			delete(e.entries, p)
		}
	}
	e.entries[path] = echo{modTime: modTime, added: now}
}

// consume reports whether path with modTime is the echo of one of our renames.
// A match is removed.
func (e *echoes) consume(path string, modTime time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[path]
	if !ok {
		return false
	}
	delete(e.entries, path)
	return ent.modTime.Equal(modTime) && e.now().Sub(ent.added) <= echoTTL
}
