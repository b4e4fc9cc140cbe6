// Package chatindex maps the stable small integer chat ids exposed to
// clients onto opaque provider peers.
package chatindex

import (
	"sync"

	"github.com/wgram/wgram/internal/provider"
)

type entry struct {
	peer provider.Peer
	gen  uint64
}

// Table is rebuilt by overwrite on every dialog fetch. Entries are
// never pruned: ids from a larger earlier fetch keep resolving after a
// smaller later one. Each rebuild bumps a generation and tags its
// entries so stale resolutions are at least observable.
type Table struct {
	mu      sync.RWMutex
	entries map[int64]entry
	gen     uint64
}

func New() *Table {
	return &Table{entries: make(map[int64]entry)}
}

// BeginRebuild starts a new fetch generation and returns it. Entries
// put afterwards belong to the new generation; old entries remain.
func (t *Table) BeginRebuild() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	return t.gen
}

// Put records or overwrites the peer for id under the current generation.
func (t *Table) Put(id int64, peer provider.Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = entry{peer: peer, gen: t.gen}
}

// Resolve returns the peer for id along with the generation it was
// recorded under. A generation older than Generation() means the entry
// survives from a superseded fetch.
func (t *Table) Resolve(id int64) (provider.Peer, uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, 0, false
	}
	return e.peer, e.gen, true
}

// Generation returns the current fetch generation.
func (t *Table) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gen
}

// Len returns the number of resolvable ids, stale entries included.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
