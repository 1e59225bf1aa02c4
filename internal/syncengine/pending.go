package syncengine

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// PendingSet holds absolute local paths reported by the watcher that have not
// been confirmed on the remote yet. It is safe for concurrent use; the watcher
// adds and the sync worker prunes.
type PendingSet struct {
	set mapset.Set[string]
}

// NewPendingSet creates an empty PendingSet.
func NewPendingSet() *PendingSet {
	return &PendingSet{set: mapset.NewSet[string]()}
}

// Add records a path. It reports whether the path was new.
func (p *PendingSet) Add(path string) bool {
	return p.set.Add(path)
}

// Contains reports whether path is pending.
func (p *PendingSet) Contains(path string) bool {
	return p.set.Contains(path)
}

// Remove drops paths.
func (p *PendingSet) Remove(paths ...string) {
	p.set.RemoveAll(paths...)
}

// Len returns the number of pending paths.
func (p *PendingSet) Len() int {
	return p.set.Cardinality()
}

// Snapshot returns the pending paths, sorted.
func (p *PendingSet) Snapshot() []string {
	paths := p.set.ToSlice()
	sort.Strings(paths)

	return paths
}
