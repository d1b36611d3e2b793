// Package tabcache holds transient per-tab state for the lifetime of the
// background process.
//
// Entries are created or overwritten around navigation and must be deleted
// exactly once when the owning tab is removed. A missing entry means the tab
// has no transient state; it is never an error.
package tabcache

import (
	"sort"
	"sync"
)

// Entry is the transient state kept for one tab. It is stored and returned
// by value, so fields can be added without exposing partially written entries.
type Entry struct {
	// Loading is true while the tab is navigating.
	Loading bool
}

// Cache maps tab identifiers to entries. It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[int]Entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[int]Entry)}
}

// Get returns the entry for tabID and whether one exists.
func (c *Cache) Get(tabID int) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[tabID]
	return e, ok
}

// Set creates or replaces the entry for tabID.
func (c *Cache) Set(tabID int, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tabID] = entry
}

// Update applies fn to the entry for tabID and stores the result
// atomically with respect to other cache operations. Absent entries are
// left absent; it reports whether an entry was updated.
func (c *Cache) Update(tabID int, fn func(Entry) Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[tabID]
	if !ok {
		return false
	}
	c.entries[tabID] = fn(e)
	return true
}

// Delete removes the entry for tabID. Deleting an absent entry is a no-op.
// It reports whether an entry was removed.
func (c *Cache) Delete(tabID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[tabID]; !ok {
		return false
	}
	delete(c.entries, tabID)
	return true
}

// Len returns the number of tabs with an entry.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// IDs returns the tab identifiers with an entry, in ascending order.
func (c *Cache) IDs() []int {
	c.mu.RLock()
	ids := make([]int, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	sort.Ints(ids)
	return ids
}
