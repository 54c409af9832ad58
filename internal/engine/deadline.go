package engine

import (
	"sync"
	"time"

	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/google/btree"
)

// deadlineEntry is one listing in the deadline index.
type deadlineEntry struct {
	EndTime time.Time
	Key     domain.ListingKey
}

// deadlineLess orders entries by end time ascending, then key. Min()
// returns the listing that closes first.
func deadlineLess(a, b deadlineEntry) bool {
	if !a.EndTime.Equal(b.EndTime) {
		return a.EndTime.Before(b.EndTime)
	}
	return a.Key.Less(b.Key)
}

// DeadlineIndex tracks active listings ordered by end time using a B-tree
// with a secondary index for O(log n) removal by key.
type DeadlineIndex struct {
	mu    sync.Mutex
	tree  *btree.BTreeG[deadlineEntry]
	index map[domain.ListingKey]deadlineEntry
}

// NewDeadlineIndex creates an empty index.
func NewDeadlineIndex() *DeadlineIndex {
	const degree = 32
	return &DeadlineIndex{
		tree:  btree.NewG[deadlineEntry](degree, deadlineLess),
		index: make(map[domain.ListingKey]deadlineEntry),
	}
}

// Set inserts key or moves it to a new end time.
func (d *DeadlineIndex) Set(key domain.ListingKey, end time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.index[key]; ok {
		d.tree.Delete(old)
	}
	e := deadlineEntry{EndTime: end, Key: key}
	d.tree.ReplaceOrInsert(e)
	d.index[key] = e
}

// Remove drops key from the index. It is a no-op for unknown keys.
func (d *DeadlineIndex) Remove(key domain.ListingKey) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.index[key]
	if !ok {
		return
	}
	delete(d.index, key)
	d.tree.Delete(e)
}

// Due returns, in closing order, every key whose end time is at or before now.
func (d *DeadlineIndex) Due(now time.Time) []domain.ListingKey {
	d.mu.Lock()
	defer d.mu.Unlock()

	var keys []domain.ListingKey
	d.tree.Ascend(func(e deadlineEntry) bool {
		if e.EndTime.After(now) {
			return false
		}
		keys = append(keys, e.Key)
		return true
	})
	return keys
}

// Next returns the earliest deadline.
func (d *DeadlineIndex) Next() (domain.ListingKey, time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.tree.Min()
	return e.Key, e.EndTime, ok
}

// Len returns the number of tracked listings.
func (d *DeadlineIndex) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tree.Len()
}
