package file

import (
	"github.com/alpacahq/framestore/metrics"
)

const (
	shapeFix     = "fix"
	shapeVar     = "var"
	shapeIndexed = "indexed"
)

// recycler takes a closed handle back by slot. Handles hold a recycler and a
// slot instead of a reference to the free list itself.
type recycler interface {
	recycle(slot int)
}

type pooled interface {
	bindSlot(r recycler, slot int)
}

// arena owns every instance of one column shape ever built by a pool. Free
// instances are tracked as a stack of slot indices, so the most recently
// released instance is handed out first.
type arena[T pooled] struct {
	owner  *ContinuousFileColumnPool
	shape  string
	items  []T
	free   []int
	isFree []bool
}

func newArena[T pooled](owner *ContinuousFileColumnPool, shape string) *arena[T] {
	return &arena[T]{owner: owner, shape: shape}
}

func (a *arena[T]) get(construct func() T) T {
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		a.isFree[slot] = false
		metrics.PoolAcquisitionsTotal.WithLabelValues(a.shape, metrics.ResultHit).Inc()
		return a.items[slot]
	}
	metrics.PoolAcquisitionsTotal.WithLabelValues(a.shape, metrics.ResultMiss).Inc()
	item := construct()
	if a.owner.closed {
		// never pooled, Close just releases the descriptors
		item.bindSlot(nil, -1)
		return item
	}
	slot := len(a.items)
	a.items = append(a.items, item)
	a.isFree = append(a.isFree, false)
	item.bindSlot(a, slot)
	return item
}

func (a *arena[T]) recycle(slot int) {
	if a.owner.closed || slot < 0 || slot >= len(a.isFree) || a.isFree[slot] {
		return
	}
	a.isFree[slot] = true
	a.free = append(a.free, slot)
}

// drop forgets every instance; the pool is closed so nothing comes back.
func (a *arena[T]) drop() {
	a.items = nil
	a.free = nil
	a.isFree = nil
}

func (a *arena[T]) freeCount() int {
	return len(a.free)
}

func (a *arena[T]) size() int {
	return len(a.items)
}
