// Package queue implements the bounded priority queue used to collect the
// k best candidates during a scan.
package queue

import "sort"

// Item is one ranked candidate.
// Value-based storage keeps the heap allocation-free on the hot path.
type Item struct {
	ID       uint64
	Distance float32
}

// worse reports whether a ranks strictly worse than b: greater distance, or
// equal distance and greater id. The id tie-break makes rankings fully
// deterministic.
func worse(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

// KBest collects the k best (smallest-distance) items seen during a linear
// scan. It is a max-heap of at most k items ordered by worse, so the root is
// always the current weakest member and eviction is O(log k).
type KBest struct {
	k     int
	items []Item
}

// NewKBest creates a collector for the k best items. k <= 0 collects nothing.
func NewKBest(k int) *KBest {
	if k < 0 {
		k = 0
	}
	capacity := k
	if capacity > 1024 {
		capacity = 1024
	}
	return &KBest{k: k, items: make([]Item, 0, capacity)}
}

// Push offers an item to the collector.
func (q *KBest) Push(id uint64, dist float32) {
	if q.k == 0 {
		return
	}

	it := Item{ID: id, Distance: dist}

	if len(q.items) < q.k {
		q.items = append(q.items, it)
		q.siftUp(len(q.items) - 1)
		return
	}

	// Full: replace the weakest member only if the new item beats it.
	if !worse(it, q.items[0]) {
		q.items[0] = it
		q.siftDown(0)
	}
}

// Len returns the number of collected items.
func (q *KBest) Len() int { return len(q.items) }

// Results drains the collector and returns the items ordered best-first:
// ascending distance, ties by ascending id. The collector must not be
// reused afterwards.
func (q *KBest) Results() []Item {
	out := q.items
	q.items = nil
	sort.Slice(out, func(i, j int) bool {
		return worse(out[j], out[i])
	})
	return out
}

func (q *KBest) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(q.items[i], q.items[p]) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *KBest) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		w := l
		if r := l + 1; r < n && worse(q.items[r], q.items[l]) {
			w = r
		}
		if !worse(q.items[w], q.items[i]) {
			return
		}
		q.items[i], q.items[w] = q.items[w], q.items[i]
		i = w
	}
}
