package cache

import "sync"

// lru is a fixed-capacity least-recently-used map from Slot to *Result. One
// mutex guards both the map and the recency list; operations are short, so
// contention is not a concern.
type lru struct {
	mu       sync.Mutex
	capacity int
	entries  map[Slot]*lruEntry
	// head is the most recently used entry, tail the least.
	head, tail *lruEntry
}

type lruEntry struct {
	slot       Slot
	result     *Result
	prev, next *lruEntry
}

func newLRU(capacity int) *lru {
	if capacity < 1 {
		capacity = 1
	}
	return &lru{capacity: capacity, entries: make(map[Slot]*lruEntry)}
}

// Get returns the cached result for the slot and marks it most recently
// used.
func (l *lru) Get(s Slot) (*Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[s]
	if !ok {
		return nil, false
	}
	l.moveToFront(e)
	return e.result, true
}

// Put inserts or replaces the result for the slot, evicting the least
// recently used entry when over capacity. Serializable results are already
// write-through persisted by the manager, so an evicted entry needs no
// demotion.
func (l *lru) Put(s Slot, r *Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[s]; ok {
		e.result = r
		l.moveToFront(e)
		return
	}
	e := &lruEntry{slot: s, result: r}
	l.entries[s] = e
	l.pushFront(e)
	if len(l.entries) <= l.capacity {
		return
	}
	victim := l.tail
	l.unlink(victim)
	delete(l.entries, victim.slot)
}

// Delete removes the entry for the slot, if present.
func (l *lru) Delete(s Slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[s]; ok {
		l.unlink(e)
		delete(l.entries, s)
	}
}

// DeleteFunc removes every entry whose slot matches the predicate.
func (l *lru) DeleteFunc(match func(Slot) bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for s, e := range l.entries {
		if match(s) {
			l.unlink(e)
			delete(l.entries, s)
		}
	}
}

// Clear removes every entry.
func (l *lru) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[Slot]*lruEntry)
	l.head, l.tail = nil, nil
}

// Len returns the number of cached entries.
func (l *lru) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *lru) pushFront(e *lruEntry) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
}

func (l *lru) unlink(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (l *lru) moveToFront(e *lruEntry) {
	if l.head == e {
		return
	}
	l.unlink(e)
	l.pushFront(e)
}
