package hash

import (
	"sort"
	"sync"

	"github.com/quillnotes/quill/pkg/note"
)

// Facet identifies a global metadata facet aggregated across the whole note
// set.
type Facet int

const (
	// Existence covers which notes exist at all.
	Existence Facet = iota
	// Paths covers every note's path.
	Paths
	// Modified covers every note's modification time.
	Modified
	// Created covers every note's creation time.
	Created
	// Viewed covers every note's last-viewed time.
	Viewed
)

func (f Facet) String() string {
	switch f {
	case Existence:
		return "existence"
	case Paths:
		return "paths"
	case Modified:
		return "modified"
	case Created:
		return "created"
	case Viewed:
		return "viewed"
	default:
		return "unknown"
	}
}

// Hasher computes aggregate hashes over the whole note set. The aggregates
// are the expensive path, so they are memoized per generation of the note
// set; callers bump the generation with [Hasher.NoteSetChanged] whenever any
// note is added, removed or modified.
type Hasher struct {
	mu   sync.Mutex
	gen  uint64
	memo map[Facet]memoEntry
}

type memoEntry struct {
	gen  uint64
	hash string
}

// NewHasher creates a Hasher.
func NewHasher() *Hasher {
	return &Hasher{memo: make(map[Facet]memoEntry)}
}

// NoteSetChanged invalidates all memoized aggregates.
func (h *Hasher) NoteSetChanged() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
}

// Global returns the aggregate hash of the given facet over all notes in s.
func (h *Hasher) Global(f Facet, s note.Store) string {
	h.mu.Lock()
	if e, ok := h.memo[f]; ok && e.gen == h.gen {
		h.mu.Unlock()
		return e.hash
	}
	gen := h.gen
	h.mu.Unlock()

	// Compute outside the lock; aggregate computation may be slow for large
	// note sets.
	sum := computeGlobal(f, s)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gen == gen {
		h.memo[f] = memoEntry{gen, sum}
	}
	return sum
}

func computeGlobal(f Facet, s note.Store) string {
	notes := s.All()
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	parts := make([]string, 0, 2*len(notes))
	for _, n := range notes {
		parts = append(parts, string(n.ID))
		switch f {
		case Existence:
			// Identity only.
		case Paths:
			parts = append(parts, n.Path)
		case Modified:
			parts = append(parts, CanonTime(n.Modified))
		case Created:
			parts = append(parts, CanonTime(n.Created))
		case Viewed:
			parts = append(parts, CanonTime(n.Viewed))
		}
	}
	return Sum(parts...)
}
