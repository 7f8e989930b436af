// Package deps tracks what a directive execution observed: which notes'
// names and bodies were read, which global metadata facets were consulted,
// and which hierarchy navigations were taken. Cached results carry their
// dependency set so that staleness can be checked with per-field granularity.
package deps

import (
	"sort"

	"github.com/quillnotes/quill/pkg/note"
)

// NavKind is a kind of hierarchy navigation.
type NavKind int

const (
	// NavParent is a parent lookup.
	NavParent NavKind = iota
	// NavAncestor is an N-th ancestor lookup; Steps holds N.
	NavAncestor
	// NavRoot resolves the root of the parent chain.
	NavRoot
)

func (k NavKind) String() string {
	switch k {
	case NavParent:
		return "parent"
	case NavAncestor:
		return "ancestor"
	case NavRoot:
		return "root"
	default:
		return "unknown"
	}
}

// Hierarchy records one hierarchy navigation taken during evaluation: the
// navigation from Source, the note it resolved to at capture time (empty if
// it resolved to nothing), and optionally a field read off the resolved note
// together with the hash of that field's value at capture time.
type Hierarchy struct {
	Nav       NavKind
	Steps     int
	Source    note.ID
	Resolved  note.ID
	Field     string
	FieldHash string
}

// Set is the dependency set of one directive execution. Sets merge by set
// union and boolean or; the merge is commutative, associative and idempotent,
// which transitive propagation relies on.
type Set struct {
	// Names and Bodies are the notes whose name line and body were read.
	Names  map[note.ID]bool
	Bodies map[note.ID]bool

	// Global metadata facets the execution observed.
	Existence bool
	Paths     bool
	Modified  bool
	Created   bool
	Viewed    bool

	Hierarchy []Hierarchy
}

// New returns an empty Set.
func New() *Set {
	return &Set{Names: make(map[note.ID]bool), Bodies: make(map[note.ID]bool)}
}

// AddName records that the name line of the given note was read.
func (s *Set) AddName(id note.ID) {
	s.Names[id] = true
}

// AddBody records that the body of the given note was read.
func (s *Set) AddBody(id note.ID) {
	s.Bodies[id] = true
}

// AddHierarchy records a hierarchy dependency, deduplicating identical
// entries so that merging stays idempotent.
func (s *Set) AddHierarchy(h Hierarchy) {
	for _, have := range s.Hierarchy {
		if have == h {
			return
		}
	}
	s.Hierarchy = append(s.Hierarchy, h)
}

// Merge folds other into s.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for id := range other.Names {
		s.Names[id] = true
	}
	for id := range other.Bodies {
		s.Bodies[id] = true
	}
	s.Existence = s.Existence || other.Existence
	s.Paths = s.Paths || other.Paths
	s.Modified = s.Modified || other.Modified
	s.Created = s.Created || other.Created
	s.Viewed = s.Viewed || other.Viewed
	for _, h := range other.Hierarchy {
		s.AddHierarchy(h)
	}
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	c := New()
	c.Merge(s)
	return c
}

// Equal reports whether two sets record the same dependencies. Hierarchy
// dependency order is not significant.
func (s *Set) Equal(other *Set) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Names) != len(other.Names) || len(s.Bodies) != len(other.Bodies) {
		return false
	}
	for id := range s.Names {
		if !other.Names[id] {
			return false
		}
	}
	for id := range s.Bodies {
		if !other.Bodies[id] {
			return false
		}
	}
	if s.Existence != other.Existence || s.Paths != other.Paths ||
		s.Modified != other.Modified || s.Created != other.Created ||
		s.Viewed != other.Viewed {
		return false
	}
	if len(s.Hierarchy) != len(other.Hierarchy) {
		return false
	}
	for _, h := range s.Hierarchy {
		found := false
		for _, oh := range other.Hierarchy {
			if h == oh {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NoteIDs returns the IDs of all notes with a content dependency, sorted.
func (s *Set) NoteIDs() []note.ID {
	seen := make(map[note.ID]bool, len(s.Names)+len(s.Bodies))
	for id := range s.Names {
		seen[id] = true
	}
	for id := range s.Bodies {
		seen[id] = true
	}
	ids := make([]note.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
