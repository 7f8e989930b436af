package cache

import (
	"github.com/quillnotes/quill/pkg/deps"
	"github.com/quillnotes/quill/pkg/hash"
	"github.com/quillnotes/quill/pkg/note"
)

// IsStale reports whether a cached result may no longer reflect the current
// note set. Checks run cheapest first: the global aggregates are memoized
// per note-set generation, per-note hashes touch only the notes in the
// dependency set, and hierarchy checks re-resolve parent chains last.
func IsStale(r *Result, s note.Store, h *hash.Hasher) bool {
	if r.Failed && !r.ErrKind.Deterministic() {
		// Transient failures are always retried.
		return true
	}
	for f, want := range r.GlobalHashes {
		if h.Global(f, s) != want {
			return true
		}
	}
	for id, want := range r.NoteHashes {
		n, ok := s.Get(id)
		if !ok {
			return true
		}
		if r.Deps.Names[id] && hash.Name(n) != want.Name {
			return true
		}
		if r.Deps.Bodies[id] && hash.Body(n) != want.Body {
			return true
		}
	}
	for _, hd := range r.Deps.Hierarchy {
		if hierarchyStale(hd, s) {
			return true
		}
	}
	return false
}

// hierarchyStale re-resolves a recorded navigation and compares the outcome
// with what was captured. A changed resolution, a changed field value on the
// resolved note, or a vanished source all invalidate.
func hierarchyStale(hd deps.Hierarchy, s note.Store) bool {
	src, ok := s.Get(hd.Source)
	if !ok {
		return true
	}
	var resolved *note.Note
	switch hd.Nav {
	case deps.NavParent:
		resolved = note.ParentOf(s, src)
	case deps.NavAncestor:
		resolved = note.AncestorOf(s, src, hd.Steps)
	case deps.NavRoot:
		resolved = note.RootOf(s, src)
	}
	if resolved == nil {
		return hd.Resolved != ""
	}
	if resolved.ID != hd.Resolved {
		return true
	}
	if hd.Field == "" {
		return false
	}
	v, ok := hash.FieldValue(resolved, hd.Field)
	if !ok {
		return true
	}
	return hash.Field(v) != hd.FieldHash
}
