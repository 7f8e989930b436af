// Package cache stores directive results keyed by directive content, with an
// in-memory LRU tier in front of an optional durable tier. Entries carry the
// dependency snapshot taken when they were computed, so validity is decided
// by comparing hashes instead of re-evaluating.
package cache

import (
	"github.com/quillnotes/quill/pkg/hash"
	"github.com/quillnotes/quill/pkg/note"
)

// Key returns the cache key of a directive: a digest of its raw source text,
// whitespace included. Two notes containing the byte-identical directive
// share the key.
func Key(source string) string {
	return hash.Sum(source)
}

// Slot addresses one cache entry. Directives that read the note they live in
// get a per-note slot; all other directives share one slot per key, so the
// same search pasted into ten notes is computed once.
type Slot struct {
	Key    string
	NoteID note.ID
}

// SlotFor returns the slot for a directive with the given key, in the given
// note, based on whether the directive is self-referential.
func SlotFor(key string, id note.ID, selfRef bool) Slot {
	if selfRef {
		return Slot{Key: key, NoteID: id}
	}
	return Slot{Key: key}
}
