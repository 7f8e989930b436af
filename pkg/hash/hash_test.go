package hash

import (
	"testing"
	"time"

	"github.com/quillnotes/quill/pkg/note"
	"github.com/quillnotes/quill/pkg/testutil"
)

func TestSum(t *testing.T) {
	if Sum("a", "b") != Sum("a", "b") {
		t.Error("Sum is not deterministic")
	}
	// Parts are length-prefixed: moving a byte between parts changes the sum.
	if Sum("ab", "c") == Sum("a", "bc") {
		t.Error("Sum does not separate parts")
	}
	if Sum("a") == Sum("a", "") {
		t.Error("Sum ignores empty parts")
	}
	if len(Sum("x")) != 64 {
		t.Errorf("Sum is not hex sha256: %q", Sum("x"))
	}
}

func TestNameBody(t *testing.T) {
	n := &note.Note{ID: "n1", Name: "Groceries", Body: []string{"milk", "eggs"}}
	if Name(n) != Sum("Groceries") {
		t.Error("Name digests the wrong text")
	}
	if Body(n) != Sum("milk\neggs") {
		t.Error("Body digests the wrong text")
	}
	// Renaming does not disturb the body hash and vice versa.
	renamed := *n
	renamed.Name = "Shopping"
	if Body(&renamed) != Body(n) {
		t.Error("rename changed body hash")
	}
	if Name(&renamed) == Name(n) {
		t.Error("rename did not change name hash")
	}
}

func TestFieldValue(t *testing.T) {
	n := &note.Note{
		ID:       "n1",
		Name:     "A",
		Body:     []string{"b"},
		Path:     "a.md",
		Modified: testutil.T,
	}
	if v, ok := FieldValue(n, "modified"); !ok || v != CanonTime(testutil.T) {
		t.Errorf("modified field value: %q, %v", v, ok)
	}
	if _, ok := FieldValue(n, "nonsense"); ok {
		t.Error("unknown field reported as known")
	}
}

func TestHasher_Memoization(t *testing.T) {
	store := note.NewMapStore()
	store.Put(&note.Note{ID: "a", Name: "A", Path: "a.md", Modified: testutil.T})
	store.Put(&note.Note{ID: "b", Name: "B", Path: "b.md", Modified: testutil.T})

	h := NewHasher()
	first := h.Global(Modified, store)
	if h.Global(Modified, store) != first {
		t.Error("memoized aggregate changed without a generation bump")
	}

	// Mutate without bumping: the memo still serves the old hash.
	store.Put(&note.Note{ID: "a", Name: "A", Path: "a.md",
		Modified: testutil.T.Add(time.Hour)})
	if h.Global(Modified, store) != first {
		t.Error("aggregate recomputed without NoteSetChanged")
	}

	h.NoteSetChanged()
	if h.Global(Modified, store) == first {
		t.Error("aggregate unchanged after NoteSetChanged")
	}
}

func TestHasher_FacetsAreIndependent(t *testing.T) {
	store := note.NewMapStore()
	store.Put(&note.Note{ID: "a", Name: "A", Path: "a.md",
		Created: testutil.T, Modified: testutil.T, Viewed: testutil.T})

	h := NewHasher()
	paths := h.Global(Paths, store)
	created := h.Global(Created, store)

	// Touching the viewed time leaves paths and created aggregates alone.
	store.Put(&note.Note{ID: "a", Name: "A", Path: "a.md",
		Created: testutil.T, Modified: testutil.T, Viewed: testutil.T.Add(time.Minute)})
	h.NoteSetChanged()
	if h.Global(Paths, store) != paths {
		t.Error("viewed change disturbed the paths aggregate")
	}
	if h.Global(Created, store) != created {
		t.Error("viewed change disturbed the created aggregate")
	}
	if h.Global(Viewed, store) == "" {
		t.Error("viewed aggregate empty")
	}
}

func TestHasher_ExistenceTracksNoteSet(t *testing.T) {
	store := note.NewMapStore()
	store.Put(&note.Note{ID: "a", Name: "A"})
	h := NewHasher()
	before := h.Global(Existence, store)

	store.Put(&note.Note{ID: "b", Name: "B"})
	h.NoteSetChanged()
	after := h.Global(Existence, store)
	if before == after {
		t.Error("existence aggregate did not change when a note was added")
	}

	// Renaming does not affect existence.
	store.Put(&note.Note{ID: "b", Name: "B2"})
	h.NoteSetChanged()
	if h.Global(Existence, store) != after {
		t.Error("rename changed the existence aggregate")
	}
}
