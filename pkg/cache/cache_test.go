package cache

import (
	"testing"
	"time"

	"github.com/quillnotes/quill/pkg/deps"
	"github.com/quillnotes/quill/pkg/eval"
	"github.com/quillnotes/quill/pkg/eval/errs"
	"github.com/quillnotes/quill/pkg/hash"
	"github.com/quillnotes/quill/pkg/note"
	"github.com/quillnotes/quill/pkg/testutil"
)

func testStore() *note.MapStore {
	store := note.NewMapStore()
	store.Put(&note.Note{ID: "a", Name: "A", Body: []string{"body a"},
		Path: "a.md", Modified: testutil.T})
	store.Put(&note.Note{ID: "b", Name: "B", Path: "b.md",
		Parent: "a", Modified: testutil.T})
	return store
}

// result builds a successful Result depending on note "a" by name and body.
func resultOnA(store note.Store, h *hash.Hasher) *Result {
	d := deps.New()
	d.AddName("a")
	d.AddBody("a")
	r := &Result{Value: eval.Str("v"), Rendered: "v", Deps: d}
	r.Snapshot(store, h)
	return r
}

func TestKeySlot(t *testing.T) {
	if Key("a") == Key("b") {
		t.Error("different sources share a key")
	}
	if Key(" a") == Key("a") {
		t.Error("whitespace does not change the key")
	}
	shared := SlotFor(Key("x"), "n1", false)
	if shared.NoteID != "" {
		t.Error("non-self-referential slot is per note")
	}
	perNote := SlotFor(Key("x"), "n1", true)
	if perNote.NoteID != "n1" {
		t.Error("self-referential slot is not per note")
	}
}

func TestIsStale(t *testing.T) {
	store := testStore()
	h := hash.NewHasher()
	r := resultOnA(store, h)
	if IsStale(r, store, h) {
		t.Fatal("fresh result reported stale")
	}

	// An unrelated note changing does not invalidate.
	store.Put(&note.Note{ID: "c", Name: "C", Path: "c.md"})
	h.NoteSetChanged()
	if IsStale(r, store, h) {
		t.Error("unrelated note change invalidated")
	}

	// Changing a's body invalidates.
	store.Put(&note.Note{ID: "a", Name: "A", Body: []string{"changed"},
		Path: "a.md", Modified: testutil.T})
	h.NoteSetChanged()
	if !IsStale(r, store, h) {
		t.Error("body change not detected")
	}
}

func TestIsStale_PerFieldGranularity(t *testing.T) {
	store := testStore()
	h := hash.NewHasher()

	// Depend only on a's name.
	d := deps.New()
	d.AddName("a")
	r := &Result{Rendered: "A", Deps: d}
	r.Snapshot(store, h)

	// A body edit leaves the name hash alone.
	store.Put(&note.Note{ID: "a", Name: "A", Body: []string{"other"},
		Path: "a.md", Modified: testutil.T})
	h.NoteSetChanged()
	if IsStale(r, store, h) {
		t.Error("body change invalidated a name-only dependency")
	}

	store.Put(&note.Note{ID: "a", Name: "A2", Body: []string{"other"},
		Path: "a.md", Modified: testutil.T})
	h.NoteSetChanged()
	if !IsStale(r, store, h) {
		t.Error("name change not detected")
	}
}

func TestIsStale_MissingNote(t *testing.T) {
	store := testStore()
	h := hash.NewHasher()
	r := resultOnA(store, h)
	store.Delete("a")
	h.NoteSetChanged()
	if !IsStale(r, store, h) {
		t.Error("deleted dependency not detected")
	}
}

func TestIsStale_GlobalFacets(t *testing.T) {
	store := testStore()
	h := hash.NewHasher()
	d := deps.New()
	d.Existence = true
	r := &Result{Rendered: "2", Deps: d}
	r.Snapshot(store, h)

	if IsStale(r, store, h) {
		t.Fatal("fresh result reported stale")
	}
	// Any new note changes the existence aggregate.
	store.Put(&note.Note{ID: "c", Name: "C"})
	h.NoteSetChanged()
	if !IsStale(r, store, h) {
		t.Error("existence change not detected")
	}
}

func TestIsStale_Hierarchy(t *testing.T) {
	store := testStore()
	h := hash.NewHasher()
	d := deps.New()
	d.AddHierarchy(deps.Hierarchy{Nav: deps.NavParent, Source: "b", Resolved: "a"})
	r := &Result{Rendered: "A", Deps: d}
	r.Snapshot(store, h)

	if IsStale(r, store, h) {
		t.Fatal("fresh result reported stale")
	}
	// Reparenting b changes the resolution.
	store.Put(&note.Note{ID: "b", Name: "B", Path: "b.md",
		Parent: "", Modified: testutil.T})
	h.NoteSetChanged()
	if !IsStale(r, store, h) {
		t.Error("reparenting not detected")
	}
}

func TestIsStale_HierarchyFieldHash(t *testing.T) {
	store := testStore()
	h := hash.NewHasher()
	a, _ := store.Get("a")
	d := deps.New()
	d.AddHierarchy(deps.Hierarchy{
		Nav: deps.NavParent, Source: "b", Resolved: "a",
		Field: "name", FieldHash: hash.Field(a.Name),
	})
	r := &Result{Rendered: "A", Deps: d}
	r.Snapshot(store, h)

	// Same resolution, but the field value changed.
	store.Put(&note.Note{ID: "a", Name: "Renamed", Body: []string{"body a"},
		Path: "a.md", Modified: testutil.T})
	h.NoteSetChanged()
	if !IsStale(r, store, h) {
		t.Error("field change on resolved note not detected")
	}
}

func TestIsStale_NonDeterministicError(t *testing.T) {
	store := testStore()
	h := hash.NewHasher()
	r := &Result{Failed: true, ErrKind: errs.Timeout, ErrMsg: "gave up",
		Deps: deps.New()}
	r.Snapshot(store, h)
	if !IsStale(r, store, h) {
		t.Error("transient failure served from cache")
	}

	det := &Result{Failed: true, ErrKind: errs.DivideByZero, ErrMsg: "x",
		Deps: deps.New()}
	det.Snapshot(store, h)
	if IsStale(det, store, h) {
		t.Error("deterministic failure reported stale")
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	store := testStore()
	h := hash.NewHasher()
	d := deps.New()
	d.AddName("a")
	d.Existence = true
	d.AddHierarchy(deps.Hierarchy{Nav: deps.NavParent, Source: "b", Resolved: "a"})
	r := &Result{
		Value:    eval.List{eval.Num(1), eval.Str("x"), eval.Bool(true), eval.Undefined{}},
		Rendered: "[1, x, true, ]",
		Deps:     d,
	}
	r.Snapshot(store, h)

	data := testutil.Must1(encodeResult(r))
	back := testutil.Must1(decodeResult(data))
	if back.Rendered != r.Rendered {
		t.Errorf("rendered: %q, want %q", back.Rendered, r.Rendered)
	}
	if eval.Repr(back.Value) != eval.Repr(r.Value) {
		t.Errorf("value: %v, want %v", back.Value, r.Value)
	}
	if !back.Deps.Equal(r.Deps) {
		t.Errorf("deps: %+v, want %+v", back.Deps, r.Deps)
	}
	if back.NoteHashes["a"] != r.NoteHashes["a"] {
		t.Error("note hashes lost")
	}
	if len(back.GlobalHashes) != len(r.GlobalHashes) {
		t.Error("global hashes lost")
	}
}

func TestSerializable(t *testing.T) {
	if !Serializable(&Result{Value: eval.Str("x"), Deps: deps.New()}) {
		t.Error("string value should serialize")
	}
	if Serializable(&Result{Value: eval.LambdaVal{}, Deps: deps.New()}) {
		t.Error("lambda value should not serialize")
	}
	if !Serializable(&Result{Failed: true, ErrKind: errs.BadValue, Deps: deps.New()}) {
		t.Error("failed result should serialize")
	}
}

func TestManager_TwoTiers(t *testing.T) {
	store := testStore()
	path := testutil.TempDBFile(t)

	m := testutil.Must1(Open(Options{Capacity: 4, Path: path}))
	slot := SlotFor(Key("src"), "", false)
	m.Put(slot, resultOnA(store, m.Hasher()))
	testutil.Must(m.Close())

	// A fresh manager over the same file restores the entry.
	m = testutil.Must1(Open(Options{Capacity: 4, Path: path}))
	defer m.Close()
	r, ok := m.GetIfValid(slot, store)
	if !ok || r.Rendered != "v" {
		t.Fatalf("restored result: %+v, %v", r, ok)
	}
	// The restored value round-tripped through JSON.
	if eval.Repr(r.Value) != "v" {
		t.Errorf("restored value: %v", r.Value)
	}

	// Staleness still applies to restored entries.
	store.Put(&note.Note{ID: "a", Name: "A", Body: []string{"edited"},
		Path: "a.md", Modified: testutil.T.Add(time.Minute)})
	m.Hasher().NoteSetChanged()
	if _, ok := m.GetIfValid(slot, store); ok {
		t.Error("stale restored entry served")
	}
	// GetAny still serves it.
	if _, ok := m.GetAny(slot); !ok {
		t.Error("GetAny refused a stale entry")
	}
}

func TestManager_ClearAll(t *testing.T) {
	store := testStore()
	path := testutil.TempDBFile(t)

	m := testutil.Must1(Open(Options{Capacity: 4, Path: path}))
	m.Put(SlotFor(Key("one"), "", false), resultOnA(store, m.Hasher()))
	m.Put(SlotFor(Key("two"), "a", true), resultOnA(store, m.Hasher()))
	m.ClearAll()
	if m.Len() != 0 {
		t.Errorf("memory tier holds %d entries after clear", m.Len())
	}
	if _, ok := m.GetAny(SlotFor(Key("one"), "", false)); ok {
		t.Error("cleared entry still served")
	}
	testutil.Must(m.Close())

	// The durable tier is wiped too: a fresh manager restores nothing.
	m = testutil.Must1(Open(Options{Capacity: 4, Path: path}))
	defer m.Close()
	if _, ok := m.GetAny(SlotFor(Key("one"), "", false)); ok {
		t.Error("cleared entry survived reopen")
	}
	if _, ok := m.GetAny(SlotFor(Key("two"), "a", true)); ok {
		t.Error("cleared per-note entry survived reopen")
	}
}

func TestManager_MemoryOnly(t *testing.T) {
	store := testStore()
	m := testutil.Must1(Open(Options{Capacity: 2}))
	defer m.Close()
	slot := SlotFor(Key("src"), "", false)
	m.Put(slot, resultOnA(store, m.Hasher()))
	if _, ok := m.GetIfValid(slot, store); !ok {
		t.Error("memory tier miss")
	}
}

func TestManager_EvictionFallsBackToDurable(t *testing.T) {
	store := testStore()
	m := testutil.Must1(Open(Options{Capacity: 1, Path: testutil.TempDBFile(t)}))
	defer m.Close()

	s1 := SlotFor(Key("one"), "", false)
	s2 := SlotFor(Key("two"), "", false)
	m.Put(s1, resultOnA(store, m.Hasher()))
	m.Put(s2, resultOnA(store, m.Hasher())) // evicts s1 from memory

	if r, ok := m.GetIfValid(s1, store); !ok || r.Rendered != "v" {
		t.Error("evicted entry not served from the durable tier")
	}
}

func TestManager_EditSessionSuppression(t *testing.T) {
	store := testStore()
	m := testutil.Must1(Open(Options{Capacity: 8}))
	defer m.Close()

	slot := SlotFor(Key("src"), "", false)
	m.Put(slot, resultOnA(store, m.Hasher()))

	// Start editing note a; a half-typed change lands in the store.
	m.BeginSession("a")
	store.Put(&note.Note{ID: "a", Name: "A", Body: []string{"half-ty"},
		Path: "a.md", Modified: testutil.T.Add(time.Minute)})
	m.NoteChanged("a")

	// The dependent result is still served, suppressed.
	if _, ok := m.GetIfValid(slot, store); !ok {
		t.Fatal("result churned during the edit session")
	}

	// Committing the session invalidates what was served suppressed.
	m.EndSession(true)
	if _, ok := m.GetIfValid(slot, store); ok {
		t.Error("suppressed result survived the session commit")
	}
}

func TestManager_EditSessionRollback(t *testing.T) {
	store := testStore()
	m := testutil.Must1(Open(Options{Capacity: 8}))
	defer m.Close()

	slot := SlotFor(Key("src"), "", false)
	m.Put(slot, resultOnA(store, m.Hasher()))

	a, _ := store.Get("a")
	original := *a
	m.BeginSession("a")
	store.Put(&note.Note{ID: "a", Name: "A", Body: []string{"draft"},
		Path: "a.md", Modified: testutil.T.Add(time.Minute)})
	m.NoteChanged("a")
	if _, ok := m.GetIfValid(slot, store); !ok {
		t.Fatal("result churned during the edit session")
	}

	// The edit is discarded; the entry stays valid.
	store.Put(&original)
	m.NoteChanged("a")
	m.EndSession(false)
	if _, ok := m.GetIfValid(slot, store); !ok {
		t.Error("rollback lost a still-valid entry")
	}
}

func TestManager_NoteRemoved(t *testing.T) {
	store := testStore()
	m := testutil.Must1(Open(Options{Capacity: 8}))
	defer m.Close()

	perNote := SlotFor(Key("self"), "a", true)
	m.Put(perNote, resultOnA(store, m.Hasher()))
	m.NoteRemoved("a")
	if _, ok := m.GetAny(perNote); ok {
		t.Error("per-note entry survived note removal")
	}
}
