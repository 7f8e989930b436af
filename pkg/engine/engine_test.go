package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/quillnotes/quill/pkg/cache"
	"github.com/quillnotes/quill/pkg/eval"
	"github.com/quillnotes/quill/pkg/note"
	"github.com/quillnotes/quill/pkg/testutil"
	"github.com/quillnotes/quill/pkg/trigger"
)

func newTestEngine(t *testing.T) (*Engine, *note.MapStore) {
	t.Helper()
	store := note.NewMapStore()
	store.SetClock(testutil.ClockAt(testutil.T))
	store.Put(&note.Note{ID: "root", Name: "Root", Path: "_index.md"})
	store.Put(&note.Note{ID: "cur", Name: "Current", Body: []string{"hello"},
		Path: "cur.md", Parent: "root", Modified: testutil.T})
	store.Put(&note.Note{ID: "t1", Name: "todo: milk", Path: "milk.md", Parent: "root"})
	store.Put(&note.Note{ID: "t2", Name: "todo: eggs", Path: "eggs.md", Parent: "root"})

	m := testutil.Must1(cache.Open(cache.Options{Capacity: 64}))
	t.Cleanup(func() { m.Close() })
	e := New(store, m)
	e.SetClock(testutil.ClockAt(testutil.T))
	return e, store
}

func current(store *note.MapStore) *note.Note {
	n, _ := store.Get("cur")
	return n
}

func TestExecute_CachesAndInvalidates(t *testing.T) {
	e, store := newTestEngine(t)
	cur := current(store)

	o := e.Execute("count find(/todo/)", cur)
	if o.Err != nil || o.Rendered != "2" {
		t.Fatalf("first run: %+v", o)
	}
	if o.FromCache {
		t.Error("first run served from cache")
	}
	if !o.Changed {
		t.Error("first run not reported as changed")
	}

	o = e.Execute("count find(/todo/)", cur)
	if !o.FromCache || o.Rendered != "2" {
		t.Errorf("second run: %+v", o)
	}

	// A new matching note invalidates via the existence facet.
	store.Put(&note.Note{ID: "t3", Name: "todo: bread", Path: "bread.md"})
	e.NoteChanged("t3")
	o = e.Execute("count find(/todo/)", cur)
	if o.FromCache || o.Rendered != "3" {
		t.Errorf("after insert: %+v", o)
	}
	if !o.Changed {
		t.Error("changed value not flagged")
	}
}

func TestExecute_SharedSlotAcrossNotes(t *testing.T) {
	e, store := newTestEngine(t)
	cur := current(store)
	t1, _ := store.Get("t1")

	if o := e.Execute("count find(/todo/)", cur); o.FromCache {
		t.Fatal("first run from cache")
	}
	// The directive does not read its own note, so another note containing
	// the same text shares the cached result.
	if o := e.Execute("count find(/todo/)", t1); !o.FromCache {
		t.Error("identical directive in another note recomputed")
	}

	// Self-referential directives do not share.
	if o := e.Execute(".name", cur); o.Err != nil || o.Rendered != "Current" {
		t.Fatalf(".name in cur: %+v", o)
	}
	if o := e.Execute(".name", t1); o.FromCache || o.Rendered != "todo: milk" {
		t.Errorf(".name in t1: %+v", o)
	}
}

func TestExecute_NoteValueTracksName(t *testing.T) {
	e, store := newTestEngine(t)
	cur := current(store)

	o := e.Execute(".parent", cur)
	if o.Err != nil || o.Rendered != "Root" {
		t.Fatalf("first run: %+v", o)
	}
	// The directive displays the parent's name, so the name is a dependency.
	if !o.Deps.Names["root"] {
		t.Errorf("displayed note's name not a dependency: %+v", o.Deps)
	}

	store.Put(&note.Note{ID: "root", Name: "Top", Path: "_index.md"})
	e.NoteChanged("root")
	o = e.Execute(".parent", cur)
	if o.FromCache || o.Rendered != "Top" {
		t.Errorf("after rename: %+v", o)
	}
}

func TestExecute_ParseErrorsNotCached(t *testing.T) {
	e, store := newTestEngine(t)
	cur := current(store)
	if o := e.Execute("count find(", cur); o.Err == nil {
		t.Fatal("no parse error")
	}
	if len(e.FailingNotes()) != 1 {
		t.Error("failing note not tracked")
	}
	if n := e.Cache().Len(); n != 0 {
		t.Errorf("parse error cached: %d entries", n)
	}

	// Deterministic execution errors are cached; the second run hits.
	if o := e.Execute("div(1, 0)", cur); o.Err == nil {
		t.Fatal("no execution error")
	}
	if o := e.Execute("div(1, 0)", cur); !o.FromCache || o.Err == nil {
		t.Errorf("cached error run: %+v", o)
	}

	// A succeeding run clears the failure state.
	if o := e.Execute("5", cur); o.Err != nil {
		t.Fatal(o.Err)
	}
	if len(e.FailingNotes()) != 0 {
		t.Error("failure state not cleared")
	}
}

func TestExecute_ValidationRejects(t *testing.T) {
	e, store := newTestEngine(t)
	if o := e.Execute("date", current(store)); o.Err == nil {
		t.Error("bare clock read executed")
	}
	if o := e.Execute(`new(path: "p.md")`, current(store)); o.Err == nil {
		t.Error("bare mutation executed")
	}
}

func TestExecute_MutatingRunsOnce(t *testing.T) {
	e, store := newTestEngine(t)
	cur := current(store)
	src := `once[new(path: "list.md", content: "List")]`

	o := e.Execute(src, cur)
	if o.Err != nil {
		t.Fatal(o.Err)
	}
	if len(o.Ops) != 1 {
		t.Fatalf("ops: %+v", o.Ops)
	}
	for _, id := range store.Apply(o.Ops) {
		e.NoteChanged(id)
	}

	// Re-executing serves the cached result without collecting the mutation
	// again, even though the note set changed around it.
	o = e.Execute(src, cur)
	if !o.FromCache {
		t.Error("mutating directive re-evaluated")
	}
	if len(o.Ops) != 0 {
		t.Errorf("mutation repeated: %+v", o.Ops)
	}
}

func TestExecute_ViewFoldsTransitiveDeps(t *testing.T) {
	e, store := newTestEngine(t)
	cur := current(store)
	store.Put(&note.Note{ID: "inner", Name: "Inner",
		Body: []string{"total: [count find(/todo/)]"}, Path: "inner.md"})
	e.NoteChanged("inner")

	o := e.Execute("view first(find(/Inner/))", cur)
	if o.Err != nil {
		t.Fatal(o.Err)
	}
	if o.Rendered != "Inner\ntotal: 2" {
		t.Errorf("rendered view: %q", o.Rendered)
	}
	// The outer directive inherits the inner directive's dependency on the
	// todo notes, so a change to them invalidates the view.
	if !o.Deps.Names["t1"] || !o.Deps.Existence {
		t.Errorf("transitive deps not folded: %+v", o.Deps)
	}
	// And the viewed note's content is a dependency.
	if !o.Deps.Bodies["inner"] {
		t.Errorf("viewed note body not a dependency: %+v", o.Deps)
	}

	store.Put(&note.Note{ID: "t3", Name: "todo: bread", Path: "bread.md"})
	e.NoteChanged("t3")
	o = e.Execute("view first(find(/Inner/))", cur)
	if o.FromCache || o.Rendered != "Inner\ntotal: 3" {
		t.Errorf("after insert: %+v", o)
	}
}

func TestExecute_ReactiveRegistersTriggers(t *testing.T) {
	e, store := newTestEngine(t)
	cur := current(store)

	o := e.Execute(`refresh[if(time.plus(minutes: 10).gt("12:00"), "soon", "not yet")]`, cur)
	if o.Err != nil {
		t.Fatal(o.Err)
	}
	if o.Rendered != "not yet" {
		t.Errorf("rendered: %q", o.Rendered)
	}
	if len(o.Triggers) != 1 || o.Triggers[0] != (trigger.Daily{Hour: 11, Minute: 50}) {
		t.Errorf("triggers: %v, want [daily 11:50]", o.Triggers)
	}

	next, reg, ok := e.Registry().NextAfter(testutil.T)
	if !ok || !next.Equal(time.Date(2024, 5, 20, 11, 50, 0, 0, time.UTC)) {
		t.Errorf("registry next: %v, %v", next, ok)
	}
	// The registration carries the slot identity. This directive does not
	// read its own note, so its slot, and hence the registration, has no
	// note id.
	if reg.Key != cache.Key(`refresh[if(time.plus(minutes: 10).gt("12:00"), "soon", "not yet")]`) {
		t.Errorf("registration key: %q", reg.Key)
	}
	if reg.NoteID != "" {
		t.Errorf("registration note id: %q, want empty for a shared slot", reg.NoteID)
	}
}

func TestExecute_ReactiveWithoutComparisons(t *testing.T) {
	e, store := newTestEngine(t)

	o := e.Execute(`refresh["constant"]`, current(store))
	if o.Err != nil || o.Rendered != "constant" {
		t.Fatalf("run: %+v", o)
	}
	if !errors.Is(o.TriggerErr, trigger.ErrNoComparisons) {
		t.Errorf("trigger err: %v, want ErrNoComparisons", o.TriggerErr)
	}
	if len(o.Triggers) != 0 {
		t.Errorf("triggers: %v", o.Triggers)
	}
}

func TestRunAction(t *testing.T) {
	e, store := newTestEngine(t)
	cur := current(store)

	o := e.Execute(`button("Add", append("done"))`, cur)
	if o.Err != nil {
		t.Fatal(o.Err)
	}
	if len(o.Ops) != 0 {
		t.Fatal("rendering the button collected its mutation")
	}

	bv, ok := o.Value.(eval.ButtonVal)
	if !ok {
		t.Fatalf("got %T, want ButtonVal", o.Value)
	}
	ops, err := e.RunAction(bv.Action, cur)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Kind != note.OpAppend || ops[0].Target != "cur" {
		t.Fatalf("action ops: %+v", ops)
	}
	store.Apply(ops)
	n, _ := store.Get("cur")
	if n.Body[len(n.Body)-1] != "done" {
		t.Errorf("append not applied: %v", n.Body)
	}
}

func TestRender(t *testing.T) {
	e, store := newTestEngine(t)
	store.Put(&note.Note{ID: "page", Name: "Page",
		Body: []string{"todos: [count find(/todo/)], literal [[brackets]]"},
		Path: "page.md"})
	e.NoteChanged("page")
	n, _ := store.Get("page")

	got := e.Render(n)
	want := "Page\ntodos: 2, literal [brackets]"
	if got != want {
		t.Errorf("render: %q, want %q", got, want)
	}
}

func TestEditSession(t *testing.T) {
	e, store := newTestEngine(t)
	cur := current(store)

	o := e.Execute(".body", cur)
	if o.Err != nil || o.Rendered != "hello" {
		t.Fatalf("first run: %+v", o)
	}

	e.BeginEdit("cur")
	store.Put(&note.Note{ID: "cur", Name: "Current", Body: []string{"hell"},
		Path: "cur.md", Parent: "root", Modified: testutil.T.Add(time.Second)})
	e.NoteChanged("cur")
	// Mid-edit, the stale result is still served.
	if o := e.Execute(".body", cur); !o.FromCache || o.Rendered != "hello" {
		t.Errorf("mid-edit: %+v", o)
	}

	e.EndEdit(true)
	n, _ := store.Get("cur")
	if o := e.Execute(".body", n); o.FromCache || o.Rendered != "hell" {
		t.Errorf("after commit: %+v", o)
	}
}
