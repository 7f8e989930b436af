package deps

import (
	"testing"

	"github.com/quillnotes/quill/pkg/note"
)

func set(build func(*Set)) *Set {
	s := New()
	build(s)
	return s
}

func TestSet_MergeIsUnion(t *testing.T) {
	a := set(func(s *Set) {
		s.AddName("n1")
		s.AddBody("n1")
		s.Existence = true
	})
	b := set(func(s *Set) {
		s.AddName("n2")
		s.Modified = true
		s.AddHierarchy(Hierarchy{Nav: NavParent, Source: "n2", Resolved: "n1"})
	})

	m := a.Clone()
	m.Merge(b)
	if !m.Names["n1"] || !m.Names["n2"] || !m.Bodies["n1"] {
		t.Errorf("merged content deps wrong: %v / %v", m.Names, m.Bodies)
	}
	if !m.Existence || !m.Modified || m.Paths {
		t.Errorf("merged facets wrong: %+v", m)
	}
	if len(m.Hierarchy) != 1 {
		t.Errorf("merged hierarchy wrong: %v", m.Hierarchy)
	}
}

func TestSet_MergeLaws(t *testing.T) {
	a := set(func(s *Set) { s.AddName("x"); s.Viewed = true })
	b := set(func(s *Set) { s.AddBody("y"); s.Paths = true })
	c := set(func(s *Set) {
		s.AddHierarchy(Hierarchy{Nav: NavRoot, Source: "x", Resolved: "r"})
	})

	// Commutative.
	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)
	if !ab.Equal(ba) {
		t.Error("merge is not commutative")
	}

	// Associative.
	abc1 := a.Clone()
	abc1.Merge(b)
	abc1.Merge(c)
	bc := b.Clone()
	bc.Merge(c)
	abc2 := a.Clone()
	abc2.Merge(bc)
	if !abc1.Equal(abc2) {
		t.Error("merge is not associative")
	}

	// Idempotent.
	aa := a.Clone()
	aa.Merge(a)
	if !aa.Equal(a) {
		t.Error("merge is not idempotent")
	}
}

func TestSet_NoteIDs(t *testing.T) {
	s := set(func(s *Set) {
		s.AddName("c")
		s.AddBody("a")
		s.AddName("a")
		s.AddBody("b")
	})
	got := s.NoteIDs()
	want := []note.ID{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCollector_StackShape(t *testing.T) {
	c := NewCollector()
	// Recording without an open frame is a no-op.
	c.RecordNameAccess("orphan")
	if c.Active() {
		t.Fatal("collector active before StartDirective")
	}

	c.StartDirective()
	c.RecordNameAccess("outer")

	// A nested directive gets its own frame.
	c.StartDirective()
	c.RecordBodyAccess("inner")
	c.RecordExistenceUse()
	inner := c.FinishDirective()
	if !inner.Bodies["inner"] || !inner.Existence || inner.Names["outer"] {
		t.Errorf("inner frame wrong: %+v", inner)
	}

	c.AddTransitive(inner)
	outer := c.FinishDirective()
	if !outer.Names["outer"] || !outer.Bodies["inner"] || !outer.Existence {
		t.Errorf("outer frame missing transitive deps: %+v", outer)
	}
	if outer.Names["orphan"] {
		t.Error("recording before StartDirective leaked into the frame")
	}
}
