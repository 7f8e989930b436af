package note

import (
	"testing"
	"time"
)

func TestText(t *testing.T) {
	n := &Note{Name: "Title", Body: []string{"one", "two"}}
	if n.Text() != "Title\none\ntwo" {
		t.Errorf("Text: %q", n.Text())
	}
	if n.BodyText() != "one\ntwo" {
		t.Errorf("BodyText: %q", n.BodyText())
	}
	bare := &Note{Name: "Only"}
	if bare.Text() != "Only" {
		t.Errorf("Text of bodyless note: %q", bare.Text())
	}
}

func TestHierarchyResolution(t *testing.T) {
	s := NewMapStore()
	root := &Note{ID: "root", Name: "Root"}
	mid := &Note{ID: "mid", Name: "Mid", Parent: "root"}
	leaf := &Note{ID: "leaf", Name: "Leaf", Parent: "mid"}
	s.Put(root)
	s.Put(mid)
	s.Put(leaf)

	if p := ParentOf(s, leaf); p == nil || p.ID != "mid" {
		t.Errorf("ParentOf leaf: %+v", p)
	}
	if p := ParentOf(s, root); p != nil {
		t.Errorf("ParentOf root: %+v", p)
	}
	if a := AncestorOf(s, leaf, 2); a == nil || a.ID != "root" {
		t.Errorf("AncestorOf(leaf, 2): %+v", a)
	}
	if a := AncestorOf(s, leaf, 3); a != nil {
		t.Errorf("AncestorOf past the root: %+v", a)
	}
	if r := RootOf(s, leaf); r.ID != "root" {
		t.Errorf("RootOf leaf: %+v", r)
	}
	if r := RootOf(s, root); r.ID != "root" {
		t.Errorf("RootOf root: %+v", r)
	}

	// A dangling parent reference resolves like a root.
	orphan := &Note{ID: "o", Name: "O", Parent: "gone"}
	s.Put(orphan)
	if p := ParentOf(s, orphan); p != nil {
		t.Errorf("ParentOf orphan: %+v", p)
	}
}

func TestMapStore_Apply(t *testing.T) {
	s := NewMapStore()
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	created := s.Apply([]Op{{Kind: OpCreate, Path: "a.md", Content: "Title\nbody"}})
	if len(created) != 1 {
		t.Fatalf("created: %v", created)
	}
	n, ok := s.ByPath("a.md")
	if !ok || n.Name != "Title" || len(n.Body) != 1 || n.Body[0] != "body" {
		t.Fatalf("created note: %+v", n)
	}
	if !n.Created.Equal(now) || !n.Modified.Equal(now) {
		t.Errorf("timestamps: %v / %v", n.Created, n.Modified)
	}

	// CreateIfAbsent is a no-op when the path is taken.
	created = s.Apply([]Op{{Kind: OpCreateIfAbsent, Path: "a.md", Content: "Other"}})
	if len(created) != 0 {
		t.Errorf("createIfAbsent on taken path created: %v", created)
	}
	if n, _ := s.ByPath("a.md"); n.Name != "Title" {
		t.Error("createIfAbsent overwrote existing note")
	}

	later := now.Add(time.Hour)
	s.SetClock(func() time.Time { return later })
	s.Apply([]Op{{Kind: OpAppend, Target: n.ID, Line: "more"}})
	n, _ = s.ByPath("a.md")
	if n.Body[len(n.Body)-1] != "more" || !n.Modified.Equal(later) {
		t.Errorf("append: %+v", n)
	}
}
