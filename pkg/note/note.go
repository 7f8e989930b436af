// Package note defines the document model of quill: notes, the read-only
// store interface the directive engine evaluates against, and the mutation
// operations a directive may collect.
package note

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID identifies a note.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// Note is a single document. The first line of a note's text is its name;
// the remaining lines are its body.
type Note struct {
	ID   ID
	Name string
	Body []string

	Path     string
	Created  time.Time
	Modified time.Time
	Viewed   time.Time

	// Parent is the ID of the parent note, or empty for a root note.
	Parent ID
}

// Text returns the full text of the note: the name line followed by the body
// lines.
func (n *Note) Text() string {
	if len(n.Body) == 0 {
		return n.Name
	}
	return n.Name + "\n" + strings.Join(n.Body, "\n")
}

// BodyText returns the body lines joined by newlines.
func (n *Note) BodyText() string {
	return strings.Join(n.Body, "\n")
}

// Store is a read-only view of the full note set.
type Store interface {
	// All returns all notes. The order is unspecified.
	All() []*Note
	// Get returns the note with the given ID.
	Get(id ID) (*Note, bool)
	// ByPath returns the note with the given path.
	ByPath(path string) (*Note, bool)
}

// ParentOf resolves the parent of n in s, or nil if n is a root note or the
// parent is missing.
func ParentOf(s Store, n *Note) *Note {
	if n.Parent == "" {
		return nil
	}
	p, ok := s.Get(n.Parent)
	if !ok {
		return nil
	}
	return p
}

// AncestorOf resolves the steps-th ancestor of n in s; 1 is the parent. It
// returns nil when the chain runs out.
func AncestorOf(s Store, n *Note, steps int) *Note {
	cur := n
	for i := 0; i < steps; i++ {
		cur = ParentOf(s, cur)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// RootOf resolves the root of n's parent chain. A root note resolves to
// itself.
func RootOf(s Store, n *Note) *Note {
	cur := n
	for {
		p := ParentOf(s, cur)
		if p == nil {
			return cur
		}
		cur = p
	}
}
