package note

import (
	"sort"
	"sync"
	"time"
)

// MapStore is an in-memory Store. It is the store used by the CLI and by
// tests; a real notes application supplies its own Store implementation.
type MapStore struct {
	mu    sync.RWMutex
	notes map[ID]*Note
	clock func() time.Time
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{notes: make(map[ID]*Note), clock: time.Now}
}

// SetClock overrides the clock used to stamp Created/Modified times in Apply.
func (s *MapStore) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Put inserts or replaces a note.
func (s *MapStore) Put(n *Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.ID] = n
}

// Delete removes the note with the given ID.
func (s *MapStore) Delete(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
}

// All returns all notes sorted by ID.
func (s *MapStore) All() []*Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := make([]*Note, 0, len(s.notes))
	for _, n := range s.notes {
		ns = append(ns, n)
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].ID < ns[j].ID })
	return ns
}

// Get returns the note with the given ID.
func (s *MapStore) Get(id ID) (*Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	return n, ok
}

// ByPath returns the note with the given path.
func (s *MapStore) ByPath(path string) (*Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notes {
		if n.Path == path {
			return n, true
		}
	}
	return nil, false
}

// Apply applies collected mutation operations to the store and returns the
// IDs of any notes it created.
func (s *MapStore) Apply(ops []Op) []ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	var created []ID
	for _, op := range ops {
		switch op.Kind {
		case OpCreate:
			created = append(created, s.create(op, now))
		case OpCreateIfAbsent:
			if s.findPath(op.Path) == nil {
				created = append(created, s.create(op, now))
			}
		case OpAppend:
			if n, ok := s.notes[op.Target]; ok {
				n.Body = append(n.Body, op.Line)
				n.Modified = now
			}
		}
	}
	return created
}

func (s *MapStore) findPath(path string) *Note {
	for _, n := range s.notes {
		if n.Path == path {
			return n
		}
	}
	return nil
}

func (s *MapStore) create(op Op, now time.Time) ID {
	name, body := splitText(op.Content)
	n := &Note{
		ID:       NewID(),
		Name:     name,
		Body:     body,
		Path:     op.Path,
		Created:  now,
		Modified: now,
	}
	s.notes[n.ID] = n
	return n.ID
}

func splitText(text string) (name string, body []string) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], lines[1:]
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	lines = append(lines, text[start:])
	return lines
}
