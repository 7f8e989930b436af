package eval

import (
	"sync"

	"github.com/quillnotes/quill/pkg/note"
)

// OnceStore memoizes the results of once[...] wrapper bodies per note
// lifetime. A once body is evaluated at most once per note; thereafter the
// memoized value is returned even across re-executions of the enclosing
// directive.
type OnceStore struct {
	mu sync.Mutex
	m  map[note.ID]map[string]Value
}

// NewOnceStore returns an empty OnceStore.
func NewOnceStore() *OnceStore {
	return &OnceStore{m: make(map[note.ID]map[string]Value)}
}

// Get returns the memoized value of the once body with the given key in the
// given note.
func (o *OnceStore) Get(id note.ID, key string) (Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.m[id][key]
	return v, ok
}

// Put memoizes a value.
func (o *OnceStore) Put(id note.ID, key string, v Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.m[id] == nil {
		o.m[id] = make(map[string]Value)
	}
	o.m[id][key] = v
}

// DropNote forgets all memoized values of a note, for when the note is
// deleted.
func (o *OnceStore) DropNote(id note.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.m, id)
}
