package deps

import (
	"sync"

	"github.com/quillnotes/quill/pkg/note"
)

// Collector accumulates the dependency set of the directive currently being
// executed. It is stack shaped: when evaluating a directive causes another
// directive to be evaluated (a nested note view), a fresh frame is pushed for
// the inner directive and the finished inner set is folded into the outer one
// by the caller with AddTransitive.
//
// All record methods are no-ops when no directive has been started, so the
// evaluator can call them unconditionally.
type Collector struct {
	mu    sync.Mutex
	stack []*Set
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// StartDirective pushes a fresh dependency frame.
func (c *Collector) StartDirective() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = append(c.stack, New())
}

// FinishDirective pops the current frame and returns its dependency set. It
// panics if no directive was started.
func (c *Collector) FinishDirective() *Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		panic("deps: FinishDirective without StartDirective")
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return top
}

func (c *Collector) top() *Set {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// RecordNameAccess records a read of a note's name line.
func (c *Collector) RecordNameAccess(id note.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.top(); s != nil {
		s.AddName(id)
	}
}

// RecordBodyAccess records a read of a note's body.
func (c *Collector) RecordBodyAccess(id note.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.top(); s != nil {
		s.AddBody(id)
	}
}

// RecordHierarchy records a hierarchy navigation.
func (c *Collector) RecordHierarchy(h Hierarchy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.top(); s != nil {
		s.AddHierarchy(h)
	}
}

// RecordExistenceUse records a read that depends on which notes exist.
func (c *Collector) RecordExistenceUse() {
	c.setFlag(func(s *Set) { s.Existence = true })
}

// RecordPathsUse records a read of note paths in aggregate.
func (c *Collector) RecordPathsUse() {
	c.setFlag(func(s *Set) { s.Paths = true })
}

// RecordModifiedUse records a read of modification times in aggregate.
func (c *Collector) RecordModifiedUse() {
	c.setFlag(func(s *Set) { s.Modified = true })
}

// RecordCreatedUse records a read of creation times in aggregate.
func (c *Collector) RecordCreatedUse() {
	c.setFlag(func(s *Set) { s.Created = true })
}

// RecordViewedUse records a read of view times in aggregate.
func (c *Collector) RecordViewedUse() {
	c.setFlag(func(s *Set) { s.Viewed = true })
}

func (c *Collector) setFlag(f func(*Set)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.top(); s != nil {
		f(s)
	}
}

// AddTransitive folds the dependency set of a nested directive into the
// current frame. The nested set must be the inner directive's full stored
// set, even when the inner directive was served from cache; otherwise the
// outer directive would under-invalidate.
func (c *Collector) AddTransitive(other *Set) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.top(); s != nil {
		s.Merge(other)
	}
}

// Active reports whether a directive frame is currently open.
func (c *Collector) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack) > 0
}
