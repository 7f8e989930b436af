package eval

// scope is one link of the immutable environment chain. A child scope can
// read but not mutate its parent's bindings; assignment always binds in the
// innermost scope.
type scope struct {
	bindings map[string]Value
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]Value), parent: parent}
}

// lookup walks the chain upward.
func (s *scope) lookup(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scope) bind(name string, v Value) {
	s.bindings[name] = v
}
