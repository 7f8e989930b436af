package note

// OpKind enumerates the mutation operations a directive may produce.
type OpKind int

const (
	// OpCreate creates a new note at Path with Content as its text.
	OpCreate OpKind = iota
	// OpCreateIfAbsent creates a note at Path unless one already exists
	// there.
	OpCreateIfAbsent
	// OpAppend appends Line to the note identified by Target.
	OpAppend
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpCreateIfAbsent:
		return "create-if-absent"
	case OpAppend:
		return "append"
	default:
		return "unknown"
	}
}

// Op is a single collected mutation. Directives never apply mutations
// themselves; they are collected in a [Sink] and applied by the caller after
// evaluation finishes, so an aborted evaluation has no partial effects.
type Op struct {
	Kind    OpKind
	Path    string
	Content string
	Target  ID
	Line    string
}

// Sink collects mutation operations during an evaluation.
type Sink struct {
	ops []Op
}

// Add appends an operation.
func (s *Sink) Add(op Op) {
	s.ops = append(s.ops, op)
}

// Ops returns the collected operations in the order they were added.
func (s *Sink) Ops() []Op {
	return s.ops
}
