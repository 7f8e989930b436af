package deps

import "github.com/quillnotes/quill/pkg/parse"

// UsesSelfReference reports whether the directive reads the note it lives in.
// Self-referential directives get a per-note cache slot; directives with only
// global reads share one slot across all notes.
//
// Besides the explicit "." reference, a one-argument append targets the
// current note, and a once wrapper memoizes per note, so both force per-note
// keying.
func UsesSelfReference(n parse.Node) bool {
	switch n := n.(type) {
	case *parse.Number, *parse.String, *parse.Pattern, *parse.Var:
		return false
	case *parse.CurrentNote:
		return true
	case *parse.PropertyAccess:
		return UsesSelfReference(n.Target)
	case *parse.Lambda:
		return UsesSelfReference(n.Body)
	case *parse.LambdaCall:
		return UsesSelfReference(n.Lambda) || anySelfRef(n.Args)
	case *parse.DeferOnce:
		return true
	case *parse.DeferReactive:
		return UsesSelfReference(n.Body)
	case *parse.Assign:
		return UsesSelfReference(n.Value)
	case *parse.Seq:
		for _, st := range n.Stmts {
			if UsesSelfReference(st) {
				return true
			}
		}
		return false
	case *parse.MethodCall:
		return UsesSelfReference(n.Target) || anySelfRef(n.Args)
	case *parse.Call:
		if n.Name == "append" && len(n.Args) == 1 {
			return true
		}
		return anySelfRef(n.Args)
	default:
		panic("deps: unhandled node variant in UsesSelfReference")
	}
}

func anySelfRef(args []parse.Arg) bool {
	for _, a := range args {
		if UsesSelfReference(a.Value) {
			return true
		}
	}
	return false
}

// Estimate statically over-approximates the global facets a directive may
// read, without evaluating it. The executor merges the estimate into the
// observed set so that a branch not taken on first evaluation cannot hide a
// dependency the directive text plainly has.
func Estimate(n parse.Node) *Set {
	s := New()
	estimate(n, s)
	return s
}

func estimate(n parse.Node, s *Set) {
	switch n := n.(type) {
	case *parse.Number, *parse.String, *parse.CurrentNote, *parse.Var:
	case *parse.Pattern:
		// A pattern is only useful for searching, which scans names and
		// paths of the whole note set.
		s.Existence = true
		s.Paths = true
	case *parse.PropertyAccess:
		switch n.Field {
		case "modified":
			s.Modified = true
		case "created":
			s.Created = true
		case "viewed":
			s.Viewed = true
		case "path":
			s.Paths = true
		}
		estimate(n.Target, s)
	case *parse.Lambda:
		estimate(n.Body, s)
	case *parse.LambdaCall:
		estimate(n.Lambda, s)
		estimateArgs(n.Args, s)
	case *parse.DeferOnce:
		estimate(n.Body, s)
	case *parse.DeferReactive:
		estimate(n.Body, s)
	case *parse.Assign:
		estimate(n.Value, s)
	case *parse.Seq:
		for _, st := range n.Stmts {
			estimate(st, s)
		}
	case *parse.MethodCall:
		estimate(n.Target, s)
		estimateArgs(n.Args, s)
	case *parse.Call:
		if n.Name == "find" {
			s.Existence = true
			s.Paths = true
		}
		estimateArgs(n.Args, s)
	default:
		panic("deps: unhandled node variant in estimate")
	}
}

func estimateArgs(args []parse.Arg, s *Set) {
	for _, a := range args {
		estimate(a.Value, s)
	}
}
