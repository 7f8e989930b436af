package parse

import "github.com/quillnotes/quill/pkg/diag"

// Node is the interface of all AST nodes. The set of implementations is
// closed: every AST-walking pass (evaluation, dependency analysis, validation,
// trigger analysis) switches exhaustively over it and panics on an unknown
// variant, so that adding a variant without updating a pass fails loudly.
type Node interface {
	diag.Ranger
	// SourceText returns the portion of source text the node covers.
	SourceText() string
	sealed()
}

// node is embedded in all Node implementations.
type node struct {
	diag.Ranging
	src string
}

func (n *node) SourceText() string { return n.src }

func (n *node) sealed() {}

// Number is a number literal.
type Number struct {
	node
	Value float64
}

// String is a string literal.
type String struct {
	node
	Value string
}

// Pattern is a pattern literal, written /like this/ and matched against note
// names and paths.
type Pattern struct {
	node
	Value string
}

// CurrentNote is the "." reference to the note the directive lives in.
type CurrentNote struct {
	node
}

// Var is a variable reference.
type Var struct {
	node
	Name string
}

// PropertyAccess is target.field.
type PropertyAccess struct {
	node
	Target Node
	Field  string
}

// Lambda is a function literal: {x -> body}, {body} with the implicit
// parameter "it", or a parameterless thunk written later[body].
type Lambda struct {
	node
	Params []string
	Body   Node
}

// LambdaCall invokes a lambda-valued expression with arguments.
type LambdaCall struct {
	node
	Lambda Node
	Args   []Arg
}

// DeferOnce is the once[...] wrapper: the body is evaluated at most once per
// note lifetime and memoized thereafter.
type DeferOnce struct {
	node
	Body Node
}

// DeferReactive is the refresh[...] wrapper: the body is re-evaluated at
// computed future instants.
type DeferReactive struct {
	node
	Body Node
}

// Assign binds a name in the current scope: name: value.
type Assign struct {
	node
	Name  string
	Value Node
}

// Seq is a sequence of statements separated by ";". Its value is the value of
// the last statement.
type Seq struct {
	node
	Stmts []Node
}

// MethodCall is target.name(args).
type MethodCall struct {
	node
	Target Node
	Name   string
	Args   []Arg
}

// Call is a plain call: name(args), or the implicit form "a b" meaning a(b).
type Call struct {
	node
	Name string
	Args []Arg
}

// Arg is a call argument, positional when Name is empty and named otherwise.
type Arg struct {
	Name  string
	Value Node
}

// Children returns the direct sub-expressions of n. Passes that only need a
// generic traversal use this; passes with per-variant behavior switch over
// the variants themselves.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Number, *String, *Pattern, *CurrentNote, *Var:
		return nil
	case *PropertyAccess:
		return []Node{n.Target}
	case *Lambda:
		return []Node{n.Body}
	case *LambdaCall:
		return append([]Node{n.Lambda}, argValues(n.Args)...)
	case *DeferOnce:
		return []Node{n.Body}
	case *DeferReactive:
		return []Node{n.Body}
	case *Assign:
		return []Node{n.Value}
	case *Seq:
		return append([]Node(nil), n.Stmts...)
	case *MethodCall:
		return append([]Node{n.Target}, argValues(n.Args)...)
	case *Call:
		return argValues(n.Args)
	default:
		panic("parse: unhandled node variant in Children")
	}
}

func argValues(args []Arg) []Node {
	ns := make([]Node, len(args))
	for i, a := range args {
		ns[i] = a.Value
	}
	return ns
}
