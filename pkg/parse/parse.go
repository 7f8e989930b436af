// Package parse implements parsing of quill directive source into an AST.
//
// The language has no infix operators; everything is composed from literals,
// calls, method chains and a few bracket wrappers. Adjacent expressions
// without parentheses nest right to left, so "a b c" parses as a(b(c)).
//
// Parsing is pure and deterministic: parsing identical text always yields a
// structurally identical AST. Cache keys are derived from raw source text and
// rely on this.
package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/quillnotes/quill/pkg/diag"
)

// Parse parses a single directive source (the text between the enclosing
// brackets). The returned Node is valid even when the error is non-nil, but
// only for best-effort display purposes.
func Parse(name, src string) (Node, error) {
	ps := &parser{srcName: name, src: src}
	n := ps.seq("")
	ps.skipSpaces()
	ps.done()
	return n, diag.PackErrors(ps.errors)
}

// seq parses a sequence of statements separated by ";" until EOF or one of
// the stop runes.
func (ps *parser) seq(stop string) Node {
	ps.skipSpaces()
	from := ps.pos
	var stmts []Node
	for {
		ps.skipSpaces()
		r := ps.peek()
		if r == eof || strings.ContainsRune(stop, r) {
			break
		}
		if r == ';' {
			ps.next()
			continue
		}
		stmts = append(stmts, ps.stmt(stop))
		ps.skipSpaces()
		r = ps.peek()
		switch {
		case r == ';':
			ps.next()
		case r == eof || strings.ContainsRune(stop, r):
		default:
			ps.error(newError(fmt.Sprintf("unexpected rune %q", r), "';'", "end of directive"))
			ps.next()
		}
	}
	switch len(stmts) {
	case 0:
		ps.error(newError("empty directive", "expression"))
		n := &Seq{}
		ps.fin(&n.node, from)
		return n
	case 1:
		return stmts[0]
	default:
		n := &Seq{Stmts: stmts}
		ps.fin(&n.node, from)
		return n
	}
}

// stmt parses a single statement: an assignment if an identifier is directly
// followed by ":", and an expression otherwise. The colon is context
// sensitive; inside argument lists it labels a named argument instead.
func (ps *parser) stmt(stop string) Node {
	ps.skipSpaces()
	from := ps.pos
	if isIdentStart(ps.peek()) {
		save := ps.pos
		name := ps.ident()
		ps.skipSpaces()
		if ps.peek() == ':' {
			ps.next()
			val := ps.expr(stop)
			a := &Assign{Name: name, Value: val}
			ps.fin(&a.node, from)
			return a
		}
		ps.pos = save
	}
	return ps.expr(stop)
}

// expr parses a chain of whitespace-separated units and folds them right to
// left into nested calls: "a b c" becomes a(b(c)). Units before the last must
// be bare identifiers.
func (ps *parser) expr(stop string) Node {
	ps.skipSpaces()
	from := ps.pos
	var units []Node
	for {
		ps.skipSpaces()
		r := ps.peek()
		if r == eof || r == ';' || strings.ContainsRune(stop, r) {
			break
		}
		units = append(units, ps.postfix(stop))
	}
	if len(units) == 0 {
		ps.error(newError("", "expression"))
		n := &Seq{}
		ps.fin(&n.node, from)
		return n
	}
	result := units[len(units)-1]
	for i := len(units) - 2; i >= 0; i-- {
		v, ok := units[i].(*Var)
		if !ok {
			ps.errorp(units[i], errors.New("expression cannot be applied to another; add parentheses"))
			continue
		}
		c := &Call{Name: v.Name, Args: []Arg{{Value: result}}}
		c.Ranging = diag.MixedRanging(v, result)
		c.src = ps.src[c.From:c.To]
		result = c
	}
	return result
}

// postfix parses a primary expression followed by any number of property
// accesses, method calls and call argument lists.
func (ps *parser) postfix(stop string) Node {
	from := ps.pos
	n := ps.primary(stop)
	// ".name" is a property access on the current note and ".m(...)" a
	// method call on it; the identifier directly follows the dot that
	// produced the CurrentNote node.
	if _, ok := n.(*CurrentNote); ok && isIdentStart(ps.peek()) {
		name := ps.ident()
		if ps.peek() == '(' {
			mc := &MethodCall{Target: n, Name: name, Args: ps.args()}
			ps.fin(&mc.node, from)
			n = mc
		} else {
			pa := &PropertyAccess{Target: n, Field: name}
			ps.fin(&pa.node, from)
			n = pa
		}
	}
	for {
		switch ps.peek() {
		case '.':
			save := ps.pos
			ps.next()
			if !isIdentStart(ps.peek()) {
				ps.pos = save
				return n
			}
			name := ps.ident()
			if ps.peek() == '(' {
				args := ps.args()
				mc := &MethodCall{Target: n, Name: name, Args: args}
				ps.fin(&mc.node, from)
				n = mc
			} else {
				pa := &PropertyAccess{Target: n, Field: name}
				ps.fin(&pa.node, from)
				n = pa
			}
		case '(':
			args := ps.args()
			if v, ok := n.(*Var); ok {
				c := &Call{Name: v.Name, Args: args}
				ps.fin(&c.node, from)
				n = c
			} else {
				lc := &LambdaCall{Lambda: n, Args: args}
				ps.fin(&lc.node, from)
				n = lc
			}
		default:
			return n
		}
	}
}

func (ps *parser) primary(stop string) Node {
	from := ps.pos
	r := ps.peek()
	switch {
	case r == '"':
		return ps.stringLit(from)
	case r == '/':
		return ps.patternLit(from)
	case isDigit(r):
		return ps.numberLit(from)
	case r == '.':
		ps.next()
		n := &CurrentNote{}
		ps.fin(&n.node, from)
		return n
	case isIdentStart(r):
		name := ps.ident()
		if ps.peek() == '[' {
			switch name {
			case "once":
				n := &DeferOnce{Body: ps.wrapperBody()}
				ps.fin(&n.node, from)
				return n
			case "refresh":
				n := &DeferReactive{Body: ps.wrapperBody()}
				ps.fin(&n.node, from)
				return n
			case "later":
				n := &Lambda{Body: ps.wrapperBody()}
				ps.fin(&n.node, from)
				return n
			}
		}
		v := &Var{Name: name}
		ps.fin(&v.node, from)
		return v
	case r == '(':
		ps.next()
		inner := ps.seq(")")
		if ps.peek() == ')' {
			ps.next()
		} else {
			ps.error(newError("directive ended", "')'"))
		}
		return inner
	case r == '{':
		return ps.lambda(from)
	default:
		ps.error(newError(fmt.Sprintf("unexpected rune %q", r), "expression"))
		if r != eof {
			ps.next()
		}
		n := &Seq{}
		ps.fin(&n.node, from)
		return n
	}
}

// wrapperBody parses the [...] body of a once/refresh/later wrapper.
func (ps *parser) wrapperBody() Node {
	// Caller has checked that the next rune is "[".
	ps.next()
	body := ps.seq("]")
	if ps.peek() == ']' {
		ps.next()
	} else {
		ps.error(newError("directive ended", "']'"))
	}
	return body
}

func (ps *parser) lambda(from int) Node {
	// Caller has checked that the next rune is "{".
	ps.next()
	save := ps.pos
	params, ok := ps.lambdaParams()
	if !ok {
		// No parameter list; the body uses the implicit parameter "it".
		ps.pos = save
		params = []string{"it"}
	}
	body := ps.seq("}")
	if ps.peek() == '}' {
		ps.next()
	} else {
		ps.error(newError("directive ended", "'}'"))
	}
	n := &Lambda{Params: params, Body: body}
	ps.fin(&n.node, from)
	return n
}

// lambdaParams tries to parse "x, y ->" at the start of a lambda body. It
// reports whether a parameter list was present.
func (ps *parser) lambdaParams() ([]string, bool) {
	var params []string
	for {
		ps.skipSpaces()
		if !isIdentStart(ps.peek()) {
			return nil, false
		}
		params = append(params, ps.ident())
		ps.skipSpaces()
		switch {
		case ps.peek() == ',':
			ps.next()
		case ps.hasPrefix("->"):
			ps.next()
			ps.next()
			return params, true
		default:
			return nil, false
		}
	}
}

// args parses a parenthesized argument list: positional and "name: value"
// arguments separated by commas.
func (ps *parser) args() []Arg {
	// Caller has checked that the next rune is "(".
	ps.next()
	var args []Arg
	ps.skipSpaces()
	if ps.peek() == ')' {
		ps.next()
		return args
	}
	for {
		ps.skipSpaces()
		var name string
		if isIdentStart(ps.peek()) {
			save := ps.pos
			id := ps.ident()
			ps.skipSpaces()
			if ps.peek() == ':' {
				ps.next()
				name = id
			} else {
				ps.pos = save
			}
		}
		v := ps.expr(",)")
		args = append(args, Arg{Name: name, Value: v})
		ps.skipSpaces()
		switch ps.peek() {
		case ',':
			ps.next()
		case ')':
			ps.next()
			return args
		default:
			ps.error(newError("directive ended", "','", "')'"))
			return args
		}
	}
}

func (ps *parser) ident() string {
	from := ps.pos
	for isIdentCont(ps.peek()) {
		ps.next()
	}
	return ps.src[from:ps.pos]
}

func (ps *parser) stringLit(from int) Node {
	ps.next() // opening quote
	var sb strings.Builder
	for {
		r := ps.next()
		switch r {
		case eof:
			ps.error(errors.New("string not terminated"))
			n := &String{Value: sb.String()}
			ps.fin(&n.node, from)
			return n
		case '"':
			n := &String{Value: sb.String()}
			ps.fin(&n.node, from)
			return n
		case '\\':
			switch esc := ps.next(); esc {
			case '"', '\\':
				sb.WriteRune(esc)
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case eof:
				ps.error(errors.New("string not terminated"))
			default:
				ps.error(fmt.Errorf("unknown escape sequence \\%c", esc))
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

func (ps *parser) patternLit(from int) Node {
	ps.next() // opening slash
	var sb strings.Builder
	for {
		r := ps.next()
		switch r {
		case eof:
			ps.error(errors.New("pattern not terminated"))
			n := &Pattern{Value: sb.String()}
			ps.fin(&n.node, from)
			return n
		case '/':
			n := &Pattern{Value: sb.String()}
			ps.fin(&n.node, from)
			return n
		case '\\':
			switch esc := ps.next(); esc {
			case '/', '\\':
				sb.WriteRune(esc)
			case eof:
				ps.error(errors.New("pattern not terminated"))
			default:
				sb.WriteRune('\\')
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

func (ps *parser) numberLit(from int) Node {
	for isDigit(ps.peek()) {
		ps.next()
	}
	if ps.peek() == '.' {
		// Only part of the number if a digit follows; otherwise it is a
		// property access or method call on the number.
		ps.next()
		if isDigit(ps.peek()) {
			for isDigit(ps.peek()) {
				ps.next()
			}
		} else {
			ps.backup()
		}
	}
	text := ps.src[from:ps.pos]
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		ps.error(fmt.Errorf("bad number literal %q", text))
	}
	n := &Number{Value: value}
	ps.fin(&n.node, from)
	return n
}
