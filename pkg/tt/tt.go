// Package tt supports table-driven tests with little boilerplate.
package tt

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Table is a list of test cases.
type Table []*Case

// Case is one test case: arguments to call a function with, and matchers for
// the expected return values. Construct with [Args] and chain with Rets.
type Case struct {
	args         []any
	retsMatchers [][]any
}

// Args returns a new Case with the given arguments.
func Args(args ...any) *Case {
	return &Case{args: args}
}

// Rets adds a set of expected return values and returns the receiver so that
// calls can be chained. A value implementing [Matcher] is matched with its
// Match method; other values are compared structurally.
func (c *Case) Rets(matchers ...any) *Case {
	c.retsMatchers = append(c.retsMatchers, matchers)
	return c
}

// FnToTest describes the function under test.
type FnToTest struct {
	name    string
	body    any
	argsFmt string
}

// Fn makes a new FnToTest with the given name and body.
func Fn(name string, body any) *FnToTest {
	return &FnToTest{name: name, body: body}
}

// ArgsFmt sets the format string used to render arguments in failure
// messages, and returns fn itself.
func (fn *FnToTest) ArgsFmt(s string) *FnToTest {
	fn.argsFmt = s
	return fn
}

// T is the subset of testing.T used by this package.
type T interface {
	Helper()
	Errorf(format string, args ...any)
}

// Test runs a function against a table of cases.
func Test(t T, fn *FnToTest, tests Table) {
	t.Helper()
	for _, test := range tests {
		rets := call(fn.body, test.args)
		for _, retsMatcher := range test.retsMatchers {
			if !match(retsMatcher, rets) {
				var argsString string
				if fn.argsFmt == "" {
					argsString = sprintCommaDelimited(test.args...)
				} else {
					argsString = fmt.Sprintf(fn.argsFmt, test.args...)
				}
				t.Errorf("%s(%s) -> %s, want %s", fn.name, argsString,
					sprintRets(rets...), sprintRets(retsMatcher...))
			}
		}
	}
}

// RetValue is an empty interface used in the [Matcher] interface.
type RetValue any

// Matcher wraps the Match method.
type Matcher interface {
	// Match reports whether a return value is considered a match. The
	// argument is of type RetValue so that it cannot be implemented
	// accidentally.
	Match(RetValue) bool
}

// Any is a Matcher that matches any value.
var Any Matcher = anyMatcher{}

type anyMatcher struct{}

func (anyMatcher) Match(RetValue) bool { return true }

func match(matchers, actual []any) bool {
	for i, matcher := range matchers {
		if !matchOne(matcher, actual[i]) {
			return false
		}
	}
	return true
}

func matchOne(m, a any) bool {
	if m, ok := m.(Matcher); ok {
		return m.Match(a)
	}
	if err, ok := m.(error); ok {
		if aErr, ok := a.(error); ok {
			return err.Error() == aErr.Error()
		}
		return false
	}
	return cmp.Equal(m, a, cmpopts.EquateEmpty(), deepAllowUnexported(m, a))
}

// deepAllowUnexported builds a cmp option allowing unexported fields for all
// struct types reachable from the given values. Test tables in this module
// compare AST nodes and values with unexported fields.
func deepAllowUnexported(vs ...any) cmp.Option {
	types := map[reflect.Type]bool{}
	for _, v := range vs {
		collectStructTypes(reflect.TypeOf(v), types, map[reflect.Type]bool{})
	}
	var list []any
	for t := range types {
		list = append(list, reflect.New(t).Elem().Interface())
	}
	if len(list) == 0 {
		return cmp.Options{}
	}
	return cmp.AllowUnexported(list...)
}

func collectStructTypes(t reflect.Type, found, seen map[reflect.Type]bool) {
	if t == nil || seen[t] {
		return
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Struct:
		found[t] = true
		for i := 0; i < t.NumField(); i++ {
			collectStructTypes(t.Field(i).Type, found, seen)
		}
	case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Map:
		collectStructTypes(t.Elem(), found, seen)
		if t.Kind() == reflect.Map {
			collectStructTypes(t.Key(), found, seen)
		}
	}
}

func sprintRets(rets ...any) string {
	if len(rets) == 1 {
		return fmt.Sprint(rets[0])
	}
	return "(" + sprintCommaDelimited(rets...) + ")"
}

func sprintCommaDelimited(args ...any) string {
	var b bytes.Buffer
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(&b, arg)
	}
	return b.String()
}

func call(fn any, args []any) []any {
	argsReflect := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			// reflect.ValueOf(nil) returns a zero Value; work around by
			// taking the Elem of a pointer to a nil interface.
			var v any
			argsReflect[i] = reflect.ValueOf(&v).Elem()
		} else {
			argsReflect[i] = reflect.ValueOf(arg)
		}
	}
	retsReflect := reflect.ValueOf(fn).Call(argsReflect)
	rets := make([]any, len(retsReflect))
	for i, retReflect := range retsReflect {
		rets[i] = retReflect.Interface()
	}
	return rets
}
