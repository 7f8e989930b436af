package validate

import "github.com/quillnotes/quill/pkg/parse"

// ContainsMutations reports whether the directive contains a mutation call
// anywhere, including inside action arguments that do not run at render
// time. It never raises errors; cache-eligibility decisions use it, not
// user-facing validation.
func ContainsMutations(n parse.Node) bool {
	switch n := n.(type) {
	case *parse.Number, *parse.String, *parse.Pattern, *parse.CurrentNote, *parse.Var:
		return false
	case *parse.PropertyAccess:
		return ContainsMutations(n.Target)
	case *parse.Lambda:
		return ContainsMutations(n.Body)
	case *parse.LambdaCall:
		return ContainsMutations(n.Lambda) || argsContainMutations(n.Args)
	case *parse.DeferOnce:
		return ContainsMutations(n.Body)
	case *parse.DeferReactive:
		return ContainsMutations(n.Body)
	case *parse.Assign:
		return ContainsMutations(n.Value)
	case *parse.Seq:
		for _, st := range n.Stmts {
			if ContainsMutations(st) {
				return true
			}
		}
		return false
	case *parse.MethodCall:
		return ContainsMutations(n.Target) || argsContainMutations(n.Args)
	case *parse.Call:
		return mutationFns[n.Name] || argsContainMutations(n.Args)
	default:
		panic("validate: unhandled node variant in ContainsMutations")
	}
}

func argsContainMutations(args []parse.Arg) bool {
	for _, a := range args {
		if ContainsMutations(a.Value) {
			return true
		}
	}
	return false
}

// ContainsBareTimeValues reports whether the directive reads the clock
// outside of any once/refresh wrapper or action argument. A directive for
// which this is true changes value with the clock and must not be cached.
func ContainsBareTimeValues(n parse.Node) bool {
	return bareTime(n, false)
}

func bareTime(n parse.Node, wrapped bool) bool {
	switch n := n.(type) {
	case *parse.Number, *parse.String, *parse.Pattern, *parse.CurrentNote:
		return false
	case *parse.Var:
		return timeFns[n.Name] && !wrapped
	case *parse.PropertyAccess:
		return bareTime(n.Target, wrapped)
	case *parse.Lambda:
		return bareTime(n.Body, wrapped)
	case *parse.LambdaCall:
		return bareTime(n.Lambda, wrapped) || argsBareTime(n.Args, wrapped)
	case *parse.DeferOnce:
		return false
	case *parse.DeferReactive:
		return false
	case *parse.Assign:
		return bareTime(n.Value, wrapped)
	case *parse.Seq:
		for _, st := range n.Stmts {
			if bareTime(st, wrapped) {
				return true
			}
		}
		return false
	case *parse.MethodCall:
		return bareTime(n.Target, wrapped) || argsBareTime(n.Args, wrapped)
	case *parse.Call:
		if timeFns[n.Name] && !wrapped {
			return true
		}
		if actionIdx, ok := actionWrappers[n.Name]; ok {
			for i, a := range n.Args {
				if i == actionIdx {
					// Action arguments run at trigger time, not render time.
					continue
				}
				if bareTime(a.Value, wrapped) {
					return true
				}
			}
			return false
		}
		return argsBareTime(n.Args, wrapped)
	default:
		panic("validate: unhandled node variant in ContainsBareTimeValues")
	}
}

func argsBareTime(args []parse.Arg, wrapped bool) bool {
	for _, a := range args {
		if bareTime(a.Value, wrapped) {
			return true
		}
	}
	return false
}
