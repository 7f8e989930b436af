package eval

import (
	"github.com/quillnotes/quill/pkg/deps"
	"github.com/quillnotes/quill/pkg/eval/errs"
	"github.com/quillnotes/quill/pkg/hash"
	"github.com/quillnotes/quill/pkg/note"
	"github.com/quillnotes/quill/pkg/parse"
)

func init() {
	addBuiltinFns(map[string]builtinFn{
		"find":        findFn,
		"view":        viewFn,
		"new":         newFn,
		"newIfAbsent": newIfAbsentFn,
		"append":      appendFn,
	})
}

const timeDisplayLayout = "2006-01-02 15:04"

func (fm *Frame) recordName(id note.ID) {
	if fm.Deps != nil {
		fm.Deps.RecordNameAccess(id)
	}
}

func (fm *Frame) recordBody(id note.ID) {
	if fm.Deps != nil {
		fm.Deps.RecordBodyAccess(id)
	}
}

// property dispatches target.field.
func (fm *Frame) property(target Value, field string) (Value, error) {
	switch target := target.(type) {
	case NoteVal:
		return fm.noteProperty(target, field)
	case Undefined:
		return nil, errs.New(errs.BadValue, "undefined has no field %s; use orElse", field)
	default:
		return nil, errs.New(errs.UnknownField, "%s on %s", field, target.Kind())
	}
}

func (fm *Frame) noteProperty(nv NoteVal, field string) (Value, error) {
	n := nv.Note
	switch field {
	case "name":
		fm.recordName(n.ID)
		fm.recordHierField(nv, field)
		return Str(n.Name), nil
	case "body":
		fm.recordBody(n.ID)
		fm.recordHierField(nv, field)
		return Str(n.BodyText()), nil
	case "text":
		fm.recordName(n.ID)
		fm.recordBody(n.ID)
		fm.recordHierField(nv, "body")
		return Str(n.Text()), nil
	case "path":
		if fm.Deps != nil {
			fm.Deps.RecordPathsUse()
		}
		fm.recordHierField(nv, field)
		return Str(n.Path), nil
	case "created":
		if fm.Deps != nil {
			fm.Deps.RecordCreatedUse()
		}
		fm.recordHierField(nv, field)
		return Str(n.Created.Format(timeDisplayLayout)), nil
	case "modified":
		if fm.Deps != nil {
			fm.Deps.RecordModifiedUse()
		}
		fm.recordHierField(nv, field)
		return Str(n.Modified.Format(timeDisplayLayout)), nil
	case "viewed":
		if fm.Deps != nil {
			fm.Deps.RecordViewedUse()
		}
		fm.recordHierField(nv, field)
		return Str(n.Viewed.Format(timeDisplayLayout)), nil
	case "parent":
		return fm.navigate(n, deps.NavParent, 0)
	case "root":
		return fm.navigate(n, deps.NavRoot, 0)
	default:
		// Unknown fields resolve to the undefined sentinel rather than
		// erroring, so directives can probe optional structure.
		return Undefined{}, nil
	}
}

// recordHierField attaches a field read to the hierarchy navigation that
// produced nv, if any, so staleness can detect the field changing even when
// the navigation still resolves to the same note.
func (fm *Frame) recordHierField(nv NoteVal, field string) {
	if nv.via == nil || fm.Deps == nil {
		return
	}
	h := *nv.via
	h.Field = field
	value, ok := hash.FieldValue(nv.Note, field)
	if !ok {
		return
	}
	h.FieldHash = hash.Field(value)
	fm.Deps.RecordHierarchy(h)
}

// navigate resolves a hierarchy navigation from n and records the
// resolution as a dependency.
func (fm *Frame) navigate(n *note.Note, nav deps.NavKind, steps int) (Value, error) {
	var resolved *note.Note
	switch nav {
	case deps.NavParent:
		resolved = note.ParentOf(fm.Store, n)
	case deps.NavAncestor:
		resolved = note.AncestorOf(fm.Store, n, steps)
	case deps.NavRoot:
		resolved = note.RootOf(fm.Store, n)
	default:
		panic("eval: unhandled navigation kind")
	}
	h := deps.Hierarchy{Nav: nav, Steps: steps, Source: n.ID}
	if resolved != nil {
		h.Resolved = resolved.ID
	}
	if fm.Deps != nil {
		fm.Deps.RecordHierarchy(h)
	}
	if resolved == nil {
		return Undefined{}, nil
	}
	return NoteVal{Note: resolved, via: &h}, nil
}

// findFn searches the note set by pattern. A search reads every note's name
// and path, so it depends on the global existence and paths facets and on
// each note's name line.
func findFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(1); err != nil {
		return nil, err
	}
	var pat PatternVal
	switch v := inv.pos[0].(type) {
	case PatternVal:
		pat = v
	case Str:
		pat = PatternVal{Text: string(v)}
	default:
		return nil, errs.TypeMismatch("find argument", "pattern or string", v.Kind())
	}
	if fm.Deps != nil {
		fm.Deps.RecordExistenceUse()
		fm.Deps.RecordPathsUse()
	}
	var out List
	for _, n := range fm.Store.All() {
		fm.recordName(n.ID)
		if pat.Match(n) {
			out = append(out, NoteVal{Note: n})
		}
	}
	if out == nil {
		out = List{}
	}
	return out, nil
}

// viewFn renders one or more notes inline, evaluating any directives inside
// them. Viewing a note that is already being viewed up the chain is a
// deterministic circular-view error.
func viewFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(1); err != nil {
		return nil, err
	}
	var targets []NoteVal
	switch v := inv.pos[0].(type) {
	case NoteVal:
		targets = []NoteVal{v}
	case List:
		for _, item := range v {
			nv, ok := item.(NoteVal)
			if !ok {
				return nil, errs.TypeMismatch("view list item", "note", item.Kind())
			}
			targets = append(targets, nv)
		}
	default:
		return nil, errs.TypeMismatch("view argument", "note or list of notes", v.Kind())
	}
	var ids []note.ID
	var parts []string
	for _, nv := range targets {
		n := nv.Note
		for _, open := range fm.ViewStack {
			if open == n.ID {
				return nil, errs.New(errs.CircularView, "note %q is already being viewed", n.Name)
			}
		}
		if fm.Current != nil && fm.Current.ID == n.ID {
			return nil, errs.New(errs.CircularView, "note %q cannot view itself", n.Name)
		}
		ids = append(ids, n.ID)
		fm.recordName(n.ID)
		fm.recordBody(n.ID)
		parts = append(parts, fm.renderNote(n))
	}
	var sb []byte
	for i, p := range parts {
		if i > 0 {
			sb = append(sb, '\n')
		}
		sb = append(sb, p...)
	}
	return ViewVal{IDs: ids, Rendered: string(sb)}, nil
}

// renderNote renders a viewed note's text, replacing embedded directives
// with their values via the nested executor and folding their dependency
// sets into the current directive's.
func (fm *Frame) renderNote(n *note.Note) string {
	text := n.Text()
	if fm.Nested == nil {
		return parse.Unescape(text)
	}
	stack := append(append([]note.ID{}, fm.ViewStack...), n.ID)
	if fm.Current != nil {
		stack = append(stack, fm.Current.ID)
	}
	return parse.ReplaceSpans(text, func(sp parse.Span) string {
		v, set, err := fm.Nested(sp.Source, n, stack)
		if fm.Deps != nil && set != nil {
			fm.Deps.AddTransitive(set)
		}
		if err != nil {
			return "⚠ " + err.Error()
		}
		return Repr(v)
	})
}

// newFn collects a note-creation mutation. Mutations are applied by the
// caller after evaluation; the directive's rendered value is the created
// content.
func newFn(fm *Frame, inv *invocation) (Value, error) {
	return collectCreate(fm, inv, note.OpCreate)
}

// newIfAbsentFn collects a conditional creation: the note is only created if
// no note exists at the path when the mutation is applied.
func newIfAbsentFn(fm *Frame, inv *invocation) (Value, error) {
	return collectCreate(fm, inv, note.OpCreateIfAbsent)
}

func collectCreate(fm *Frame, inv *invocation, kind note.OpKind) (Value, error) {
	if err := inv.countExact(0); err != nil {
		return nil, err
	}
	path, ok, err := inv.namedStr("path")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.BadValue, "%s requires a path argument", inv.what)
	}
	content, _, err := inv.namedStr("content")
	if err != nil {
		return nil, err
	}
	if fm.Sink != nil {
		fm.Sink.Add(note.Op{Kind: kind, Path: path, Content: content})
	}
	return Str(content), nil
}

// appendFn collects an append mutation: append(line) targets the current
// note, append(note, line) a specific one.
func appendFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countBetween(1, 2); err != nil {
		return nil, err
	}
	if err := inv.noNamed(); err != nil {
		return nil, err
	}
	var target note.ID
	var line string
	if len(inv.pos) == 1 {
		if fm.Current == nil {
			return nil, errs.New(errs.BadValue, "append without a target needs a current note")
		}
		target = fm.Current.ID
		s, err := inv.str(0)
		if err != nil {
			return nil, err
		}
		line = s
	} else {
		nv, ok := inv.pos[0].(NoteVal)
		if !ok {
			return nil, errs.TypeMismatch("append target", "note", inv.pos[0].Kind())
		}
		target = nv.Note.ID
		s, err := inv.str(1)
		if err != nil {
			return nil, err
		}
		line = s
	}
	if fm.Sink != nil {
		fm.Sink.Add(note.Op{Kind: note.OpAppend, Target: target, Line: line})
	}
	return Str(line), nil
}
