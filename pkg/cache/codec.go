package cache

import (
	"encoding/json"
	"fmt"

	"github.com/quillnotes/quill/pkg/deps"
	"github.com/quillnotes/quill/pkg/eval"
	"github.com/quillnotes/quill/pkg/eval/errs"
	"github.com/quillnotes/quill/pkg/hash"
	"github.com/quillnotes/quill/pkg/note"
)

// The durable tier stores results as JSON. Values that capture live state, a
// lambda's environment or an action's AST, do not round-trip; results holding
// them stay in the memory tier only.

type wireResult struct {
	Value        *wireValue             `json:"value,omitempty"`
	Rendered     string                 `json:"rendered"`
	Failed       bool                   `json:"failed,omitempty"`
	ErrKind      int                    `json:"errKind,omitempty"`
	ErrMsg       string                 `json:"errMsg,omitempty"`
	Deps         wireDeps               `json:"deps"`
	NoteHashes   map[note.ID]NoteHashes `json:"noteHashes"`
	GlobalHashes map[hash.Facet]string  `json:"globalHashes"`
}

type wireValue struct {
	Kind    string      `json:"kind"`
	Num     float64     `json:"num,omitempty"`
	Str     string      `json:"str,omitempty"`
	Bool    bool        `json:"bool,omitempty"`
	List    []wireValue `json:"list,omitempty"`
	ViewIDs []note.ID   `json:"viewIDs,omitempty"`
	ViewStr string      `json:"viewStr,omitempty"`
	Pattern string      `json:"pattern,omitempty"`
}

type wireDeps struct {
	Names     []note.ID        `json:"names,omitempty"`
	Bodies    []note.ID        `json:"bodies,omitempty"`
	Existence bool             `json:"existence,omitempty"`
	Paths     bool             `json:"paths,omitempty"`
	Modified  bool             `json:"modified,omitempty"`
	Created   bool             `json:"created,omitempty"`
	Viewed    bool             `json:"viewed,omitempty"`
	Hierarchy []deps.Hierarchy `json:"hierarchy,omitempty"`
}

// Serializable reports whether a result's value survives the JSON round
// trip. Failed results always do; the value is absent.
func Serializable(r *Result) bool {
	if r.Failed || r.Value == nil {
		return true
	}
	_, ok := encodeValue(r.Value)
	return ok
}

func encodeResult(r *Result) ([]byte, error) {
	w := wireResult{
		Rendered:     r.Rendered,
		Failed:       r.Failed,
		ErrKind:      int(r.ErrKind),
		ErrMsg:       r.ErrMsg,
		Deps:         encodeDeps(r.Deps),
		NoteHashes:   r.NoteHashes,
		GlobalHashes: r.GlobalHashes,
	}
	if !r.Failed && r.Value != nil {
		v, ok := encodeValue(r.Value)
		if !ok {
			return nil, fmt.Errorf("cache: %s value does not serialize", r.Value.Kind())
		}
		w.Value = &v
	}
	return json.Marshal(&w)
}

func decodeResult(data []byte) (*Result, error) {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	r := &Result{
		Rendered:     w.Rendered,
		Failed:       w.Failed,
		ErrKind:      errs.Kind(w.ErrKind),
		ErrMsg:       w.ErrMsg,
		Deps:         decodeDeps(w.Deps),
		NoteHashes:   w.NoteHashes,
		GlobalHashes: w.GlobalHashes,
	}
	if r.NoteHashes == nil {
		r.NoteHashes = make(map[note.ID]NoteHashes)
	}
	if r.GlobalHashes == nil {
		r.GlobalHashes = make(map[hash.Facet]string)
	}
	if w.Value != nil {
		r.Value = decodeValue(*w.Value)
	}
	return r, nil
}

func encodeValue(v eval.Value) (wireValue, bool) {
	switch v := v.(type) {
	case eval.Num:
		return wireValue{Kind: "num", Num: float64(v)}, true
	case eval.Str:
		return wireValue{Kind: "str", Str: string(v)}, true
	case eval.Bool:
		return wireValue{Kind: "bool", Bool: bool(v)}, true
	case eval.Undefined:
		return wireValue{Kind: "undefined"}, true
	case eval.List:
		items := make([]wireValue, len(v))
		for i, item := range v {
			w, ok := encodeValue(item)
			if !ok {
				return wireValue{}, false
			}
			items[i] = w
		}
		return wireValue{Kind: "list", List: items}, true
	case eval.ViewVal:
		return wireValue{Kind: "view", ViewIDs: v.IDs, ViewStr: v.Rendered}, true
	case eval.PatternVal:
		return wireValue{Kind: "pattern", Pattern: v.Text}, true
	default:
		// NoteVal, LambdaVal, ButtonVal and ScheduleVal hold live state.
		return wireValue{}, false
	}
}

func decodeValue(w wireValue) eval.Value {
	switch w.Kind {
	case "num":
		return eval.Num(w.Num)
	case "str":
		return eval.Str(w.Str)
	case "bool":
		return eval.Bool(w.Bool)
	case "undefined":
		return eval.Undefined{}
	case "list":
		items := make(eval.List, len(w.List))
		for i, item := range w.List {
			items[i] = decodeValue(item)
		}
		return items
	case "view":
		return eval.ViewVal{IDs: w.ViewIDs, Rendered: w.ViewStr}
	case "pattern":
		return eval.PatternVal{Text: w.Pattern}
	default:
		return nil
	}
}

func encodeDeps(d *deps.Set) wireDeps {
	if d == nil {
		return wireDeps{}
	}
	return wireDeps{
		Names:     sortedIDs(d.Names),
		Bodies:    sortedIDs(d.Bodies),
		Existence: d.Existence,
		Paths:     d.Paths,
		Modified:  d.Modified,
		Created:   d.Created,
		Viewed:    d.Viewed,
		Hierarchy: d.Hierarchy,
	}
}

func decodeDeps(w wireDeps) *deps.Set {
	d := deps.New()
	for _, id := range w.Names {
		d.AddName(id)
	}
	for _, id := range w.Bodies {
		d.AddBody(id)
	}
	d.Existence = w.Existence
	d.Paths = w.Paths
	d.Modified = w.Modified
	d.Created = w.Created
	d.Viewed = w.Viewed
	for _, h := range w.Hierarchy {
		d.AddHierarchy(h)
	}
	return d
}

func sortedIDs(m map[note.ID]bool) []note.ID {
	s := deps.Set{Names: m, Bodies: map[note.ID]bool{}}
	return s.NoteIDs()
}
