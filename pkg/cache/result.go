package cache

import (
	"github.com/quillnotes/quill/pkg/deps"
	"github.com/quillnotes/quill/pkg/eval"
	"github.com/quillnotes/quill/pkg/eval/errs"
	"github.com/quillnotes/quill/pkg/hash"
	"github.com/quillnotes/quill/pkg/note"
)

// NoteHashes is the per-note content snapshot taken when a result was
// computed.
type NoteHashes struct {
	Name string
	Body string
}

// Result is one cached directive outcome: either a value or a deterministic
// error, together with the dependency set observed during evaluation and the
// hash snapshot that staleness checking compares against.
type Result struct {
	// Value is set when the directive succeeded. It is nil in results
	// restored from the durable tier whose value kind does not round-trip;
	// Rendered still carries the display string then.
	Value eval.Value
	// Rendered is the display string of Value at compute time.
	Rendered string

	// Failed marks a cached deterministic error; ErrKind and ErrMsg describe
	// it. Non-deterministic errors are never stored.
	Failed  bool
	ErrKind errs.Kind
	ErrMsg  string

	Deps *deps.Set

	// NoteHashes snapshots the name and body hashes of every note in Deps.
	NoteHashes map[note.ID]NoteHashes
	// GlobalHashes snapshots the aggregate hashes of the facets Deps flags.
	GlobalHashes map[hash.Facet]string
}

// Err returns the cached error, or nil for a successful result.
func (r *Result) Err() error {
	if !r.Failed {
		return nil
	}
	return &errs.Error{K: r.ErrKind, Message: r.ErrMsg}
}

// Snapshot fills NoteHashes and GlobalHashes from the current state of the
// store. It is called once, right after evaluation.
func (r *Result) Snapshot(s note.Store, h *hash.Hasher) {
	r.NoteHashes = make(map[note.ID]NoteHashes)
	for _, id := range r.Deps.NoteIDs() {
		n, ok := s.Get(id)
		if !ok {
			continue
		}
		r.NoteHashes[id] = NoteHashes{Name: hash.Name(n), Body: hash.Body(n)}
	}
	r.GlobalHashes = make(map[hash.Facet]string)
	for _, f := range flaggedFacets(r.Deps) {
		r.GlobalHashes[f] = h.Global(f, s)
	}
}

func flaggedFacets(d *deps.Set) []hash.Facet {
	var fs []hash.Facet
	if d.Existence {
		fs = append(fs, hash.Existence)
	}
	if d.Paths {
		fs = append(fs, hash.Paths)
	}
	if d.Modified {
		fs = append(fs, hash.Modified)
	}
	if d.Created {
		fs = append(fs, hash.Created)
	}
	if d.Viewed {
		fs = append(fs, hash.Viewed)
	}
	return fs
}
